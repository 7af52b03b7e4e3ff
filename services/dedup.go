package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"jobfeed/identity"
	"jobfeed/models"
	"jobfeed/storage"
)

type Action int

const (
	ActionInsert Action = iota
	ActionUpdate
	ActionSkip
)

func (a Action) String() string {
	switch a {
	case ActionInsert:
		return "insert"
	case ActionUpdate:
		return "update"
	default:
		return "skip"
	}
}

// Change is one posting that has to be written, with whether it is new.
type Change struct {
	Posting models.JobPosting
	IsNew   bool
}

// MergeResult is the classification of one normalized batch.
type MergeResult struct {
	Inserted int
	Updated  int
	Skipped  int
	// Changes holds the final version of every posting to write, one per
	// fingerprint, in first-seen order.
	Changes []Change
}

func (r *MergeResult) Postings() []models.JobPosting {
	out := make([]models.JobPosting, len(r.Changes))
	for i, c := range r.Changes {
		out[i] = c.Posting
	}
	return out
}

// Deduplicator decides per fingerprint whether a fresh posting is new,
// changed or a repeat of what the store already holds.
type Deduplicator struct {
	store storage.JobStore
	now   func() time.Time
}

func NewDeduplicator(store storage.JobStore) *Deduplicator {
	return &Deduplicator{store: store, now: time.Now}
}

// Classify compares batch against the stored postings of sourceID. Postings
// sharing a fingerprint inside the batch are compared with each other the
// same way. Nothing is written.
func (d *Deduplicator) Classify(ctx context.Context, sourceID string, batch []models.JobPosting) (*MergeResult, error) {
	fps := make([]string, 0, len(batch))
	for i := range batch {
		fps = append(fps, batch[i].Fingerprint)
	}

	existing, err := d.store.GetByFingerprints(ctx, sourceID, fps)
	if err != nil {
		return nil, fmt.Errorf("load existing postings: %w", err)
	}

	now := d.now()
	result := &MergeResult{}
	changeIdx := make(map[string]int)

	for _, p := range batch {
		current, seen := existing[p.Fingerprint]

		switch {
		case !seen:
			p.ID = uuid.NewString()
			result.Inserted++
			changeIdx[p.Fingerprint] = len(result.Changes)
			result.Changes = append(result.Changes, Change{Posting: p, IsNew: true})

		case MaterialChange(&current, &p):
			p.ID = current.ID
			p.ScrapedAt = current.ScrapedAt
			p.LastUpdated = now
			result.Updated++
			if idx, ok := changeIdx[p.Fingerprint]; ok {
				result.Changes[idx].Posting = p
			} else {
				changeIdx[p.Fingerprint] = len(result.Changes)
				result.Changes = append(result.Changes, Change{Posting: p})
			}

		default:
			result.Skipped++
			continue
		}

		existing[p.Fingerprint] = p
	}

	return result, nil
}

// Apply writes the changes of result in one upsert.
func (d *Deduplicator) Apply(ctx context.Context, result *MergeResult) error {
	if len(result.Changes) == 0 {
		return nil
	}
	if err := d.store.Upsert(ctx, result.Postings()); err != nil {
		return fmt.Errorf("upsert %d postings: %w", len(result.Changes), err)
	}
	return nil
}

// MaterialChange reports whether next differs from prev in a field that
// counts as a real edit: title, description or either salary bound.
// Whitespace differences in the description are not edits.
func MaterialChange(prev, next *models.JobPosting) bool {
	if prev.Title != next.Title {
		return true
	}
	if identity.CollapseSpaces(prev.Description) != identity.CollapseSpaces(next.Description) {
		return true
	}
	if (prev.Salary == nil) != (next.Salary == nil) {
		return true
	}
	if prev.Salary != nil && (prev.Salary.Min != next.Salary.Min || prev.Salary.Max != next.Salary.Max) {
		return true
	}
	return false
}
