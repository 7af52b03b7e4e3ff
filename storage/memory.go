package storage

import (
	"context"
	"sync"

	"jobfeed/models"
)

type postingKey struct {
	sourceID    string
	fingerprint string
}

// MemoryStore keeps postings in process. It is the store for tests and for
// STORE_DRIVER=memory, and the read mirror inside CachedStore.
type MemoryStore struct {
	mu    sync.RWMutex
	rows  map[postingKey]*models.JobPosting
	order []postingKey
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[postingKey]*models.JobPosting)}
}

func (s *MemoryStore) Upsert(_ context.Context, postings []models.JobPosting) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range postings {
		p := clonePosting(&postings[i])
		key := postingKey{p.SourceID, p.Fingerprint}
		if existing, ok := s.rows[key]; ok {
			p.ID = existing.ID
			p.ScrapedAt = existing.ScrapedAt
			s.rows[key] = &p
			continue
		}
		s.rows[key] = &p
		s.order = append(s.order, key)
	}
	return nil
}

func (s *MemoryStore) GetByFingerprints(_ context.Context, sourceID string, fps []string) (map[string]models.JobPosting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]models.JobPosting, len(fps))
	for _, fp := range fps {
		if p, ok := s.rows[postingKey{sourceID, fp}]; ok {
			out[fp] = clonePosting(p)
		}
	}
	return out, nil
}

func (s *MemoryStore) Query(ctx context.Context, f models.JobFilters) ([]models.JobPosting, int, error) {
	all, _ := s.Active(ctx)
	matched := Filter(all, f)
	SortNewestFirst(matched)
	return Page(matched, f.Offset, f.Limit), len(matched), nil
}

func (s *MemoryStore) FacetCounts(ctx context.Context, f models.JobFilters) (models.FacetCounts, error) {
	all, _ := s.Active(ctx)
	return Facets(Filter(all, f)), nil
}

// Active returns active postings in insertion order.
func (s *MemoryStore) Active(_ context.Context) ([]models.JobPosting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.JobPosting, 0, len(s.order))
	for _, key := range s.order {
		if p := s.rows[key]; p.IsActive {
			out = append(out, clonePosting(p))
		}
	}
	return out, nil
}

// Replace swaps the whole content for postings.
func (s *MemoryStore) Replace(postings []models.JobPosting) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows = make(map[postingKey]*models.JobPosting, len(postings))
	s.order = s.order[:0]
	for i := range postings {
		p := clonePosting(&postings[i])
		key := postingKey{p.SourceID, p.Fingerprint}
		if _, dup := s.rows[key]; !dup {
			s.order = append(s.order, key)
		}
		s.rows[key] = &p
	}
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

func (s *MemoryStore) Close() error { return nil }

func clonePosting(p *models.JobPosting) models.JobPosting {
	c := *p
	if p.Salary != nil {
		sal := *p.Salary
		c.Salary = &sal
	}
	if p.ApplicationDeadline != nil {
		d := *p.ApplicationDeadline
		c.ApplicationDeadline = &d
	}
	c.Requirements = append([]string(nil), p.Requirements...)
	c.Benefits = append([]string(nil), p.Benefits...)
	c.Tags = append([]string(nil), p.Tags...)
	c.Skills = append([]string(nil), p.Skills...)
	c.Languages = append([]string(nil), p.Languages...)
	return c
}
