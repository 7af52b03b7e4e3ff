package storage

import (
	"context"
	"errors"
	"fmt"

	"jobfeed/models"
)

var ErrUnknownDriver = errors.New("unknown store driver")

// JobStore is the durable home of postings. Upsert must be atomic per
// (source_id, fingerprint): a conflicting row keeps its id and scraped_at and
// takes every other field from the incoming posting.
type JobStore interface {
	Upsert(ctx context.Context, postings []models.JobPosting) error
	// GetByFingerprints returns the stored postings of sourceID whose
	// fingerprint is in fps, keyed by fingerprint.
	GetByFingerprints(ctx context.Context, sourceID string, fps []string) (map[string]models.JobPosting, error)
	// Query filters active postings, sorts them newest posted first and
	// applies offset/limit. total counts the filtered set before paging.
	Query(ctx context.Context, f models.JobFilters) (jobs []models.JobPosting, total int, err error)
	FacetCounts(ctx context.Context, f models.JobFilters) (models.FacetCounts, error)
	// Active returns every active posting.
	Active(ctx context.Context) ([]models.JobPosting, error)
	Close() error
}

type Options struct {
	Driver      string
	DBPath      string
	DatabaseURL string
}

// Open builds the JobStore for opts.Driver.
func Open(ctx context.Context, opts Options) (JobStore, error) {
	switch opts.Driver {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite", "":
		return NewSQLiteStore(opts.DBPath)
	case "postgres":
		if opts.DatabaseURL == "" {
			return nil, fmt.Errorf("postgres store: DATABASE_URL is empty")
		}
		return NewPostgresStore(ctx, opts.DatabaseURL)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
	}
}
