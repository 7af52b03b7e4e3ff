package services

import (
	"context"
	"fmt"

	"jobfeed/models"
	"jobfeed/storage"
)

// QueryEngine serves filtered pages of the corpus with facets computed over
// the same filtered set.
type QueryEngine struct {
	store storage.JobStore
}

func NewQueryEngine(store storage.JobStore) *QueryEngine {
	return &QueryEngine{store: store}
}

func (q *QueryEngine) GetJobs(ctx context.Context, f models.JobFilters) (*models.JobsPage, error) {
	if f.Limit <= 0 {
		f.Limit = models.DefaultPageLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	jobs, total, err := q.store.Query(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	facets, err := q.store.FacetCounts(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("facet counts: %w", err)
	}
	if jobs == nil {
		jobs = []models.JobPosting{}
	}

	return &models.JobsPage{Jobs: jobs, Total: total, Facets: facets}, nil
}
