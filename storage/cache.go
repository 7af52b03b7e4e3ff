package storage

import (
	"context"
	"log"
	"sync"

	"jobfeed/models"
)

// CachedStore serves reads from an in-process mirror of the active corpus
// and sends every write to the backing store first. The backing store stays
// the source of truth: identity lookups always go to it, and a failed write
// drops the mirror so the next read reloads.
type CachedStore struct {
	backing JobStore
	mirror  *MemoryStore

	mu   sync.Mutex
	warm bool
}

func NewCachedStore(backing JobStore) *CachedStore {
	return &CachedStore{backing: backing, mirror: NewMemoryStore()}
}

func (c *CachedStore) Upsert(ctx context.Context, postings []models.JobPosting) error {
	if err := c.backing.Upsert(ctx, postings); err != nil {
		c.Invalidate()
		return err
	}

	c.mu.Lock()
	warm := c.warm
	c.mu.Unlock()
	if warm {
		_ = c.mirror.Upsert(ctx, postings)
	}
	return nil
}

func (c *CachedStore) GetByFingerprints(ctx context.Context, sourceID string, fps []string) (map[string]models.JobPosting, error) {
	return c.backing.GetByFingerprints(ctx, sourceID, fps)
}

func (c *CachedStore) Query(ctx context.Context, f models.JobFilters) ([]models.JobPosting, int, error) {
	if err := c.ensureWarm(ctx); err != nil {
		return c.backing.Query(ctx, f)
	}
	return c.mirror.Query(ctx, f)
}

func (c *CachedStore) FacetCounts(ctx context.Context, f models.JobFilters) (models.FacetCounts, error) {
	if err := c.ensureWarm(ctx); err != nil {
		return c.backing.FacetCounts(ctx, f)
	}
	return c.mirror.FacetCounts(ctx, f)
}

func (c *CachedStore) Active(ctx context.Context) ([]models.JobPosting, error) {
	if err := c.ensureWarm(ctx); err != nil {
		return c.backing.Active(ctx)
	}
	return c.mirror.Active(ctx)
}

// Invalidate marks the mirror stale.
func (c *CachedStore) Invalidate() {
	c.mu.Lock()
	c.warm = false
	c.mu.Unlock()
}

func (c *CachedStore) Close() error {
	return c.backing.Close()
}

func (c *CachedStore) ensureWarm(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.warm {
		return nil
	}

	postings, err := c.backing.Active(ctx)
	if err != nil {
		log.Printf("Warning: cache reload failed, reading through: %v", err)
		return err
	}
	c.mirror.Replace(postings)
	c.warm = true
	return nil
}
