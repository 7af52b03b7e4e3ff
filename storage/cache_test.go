package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"jobfeed/models"
)

// flakyStore fails writes while failing is set.
type flakyStore struct {
	*MemoryStore
	failing bool
	actives int
}

func (f *flakyStore) Upsert(ctx context.Context, postings []models.JobPosting) error {
	if f.failing {
		return errors.New("connection reset")
	}
	return f.MemoryStore.Upsert(ctx, postings)
}

func (f *flakyStore) Active(ctx context.Context) ([]models.JobPosting, error) {
	f.actives++
	return f.MemoryStore.Active(ctx)
}

func TestCachedStore(t *testing.T) {
	suite.Run(t, &jobStoreSuite{newStore: func() JobStore { return NewCachedStore(NewMemoryStore()) }})
}

func TestCachedStore_ServesReadsFromMirror(t *testing.T) {
	ctx := context.Background()
	backing := &flakyStore{MemoryStore: NewMemoryStore()}
	c := NewCachedStore(backing)

	require.NoError(t, c.Upsert(ctx, []models.JobPosting{posting("alpha", "Go Dev", "Acme", time.Hour)}))

	_, total, err := c.Query(ctx, models.JobFilters{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	_, _, err = c.Query(ctx, models.JobFilters{})
	require.NoError(t, err)
	assert.Equal(t, 1, backing.actives)

	require.NoError(t, c.Upsert(ctx, []models.JobPosting{posting("alpha", "Rust Dev", "Acme", time.Hour)}))
	_, total, err = c.Query(ctx, models.JobFilters{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, backing.actives)
}

func TestCachedStore_FailedWriteInvalidates(t *testing.T) {
	ctx := context.Background()
	backing := &flakyStore{MemoryStore: NewMemoryStore()}
	c := NewCachedStore(backing)

	_, _, err := c.Query(ctx, models.JobFilters{})
	require.NoError(t, err)
	assert.Equal(t, 1, backing.actives)

	backing.failing = true
	err = c.Upsert(ctx, []models.JobPosting{posting("alpha", "Go Dev", "Acme", time.Hour)})
	require.Error(t, err)

	// Someone else wrote behind our back; the reload must pick it up.
	require.NoError(t, backing.MemoryStore.Upsert(ctx, []models.JobPosting{posting("bravo", "Ops", "Initech", time.Hour)}))

	jobs, total, err := c.Query(ctx, models.JobFilters{})
	require.NoError(t, err)
	assert.Equal(t, 2, backing.actives)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Ops", jobs[0].Title)
}
