package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobfeed/models"
)

func source(id string, delayMs, rpm int) models.Source {
	return models.Source{
		ID: id,
		RateLimit: models.RateLimitPolicy{
			RequestsPerMinute:      rpm,
			DelayBetweenRequestsMs: delayMs,
		},
	}
}

func TestLimiter_BeforeAttemptDelaysFirstRequest(t *testing.T) {
	l := New()
	start := time.Now()
	require.NoError(t, l.BeforeAttempt(context.Background(), source("a", 150, 0)))
	assert.GreaterOrEqual(t, time.Since(start), 140*time.Millisecond)
}

func TestLimiter_BeforeAttemptDelaysEveryAttempt(t *testing.T) {
	l := New()
	src := source("a", 60, 0)

	start := time.Now()
	for range 3 {
		require.NoError(t, l.BeforeAttempt(context.Background(), src))
	}
	assert.GreaterOrEqual(t, time.Since(start), 170*time.Millisecond)
}

func TestLimiter_BeforeAttemptWithoutDelay(t *testing.T) {
	l := New()
	start := time.Now()
	require.NoError(t, l.BeforeAttempt(context.Background(), source("a", 0, 0)))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestLimiter_BeforeAttemptContextCancel(t *testing.T) {
	l := New()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.BeforeAttempt(ctx, source("a", 5000, 0))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLimiter_EnforcesDelayBetweenRequests(t *testing.T) {
	l := New()
	src := source("a", 80, 0)

	require.NoError(t, l.Wait(context.Background(), src))
	start := time.Now()
	require.NoError(t, l.Wait(context.Background(), src))
	assert.GreaterOrEqual(t, time.Since(start), 70*time.Millisecond)
}

func TestLimiter_SourcesAreIndependent(t *testing.T) {
	l := New()
	slow := source("slow", 400, 0)
	fast := source("fast", 0, 0)

	require.NoError(t, l.Wait(context.Background(), slow))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = l.Wait(context.Background(), slow)
	}()

	start := time.Now()
	require.NoError(t, l.Wait(context.Background(), fast))
	require.NoError(t, l.Wait(context.Background(), fast))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	wg.Wait()
}

func TestLimiter_RequestsPerMinuteCeiling(t *testing.T) {
	l := New()
	// 600 rpm is one request per 100ms.
	src := source("rpm", 0, 600)

	require.NoError(t, l.Wait(context.Background(), src))
	start := time.Now()
	require.NoError(t, l.Wait(context.Background(), src))
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestLimiter_ContextCancel(t *testing.T) {
	l := New()
	src := source("a", 5000, 0)
	require.NoError(t, l.Wait(context.Background(), src))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.Wait(ctx, src)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
