package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"jobfeed/models"
)

// Limiter paces requests per source. Each source has its own pacer, so a
// strict source never slows down the others.
type Limiter struct {
	mu     sync.Mutex
	pacers map[string]*pacer
}

type pacer struct {
	mu     sync.Mutex
	policy models.RateLimitPolicy
	last   time.Time
	rpm    *rate.Limiter
}

func New() *Limiter {
	return &Limiter{pacers: make(map[string]*pacer)}
}

// Wait blocks until src may issue another request: at least
// DelayBetweenRequestsMs after its previous request and within its
// requests-per-minute ceiling. Fetchers use it between the pages of one
// attempt. It only returns an error when ctx ends first.
func (l *Limiter) Wait(ctx context.Context, src models.Source) error {
	p := l.pacerFor(src)

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.last.IsZero() {
		if wait := p.policy.Delay() - time.Since(p.last); wait > 0 {
			if err := sleep(ctx, wait); err != nil {
				return err
			}
		}
	}

	if p.rpm != nil {
		if err := p.rpm.Wait(ctx); err != nil {
			return err
		}
	}

	p.last = time.Now()
	return nil
}

// BeforeAttempt blocks for the full DelayBetweenRequestsMs, even on a
// source's first request, then takes a requests-per-minute slot. Each fetch
// attempt starts behind it.
func (l *Limiter) BeforeAttempt(ctx context.Context, src models.Source) error {
	p := l.pacerFor(src)

	p.mu.Lock()
	defer p.mu.Unlock()

	if delay := p.policy.Delay(); delay > 0 {
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}

	if p.rpm != nil {
		if err := p.rpm.Wait(ctx); err != nil {
			return err
		}
	}

	p.last = time.Now()
	return nil
}

func (l *Limiter) pacerFor(src models.Source) *pacer {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.pacers[src.ID]
	if ok && p.policy == src.RateLimit {
		return p
	}

	np := &pacer{policy: src.RateLimit}
	if ok {
		np.last = p.last
	}
	if rpm := src.RateLimit.RequestsPerMinute; rpm > 0 {
		np.rpm = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
	}
	l.pacers[src.ID] = np
	return np
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
