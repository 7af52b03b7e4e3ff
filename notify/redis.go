package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"jobfeed/models"
)

// Redis announces scrape job and pass outcomes on pub/sub channels named
// after the event.
type Redis struct {
	rdb *redis.Client
}

func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return rdb, nil
}

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

func (r *Redis) PublishPosting(context.Context, *models.JobPosting, bool) error { return nil }

func (r *Redis) PublishJobFinished(ctx context.Context, job *models.ScrapeJob) error {
	return r.publish(ctx, EventScrapeJobFinished, JobFinishedEvent{Event: EventScrapeJobFinished, Job: *job})
}

func (r *Redis) PublishPassCompleted(ctx context.Context, pass PassSummary) error {
	return r.publish(ctx, EventScrapePassCompleted, PassCompletedEvent{Event: EventScrapePassCompleted, Pass: pass})
}

func (r *Redis) publish(ctx context.Context, channel string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", channel, err)
	}
	if err := r.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
