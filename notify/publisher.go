package notify

//go:generate mockgen -source=publisher.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"time"

	"jobfeed/models"
)

const (
	EventScrapeJobFinished   = "EVENT_SCRAPE_JOB_FINISHED"
	EventScrapePassCompleted = "EVENT_SCRAPE_PASS_COMPLETED"
)

// Publisher announces pipeline changes to the outside. Every method is best
// effort for the caller: an error is logged, never retried.
type Publisher interface {
	PublishPosting(ctx context.Context, p *models.JobPosting, isNew bool) error
	PublishJobFinished(ctx context.Context, job *models.ScrapeJob) error
	PublishPassCompleted(ctx context.Context, pass PassSummary) error
	Close() error
}

type PassSummary struct {
	StartedAt   time.Time `json:"startedAt"`
	CompletedAt time.Time `json:"completedAt"`
	Sources     int       `json:"sources"`
	Completed   int       `json:"completed"`
	Failed      int       `json:"failed"`
}

// PostingMessage is the change-feed body for one inserted or updated posting.
type PostingMessage struct {
	Action    string            `json:"action"` // "create" or "update"
	Posting   models.JobPosting `json:"posting"`
	Timestamp time.Time         `json:"timestamp"`
}

type JobFinishedEvent struct {
	Event string           `json:"event"`
	Job   models.ScrapeJob `json:"job"`
}

type PassCompletedEvent struct {
	Event string      `json:"event"`
	Pass  PassSummary `json:"pass"`
}

func action(isNew bool) string {
	if isNew {
		return "create"
	}
	return "update"
}

// Multi fans every call out to all publishers and joins their errors.
type Multi []Publisher

func (m Multi) PublishPosting(ctx context.Context, p *models.JobPosting, isNew bool) error {
	var errs []error
	for _, pub := range m {
		errs = append(errs, pub.PublishPosting(ctx, p, isNew))
	}
	return errors.Join(errs...)
}

func (m Multi) PublishJobFinished(ctx context.Context, job *models.ScrapeJob) error {
	var errs []error
	for _, pub := range m {
		errs = append(errs, pub.PublishJobFinished(ctx, job))
	}
	return errors.Join(errs...)
}

func (m Multi) PublishPassCompleted(ctx context.Context, pass PassSummary) error {
	var errs []error
	for _, pub := range m {
		errs = append(errs, pub.PublishPassCompleted(ctx, pass))
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, pub := range m {
		errs = append(errs, pub.Close())
	}
	return errors.Join(errs...)
}

// NoOp drops everything.
type NoOp struct{}

func (NoOp) PublishPosting(context.Context, *models.JobPosting, bool) error { return nil }
func (NoOp) PublishJobFinished(context.Context, *models.ScrapeJob) error    { return nil }
func (NoOp) PublishPassCompleted(context.Context, PassSummary) error        { return nil }
func (NoOp) Close() error                                                   { return nil }
