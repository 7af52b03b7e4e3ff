package models

import "time"

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusRetrying  RunStatus = "retrying"
)

type ScrapeError struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Stack     string    `json:"stack,omitempty"`
}

// ScrapeJob is the run record for one source scrape, including retries.
type ScrapeJob struct {
	ID                 string        `json:"id" db:"id"`
	SourceID           string        `json:"sourceId" db:"source_id"`
	Status             RunStatus     `json:"status" db:"status"`
	StartedAt          time.Time     `json:"startedAt" db:"started_at"`
	CompletedAt        *time.Time    `json:"completedAt,omitempty" db:"completed_at"`
	JobsFound          int           `json:"jobsFound" db:"jobs_found"`
	JobsInserted       int           `json:"jobsInserted" db:"jobs_inserted"`
	JobsUpdated        int           `json:"jobsUpdated" db:"jobs_updated"`
	DuplicatesSkipped  int           `json:"duplicatesSkipped" db:"duplicates_skipped"`
	CandidatesRejected int           `json:"candidatesRejected" db:"candidates_rejected"`
	Errors             []ScrapeError `json:"errors"`
	RetryCount         int           `json:"retryCount" db:"retry_count"`
	MaxRetries         int           `json:"maxRetries" db:"max_retries"`
}

func (j *ScrapeJob) Clone() ScrapeJob {
	c := *j
	c.Errors = append([]ScrapeError(nil), j.Errors...)
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return c
}

func (j *ScrapeJob) IsTerminal() bool {
	return j.Status == RunStatusCompleted || j.Status == RunStatusFailed
}
