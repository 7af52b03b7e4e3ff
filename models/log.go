package models

import "time"

type LogLevel string

const (
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

type ScrapeLog struct {
	ID        int64     `json:"id" db:"id"`
	RunID     string    `json:"run_id" db:"run_id"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	Level     LogLevel  `json:"level" db:"level"`
	Message   string    `json:"message" db:"message"`
	SourceID  string    `json:"source_id" db:"source_id"`
}

// SourceStats is the persisted view of a source's counters.
type SourceStats struct {
	SourceID             string     `json:"source_id" db:"source_id"`
	ErrorCount           int        `json:"error_count" db:"error_count"`
	SuccessRate          float64    `json:"success_rate" db:"success_rate"`
	Attempts             int        `json:"attempts" db:"attempts"`
	Successes            int        `json:"successes" db:"successes"`
	LastScraped          *time.Time `json:"last_scraped" db:"last_scraped"`
	LastSuccessfulScrape *time.Time `json:"last_successful_scrape" db:"last_successful_scrape"`
}
