package models

import (
	"encoding/json"
	"time"
)

type CommandType string

const (
	CmdScrapeNow        CommandType = "scrape_now"
	CmdScrapeSource     CommandType = "scrape_source"
	CmdSchedulerEnable  CommandType = "scheduler_enable"
	CmdSchedulerDisable CommandType = "scheduler_disable"
	CmdExportSnapshot   CommandType = "export_snapshot"
)

type Command struct {
	ID          int64           `json:"id" db:"id"`
	Command     CommandType     `json:"command" db:"command"`
	Params      json.RawMessage `json:"params" db:"params"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	ProcessedAt *time.Time      `json:"processed_at" db:"processed_at"`
}

type CommandParams struct {
	Source string `json:"source,omitempty"`
}
