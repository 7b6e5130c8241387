package model

import "time"

// RunStatus represents the current state of a pipeline run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunStats holds the counters a run accumulates.
type RunStats struct {
	Elements  int64 `json:"elements"`
	Shaped    int64 `json:"shaped"`
	Records   int64 `json:"records"`
	Kept      int64 `json:"kept"`
	Discarded int64 `json:"discarded"`
}

// Run represents one invocation of a pipeline command.
type Run struct {
	ID        string    `json:"id"`
	Command   string    `json:"command"`
	Input     string    `json:"input"`
	Status    RunStatus `json:"status"`
	Stats     RunStats  `json:"stats"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
