package app

import "time"

// Run is one CLI invocation. Its ID tags every log line written during it.
type Run struct {
	ID      string
	Command string
	Started time.Time
	Status  string // "success" or "error"
}

// NewRun creates a run for command started at now.
func NewRun(command string, now time.Time) *Run {
	return &Run{
		ID:      now.UTC().Format("20060102T150405Z"),
		Command: command,
		Started: now.UTC(),
		Status:  "success",
	}
}

// Fail marks the run as having ended in error.
func (r *Run) Fail() {
	r.Status = "error"
}

// Failed reports whether Fail was called.
func (r *Run) Failed() bool {
	return r.Status == "error"
}
