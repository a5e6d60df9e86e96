package models

import "time"

// Run status values
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Run represents a single rclone invocation
type Run struct {
	ID          int64
	StartedAt   time.Time
	FinishedAt  time.Time
	Direction   string
	Source      string
	Destination string
	DryRun      bool
	ExitCode    int
	Status      string
}

// Duration returns how long the run took, zero while it is still running
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
