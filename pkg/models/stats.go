package models

import "time"

// Stats represents run history statistics
type Stats struct {
	TotalRuns     int64
	CompletedRuns int64
	FailedRuns    int64
	RunningRuns   int64
	LastSuccess   time.Time // zero if no run has completed
}
