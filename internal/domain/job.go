package domain

import (
	"fmt"
	"time"
)

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// ParseStatus converts a stored status string into a JobStatus. Unknown
// values are rejected so a corrupted row never round-trips as a valid state.
func ParseStatus(s string) (JobStatus, error) {
	switch JobStatus(s) {
	case JobStatusPending, JobStatusProcessing, JobStatusCompleted, JobStatusFailed:
		return JobStatus(s), nil
	}
	return "", fmt.Errorf("unknown job status %q", s)
}

// IsTerminal reports whether no further transitions are permitted.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job encapsulates the lifecycle of one poster generation request.
// Invariants: CompletedAt is set iff Status is terminal, and exactly one of
// Error/PosterPath is set once terminal. Terminal records never change.
type Job struct {
	ID          string
	Status      JobStatus
	CreatedAt   time.Time
	CompletedAt *time.Time
	Error       string
	PosterPath  string
	Request     PosterRequest
}

// JobPatch carries a partial update applied atomically by the store.
// Only the lifecycle manager constructs patches.
type JobPatch struct {
	Status      JobStatus
	CompletedAt *time.Time
	Error       *string
	PosterPath  *string
}
