package domain

import (
	"context"
	"time"
)

// JobStore defines durable persistence for job records. The store is the
// sole source of truth for job state; all writes go through the lifecycle
// manager. Implementations must be safe for concurrent use.
type JobStore interface {
	// Create inserts a new job record, failing with ErrDuplicateID when the
	// identifier already exists.
	Create(ctx context.Context, job *Job) error

	// Get returns the current record or ErrNotFound.
	Get(ctx context.Context, jobID string) (*Job, error)

	// Update atomically applies a partial update. It fails with ErrNotFound
	// for unknown ids and ErrInvalidTransition when the record is already
	// terminal; a terminal record never regresses.
	Update(ctx context.Context, jobID string, patch JobPatch) error

	// List returns jobs ordered by creation time descending.
	List(ctx context.Context, limit, offset int) ([]*Job, error)

	// DeleteOlderThan removes terminal jobs whose completion precedes the
	// cutoff and returns the removed records so callers can clean up
	// artifact files. Housekeeping only, never invoked on the hot path.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]*Job, error)
}
