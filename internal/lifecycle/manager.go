package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mapposter/internal/domain"
	"mapposter/internal/metrics"
)

// transitions is the closed table of permitted status changes. Anything
// not listed fails with ErrInvalidTransition before touching the store.
var transitions = map[domain.JobStatus][]domain.JobStatus{
	domain.JobStatusPending:    {domain.JobStatusProcessing},
	domain.JobStatusProcessing: {domain.JobStatusCompleted, domain.JobStatusFailed},
	domain.JobStatusCompleted:  nil,
	domain.JobStatusFailed:     nil,
}

func allowed(from, to domain.JobStatus) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Manager is the single writer to the job store. Every mutation funnels
// through it, so concurrent workers cannot produce a transition the table
// does not permit.
type Manager struct {
	store  domain.JobStore
	logger zerolog.Logger
}

func NewManager(store domain.JobStore, logger zerolog.Logger) *Manager {
	return &Manager{store: store, logger: logger}
}

// CreateJob persists a new pending job for a validated request and returns it.
func (m *Manager) CreateJob(ctx context.Context, req domain.PosterRequest) (*domain.Job, error) {
	job := &domain.Job{
		ID:        uuid.NewString(),
		Status:    domain.JobStatusPending,
		CreatedAt: time.Now().UTC(),
		Request:   req,
	}
	if err := m.store.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	metrics.JobsSubmittedTotal.Inc()
	m.logger.Info().Str("job_id", job.ID).Str("city", req.City).Str("theme", req.Theme).Msg("job created")
	return job, nil
}

// MarkProcessing records that a worker picked the job up.
func (m *Manager) MarkProcessing(ctx context.Context, jobID string) error {
	return m.transition(ctx, jobID, domain.JobPatch{Status: domain.JobStatusProcessing})
}

// MarkCompleted finalizes a successful render with the artifact path.
func (m *Manager) MarkCompleted(ctx context.Context, jobID, posterPath string) error {
	now := time.Now().UTC()
	err := m.transition(ctx, jobID, domain.JobPatch{
		Status:      domain.JobStatusCompleted,
		CompletedAt: &now,
		PosterPath:  &posterPath,
	})
	if err != nil {
		return err
	}
	metrics.JobsCompletedTotal.Inc()
	m.logger.Info().Str("job_id", jobID).Str("poster_path", posterPath).Msg("job completed")
	return nil
}

// MarkFailed finalizes the job with a failure reason.
func (m *Manager) MarkFailed(ctx context.Context, jobID, reason string) error {
	if reason == "" {
		reason = "unknown error"
	}
	now := time.Now().UTC()
	err := m.transition(ctx, jobID, domain.JobPatch{
		Status:      domain.JobStatusFailed,
		CompletedAt: &now,
		Error:       &reason,
	})
	if err != nil {
		return err
	}
	metrics.JobsFailedTotal.Inc()
	m.logger.Info().Str("job_id", jobID).Str("error", reason).Msg("job failed")
	return nil
}

func (m *Manager) transition(ctx context.Context, jobID string, patch domain.JobPatch) error {
	current, err := m.store.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if !allowed(current.Status, patch.Status) {
		// A table violation reaching this point is a bug in the caller,
		// fatal for the job but never for the process.
		m.logger.Error().
			Str("job_id", jobID).
			Str("from", string(current.Status)).
			Str("to", string(patch.Status)).
			Msg("invalid transition requested")
		return fmt.Errorf("%s -> %s: %w", current.Status, patch.Status, domain.ErrInvalidTransition)
	}
	// The store re-checks under its own guard; the read above is advisory
	// and a concurrent winner still resolves to ErrInvalidTransition here.
	if err := m.store.Update(ctx, jobID, patch); err != nil {
		return err
	}
	return nil
}
