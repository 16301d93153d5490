package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"mapposter/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
  job_id       TEXT PRIMARY KEY,
  status       TEXT NOT NULL,
  created_at   INTEGER NOT NULL,
  completed_at INTEGER,
  error        TEXT,
  poster_path  TEXT,
  request_data TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs (created_at DESC);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs (status);
`

// SQLite is the durable job store. One file under the configured database
// directory; concurrent dispatcher workers share the same handle.
type SQLite struct {
	db *sql.DB
}

// Open creates the database directory if needed, opens (or creates) the
// jobs database inside it and ensures the schema exists.
func Open(dir string) (*SQLite, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: ensure db dir: %w", err)
	}
	path := filepath.Join(dir, "jobs.db")
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ensure schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// Create inserts a new pending job record.
func (s *SQLite) Create(ctx context.Context, job *domain.Job) error {
	reqJSON, err := json.Marshal(job.Request)
	if err != nil {
		return fmt.Errorf("store: encode request: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO jobs (job_id, status, created_at, completed_at, error, poster_path, request_data)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		string(job.Status),
		job.CreatedAt.UnixMilli(),
		nullableTime(job.CompletedAt),
		nullableText(job.Error),
		nullableText(job.PosterPath),
		string(reqJSON),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateID
		}
		return fmt.Errorf("store: insert job: %w", err)
	}
	return nil
}

// Get returns the current record or domain.ErrNotFound.
func (s *SQLite) Get(ctx context.Context, jobID string) (*domain.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT job_id, status, created_at, completed_at, error, poster_path, request_data
		 FROM jobs WHERE job_id = ?`, jobID)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("store: get job: %w", err)
	}
	return job, nil
}

// Update atomically applies a status patch. The guard clause only matches
// non-terminal rows, so a terminal record can never regress regardless of
// how many workers race on it; exactly one transition wins.
func (s *SQLite) Update(ctx context.Context, jobID string, patch domain.JobPatch) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs
		 SET status = ?,
		     completed_at = COALESCE(?, completed_at),
		     error = COALESCE(?, error),
		     poster_path = COALESCE(?, poster_path)
		 WHERE job_id = ? AND status IN ('pending', 'processing')`,
		string(patch.Status),
		nullableTime(patch.CompletedAt),
		patch.Error,
		patch.PosterPath,
		jobID,
	)
	if err != nil {
		return fmt.Errorf("store: update job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: rows affected: %w", err)
	}
	if n == 0 {
		// Distinguish an unknown id from an already-terminal record.
		var exists int
		err := s.db.QueryRowContext(ctx,
			`SELECT 1 FROM jobs WHERE job_id = ?`, jobID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("store: check job: %w", err)
		}
		return domain.ErrInvalidTransition
	}
	return nil
}

// List returns jobs ordered by creation time descending.
func (s *SQLite) List(ctx context.Context, limit, offset int) ([]*domain.Job, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT job_id, status, created_at, completed_at, error, poster_path, request_data
		 FROM jobs ORDER BY created_at DESC, job_id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("store: list jobs: %w", err)
	}
	defer rows.Close()

	var out []*domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan job: %w", err)
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// DeleteOlderThan removes terminal jobs completed before the cutoff and
// returns the removed records.
func (s *SQLite) DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]*domain.Job, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT job_id, status, created_at, completed_at, error, poster_path, request_data
		 FROM jobs
		 WHERE status IN ('completed', 'failed') AND completed_at < ?`,
		cutoff.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("store: select expired jobs: %w", err)
	}
	defer rows.Close()

	var expired []*domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan expired job: %w", err)
		}
		expired = append(expired, job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(expired) == 0 {
		return nil, nil
	}

	ids := make([]any, 0, len(expired))
	for _, job := range expired {
		ids = append(ids, job.ID)
	}
	q := fmt.Sprintf(`DELETE FROM jobs WHERE job_id IN (%s)`,
		strings.TrimSuffix(strings.Repeat("?,", len(ids)), ","))
	if _, err := s.db.ExecContext(ctx, q, ids...); err != nil {
		return nil, fmt.Errorf("store: delete expired jobs: %w", err)
	}
	return expired, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var (
		job         domain.Job
		statusStr   string
		createdMs   int64
		completedMs sql.NullInt64
		errMsg      sql.NullString
		posterPath  sql.NullString
		reqJSON     string
	)
	if err := row.Scan(&job.ID, &statusStr, &createdMs, &completedMs, &errMsg, &posterPath, &reqJSON); err != nil {
		return nil, err
	}
	status, err := domain.ParseStatus(statusStr)
	if err != nil {
		return nil, err
	}
	job.Status = status
	job.CreatedAt = time.UnixMilli(createdMs).UTC()
	if completedMs.Valid {
		t := time.UnixMilli(completedMs.Int64).UTC()
		job.CompletedAt = &t
	}
	if errMsg.Valid {
		job.Error = errMsg.String
	}
	if posterPath.Valid {
		job.PosterPath = posterPath.String
	}
	if err := json.Unmarshal([]byte(reqJSON), &job.Request); err != nil {
		return nil, fmt.Errorf("decode request data: %w", err)
	}
	return &job, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func nullableText(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func isUniqueViolation(err error) bool {
	// modernc.org/sqlite reports constraint failures in the error text;
	// the driver does not export a typed error for them.
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
