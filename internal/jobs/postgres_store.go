package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresStore keeps job records in a jobs table. The full record is stored
// as a single JSONB column so that it round-trips exactly; status is kept in
// its own column for ad-hoc inspection.
type PostgresStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewPostgresStore creates a store backed by the given database handle.
func NewPostgresStore(db *sqlx.DB, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: logger,
	}
}

// EnsureSchema creates the jobs table if it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS jobs (
			job_id     TEXT PRIMARY KEY,
			status     TEXT NOT NULL,
			record     JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure jobs table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, job *Job) error {
	record, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}

	query := `
		INSERT INTO jobs (job_id, status, record, updated_at)
		VALUES ($1, $2, $3, NOW())
	`

	if _, err := s.db.ExecContext(ctx, query, job.ID, job.Status, record); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Job, error) {
	var record []byte
	query := `SELECT record FROM jobs WHERE job_id = $1`

	if err := s.db.QueryRowContext(ctx, query, id).Scan(&record); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	var job Job
	if err := json.Unmarshal(record, &job); err != nil {
		return nil, fmt.Errorf("failed to decode job record: %w", err)
	}
	return &job, nil
}

// Update applies the mutator inside a transaction holding a row lock, so two
// concurrent updates to the same job id never interleave. Row locks on
// different ids do not contend.
func (s *PostgresStore) Update(ctx context.Context, id string, mutate func(*Job) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var record []byte
	query := `SELECT record FROM jobs WHERE job_id = $1 FOR UPDATE`

	if err := tx.QueryRowContext(ctx, query, id).Scan(&record); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to lock job row: %w", err)
	}

	var job Job
	if err := json.Unmarshal(record, &job); err != nil {
		return fmt.Errorf("failed to decode job record: %w", err)
	}

	if err := mutate(&job); err != nil {
		return err
	}

	updated, err := json.Marshal(&job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}

	write := `UPDATE jobs SET status = $1, record = $2, updated_at = NOW() WHERE job_id = $3`
	if _, err := tx.ExecContext(ctx, write, job.Status, updated, id); err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit job update: %w", err)
	}

	s.logger.Debug("Job record updated",
		slog.String("job_id", id),
		slog.String("status", string(job.Status)),
	)
	return nil
}
