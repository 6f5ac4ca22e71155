package service

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/clipsight-be/internal/jobs"
)

// StatusView is the read-only projection served to polling clients.
type StatusView struct {
	JobID    string         `json:"job_id"`
	Status   jobs.Status    `json:"status"`
	Progress *jobs.Progress `json:"progress,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// Query serves read-only projections over the job store. It never mutates
// job state.
type Query struct {
	store  jobs.Store
	logger *slog.Logger
}

// NewQuery creates a query service.
func NewQuery(store jobs.Store, logger *slog.Logger) *Query {
	return &Query{
		store:  store,
		logger: logger,
	}
}

// GetStatus returns the current status view for a job. Unknown and expired
// ids both yield jobs.ErrNotFound.
func (q *Query) GetStatus(ctx context.Context, id string) (*StatusView, error) {
	job, err := q.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	return &StatusView{
		JobID:    job.ID,
		Status:   job.Status,
		Progress: job.Progress,
		Error:    job.Error,
	}, nil
}

// GetResult returns the aggregated result of a completed job. For a known but
// unfinished job it returns a NotReadyError carrying the current status.
func (q *Query) GetResult(ctx context.Context, id string) (*jobs.Result, error) {
	job, err := q.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if job.Status != jobs.StatusCompleted {
		q.logger.Debug("Result requested before completion",
			slog.String("job_id", id),
			slog.String("status", string(job.Status)),
		)
		return nil, &NotReadyError{Status: job.Status}
	}

	return job.Result, nil
}
