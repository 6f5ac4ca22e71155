package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cuongbtq/clipsight-be/internal/jobs"
	"github.com/cuongbtq/clipsight-be/internal/pipeline"
	"github.com/google/uuid"
)

// Submitter validates processing requests, records them as queued jobs and
// launches their pipelines without blocking the caller.
type Submitter struct {
	store    jobs.Store
	executor *pipeline.Executor
	logger   *slog.Logger
}

// NewSubmitter creates a submission service.
func NewSubmitter(store jobs.Store, executor *pipeline.Executor, logger *slog.Logger) *Submitter {
	return &Submitter{
		store:    store,
		executor: executor,
		logger:   logger,
	}
}

// Submit creates a queued job for the input and starts its pipeline in the
// background. It returns the job id immediately; no stage work happens on the
// caller's request path.
func (s *Submitter) Submit(ctx context.Context, input jobs.Input) (string, error) {
	if strings.TrimSpace(input.SourceURL) == "" {
		s.logger.Warn("Submission rejected, missing source url")
		return "", ErrInvalidRequest
	}

	job := jobs.New(uuid.New().String(), input)

	if err := s.store.Create(ctx, job); err != nil {
		return "", fmt.Errorf("failed to create job record: %w", err)
	}

	s.logger.Info("Job created",
		slog.String("job_id", job.ID),
		slog.String("source_url", input.SourceURL),
	)

	s.executor.Launch(job)
	return job.ID, nil
}
