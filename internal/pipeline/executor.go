package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/clipsight-be/internal/jobs"
)

const (
	defaultStatusWriteRetries = 3
	defaultStatusRetryDelay   = 250 * time.Millisecond
)

// Notifier publishes job lifecycle events for downstream consumers.
type Notifier interface {
	PublishJobEvent(ctx context.Context, event string, job *jobs.Job) error
}

// Config holds executor dependencies and tuning.
type Config struct {
	Store  jobs.Store
	Stages []Stage
	Logger *slog.Logger

	// Notifier is optional; terminal transitions are published when set.
	Notifier Notifier

	// StatusWriteRetries bounds how often a failed status write is retried
	// before the job is declared lost.
	StatusWriteRetries int
	StatusRetryDelay   time.Duration
}

// Executor runs the ordered stage sequence for one job, updating the job
// store after every stage. It is the only component that mutates job state
// after creation.
type Executor struct {
	store    jobs.Store
	stages   []Stage
	notifier Notifier
	logger   *slog.Logger

	statusRetries int
	retryDelay    time.Duration

	inflight sync.Map
	wg       sync.WaitGroup
}

// NewExecutor creates an executor for the given stage sequence.
func NewExecutor(cfg *Config) *Executor {
	retries := cfg.StatusWriteRetries
	if retries <= 0 {
		retries = defaultStatusWriteRetries
	}
	delay := cfg.StatusRetryDelay
	if delay <= 0 {
		delay = defaultStatusRetryDelay
	}

	return &Executor{
		store:         cfg.Store,
		stages:        cfg.Stages,
		notifier:      cfg.Notifier,
		logger:        cfg.Logger,
		statusRetries: retries,
		retryDelay:    delay,
	}
}

// Launch starts the pipeline for a job in its own goroutine and returns
// immediately. At most one execution runs per job id; a duplicate launch is
// ignored with a warning.
func (e *Executor) Launch(job *jobs.Job) {
	if _, loaded := e.inflight.LoadOrStore(job.ID, struct{}{}); loaded {
		e.logger.Warn("Job already executing, ignoring duplicate launch",
			slog.String("job_id", job.ID),
		)
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer e.inflight.Delete(job.ID)
		e.Run(context.Background(), job)
	}()
}

// Wait blocks until all launched jobs have finished. Used on shutdown to
// drain in-flight pipelines.
func (e *Executor) Wait() {
	e.wg.Wait()
}

// Run executes the full pipeline for one job. Stage errors and panics are
// captured into the job's terminal failed state; they are never propagated
// to the caller that accepted the submission.
func (e *Executor) Run(ctx context.Context, job *jobs.Job) {
	logger := e.logger.With(slog.String("job_id", job.ID))
	logger.Info("Starting pipeline",
		slog.String("source_url", job.Input.SourceURL),
		slog.Int("stages", len(e.stages)),
	)

	state := &State{
		JobID: job.ID,
		Input: job.Input,
	}
	defer state.cleanup(logger)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Pipeline panicked",
				slog.Any("panic", r),
			)
			e.finishFailed(ctx, job, fmt.Sprintf("internal fault: %v", r))
		}
	}()

	total := len(e.stages)
	for i, stage := range e.stages {
		step := i + 1
		if err := e.writeStatus(ctx, job.ID, func(j *jobs.Job) error {
			return j.MarkRunning(step, total, stage.Name())
		}); err != nil {
			// A job stuck without a status update is lost to its caller.
			logger.Error("Aborting pipeline, job state can no longer be updated",
				slog.String("error", err.Error()),
			)
			return
		}

		logger.Info("Running stage",
			slog.String("stage", stage.Name()),
			slog.Int("step", step),
			slog.Int("total", total),
		)

		if err := stage.Run(ctx, state); err != nil {
			logger.Error("Stage failed",
				slog.String("stage", stage.Name()),
				slog.Int("step", step),
				slog.String("error", err.Error()),
			)
			e.finishFailed(ctx, job, err.Error())
			return
		}
	}

	e.finishCompleted(ctx, job, state.Result())
	logger.Info("Pipeline completed")
}

func (e *Executor) finishCompleted(ctx context.Context, job *jobs.Job, result *jobs.Result) {
	err := e.writeStatus(ctx, job.ID, func(j *jobs.Job) error {
		return j.MarkCompleted(result)
	})
	if err != nil {
		return
	}
	e.publish(ctx, "job.completed", job.ID)
}

func (e *Executor) finishFailed(ctx context.Context, job *jobs.Job, message string) {
	err := e.writeStatus(ctx, job.ID, func(j *jobs.Job) error {
		return j.MarkFailed(message)
	})
	if err != nil {
		return
	}
	e.publish(ctx, "job.failed", job.ID)
}

// writeStatus applies a state transition, retrying a bounded number of times
// when the store is unavailable. Not-found and invalid-transition errors are
// permanent and returned immediately.
func (e *Executor) writeStatus(ctx context.Context, id string, mutate func(*jobs.Job) error) error {
	var err error
	for attempt := 1; attempt <= e.statusRetries; attempt++ {
		err = e.store.Update(ctx, id, mutate)
		if err == nil {
			return nil
		}
		if errors.Is(err, jobs.ErrNotFound) || errors.Is(err, jobs.ErrTerminalState) {
			return err
		}

		e.logger.Warn("Job status write failed, retrying",
			slog.String("job_id", id),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", e.statusRetries),
			slog.String("error", err.Error()),
		)

		if attempt < e.statusRetries {
			time.Sleep(e.retryDelay)
		}
	}

	e.logger.Error("Job status write failed permanently",
		slog.String("job_id", id),
		slog.String("error", err.Error()),
	)
	return err
}

func (e *Executor) publish(ctx context.Context, event, id string) {
	if e.notifier == nil {
		return
	}

	job, err := e.store.Get(ctx, id)
	if err != nil {
		e.logger.Warn("Skipping event publish, job record unavailable",
			slog.String("job_id", id),
			slog.String("error", err.Error()),
		)
		return
	}

	if err := e.notifier.PublishJobEvent(ctx, event, job); err != nil {
		e.logger.Warn("Failed to publish job event",
			slog.String("job_id", id),
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
