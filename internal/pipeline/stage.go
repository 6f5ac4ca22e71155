package pipeline

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/clipsight-be/internal/jobs"
)

// Stage is one step of the processing pipeline. Run receives the state
// produced by earlier stages and mutates it with its own output. A non-nil
// error terminates the job.
type Stage interface {
	// Name is the label exposed to polling clients while the stage runs.
	Name() string
	Run(ctx context.Context, state *State) error
}

// State is the working set one job carries through its pipeline. Each job owns
// its state exclusively; stages never share state across jobs.
type State struct {
	JobID string
	Input jobs.Input

	// Artifact is the local handle produced by the fetch stage.
	Artifact string

	Transcript string
	OCRText    string
	Summary    map[string]any

	cleanups []func()
}

// OnCleanup registers a release function for a transient resource. Cleanups
// run in reverse registration order once the pipeline finishes, on both
// success and failure paths.
func (s *State) OnCleanup(fn func()) {
	s.cleanups = append(s.cleanups, fn)
}

// cleanup releases all registered resources exactly once. A panicking cleanup
// must not prevent the remaining ones from running.
func (s *State) cleanup(logger *slog.Logger) {
	fns := s.cleanups
	s.cleanups = nil

	for i := len(fns) - 1; i >= 0; i-- {
		func(fn func()) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Cleanup function panicked",
						slog.String("job_id", s.JobID),
						slog.Any("panic", r),
					)
				}
			}()
			fn()
		}(fns[i])
	}
}

// Result aggregates the state into the job's final output.
func (s *State) Result() *jobs.Result {
	return &jobs.Result{
		Transcription: s.Transcript,
		OCRText:       s.OCRText,
		Summary:       s.Summary,
	}
}
