package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/cuongbtq/clipsight-be/internal/jobs"
	"github.com/cuongbtq/clipsight-be/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStage struct {
	name string
	run  func(ctx context.Context, state *pipeline.State) error
}

func (s *stubStage) Name() string { return s.name }

func (s *stubStage) Run(ctx context.Context, state *pipeline.State) error {
	if s.run == nil {
		return nil
	}
	return s.run(ctx, state)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newServices(store jobs.Store, stages ...pipeline.Stage) (*Submitter, *Query, *pipeline.Executor) {
	executor := pipeline.NewExecutor(&pipeline.Config{
		Store:  store,
		Stages: stages,
		Logger: testLogger(),
	})
	return NewSubmitter(store, executor, testLogger()), NewQuery(store, testLogger()), executor
}

func TestSubmitValidation(t *testing.T) {
	store := jobs.NewMemoryStore()
	submitter, _, _ := newServices(store)

	tests := []struct {
		name  string
		input jobs.Input
	}{
		{name: "empty input", input: jobs.Input{}},
		{name: "blank url", input: jobs.Input{SourceURL: "   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := submitter.Submit(context.Background(), tt.input)
			assert.ErrorIs(t, err, ErrInvalidRequest)
			assert.Empty(t, id)
		})
	}
}

func TestSubmitReturnsImmediately(t *testing.T) {
	store := jobs.NewMemoryStore()
	release := make(chan struct{})
	submitter, query, executor := newServices(store, &stubStage{
		name: "downloading",
		run: func(_ context.Context, _ *pipeline.State) error {
			<-release
			return nil
		},
	})

	id, err := submitter.Submit(context.Background(), jobs.Input{SourceURL: "https://example.com/v"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	// Status right after submit is queued or running, never not-found.
	view, err := query.GetStatus(context.Background(), id)
	require.NoError(t, err)
	assert.Contains(t, []jobs.Status{jobs.StatusQueued, jobs.StatusRunning}, view.Status)

	close(release)
	executor.Wait()
}

func TestQueryUnknownJob(t *testing.T) {
	store := jobs.NewMemoryStore()
	_, query, _ := newServices(store)

	_, err := query.GetStatus(context.Background(), "no-such-job")
	assert.ErrorIs(t, err, jobs.ErrNotFound)

	_, err = query.GetResult(context.Background(), "no-such-job")
	assert.ErrorIs(t, err, jobs.ErrNotFound)
}

func TestSuccessfulPipelineScenario(t *testing.T) {
	store := jobs.NewMemoryStore()
	submitter, query, executor := newServices(store,
		&stubStage{name: "downloading", run: func(_ context.Context, st *pipeline.State) error {
			st.Artifact = "/tmp/ok-video.mp4"
			return nil
		}},
		&stubStage{name: "transcribing", run: func(_ context.Context, st *pipeline.State) error {
			st.Transcript = "hello world"
			return nil
		}},
		&stubStage{name: "summarizing", run: func(_ context.Context, st *pipeline.State) error {
			st.Summary = map[string]any{"title": "Hello"}
			return nil
		}},
	)

	id, err := submitter.Submit(context.Background(), jobs.Input{SourceURL: "ok-video"})
	require.NoError(t, err)
	executor.Wait()

	view, err := query.GetStatus(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusCompleted, view.Status)
	assert.Nil(t, view.Progress)

	result, err := query.GetResult(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "hello world", result.Transcription)
	assert.Equal(t, "Hello", result.Summary["title"])

	// Terminal reads are idempotent.
	again, err := query.GetResult(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, result, again)
}

func TestFailedPipelineScenario(t *testing.T) {
	store := jobs.NewMemoryStore()
	stage3Ran := false
	submitter, query, executor := newServices(store,
		&stubStage{name: "downloading"},
		&stubStage{name: "transcribing", run: func(_ context.Context, _ *pipeline.State) error {
			return errors.New("network timeout")
		}},
		&stubStage{name: "summarizing", run: func(_ context.Context, _ *pipeline.State) error {
			stage3Ran = true
			return nil
		}},
	)

	id, err := submitter.Submit(context.Background(), jobs.Input{SourceURL: "bad-video"})
	require.NoError(t, err)
	executor.Wait()

	view, err := query.GetStatus(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusFailed, view.Status)
	assert.Contains(t, view.Error, "network timeout")
	assert.False(t, stage3Ran)

	_, err = query.GetResult(context.Background(), id)
	var notReady *NotReadyError
	require.ErrorAs(t, err, &notReady)
	assert.Equal(t, jobs.StatusFailed, notReady.Status)
}

func TestResultBeforeCompletion(t *testing.T) {
	store := jobs.NewMemoryStore()
	release := make(chan struct{})
	submitter, query, executor := newServices(store, &stubStage{
		name: "downloading",
		run: func(_ context.Context, _ *pipeline.State) error {
			<-release
			return nil
		},
	})

	id, err := submitter.Submit(context.Background(), jobs.Input{SourceURL: "slow-video"})
	require.NoError(t, err)

	_, err = query.GetResult(context.Background(), id)
	var notReady *NotReadyError
	require.ErrorAs(t, err, &notReady)
	assert.Contains(t, []jobs.Status{jobs.StatusQueued, jobs.StatusRunning}, notReady.Status)

	close(release)
	executor.Wait()
}

func TestJobsRunIndependently(t *testing.T) {
	store := jobs.NewMemoryStore()
	releaseA := make(chan struct{})
	started := make(chan string, 2)

	submitter, query, executor := newServices(store, &stubStage{
		name: "downloading",
		run: func(_ context.Context, st *pipeline.State) error {
			started <- st.JobID
			if st.Input.SourceURL == "slow" {
				<-releaseA
			}
			return nil
		},
	})

	idA, err := submitter.Submit(context.Background(), jobs.Input{SourceURL: "slow"})
	require.NoError(t, err)
	idB, err := submitter.Submit(context.Background(), jobs.Input{SourceURL: "fast"})
	require.NoError(t, err)

	// Job B must reach its terminal state while job A is still blocked.
	require.Eventually(t, func() bool {
		view, err := query.GetStatus(context.Background(), idB)
		return err == nil && view.Status == jobs.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	view, err := query.GetStatus(context.Background(), idA)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusRunning, view.Status)

	close(releaseA)
	executor.Wait()
}

func TestProgressIsMonotonic(t *testing.T) {
	store := jobs.NewMemoryStore()
	stepGate := make(chan struct{}, 3)

	submitter, query, executor := newServices(store,
		&stubStage{name: "one", run: func(_ context.Context, _ *pipeline.State) error { <-stepGate; return nil }},
		&stubStage{name: "two", run: func(_ context.Context, _ *pipeline.State) error { <-stepGate; return nil }},
		&stubStage{name: "three", run: func(_ context.Context, _ *pipeline.State) error { <-stepGate; return nil }},
	)

	id, err := submitter.Submit(context.Background(), jobs.Input{SourceURL: "stepped"})
	require.NoError(t, err)

	lastStep := 0
	for i := 0; i < 3; i++ {
		require.Eventually(t, func() bool {
			view, err := query.GetStatus(context.Background(), id)
			if err != nil || view.Progress == nil {
				return false
			}
			return view.Progress.Step == i+1
		}, 2*time.Second, 5*time.Millisecond)

		view, err := query.GetStatus(context.Background(), id)
		require.NoError(t, err)
		require.NotNil(t, view.Progress)
		assert.GreaterOrEqual(t, view.Progress.Step, lastStep)
		assert.Equal(t, 3, view.Progress.Total)
		lastStep = view.Progress.Step

		stepGate <- struct{}{}
	}

	executor.Wait()
	view, err := query.GetStatus(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusCompleted, view.Status)
}
