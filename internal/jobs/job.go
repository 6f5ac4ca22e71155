package jobs

import (
	"maps"
	"time"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Input is the caller-supplied request payload. It is captured at submission
// time and never mutated afterwards.
type Input struct {
	SourceURL string         `json:"source_url"`
	Schema    map[string]any `json:"schema,omitempty"`
	Prompt    string         `json:"prompt,omitempty"`
}

// Progress describes where a running job is in its pipeline.
type Progress struct {
	Step  int    `json:"step"`
	Total int    `json:"total"`
	Stage string `json:"stage,omitempty"`
}

// Result is the aggregated output of a completed pipeline.
type Result struct {
	Transcription string         `json:"transcription"`
	OCRText       string         `json:"ocr_text"`
	Summary       map[string]any `json:"summary,omitempty"`
}

// Job is one submitted processing request and its evolving state.
// Exactly one of Progress, Result, Error is populated, consistent with Status.
type Job struct {
	ID        string    `json:"job_id"`
	Input     Input     `json:"input"`
	Status    Status    `json:"status"`
	Progress  *Progress `json:"progress,omitempty"`
	Result    *Result   `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates a freshly queued job for the given input.
func New(id string, input Input) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:        id,
		Input:     input,
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MarkRunning transitions the job to running at the given pipeline position.
// Allowed from queued and running only.
func (j *Job) MarkRunning(step, total int, stage string) error {
	if j.Status.Terminal() {
		return ErrTerminalState
	}
	j.Status = StatusRunning
	j.Progress = &Progress{Step: step, Total: total, Stage: stage}
	j.Result = nil
	j.Error = ""
	j.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkCompleted transitions the job to its terminal completed state.
func (j *Job) MarkCompleted(result *Result) error {
	if j.Status.Terminal() {
		return ErrTerminalState
	}
	j.Status = StatusCompleted
	j.Result = result
	j.Progress = nil
	j.Error = ""
	j.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkFailed transitions the job to its terminal failed state.
func (j *Job) MarkFailed(message string) error {
	if j.Status.Terminal() {
		return ErrTerminalState
	}
	j.Status = StatusFailed
	j.Error = message
	j.Progress = nil
	j.Result = nil
	j.UpdatedAt = time.Now().UTC()
	return nil
}

// Clone returns an independent copy of the job. Nested schema and summary
// values are copied one level deep; they are written once and never mutated
// in place.
func (j *Job) Clone() *Job {
	c := *j
	if j.Input.Schema != nil {
		c.Input.Schema = maps.Clone(j.Input.Schema)
	}
	if j.Progress != nil {
		p := *j.Progress
		c.Progress = &p
	}
	if j.Result != nil {
		r := *j.Result
		if r.Summary != nil {
			r.Summary = maps.Clone(r.Summary)
		}
		c.Result = &r
	}
	return &c
}
