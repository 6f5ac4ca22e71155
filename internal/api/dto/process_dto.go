package dto

// ProcessRequest is the body of POST /api/v1/process.
type ProcessRequest struct {
	URL    string         `json:"url"`
	Schema map[string]any `json:"schema"`
	Prompt string         `json:"prompt"`
}

// ProcessResponse acknowledges an accepted submission.
type ProcessResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// StatusResponse is the body of GET /api/v1/status/:job_id.
type StatusResponse struct {
	JobID    string            `json:"job_id"`
	Status   string            `json:"status"`
	Progress *ProgressResponse `json:"progress,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// ProgressResponse reports pipeline position for a running job.
type ProgressResponse struct {
	Step  int    `json:"step"`
	Total int    `json:"total"`
	Stage string `json:"stage,omitempty"`
}

// ResultResponse is the body of GET /api/v1/result/:job_id for a completed job.
type ResultResponse struct {
	JobID  string         `json:"job_id"`
	Status string         `json:"status"`
	Result map[string]any `json:"result"`
}
