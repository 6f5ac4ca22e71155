package jobs

import "errors"

var (
	// ErrNotFound is returned when a job id is unknown or its record expired.
	ErrNotFound = errors.New("job not found")

	// ErrAlreadyExists is returned when creating a job whose id is already present.
	ErrAlreadyExists = errors.New("job already exists")

	// ErrTerminalState is returned when mutating a completed or failed job.
	ErrTerminalState = errors.New("job is in a terminal state")
)
