package service

import (
	"errors"
	"fmt"

	"github.com/cuongbtq/clipsight-be/internal/jobs"
)

// ErrInvalidRequest is returned for a submission missing its source URL.
// No job is created in that case.
var ErrInvalidRequest = errors.New("invalid request: missing source url")

// NotReadyError is returned when a result is requested before the job has
// completed. It carries the current status so the caller can keep polling.
type NotReadyError struct {
	Status jobs.Status
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("job not completed: status is %s", e.Status)
}
