package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/clipsight-be/internal/jobs"
	"github.com/cuongbtq/clipsight-be/shared/rabbitmq"
)

// JobEvent is the message published when a job reaches a terminal state.
type JobEvent struct {
	Event     string      `json:"event"`
	JobID     string      `json:"job_id"`
	Status    jobs.Status `json:"status"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Publisher emits job lifecycle events to RabbitMQ for downstream consumers
// (e.g. a notification service or an analytics feed).
type Publisher struct {
	client *rabbitmq.Client
	logger *slog.Logger
}

// NewPublisher creates a publisher over an established RabbitMQ client.
func NewPublisher(client *rabbitmq.Client, logger *slog.Logger) *Publisher {
	return &Publisher{
		client: client,
		logger: logger,
	}
}

// PublishJobEvent publishes a terminal-state event for the job.
func (p *Publisher) PublishJobEvent(ctx context.Context, event string, job *jobs.Job) error {
	msg := JobEvent{
		Event:     event,
		JobID:     job.ID,
		Status:    job.Status,
		Error:     job.Error,
		Timestamp: time.Now().UTC(),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode job event: %w", err)
	}

	if err := p.client.Publish(ctx, body, "application/json"); err != nil {
		return fmt.Errorf("failed to publish job event: %w", err)
	}

	p.logger.Debug("Job event published",
		slog.String("event", event),
		slog.String("job_id", job.ID),
	)
	return nil
}
