package audit

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

// Persister stores one event durably.
type Persister interface {
	Insert(ctx context.Context, event Event) error
}

// Job consumes audit tasks from the queue and persists them.
type Job struct {
	writer Persister
	logger *slog.Logger
}

// NewJob builds the worker-side handler.
func NewJob(writer Persister, logger *slog.Logger) *Job {
	return &Job{writer: writer, logger: logger}
}

// Handle processes one audit task. Malformed payloads are dropped without
// retry; persistence errors are returned so asynq retries them.
func (j *Job) Handle(ctx context.Context, task *asynq.Task) error {
	var event Event
	if err := json.Unmarshal(task.Payload(), &event); err != nil {
		if j.logger != nil {
			j.logger.Error("audit payload malformed", slog.Any("error", err))
		}
		return asynq.SkipRetry
	}
	if err := j.writer.Insert(ctx, event); err != nil {
		if j.logger != nil {
			j.logger.Error("audit persist failed",
				slog.String("event_id", event.ID),
				slog.Any("error", err))
		}
		return err
	}
	return nil
}
