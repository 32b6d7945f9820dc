// Package audit ships authorization outcomes to the audit trail. Events are
// enqueued fire-and-forget and persisted asynchronously by the worker.
package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// TaskTypeRecord is the asynq task type carrying one audit event.
const TaskTypeRecord = "audit:record"

// Queue is the dedicated asynq queue for audit traffic.
const Queue = "audit"

// Event is one audit record: who attempted what, against which resource, and
// how the engine decided.
type Event struct {
	ID          string    `json:"id"`
	PrincipalID string    `json:"principal_id"`
	Action      string    `json:"action"`
	ResourceID  string    `json:"resource_id"`
	Decision    string    `json:"decision"`
	Reason      string    `json:"reason"`
	Scope       string    `json:"scope,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NewTask wraps an event into an asynq task.
func NewTask(event Event) (*asynq.Task, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("audit: marshal event: %w", err)
	}
	return asynq.NewTask(TaskTypeRecord, payload, asynq.Queue(Queue), asynq.MaxRetry(5)), nil
}
