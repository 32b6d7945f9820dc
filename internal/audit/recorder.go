package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/zamcdf/cdf-portal/internal/authz"
	"github.com/zamcdf/cdf-portal/internal/observability"
)

// Enqueuer is the slice of the asynq client the recorder needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Recorder implements authz.AuditSink by enqueueing events for the worker.
// Enqueue failures are logged and counted but never surfaced to the caller;
// the decision already computed stands.
type Recorder struct {
	enqueuer Enqueuer
	logger   *slog.Logger
	metrics  *observability.Metrics
	clock    func() time.Time
}

// NewRecorder builds a recorder over the given asynq client.
func NewRecorder(enqueuer Enqueuer, logger *slog.Logger, metrics *observability.Metrics) *Recorder {
	return &Recorder{
		enqueuer: enqueuer,
		logger:   logger,
		metrics:  metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Record enqueues one audit event. Best effort.
func (r *Recorder) Record(ctx context.Context, principalID, operation, resourceID string, decision authz.Decision) {
	if r == nil || r.enqueuer == nil {
		return
	}
	outcome := "denied"
	if decision.Granted {
		outcome = "granted"
	}
	event := Event{
		ID:          uuid.NewString(),
		PrincipalID: principalID,
		Action:      operation,
		ResourceID:  resourceID,
		Decision:    outcome,
		Reason:      decision.Reason,
		Scope:       decision.EffectiveScope.NormalizedScope,
		OccurredAt:  r.clock(),
	}
	task, err := NewTask(event)
	if err != nil {
		r.drop(event, err)
		return
	}
	if _, err := r.enqueuer.EnqueueContext(ctx, task); err != nil {
		r.drop(event, err)
	}
}

func (r *Recorder) drop(event Event, err error) {
	if r.metrics != nil {
		r.metrics.AuditDropped()
	}
	if r.logger != nil {
		r.logger.Error("audit event dropped",
			slog.String("principal", event.PrincipalID),
			slog.String("action", event.Action),
			slog.Any("error", err))
	}
}
