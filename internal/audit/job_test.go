package audit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zamcdf/cdf-portal/internal/audit"
)

type stubPersister struct {
	events []audit.Event
	err    error
}

func (s *stubPersister) Insert(_ context.Context, event audit.Event) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func TestJobHandlePersists(t *testing.T) {
	persister := &stubPersister{}
	job := audit.NewJob(persister, nil)

	task, err := audit.NewTask(audit.Event{
		ID:          "evt-1",
		PrincipalID: "u-1",
		Action:      "projects.report.view",
		Decision:    "granted",
		OccurredAt:  time.Now().UTC(),
	})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Len(t, persister.events, 1)
	assert.Equal(t, "evt-1", persister.events[0].ID)
}

func TestJobHandleSkipsMalformedPayload(t *testing.T) {
	persister := &stubPersister{}
	job := audit.NewJob(persister, nil)

	task := asynq.NewTask(audit.TaskTypeRecord, []byte("{not json"))
	err := job.Handle(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Empty(t, persister.events)
}

func TestJobHandleReturnsPersistErrorForRetry(t *testing.T) {
	dbErr := errors.New("connection reset")
	job := audit.NewJob(&stubPersister{err: dbErr}, nil)

	task, err := audit.NewTask(audit.Event{ID: "evt-1"})
	require.NoError(t, err)

	err = job.Handle(context.Background(), task)
	assert.ErrorIs(t, err, dbErr)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}
