package audit

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// Writer persists audit events into the audit_logs table.
type Writer struct {
	pool *pgxpool.Pool
}

// NewWriter returns a Writer over the given pool.
func NewWriter(pool *pgxpool.Pool) *Writer {
	return &Writer{pool: pool}
}

// Insert stores one event. A redelivered event with a known id is treated as
// already written.
func (w *Writer) Insert(ctx context.Context, event Event) error {
	if w == nil || w.pool == nil {
		return errors.New("audit: writer not initialised")
	}
	if event.ID == "" || event.Action == "" {
		return errors.New("audit: event requires id and action")
	}
	_, err := w.pool.Exec(ctx, `
		INSERT INTO audit_logs (id, principal_id, action, resource_id, decision, reason, scope, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		event.ID, event.PrincipalID, event.Action, event.ResourceID,
		event.Decision, event.Reason, event.Scope, event.OccurredAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil
		}
		return fmt.Errorf("audit: insert event %s: %w", event.ID, err)
	}
	return nil
}
