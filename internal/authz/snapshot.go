package authz

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/zamcdf/cdf-portal/internal/geo"
)

// Snapshot bundles the immutable reference data one evaluation runs against:
// the geography tree, the closed role hierarchy and the route table. A
// snapshot is never mutated after construction.
type Snapshot struct {
	Geo      *geo.Index
	Roles    *RoleResolver
	Routes   *RouteTable
	pipeline *Pipeline
	compiler *FilterCompiler
}

// NewSnapshot assembles a snapshot from loaded reference data.
func NewSnapshot(index *geo.Index, roles *RoleResolver, routes *RouteTable, logger *slog.Logger) *Snapshot {
	return &Snapshot{
		Geo:      index,
		Roles:    roles,
		Routes:   routes,
		pipeline: NewPipeline(index, roles, logger),
		compiler: NewFilterCompiler(index),
	}
}

// AuditSink receives the outcome of every evaluation. Implementations are
// best-effort: a sink failure must not alter the decision already computed.
type AuditSink interface {
	Record(ctx context.Context, principalID, operation, resourceID string, decision Decision)
}

// DecisionObserver receives evaluation metrics.
type DecisionObserver interface {
	ObserveDecision(operation, outcome string, elapsed time.Duration)
}

// Engine is the single entry point callers invoke before executing business
// logic. Reference data lives behind an atomically swapped snapshot, so reads
// are lock-free and a reload can never expose a half-updated hierarchy.
type Engine struct {
	snapshot atomic.Pointer[Snapshot]
	logger   *slog.Logger
	audit    AuditSink
	observer DecisionObserver
}

// EngineOption configures optional engine collaborators.
type EngineOption func(*Engine)

// WithAuditSink attaches a best-effort audit sink.
func WithAuditSink(sink AuditSink) EngineOption {
	return func(e *Engine) { e.audit = sink }
}

// WithObserver attaches a decision metrics observer.
func WithObserver(obs DecisionObserver) EngineOption {
	return func(e *Engine) { e.observer = obs }
}

// NewEngine publishes the initial snapshot.
func NewEngine(snap *Snapshot, logger *slog.Logger, opts ...EngineOption) *Engine {
	e := &Engine{logger: logger}
	e.snapshot.Store(snap)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Snapshot returns the currently published reference data.
func (e *Engine) Snapshot() *Snapshot {
	return e.snapshot.Load()
}

// Reload atomically publishes a new snapshot. Readers observe either the old
// or the new reference data in full, never a mix.
func (e *Engine) Reload(snap *Snapshot) {
	e.snapshot.Store(snap)
	if e.logger != nil {
		e.logger.Info("authorization snapshot reloaded",
			slog.Int("geo_nodes", snap.Geo.Len()),
			slog.Int("operations", len(snap.Routes.Operations())))
	}
}

// EffectivePermissions computes the principal's permission closure against the
// current snapshot.
func (e *Engine) EffectivePermissions(roles []Role) []Role {
	return e.Snapshot().Roles.EffectivePermissions(roles)
}

// Authorize evaluates the named operation for the given principal and request
// signals, emits the audit record and returns the terminal decision.
func (e *Engine) Authorize(ctx context.Context, principal *Principal, operation, resourceID string, request Request) Decision {
	snap := e.Snapshot()
	requirement, _ := snap.Routes.Lookup(operation)
	start := time.Now()
	decision := snap.pipeline.Authorize(principal, requirement, request)
	elapsed := time.Since(start)

	if e.observer != nil {
		e.observer.ObserveDecision(operation, decisionOutcome(decision), elapsed)
	}
	if e.audit != nil {
		principalID := ""
		if principal != nil {
			principalID = principal.ID
		}
		e.audit.Record(ctx, principalID, operation, resourceID, decision)
	}
	return decision
}

// CompileFilter turns a granted scope into the predicate list operations must
// honor.
func (e *Engine) CompileFilter(scope ScopeContext, path GeoPath) (Predicate, error) {
	return e.Snapshot().compiler.Compile(scope, path)
}

func decisionOutcome(d Decision) string {
	switch {
	case d.Granted:
		return "granted"
	case d.Err == nil:
		return "denied"
	case errors.Is(d.Err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(d.Err, ErrForbiddenRole):
		return "forbidden-role"
	case errors.Is(d.Err, ErrForbiddenScope):
		return "forbidden-scope"
	case errors.Is(d.Err, ErrInvalidScopeReference):
		return "invalid-scope"
	default:
		return "denied"
	}
}
