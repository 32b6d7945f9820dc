package authz_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zamcdf/cdf-portal/internal/authz"
	"github.com/zamcdf/cdf-portal/internal/geo"
)

type recordedAudit struct {
	principalID string
	operation   string
	resourceID  string
	decision    authz.Decision
}

type stubSink struct {
	mu      sync.Mutex
	records []recordedAudit
}

func (s *stubSink) Record(_ context.Context, principalID, operation, resourceID string, decision authz.Decision) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, recordedAudit{principalID, operation, resourceID, decision})
}

type stubObserver struct {
	mu       sync.Mutex
	outcomes map[string]string
}

func (s *stubObserver) ObserveDecision(operation, outcome string, _ time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcomes == nil {
		s.outcomes = map[string]string{}
	}
	s.outcomes[operation] = outcome
}

func testSnapshot(t *testing.T, requirements map[string]authz.Requirement) *authz.Snapshot {
	t.Helper()
	resolver := defaultResolver(t)
	routes, err := authz.NewRouteTable(resolver, requirements)
	require.NoError(t, err)
	return authz.NewSnapshot(testIndex(t), resolver, routes, nil)
}

func TestEngineAuthorizeEmitsAuditAndMetrics(t *testing.T) {
	sink := &stubSink{}
	observer := &stubObserver{}
	engine := authz.NewEngine(testSnapshot(t, map[string]authz.Requirement{
		"projects.report.view": {
			RequiredRoles:  []authz.Role{authz.RolePLGO},
			ScopeSensitive: true,
		},
	}), nil, authz.WithAuditSink(sink), authz.WithObserver(observer))

	principal := testPrincipal(t, "u-aud", "", authz.RoleAuditor)
	dec := engine.Authorize(context.Background(), principal, "projects.report.view", "proj-1", authz.Request{})
	require.False(t, dec.Granted)

	require.Len(t, sink.records, 1)
	assert.Equal(t, "u-aud", sink.records[0].principalID)
	assert.Equal(t, "projects.report.view", sink.records[0].operation)
	assert.Equal(t, "proj-1", sink.records[0].resourceID)
	assert.False(t, sink.records[0].decision.Granted)

	assert.Equal(t, "forbidden-role", observer.outcomes["projects.report.view"])
}

func TestEngineAuthorizeUnauthenticatedAuditsAnonymously(t *testing.T) {
	sink := &stubSink{}
	engine := authz.NewEngine(testSnapshot(t, nil), nil, authz.WithAuditSink(sink))

	dec := engine.Authorize(context.Background(), nil, "projects.report.view", "", authz.Request{})
	require.False(t, dec.Granted)
	assert.ErrorIs(t, dec.Err, authz.ErrUnauthenticated)

	require.Len(t, sink.records, 1)
	assert.Empty(t, sink.records[0].principalID)
}

func TestEngineUnknownOperationIsAuthOnly(t *testing.T) {
	engine := authz.NewEngine(testSnapshot(t, nil), nil)
	principal := testPrincipal(t, "u-app", "", authz.RoleApplicant)

	dec := engine.Authorize(context.Background(), principal, "no.such.operation", "", authz.Request{})
	assert.True(t, dec.Granted)
}

func TestEngineReloadSwapsHierarchyAtomically(t *testing.T) {
	engine := authz.NewEngine(testSnapshot(t, nil), nil)
	principal := testPrincipal(t, "u-cc", "c-kbw", authz.RoleConstituencyCoordinator)
	requirementOp := "projects.report.view"

	// First snapshot has no requirement for the operation: auth only.
	dec := engine.Authorize(context.Background(), principal, requirementOp, "", authz.Request{})
	require.True(t, dec.Granted)

	engine.Reload(testSnapshot(t, map[string]authz.Requirement{
		requirementOp: {RequiredRoles: []authz.Role{authz.RoleFinanceOfficer}},
	}))

	dec = engine.Authorize(context.Background(), principal, requirementOp, "", authz.Request{})
	require.False(t, dec.Granted)
	assert.ErrorIs(t, dec.Err, authz.ErrForbiddenRole)
}

func TestEngineReloadIsSafeUnderConcurrentReads(t *testing.T) {
	engine := authz.NewEngine(testSnapshot(t, nil), nil)
	principal := testPrincipal(t, "u-cc", "c-kbw", authz.RoleConstituencyCoordinator)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				dec := engine.Authorize(context.Background(), principal, "anything", "", authz.Request{})
				// Every read observes a complete snapshot, so the outcome is
				// always a clean grant regardless of concurrent reloads.
				assert.True(t, dec.Granted)
			}
		}()
	}
	for i := 0; i < 50; i++ {
		engine.Reload(testSnapshot(t, nil))
	}
	close(stop)
	wg.Wait()
}

func TestEngineEffectivePermissions(t *testing.T) {
	engine := authz.NewEngine(testSnapshot(t, nil), nil)
	effective := engine.EffectivePermissions([]authz.Role{authz.RoleWDCSecretary})
	assert.Contains(t, effective, authz.RoleWDCMember)
}

func TestEngineCompileFilter(t *testing.T) {
	engine := authz.NewEngine(testSnapshot(t, nil), nil)

	pred, err := engine.CompileFilter(authz.ScopeContext{
		Level:        geo.LevelProvince,
		TargetNodeID: "p-lsk",
	}, authz.GeoPath{Level: geo.LevelWard, Column: "p.ward_id"})
	require.NoError(t, err)
	assert.True(t, pred.MatchesID("w-kam"))
	assert.False(t, pred.MatchesID("w-kan"))
}

func TestRouteTableRejectsUnknownRole(t *testing.T) {
	_, err := authz.NewRouteTable(defaultResolver(t), map[string]authz.Requirement{
		"ops.misconfigured": {RequiredRoles: []authz.Role{"typo_role"}},
	})
	assert.ErrorIs(t, err, authz.ErrInvariant)
}

func TestRouteTableLookup(t *testing.T) {
	table, err := authz.NewRouteTable(defaultResolver(t), map[string]authz.Requirement{
		"projects.report.view": {RequiredRoles: []authz.Role{authz.RolePLGO}, ScopeSensitive: true},
	})
	require.NoError(t, err)

	req, ok := table.Lookup("projects.report.view")
	assert.True(t, ok)
	assert.True(t, req.ScopeSensitive)

	req, ok = table.Lookup("unlisted")
	assert.False(t, ok)
	assert.Zero(t, req)

	assert.Equal(t, []string{"projects.report.view"}, table.Operations())
}
