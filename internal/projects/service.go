package projects

import (
	"context"
	"fmt"

	"github.com/zamcdf/cdf-portal/internal/authz"
	"github.com/zamcdf/cdf-portal/internal/geo"
	"github.com/zamcdf/cdf-portal/internal/shared"
)

// Service runs the authorized, scope-filtered status report.
type Service struct {
	repo   Repository
	engine *authz.Engine
}

// NewService constructs a Service.
func NewService(repo Repository, engine *authz.Engine) *Service {
	return &Service{repo: repo, engine: engine}
}

// StatusReport authorizes the operation, compiles the granted scope into a
// predicate and lists the matching projects. A denied decision is returned
// as-is so the handler can translate it; the repository is never touched.
func (s *Service) StatusReport(ctx context.Context, principal *authz.Principal, request authz.Request, page shared.Pagination) (*Report, authz.Decision, error) {
	decision := s.engine.Authorize(ctx, principal, OpReportView, "", request)
	if !decision.Granted {
		return nil, decision, nil
	}

	predicate, err := s.engine.CompileFilter(decision.EffectiveScope, authz.GeoPath{
		Level:  geo.LevelWard,
		Column: "p.ward_id",
	})
	if err != nil {
		return nil, decision, fmt.Errorf("projects: compile filter: %w", err)
	}

	items, total, err := s.repo.List(ctx, predicate, page)
	if err != nil {
		return nil, decision, err
	}
	return &Report{
		Items:      items,
		Total:      total,
		Scope:      decision.EffectiveScope.NormalizedScope,
		Pagination: shared.NewPagination(page.Page, page.PerPage, total),
	}, decision, nil
}
