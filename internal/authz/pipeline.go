package authz

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/zamcdf/cdf-portal/internal/geo"
)

// Pipeline evaluates the ordered decision stages authenticate, role check and
// scope check. Each stage is terminal on failure: a later stage never runs
// after an earlier one denies, so authentication failures reveal nothing about
// roles and role failures reveal nothing about geography.
type Pipeline struct {
	geo    *geo.Index
	roles  *RoleResolver
	scopes *ScopeResolver
	logger *slog.Logger
}

// NewPipeline wires the pipeline over the loaded reference data.
func NewPipeline(index *geo.Index, roles *RoleResolver, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		geo:    index,
		roles:  roles,
		scopes: NewScopeResolver(index),
		logger: logger,
	}
}

// evaluation carries request state across the stages of one Authorize call.
type evaluation struct {
	principal   *Principal
	requirement Requirement
	request     Request
	scope       ScopeContext
}

type stage func(*evaluation) *Decision

// Authorize runs the stages in order and produces a single immutable
// Decision. Denials are returned as values; this never panics.
func (p *Pipeline) Authorize(principal *Principal, requirement Requirement, request Request) Decision {
	eval := &evaluation{principal: principal, requirement: requirement, request: request}
	for _, s := range []stage{p.authenticate, p.roleCheck, p.resolveScope, p.scopeCheck} {
		if dec := s(eval); dec != nil {
			return *dec
		}
	}
	reason := "granted"
	if eval.principal.HasEffective(RoleSuperAdmin) || eval.scope.Overridden {
		reason = "admin override"
	}
	return granted(reason, eval.scope)
}

// authenticate requires a verified principal. The denial message is generic
// so unauthenticated callers learn nothing about roles or geography.
func (p *Pipeline) authenticate(eval *evaluation) *Decision {
	if eval.principal == nil || eval.principal.ID == "" {
		dec := denied(ErrUnauthenticated, "authentication required")
		return &dec
	}
	return nil
}

// roleCheck requires the effective set to satisfy the route requirement. The
// denial enumerates required versus held roles for supportability.
func (p *Pipeline) roleCheck(eval *evaluation) *Decision {
	if p.roles.Satisfies(eval.principal.Effective, eval.requirement.RequiredRoles) {
		return nil
	}
	reason := fmt.Sprintf("Insufficient role. Required: %s. Your roles: %s",
		RoleNames(eval.requirement.RequiredRoles), RoleNames(eval.principal.Roles))
	dec := denied(ErrForbiddenRole, reason)
	return &dec
}

// resolveScope derives the request's scope context. An unresolvable explicit
// reference denies here rather than falling through to an unrestricted scope.
func (p *Pipeline) resolveScope(eval *evaluation) *Decision {
	scope, err := p.scopes.Resolve(eval.request, eval.principal)
	if err != nil {
		if p.logger != nil {
			p.logger.Warn("scope resolution failed",
				slog.String("principal", eval.principal.ID),
				slog.Any("error", err))
		}
		if errors.Is(err, ErrInvalidScopeReference) {
			dec := denied(err, "the requested scope does not resolve")
			return &dec
		}
		dec := denied(ErrForbiddenScope, "scope mismatch")
		return &dec
	}
	eval.scope = scope
	return nil
}

// scopeCheck requires, for scope-sensitive operations, that the resolved
// target sits within the principal's home subtree unless an administrative
// override applies. A scope-sensitive operation with no narrowing at all is
// denied: list endpoints must not fail open. Denial messages never name the
// geography node that was checked.
func (p *Pipeline) scopeCheck(eval *evaluation) *Decision {
	if !eval.requirement.ScopeSensitive {
		return nil
	}
	if eval.principal.HasEffective(RoleSuperAdmin) || eval.scope.Overridden {
		return nil
	}
	if eval.scope.Unrestricted() {
		dec := denied(ErrForbiddenScope, "scope mismatch")
		return &dec
	}
	if eval.scope.Source == SourcePrincipalClaim {
		// The scope is the principal's own home subtree.
		return nil
	}
	home, ok := p.geo.Get(eval.principal.HomeScope)
	if !ok {
		dec := denied(ErrForbiddenScope, "scope mismatch")
		return &dec
	}
	target, ok := p.geo.Get(eval.scope.TargetNodeID)
	if !ok {
		dec := denied(ErrForbiddenScope, "scope mismatch")
		return &dec
	}
	if !p.geo.Covers(home, target) {
		if p.logger != nil {
			p.logger.Warn("scope check denied",
				slog.String("principal", eval.principal.ID),
				slog.String("home", home.ID),
				slog.String("target", target.ID))
		}
		dec := denied(ErrForbiddenScope, "scope mismatch")
		return &dec
	}
	return nil
}
