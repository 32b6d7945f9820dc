package authz

import "github.com/zamcdf/cdf-portal/internal/geo"

// Source records where a resolved scope came from.
type Source string

const (
	// SourceExplicitParam means the caller supplied a geography reference.
	SourceExplicitParam Source = "explicit-param"
	// SourcePrincipalClaim means the scope came from the verified home claim.
	SourcePrincipalClaim Source = "principal-claim"
	// SourceDefault means no narrowing was requested or implied.
	SourceDefault Source = "default"
)

// NationalScope is the normalized display form of an unrestricted scope.
const NationalScope = "National (All)"

// ScopeContext is the normalized geographic scope of one request. It is
// created once by the scope resolver and consumed read-only downstream.
type ScopeContext struct {
	Level           geo.Level
	TargetNodeID    string
	NormalizedScope string
	RawScope        string
	Source          Source
	// Ambiguous is set when the raw reference matched several levels and the
	// narrowest one was chosen.
	Ambiguous bool
	// Overridden is set when an administrative role bypassed narrowing.
	Overridden bool
}

// Unrestricted reports whether the context applies no geographic narrowing.
func (s ScopeContext) Unrestricted() bool {
	return s.TargetNodeID == ""
}

// Principal is the authenticated actor, built once from verified claims and
// immutable for the lifetime of the request.
type Principal struct {
	ID        string
	Email     string
	Roles     []Role
	Effective []Role
	HomeScope string
	HomeLevel geo.Level
}

// HasEffective reports whether the principal's effective set contains role.
func (p *Principal) HasEffective(role Role) bool {
	if p == nil {
		return false
	}
	for _, held := range p.Effective {
		if held == role {
			return true
		}
	}
	return false
}

// Decision is the terminal outcome of one authorization evaluation. It is
// never mutated after creation.
type Decision struct {
	Granted        bool
	Reason         string
	EffectiveScope ScopeContext
	// Err carries the taxonomy sentinel (ErrUnauthenticated, ErrForbiddenRole,
	// ErrForbiddenScope or ErrInvalidScopeReference) when denied.
	Err error
}

func granted(reason string, scope ScopeContext) Decision {
	return Decision{Granted: true, Reason: reason, EffectiveScope: scope}
}

func denied(err error, reason string) Decision {
	return Decision{Reason: reason, Err: err}
}
