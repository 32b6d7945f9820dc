package authz

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/zamcdf/cdf-portal/internal/geo"
)

// Request carries the scope signals extracted from one inbound request.
// Extraction precedence follows the original guard order: path parameter,
// query parameter, body field, then the constituency header.
type Request struct {
	PathScope   string
	QueryScope  string
	BodyScope   string
	HeaderScope string
	// LevelHint disambiguates references shared across levels; LevelAny when
	// the caller supplied none.
	LevelHint geo.Level
}

func (r Request) explicitRef() string {
	for _, candidate := range []string{r.PathScope, r.QueryScope, r.BodyScope, r.HeaderScope} {
		if s := strings.TrimSpace(candidate); s != "" {
			return s
		}
	}
	return ""
}

var nationalRef = regexp.MustCompile(`(?i)^national(\s*\(all\))?$`)

// ScopeResolver derives a normalized ScopeContext from request signals and the
// principal's verified home claim.
type ScopeResolver struct {
	geo *geo.Index
}

// NewScopeResolver builds a resolver over the loaded geography index.
func NewScopeResolver(index *geo.Index) *ScopeResolver {
	return &ScopeResolver{geo: index}
}

// Resolve applies the precedence order: explicit reference, principal home
// claim, unrestricted default. An explicit reference that does not resolve is
// an error wrapping ErrInvalidScopeReference; it is never treated as "no
// scope". Administrative roles at or above the requested level bypass
// narrowing entirely.
func (r *ScopeResolver) Resolve(req Request, principal *Principal) (ScopeContext, error) {
	if raw := req.explicitRef(); raw != "" {
		return r.resolveExplicit(raw, req.LevelHint, principal)
	}
	if principal != nil && principal.HomeScope != "" {
		return r.resolveHomeClaim(principal)
	}
	return ScopeContext{
		Level:           geo.LevelNational,
		NormalizedScope: NationalScope,
		Source:          SourceDefault,
	}, nil
}

func (r *ScopeResolver) resolveExplicit(raw string, hint geo.Level, principal *Principal) (ScopeContext, error) {
	if nationalRef.MatchString(raw) {
		return ScopeContext{
			Level:           geo.LevelNational,
			NormalizedScope: NationalScope,
			RawScope:        raw,
			Source:          SourceExplicitParam,
		}, nil
	}
	res, err := r.geo.Resolve(raw, hint)
	if err != nil {
		if errors.Is(err, geo.ErrNotFound) {
			return ScopeContext{}, fmt.Errorf("%w: %q", ErrInvalidScopeReference, raw)
		}
		return ScopeContext{}, err
	}
	if r.adminOverride(principal, res.Node.Level) {
		return ScopeContext{
			Level:           geo.LevelNational,
			NormalizedScope: NationalScope,
			RawScope:        raw,
			Source:          SourceExplicitParam,
			Overridden:      true,
		}, nil
	}
	return ScopeContext{
		Level:           res.Node.Level,
		TargetNodeID:    res.Node.ID,
		NormalizedScope: res.Node.DisplayName(),
		RawScope:        raw,
		Source:          SourceExplicitParam,
		Ambiguous:       res.Ambiguous,
	}, nil
}

func (r *ScopeResolver) resolveHomeClaim(principal *Principal) (ScopeContext, error) {
	node, ok := r.geo.Get(principal.HomeScope)
	if !ok {
		// Home claims come from the identity provider, not the caller; an
		// unresolvable claim still must not widen access.
		return ScopeContext{}, fmt.Errorf("%w: home scope of principal %s", ErrInvalidScopeReference, principal.ID)
	}
	if r.adminOverride(principal, node.Level) {
		return ScopeContext{
			Level:           geo.LevelNational,
			NormalizedScope: NationalScope,
			Source:          SourcePrincipalClaim,
			Overridden:      true,
		}, nil
	}
	return ScopeContext{
		Level:           node.Level,
		TargetNodeID:    node.ID,
		NormalizedScope: node.DisplayName(),
		Source:          SourcePrincipalClaim,
	}, nil
}

// adminOverride reports whether the principal's effective permissions carry an
// administrative role whose tier sits at or above the requested level.
func (r *ScopeResolver) adminOverride(principal *Principal, requested geo.Level) bool {
	switch {
	case principal.HasEffective(RoleSuperAdmin):
		return true
	case principal.HasEffective(RoleProvincialAdmin):
		return !geo.LevelProvince.NarrowerThan(requested)
	case principal.HasEffective(RoleDistrictAdmin):
		return !geo.LevelDistrict.NarrowerThan(requested)
	}
	return false
}
