package authz

import (
	"fmt"

	"github.com/zamcdf/cdf-portal/internal/geo"
)

// GeoPath describes how a resource's geography is reachable: the level of the
// identifier the resource carries directly, and the column holding it when the
// predicate is pushed into a storage query.
type GeoPath struct {
	Level  geo.Level
	Column string
}

// Predicate is the storage-agnostic comparison compiled from a granted scope.
// It can be pushed into a query (SQL) or applied to already-fetched rows
// (Matches). Evaluation is read-only and safe for concurrent use.
type Predicate struct {
	geo      *geo.Index
	targetID string
	// ids holds the permitted identifiers at the resource's anchor level.
	ids []string
	all bool
}

// FilterCompiler turns granted scope contexts into predicates. One compiler
// serves every consumer, replacing the per-service filter logic the portal
// used to scatter across documents, reports and legal services.
type FilterCompiler struct {
	geo *geo.Index
}

// NewFilterCompiler builds a compiler over the loaded geography index.
func NewFilterCompiler(index *geo.Index) *FilterCompiler {
	return &FilterCompiler{geo: index}
}

// Compile produces the predicate for a granted scope. A resource matches when
// its resolved ancestor chain contains the scope's target node, regardless of
// how many join hops are required to reach it. Resources anchored at a tier
// wider than the scope can never satisfy that condition and compile to a
// predicate matching nothing.
func (c *FilterCompiler) Compile(scope ScopeContext, path GeoPath) (Predicate, error) {
	if scope.Unrestricted() {
		return Predicate{geo: c.geo, all: true}, nil
	}
	target, ok := c.geo.Get(scope.TargetNodeID)
	if !ok {
		return Predicate{}, fmt.Errorf("%w: scope target %q", ErrInvalidScopeReference, scope.TargetNodeID)
	}
	if !path.Level.Valid() || path.Level == geo.LevelNational {
		return Predicate{}, fmt.Errorf("authz: geo path level %s cannot anchor a resource", path.Level)
	}
	pred := Predicate{geo: c.geo, targetID: target.ID}
	for _, n := range c.geo.DescendantsAtLevel(target, path.Level) {
		pred.ids = append(pred.ids, n.ID)
	}
	return pred, nil
}

// Unrestricted reports whether the predicate matches everything.
func (p Predicate) Unrestricted() bool {
	return p.all
}

// SQL renders the predicate as a WHERE fragment over the anchor column, with
// the permitted identifier set as a single positional array argument. argPos
// is the 1-based position the argument will occupy in the final query.
// Unrestricted predicates render as TRUE with no arguments; predicates that
// can match nothing render as FALSE.
func (p Predicate) SQL(column string, argPos int) (string, []any) {
	if p.all {
		return "TRUE", nil
	}
	if len(p.ids) == 0 {
		return "FALSE", nil
	}
	return fmt.Sprintf("%s = ANY($%d)", column, argPos), []any{p.ids}
}

// Matches evaluates the predicate against a single row's geography reference
// (an id or a name at any level). Intended for small, already-paginated result
// sets; unbounded collections must use SQL push-down instead. Unresolvable
// references never match.
func (p Predicate) Matches(ref string) bool {
	if p.all {
		return true
	}
	if p.targetID == "" {
		return false
	}
	res, err := p.geo.Resolve(ref, geo.LevelAny)
	if err != nil {
		return false
	}
	target, ok := p.geo.Get(p.targetID)
	if !ok {
		return false
	}
	return p.geo.Covers(target, res.Node)
}

// MatchesID evaluates the predicate against the resource's anchor identifier
// without a name lookup.
func (p Predicate) MatchesID(id string) bool {
	if p.all {
		return true
	}
	for _, allowed := range p.ids {
		if allowed == id {
			return true
		}
	}
	return false
}
