package authz

import (
	"fmt"
	"sort"
)

// Requirement is the static authorization configuration of one operation.
// Loaded at startup, never mutated at runtime.
type Requirement struct {
	RequiredRoles  []Role
	ScopeSensitive bool
}

// RouteTable maps operation identifiers to their requirements. It replaces the
// original runtime-reflected handler metadata with an explicit table validated
// once at startup.
type RouteTable struct {
	requirements map[string]Requirement
}

// NewRouteTable validates that every required role is known to the resolver.
// Unknown roles are a configuration error and must abort startup.
func NewRouteTable(resolver *RoleResolver, requirements map[string]Requirement) (*RouteTable, error) {
	ops := make([]string, 0, len(requirements))
	for op := range requirements {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	for _, op := range ops {
		for _, role := range requirements[op].RequiredRoles {
			if role == RoleSuperAdmin {
				continue
			}
			if !resolver.Known(role) {
				return nil, fmt.Errorf("%w: operation %q requires unknown role %q", ErrInvariant, op, role)
			}
		}
	}
	table := make(map[string]Requirement, len(requirements))
	for op, req := range requirements {
		table[op] = req
	}
	return &RouteTable{requirements: table}, nil
}

// Lookup returns the requirement attached to an operation. Operations without
// an entry carry the zero requirement: authentication only, no role or scope
// constraint.
func (t *RouteTable) Lookup(operation string) (Requirement, bool) {
	req, ok := t.requirements[operation]
	return req, ok
}

// Operations lists the configured operation identifiers.
func (t *RouteTable) Operations() []string {
	ops := make([]string, 0, len(t.requirements))
	for op := range t.requirements {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}
