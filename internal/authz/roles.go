package authz

import (
	"fmt"
	"sort"
	"strings"
)

// Role is an opaque role identifier, e.g. "wdc_chairperson".
type Role string

// Well-known roles of the portal.
const (
	RoleSuperAdmin              Role = "super_admin"
	RoleAdmin                   Role = "admin"
	RoleProvincialAdmin         Role = "provincial_admin"
	RoleDistrictAdmin           Role = "district_admin"
	RolePLGO                    Role = "plgo"
	RoleCDFCChair               Role = "cdfc_chair"
	RoleConstituencyCoordinator Role = "constituency_coordinator"
	RoleFinanceOfficer          Role = "finance_officer"
	RoleAuditor                 Role = "auditor"
	RoleWDCChairperson          Role = "wdc_chairperson"
	RoleWDCSecretary            Role = "wdc_secretary"
	RoleWDCMember               Role = "wdc_member"
	RoleCommunityMember         Role = "community_member"
	RoleCitizen                 Role = "citizen"
	RoleApplicant               Role = "applicant"
)

// HierarchyConfig declares which roles each role implies, plus interchangeable
// role names. Aliases never participate in inheritance.
type HierarchyConfig struct {
	Inherits map[Role][]Role `yaml:"inherits"`
	Aliases  map[Role][]Role `yaml:"aliases"`
}

// DefaultHierarchy returns the portal's built-in role inheritance map. A role
// higher in an administrative chain implies everything beneath it; super_admin
// implies every role unconditionally.
func DefaultHierarchy() HierarchyConfig {
	return HierarchyConfig{
		Inherits: map[Role][]Role{
			RoleAdmin: {
				RoleProvincialAdmin, RolePLGO, RoleCDFCChair, RoleFinanceOfficer, RoleAuditor,
			},
			RoleProvincialAdmin:         {RoleDistrictAdmin, RolePLGO},
			RoleDistrictAdmin:           {RoleConstituencyCoordinator},
			RolePLGO:                    {},
			RoleCDFCChair:               {RoleConstituencyCoordinator},
			RoleConstituencyCoordinator: {RoleWDCChairperson},
			RoleFinanceOfficer:          {},
			RoleAuditor:                 {},
			RoleWDCChairperson:          {RoleWDCSecretary},
			RoleWDCSecretary:            {RoleWDCMember},
			RoleWDCMember:               {RoleCommunityMember},
			RoleCommunityMember:         {RoleApplicant},
			RoleApplicant:               {},
		},
		Aliases: map[Role][]Role{
			RoleCitizen: {RoleCommunityMember},
		},
	}
}

// RoleResolver answers effective-permission and satisfaction queries against
// an immutable, transitively closed inheritance graph.
type RoleResolver struct {
	closure map[Role][]Role
	aliases map[Role][]Role
}

// NewRoleResolver closes the hierarchy transitively and symmetrizes aliases.
// A cycle in the inheritance graph wraps ErrInvariant and must abort startup.
func NewRoleResolver(cfg HierarchyConfig) (*RoleResolver, error) {
	known := make([]Role, 0, len(cfg.Inherits))
	for role := range cfg.Inherits {
		known = append(known, role)
	}
	sort.Slice(known, func(i, j int) bool { return known[i] < known[j] })

	r := &RoleResolver{
		closure: make(map[Role][]Role, len(cfg.Inherits)+1),
		aliases: make(map[Role][]Role),
	}

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[Role]int)
	var visit func(role Role) ([]Role, error)
	visit = func(role Role) ([]Role, error) {
		switch state[role] {
		case visiting:
			return nil, fmt.Errorf("%w: role hierarchy cycle through %q", ErrInvariant, role)
		case done:
			return r.closure[role], nil
		}
		state[role] = visiting
		set := map[Role]struct{}{role: {}}
		for _, implied := range cfg.Inherits[role] {
			set[implied] = struct{}{}
			nested, err := visit(implied)
			if err != nil {
				return nil, err
			}
			for _, n := range nested {
				set[n] = struct{}{}
			}
		}
		state[role] = done
		r.closure[role] = sortedRoles(set)
		return r.closure[role], nil
	}
	for _, role := range known {
		if _, err := visit(role); err != nil {
			return nil, err
		}
	}

	// super_admin implies every role in the catalogue.
	all := map[Role]struct{}{RoleSuperAdmin: {}}
	for role, implied := range r.closure {
		all[role] = struct{}{}
		for _, i := range implied {
			all[i] = struct{}{}
		}
	}
	r.closure[RoleSuperAdmin] = sortedRoles(all)

	for a, others := range cfg.Aliases {
		for _, b := range others {
			if a == b {
				return nil, fmt.Errorf("%w: role %q aliased to itself", ErrInvariant, a)
			}
			r.aliases[a] = appendRoleOnce(r.aliases[a], b)
			r.aliases[b] = appendRoleOnce(r.aliases[b], a)
		}
	}
	return r, nil
}

// Known reports whether the role appears in the hierarchy or alias table.
func (r *RoleResolver) Known(role Role) bool {
	if _, ok := r.closure[role]; ok {
		return true
	}
	_, ok := r.aliases[role]
	return ok
}

// EffectivePermissions returns the transitive closure of the held roles. The
// result is sorted, so equal input sets yield byte-identical output in any
// enumeration order. Roles absent from the hierarchy close over themselves.
func (r *RoleResolver) EffectivePermissions(roles []Role) []Role {
	set := make(map[Role]struct{}, len(roles)*2)
	for _, role := range roles {
		role = Role(strings.TrimSpace(string(role)))
		if role == "" {
			continue
		}
		set[role] = struct{}{}
		for _, implied := range r.closure[role] {
			set[implied] = struct{}{}
		}
	}
	return sortedRoles(set)
}

// Satisfies reports whether the effective set meets the requirement: a
// super_admin grant short-circuits everything, otherwise the effective set
// must intersect the required roles or their aliases. An empty requirement is
// always satisfied.
func (r *RoleResolver) Satisfies(effective, required []Role) bool {
	held := make(map[Role]struct{}, len(effective))
	for _, role := range effective {
		held[role] = struct{}{}
	}
	if _, ok := held[RoleSuperAdmin]; ok {
		return true
	}
	if len(required) == 0 {
		return true
	}
	for _, want := range required {
		if _, ok := held[want]; ok {
			return true
		}
		for _, alias := range r.aliases[want] {
			if _, ok := held[alias]; ok {
				return true
			}
		}
	}
	return false
}

func sortedRoles(set map[Role]struct{}) []Role {
	out := make([]Role, 0, len(set))
	for role := range set {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func appendRoleOnce(roles []Role, role Role) []Role {
	for _, existing := range roles {
		if existing == role {
			return roles
		}
	}
	return append(roles, role)
}

// RoleNames renders a role list for diagnostics, "none" when empty.
func RoleNames(roles []Role) string {
	if len(roles) == 0 {
		return "none"
	}
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}
	return strings.Join(names, ", ")
}
