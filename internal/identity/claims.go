// Package identity verifies bearer tokens against the external identity
// provider and turns verified claim sets into portal principals.
package identity

import (
	"errors"

	"github.com/zamcdf/cdf-portal/internal/authz"
	"github.com/zamcdf/cdf-portal/internal/geo"
)

// ErrVerification indicates the token could not be verified. Any non-success
// from the provider, including timeouts, collapses into this error: the
// pipeline fails closed.
var ErrVerification = errors.New("identity: verification failed")

// Claims is the verified claim set returned by the identity provider.
type Claims struct {
	PrincipalID string   `json:"principal_id" yaml:"principal_id" validate:"required"`
	Email       string   `json:"email" yaml:"email" validate:"omitempty,email"`
	Roles       []string `json:"roles" yaml:"roles"`
	HomeScope   string   `json:"home_scope" yaml:"home_scope"`
	HomeLevel   string   `json:"home_level" yaml:"home_level"`
}

// Principal builds the immutable request principal from verified claims,
// computing the effective permission closure once. An unresolvable home level
// claim leaves the principal without a home subtree; scope-sensitive
// operations will then deny rather than widen access.
func (c *Claims) Principal(roles *authz.RoleResolver) *authz.Principal {
	held := make([]authz.Role, 0, len(c.Roles))
	for _, r := range c.Roles {
		held = append(held, authz.Role(r))
	}
	level := geo.LevelNational
	if c.HomeLevel != "" {
		if parsed, err := geo.ParseLevel(c.HomeLevel); err == nil {
			level = parsed
		}
	}
	return &authz.Principal{
		ID:        c.PrincipalID,
		Email:     c.Email,
		Roles:     held,
		Effective: roles.EffectivePermissions(held),
		HomeScope: c.HomeScope,
		HomeLevel: level,
	}
}
