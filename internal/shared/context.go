// Package shared holds request-scoped helpers used across handlers.
package shared

import (
	"context"

	"github.com/zamcdf/cdf-portal/internal/authz"
)

type principalContextKey struct{}

// ContextWithPrincipal stores the verified principal in context.
func ContextWithPrincipal(ctx context.Context, p *authz.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context; nil when the
// request was not authenticated.
func PrincipalFromContext(ctx context.Context) *authz.Principal {
	p, _ := ctx.Value(principalContextKey{}).(*authz.Principal)
	return p
}
