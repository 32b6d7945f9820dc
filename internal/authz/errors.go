package authz

import "errors"

// Request-time failures are returned as values inside a Decision or as
// typed errors; none of them ever escapes as a panic. ErrInvariant is the one
// load-time failure and must abort startup.
var (
	// ErrUnauthenticated indicates the request carried no verified principal.
	ErrUnauthenticated = errors.New("authz: unauthenticated")
	// ErrForbiddenRole indicates the role check failed.
	ErrForbiddenRole = errors.New("authz: insufficient role")
	// ErrForbiddenScope indicates the geography check failed.
	ErrForbiddenScope = errors.New("authz: scope mismatch")
	// ErrInvalidScopeReference indicates a caller-supplied geography
	// reference that does not resolve.
	ErrInvalidScopeReference = errors.New("authz: invalid scope reference")
	// ErrInvariant indicates inconsistent role configuration at load time.
	ErrInvariant = errors.New("authz: invariant violation")
)
