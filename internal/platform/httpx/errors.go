package httpx

import (
	"errors"
	"net/http"

	"github.com/zamcdf/cdf-portal/internal/authz"
	"github.com/zamcdf/cdf-portal/internal/geo"
)

// RespondError maps domain errors to RFC7807 responses. Unauthenticated and
// scope denials carry no detail: error bodies must not reveal which roles or
// geography nodes exist to callers that failed those checks.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, authz.ErrUnauthenticated):
		Problem(w, http.StatusUnauthorized, "Unauthorized", "")
	case errors.Is(err, authz.ErrForbiddenScope):
		Problem(w, http.StatusForbidden, "Forbidden", "")
	case errors.Is(err, authz.ErrForbiddenRole):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, authz.ErrInvalidScopeReference):
		Problem(w, http.StatusBadRequest, "Invalid Scope Reference", err.Error())
	case errors.Is(err, geo.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// RespondDecision writes the HTTP translation of a denied decision. The
// role-check denial keeps its reason (it enumerates required versus held
// roles, which is deliberate); everything else stays generic.
func RespondDecision(w http.ResponseWriter, decision authz.Decision) {
	switch {
	case errors.Is(decision.Err, authz.ErrUnauthenticated):
		Problem(w, http.StatusUnauthorized, "Unauthorized", "")
	case errors.Is(decision.Err, authz.ErrForbiddenRole):
		Problem(w, http.StatusForbidden, "Forbidden", decision.Reason)
	case errors.Is(decision.Err, authz.ErrForbiddenScope):
		Problem(w, http.StatusForbidden, "Forbidden", "")
	case errors.Is(decision.Err, authz.ErrInvalidScopeReference):
		Problem(w, http.StatusBadRequest, "Invalid Scope Reference", decision.Reason)
	default:
		Problem(w, http.StatusForbidden, "Forbidden", "")
	}
}
