package projects

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/zamcdf/cdf-portal/internal/authz"
	"github.com/zamcdf/cdf-portal/internal/geo"
	"github.com/zamcdf/cdf-portal/internal/platform/httpx"
	"github.com/zamcdf/cdf-portal/internal/shared"
)

// Handler serves the project-status report endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds the handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/projects", func(r chi.Router) {
		r.Get("/report", h.statusReport)
	})
}

func (h *Handler) statusReport(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	request := scopeRequest(r)

	page := shared.NewPagination(
		queryInt(r, "page", 1),
		queryInt(r, "per_page", 20),
		0,
	)

	report, decision, err := h.service.StatusReport(r.Context(), principal, request, page)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("status report failed", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	if !decision.Granted {
		httpx.RespondDecision(w, decision)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

// scopeRequest extracts the request's scope signals in guard order: path
// parameter, query parameter, then the constituency header.
func scopeRequest(r *http.Request) authz.Request {
	req := authz.Request{
		PathScope:   chi.URLParam(r, "scope"),
		QueryScope:  r.URL.Query().Get("scope"),
		HeaderScope: r.Header.Get("X-Constituency-Id"),
		LevelHint:   geo.LevelAny,
	}
	if req.QueryScope == "" {
		req.QueryScope = r.URL.Query().Get("ward_id")
	}
	if hint := r.URL.Query().Get("scope_level"); hint != "" {
		if level, err := geo.ParseLevel(hint); err == nil {
			req.LevelHint = level
		}
	}
	return req
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
