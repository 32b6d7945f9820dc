package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RouteMounter is implemented by feature handlers that attach their routes.
type RouteMounter interface {
	MountRoutes(r chi.Router)
}

// NewRouter assembles the chi router with the middleware stack, health and
// metrics endpoints, and the provided feature handlers.
func NewRouter(cfg MiddlewareConfig, mounters ...RouteMounter) chi.Router {
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(cfg) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	for _, m := range mounters {
		m.MountRoutes(r)
	}
	return r
}
