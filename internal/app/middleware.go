package app

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/zamcdf/cdf-portal/internal/authz"
	"github.com/zamcdf/cdf-portal/internal/identity"
	"github.com/zamcdf/cdf-portal/internal/observability"
	"github.com/zamcdf/cdf-portal/internal/shared"
)

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger   *slog.Logger
	Config   *Config
	Verifier identity.Verifier
	Engine   *authz.Engine
	Metrics  *observability.Metrics
}

// MiddlewareStack installs the portal middleware chain.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'",
		SSLRedirect:           cfg.Config != nil && cfg.Config.IsProduction(),
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
	})

	rateLimit := 120
	if cfg.Config != nil && cfg.Config.RateLimit > 0 {
		rateLimit = cfg.Config.RateLimit
	}

	stack := []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		secureMiddleware.Handler,
		httprate.LimitByIP(rateLimit, time.Minute),
	}
	if cfg.Metrics != nil {
		stack = append(stack, cfg.Metrics.Middleware)
	}
	stack = append(stack, authenticationMiddleware(cfg))
	return stack
}

// authenticationMiddleware verifies the bearer token and attaches the
// principal to the request context. Requests without a token, or with one the
// identity provider rejects, continue without a principal; the pipeline's
// authenticate stage denies them for protected operations. Verification
// failures never fail open into a different principal.
func authenticationMiddleware(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" || cfg.Verifier == nil {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := cfg.Verifier.Verify(r.Context(), token)
			if err != nil {
				if cfg.Logger != nil {
					cfg.Logger.Warn("token verification failed", slog.Any("error", err))
				}
				next.ServeHTTP(w, r)
				return
			}
			principal := claims.Principal(cfg.Engine.Snapshot().Roles)
			ctx := shared.ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
