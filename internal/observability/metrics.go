// Package observability collects Prometheus metrics for the portal.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics aggregates the portal's Prometheus collectors.
type Metrics struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	decisionsTotal   *prometheus.CounterVec
	decisionDuration *prometheus.HistogramVec
	auditDropped     prometheus.Counter
}

// NewMetrics initialises the registry and base collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cdf_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cdf_http_request_duration_seconds",
		Help:    "HTTP request duration by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cdf_authz_decisions_total",
		Help: "Authorization decisions by operation and outcome.",
	}, []string{"operation", "outcome"})
	decisionDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cdf_authz_decision_duration_seconds",
		Help:    "Authorization evaluation duration by operation.",
		Buckets: []float64{.000005, .00001, .00005, .0001, .0005, .001, .005, .01},
	}, []string{"operation"})
	auditDropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cdf_audit_events_dropped_total",
		Help: "Audit events that could not be enqueued.",
	})
	registry.MustRegister(requests, duration, decisions, decisionDuration, auditDropped)
	return &Metrics{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:    requests,
		requestDuration:  duration,
		decisionsTotal:   decisions,
		decisionDuration: decisionDuration,
		auditDropped:     auditDropped,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveDecision records one authorization evaluation.
func (m *Metrics) ObserveDecision(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.decisionsTotal.WithLabelValues(operation, outcome).Inc()
	m.decisionDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// AuditDropped counts one audit event lost at the enqueue boundary.
func (m *Metrics) AuditDropped() {
	if m == nil {
		return
	}
	m.auditDropped.Inc()
}

// Registerer exposes the registry for custom collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
