// Package metrics holds the Prometheus collectors for the HTTP servers.
package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "invoice_generator"

type Metrics struct {
	registry *prometheus.Registry

	InFlight    prometheus.Gauge
	Requests    *prometheus.CounterVec
	Duration    *prometheus.HistogramVec
	RateLimited *prometheus.CounterVec
	DBUp        prometheus.Gauge
}

// New registers a fresh set of collectors on their own registry, so tests and
// multiple servers in one process do not collide.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "path", "status"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		}, []string{"method", "path"}),
		RateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "rejected_total",
			Help:      "Requests rejected by the rate limiter.",
		}, []string{"store"}),
		DBUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "up",
			Help:      "1 if the last database probe succeeded.",
		}),
	}

	m.registry.MustRegister(
		m.InFlight,
		m.Requests,
		m.Duration,
		m.RateLimited,
		m.DBUp,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SetDatabaseUp records the outcome of a connectivity probe.
func (m *Metrics) SetDatabaseUp(up bool) {
	if up {
		m.DBUp.Set(1)
		return
	}
	m.DBUp.Set(0)
}

// OtherLabel stands in for any path or method outside the known set.
const OtherLabel = "other"

var knownPaths = map[string]string{
	"/":        "/",
	"/health":  "/health",
	"/health/": "/health",
	"/api":     "/api",
	"/api/":    "/api",
	"/metrics": "/metrics",
}

// CanonicalPath maps a request path onto the served routes. Everything else,
// including unrouted 404s, shares one label so callers cannot mint series.
func CanonicalPath(raw string) string {
	if raw == "" {
		return "/"
	}
	if p, ok := knownPaths[raw]; ok {
		return p
	}
	return OtherLabel
}

// CanonicalMethod keeps standard HTTP methods and folds the rest into "OTHER".
func CanonicalMethod(method string) string {
	switch m := strings.ToUpper(method); m {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodPatch,
		http.MethodDelete, http.MethodOptions, http.MethodConnect, http.MethodTrace:
		return m
	}
	return strings.ToUpper(OtherLabel)
}
