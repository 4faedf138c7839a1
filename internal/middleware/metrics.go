package middleware

import (
	"net/http"
	"strconv"
	"time"

	"invoice-generator/internal/metrics"
)

// Metrics records request counts and latencies. Scrapes of /metrics are not counted.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			rw := newResponseWriter(w)
			start := time.Now()

			m.InFlight.Inc()
			defer m.InFlight.Dec()

			next.ServeHTTP(rw, r)

			path := metrics.CanonicalPath(r.URL.Path)
			method := metrics.CanonicalMethod(r.Method)
			m.Requests.WithLabelValues(method, path, strconv.Itoa(rw.statusCode)).Inc()
			m.Duration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		})
	}
}
