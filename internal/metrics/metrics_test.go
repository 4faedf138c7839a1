package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                 "/",
		"/":                "/",
		"/health":          "/health",
		"/api":             "/api",
		"/api/":            "/api",
		"/metrics":         "/metrics",
		"/api/orders/1234": "other",
		"/random-7":        "other",
		"//assets//app.js": "other",
	}
	for in, want := range cases {
		assert.Equal(t, want, CanonicalPath(in), in)
	}
}

func TestCanonicalMethod(t *testing.T) {
	assert.Equal(t, "GET", CanonicalMethod("get"))
	assert.Equal(t, "DELETE", CanonicalMethod("DELETE"))
	assert.Equal(t, "OTHER", CanonicalMethod("BREW"))
	assert.Equal(t, "OTHER", CanonicalMethod("X-RANDOM-123"))
}

func TestSetDatabaseUp(t *testing.T) {
	m := New()

	m.SetDatabaseUp(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DBUp))
	m.SetDatabaseUp(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.DBUp))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.Requests.WithLabelValues("GET", "/health", "200").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `invoice_generator_http_requests_total{method="GET",path="/health",status="200"} 1`)
}
