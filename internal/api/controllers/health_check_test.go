package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"invoice-generator/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func serveHealth(t *testing.T, h *HealthCheck) (int, HealthCheckResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var body HealthCheckResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	return rec.Code, body
}

func TestHealthCheckConnected(t *testing.T) {
	m := metrics.New()
	h := &HealthCheck{
		DB:      pingFunc(func(context.Context) error { return nil }),
		Metrics: m,
		Now:     func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 89e6, time.FixedZone("CET", 3600)) },
	}

	code, body := serveHealth(t, h)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, HealthCheckResponse{
		Status:    "ok",
		Message:   "Invoice Generator API is running",
		Timestamp: "2026-03-04T04:06:07.089Z",
		Database:  DatabaseConnected,
	}, body)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DBUp))
}

func TestHealthCheckStaysOKWhenDatabaseIsDown(t *testing.T) {
	log, hook := test.NewNullLogger()
	h := &HealthCheck{
		DB:  pingFunc(func(context.Context) error { return errors.New("connection refused") }),
		Log: log,
	}

	code, body := serveHealth(t, h)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, DatabaseUnavailable, body.Database)
	require.NotNil(t, hook.LastEntry())
}

func TestHealthCheckWithoutDatabase(t *testing.T) {
	_, body := serveHealth(t, &HealthCheck{})
	assert.Equal(t, DatabaseNotConfigured, body.Database)

	_, err := time.Parse(time.RFC3339, body.Timestamp)
	assert.NoError(t, err)
}

func TestHealthCheckBoundsPing(t *testing.T) {
	h := &HealthCheck{
		Timeout: 10 * time.Millisecond,
		DB: pingFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}),
	}

	_, body := serveHealth(t, h)
	assert.Equal(t, DatabaseUnavailable, body.Database)
}
