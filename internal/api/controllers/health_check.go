package controllers

import (
	"context"
	"net/http"
	"time"

	"invoice-generator/internal/metrics"
	"invoice-generator/internal/pkg/response"

	"github.com/sirupsen/logrus"
)

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Database connectivity as reported by /health.
const (
	DatabaseConnected     = "connected"
	DatabaseUnavailable   = "unavailable"
	DatabaseNotConfigured = "not configured"
)

type HealthCheckResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Database  string `json:"database"`
}

// Pinger is satisfied by *database.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthCheck struct {
	DB      Pinger
	Metrics *metrics.Metrics
	Log     *logrus.Logger
	Timeout time.Duration
	Now     func() time.Time
}

// ServeHTTP always answers 200: the process is up even when the database is not.
func (h *HealthCheck) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}

	response.JSON(w, http.StatusOK, HealthCheckResponse{
		Status:    "ok",
		Message:   "Invoice Generator API is running",
		Timestamp: now().UTC().Format(timestampLayout),
		Database:  h.database(r.Context()),
	})
}

func (h *HealthCheck) database(ctx context.Context) string {
	if h.DB == nil {
		return DatabaseNotConfigured
	}

	timeout := h.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := h.DB.Ping(ctx)
	if h.Metrics != nil {
		h.Metrics.SetDatabaseUp(err == nil)
	}
	if err != nil {
		if h.Log != nil {
			h.Log.WithError(err).Warn("Health check database ping failed")
		}
		return DatabaseUnavailable
	}
	return DatabaseConnected
}
