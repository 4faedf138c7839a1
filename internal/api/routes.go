package api

import (
	"net/http"
	"time"

	"invoice-generator/internal/api/controllers"
	"invoice-generator/internal/api/handlers"
	"invoice-generator/internal/config"
	"invoice-generator/internal/metrics"
	"invoice-generator/internal/middleware"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

// Deps are the collaborators the router needs. DB and RateLimit may be nil.
type Deps struct {
	Config    *config.Config
	Log       *logrus.Logger
	DB        controllers.Pinger
	Metrics   *metrics.Metrics
	RateLimit middleware.Store
}

// SetupRoutes builds the full handler: the router wrapped in the middleware chain.
func SetupRoutes(d Deps) http.Handler {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(handlers.NotFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(handlers.MethodNotAllowed)

	health := &controllers.HealthCheck{DB: d.DB, Metrics: d.Metrics, Log: d.Log, Timeout: 2 * time.Second}

	router.HandleFunc("/", handlers.Root).Methods(http.MethodGet)
	router.Handle("/health", health).Methods(http.MethodGet)
	if d.Metrics != nil {
		router.Handle("/metrics", d.Metrics.Handler()).Methods(http.MethodGet)
	}

	apiRouter := router.PathPrefix("/api").Subrouter()
	if d.RateLimit != nil && d.Config.Limits.Enabled() {
		proxies, err := d.Config.Limits.Proxies()
		if err != nil {
			d.Log.WithError(err).Warn("Ignoring TRUSTED_PROXIES, rate limiting by connection address")
			proxies = nil
		}
		apiRouter.Use(middleware.NewRateLimiter(d.RateLimit, proxies, d.Log, d.Metrics).RateLimit)
	}
	apiRouter.HandleFunc("", handlers.APIRoot).Methods(http.MethodGet)
	apiRouter.HandleFunc("/", handlers.APIRoot).Methods(http.MethodGet)

	var handler http.Handler = router
	handler = middleware.BodyLimit(middleware.DefaultBodyLimit)(handler)
	handler = middleware.Recovery(d.Log)(handler)
	if d.Metrics != nil {
		handler = middleware.Metrics(d.Metrics)(handler)
	}
	handler = middleware.LoggingMiddleware(d.Log)(handler)
	handler = middleware.RequestID(handler)
	return corsMiddleware(d.Config.App.FrontendURL).Handler(handler)
}

func corsMiddleware(frontendURL string) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins: []string{frontendURL},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
			"X-Shopify-Hmac-Sha256",
		},
		ExposedHeaders: []string{
			"X-Request-ID",
			"X-RateLimit-Limit",
			"X-RateLimit-Remaining",
			"X-RateLimit-Reset",
		},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	})
}
