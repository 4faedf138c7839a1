package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"invoice-generator/internal/api"
	"invoice-generator/internal/cache"
	"invoice-generator/internal/config"
	"invoice-generator/internal/database"
	"invoice-generator/internal/logger"
	"invoice-generator/internal/metrics"
	"invoice-generator/internal/middleware"
	"invoice-generator/internal/shopify"

	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.Exitf("Failed to load configuration: %v", err)
	}

	if err := logger.Setup(logger.Options{
		Level:      cfg.App.LogLevel,
		File:       cfg.App.LogFile,
		Production: cfg.App.IsProduction(),
	}); err != nil {
		config.Exitf("Failed to set up logger: %v", err)
	}
	log := logger.Logger

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	if cfg.Shopify.APIKey != "" {
		app, err := shopify.New(cfg.Shopify, cfg.App.AppURL, cfg.App.IsProduction())
		if err != nil {
			log.WithError(err).Warn("Shopify app not configured")
		} else {
			log.WithFields(logrus.Fields{
				"host":        app.AppURL(),
				"api_version": app.APIVersion,
				"scopes":      app.ScopeString(),
			}).Info("Shopify app configured")
		}
	}

	// The pool is lazy: the server starts even when the database is down.
	pool, err := database.Open(cfg.Database, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to create database pool")
	}
	defer pool.Close()

	go func() {
		if err := pool.TestConnection(ctx); err != nil {
			log.WithError(err).Error("Failed to establish database connection")
			m.SetDatabaseUp(false)
			return
		}
		m.SetDatabaseUp(true)
	}()

	srv := &http.Server{
		Handler: api.SetupRoutes(api.Deps{
			Config:    cfg,
			Log:       log,
			DB:        pool,
			Metrics:   m,
			RateLimit: rateLimitStore(ctx, cfg, log),
		}),
		Addr:         cfg.App.Addr(),
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("Server shutdown failed")
		}
	}()

	log.Infof("Server running on port %d", cfg.App.Port)
	log.Infof("Environment: %s", cfg.App.Env)
	log.Infof("API URL: %s", cfg.App.AppURL)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("Server failed")
	}
	log.Info("Server stopped")
}

// rateLimitStore prefers Redis so limits are shared across instances, and
// falls back to in-process buckets when Redis is not configured or unreachable.
func rateLimitStore(ctx context.Context, cfg *config.Config, log *logrus.Logger) middleware.Store {
	if !cfg.Limits.Enabled() {
		return nil
	}
	if !cfg.Cache.Enabled() {
		return middleware.NewMemoryStore(cfg.Limits)
	}

	client, err := cache.NewRedisClient(ctx, cfg.Cache)
	if err != nil {
		log.WithError(err).Warnf("Redis at %s unavailable, using in-memory rate limiting", cfg.Cache.Addr())
		return middleware.NewMemoryStore(cfg.Limits)
	}
	log.WithField("addr", cfg.Cache.Addr()).Info("Rate limiting backed by Redis")
	return middleware.NewRedisStoreFromClient(client, cfg.Limits)
}
