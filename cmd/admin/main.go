package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"invoice-generator/internal/admin"
	"invoice-generator/internal/config"
	"invoice-generator/internal/logger"
	"invoice-generator/internal/middleware"

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

	srv := &http.Server{
		Handler:      middleware.RequestID(middleware.LoggingMiddleware(log)(admin.Handler())),
		Addr:         ":" + strconv.Itoa(cfg.App.AdminPort),
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	go shutdownOnDone(ctx, srv, log)

	log.Infof("Admin UI running on port %d", cfg.App.AdminPort)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("Admin server failed")
	}
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// shutdownOnDone stops srv once ctx is cancelled, allowing in-flight requests 10s.
func shutdownOnDone(ctx context.Context, srv shutdowner, log *logrus.Logger) {
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Admin server shutdown failed")
		return
	}
	log.Info("Admin server stopped")
}
