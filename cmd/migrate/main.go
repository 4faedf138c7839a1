// Command migrate applies pending SQL migrations from MIGRATIONS_DIR and
// records each one in schema_migrations.
package main

import (
	"context"
	"database/sql"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"invoice-generator/internal/config"
	"invoice-generator/internal/logger"
	"invoice-generator/internal/migrations"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup happens before exit.
func run() int {
	dir := flag.String("dir", "", "migrations directory (defaults to MIGRATIONS_DIR)")
	status := flag.Bool("status", false, "list applied and pending migrations without applying any")
	flag.Parse()

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

	if *dir == "" {
		*dir = cfg.App.MigrationsDir
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A dedicated connection, separate from the API pool.
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.WithError(err).Error("Failed to open database")
		return 1
	}
	defer closeDB(db, log)
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err = db.PingContext(pingCtx)
	cancel()
	if err != nil {
		log.WithError(err).WithField("database", cfg.Database.Redacted()).Error("Migration failed")
		return 1
	}

	runner := migrations.NewRunner(db, os.DirFS(*dir), ".", log)

	if *status {
		if err := printStatus(ctx, runner, log); err != nil {
			log.WithError(err).Error("Failed to read migration status")
			return 1
		}
		return 0
	}

	if _, err := runner.Run(ctx); err != nil {
		log.WithError(err).Error("Migration failed")
		return 1
	}
	return 0
}

// printStatus logs the ledger followed by the files still to apply.
func printStatus(ctx context.Context, runner *migrations.Runner, log *logrus.Logger) error {
	pending, err := runner.Pending(ctx)
	if err != nil {
		return err
	}
	applied, err := runner.Applied(ctx)
	if err != nil {
		return err
	}

	for _, m := range applied {
		log.WithField("executed_at", m.ExecutedAt.Format(time.RFC3339)).Infof("Applied: %s", m.MigrationName)
	}
	if len(pending) == 0 {
		log.Info("No pending migrations")
		return nil
	}
	for _, name := range pending {
		log.Infof("Pending: %s", name)
	}
	return nil
}

func closeDB(db io.Closer, log *logrus.Logger) {
	if err := db.Close(); err != nil {
		log.WithError(err).Error("Failed to close database connection")
		return
	}
	log.Info("Database connection closed")
}
