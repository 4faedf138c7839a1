package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"invoice-generator/internal/config"
	apperrors "invoice-generator/internal/pkg/errors"

	"github.com/cenkalti/backoff/v5"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	DefaultRetries = 5
	DefaultDelay   = 5 * time.Second
)

// Options tune the startup probe of a Pool.
type Options struct {
	Retries int
	Delay   time.Duration
	Logger  *logrus.Logger
}

// Pool is the application's shared connection pool. Size limits and queued
// acquisition are delegated to database/sql; Pool adds the startup probe.
type Pool struct {
	db      *gorm.DB
	sqlDB   *sql.DB
	retries int
	delay   time.Duration
	log     *logrus.Logger
}

// Open creates the pool without connecting. Connectivity is checked by TestConnection.
func Open(cfg config.DatabaseConfig, log *logrus.Logger) (*Pool, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:               NewGormLogger(log, time.Second),
		DisableAutomaticPing: true,
	})
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	pool, err := NewPool(db, Options{
		Retries: cfg.ConnectRetries,
		Delay:   cfg.ConnectDelay,
		Logger:  log,
	})
	if err != nil {
		return nil, err
	}

	pool.sqlDB.SetMaxOpenConns(cfg.ConnectionLimit)
	pool.sqlDB.SetMaxIdleConns(cfg.MaxIdle)
	pool.sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	log.WithFields(logrus.Fields{
		"database":         cfg.Redacted(),
		"connection_limit": cfg.ConnectionLimit,
	}).Info("Database pool created")

	return pool, nil
}

// NewPool wraps an already opened gorm handle.
func NewPool(db *gorm.DB, opts Options) (*Pool, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying *sql.DB instance: %w", err)
	}

	if opts.Retries <= 0 {
		opts.Retries = DefaultRetries
	}
	if opts.Delay < 0 {
		opts.Delay = DefaultDelay
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	return &Pool{
		db:      db,
		sqlDB:   sqlDB,
		retries: opts.Retries,
		delay:   opts.Delay,
		log:     opts.Logger,
	}, nil
}

// TestConnection acquires and releases one connection, retrying with a fixed
// delay. It makes exactly Retries attempts before returning the last error.
func (p *Pool) TestConnection(ctx context.Context) error {
	attempt := 0
	operation := func() (struct{}, error) {
		attempt++
		if err := p.probe(ctx); err != nil {
			p.log.WithError(err).Errorf("Database connection attempt %d/%d failed", attempt, p.retries)
			return struct{}{}, err
		}
		return struct{}{}, nil
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(p.delay)),
		backoff.WithMaxTries(uint(p.retries)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(_ error, next time.Duration) {
			p.log.Infof("Retrying database connection in %s", next)
		}),
	)
	if err != nil {
		p.log.WithError(err).Error("Failed to connect to database after all retries")
		return fmt.Errorf("%w: %w", apperrors.ErrDatabaseError, err)
	}

	p.log.Info("Database connection successful")
	return nil
}

// Ping is a single probe with no retry.
func (p *Pool) Ping(ctx context.Context) error {
	return p.probe(ctx)
}

func (p *Pool) probe(ctx context.Context) error {
	conn, err := p.sqlDB.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	return conn.PingContext(ctx)
}

// Query runs a parameterised statement and returns every row as a column map.
func (p *Pool) Query(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	var results []map[string]any
	if err := p.db.WithContext(ctx).Raw(query, args...).Scan(&results).Error; err != nil {
		p.log.WithError(err).Error("Database query error")
		return nil, fmt.Errorf("%w: %w", apperrors.ErrDatabaseError, err)
	}
	return results, nil
}

// GetConnection checks out a dedicated connection, for transactions.
// The caller must Close it to return it to the pool.
func (p *Pool) GetConnection(ctx context.Context) (*sql.Conn, error) {
	conn, err := p.sqlDB.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: acquire connection: %w", apperrors.ErrDatabaseError, err)
	}
	return conn, nil
}

func (p *Pool) DB() *gorm.DB {
	return p.db
}

// Stats exposes database/sql pool counters.
func (p *Pool) Stats() sql.DBStats {
	return p.sqlDB.Stats()
}

func (p *Pool) Close() error {
	if err := p.sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	return nil
}
