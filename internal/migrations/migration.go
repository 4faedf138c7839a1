package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"invoice-generator/internal/models"

	"github.com/sirupsen/logrus"
)

const createLedgerSQL = `CREATE TABLE IF NOT EXISTS schema_migrations (
    id SERIAL PRIMARY KEY,
    migration_name VARCHAR(255) NOT NULL UNIQUE,
    executed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

const (
	selectExecutedSQL = `SELECT migration_name FROM schema_migrations`
	selectAppliedSQL  = `SELECT id, migration_name, executed_at FROM schema_migrations ORDER BY id`
	insertLedgerSQL   = `INSERT INTO schema_migrations (migration_name) VALUES ($1)`
)

// Execer is satisfied by *sql.DB and *sql.Conn.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Runner applies .sql files from Dir in FS, in lexicographic order, at most once each.
type Runner struct {
	DB  Execer
	FS  fs.FS
	Dir string
	Log *logrus.Logger
}

// Report lists what a Run saw and did.
type Report struct {
	Found   []string
	Applied []string
	Skipped []string
}

func NewRunner(db Execer, fsys fs.FS, dir string, log *logrus.Logger) *Runner {
	if dir == "" {
		dir = "."
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Runner{DB: db, FS: fsys, Dir: dir, Log: log}
}

// Run ensures the ledger table exists and applies every file not yet recorded.
// It stops at the first failing file; files applied before it stay applied.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	report := &Report{}

	r.Log.Info("Setting up migrations tracking table")
	if err := r.ensureLedger(ctx); err != nil {
		return report, err
	}

	executed, err := r.executed(ctx)
	if err != nil {
		return report, err
	}

	files, err := r.files()
	if err != nil {
		return report, err
	}
	report.Found = files
	r.Log.Infof("Found %d migration file(s)", len(files))

	for _, name := range files {
		if _, ok := executed[name]; ok {
			r.Log.Infof("Skipping %s (already executed)", name)
			report.Skipped = append(report.Skipped, name)
			continue
		}

		r.Log.Infof("Running migration: %s", name)
		if err := r.apply(ctx, name); err != nil {
			r.Log.WithError(err).Errorf("Error executing %s", name)
			return report, fmt.Errorf("migration %s: %w", name, err)
		}
		executed[name] = struct{}{}
		report.Applied = append(report.Applied, name)
		r.Log.Infof("Successfully executed %s", name)
	}

	r.Log.Info("All migrations completed successfully")
	return report, nil
}

// Pending lists files that Run would apply, without executing anything but the ledger setup.
func (r *Runner) Pending(ctx context.Context) ([]string, error) {
	if err := r.ensureLedger(ctx); err != nil {
		return nil, err
	}
	executed, err := r.executed(ctx)
	if err != nil {
		return nil, err
	}
	files, err := r.files()
	if err != nil {
		return nil, err
	}

	var pending []string
	for _, name := range files {
		if _, ok := executed[name]; !ok {
			pending = append(pending, name)
		}
	}
	return pending, nil
}

// Applied returns the ledger rows in application order.
func (r *Runner) Applied(ctx context.Context) ([]models.SchemaMigration, error) {
	rows, err := r.DB.QueryContext(ctx, selectAppliedSQL)
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	defer rows.Close()

	var out []models.SchemaMigration
	for rows.Next() {
		var (
			m          models.SchemaMigration
			executedAt sql.NullTime
		)
		if err := rows.Scan(&m.ID, &m.MigrationName, &executedAt); err != nil {
			return nil, fmt.Errorf("scan applied migration: %w", err)
		}
		m.ExecutedAt = executedAt.Time
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *Runner) ensureLedger(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, createLedgerSQL); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}
	return nil
}

func (r *Runner) executed(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.DB.QueryContext(ctx, selectExecutedSQL)
	if err != nil {
		return nil, fmt.Errorf("list executed migrations: %w", err)
	}
	defer rows.Close()

	executed := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan executed migration: %w", err)
		}
		executed[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list executed migrations: %w", err)
	}
	return executed, nil
}

func (r *Runner) files() ([]string, error) {
	entries, err := fs.ReadDir(r.FS, r.Dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// apply runs one file and records it in the same transaction.
func (r *Runner) apply(ctx context.Context, name string) error {
	content, err := fs.ReadFile(r.FS, path.Join(r.Dir, name))
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	// An empty file is recorded so it does not stay pending forever.
	if body := strings.TrimSpace(string(content)); body != "" {
		if _, err := tx.ExecContext(ctx, body); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, insertLedgerSQL, name); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
