package migrations

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"testing/fstest"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRunner(t *testing.T, files fstest.MapFS) (*Runner, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log, _ := test.NewNullLogger()
	return NewRunner(db, files, "migrations", log), mock
}

func expectLedger(mock sqlmock.Sqlmock, executed ...string) {
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	rows := sqlmock.NewRows([]string{"migration_name"})
	for _, name := range executed {
		rows.AddRow(name)
	}
	mock.ExpectQuery(regexp.QuoteMeta(selectExecutedSQL)).WillReturnRows(rows)
}

func expectApply(mock sqlmock.Sqlmock, body, name string) {
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(body)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(insertLedgerSQL)).WithArgs(name).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
}

func testFiles() fstest.MapFS {
	return fstest.MapFS{
		"migrations/010_indexes.sql":  {Data: []byte("CREATE INDEX idx_c ON c(id);")},
		"migrations/001_create_a.sql": {Data: []byte("CREATE TABLE a (id INT);")},
		"migrations/002_create_b.sql": {Data: []byte("CREATE TABLE b (id INT);")},
		"migrations/README.md":        {Data: []byte("not a migration")},
		"migrations/old.sql/keep.txt": {Data: []byte("directory named like a migration")},
	}
}

func TestRunAppliesInFilenameOrder(t *testing.T) {
	runner, mock := newRunner(t, testFiles())
	expectLedger(mock)
	expectApply(mock, "CREATE TABLE a (id INT);", "001_create_a.sql")
	expectApply(mock, "CREATE TABLE b (id INT);", "002_create_b.sql")
	expectApply(mock, "CREATE INDEX idx_c ON c(id);", "010_indexes.sql")

	report, err := runner.Run(context.Background())
	require.NoError(t, err)

	want := []string{"001_create_a.sql", "002_create_b.sql", "010_indexes.sql"}
	assert.Equal(t, want, report.Found)
	assert.Equal(t, want, report.Applied)
	assert.Empty(t, report.Skipped)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunIsIdempotent(t *testing.T) {
	runner, mock := newRunner(t, testFiles())

	expectLedger(mock)
	expectApply(mock, "CREATE TABLE a (id INT);", "001_create_a.sql")
	expectApply(mock, "CREATE TABLE b (id INT);", "002_create_b.sql")
	expectApply(mock, "CREATE INDEX idx_c ON c(id);", "010_indexes.sql")
	_, err := runner.Run(context.Background())
	require.NoError(t, err)

	// Second run sees every file in the ledger and must not open a transaction.
	expectLedger(mock, "001_create_a.sql", "002_create_b.sql", "010_indexes.sql")
	report, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, report.Applied)
	assert.Len(t, report.Skipped, 3)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunSkipsRecordedAndAppliesNew(t *testing.T) {
	runner, mock := newRunner(t, testFiles())
	expectLedger(mock, "001_create_a.sql")
	expectApply(mock, "CREATE TABLE b (id INT);", "002_create_b.sql")
	expectApply(mock, "CREATE INDEX idx_c ON c(id);", "010_indexes.sql")

	report, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"001_create_a.sql"}, report.Skipped)
	assert.Equal(t, []string{"002_create_b.sql", "010_indexes.sql"}, report.Applied)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunStopsAtFailingFile(t *testing.T) {
	runner, mock := newRunner(t, testFiles())
	expectLedger(mock)
	expectApply(mock, "CREATE TABLE a (id INT);", "001_create_a.sql")
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE b (id INT);")).WillReturnError(errors.New(`relation "b" already exists`))
	mock.ExpectRollback()

	report, err := runner.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migration 002_create_b.sql")
	assert.Equal(t, []string{"001_create_a.sql"}, report.Applied)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRecordsEmptyFileWithoutExecuting(t *testing.T) {
	runner, mock := newRunner(t, fstest.MapFS{
		"migrations/001_placeholder.sql": {Data: []byte("  \n")},
	})
	expectLedger(mock)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(insertLedgerSQL)).WithArgs("001_placeholder.sql").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	report, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"001_placeholder.sql"}, report.Applied)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunFailsWithoutDirectory(t *testing.T) {
	runner, mock := newRunner(t, fstest.MapFS{})
	expectLedger(mock)

	_, err := runner.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read migrations dir")
}

func TestRunFailsWhenLedgerCannotBeCreated(t *testing.T) {
	runner, mock := newRunner(t, testFiles())
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).
		WillReturnError(errors.New("permission denied"))

	_, err := runner.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ensure migration table")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPending(t *testing.T) {
	runner, mock := newRunner(t, testFiles())
	expectLedger(mock, "001_create_a.sql")

	pending, err := runner.Pending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"002_create_b.sql", "010_indexes.sql"}, pending)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplied(t *testing.T) {
	runner, mock := newRunner(t, testFiles())
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(selectAppliedSQL)).WillReturnRows(
		sqlmock.NewRows([]string{"id", "migration_name", "executed_at"}).
			AddRow(1, "001_create_a.sql", at).
			AddRow(2, "002_create_b.sql", nil),
	)

	applied, err := runner.Applied(context.Background())
	require.NoError(t, err)
	require.Len(t, applied, 2)
	assert.Equal(t, "001_create_a.sql", applied[0].MigrationName)
	assert.Equal(t, at, applied[0].ExecutedAt)
	assert.True(t, applied[1].ExecutedAt.IsZero())
}
