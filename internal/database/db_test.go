package database

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	apperrors "invoice-generator/internal/pkg/errors"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockPool(t *testing.T, retries int) (*Pool, sqlmock.Sqlmock, *test.Hook) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:               NewGormLogger(log, time.Second),
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)

	pool, err := NewPool(db, Options{Retries: retries, Delay: time.Millisecond, Logger: log})
	require.NoError(t, err)

	return pool, mock, hook
}

func countEntries(hook *test.Hook, prefix string) int {
	n := 0
	for _, e := range hook.AllEntries() {
		if strings.HasPrefix(e.Message, prefix) {
			n++
		}
	}
	return n
}

func TestTestConnectionSucceedsFirstTry(t *testing.T) {
	pool, mock, hook := newMockPool(t, 5)
	mock.ExpectPing()

	require.NoError(t, pool.TestConnection(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, 0, countEntries(hook, "Database connection attempt"))
	assert.Equal(t, 1, countEntries(hook, "Database connection successful"))
}

func TestTestConnectionRetriesExactlyConfiguredTimes(t *testing.T) {
	pool, mock, hook := newMockPool(t, 3)
	refused := errors.New("connection refused")
	for i := 0; i < 3; i++ {
		mock.ExpectPing().WillReturnError(refused)
	}

	err := pool.TestConnection(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrDatabaseError))
	assert.Contains(t, err.Error(), "connection refused")

	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, 3, countEntries(hook, "Database connection attempt"))
	assert.Equal(t, 2, countEntries(hook, "Retrying database connection"))
	assert.Equal(t, 1, countEntries(hook, "Failed to connect to database after all retries"))
}

func TestTestConnectionRecoversBeforeLimit(t *testing.T) {
	pool, mock, hook := newMockPool(t, 5)
	mock.ExpectPing().WillReturnError(errors.New("starting up"))
	mock.ExpectPing().WillReturnError(errors.New("starting up"))
	mock.ExpectPing()

	require.NoError(t, pool.TestConnection(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, 2, countEntries(hook, "Database connection attempt"))
}

func TestTestConnectionStopsWaitingWhenContextCancelled(t *testing.T) {
	pool, mock, hook := newMockPool(t, 5)
	pool.delay = time.Hour
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(20*time.Millisecond, cancel)

	start := time.Now()
	err := pool.TestConnection(ctx)

	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.True(t, errors.Is(err, apperrors.ErrDatabaseError))
	assert.Equal(t, 1, countEntries(hook, "Database connection attempt"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPingDoesNotRetry(t *testing.T) {
	pool, mock, _ := newMockPool(t, 5)
	mock.ExpectPing().WillReturnError(errors.New("down"))

	assert.Error(t, pool.Ping(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryReturnsRows(t *testing.T) {
	pool, mock, _ := newMockPool(t, 1)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT migration_name FROM schema_migrations WHERE migration_name = $1")).
		WithArgs("001_init.sql").
		WillReturnRows(sqlmock.NewRows([]string{"migration_name"}).AddRow("001_init.sql"))

	rows, err := pool.Query(context.Background(), "SELECT migration_name FROM schema_migrations WHERE migration_name = ?", "001_init.sql")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.EqualValues(t, "001_init.sql", rows[0]["migration_name"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryWrapsErrors(t *testing.T) {
	pool, mock, hook := newMockPool(t, 1)
	mock.ExpectQuery("SELECT 1").WillReturnError(errors.New("syntax error"))

	_, err := pool.Query(context.Background(), "SELECT 1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrDatabaseError))
	assert.Equal(t, 1, countEntries(hook, "Database query error"))
}

func TestGetConnection(t *testing.T) {
	pool, mock, _ := newMockPool(t, 1)
	mock.ExpectExec("SET LOCAL statement_timeout").WillReturnResult(sqlmock.NewResult(0, 0))

	conn, err := pool.GetConnection(context.Background())
	require.NoError(t, err)
	_, err = conn.ExecContext(context.Background(), "SET LOCAL statement_timeout = 1000")
	require.NoError(t, err)
	require.NoError(t, conn.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}
