package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T) (*Pool, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	// Millisecond delay keeps the retry tests fast and deterministic.
	return NewWithDB(db, Config{RetryDelay: time.Millisecond}), mock
}

func TestConnReturnsVerifiedConnection(t *testing.T) {
	pool, mock := newTestPool(t)

	mock.ExpectPing()

	conn, err := pool.Conn(context.Background())
	require.NoError(t, err)
	require.NotNil(t, conn)

	pool.Release(conn)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnRetriesUpToTheBudgetThenFails(t *testing.T) {
	pool, mock := newTestPool(t)

	down := errors.New("connection refused")
	for i := 0; i < DefaultMaxRetries; i++ {
		mock.ExpectPing().WillReturnError(down)
	}

	_, err := pool.Conn(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)

	// Exactly MaxRetries attempts, not one more.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnRecoversFromTransientFailure(t *testing.T) {
	pool, mock := newTestPool(t)

	down := errors.New("connection refused")
	mock.ExpectPing().WillReturnError(down)
	mock.ExpectPing().WillReturnError(down)
	mock.ExpectPing()

	conn, err := pool.Conn(context.Background())
	require.NoError(t, err)
	pool.Release(conn)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnAbortsWhenContextCancelled(t *testing.T) {
	pool, mock := newTestPool(t)

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pool.Conn(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPoolNeverExceedsItsBound(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	pool := NewWithDB(db, Config{
		Size:           1,
		MaxRetries:     2,
		RetryDelay:     time.Millisecond,
		ConnectTimeout: 10 * time.Millisecond,
	})

	mock.ExpectPing()
	held, err := pool.Conn(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, pool.InUse())

	// The pool is exhausted: a second checkout waits for a free slot,
	// times out, and fails. It never hands out an extra connection.
	_, err = pool.Conn(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 1, pool.InUse())

	// Releasing the held connection frees the slot for the next caller.
	mock.ExpectPing()
	pool.Release(held)
	conn, err := pool.Conn(context.Background())
	require.NoError(t, err)
	pool.Release(conn)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseIsSafeToRepeat(t *testing.T) {
	pool, mock := newTestPool(t)

	mock.ExpectPing()

	conn, err := pool.Conn(context.Background())
	require.NoError(t, err)

	pool.Release(conn)
	pool.Release(conn) // double release must not panic
	pool.Release(nil)
}

func TestInUseTracksCheckouts(t *testing.T) {
	pool, mock := newTestPool(t)

	assert.Equal(t, 0, pool.InUse())

	mock.ExpectPing()
	conn, err := pool.Conn(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, pool.InUse())

	pool.Release(conn)
	assert.Equal(t, 0, pool.InUse())
}

func TestCheckHealth(t *testing.T) {
	pool, mock := newTestPool(t)

	mock.ExpectPing()
	mock.ExpectQuery("SELECT 1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	assert.True(t, pool.CheckHealth(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckHealthReportsFalseWhenUnreachable(t *testing.T) {
	pool, mock := newTestPool(t)

	down := errors.New("connection refused")
	for i := 0; i < DefaultMaxRetries; i++ {
		mock.ExpectPing().WillReturnError(down)
	}

	assert.False(t, pool.CheckHealth(context.Background()))
}

func TestInitializeIsIdempotentOnceEstablished(t *testing.T) {
	pool, _ := newTestPool(t)

	// NewWithDB already holds a handle, so Initialize succeeds immediately.
	require.NoError(t, pool.Initialize(context.Background()))
	require.NoError(t, pool.Initialize(context.Background()))
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}
	cfg.applyDefaults()

	assert.Equal(t, DefaultPoolSize, cfg.Size)
	assert.Equal(t, DefaultMaxRetries, cfg.MaxRetries)
	assert.Equal(t, DefaultRetryDelay, cfg.RetryDelay)
	assert.Equal(t, DefaultConnectTimeout, cfg.ConnectTimeout)

	custom := Config{Size: 10, MaxRetries: 2}
	custom.applyDefaults()
	assert.Equal(t, 10, custom.Size)
	assert.Equal(t, 2, custom.MaxRetries)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_USER", "shoplite")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "shoplite")
	t.Setenv("DB_PORT", "3307")
	t.Setenv("DB_POOL_SIZE", "8")

	cfg, err := ConfigFromEnv()
	require.NoError(t, err)
	assert.Contains(t, cfg.DSN, "tcp(db.internal:3307)")
	assert.Contains(t, cfg.DSN, "parseTime=true")
	assert.Equal(t, 8, cfg.Size)
}

func TestConfigFromEnvRejectsMissingAndInvalidValues(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_USER", "shoplite")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "")

	_, err := ConfigFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_NAME")

	t.Setenv("DB_NAME", "shoplite")
	t.Setenv("DB_POOL_SIZE", "zero")
	_, err = ConfigFromEnv()
	require.Error(t, err)
}
