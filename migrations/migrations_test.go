package migrations

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoplite/shoplite-golang/internal/database"
)

func TestRunCreatesAllTablesInOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	pool := database.NewWithDB(db, database.Config{RetryDelay: time.Millisecond})

	for _, table := range []string{"users", "products", "cart_items", "orders", "order_items"} {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS " + table).
			WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, Run(context.Background(), pool))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunStopsRetryingWhenContextExpires(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	pool := database.NewWithDB(db, database.Config{RetryDelay: time.Millisecond})

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").
		WillReturnError(errors.New("table is locked"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = Run(ctx, pool)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The retry wait must yield to the context, not sit out full delays.
	assert.Less(t, time.Since(start), time.Second)
}
