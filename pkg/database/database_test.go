package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rancho/rancho-backend/pkg/logger"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()

	raw, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })

	return &DB{
		DB:     sqlx.NewDb(raw, "sqlmock"),
		path:   "mock.db",
		logger: logger.New("test", "development"),
	}, mock
}

func TestTransaction_CommitsOnSuccess(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE bookings").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := db.Transaction(context.Background(), func(tx *sqlx.Tx) error {
		_, err := tx.Exec("UPDATE bookings SET breakfast = 1")
		return err
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransaction_RollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)

	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := db.Transaction(context.Background(), func(tx *sqlx.Tx) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHealth_ReportsDown(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectPing().WillReturnError(errors.New("gone"))

	status, _ := db.Health(context.Background())
	assert.Equal(t, "down", status["status"])
}

func TestHealth_ReportsUp(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectPing()

	status, latency := db.Health(context.Background())
	assert.Equal(t, "up", status["status"])
	assert.GreaterOrEqual(t, latency, int64(0))
}
