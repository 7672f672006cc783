// Package testutil provides helpers for tests that need a real database.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/rancho/rancho-backend/pkg/database"
	"github.com/rancho/rancho-backend/pkg/logger"
)

// NewLogger returns a quiet development logger for tests
func NewLogger() *logger.Logger {
	return logger.New("test", "development")
}

// NewDB opens a bootstrapped database in a temporary directory.
// The file is removed with the test's temp dir.
func NewDB(t *testing.T) *database.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := database.New(path, NewLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Bootstrap(context.Background()))
	return db
}

// SeedUser inserts a user row directly and returns its id
func SeedUser(t *testing.T, db *database.DB, nii, fullName string, year int, role string) string {
	t.Helper()

	id := uuid.New().String()
	_, err := db.ExecContext(context.Background(), `
		INSERT INTO users (id, nii, ni, full_name, year, role, password_hash, email, phone, active)
		VALUES (?, ?, ?, ?, ?, ?, 'x', '', '', 1)
	`, id, nii, nii, fullName, year, role)
	require.NoError(t, err)
	return id
}

// SeedAbsence inserts an absence covering [from, to] for the user
func SeedAbsence(t *testing.T, db *database.DB, userID, from, to string) {
	t.Helper()

	_, err := db.ExecContext(context.Background(), `
		INSERT INTO absences (id, user_id, from_date, to_date, author)
		VALUES (?, ?, ?, ?, 'test')
	`, uuid.New().String(), userID, from, to)
	require.NoError(t, err)
}

// SeedBooking inserts a booking row for the user on a date
func SeedBooking(t *testing.T, db *database.DB, userID, date string, breakfast, snack bool, lunchKind, dinnerKind string) {
	t.Helper()

	_, err := db.ExecContext(context.Background(), `
		INSERT INTO bookings (id, user_id, date, breakfast, snack, lunch_kind, dinner_kind)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, uuid.New().String(), userID, date, breakfast, snack, lunchKind, dinnerKind)
	require.NoError(t, err)
}

// SeedCapacity sets the cap for one meal on one date
func SeedCapacity(t *testing.T, db *database.DB, date, meal string, max int) {
	t.Helper()

	_, err := db.ExecContext(context.Background(), `
		INSERT INTO meal_capacities (date, meal, max_total) VALUES (?, ?, ?)
		ON CONFLICT (date, meal) DO UPDATE SET max_total = excluded.max_total
	`, date, meal, max)
	require.NoError(t, err)
}

// SeedCalendarEntry sets the kind for one date
func SeedCalendarEntry(t *testing.T, db *database.DB, date, kind string) {
	t.Helper()

	_, err := db.ExecContext(context.Background(),
		`INSERT INTO calendar_entries (date, kind) VALUES (?, ?)
		 ON CONFLICT (date) DO UPDATE SET kind = excluded.kind`, date, kind)
	require.NoError(t, err)
}
