package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rancho/rancho-backend/pkg/logger"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	log := logger.New("test", "development")
	db, err := New(filepath.Join(t.TempDir(), "rancho.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}

func TestBootstrap_CreatesSchema(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	require.NoError(t, db.Bootstrap(ctx))

	var tables []string
	err := db.SelectContext(ctx, &tables,
		`SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name`)
	require.NoError(t, err)

	for _, want := range []string{
		"users", "bookings", "absences", "daily_menus", "meal_capacities",
		"calendar_entries", "booking_log", "login_events", "admin_audit",
		"notifications_sent", "users_fts",
	} {
		assert.Contains(t, tables, want)
	}
}

func TestBootstrap_Idempotent(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	require.NoError(t, db.Bootstrap(ctx))

	_, err := db.ExecContext(ctx,
		`INSERT INTO users (id, nii, full_name, password_hash) VALUES ('u1', '12345', 'Ana Silva', 'x')`)
	require.NoError(t, err)

	// Applying the bootstrap to a correct database is a no-op
	require.NoError(t, db.Bootstrap(ctx))

	var count int
	require.NoError(t, db.GetContext(ctx, &count, `SELECT count(*) FROM users`))
	assert.Equal(t, 1, count)
}

func TestBootstrap_AddsMissingUserColumns(t *testing.T) {
	ctx := context.Background()

	log := logger.New("test", "development")
	path := filepath.Join(t.TempDir(), "old.db")
	db, err := New(path, log)
	require.NoError(t, err)
	defer db.Close()

	// Simulate a database created before email/phone/active existed
	_, err = db.ExecContext(ctx, `CREATE TABLE users (
		id TEXT PRIMARY KEY,
		nii TEXT NOT NULL UNIQUE,
		ni TEXT NOT NULL DEFAULT '',
		full_name TEXT NOT NULL,
		year INTEGER NOT NULL DEFAULT 1,
		role TEXT NOT NULL DEFAULT 'student',
		password_hash TEXT NOT NULL,
		must_change_password INTEGER NOT NULL DEFAULT 0,
		locked_until TEXT,
		created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
		updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
	)`)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx,
		`INSERT INTO users (id, nii, full_name, password_hash) VALUES ('u1', '12345', 'Ana Silva', 'x')`)
	require.NoError(t, err)

	require.NoError(t, db.Bootstrap(ctx))

	// Existing data survives and the new columns carry their defaults
	var row struct {
		FullName string `db:"full_name"`
		Email    string `db:"email"`
		Phone    string `db:"phone"`
		Active   int    `db:"active"`
	}
	err = db.GetContext(ctx, &row,
		`SELECT full_name, email, phone, active FROM users WHERE id = 'u1'`)
	require.NoError(t, err)
	assert.Equal(t, "Ana Silva", row.FullName)
	assert.Equal(t, "", row.Email)
	assert.Equal(t, 1, row.Active)
}

func TestBootstrap_RebuildsNameIndex(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	require.NoError(t, db.Bootstrap(ctx))

	_, err := db.ExecContext(ctx,
		`INSERT INTO users (id, nii, full_name, password_hash) VALUES ('u1', '12345', 'Ana Silva', 'x')`)
	require.NoError(t, err)

	// Losing the index entirely is the crudest form of corruption
	for _, ddl := range ftsDropDDL {
		_, err := db.ExecContext(ctx, ddl)
		require.NoError(t, err)
	}

	require.NoError(t, db.Bootstrap(ctx))

	var names []string
	err = db.SelectContext(ctx, &names,
		`SELECT full_name FROM users_fts WHERE users_fts MATCH 'Silva'`)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ana Silva"}, names)
}

func TestNameIndex_TriggersKeepSync(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	require.NoError(t, db.Bootstrap(ctx))

	_, err := db.ExecContext(ctx,
		`INSERT INTO users (id, nii, full_name, password_hash) VALUES ('u1', '12345', 'Ana Silva', 'x')`)
	require.NoError(t, err)

	var count int
	require.NoError(t, db.GetContext(ctx, &count,
		`SELECT count(*) FROM users_fts WHERE users_fts MATCH 'Silva'`))
	assert.Equal(t, 1, count)

	_, err = db.ExecContext(ctx, `UPDATE users SET full_name = 'Ana Costa' WHERE id = 'u1'`)
	require.NoError(t, err)

	require.NoError(t, db.GetContext(ctx, &count,
		`SELECT count(*) FROM users_fts WHERE users_fts MATCH 'Costa'`))
	assert.Equal(t, 1, count)

	_, err = db.ExecContext(ctx, `DELETE FROM users WHERE id = 'u1'`)
	require.NoError(t, err)

	require.NoError(t, db.GetContext(ctx, &count, `SELECT count(*) FROM users_fts`))
	assert.Equal(t, 0, count)
}

func TestBookings_UpdatedAtTrigger(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	require.NoError(t, db.Bootstrap(ctx))

	_, err := db.ExecContext(ctx,
		`INSERT INTO users (id, nii, full_name, password_hash) VALUES ('u1', '12345', 'Ana Silva', 'x')`)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx,
		`INSERT INTO bookings (id, user_id, date, breakfast, created_at, updated_at)
		 VALUES ('b1', 'u1', '2026-03-05', 1, '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z')`)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, `UPDATE bookings SET breakfast = 0 WHERE id = 'b1'`)
	require.NoError(t, err)

	var updatedAt string
	require.NoError(t, db.GetContext(ctx, &updatedAt,
		`SELECT updated_at FROM bookings WHERE id = 'b1'`))
	assert.NotEqual(t, "2026-01-01T00:00:00Z", updatedAt)
}
