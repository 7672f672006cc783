package database

import (
	"context"
	"fmt"
)

// createTables is the idempotent base schema. Dates are TEXT YYYY-MM-DD,
// instants are TEXT RFC 3339, booleans are 0/1.
//
// The email/phone/active columns on users are intentionally absent here:
// they were added after the first deployments and ensureUserColumns adds
// them through introspection so older files upgrade without data loss.
var createTables = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id                   TEXT PRIMARY KEY,
		nii                  TEXT NOT NULL UNIQUE,
		ni                   TEXT NOT NULL DEFAULT '',
		full_name            TEXT NOT NULL,
		year                 INTEGER NOT NULL DEFAULT 1 CHECK (year >= 0 AND year <= 8),
		role                 TEXT NOT NULL DEFAULT 'student'
			CHECK (role IN ('student', 'kitchen', 'duty-officer', 'year-commander', 'admin')),
		password_hash        TEXT NOT NULL,
		must_change_password INTEGER NOT NULL DEFAULT 0,
		locked_until         TEXT,
		created_at           TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
		updated_at           TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
	)`,

	`CREATE TABLE IF NOT EXISTS bookings (
		id                  TEXT PRIMARY KEY,
		user_id             TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		date                TEXT NOT NULL,
		breakfast           INTEGER NOT NULL DEFAULT 0,
		snack               INTEGER NOT NULL DEFAULT 0,
		lunch_kind          TEXT NOT NULL DEFAULT 'none'
			CHECK (lunch_kind IN ('none', 'normal', 'vegetarian', 'diet')),
		dinner_kind         TEXT NOT NULL DEFAULT 'none'
			CHECK (dinner_kind IN ('none', 'normal', 'vegetarian', 'diet')),
		leaves_after_dinner INTEGER NOT NULL DEFAULT 0,
		created_at          TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
		updated_at          TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
		UNIQUE (user_id, date)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_bookings_date ON bookings(date)`,

	`CREATE TABLE IF NOT EXISTS absences (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		from_date  TEXT NOT NULL,
		to_date    TEXT NOT NULL,
		reason     TEXT,
		author     TEXT NOT NULL,
		created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
		CHECK (from_date <= to_date)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_absences_user_dates ON absences(user_id, from_date, to_date)`,

	`CREATE TABLE IF NOT EXISTS daily_menus (
		date          TEXT PRIMARY KEY,
		breakfast     TEXT,
		snack         TEXT,
		lunch_normal  TEXT,
		lunch_veg     TEXT,
		lunch_diet    TEXT,
		dinner_normal TEXT,
		dinner_veg    TEXT,
		dinner_diet   TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS meal_capacities (
		date      TEXT NOT NULL,
		meal      TEXT NOT NULL CHECK (meal IN ('breakfast', 'snack', 'lunch', 'dinner')),
		max_total INTEGER NOT NULL,
		PRIMARY KEY (date, meal)
	)`,

	`CREATE TABLE IF NOT EXISTS calendar_entries (
		date TEXT PRIMARY KEY,
		kind TEXT NOT NULL CHECK (kind IN ('normal', 'weekend', 'holiday', 'exercise', 'other')),
		note TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS booking_log (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		user_nii     TEXT NOT NULL,
		date         TEXT NOT NULL,
		field        TEXT NOT NULL,
		value_before TEXT NOT NULL,
		value_after  TEXT NOT NULL,
		actor        TEXT NOT NULL,
		at           TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
	)`,

	`CREATE INDEX IF NOT EXISTS idx_booking_log_user_date ON booking_log(user_nii, date)`,

	`CREATE TABLE IF NOT EXISTS login_events (
		id      INTEGER PRIMARY KEY AUTOINCREMENT,
		nii     TEXT NOT NULL,
		success INTEGER NOT NULL,
		ip      TEXT NOT NULL DEFAULT '',
		at      TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
	)`,

	`CREATE INDEX IF NOT EXISTS idx_login_events_nii ON login_events(nii, id)`,

	`CREATE TABLE IF NOT EXISTS admin_audit (
		id     INTEGER PRIMARY KEY AUTOINCREMENT,
		actor  TEXT NOT NULL,
		action TEXT NOT NULL,
		detail TEXT NOT NULL DEFAULT '',
		at     TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
	)`,

	`CREATE TABLE IF NOT EXISTS notifications_sent (
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		date    TEXT NOT NULL,
		kind    TEXT NOT NULL DEFAULT 'deadline',
		at      TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
		PRIMARY KEY (user_id, date, kind)
	)`,

	`CREATE TRIGGER IF NOT EXISTS bookings_touch_updated
	 AFTER UPDATE ON bookings
	 BEGIN
		UPDATE bookings SET updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
		WHERE id = NEW.id;
	 END`,
}

// userColumnUpgrades are columns added to users after the initial schema
var userColumnUpgrades = map[string]string{
	"email":  `ALTER TABLE users ADD COLUMN email TEXT NOT NULL DEFAULT ''`,
	"phone":  `ALTER TABLE users ADD COLUMN phone TEXT NOT NULL DEFAULT ''`,
	"active": `ALTER TABLE users ADD COLUMN active INTEGER NOT NULL DEFAULT 1`,
}

var ftsDDL = []string{
	`CREATE VIRTUAL TABLE IF NOT EXISTS users_fts USING fts5(nii UNINDEXED, full_name)`,

	`CREATE TRIGGER IF NOT EXISTS users_fts_ai AFTER INSERT ON users BEGIN
		INSERT INTO users_fts (nii, full_name) VALUES (NEW.nii, NEW.full_name);
	 END`,

	`CREATE TRIGGER IF NOT EXISTS users_fts_ad AFTER DELETE ON users BEGIN
		DELETE FROM users_fts WHERE nii = OLD.nii;
	 END`,

	`CREATE TRIGGER IF NOT EXISTS users_fts_au AFTER UPDATE ON users BEGIN
		DELETE FROM users_fts WHERE nii = OLD.nii;
		INSERT INTO users_fts (nii, full_name) VALUES (NEW.nii, NEW.full_name);
	 END`,
}

var ftsDropDDL = []string{
	`DROP TRIGGER IF EXISTS users_fts_ai`,
	`DROP TRIGGER IF EXISTS users_fts_ad`,
	`DROP TRIGGER IF EXISTS users_fts_au`,
	`DROP TABLE IF EXISTS users_fts`,
}

// Bootstrap creates or repairs the schema. It is idempotent and must run
// to completion before any request is served.
func (db *DB) Bootstrap(ctx context.Context) error {
	for _, ddl := range createTables {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("schema bootstrap: %w", err)
		}
	}

	if err := db.ensureUserColumns(ctx); err != nil {
		return err
	}

	if err := db.ensureNameIndex(ctx); err != nil {
		return err
	}

	db.logger.Info().Str("path", db.path).Msg("schema bootstrap complete")
	return nil
}

// ensureUserColumns adds columns to users that older database files miss
func (db *DB) ensureUserColumns(ctx context.Context) error {
	rows, err := db.QueryxContext(ctx, `PRAGMA table_info(users)`)
	if err != nil {
		return fmt.Errorf("introspect users: %w", err)
	}
	defer rows.Close()

	existing := map[string]bool{}
	for rows.Next() {
		var (
			cid       int
			name, typ string
			notnull   int
			dflt      interface{}
			pk        int
		)
		if err := rows.Scan(&cid, &name, &typ, &notnull, &dflt, &pk); err != nil {
			return fmt.Errorf("introspect users: %w", err)
		}
		existing[name] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("introspect users: %w", err)
	}

	for col, ddl := range userColumnUpgrades {
		if existing[col] {
			continue
		}
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("add users.%s: %w", col, err)
		}
		db.logger.Info().Str("column", col).Msg("added missing users column")
	}

	return nil
}

// ensureNameIndex creates the full-text index over users.full_name and the
// triggers that keep it synchronised. If the index exists but cannot be
// read it is dropped and rebuilt from the base table.
func (db *DB) ensureNameIndex(ctx context.Context) error {
	var exists int
	if err := db.GetContext(ctx, &exists,
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'users_fts'`,
	); err != nil {
		return fmt.Errorf("fts lookup: %w", err)
	}

	if exists == 0 {
		return db.rebuildNameIndex(ctx)
	}

	var n int
	probeErr := db.GetContext(ctx, &n, `SELECT count(*) FROM users_fts`)
	if probeErr == nil {
		// Index is readable; make sure the triggers exist too
		for _, ddl := range ftsDDL {
			if _, err := db.ExecContext(ctx, ddl); err != nil {
				return fmt.Errorf("fts triggers: %w", err)
			}
		}
		return nil
	}

	db.logger.Warn().Err(probeErr).Msg("name index unreadable, rebuilding")
	return db.rebuildNameIndex(ctx)
}

// rebuildNameIndex drops any existing index and rebuilds it from users
func (db *DB) rebuildNameIndex(ctx context.Context) error {

	for _, ddl := range ftsDropDDL {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("fts drop: %w", err)
		}
	}
	for _, ddl := range ftsDDL {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("fts create: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx,
		`INSERT INTO users_fts (nii, full_name) SELECT nii, full_name FROM users`,
	); err != nil {
		return fmt.Errorf("fts repopulate: %w", err)
	}

	return nil
}
