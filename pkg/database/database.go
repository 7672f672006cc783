package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/rancho/rancho-backend/pkg/logger"
)

// DB wraps sqlx.DB over a single SQLite file.
//
// The pool is capped at one connection: SQLite allows one writer at a time
// and every component shares this handle, so the cap serialises writes
// without any application-level locking. Transactions open with
// BEGIN IMMEDIATE (_txlock) so a write transaction holds the write lock
// from its first statement.
type DB struct {
	*sqlx.DB
	path   string
	logger *logger.Logger
}

// New opens or creates the database file at path
func New(path string, log *logger.Logger) (*DB, error) {
	dsn := fmt.Sprintf(
		"file:%s?_txlock=immediate&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)",
		path,
	)

	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	return &DB{
		DB:     db,
		path:   path,
		logger: log,
	}, nil
}

// Path returns the on-disk location of the store. The daily backup
// collaborator is handed this path.
func (db *DB) Path() string {
	return db.path
}

// Ping checks the database connection
func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

// Health returns the health status of the database and the ping latency
// in milliseconds
func (db *DB) Health(ctx context.Context) (map[string]interface{}, int64) {
	status := map[string]interface{}{
		"status": "up",
	}

	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	start := time.Now()
	if err := db.PingContext(ctx); err != nil {
		status["status"] = "down"
		status["error"] = err.Error()
	}

	return status, time.Since(start).Milliseconds()
}

// Backup writes a consistent snapshot of the store to dest. VACUUM INTO
// works on a live database, so it is safe to call while serving.
func (db *DB) Backup(ctx context.Context, dest string) error {
	if _, err := db.ExecContext(ctx, `VACUUM INTO ?`, dest); err != nil {
		return fmt.Errorf("backup to %s: %w", dest, err)
	}
	db.logger.Info().Str("dest", dest).Msg("database backed up")
	return nil
}

// Transaction executes a function within a transaction
func (db *DB) Transaction(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
