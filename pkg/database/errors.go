package database

import (
	"database/sql"
	stderrors "errors"
	"strings"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/rancho/rancho-backend/pkg/errors"
)

// MapError converts a driver error to an AppError.
// Unique/primary-key violations become Conflict, missing rows become
// NotFound for the given resource, anything else becomes Storage.
func MapError(err error, resource string) error {
	if err == nil {
		return nil
	}

	if stderrors.Is(err, sql.ErrNoRows) {
		return errors.NotFound(resource)
	}

	var sqliteErr *sqlite.Error
	if stderrors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return errors.Conflict("a " + resource + " with these values already exists")
		case sqlite3.SQLITE_CONSTRAINT_CHECK, sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return errors.BadInput("invalid " + resource + " data")
		}
	}

	// Driver versions differ in how they surface constraint codes
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") {
		return errors.Conflict("a " + resource + " with these values already exists")
	}
	if strings.Contains(msg, "CHECK constraint failed") || strings.Contains(msg, "FOREIGN KEY constraint failed") {
		return errors.BadInput("invalid " + resource + " data")
	}

	return errors.Storage(err)
}

// IsNoRows reports whether err is the empty-result sentinel
func IsNoRows(err error) bool {
	return stderrors.Is(err, sql.ErrNoRows)
}
