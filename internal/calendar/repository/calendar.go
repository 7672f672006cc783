package repository

import (
	"context"

	"github.com/rancho/rancho-backend/pkg/database"
	"github.com/rancho/rancho-backend/pkg/errors"
)

// Entry is an operational calendar entry for one date
type Entry struct {
	Date string  `db:"date" json:"date"`
	Kind string  `db:"kind" json:"kind"`
	Note *string `db:"note" json:"note,omitempty"`
}

// CalendarRepository handles calendar entry persistence
type CalendarRepository struct {
	db *database.DB
}

// NewCalendarRepository creates a new calendar repository
func NewCalendarRepository(db *database.DB) *CalendarRepository {
	return &CalendarRepository{db: db}
}

// Get returns the entry for a date, or nil when none exists
func (r *CalendarRepository) Get(ctx context.Context, date string) (*Entry, error) {
	var entry Entry
	err := r.db.GetContext(ctx, &entry,
		`SELECT date, kind, note FROM calendar_entries WHERE date = ?`, date)
	if database.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, database.MapError(err, "calendar entry")
	}
	return &entry, nil
}

// Upsert creates or replaces the entry for a date
func (r *CalendarRepository) Upsert(ctx context.Context, entry *Entry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO calendar_entries (date, kind, note) VALUES (?, ?, ?)
		ON CONFLICT (date) DO UPDATE SET kind = excluded.kind, note = excluded.note
	`, entry.Date, entry.Kind, entry.Note)
	if err != nil {
		return database.MapError(err, "calendar entry")
	}
	return nil
}

// Delete removes the entry for a date
func (r *CalendarRepository) Delete(ctx context.Context, date string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM calendar_entries WHERE date = ?`, date)
	if err != nil {
		return database.MapError(err, "calendar entry")
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return errors.NotFound("calendar entry")
	}
	return nil
}

// ListRange returns entries for dates in [from, to]
func (r *CalendarRepository) ListRange(ctx context.Context, from, to string) ([]*Entry, error) {
	var entries []*Entry
	err := r.db.SelectContext(ctx, &entries,
		`SELECT date, kind, note FROM calendar_entries WHERE date >= ? AND date <= ? ORDER BY date`,
		from, to)
	if err != nil {
		return nil, database.MapError(err, "calendar entry")
	}
	return entries, nil
}
