package repository

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/rancho/rancho-backend/pkg/database"
)

// AdminEntry is one append-only administrative audit row
type AdminEntry struct {
	ID     int64  `db:"id" json:"id"`
	Actor  string `db:"actor" json:"actor"`
	Action string `db:"action" json:"action"`
	Detail string `db:"detail" json:"detail"`
	At     string `db:"at" json:"at"`
}

// BookingLogEntry records one changed booking field
type BookingLogEntry struct {
	ID          int64  `db:"id" json:"id"`
	UserNII     string `db:"user_nii" json:"user_nii"`
	Date        string `db:"date" json:"date"`
	Field       string `db:"field" json:"field"`
	ValueBefore string `db:"value_before" json:"value_before"`
	ValueAfter  string `db:"value_after" json:"value_after"`
	Actor       string `db:"actor" json:"actor"`
	At          string `db:"at" json:"at"`
}

// LoginEvent is one authentication attempt
type LoginEvent struct {
	ID      int64  `db:"id" json:"id"`
	NII     string `db:"nii" json:"nii"`
	Success bool   `db:"success" json:"success"`
	IP      string `db:"ip" json:"ip"`
	At      string `db:"at" json:"at"`
}

// AuditRepository writes and reads the three append-only logs
type AuditRepository struct {
	db *database.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *database.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// RecordAdmin appends one administrative audit row
func (r *AuditRepository) RecordAdmin(ctx context.Context, actor, action, detail string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO admin_audit (actor, action, detail) VALUES (?, ?, ?)`,
		actor, action, detail)
	if err != nil {
		return database.MapError(err, "audit entry")
	}
	return nil
}

// AppendBookingLog appends booking-field changes on the caller's executor,
// so the rows commit in the same transaction as the booking mutation.
func (r *AuditRepository) AppendBookingLog(ctx context.Context, ext sqlx.ExtContext, entries []BookingLogEntry) error {
	for _, e := range entries {
		_, err := ext.ExecContext(ctx, `
			INSERT INTO booking_log (user_nii, date, field, value_before, value_after, actor)
			VALUES (?, ?, ?, ?, ?, ?)
		`, e.UserNII, e.Date, e.Field, e.ValueBefore, e.ValueAfter, e.Actor)
		if err != nil {
			return database.MapError(err, "booking log")
		}
	}
	return nil
}

// RecordLogin appends one authentication attempt
func (r *AuditRepository) RecordLogin(ctx context.Context, nii string, success bool, ip string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO login_events (nii, success, ip) VALUES (?, ?, ?)`,
		nii, success, ip)
	if err != nil {
		return database.MapError(err, "login event")
	}
	return nil
}

// RecentLoginResults returns the outcomes of the newest attempts for a NII,
// most recent first.
func (r *AuditRepository) RecentLoginResults(ctx context.Context, nii string, limit int) ([]bool, error) {
	var results []bool
	err := r.db.SelectContext(ctx, &results,
		`SELECT success FROM login_events WHERE nii = ? ORDER BY id DESC LIMIT ?`,
		nii, limit)
	if err != nil {
		return nil, database.MapError(err, "login event")
	}
	return results, nil
}

// ListAdmin returns administrative audit rows, newest first
func (r *AuditRepository) ListAdmin(ctx context.Context, page, perPage int) ([]*AdminEntry, int64, error) {
	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT count(*) FROM admin_audit`); err != nil {
		return nil, 0, database.MapError(err, "audit entry")
	}

	limit, offset := pageArgs(page, perPage)

	var entries []*AdminEntry
	err := r.db.SelectContext(ctx, &entries,
		`SELECT id, actor, action, detail, at FROM admin_audit ORDER BY id DESC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, 0, database.MapError(err, "audit entry")
	}
	return entries, total, nil
}

// ListBookingLog returns booking-log rows, newest first, optionally
// filtered by NII and/or date.
func (r *AuditRepository) ListBookingLog(ctx context.Context, nii, date string, page, perPage int) ([]*BookingLogEntry, int64, error) {
	where := []string{"1 = 1"}
	args := []interface{}{}
	if nii != "" {
		where = append(where, "user_nii = ?")
		args = append(args, nii)
	}
	if date != "" {
		where = append(where, "date = ?")
		args = append(args, date)
	}
	whereClause := "WHERE " + strings.Join(where, " AND ")

	var total int64
	if err := r.db.GetContext(ctx, &total,
		`SELECT count(*) FROM booking_log `+whereClause, args...); err != nil {
		return nil, 0, database.MapError(err, "booking log")
	}

	limit, offset := pageArgs(page, perPage)
	args = append(args, limit, offset)

	var entries []*BookingLogEntry
	err := r.db.SelectContext(ctx, &entries, `
		SELECT id, user_nii, date, field, value_before, value_after, actor, at
		FROM booking_log `+whereClause+` ORDER BY id DESC LIMIT ? OFFSET ?
	`, args...)
	if err != nil {
		return nil, 0, database.MapError(err, "booking log")
	}
	return entries, total, nil
}

// ListLogins returns login events, newest first, optionally filtered by NII
func (r *AuditRepository) ListLogins(ctx context.Context, nii string, page, perPage int) ([]*LoginEvent, int64, error) {
	where := "WHERE 1 = 1"
	args := []interface{}{}
	if nii != "" {
		where += " AND nii = ?"
		args = append(args, nii)
	}

	var total int64
	if err := r.db.GetContext(ctx, &total,
		`SELECT count(*) FROM login_events `+where, args...); err != nil {
		return nil, 0, database.MapError(err, "login event")
	}

	limit, offset := pageArgs(page, perPage)
	args = append(args, limit, offset)

	var events []*LoginEvent
	err := r.db.SelectContext(ctx, &events,
		`SELECT id, nii, success, ip, at FROM login_events `+where+` ORDER BY id DESC LIMIT ? OFFSET ?`,
		args...)
	if err != nil {
		return nil, 0, database.MapError(err, "login event")
	}
	return events, total, nil
}

func pageArgs(page, perPage int) (limit, offset int) {
	if perPage <= 0 {
		perPage = 50
	}
	if page <= 0 {
		page = 1
	}
	return perPage, (page - 1) * perPage
}
