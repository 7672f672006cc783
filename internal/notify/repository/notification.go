package repository

import (
	"context"

	"github.com/rancho/rancho-backend/pkg/database"
)

// KindDeadline marks the edit-window warning notification
const KindDeadline = "deadline"

// Candidate is one user/date pair that may need a deadline warning
type Candidate struct {
	UserID string `db:"user_id"`
	NII    string `db:"nii"`
	Name   string `db:"full_name"`
	Email  string `db:"email"`
	Phone  string `db:"phone"`
	Date   string `db:"date"`
}

// NotificationRepository tracks sent notifications and finds candidates
type NotificationRepository struct {
	db *database.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *database.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Candidates returns the users holding a non-empty booking for a date in
// [from, to] who are not absent on it. Closed-day filtering is left to
// the caller, which knows the calendar.
func (r *NotificationRepository) Candidates(ctx context.Context, from, to string) ([]*Candidate, error) {
	var candidates []*Candidate
	err := r.db.SelectContext(ctx, &candidates, `
		SELECT u.id AS user_id, u.nii, u.full_name, u.email, u.phone, b.date
		FROM bookings b
		JOIN users u ON u.id = b.user_id
		WHERE b.date >= ? AND b.date <= ?
		  AND u.active = 1
		  AND (b.breakfast = 1 OR b.snack = 1 OR b.lunch_kind != 'none'
		       OR b.dinner_kind != 'none' OR b.leaves_after_dinner = 1)
		  AND NOT EXISTS (
			SELECT 1 FROM absences a
			WHERE a.user_id = b.user_id AND a.from_date <= b.date AND a.to_date >= b.date
		  )
		ORDER BY b.date, u.nii
	`, from, to)
	if err != nil {
		return nil, database.MapError(err, "notification")
	}
	return candidates, nil
}

// MarkSent records the (user, date, kind) triple. The insert is ignored
// when the triple already exists; only a first insert returns true, which
// is what makes sends at-most-once.
func (r *NotificationRepository) MarkSent(ctx context.Context, userID, date, kind string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO notifications_sent (user_id, date, kind) VALUES (?, ?, ?)`,
		userID, date, kind)
	if err != nil {
		return false, database.MapError(err, "notification")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, database.MapError(err, "notification")
	}
	return affected > 0, nil
}
