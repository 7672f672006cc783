package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rancho/rancho-backend/pkg/database"
	"github.com/rancho/rancho-backend/pkg/errors"
)

// Absence is a closed date interval during which a user eats no meals
type Absence struct {
	ID        string  `db:"id" json:"id"`
	UserID    string  `db:"user_id" json:"user_id"`
	FromDate  string  `db:"from_date" json:"from_date"`
	ToDate    string  `db:"to_date" json:"to_date"`
	Reason    *string `db:"reason" json:"reason,omitempty"`
	Author    string  `db:"author" json:"author"`
	CreatedAt string  `db:"created_at" json:"created_at"`
}

// AbsenceRepository handles absence persistence
type AbsenceRepository struct {
	db *database.DB
}

// NewAbsenceRepository creates a new absence repository
func NewAbsenceRepository(db *database.DB) *AbsenceRepository {
	return &AbsenceRepository{db: db}
}

// Create inserts an absence
func (r *AbsenceRepository) Create(ctx context.Context, absence *Absence) error {
	if absence.ID == "" {
		absence.ID = uuid.New().String()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO absences (id, user_id, from_date, to_date, reason, author)
		VALUES (?, ?, ?, ?, ?, ?)
	`, absence.ID, absence.UserID, absence.FromDate, absence.ToDate, absence.Reason, absence.Author)
	if err != nil {
		return database.MapError(err, "absence")
	}
	return nil
}

// GetByID returns one absence
func (r *AbsenceRepository) GetByID(ctx context.Context, id string) (*Absence, error) {
	var absence Absence
	err := r.db.GetContext(ctx, &absence, `
		SELECT id, user_id, from_date, to_date, reason, author, created_at
		FROM absences WHERE id = ?
	`, id)
	if err != nil {
		return nil, database.MapError(err, "absence")
	}
	return &absence, nil
}

// Delete removes an absence
func (r *AbsenceRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM absences WHERE id = ?`, id)
	if err != nil {
		return database.MapError(err, "absence")
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return errors.NotFound("absence")
	}
	return nil
}

// ListByUser returns a user's absences, newest interval first
func (r *AbsenceRepository) ListByUser(ctx context.Context, userID string) ([]*Absence, error) {
	var absences []*Absence
	err := r.db.SelectContext(ctx, &absences, `
		SELECT id, user_id, from_date, to_date, reason, author, created_at
		FROM absences WHERE user_id = ? ORDER BY from_date DESC
	`, userID)
	if err != nil {
		return nil, database.MapError(err, "absence")
	}
	return absences, nil
}

// ListOverlapping returns the absences that intersect [from, to]
func (r *AbsenceRepository) ListOverlapping(ctx context.Context, from, to string) ([]*Absence, error) {
	var absences []*Absence
	err := r.db.SelectContext(ctx, &absences, `
		SELECT id, user_id, from_date, to_date, reason, author, created_at
		FROM absences WHERE from_date <= ? AND to_date >= ?
		ORDER BY from_date, user_id
	`, to, from)
	if err != nil {
		return nil, database.MapError(err, "absence")
	}
	return absences, nil
}

// IsAbsent reports whether the user has an absence covering the date
func (r *AbsenceRepository) IsAbsent(ctx context.Context, userID, date string) (bool, error) {
	return r.isAbsentOn(ctx, r.db, userID, date)
}

// IsAbsentTx is IsAbsent on the caller's executor, for checks that must
// see the state inside an open write transaction.
func (r *AbsenceRepository) IsAbsentTx(ctx context.Context, ext sqlx.ExtContext, userID, date string) (bool, error) {
	return r.isAbsentOn(ctx, ext, userID, date)
}

func (r *AbsenceRepository) isAbsentOn(ctx context.Context, ext sqlx.ExtContext, userID, date string) (bool, error) {
	var count int
	err := sqlx.GetContext(ctx, ext, &count, `
		SELECT count(*) FROM absences
		WHERE user_id = ? AND from_date <= ? AND to_date >= ?
	`, userID, date, date)
	if err != nil {
		return false, database.MapError(err, "absence")
	}
	return count > 0, nil
}
