package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rancho/rancho-backend/internal/meal"
	"github.com/rancho/rancho-backend/pkg/database"
)

// Booking is the single row describing a user's meals for one date.
// An all-default row is a valid "no meals" booking.
type Booking struct {
	ID                string    `db:"id" json:"id"`
	UserID            string    `db:"user_id" json:"user_id"`
	Date              string    `db:"date" json:"date"`
	Breakfast         bool      `db:"breakfast" json:"breakfast"`
	Snack             bool      `db:"snack" json:"snack"`
	LunchKind         meal.Kind `db:"lunch_kind" json:"lunch_kind"`
	DinnerKind        meal.Kind `db:"dinner_kind" json:"dinner_kind"`
	LeavesAfterDinner bool      `db:"leaves_after_dinner" json:"leaves_after_dinner"`
	CreatedAt         string    `db:"created_at" json:"created_at"`
	UpdatedAt         string    `db:"updated_at" json:"updated_at"`
}

const bookingColumns = `id, user_id, date, breakfast, snack, lunch_kind,
	dinner_kind, leaves_after_dinner, created_at, updated_at`

// BookingRepository handles booking persistence
type BookingRepository struct {
	db *database.DB
}

// NewBookingRepository creates a new booking repository
func NewBookingRepository(db *database.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Get returns the booking for (user, date), or nil when none exists
func (r *BookingRepository) Get(ctx context.Context, userID, date string) (*Booking, error) {
	return r.GetTx(ctx, r.db, userID, date)
}

// GetTx is Get on the caller's executor
func (r *BookingRepository) GetTx(ctx context.Context, ext sqlx.ExtContext, userID, date string) (*Booking, error) {
	var booking Booking
	err := sqlx.GetContext(ctx, ext, &booking,
		`SELECT `+bookingColumns+` FROM bookings WHERE user_id = ? AND date = ?`,
		userID, date)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, nil
		}
		return nil, database.MapError(err, "booking")
	}
	return &booking, nil
}

// InsertTx inserts a booking row on the caller's executor
func (r *BookingRepository) InsertTx(ctx context.Context, ext sqlx.ExtContext, booking *Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.New().String()
	}

	_, err := ext.ExecContext(ctx, `
		INSERT INTO bookings (id, user_id, date, breakfast, snack, lunch_kind, dinner_kind, leaves_after_dinner)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		booking.ID, booking.UserID, booking.Date, booking.Breakfast, booking.Snack,
		booking.LunchKind, booking.DinnerKind, booking.LeavesAfterDinner,
	)
	if err != nil {
		return database.MapError(err, "booking")
	}
	return nil
}

// UpdateTx rewrites the meal fields of a booking row on the caller's
// executor. The updated_at bump is left to the table trigger.
func (r *BookingRepository) UpdateTx(ctx context.Context, ext sqlx.ExtContext, booking *Booking) error {
	_, err := ext.ExecContext(ctx, `
		UPDATE bookings SET breakfast = ?, snack = ?, lunch_kind = ?, dinner_kind = ?, leaves_after_dinner = ?
		WHERE id = ?
	`,
		booking.Breakfast, booking.Snack, booking.LunchKind, booking.DinnerKind,
		booking.LeavesAfterDinner, booking.ID,
	)
	if err != nil {
		return database.MapError(err, "booking")
	}
	return nil
}

// ListRange returns a user's bookings with dates in [from, to]
func (r *BookingRepository) ListRange(ctx context.Context, userID, from, to string) ([]*Booking, error) {
	var bookings []*Booking
	err := r.db.SelectContext(ctx, &bookings,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE user_id = ? AND date >= ? AND date <= ? ORDER BY date`,
		userID, from, to)
	if err != nil {
		return nil, database.MapError(err, "booking")
	}
	return bookings, nil
}
