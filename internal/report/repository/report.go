package repository

import (
	"context"

	"github.com/rancho/rancho-backend/internal/booking/repository"
	"github.com/rancho/rancho-backend/internal/meal"
	"github.com/rancho/rancho-backend/internal/user/domain"
	"github.com/rancho/rancho-backend/pkg/database"
)

// DayTotals are the per-meal counts for one date
type DayTotals struct {
	Date          string `db:"-" json:"date"`
	Breakfast     int    `db:"breakfast" json:"breakfast"`
	Snack         int    `db:"snack" json:"snack"`
	LunchNormal   int    `db:"lunch_normal" json:"lunch_normal"`
	LunchVeg      int    `db:"lunch_veg" json:"lunch_veg"`
	LunchDiet     int    `db:"lunch_diet" json:"lunch_diet"`
	DinnerNormal  int    `db:"dinner_normal" json:"dinner_normal"`
	DinnerVeg     int    `db:"dinner_veg" json:"dinner_veg"`
	DinnerDiet    int    `db:"dinner_diet" json:"dinner_diet"`
	DinnerLeavers int    `db:"dinner_leavers" json:"dinner_leavers"`
}

// RosterRow pairs one user of a year with their booking and absence state
// on a date
type RosterRow struct {
	User    *domain.User        `json:"user"`
	Booking *repository.Booking `json:"booking,omitempty"`
	Absent  bool                `json:"absent"`
}

// ReportRepository derives totals and rosters from the store
type ReportRepository struct {
	db *database.DB
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *database.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// DayTotals counts booked meals on a date. Absent users and concluded
// (year 0) users never count; a non-nil year restricts to that year.
func (r *ReportRepository) DayTotals(ctx context.Context, date string, year *int) (*DayTotals, error) {
	query := `
		SELECT
			count(CASE WHEN b.breakfast = 1 THEN 1 END)                 AS breakfast,
			count(CASE WHEN b.snack = 1 THEN 1 END)                     AS snack,
			count(CASE WHEN b.lunch_kind = 'normal' THEN 1 END)         AS lunch_normal,
			count(CASE WHEN b.lunch_kind = 'vegetarian' THEN 1 END)     AS lunch_veg,
			count(CASE WHEN b.lunch_kind = 'diet' THEN 1 END)           AS lunch_diet,
			count(CASE WHEN b.dinner_kind = 'normal' THEN 1 END)        AS dinner_normal,
			count(CASE WHEN b.dinner_kind = 'vegetarian' THEN 1 END)    AS dinner_veg,
			count(CASE WHEN b.dinner_kind = 'diet' THEN 1 END)          AS dinner_diet,
			count(CASE WHEN b.leaves_after_dinner = 1 THEN 1 END)       AS dinner_leavers
		FROM bookings b
		JOIN users u ON u.id = b.user_id
		WHERE b.date = ? AND u.year != 0 AND ` + meal.NotAbsentExpr

	args := []interface{}{date}
	if year != nil {
		query += ` AND u.year = ?`
		args = append(args, *year)
	}

	totals := &DayTotals{Date: date}
	if err := r.db.GetContext(ctx, totals, query, args...); err != nil {
		return nil, database.MapError(err, "totals")
	}
	return totals, nil
}

// Roster returns every active user of a year with their booking and
// absence state on the date. Users without a booking row appear with a
// nil booking.
func (r *ReportRepository) Roster(ctx context.Context, users []*domain.User, date string) ([]*RosterRow, error) {
	var bookings []*repository.Booking
	err := r.db.SelectContext(ctx, &bookings, `
		SELECT b.id, b.user_id, b.date, b.breakfast, b.snack, b.lunch_kind,
			b.dinner_kind, b.leaves_after_dinner, b.created_at, b.updated_at
		FROM bookings b WHERE b.date = ?
	`, date)
	if err != nil {
		return nil, database.MapError(err, "roster")
	}
	byUser := map[string]*repository.Booking{}
	for _, b := range bookings {
		byUser[b.UserID] = b
	}

	var absentIDs []string
	err = r.db.SelectContext(ctx, &absentIDs,
		`SELECT user_id FROM absences WHERE from_date <= ? AND to_date >= ?`,
		date, date)
	if err != nil {
		return nil, database.MapError(err, "roster")
	}
	absent := map[string]bool{}
	for _, id := range absentIDs {
		absent[id] = true
	}

	rows := make([]*RosterRow, 0, len(users))
	for _, u := range users {
		rows = append(rows, &RosterRow{
			User:    u,
			Booking: byUser[u.ID],
			Absent:  absent[u.ID],
		})
	}
	return rows, nil
}
