package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/rancho/rancho-backend/internal/meal"
	"github.com/rancho/rancho-backend/pkg/database"
)

// Cap is the configured limit for one meal on one date
type Cap struct {
	Date     string `db:"date" json:"date"`
	Meal     string `db:"meal" json:"meal"`
	MaxTotal int    `db:"max_total" json:"max_total"`
}

// CapacityRepository handles meal capacity persistence and occupancy counts
type CapacityRepository struct {
	db *database.DB
}

// NewCapacityRepository creates a new capacity repository
func NewCapacityRepository(db *database.DB) *CapacityRepository {
	return &CapacityRepository{db: db}
}

// Ext exposes the backing database as an executor, for occupancy queries
// that run outside any transaction.
func (r *CapacityRepository) Ext() sqlx.ExtContext {
	return r.db
}

// Set creates or replaces the cap for one meal on one date
func (r *CapacityRepository) Set(ctx context.Context, date string, m meal.Meal, max int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO meal_capacities (date, meal, max_total) VALUES (?, ?, ?)
		ON CONFLICT (date, meal) DO UPDATE SET max_total = excluded.max_total
	`, date, m, max)
	if err != nil {
		return database.MapError(err, "capacity")
	}
	return nil
}

// Remove deletes the cap for one meal on one date, making it unlimited
func (r *CapacityRepository) Remove(ctx context.Context, date string, m meal.Meal) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM meal_capacities WHERE date = ? AND meal = ?`, date, m)
	if err != nil {
		return database.MapError(err, "capacity")
	}
	return nil
}

// ListByDate returns the caps configured for a date
func (r *CapacityRepository) ListByDate(ctx context.Context, date string) ([]*Cap, error) {
	var caps []*Cap
	err := r.db.SelectContext(ctx, &caps,
		`SELECT date, meal, max_total FROM meal_capacities WHERE date = ? ORDER BY meal`,
		date)
	if err != nil {
		return nil, database.MapError(err, "capacity")
	}
	return caps, nil
}

// CapFor returns the cap for one meal on one date on the caller's executor.
// The second return is false when no cap is configured.
func (r *CapacityRepository) CapFor(ctx context.Context, ext sqlx.ExtContext, date string, m meal.Meal) (int, bool, error) {
	var max int
	err := sqlx.GetContext(ctx, ext, &max,
		`SELECT max_total FROM meal_capacities WHERE date = ? AND meal = ?`, date, m)
	if err != nil {
		if database.IsNoRows(err) {
			return 0, false, nil
		}
		return 0, false, database.MapError(err, "capacity")
	}
	return max, true, nil
}

// Count returns the occupancy of one meal on one date on the caller's
// executor. Bookings of absent users do not count.
func (r *CapacityRepository) Count(ctx context.Context, ext sqlx.ExtContext, date string, m meal.Meal) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, ext, &count, `
		SELECT count(*) FROM bookings b
		WHERE b.date = ? AND `+m.CountExpr()+` AND `+meal.NotAbsentExpr,
		date)
	if err != nil {
		return 0, database.MapError(err, "capacity")
	}
	return count, nil
}
