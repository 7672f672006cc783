package repository

import (
	"context"

	"github.com/rancho/rancho-backend/pkg/database"
)

// Menu is the published meal plan for one date. Slots are free text and
// may be empty when the kitchen has not filled them in.
type Menu struct {
	Date         string  `db:"date" json:"date"`
	Breakfast    *string `db:"breakfast" json:"breakfast,omitempty"`
	Snack        *string `db:"snack" json:"snack,omitempty"`
	LunchNormal  *string `db:"lunch_normal" json:"lunch_normal,omitempty"`
	LunchVeg     *string `db:"lunch_veg" json:"lunch_veg,omitempty"`
	LunchDiet    *string `db:"lunch_diet" json:"lunch_diet,omitempty"`
	DinnerNormal *string `db:"dinner_normal" json:"dinner_normal,omitempty"`
	DinnerVeg    *string `db:"dinner_veg" json:"dinner_veg,omitempty"`
	DinnerDiet   *string `db:"dinner_diet" json:"dinner_diet,omitempty"`
}

// MenuRepository handles daily menu persistence
type MenuRepository struct {
	db *database.DB
}

// NewMenuRepository creates a new menu repository
func NewMenuRepository(db *database.DB) *MenuRepository {
	return &MenuRepository{db: db}
}

// Upsert creates or replaces the menu for a date
func (r *MenuRepository) Upsert(ctx context.Context, menu *Menu) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO daily_menus (date, breakfast, snack, lunch_normal, lunch_veg, lunch_diet,
			dinner_normal, dinner_veg, dinner_diet)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (date) DO UPDATE SET
			breakfast = excluded.breakfast,
			snack = excluded.snack,
			lunch_normal = excluded.lunch_normal,
			lunch_veg = excluded.lunch_veg,
			lunch_diet = excluded.lunch_diet,
			dinner_normal = excluded.dinner_normal,
			dinner_veg = excluded.dinner_veg,
			dinner_diet = excluded.dinner_diet
	`,
		menu.Date, menu.Breakfast, menu.Snack, menu.LunchNormal, menu.LunchVeg,
		menu.LunchDiet, menu.DinnerNormal, menu.DinnerVeg, menu.DinnerDiet,
	)
	if err != nil {
		return database.MapError(err, "menu")
	}
	return nil
}

// Get returns the menu for a date, or nil when none is published
func (r *MenuRepository) Get(ctx context.Context, date string) (*Menu, error) {
	var menu Menu
	err := r.db.GetContext(ctx, &menu, `
		SELECT date, breakfast, snack, lunch_normal, lunch_veg, lunch_diet,
			dinner_normal, dinner_veg, dinner_diet
		FROM daily_menus WHERE date = ?
	`, date)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, nil
		}
		return nil, database.MapError(err, "menu")
	}
	return &menu, nil
}

// ListRange returns the menus with dates in [from, to]
func (r *MenuRepository) ListRange(ctx context.Context, from, to string) ([]*Menu, error) {
	var menus []*Menu
	err := r.db.SelectContext(ctx, &menus, `
		SELECT date, breakfast, snack, lunch_normal, lunch_veg, lunch_diet,
			dinner_normal, dinner_veg, dinner_diet
		FROM daily_menus WHERE date >= ? AND date <= ? ORDER BY date
	`, from, to)
	if err != nil {
		return nil, database.MapError(err, "menu")
	}
	return menus, nil
}
