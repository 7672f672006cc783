// Package meal holds the shared meal vocabulary: the four meal slots of a
// day and the kinds a lunch or dinner can take.
package meal

// Kind is the variant of a lunch or dinner booking
type Kind string

const (
	KindNone       Kind = "none"
	KindNormal     Kind = "normal"
	KindVegetarian Kind = "vegetarian"
	KindDiet       Kind = "diet"
)

// Valid reports whether k is a known kind
func (k Kind) Valid() bool {
	switch k {
	case KindNone, KindNormal, KindVegetarian, KindDiet:
		return true
	}
	return false
}

// Booked reports whether k represents a booked meal
func (k Kind) Booked() bool {
	return k.Valid() && k != KindNone
}

// Meal names one of the four daily meal slots
type Meal string

const (
	Breakfast Meal = "breakfast"
	Snack     Meal = "snack"
	Lunch     Meal = "lunch"
	Dinner    Meal = "dinner"
)

// All lists the meal slots in serving order
func All() []Meal {
	return []Meal{Breakfast, Snack, Lunch, Dinner}
}

// Valid reports whether m is a known meal slot
func (m Meal) Valid() bool {
	switch m {
	case Breakfast, Snack, Lunch, Dinner:
		return true
	}
	return false
}

// CountExpr returns the SQL predicate under which a bookings row (aliased b)
// contributes one unit of occupancy to the meal.
func (m Meal) CountExpr() string {
	switch m {
	case Breakfast:
		return "b.breakfast = 1"
	case Snack:
		return "b.snack = 1"
	case Lunch:
		return "b.lunch_kind != 'none'"
	case Dinner:
		return "b.dinner_kind != 'none'"
	}
	return "0"
}

// NotAbsentExpr excludes bookings whose owner has an active absence on the
// booking date. Absent users' bookings are treated as empty for occupancy
// and for totals.
const NotAbsentExpr = `NOT EXISTS (
	SELECT 1 FROM absences a
	WHERE a.user_id = b.user_id AND a.from_date <= b.date AND a.to_date >= b.date
)`
