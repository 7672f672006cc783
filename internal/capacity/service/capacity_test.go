package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditrepo "github.com/rancho/rancho-backend/internal/audit/repository"
	"github.com/rancho/rancho-backend/internal/capacity/repository"
	"github.com/rancho/rancho-backend/internal/meal"
	userdomain "github.com/rancho/rancho-backend/internal/user/domain"
	"github.com/rancho/rancho-backend/pkg/database"
	"github.com/rancho/rancho-backend/pkg/testutil"
)

func newService(t *testing.T) (*CapacityService, *database.DB) {
	t.Helper()

	db := testutil.NewDB(t)
	svc := NewCapacityService(
		repository.NewCapacityRepository(db),
		auditrepo.NewAuditRepository(db),
		testutil.NewLogger(),
	)
	return svc, db
}

func TestSet_NegativeRemovesCap(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, "admin", "2026-03-05", meal.Lunch, 100))

	exceed, err := svc.WouldExceed(ctx, db, "2026-03-05", meal.Lunch, 101)
	require.NoError(t, err)
	assert.True(t, exceed)

	require.NoError(t, svc.Set(ctx, "admin", "2026-03-05", meal.Lunch, -1))

	exceed, err = svc.WouldExceed(ctx, db, "2026-03-05", meal.Lunch, 101)
	require.NoError(t, err)
	assert.False(t, exceed)
}

func TestWouldExceed_CountsOnlyPresentUsers(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	present := testutil.SeedUser(t, db, "100001", "Ana Silva", 2, userdomain.RoleStudent)
	absent := testutil.SeedUser(t, db, "100002", "Bruno Costa", 2, userdomain.RoleStudent)

	testutil.SeedBooking(t, db, present, "2026-03-05", false, false, "normal", "none")
	testutil.SeedBooking(t, db, absent, "2026-03-05", false, false, "normal", "none")
	testutil.SeedAbsence(t, db, absent, "2026-03-01", "2026-03-10")

	require.NoError(t, svc.Set(ctx, "admin", "2026-03-05", meal.Lunch, 2))

	// One counted booking plus one new fits under a cap of two
	exceed, err := svc.WouldExceed(ctx, db, "2026-03-05", meal.Lunch, 1)
	require.NoError(t, err)
	assert.False(t, exceed)

	exceed, err = svc.WouldExceed(ctx, db, "2026-03-05", meal.Lunch, 2)
	require.NoError(t, err)
	assert.True(t, exceed)
}

func TestOccupancy_ReportsAllMeals(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	userID := testutil.SeedUser(t, db, "100001", "Ana Silva", 2, userdomain.RoleStudent)
	testutil.SeedBooking(t, db, userID, "2026-03-05", true, false, "normal", "diet")
	require.NoError(t, svc.Set(ctx, "admin", "2026-03-05", meal.Breakfast, 50))

	occ, err := svc.Occupancy(ctx, "2026-03-05")
	require.NoError(t, err)
	require.Len(t, occ, 4)

	byMeal := map[meal.Meal]Occupancy{}
	for _, o := range occ {
		byMeal[o.Meal] = o
	}

	assert.Equal(t, 1, byMeal[meal.Breakfast].Current)
	require.NotNil(t, byMeal[meal.Breakfast].Max)
	assert.Equal(t, 50, *byMeal[meal.Breakfast].Max)

	assert.Equal(t, 0, byMeal[meal.Snack].Current)
	assert.Nil(t, byMeal[meal.Snack].Max)
	assert.Equal(t, 1, byMeal[meal.Lunch].Current)
	assert.Equal(t, 1, byMeal[meal.Dinner].Current)
}
