package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rancho/rancho-backend/internal/report/repository"
	userdomain "github.com/rancho/rancho-backend/internal/user/domain"
	userrepo "github.com/rancho/rancho-backend/internal/user/repository"
	"github.com/rancho/rancho-backend/pkg/database"
	"github.com/rancho/rancho-backend/pkg/testutil"
)

func newService(t *testing.T) (*ReportService, *database.DB) {
	t.Helper()

	db := testutil.NewDB(t)
	svc := NewReportService(
		repository.NewReportRepository(db),
		userrepo.NewUserRepository(db),
		testutil.NewLogger(),
	)
	return svc, db
}

func TestDayTotals_ExcludesAbsenteesAndConcluded(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	present := testutil.SeedUser(t, db, "100001", "Ana Silva", 2, userdomain.RoleStudent)
	absent := testutil.SeedUser(t, db, "100002", "Bruno Costa", 2, userdomain.RoleStudent)
	concluded := testutil.SeedUser(t, db, "100003", "Carla Nunes", 0, userdomain.RoleStudent)

	testutil.SeedBooking(t, db, present, "2026-03-05", true, false, "normal", "diet")
	testutil.SeedBooking(t, db, absent, "2026-03-05", true, true, "normal", "normal")
	testutil.SeedBooking(t, db, concluded, "2026-03-05", true, false, "vegetarian", "none")
	testutil.SeedAbsence(t, db, absent, "2026-03-05", "2026-03-05")

	totals, err := svc.DayTotals(ctx, "2026-03-05", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, totals.Breakfast)
	assert.Equal(t, 0, totals.Snack)
	assert.Equal(t, 1, totals.LunchNormal)
	assert.Equal(t, 0, totals.LunchVeg)
	assert.Equal(t, 1, totals.DinnerDiet)
	assert.Equal(t, 0, totals.DinnerNormal)
}

func TestDayTotals_YearFilterPartitions(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	second := testutil.SeedUser(t, db, "100001", "Ana Silva", 2, userdomain.RoleStudent)
	third := testutil.SeedUser(t, db, "100002", "Bruno Costa", 3, userdomain.RoleStudent)

	testutil.SeedBooking(t, db, second, "2026-03-05", true, false, "normal", "none")
	testutil.SeedBooking(t, db, third, "2026-03-05", true, false, "normal", "none")

	all, err := svc.DayTotals(ctx, "2026-03-05", nil)
	require.NoError(t, err)

	sum := 0
	for _, year := range []int{2, 3} {
		y := year
		totals, err := svc.DayTotals(ctx, "2026-03-05", &y)
		require.NoError(t, err)
		sum += totals.Breakfast
		assert.Equal(t, 1, totals.Breakfast)
	}
	assert.Equal(t, all.Breakfast, sum)
}

func TestWeekTotals_SevenDays(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	userID := testutil.SeedUser(t, db, "100001", "Ana Silva", 2, userdomain.RoleStudent)
	testutil.SeedBooking(t, db, userID, "2026-03-02", true, false, "none", "none")
	testutil.SeedBooking(t, db, userID, "2026-03-08", false, true, "none", "none")

	week, err := svc.WeekTotals(ctx, "2026-03-02")
	require.NoError(t, err)
	require.Len(t, week, 7)

	assert.Equal(t, "2026-03-02", week[0].Date)
	assert.Equal(t, 1, week[0].Breakfast)
	assert.Equal(t, "2026-03-08", week[6].Date)
	assert.Equal(t, 1, week[6].Snack)
}

func TestRoster_IncludesUsersWithoutBookings(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	booked := testutil.SeedUser(t, db, "100001", "Ana Silva", 2, userdomain.RoleStudent)
	unbooked := testutil.SeedUser(t, db, "100002", "Bruno Costa", 2, userdomain.RoleStudent)
	away := testutil.SeedUser(t, db, "100003", "Carla Nunes", 2, userdomain.RoleStudent)
	testutil.SeedUser(t, db, "100004", "Outro Ano", 3, userdomain.RoleStudent)

	testutil.SeedBooking(t, db, booked, "2026-03-05", true, false, "normal", "none")
	testutil.SeedAbsence(t, db, away, "2026-03-04", "2026-03-06")

	rows, err := svc.Roster(ctx, 2, "2026-03-05")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	byNII := map[string]bool{}
	for _, row := range rows {
		byNII[row.User.NII] = true
		switch row.User.ID {
		case booked:
			require.NotNil(t, row.Booking)
			assert.True(t, row.Booking.Breakfast)
			assert.False(t, row.Absent)
		case unbooked:
			assert.Nil(t, row.Booking)
			assert.False(t, row.Absent)
		case away:
			assert.Nil(t, row.Booking)
			assert.True(t, row.Absent)
		}
	}
	assert.False(t, byNII["100004"])
}
