package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	absencerepo "github.com/rancho/rancho-backend/internal/absence/repository"
	auditrepo "github.com/rancho/rancho-backend/internal/audit/repository"
	"github.com/rancho/rancho-backend/internal/booking/repository"
	calendarrepo "github.com/rancho/rancho-backend/internal/calendar/repository"
	calendarservice "github.com/rancho/rancho-backend/internal/calendar/service"
	capacityrepo "github.com/rancho/rancho-backend/internal/capacity/repository"
	capacityservice "github.com/rancho/rancho-backend/internal/capacity/service"
	"github.com/rancho/rancho-backend/internal/meal"
	userdomain "github.com/rancho/rancho-backend/internal/user/domain"
	"github.com/rancho/rancho-backend/pkg/database"
	"github.com/rancho/rancho-backend/pkg/errors"
	"github.com/rancho/rancho-backend/pkg/testutil"
)

// fixture: deadline 48h, horizon 15 days, clock frozen at 2026-03-01 10:00
func newService(t *testing.T) (*BookingService, *database.DB) {
	t.Helper()

	db := testutil.NewDB(t)
	log := testutil.NewLogger()
	audit := auditrepo.NewAuditRepository(db)

	svc := NewBookingService(
		db,
		repository.NewBookingRepository(db),
		absencerepo.NewAbsenceRepository(db),
		calendarservice.NewCalendarService(calendarrepo.NewCalendarRepository(db), 48, log),
		capacityservice.NewCapacityService(capacityrepo.NewCapacityRepository(db), audit, log),
		audit,
		15,
		log,
	)
	svc.SetClock(func() time.Time {
		return time.Date(2026, 3, 1, 10, 0, 0, 0, time.Local)
	})
	return svc, db
}

func seedStudent(t *testing.T, db *database.DB, nii string) (id string, actor Actor) {
	t.Helper()
	userID := testutil.SeedUser(t, db, nii, "Estudante "+nii, 2, userdomain.RoleStudent)
	return userID, Actor{UserID: userID, NII: nii, Role: userdomain.RoleStudent}
}

func countLogRows(t *testing.T, db *database.DB, nii string) int {
	t.Helper()
	var n int
	require.NoError(t, db.GetContext(context.Background(), &n,
		`SELECT count(*) FROM booking_log WHERE user_nii = ?`, nii))
	return n
}

func TestEdit_SelfWithinDeadline(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	userID, actor := seedStudent(t, db, "100001")

	booking, err := svc.Edit(ctx, EditInput{
		UserID:  userID,
		UserNII: "100001",
		Date:    "2026-03-05",
		Fields: Fields{
			Breakfast:  true,
			LunchKind:  meal.KindVegetarian,
			DinnerKind: meal.KindNone,
		},
		Actor: actor,
	})
	require.NoError(t, err)

	assert.True(t, booking.Breakfast)
	assert.Equal(t, meal.KindVegetarian, booking.LunchKind)

	// one log row per field changed from its default
	assert.Equal(t, 2, countLogRows(t, db, "100001"))
}

func TestEdit_PastDeadline(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	userID, actor := seedStudent(t, db, "100001")

	// deadline for 2026-03-02 is 2026-02-28 00:00, already past at the
	// frozen clock
	_, err := svc.Edit(ctx, EditInput{
		UserID:  userID,
		UserNII: "100001",
		Date:    "2026-03-02",
		Fields:  Fields{LunchKind: meal.KindNormal, DinnerKind: meal.KindNone},
		Actor:   actor,
	})
	assert.True(t, errors.Is(err, errors.ErrDeadlineExpired))
	assert.Equal(t, 0, countLogRows(t, db, "100001"))
}

func TestEdit_DeadlineBoundaryIsStrict(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	userID, actor := seedStudent(t, db, "100001")

	// deadline for 2026-03-03 with 48h is exactly 2026-03-01 00:00
	svc.SetClock(func() time.Time {
		return time.Date(2026, 3, 1, 0, 0, 0, 0, time.Local)
	})

	_, err := svc.Edit(ctx, EditInput{
		UserID:  userID,
		UserNII: "100001",
		Date:    "2026-03-03",
		Fields:  Fields{LunchKind: meal.KindNormal, DinnerKind: meal.KindNone},
		Actor:   actor,
	})
	assert.True(t, errors.Is(err, errors.ErrDeadlineExpired))

	// one second earlier the window is still open
	svc.SetClock(func() time.Time {
		return time.Date(2026, 2, 28, 23, 59, 59, 0, time.Local)
	})
	_, err = svc.Edit(ctx, EditInput{
		UserID:  userID,
		UserNII: "100001",
		Date:    "2026-03-03",
		Fields:  Fields{LunchKind: meal.KindNormal, DinnerKind: meal.KindNone},
		Actor:   actor,
	})
	assert.NoError(t, err)
}

func TestEdit_HorizonBoundary(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	userID, actor := seedStudent(t, db, "100001")

	// today+15 is allowed
	_, err := svc.Edit(ctx, EditInput{
		UserID:  userID,
		UserNII: "100001",
		Date:    "2026-03-16",
		Fields:  Fields{Breakfast: true, LunchKind: meal.KindNone, DinnerKind: meal.KindNone},
		Actor:   actor,
	})
	assert.NoError(t, err)

	// today+16 is not
	_, err = svc.Edit(ctx, EditInput{
		UserID:  userID,
		UserNII: "100001",
		Date:    "2026-03-17",
		Fields:  Fields{Breakfast: true, LunchKind: meal.KindNone, DinnerKind: meal.KindNone},
		Actor:   actor,
	})
	assert.True(t, errors.Is(err, errors.ErrOutOfHorizon))

	// and neither is yesterday
	_, err = svc.Edit(ctx, EditInput{
		UserID:  userID,
		UserNII: "100001",
		Date:    "2026-02-28",
		Fields:  Fields{Breakfast: true, LunchKind: meal.KindNone, DinnerKind: meal.KindNone},
		Actor:   actor,
	})
	assert.True(t, errors.Is(err, errors.ErrOutOfHorizon))
}

func TestEdit_ClosedDay(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	userID, actor := seedStudent(t, db, "100001")
	testutil.SeedCalendarEntry(t, db, "2026-03-05", "holiday")

	_, err := svc.Edit(ctx, EditInput{
		UserID:  userID,
		UserNII: "100001",
		Date:    "2026-03-05",
		Fields:  Fields{Breakfast: true, LunchKind: meal.KindNone, DinnerKind: meal.KindNone},
		Actor:   actor,
	})
	assert.True(t, errors.Is(err, errors.ErrDateClosed))
}

func TestEdit_AbsentUser(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	userID, actor := seedStudent(t, db, "100001")
	testutil.SeedAbsence(t, db, userID, "2026-03-04", "2026-03-06")

	_, err := svc.Edit(ctx, EditInput{
		UserID:  userID,
		UserNII: "100001",
		Date:    "2026-03-05",
		Fields:  Fields{Breakfast: true, LunchKind: meal.KindNone, DinnerKind: meal.KindNone},
		Actor:   actor,
	})
	assert.True(t, errors.Is(err, errors.ErrUserAbsent))
}

func TestEdit_OverrideBypassesWindowButNotCapacity(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	userID, _ := seedStudent(t, db, "100001")
	officer := Actor{UserID: "officer-id", NII: "900001", Role: userdomain.RoleDutyOfficer}

	testutil.SeedCalendarEntry(t, db, "2026-03-02", "holiday")
	testutil.SeedAbsence(t, db, userID, "2026-03-02", "2026-03-02")

	// closed day, inside an absence, past deadline: override still writes
	booking, err := svc.Edit(ctx, EditInput{
		UserID:   userID,
		UserNII:  "100001",
		Date:     "2026-03-02",
		Fields:   Fields{LunchKind: meal.KindNone, DinnerKind: meal.KindDiet},
		Actor:    officer,
		Override: true,
	})
	require.NoError(t, err)
	assert.Equal(t, meal.KindDiet, booking.DinnerKind)

	// but an absent user does not occupy a seat, so the cap of zero only
	// bites once the absence is out of the way
	testutil.SeedCapacity(t, db, "2026-03-10", "dinner", 0)
	_, err = svc.Edit(ctx, EditInput{
		UserID:   userID,
		UserNII:  "100001",
		Date:     "2026-03-10",
		Fields:   Fields{LunchKind: meal.KindNone, DinnerKind: meal.KindNormal},
		Actor:    officer,
		Override: true,
	})
	assert.True(t, errors.Is(err, errors.ErrCapacityExceeded))
}

func TestEdit_OverrideForAbsentUserIgnoresCapacity(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	userID, _ := seedStudent(t, db, "100001")
	officer := Actor{UserID: "officer-id", NII: "900001", Role: userdomain.RoleDutyOfficer}

	testutil.SeedAbsence(t, db, userID, "2026-03-05", "2026-03-05")
	testutil.SeedCapacity(t, db, "2026-03-05", "lunch", 0)

	// the absentee never counts toward the lunch total, so the zero cap
	// does not block the write
	booking, err := svc.Edit(ctx, EditInput{
		UserID:   userID,
		UserNII:  "100001",
		Date:     "2026-03-05",
		Fields:   Fields{LunchKind: meal.KindNormal, DinnerKind: meal.KindNone},
		Actor:    officer,
		Override: true,
	})
	require.NoError(t, err)
	assert.Equal(t, meal.KindNormal, booking.LunchKind)
}

func TestEdit_OverrideRequiresStaffRole(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	userID, _ := seedStudent(t, db, "100001")

	for _, role := range []string{userdomain.RoleStudent, userdomain.RoleKitchen, userdomain.RoleYearCommander} {
		_, err := svc.Edit(ctx, EditInput{
			UserID:   userID,
			UserNII:  "100001",
			Date:     "2026-03-05",
			Fields:   Fields{Breakfast: true, LunchKind: meal.KindNone, DinnerKind: meal.KindNone},
			Actor:    Actor{UserID: "other-id", NII: "999999", Role: role},
			Override: true,
		})
		assert.True(t, errors.Is(err, errors.ErrNotAllowed), role)
	}
}

func TestEdit_CapacityNetDelta(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	user1, actor1 := seedStudent(t, db, "100001")
	user2, actor2 := seedStudent(t, db, "100002")
	user3, actor3 := seedStudent(t, db, "100003")

	testutil.SeedCapacity(t, db, "2026-03-05", "lunch", 2)

	for _, c := range []struct {
		id    string
		actor Actor
	}{{user1, actor1}, {user2, actor2}} {
		_, err := svc.Edit(ctx, EditInput{
			UserID:  c.id,
			UserNII: c.actor.NII,
			Date:    "2026-03-05",
			Fields:  Fields{LunchKind: meal.KindNormal, DinnerKind: meal.KindNone},
			Actor:   c.actor,
		})
		require.NoError(t, err)
	}

	// the third lunch exceeds the cap
	_, err := svc.Edit(ctx, EditInput{
		UserID:  user3,
		UserNII: "100003",
		Date:    "2026-03-05",
		Fields:  Fields{LunchKind: meal.KindNormal, DinnerKind: meal.KindNone},
		Actor:   actor3,
	})
	assert.True(t, errors.Is(err, errors.ErrCapacityExceeded))

	// switching normal to vegetarian moves no counter, so it fits
	_, err = svc.Edit(ctx, EditInput{
		UserID:  user1,
		UserNII: "100001",
		Date:    "2026-03-05",
		Fields:  Fields{LunchKind: meal.KindVegetarian, DinnerKind: meal.KindNone},
		Actor:   actor1,
	})
	assert.NoError(t, err)
}

func TestEdit_IdempotentWriteEmitsNoLogRows(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	userID, actor := seedStudent(t, db, "100001")

	input := EditInput{
		UserID:  userID,
		UserNII: "100001",
		Date:    "2026-03-05",
		Fields:  Fields{Breakfast: true, LunchKind: meal.KindNormal, DinnerKind: meal.KindNone},
		Actor:   actor,
	}

	_, err := svc.Edit(ctx, input)
	require.NoError(t, err)
	first := countLogRows(t, db, "100001")
	assert.Equal(t, 2, first)

	_, err = svc.Edit(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, first, countLogRows(t, db, "100001"))
}

func TestEdit_KindChangeIsOneLogRow(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	userID, actor := seedStudent(t, db, "100001")

	_, err := svc.Edit(ctx, EditInput{
		UserID:  userID,
		UserNII: "100001",
		Date:    "2026-03-05",
		Fields:  Fields{LunchKind: meal.KindNormal, DinnerKind: meal.KindNone},
		Actor:   actor,
	})
	require.NoError(t, err)

	_, err = svc.Edit(ctx, EditInput{
		UserID:  userID,
		UserNII: "100001",
		Date:    "2026-03-05",
		Fields:  Fields{LunchKind: meal.KindVegetarian, DinnerKind: meal.KindNone},
		Actor:   actor,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, countLogRows(t, db, "100001"))
}

func TestWeek_ReturnsSevenDayRange(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	userID, _ := seedStudent(t, db, "100001")
	testutil.SeedBooking(t, db, userID, "2026-03-02", true, false, "none", "none")
	testutil.SeedBooking(t, db, userID, "2026-03-08", false, true, "none", "none")
	testutil.SeedBooking(t, db, userID, "2026-03-09", true, false, "none", "none")

	bookings, err := svc.Week(ctx, userID, "2026-03-02")
	require.NoError(t, err)
	require.Len(t, bookings, 2)
	assert.Equal(t, "2026-03-02", bookings[0].Date)
	assert.Equal(t, "2026-03-08", bookings[1].Date)
}
