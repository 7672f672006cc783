package service

import (
	"context"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	absencerepo "github.com/rancho/rancho-backend/internal/absence/repository"
	auditrepo "github.com/rancho/rancho-backend/internal/audit/repository"
	"github.com/rancho/rancho-backend/internal/booking/repository"
	"github.com/rancho/rancho-backend/internal/calendar"
	calendarservice "github.com/rancho/rancho-backend/internal/calendar/service"
	capacityservice "github.com/rancho/rancho-backend/internal/capacity/service"
	"github.com/rancho/rancho-backend/internal/meal"
	"github.com/rancho/rancho-backend/internal/user/domain"
	"github.com/rancho/rancho-backend/pkg/database"
	"github.com/rancho/rancho-backend/pkg/errors"
	"github.com/rancho/rancho-backend/pkg/logger"
)

// Actor identifies who performs a booking edit
type Actor struct {
	UserID string
	NII    string
	Role   string
}

// Fields are the editable values of a booking
type Fields struct {
	Breakfast         bool      `json:"breakfast"`
	Snack             bool      `json:"snack"`
	LunchKind         meal.Kind `json:"lunch_kind"`
	DinnerKind        meal.Kind `json:"dinner_kind"`
	LeavesAfterDinner bool      `json:"leaves_after_dinner"`
}

// EditInput is one booking mutation request. UserNII is the target user's
// NII, recorded in the booking log, which survives user deletion.
type EditInput struct {
	UserID   string
	UserNII  string
	Date     string
	Fields   Fields
	Actor    Actor
	Override bool
}

// BookingService drives the edit-window state machine and writes bookings
type BookingService struct {
	db          *database.DB
	repo        *repository.BookingRepository
	absences    *absencerepo.AbsenceRepository
	calendar    *calendarservice.CalendarService
	capacity    *capacityservice.CapacityService
	audit       *auditrepo.AuditRepository
	horizonDays int
	now         func() time.Time
	logger      *logger.Logger
}

// NewBookingService creates a new booking service
func NewBookingService(
	db *database.DB,
	repo *repository.BookingRepository,
	absences *absencerepo.AbsenceRepository,
	cal *calendarservice.CalendarService,
	capacity *capacityservice.CapacityService,
	audit *auditrepo.AuditRepository,
	horizonDays int,
	log *logger.Logger,
) *BookingService {
	return &BookingService{
		db:          db,
		repo:        repo,
		absences:    absences,
		calendar:    cal,
		capacity:    capacity,
		audit:       audit,
		horizonDays: horizonDays,
		now:         time.Now,
		logger:      log,
	}
}

// SetClock replaces the service clock, for tests
func (s *BookingService) SetClock(now func() time.Time) {
	s.now = now
}

// Get returns the booking for (user, date), nil when none exists
func (s *BookingService) Get(ctx context.Context, userID, date string) (*repository.Booking, error) {
	if _, err := calendar.ParseDate(date); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, userID, date)
}

// Week returns the user's bookings for the seven days starting at monday
func (s *BookingService) Week(ctx context.Context, userID, monday string) ([]*repository.Booking, error) {
	start, err := calendar.ParseDate(monday)
	if err != nil {
		return nil, err
	}
	end := calendar.FormatDate(start.AddDate(0, 0, 6))
	return s.repo.ListRange(ctx, userID, monday, end)
}

// Edit applies one booking mutation. Students edit their own bookings while
// the window is open; duty officers and admins may override the window for
// anyone, but never the capacity caps.
func (s *BookingService) Edit(ctx context.Context, input EditInput) (*repository.Booking, error) {
	if _, err := calendar.ParseDate(input.Date); err != nil {
		return nil, err
	}
	if !input.Fields.LunchKind.Valid() {
		return nil, errors.BadInput("unknown lunch kind")
	}
	if !input.Fields.DinnerKind.Valid() {
		return nil, errors.BadInput("unknown dinner kind")
	}

	override := false
	switch {
	case input.Override:
		if input.Actor.Role != domain.RoleDutyOfficer && input.Actor.Role != domain.RoleAdmin {
			return nil, errors.NotAllowed("override requires a duty officer or admin")
		}
		override = true
	case input.Actor.UserID == input.UserID:
		if err := s.checkSelfWindow(ctx, input.UserID, input.Date); err != nil {
			return nil, err
		}
	default:
		return nil, errors.NotAllowed("cannot edit another user's booking")
	}

	var result *repository.Booking
	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		existing, err := s.repo.GetTx(ctx, tx, input.UserID, input.Date)
		if err != nil {
			return err
		}

		current := existing
		if current == nil {
			current = &repository.Booking{
				UserID:     input.UserID,
				Date:       input.Date,
				LunchKind:  meal.KindNone,
				DinnerKind: meal.KindNone,
			}
		}

		next := *current
		next.Breakfast = input.Fields.Breakfast
		next.Snack = input.Fields.Snack
		next.LunchKind = input.Fields.LunchKind
		next.DinnerKind = input.Fields.DinnerKind
		next.LeavesAfterDinner = input.Fields.LeavesAfterDinner

		changes := diff(current, &next, input.UserNII, input.Actor.NII)

		// An absent user's row is excluded from occupancy counts, so an
		// override on their behalf cannot push a meal past its cap.
		absent, err := s.absences.IsAbsentTx(ctx, tx, input.UserID, input.Date)
		if err != nil {
			return err
		}
		if !absent {
			for _, m := range meal.All() {
				delta := occupancyDelta(current, &next, m)
				exceed, err := s.capacity.WouldExceed(ctx, tx, input.Date, m, delta)
				if err != nil {
					return err
				}
				if exceed {
					return errors.CapacityExceeded(string(m))
				}
			}
		}

		if existing == nil {
			if err := s.repo.InsertTx(ctx, tx, &next); err != nil {
				return err
			}
		} else if len(changes) > 0 {
			if err := s.repo.UpdateTx(ctx, tx, &next); err != nil {
				return err
			}
		}

		if len(changes) > 0 {
			if err := s.audit.AppendBookingLog(ctx, tx, changes); err != nil {
				return err
			}
		}

		result = &next
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("user_id", input.UserID).
		Str("date", input.Date).
		Str("actor", input.Actor.NII).
		Bool("override", override).
		Msg("booking edited")

	return result, nil
}

// checkSelfWindow enforces the self-edit preconditions: the date is inside
// [today, today+horizon], not closed, before the deadline, and the user is
// not absent on it.
func (s *BookingService) checkSelfWindow(ctx context.Context, userID, date string) error {
	now := s.now()
	today := calendar.DayOf(now)
	day, err := calendar.ParseDate(date)
	if err != nil {
		return err
	}

	days := calendar.DaysBetween(today, day)
	if days < 0 || days > s.horizonDays {
		return errors.OutOfHorizon(date)
	}

	closed, err := s.calendar.Closed(ctx, date)
	if err != nil {
		return err
	}
	if closed {
		return errors.DateClosed(date)
	}

	if deadline, has, err := s.calendar.DeadlineFor(date); err != nil {
		return err
	} else if has && !now.Before(deadline) {
		return errors.DeadlineExpired(date)
	}

	absent, err := s.absences.IsAbsent(ctx, userID, date)
	if err != nil {
		return err
	}
	if absent {
		return errors.UserAbsent(date)
	}

	return nil
}

// diff lists one booking-log entry per field whose stored value changes
func diff(before, after *repository.Booking, userNII, actor string) []auditrepo.BookingLogEntry {
	var changes []auditrepo.BookingLogEntry

	add := func(field, oldVal, newVal string) {
		if oldVal == newVal {
			return
		}
		changes = append(changes, auditrepo.BookingLogEntry{
			UserNII:     userNII,
			Date:        after.Date,
			Field:       field,
			ValueBefore: oldVal,
			ValueAfter:  newVal,
			Actor:       actor,
		})
	}

	add("breakfast", strconv.FormatBool(before.Breakfast), strconv.FormatBool(after.Breakfast))
	add("snack", strconv.FormatBool(before.Snack), strconv.FormatBool(after.Snack))
	add("lunch_kind", string(before.LunchKind), string(after.LunchKind))
	add("dinner_kind", string(before.DinnerKind), string(after.DinnerKind))
	add("leaves_after_dinner", strconv.FormatBool(before.LeavesAfterDinner), strconv.FormatBool(after.LeavesAfterDinner))

	return changes
}

// occupancyDelta is the net change the edit makes to one meal's counter
func occupancyDelta(before, after *repository.Booking, m meal.Meal) int {
	toInt := func(b bool) int {
		if b {
			return 1
		}
		return 0
	}

	switch m {
	case meal.Breakfast:
		return toInt(after.Breakfast) - toInt(before.Breakfast)
	case meal.Snack:
		return toInt(after.Snack) - toInt(before.Snack)
	case meal.Lunch:
		return toInt(after.LunchKind.Booked()) - toInt(before.LunchKind.Booked())
	case meal.Dinner:
		return toInt(after.DinnerKind.Booked()) - toInt(before.DinnerKind.Booked())
	}
	return 0
}
