package service

import (
	"context"
	"time"

	"github.com/rancho/rancho-backend/internal/calendar"
	"github.com/rancho/rancho-backend/internal/calendar/repository"
	"github.com/rancho/rancho-backend/pkg/errors"
	"github.com/rancho/rancho-backend/pkg/logger"
)

// Date classifications
const (
	KindNormal   = "normal"
	KindWeekend  = "weekend"
	KindHoliday  = "holiday"
	KindExercise = "exercise"
	KindOther    = "other"
)

// CalendarService classifies dates and resolves edit deadlines
type CalendarService struct {
	repo          *repository.CalendarRepository
	deadlineHours int
	logger        *logger.Logger
}

// NewCalendarService creates a new calendar service.
// deadlineHours of zero disables the self-edit deadline.
func NewCalendarService(repo *repository.CalendarRepository, deadlineHours int, log *logger.Logger) *CalendarService {
	return &CalendarService{
		repo:          repo,
		deadlineHours: deadlineHours,
		logger:        log,
	}
}

// Classify returns the operational kind of a date. Dates without an entry
// default to weekend on Saturday/Sunday and normal otherwise.
func (s *CalendarService) Classify(ctx context.Context, date string) (string, error) {
	day, err := calendar.ParseDate(date)
	if err != nil {
		return "", err
	}

	entry, err := s.repo.Get(ctx, date)
	if err != nil {
		return "", err
	}
	if entry != nil {
		return entry.Kind, nil
	}

	if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return KindWeekend, nil
	}
	return KindNormal, nil
}

// Closed reports whether no meals are served on the date. Holiday and
// exercise days are closed; no self-editing is meaningful on them.
func (s *CalendarService) Closed(ctx context.Context, date string) (bool, error) {
	kind, err := s.Classify(ctx, date)
	if err != nil {
		return false, err
	}
	return kind == KindHoliday || kind == KindExercise, nil
}

// DeadlineFor returns the latest instant at which a student may still
// self-edit bookings for the date: midnight of the date minus the
// configured hours. The second return is false when no deadline applies.
func (s *CalendarService) DeadlineFor(date string) (time.Time, bool, error) {
	if s.deadlineHours <= 0 {
		return time.Time{}, false, nil
	}

	day, err := calendar.ParseDate(date)
	if err != nil {
		return time.Time{}, false, err
	}

	return day.Add(-time.Duration(s.deadlineHours) * time.Hour), true, nil
}

// SetEntry creates or replaces a calendar entry
func (s *CalendarService) SetEntry(ctx context.Context, entry *repository.Entry) error {
	if _, err := calendar.ParseDate(entry.Date); err != nil {
		return err
	}
	switch entry.Kind {
	case KindNormal, KindWeekend, KindHoliday, KindExercise, KindOther:
	default:
		return errors.BadInput("unknown calendar kind")
	}

	if err := s.repo.Upsert(ctx, entry); err != nil {
		return err
	}

	s.logger.Info().Str("date", entry.Date).Str("kind", entry.Kind).Msg("calendar entry set")
	return nil
}

// DeleteEntry removes a calendar entry
func (s *CalendarService) DeleteEntry(ctx context.Context, date string) error {
	return s.repo.Delete(ctx, date)
}

// ListRange returns the entries between two dates inclusive
func (s *CalendarService) ListRange(ctx context.Context, from, to string) ([]*repository.Entry, error) {
	if _, err := calendar.ParseDate(from); err != nil {
		return nil, err
	}
	if _, err := calendar.ParseDate(to); err != nil {
		return nil, err
	}
	return s.repo.ListRange(ctx, from, to)
}
