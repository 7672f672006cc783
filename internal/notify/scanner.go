package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/rancho/rancho-backend/internal/calendar"
	calendarservice "github.com/rancho/rancho-backend/internal/calendar/service"
	"github.com/rancho/rancho-backend/internal/notify/repository"
	"github.com/rancho/rancho-backend/pkg/logger"
)

// Scanner finds bookings whose edit deadline is about to close and warns
// their owners at most once per (user, date).
type Scanner struct {
	repo        *repository.NotificationRepository
	calendar    *calendarservice.CalendarService
	email       Channel
	sms         Channel
	warnHours   int
	horizonDays int
	sendTimeout time.Duration
	now         func() time.Time
	logger      *logger.Logger
}

// NewScanner creates a new deadline scanner
func NewScanner(
	repo *repository.NotificationRepository,
	cal *calendarservice.CalendarService,
	email, sms Channel,
	warnHours, horizonDays int,
	sendTimeout time.Duration,
	log *logger.Logger,
) *Scanner {
	return &Scanner{
		repo:        repo,
		calendar:    cal,
		email:       email,
		sms:         sms,
		warnHours:   warnHours,
		horizonDays: horizonDays,
		sendTimeout: sendTimeout,
		now:         time.Now,
		logger:      log,
	}
}

// SetClock replaces the scanner clock, for tests
func (s *Scanner) SetClock(now func() time.Time) {
	s.now = now
}

// Scan runs one pass: for every candidate whose deadline falls inside the
// warning window, claim the (user, date) pair and deliver a warning. The
// claim is what bounds sends to one per pair; delivery failures do not
// retract it.
func (s *Scanner) Scan(ctx context.Context) (int, error) {
	now := s.now()
	today := calendar.DayOf(now)
	from := calendar.FormatDate(today.AddDate(0, 0, 1))
	to := calendar.FormatDate(today.AddDate(0, 0, s.horizonDays))

	candidates, err := s.repo.Candidates(ctx, from, to)
	if err != nil {
		return 0, err
	}

	warned := 0
	for _, c := range candidates {
		deadline, has, err := s.calendar.DeadlineFor(c.Date)
		if err != nil || !has {
			continue
		}

		warnFrom := deadline.Add(-time.Duration(s.warnHours) * time.Hour)
		if now.Before(warnFrom) || !now.Before(deadline) {
			continue
		}

		closed, err := s.calendar.Closed(ctx, c.Date)
		if err != nil {
			s.logger.Warn().Err(err).Str("date", c.Date).Msg("calendar lookup failed")
			continue
		}
		if closed {
			continue
		}

		first, err := s.repo.MarkSent(ctx, c.UserID, c.Date, repository.KindDeadline)
		if err != nil {
			s.logger.Warn().Err(err).Str("nii", c.NII).Msg("notification claim failed")
			continue
		}
		if !first {
			continue
		}

		warned++
		go s.deliver(*c, deadline)
	}

	return warned, nil
}

// deliver sends the warning off the scan goroutine, email first and SMS
// as the fallback for users without an address.
func (s *Scanner) deliver(c repository.Candidate, deadline time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), s.sendTimeout)
	defer cancel()

	subject := "Prazo de alteração de refeições"
	body := fmt.Sprintf(
		"As refeições marcadas para %s só podem ser alteradas até %s.",
		c.Date, deadline.Format("2006-01-02 15:04"),
	)

	// The claim row already exists, so this is the only attempt the
	// user gets; an email error falls through to SMS like a missing
	// address does.
	sent, err := s.email.Send(ctx, c.Email, subject, body)
	if err != nil {
		s.logger.Warn().Err(err).Str("nii", c.NII).Msg("email warning failed")
	} else if sent {
		s.logger.Info().Str("nii", c.NII).Str("date", c.Date).Msg("deadline warning emailed")
		return
	}

	sent, err = s.sms.Send(ctx, c.Phone, subject, body)
	if err != nil {
		s.logger.Warn().Err(err).Str("nii", c.NII).Msg("sms warning failed")
		return
	}
	if sent {
		s.logger.Info().Str("nii", c.NII).Str("date", c.Date).Msg("deadline warning sent by sms")
	}
}
