package service

import (
	"context"
	"fmt"

	auditrepo "github.com/rancho/rancho-backend/internal/audit/repository"
	"github.com/rancho/rancho-backend/internal/absence/repository"
	"github.com/rancho/rancho-backend/internal/calendar"
	"github.com/rancho/rancho-backend/pkg/errors"
	"github.com/rancho/rancho-backend/pkg/logger"
)

// Actor identifies who performs an absence operation
type Actor struct {
	UserID   string
	NII      string
	CanStaff bool
}

// CreateInput holds the fields of a new absence
type CreateInput struct {
	UserID   string  `json:"user_id"`
	FromDate string  `json:"from_date" validate:"required"`
	ToDate   string  `json:"to_date" validate:"required"`
	Reason   *string `json:"reason"`
}

// AbsenceService implements absence management
type AbsenceService struct {
	repo   *repository.AbsenceRepository
	audit  *auditrepo.AuditRepository
	logger *logger.Logger
}

// NewAbsenceService creates a new absence service
func NewAbsenceService(repo *repository.AbsenceRepository, audit *auditrepo.AuditRepository, log *logger.Logger) *AbsenceService {
	return &AbsenceService{
		repo:   repo,
		audit:  audit,
		logger: log,
	}
}

// Create records an absence. Students may only create their own; staff may
// create for anyone.
func (s *AbsenceService) Create(ctx context.Context, actor Actor, input CreateInput) (*repository.Absence, error) {
	if _, err := calendar.ParseDate(input.FromDate); err != nil {
		return nil, err
	}
	if _, err := calendar.ParseDate(input.ToDate); err != nil {
		return nil, err
	}
	if input.FromDate > input.ToDate {
		return nil, errors.BadInput("from_date must not be after to_date")
	}

	userID := input.UserID
	if userID == "" {
		userID = actor.UserID
	}
	if userID != actor.UserID && !actor.CanStaff {
		return nil, errors.NotAllowed("cannot create absences for other users")
	}

	absence := &repository.Absence{
		UserID:   userID,
		FromDate: input.FromDate,
		ToDate:   input.ToDate,
		Reason:   input.Reason,
		Author:   actor.NII,
	}
	if err := s.repo.Create(ctx, absence); err != nil {
		return nil, err
	}

	if userID != actor.UserID {
		s.recordAudit(ctx, actor.NII, "absence.create",
			fmt.Sprintf("user=%s %s..%s", userID, input.FromDate, input.ToDate))
	}
	return absence, nil
}

// Delete removes an absence. Only the owner or staff may delete it.
func (s *AbsenceService) Delete(ctx context.Context, actor Actor, id string) error {
	absence, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if absence.UserID != actor.UserID && !actor.CanStaff {
		return errors.NotAllowed("cannot delete another user's absence")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if absence.UserID != actor.UserID {
		s.recordAudit(ctx, actor.NII, "absence.delete",
			fmt.Sprintf("user=%s %s..%s", absence.UserID, absence.FromDate, absence.ToDate))
	}
	return nil
}

// ListByUser returns a user's absences
func (s *AbsenceService) ListByUser(ctx context.Context, userID string) ([]*repository.Absence, error) {
	return s.repo.ListByUser(ctx, userID)
}

// ListOverlapping returns the absences intersecting a date range
func (s *AbsenceService) ListOverlapping(ctx context.Context, from, to string) ([]*repository.Absence, error) {
	if _, err := calendar.ParseDate(from); err != nil {
		return nil, err
	}
	if _, err := calendar.ParseDate(to); err != nil {
		return nil, err
	}
	return s.repo.ListOverlapping(ctx, from, to)
}

// IsAbsent reports whether the user is absent on the date
func (s *AbsenceService) IsAbsent(ctx context.Context, userID, date string) (bool, error) {
	return s.repo.IsAbsent(ctx, userID, date)
}

func (s *AbsenceService) recordAudit(ctx context.Context, actor, action, detail string) {
	if err := s.audit.RecordAdmin(ctx, actor, action, detail); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("audit record failed")
	}
}
