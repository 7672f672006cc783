package service

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	auditrepo "github.com/rancho/rancho-backend/internal/audit/repository"
	"github.com/rancho/rancho-backend/internal/calendar"
	"github.com/rancho/rancho-backend/internal/capacity/repository"
	"github.com/rancho/rancho-backend/internal/meal"
	"github.com/rancho/rancho-backend/pkg/errors"
	"github.com/rancho/rancho-backend/pkg/logger"
)

// Occupancy reports the load of one meal on one date. Max is nil when the
// meal is unlimited.
type Occupancy struct {
	Meal    meal.Meal `json:"meal"`
	Current int       `json:"current"`
	Max     *int      `json:"max,omitempty"`
}

// CapacityService implements per-meal per-day booking limits
type CapacityService struct {
	repo   *repository.CapacityRepository
	audit  *auditrepo.AuditRepository
	logger *logger.Logger
}

// NewCapacityService creates a new capacity service
func NewCapacityService(repo *repository.CapacityRepository, audit *auditrepo.AuditRepository, log *logger.Logger) *CapacityService {
	return &CapacityService{
		repo:   repo,
		audit:  audit,
		logger: log,
	}
}

// Set configures the cap for one meal on one date. A negative max removes
// the cap, making the meal unlimited.
func (s *CapacityService) Set(ctx context.Context, actor, date string, m meal.Meal, max int) error {
	if _, err := calendar.ParseDate(date); err != nil {
		return err
	}
	if !m.Valid() {
		return errors.BadInput("unknown meal")
	}

	if max < 0 {
		if err := s.repo.Remove(ctx, date, m); err != nil {
			return err
		}
		s.recordAudit(ctx, actor, "capacity.remove", fmt.Sprintf("%s %s", date, m))
		return nil
	}

	if err := s.repo.Set(ctx, date, m, max); err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "capacity.set", fmt.Sprintf("%s %s max=%d", date, m, max))
	return nil
}

// Occupancy returns current load and cap for every meal slot of a date
func (s *CapacityService) Occupancy(ctx context.Context, date string) ([]Occupancy, error) {
	if _, err := calendar.ParseDate(date); err != nil {
		return nil, err
	}

	caps, err := s.repo.ListByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	capByMeal := map[meal.Meal]int{}
	for _, c := range caps {
		capByMeal[meal.Meal(c.Meal)] = c.MaxTotal
	}

	var result []Occupancy
	for _, m := range meal.All() {
		current, err := s.repo.Count(ctx, s.ext(), date, m)
		if err != nil {
			return nil, err
		}
		occ := Occupancy{Meal: m, Current: current}
		if max, ok := capByMeal[m]; ok {
			occ.Max = &max
		}
		result = append(result, occ)
	}
	return result, nil
}

// WouldExceed reports whether adding delta bookings to the meal would push
// occupancy past the cap. It runs on the caller's executor so the booking
// flow can call it inside its write transaction. Uncapped meals never
// exceed; a non-positive delta never exceeds.
func (s *CapacityService) WouldExceed(ctx context.Context, ext sqlx.ExtContext, date string, m meal.Meal, delta int) (bool, error) {
	if delta <= 0 {
		return false, nil
	}

	max, capped, err := s.repo.CapFor(ctx, ext, date, m)
	if err != nil {
		return false, err
	}
	if !capped {
		return false, nil
	}

	current, err := s.repo.Count(ctx, ext, date, m)
	if err != nil {
		return false, err
	}
	return current+delta > max, nil
}

func (s *CapacityService) ext() sqlx.ExtContext {
	return s.repo.Ext()
}

func (s *CapacityService) recordAudit(ctx context.Context, actor, action, detail string) {
	if err := s.audit.RecordAdmin(ctx, actor, action, detail); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("audit record failed")
	}
}
