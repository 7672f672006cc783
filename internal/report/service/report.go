package service

import (
	"context"

	"github.com/rancho/rancho-backend/internal/calendar"
	"github.com/rancho/rancho-backend/internal/report/repository"
	userrepo "github.com/rancho/rancho-backend/internal/user/repository"
	"github.com/rancho/rancho-backend/pkg/errors"
	"github.com/rancho/rancho-backend/pkg/logger"
)

// ReportService derives day totals, week totals and rosters
type ReportService struct {
	repo   *repository.ReportRepository
	users  *userrepo.UserRepository
	logger *logger.Logger
}

// NewReportService creates a new report service
func NewReportService(repo *repository.ReportRepository, users *userrepo.UserRepository, log *logger.Logger) *ReportService {
	return &ReportService{
		repo:   repo,
		users:  users,
		logger: log,
	}
}

// DayTotals returns the meal counts for one date, optionally restricted to
// one year
func (s *ReportService) DayTotals(ctx context.Context, date string, year *int) (*repository.DayTotals, error) {
	if _, err := calendar.ParseDate(date); err != nil {
		return nil, err
	}
	return s.repo.DayTotals(ctx, date, year)
}

// WeekTotals returns the totals of the seven days starting at monday
func (s *ReportService) WeekTotals(ctx context.Context, monday string) ([]*repository.DayTotals, error) {
	start, err := calendar.ParseDate(monday)
	if err != nil {
		return nil, err
	}

	week := make([]*repository.DayTotals, 0, 7)
	for i := 0; i < 7; i++ {
		date := calendar.FormatDate(start.AddDate(0, 0, i))
		totals, err := s.repo.DayTotals(ctx, date, nil)
		if err != nil {
			return nil, err
		}
		week = append(week, totals)
	}
	return week, nil
}

// Roster returns every active user of a year with their booking and
// absence state on the date
func (s *ReportService) Roster(ctx context.Context, year int, date string) ([]*repository.RosterRow, error) {
	if _, err := calendar.ParseDate(date); err != nil {
		return nil, err
	}
	if year < 1 || year > 8 {
		return nil, errors.BadInput("year must be between 1 and 8")
	}

	users, err := s.users.ListByYear(ctx, year)
	if err != nil {
		return nil, err
	}
	return s.repo.Roster(ctx, users, date)
}
