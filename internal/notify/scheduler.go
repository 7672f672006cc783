package notify

import (
	"context"
	"time"

	"github.com/rancho/rancho-backend/pkg/logger"
)

// Scheduler runs the scanner on a fixed interval until its context is
// cancelled. It is a supervised background task bound to the process
// lifetime, not a self-rescheduling timer.
type Scheduler struct {
	scanner  *Scanner
	interval time.Duration
	logger   *logger.Logger
}

// NewScheduler creates a new scheduler
func NewScheduler(scanner *Scanner, interval time.Duration, log *logger.Logger) *Scheduler {
	return &Scheduler{
		scanner:  scanner,
		interval: interval,
		logger:   log,
	}
}

// Run scans immediately and then on every tick. It returns when ctx is
// cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info().Dur("interval", s.interval).Msg("notification scheduler started")

	s.scan(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("notification scheduler stopped")
			return
		case <-ticker.C:
			s.scan(ctx)
		}
	}
}

func (s *Scheduler) scan(ctx context.Context) {
	warned, err := s.scanner.Scan(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("notification scan failed")
		return
	}
	if warned > 0 {
		s.logger.Info().Int("warned", warned).Msg("deadline warnings issued")
	}
}
