/**
 * @description
 * Cron scheduler for the periodic exchange-rate refresh.
 */
package app

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron     *cron.Cron
	service  *Service
	logger   *slog.Logger
	schedule string
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(service *Service, logger *slog.Logger, schedule string) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	return &Scheduler{
		cron:     c,
		service:  service,
		logger:   logger,
		schedule: schedule,
	}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start() {
	if _, err := s.cron.AddFunc(s.schedule, s.runRateRefresh); err != nil {
		s.logger.Error("failed to schedule rate refresh job", "error", err)
	} else {
		s.logger.Info("scheduled rate refresh job", "schedule", s.schedule)
	}

	s.cron.Start()
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// runRateRefresh fetches a fresh rate when the stored one has gone stale.
func (s *Scheduler) runRateRefresh() {
	s.logger.Info("starting rate refresh job")
	ctx := context.Background()

	refresh, err := s.service.ShouldRefresh(ctx)
	if err != nil {
		s.logger.Error("rate freshness check failed", "error", err)
		return
	}
	if !refresh {
		s.logger.Info("stored rate still fresh; nothing to do")
		return
	}

	rate, err := s.service.RefreshRates(ctx, true)
	if err != nil {
		s.logger.Error("rate refresh failed", "error", err)
		return
	}

	s.logger.Info("rate refresh job finished", "rate", rate.Rate.String(), "source", rate.Source)
}
