package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"vehicle-checkpoint-backend/internal/jobs"
	"vehicle-checkpoint-backend/internal/logger"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
}

// NewScheduler creates a new scheduler with the provided job runner.
// A malformed cron expression is a configuration error and fails construction.
func NewScheduler(jobRunner *jobs.JobRunner) (*Scheduler, error) {
	// Create cron with UTC timezone and seconds precision
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
	}

	if err := s.registerJobs(); err != nil {
		return nil, err
	}
	return s, nil
}

// registerJobs registers all scheduled jobs with the cron scheduler
func (s *Scheduler) registerJobs() error {
	cfg := s.jobs.Config().Scheduler

	// Sessions only live in the API process
	if s.jobs.HoldsSessions() {
		if _, err := s.cron.AddFunc(cfg.SweepExpiredSessions, s.jobs.SweepExpiredSessions); err != nil {
			return fmt.Errorf("register SweepExpiredSessions job: %w", err)
		}
	}

	if _, err := s.cron.AddFunc(cfg.ReportPendingReviews, s.jobs.ReportPendingReviews); err != nil {
		return fmt.Errorf("register ReportPendingReviews job: %w", err)
	}

	logger.Info("All cron jobs registered successfully", "count", len(s.cron.Entries()))
	return nil
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	logger.Info("Starting cron scheduler...")
	s.cron.Start()
	logger.Info("Cron scheduler started successfully")
}

// Stop gracefully stops the cron scheduler
func (s *Scheduler) Stop() {
	logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Cron scheduler stopped")
}

// Jobs returns how many jobs are registered.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}
