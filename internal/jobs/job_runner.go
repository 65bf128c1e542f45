package jobs

import (
	"time"

	"vehicle-checkpoint-backend/internal/config"
	"vehicle-checkpoint-backend/internal/logger"
	"vehicle-checkpoint-backend/internal/service"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	services *Services
	config   *config.Config
	now      func() time.Time
}

// Services holds all service dependencies needed by jobs.
// Checkpoint is nil in processes that hold no live sessions, such as the cronjob binary.
type Services struct {
	Checkpoint service.CheckpointService
	Settlement service.SettlementService
	Email      service.EmailService
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(services *Services, cfg *config.Config) *JobRunner {
	return &JobRunner{
		services: services,
		config:   cfg,
		now:      time.Now,
	}
}

// Config exposes the schedule the runner was built with.
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// HoldsSessions reports whether session jobs can run in this process.
func (jr *JobRunner) HoldsSessions() bool {
	return jr.services.Checkpoint != nil
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	jobFunc()
	logger.Info("Job completed", "job", jobName)
}

// RunAll runs every job this process can run (for manual execution)
func (jr *JobRunner) RunAll() {
	if jr.HoldsSessions() {
		jr.SweepExpiredSessions()
	}
	jr.ReportPendingReviews()
}
