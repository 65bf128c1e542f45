package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehicle-checkpoint-backend/internal/config"
	"vehicle-checkpoint-backend/internal/jobs"
	"vehicle-checkpoint-backend/internal/service"
)

type idleCheckpoint struct {
	service.CheckpointService
}

func (idleCheckpoint) SweepExpired(time.Time) int { return 0 }

func schedule() *config.Config {
	cfg := &config.Config{}
	cfg.Scheduler.SweepExpiredSessions = "0 */5 * * * *"
	cfg.Scheduler.ReportPendingReviews = "0 0 7 * * *"
	return cfg
}

func TestNewScheduler(t *testing.T) {
	t.Run("api process registers both jobs", func(t *testing.T) {
		s, err := NewScheduler(jobs.NewJobRunner(&jobs.Services{Checkpoint: idleCheckpoint{}}, schedule()))
		require.NoError(t, err)
		assert.Equal(t, 2, s.Jobs())
	})

	t.Run("cronjob process skips session sweep", func(t *testing.T) {
		s, err := NewScheduler(jobs.NewJobRunner(&jobs.Services{}, schedule()))
		require.NoError(t, err)
		assert.Equal(t, 1, s.Jobs())
	})

	t.Run("bad expression", func(t *testing.T) {
		cfg := schedule()
		cfg.Scheduler.ReportPendingReviews = "every morning"
		_, err := NewScheduler(jobs.NewJobRunner(&jobs.Services{}, cfg))
		assert.Error(t, err)
	})
}

func TestStartStop(t *testing.T) {
	s, err := NewScheduler(jobs.NewJobRunner(&jobs.Services{}, schedule()))
	require.NoError(t, err)
	s.Start()
	s.Stop()
}
