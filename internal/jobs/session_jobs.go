package jobs

import (
	"vehicle-checkpoint-backend/internal/logger"
)

// SweepExpiredSessions closes check sessions nobody has touched within the session TTL,
// freeing their booking for a new check.
func (jr *JobRunner) SweepExpiredSessions() {
	jr.runWithRecovery("SweepExpiredSessions", func() {
		closed := jr.services.Checkpoint.SweepExpired(jr.now())
		if closed > 0 {
			logger.Info("Closed expired check sessions", "count", closed)
		}
	})
}
