package jobs

import (
	"context"

	"vehicle-checkpoint-backend/internal/logger"
)

// ReportPendingReviews mails operations the check records that were flagged
// and still wait for a supervisor.
func (jr *JobRunner) ReportPendingReviews() {
	jr.runWithRecovery("ReportPendingReviews", func() {
		ctx := context.Background()

		limit := jr.config.Settlement.ReviewDigestPageSize
		records, err := jr.services.Settlement.ListPendingReviews(ctx, limit)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to list records pending review", "error", err)
			return
		}
		if len(records) == 0 {
			logger.InfoContext(ctx, "No records pending review")
			return
		}
		if limit > 0 && len(records) >= limit {
			logger.WarnContext(ctx, "Review digest is truncated, more records are pending", "limit", limit)
		}

		if err := jr.services.Email.SendReviewDigest(ctx, records); err != nil {
			logger.ErrorContext(ctx, "Failed to send review digest", "error", err, "count", len(records))
			return
		}
		logger.InfoContext(ctx, "Sent review digest", "count", len(records))
	})
}
