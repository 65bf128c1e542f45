// Package events publishes settlement outcomes to the message broker.
package events

import (
	"time"

	"vehicle-checkpoint-backend/internal/domain"
)

// Routing keys.
const (
	RKCheckInRecorded   = "checkpoint.check_in.recorded"
	RKSettlementApplied = "checkpoint.settlement.applied"
	RKSettlementFlagged = "checkpoint.settlement.flagged"
)

// CheckInRecorded is published after a check-in is persisted.
type CheckInRecorded struct {
	BookingID           string    `json:"booking_id"`
	RecordID            string    `json:"record_id"`
	Odometer            int       `json:"odometer"`
	FuelPercent         int       `json:"fuel_percent"`
	WasManuallyAdjusted bool      `json:"was_manually_adjusted"`
	OccurredAt          time.Time `json:"occurred_at"`
}

// SettlementApplied is published after a check-out settlement commits. Summary is
// forwarded exactly as calculated.
type SettlementApplied struct {
	BookingID            string                   `json:"booking_id"`
	RecordID             string                   `json:"record_id"`
	RenterID             string                   `json:"renter_id"`
	LessorID             string                   `json:"lessor_id"`
	ManualReconciliation bool                     `json:"manual_reconciliation"`
	ReviewFlags          []string                 `json:"review_flags,omitempty"`
	SettledFineIDs       []string                 `json:"settled_fine_ids,omitempty"`
	Summary              domain.SettlementSummary `json:"summary"`
	OccurredAt           time.Time                `json:"occurred_at"`
}
