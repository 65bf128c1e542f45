package service

import (
	"context"
	"errors"
	"io"
	"time"

	"vehicle-checkpoint-backend/internal/domain"
	"vehicle-checkpoint-backend/internal/utils"
	"vehicle-checkpoint-backend/internal/workflow"
)

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionInProgress  = errors.New("another operator is already running this check")
	ErrInvalidRecordType  = errors.New("record type must be check_in or check_out")
	ErrBookingNotEligible = errors.New("booking status does not allow this check")
)

// CheckpointService drives check-in and check-out sessions on behalf of operators.
// Every session method returns the snapshot after the call, including on guard errors.
type CheckpointService interface {
	StartSession(ctx context.Context, operatorID, bookingID string, recordType domain.RecordType, location *workflow.Coordinates) (workflow.Snapshot, error)
	GetSession(ctx context.Context, operatorID, sessionID string) (workflow.Snapshot, error)
	ScanPlate(ctx context.Context, operatorID, sessionID, scanned string) (workflow.Snapshot, error)
	CompleteDamageScan(ctx context.Context, operatorID, sessionID string, findings int) (workflow.Snapshot, error)
	SkipDamageScan(ctx context.Context, operatorID, sessionID string) (workflow.Snapshot, error)
	CaptureDashboard(ctx context.Context, operatorID, sessionID string, frame io.Reader, contentType string) (workflow.Snapshot, error)
	OverrideReading(ctx context.Context, operatorID, sessionID string, field workflow.Field, value int, reason string) (workflow.Snapshot, error)
	SetCleanliness(ctx context.Context, operatorID, sessionID string, exteriorClean, interiorClean bool) (workflow.Snapshot, error)
	Confirm(ctx context.Context, operatorID, sessionID string) (workflow.Snapshot, error)
	EnterManualReadings(ctx context.Context, operatorID, sessionID string, startOdometer, startFuelPercent int) (workflow.Snapshot, error)
	AcceptSettlement(ctx context.Context, operatorID, sessionID string) (workflow.Snapshot, error)
	Restart(ctx context.Context, operatorID, sessionID string) (workflow.Snapshot, error)
	Close(ctx context.Context, operatorID, sessionID string) error
	// SweepExpired closes sessions idle since before now minus the TTL. It returns how many were closed.
	SweepExpired(now time.Time) int
}

// PreviewRequest computes a settlement from operator-entered readings without persisting anything.
type PreviewRequest struct {
	BookingID        string
	StartOdometer    int
	StartFuelPercent int
	EndOdometer      int
	EndFuelPercent   int
	ExteriorClean    bool
	InteriorClean    bool
}

// BookingSettlement is the settlement stored with a booking's check-out record.
type BookingSettlement struct {
	BookingID            string                   `json:"booking_id"`
	RecordID             string                   `json:"record_id"`
	ManualReconciliation bool                     `json:"manual_reconciliation"`
	ReviewFlags          []string                 `json:"review_flags,omitempty"`
	Summary              domain.SettlementSummary `json:"summary"`
	SettledAt            time.Time                `json:"settled_at"`
}

type SettlementService interface {
	workflow.SettlementLoader
	workflow.Submitter
	Preview(ctx context.Context, req PreviewRequest) (*utils.SettlementBreakdown, error)
	GetBookingSettlement(ctx context.Context, bookingID string) (*BookingSettlement, error)
	ListPendingReviews(ctx context.Context, limit int) ([]domain.CheckRecord, error)
	MarkReviewed(ctx context.Context, recordID string) error
}

type EmailService interface {
	SendSettlementReceipt(ctx context.Context, booking *domain.Booking, record *domain.CheckRecord, summary domain.SettlementSummary) error
	SendReviewDigest(ctx context.Context, records []domain.CheckRecord) error
}
