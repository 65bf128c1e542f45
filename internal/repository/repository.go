package repository

import (
	"context"
	"errors"
	"time"

	"vehicle-checkpoint-backend/internal/domain"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrRecordExists means a check record of that type was already written for the booking.
	ErrRecordExists = errors.New("check record already exists")
	// ErrBookingState means the booking's status does not allow the operation.
	ErrBookingState = errors.New("booking status does not allow this operation")
	// ErrStaleSettlement means the booking's unpaid fines changed after the settlement was calculated.
	ErrStaleSettlement = errors.New("fines changed since the settlement was calculated")
)

type BookingRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	GetFuelPricing(ctx context.Context, lessorID string) (*domain.FuelPricing, error)
}

type CheckRecordRepository interface {
	// Create inserts a record. Returns ErrRecordExists if (booking, type) is taken.
	Create(ctx context.Context, record *domain.CheckRecord) error
	GetByBookingAndType(ctx context.Context, bookingID string, recordType domain.RecordType) (*domain.CheckRecord, error)
	ListPendingReview(ctx context.Context, limit int) ([]domain.CheckRecord, error)
	MarkReviewed(ctx context.Context, id string, reviewedAt time.Time) error
}

type FineRepository interface {
	ListUnpaidByBooking(ctx context.Context, bookingID string) ([]domain.Fine, error)
}

// SettlementRepository writes a finished check and its booking side effects atomically.
// Calls for the same booking are serialized.
type SettlementRepository interface {
	// ApplyCheckIn stores the check-in record and moves the booking to active.
	ApplyCheckIn(ctx context.Context, record *domain.CheckRecord) error
	// ApplySettlement stores the check-out record, marks fineIDs paid and completes the booking.
	// Either all of it happens or none of it.
	ApplySettlement(ctx context.Context, record *domain.CheckRecord, fineIDs []string) error
}
