package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"vehicle-checkpoint-backend/internal/domain"
)

type MockBookingRepo struct {
	mock.Mock
}

func (m *MockBookingRepo) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepo) GetFuelPricing(ctx context.Context, lessorID string) (*domain.FuelPricing, error) {
	args := m.Called(ctx, lessorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FuelPricing), args.Error(1)
}

type MockCheckRecordRepo struct {
	mock.Mock
}

func (m *MockCheckRecordRepo) Create(ctx context.Context, record *domain.CheckRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockCheckRecordRepo) GetByBookingAndType(ctx context.Context, bookingID string, recordType domain.RecordType) (*domain.CheckRecord, error) {
	args := m.Called(ctx, bookingID, recordType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CheckRecord), args.Error(1)
}

func (m *MockCheckRecordRepo) ListPendingReview(ctx context.Context, limit int) ([]domain.CheckRecord, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]domain.CheckRecord), args.Error(1)
}

func (m *MockCheckRecordRepo) MarkReviewed(ctx context.Context, id string, reviewedAt time.Time) error {
	args := m.Called(ctx, id, reviewedAt)
	return args.Error(0)
}

type MockFineRepo struct {
	mock.Mock
}

func (m *MockFineRepo) ListUnpaidByBooking(ctx context.Context, bookingID string) ([]domain.Fine, error) {
	args := m.Called(ctx, bookingID)
	return args.Get(0).([]domain.Fine), args.Error(1)
}

type MockSettlementRepo struct {
	mock.Mock
}

func (m *MockSettlementRepo) ApplyCheckIn(ctx context.Context, record *domain.CheckRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockSettlementRepo) ApplySettlement(ctx context.Context, record *domain.CheckRecord, fineIDs []string) error {
	args := m.Called(ctx, record, fineIDs)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishJSON(ctx context.Context, key string, v any) error {
	args := m.Called(ctx, key, v)
	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendSettlementReceipt(ctx context.Context, booking *domain.Booking, record *domain.CheckRecord, summary domain.SettlementSummary) error {
	args := m.Called(ctx, booking, record, summary)
	return args.Error(0)
}

func (m *MockEmailService) SendReviewDigest(ctx context.Context, records []domain.CheckRecord) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}
