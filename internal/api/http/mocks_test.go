package http

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"

	"vehicle-checkpoint-backend/internal/domain"
	"vehicle-checkpoint-backend/internal/service"
	"vehicle-checkpoint-backend/internal/utils"
	"vehicle-checkpoint-backend/internal/workflow"
)

type MockCheckpointService struct {
	mock.Mock
}

func (m *MockCheckpointService) snap(args mock.Arguments) (workflow.Snapshot, error) {
	return args.Get(0).(workflow.Snapshot), args.Error(1)
}

func (m *MockCheckpointService) StartSession(ctx context.Context, operatorID, bookingID string, recordType domain.RecordType, location *workflow.Coordinates) (workflow.Snapshot, error) {
	return m.snap(m.Called(ctx, operatorID, bookingID, recordType, location))
}

func (m *MockCheckpointService) GetSession(ctx context.Context, operatorID, sessionID string) (workflow.Snapshot, error) {
	return m.snap(m.Called(ctx, operatorID, sessionID))
}

func (m *MockCheckpointService) ScanPlate(ctx context.Context, operatorID, sessionID, scanned string) (workflow.Snapshot, error) {
	return m.snap(m.Called(ctx, operatorID, sessionID, scanned))
}

func (m *MockCheckpointService) CompleteDamageScan(ctx context.Context, operatorID, sessionID string, findings int) (workflow.Snapshot, error) {
	return m.snap(m.Called(ctx, operatorID, sessionID, findings))
}

func (m *MockCheckpointService) SkipDamageScan(ctx context.Context, operatorID, sessionID string) (workflow.Snapshot, error) {
	return m.snap(m.Called(ctx, operatorID, sessionID))
}

func (m *MockCheckpointService) CaptureDashboard(ctx context.Context, operatorID, sessionID string, frame io.Reader, contentType string) (workflow.Snapshot, error) {
	return m.snap(m.Called(ctx, operatorID, sessionID, frame, contentType))
}

func (m *MockCheckpointService) OverrideReading(ctx context.Context, operatorID, sessionID string, field workflow.Field, value int, reason string) (workflow.Snapshot, error) {
	return m.snap(m.Called(ctx, operatorID, sessionID, field, value, reason))
}

func (m *MockCheckpointService) SetCleanliness(ctx context.Context, operatorID, sessionID string, exteriorClean, interiorClean bool) (workflow.Snapshot, error) {
	return m.snap(m.Called(ctx, operatorID, sessionID, exteriorClean, interiorClean))
}

func (m *MockCheckpointService) Confirm(ctx context.Context, operatorID, sessionID string) (workflow.Snapshot, error) {
	return m.snap(m.Called(ctx, operatorID, sessionID))
}

func (m *MockCheckpointService) EnterManualReadings(ctx context.Context, operatorID, sessionID string, startOdometer, startFuelPercent int) (workflow.Snapshot, error) {
	return m.snap(m.Called(ctx, operatorID, sessionID, startOdometer, startFuelPercent))
}

func (m *MockCheckpointService) AcceptSettlement(ctx context.Context, operatorID, sessionID string) (workflow.Snapshot, error) {
	return m.snap(m.Called(ctx, operatorID, sessionID))
}

func (m *MockCheckpointService) Restart(ctx context.Context, operatorID, sessionID string) (workflow.Snapshot, error) {
	return m.snap(m.Called(ctx, operatorID, sessionID))
}

func (m *MockCheckpointService) Close(ctx context.Context, operatorID, sessionID string) error {
	args := m.Called(ctx, operatorID, sessionID)
	return args.Error(0)
}

func (m *MockCheckpointService) SweepExpired(now time.Time) int {
	args := m.Called(now)
	return args.Int(0)
}

type MockSettlementService struct {
	mock.Mock
}

func (m *MockSettlementService) LoadInputs(ctx context.Context, booking domain.Booking) (workflow.SettlementInputsLoaded, error) {
	args := m.Called(ctx, booking)
	return args.Get(0).(workflow.SettlementInputsLoaded), args.Error(1)
}

func (m *MockSettlementService) SubmitCheckIn(ctx context.Context, record *domain.CheckRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockSettlementService) ApplySettlement(ctx context.Context, record *domain.CheckRecord, fines []domain.Fine, summary domain.SettlementSummary) error {
	args := m.Called(ctx, record, fines, summary)
	return args.Error(0)
}

func (m *MockSettlementService) Preview(ctx context.Context, req service.PreviewRequest) (*utils.SettlementBreakdown, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*utils.SettlementBreakdown), args.Error(1)
}

func (m *MockSettlementService) GetBookingSettlement(ctx context.Context, bookingID string) (*service.BookingSettlement, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.BookingSettlement), args.Error(1)
}

func (m *MockSettlementService) ListPendingReviews(ctx context.Context, limit int) ([]domain.CheckRecord, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]domain.CheckRecord), args.Error(1)
}

func (m *MockSettlementService) MarkReviewed(ctx context.Context, recordID string) error {
	args := m.Called(ctx, recordID)
	return args.Error(0)
}
