package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"vehicle-checkpoint-backend/internal/domain"
	"vehicle-checkpoint-backend/internal/events"
	"vehicle-checkpoint-backend/internal/logger"
	"vehicle-checkpoint-backend/internal/repository"
	"vehicle-checkpoint-backend/internal/utils"
	"vehicle-checkpoint-backend/internal/workflow"
)

const defaultReviewPageSize = 50

// SettlementOptions are the settlement settings that do not come from the booking.
type SettlementOptions struct {
	// MaxPlausibleKm flags longer trips for review. Zero disables the check.
	MaxPlausibleKm int
	// DefaultFuelPricing applies to lessors without their own fuel configuration.
	DefaultFuelPricing domain.FuelPricing
}

type settlementService struct {
	bookingRepo    repository.BookingRepository
	recordRepo     repository.CheckRecordRepository
	fineRepo       repository.FineRepository
	settlementRepo repository.SettlementRepository
	publisher      events.Publisher
	emailSvc       EmailService
	opts           SettlementOptions
	now            func() time.Time
	log            *slog.Logger
}

func NewSettlementService(
	bookingRepo repository.BookingRepository,
	recordRepo repository.CheckRecordRepository,
	fineRepo repository.FineRepository,
	settlementRepo repository.SettlementRepository,
	publisher events.Publisher,
	emailSvc EmailService,
	opts SettlementOptions,
) SettlementService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if emailSvc == nil {
		emailSvc = NewNopEmailService()
	}
	return &settlementService{
		bookingRepo:    bookingRepo,
		recordRepo:     recordRepo,
		fineRepo:       fineRepo,
		settlementRepo: settlementRepo,
		publisher:      publisher,
		emailSvc:       emailSvc,
		opts:           opts,
		now:            time.Now,
		log:            logger.WithService("settlement"),
	}
}

// loadShared fetches the unpaid fines and effective fuel pricing of a booking concurrently,
// plus the check-in record when withCheckIn is set. A missing check-in yields nil.
func (s *settlementService) loadShared(ctx context.Context, booking domain.Booking, withCheckIn bool) (*domain.CheckRecord, []domain.Fine, domain.FuelPricing, error) {
	var (
		checkIn *domain.CheckRecord
		fines   []domain.Fine
		pricing = s.opts.DefaultFuelPricing
	)

	g, gctx := errgroup.WithContext(ctx)
	if withCheckIn {
		g.Go(func() error {
			rec, err := s.recordRepo.GetByBookingAndType(gctx, booking.ID, domain.RecordTypeCheckIn)
			if errors.Is(err, repository.ErrNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("load check-in record: %w", err)
			}
			checkIn = rec
			return nil
		})
	}
	g.Go(func() error {
		list, err := s.fineRepo.ListUnpaidByBooking(gctx, booking.ID)
		if err != nil {
			return fmt.Errorf("load fines: %w", err)
		}
		fines = list
		return nil
	})
	g.Go(func() error {
		p, err := s.bookingRepo.GetFuelPricing(gctx, booking.LessorID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load fuel pricing: %w", err)
		}
		pricing = *p
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, domain.FuelPricing{}, err
	}
	return checkIn, fines, pricing, nil
}

func (s *settlementService) LoadInputs(ctx context.Context, booking domain.Booking) (workflow.SettlementInputsLoaded, error) {
	logger.EnterMethod("settlementService.LoadInputs", "bookingID", booking.ID)

	checkIn, fines, pricing, err := s.loadShared(ctx, booking, true)
	if err != nil {
		logger.ExitMethodWithError("settlementService.LoadInputs", err, "bookingID", booking.ID)
		return workflow.SettlementInputsLoaded{}, err
	}

	logger.ExitMethod("settlementService.LoadInputs", "bookingID", booking.ID, "hasCheckIn", checkIn != nil, "fines", len(fines))
	return workflow.SettlementInputsLoaded{
		CheckIn:        checkIn,
		Fines:          fines,
		FuelPricing:    pricing,
		MaxPlausibleKm: s.opts.MaxPlausibleKm,
	}, nil
}

func validPreviewReading(odometer, fuelPercent int) bool {
	return odometer >= 0 && fuelPercent >= 0 && fuelPercent <= 100
}

func (s *settlementService) Preview(ctx context.Context, req PreviewRequest) (*utils.SettlementBreakdown, error) {
	if !validPreviewReading(req.StartOdometer, req.StartFuelPercent) || !validPreviewReading(req.EndOdometer, req.EndFuelPercent) {
		return nil, workflow.ErrInvalidReading
	}

	booking, err := s.bookingRepo.GetByID(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	_, fines, pricing, err := s.loadShared(ctx, *booking, false)
	if err != nil {
		return nil, err
	}

	out := utils.CalculateSettlement(utils.SettlementInput{
		StartOdometer:    req.StartOdometer,
		StartFuelPercent: req.StartFuelPercent,
		EndOdometer:      req.EndOdometer,
		EndFuelPercent:   req.EndFuelPercent,
		Rules:            booking.Rules,
		FuelPricing:      pricing,
		ExteriorClean:    req.ExteriorClean,
		InteriorClean:    req.InteriorClean,
		Fines:            fines,
		DepositAmount:    booking.DepositAmount,
		RentalPrice:      booking.TotalPrice,
		MaxPlausibleKm:   s.opts.MaxPlausibleKm,
	})
	return &out, nil
}

// GetBookingSettlement returns the summary stored with the check-out record, exactly as
// it was accepted.
func (s *settlementService) GetBookingSettlement(ctx context.Context, bookingID string) (*BookingSettlement, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	rec, err := s.recordRepo.GetByBookingAndType(ctx, bookingID, domain.RecordTypeCheckOut)
	if err != nil {
		return nil, err
	}
	if !rec.Settled {
		return nil, repository.ErrNotFound
	}

	return &BookingSettlement{
		BookingID:            booking.ID,
		RecordID:             rec.ID,
		ManualReconciliation: rec.ManualReconciliation,
		ReviewFlags:          rec.ReviewFlags,
		SettledAt:            rec.CreatedAt,
		Summary:              rec.Summary(),
	}, nil
}

func (s *settlementService) SubmitCheckIn(ctx context.Context, record *domain.CheckRecord) error {
	logger.EnterMethod("settlementService.SubmitCheckIn", "bookingID", record.BookingID)

	if err := s.settlementRepo.ApplyCheckIn(ctx, record); err != nil {
		logger.ExitMethodWithError("settlementService.SubmitCheckIn", err, "bookingID", record.BookingID)
		return err
	}

	s.publish(ctx, events.RKCheckInRecorded, events.CheckInRecorded{
		BookingID:           record.BookingID,
		RecordID:            record.ID,
		Odometer:            record.ConfirmedOdometer,
		FuelPercent:         record.ConfirmedFuelPercent,
		WasManuallyAdjusted: record.WasManuallyAdjusted,
		OccurredAt:          s.now().UTC(),
	})

	logger.ExitMethod("settlementService.SubmitCheckIn", "bookingID", record.BookingID, "recordID", record.ID)
	return nil
}

// ApplySettlement persists the check-out, settles the fines and completes the booking in
// one transaction. Publishing and the receipt email happen afterwards and never undo it.
func (s *settlementService) ApplySettlement(ctx context.Context, record *domain.CheckRecord, fines []domain.Fine, summary domain.SettlementSummary) error {
	logger.EnterMethod("settlementService.ApplySettlement", "bookingID", record.BookingID)

	ctx, span := otel.Tracer("checkpoint/service").Start(ctx, "settlement.apply")
	defer span.End()
	span.SetAttributes(
		attribute.String("booking.id", record.BookingID),
		attribute.Bool("settlement.manual", record.ManualReconciliation),
		attribute.String("settlement.total", summary.TotalCharges.StringFixed(2)),
	)

	fineIDs := domain.FineIDs(fines)
	if err := s.settlementRepo.ApplySettlement(ctx, record, fineIDs); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.ExitMethodWithError("settlementService.ApplySettlement", err, "bookingID", record.BookingID)
		return err
	}

	booking, err := s.bookingRepo.GetByID(ctx, record.BookingID)
	if err != nil {
		s.log.WarnContext(ctx, "Failed to reload booking after settlement", "bookingID", record.BookingID, "error", err)
		booking = &domain.Booking{ID: record.BookingID}
	}

	msg := events.SettlementApplied{
		BookingID:            record.BookingID,
		RecordID:             record.ID,
		RenterID:             booking.RenterID,
		LessorID:             booking.LessorID,
		ManualReconciliation: record.ManualReconciliation,
		ReviewFlags:          record.ReviewFlags,
		SettledFineIDs:       fineIDs,
		Summary:              summary,
		OccurredAt:           s.now().UTC(),
	}
	s.publish(ctx, events.RKSettlementApplied, msg)
	if len(record.ReviewFlags) > 0 {
		logger.Anomaly(ctx, record.BookingID, record.ReviewFlags, "recordID", record.ID)
		s.publish(ctx, events.RKSettlementFlagged, msg)
	}

	if err := s.emailSvc.SendSettlementReceipt(ctx, booking, record, summary); err != nil {
		s.log.WarnContext(ctx, "Failed to send settlement receipt", "bookingID", record.BookingID, "error", err)
	}

	logger.ExitMethod("settlementService.ApplySettlement", "bookingID", record.BookingID, "recordID", record.ID)
	return nil
}

func (s *settlementService) publish(ctx context.Context, key string, v any) {
	if err := s.publisher.PublishJSON(ctx, key, v); err != nil {
		s.log.WarnContext(ctx, "Failed to publish event", "routingKey", key, "error", err)
	}
}

func (s *settlementService) ListPendingReviews(ctx context.Context, limit int) ([]domain.CheckRecord, error) {
	if limit <= 0 {
		limit = defaultReviewPageSize
	}
	return s.recordRepo.ListPendingReview(ctx, limit)
}

func (s *settlementService) MarkReviewed(ctx context.Context, recordID string) error {
	return s.recordRepo.MarkReviewed(ctx, recordID, s.now().UTC())
}
