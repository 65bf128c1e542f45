package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"vehicle-checkpoint-backend/internal/device"
	"vehicle-checkpoint-backend/internal/domain"
	"vehicle-checkpoint-backend/internal/logger"
	"vehicle-checkpoint-backend/internal/repository"
	"vehicle-checkpoint-backend/internal/workflow"
)

const defaultSessionTTL = 30 * time.Minute

type checkKey struct {
	bookingID  string
	recordType domain.RecordType
}

type checkpointService struct {
	bookingRepo repository.BookingRepository
	recordRepo  repository.CheckRecordRepository
	deps        workflow.Dependencies
	ttl         time.Duration
	log         *slog.Logger

	mu       sync.Mutex
	sessions map[string]*workflow.Session
	open     map[checkKey]string
}

// NewCheckpointService keeps sessions in memory. deps.Locator is ignored; each session
// locates from the position its client reported.
func NewCheckpointService(
	bookingRepo repository.BookingRepository,
	recordRepo repository.CheckRecordRepository,
	deps workflow.Dependencies,
	ttl time.Duration,
) CheckpointService {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &checkpointService{
		bookingRepo: bookingRepo,
		recordRepo:  recordRepo,
		deps:        deps,
		ttl:         ttl,
		log:         logger.WithService("checkpoint"),
		sessions:    make(map[string]*workflow.Session),
		open:        make(map[checkKey]string),
	}
}

func eligible(status domain.BookingStatus, recordType domain.RecordType) bool {
	switch recordType {
	case domain.RecordTypeCheckIn:
		return status == domain.BookingStatusConfirmed
	case domain.RecordTypeCheckOut:
		// A confirmed booking at check-out has no check-in and is reconciled manually.
		return status == domain.BookingStatusActive || status == domain.BookingStatusConfirmed
	}
	return false
}

// resumable returns the open session for key. Callers hold s.mu.
func (s *checkpointService) resumable(key checkKey, operatorID string) (*workflow.Session, error) {
	id, ok := s.open[key]
	if !ok {
		return nil, nil
	}
	sess := s.sessions[id]
	if sess == nil || sess.Snapshot().Done() {
		delete(s.open, key)
		return nil, nil
	}
	if sess.OperatorID() != operatorID {
		return nil, ErrSessionInProgress
	}
	return sess, nil
}

func (s *checkpointService) StartSession(ctx context.Context, operatorID, bookingID string, recordType domain.RecordType, location *workflow.Coordinates) (workflow.Snapshot, error) {
	logger.EnterMethod("checkpointService.StartSession", "operatorID", operatorID, "bookingID", bookingID, "recordType", recordType)

	if !recordType.Valid() {
		return workflow.Snapshot{}, ErrInvalidRecordType
	}
	key := checkKey{bookingID: bookingID, recordType: recordType}

	s.mu.Lock()
	existing, err := s.resumable(key, operatorID)
	s.mu.Unlock()
	if err != nil {
		return workflow.Snapshot{}, err
	}
	if existing != nil {
		if location != nil {
			existing.SetLocation(*location)
		}
		logger.ExitMethod("checkpointService.StartSession", "sessionID", existing.ID(), "resumed", true)
		return existing.Snapshot(), nil
	}

	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		logger.ExitMethodWithError("checkpointService.StartSession", err, "bookingID", bookingID)
		return workflow.Snapshot{}, err
	}
	if !eligible(booking.Status, recordType) {
		return workflow.Snapshot{}, ErrBookingNotEligible
	}
	if _, err := s.recordRepo.GetByBookingAndType(ctx, bookingID, recordType); err == nil {
		return workflow.Snapshot{}, repository.ErrRecordExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		logger.ExitMethodWithError("checkpointService.StartSession", err, "bookingID", bookingID)
		return workflow.Snapshot{}, err
	}

	deps := s.deps
	deps.Locator = device.ReportedLocator{Position: location}
	sess := workflow.NewSession(uuid.NewString(), operatorID, *booking, recordType, deps)

	s.mu.Lock()
	// Another request may have opened the same check while the booking was loading.
	existing, err = s.resumable(key, operatorID)
	if err == nil && existing == nil {
		s.sessions[sess.ID()] = sess
		s.open[key] = sess.ID()
	}
	s.mu.Unlock()

	if err != nil || existing != nil {
		sess.Close()
		if err != nil {
			return workflow.Snapshot{}, err
		}
		return existing.Snapshot(), nil
	}

	logger.ExitMethod("checkpointService.StartSession", "sessionID", sess.ID(), "resumed", false)
	return sess.Snapshot(), nil
}

func (s *checkpointService) lookup(operatorID, sessionID string) (*workflow.Session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok || sess.OperatorID() != operatorID {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *checkpointService) with(operatorID, sessionID string, fn func(*workflow.Session) (workflow.Snapshot, error)) (workflow.Snapshot, error) {
	sess, err := s.lookup(operatorID, sessionID)
	if err != nil {
		return workflow.Snapshot{}, err
	}
	return fn(sess)
}

func (s *checkpointService) GetSession(ctx context.Context, operatorID, sessionID string) (workflow.Snapshot, error) {
	return s.with(operatorID, sessionID, func(sess *workflow.Session) (workflow.Snapshot, error) {
		return sess.Snapshot(), nil
	})
}

func (s *checkpointService) ScanPlate(ctx context.Context, operatorID, sessionID, scanned string) (workflow.Snapshot, error) {
	return s.with(operatorID, sessionID, func(sess *workflow.Session) (workflow.Snapshot, error) {
		return sess.ScanPlate(ctx, scanned)
	})
}

func (s *checkpointService) CompleteDamageScan(ctx context.Context, operatorID, sessionID string, findings int) (workflow.Snapshot, error) {
	return s.with(operatorID, sessionID, func(sess *workflow.Session) (workflow.Snapshot, error) {
		return sess.CompleteDamageScan(ctx, findings)
	})
}

func (s *checkpointService) SkipDamageScan(ctx context.Context, operatorID, sessionID string) (workflow.Snapshot, error) {
	return s.with(operatorID, sessionID, func(sess *workflow.Session) (workflow.Snapshot, error) {
		return sess.SkipDamageScan(ctx)
	})
}

func (s *checkpointService) CaptureDashboard(ctx context.Context, operatorID, sessionID string, frame io.Reader, contentType string) (workflow.Snapshot, error) {
	return s.with(operatorID, sessionID, func(sess *workflow.Session) (workflow.Snapshot, error) {
		return sess.CaptureDashboard(ctx, frame, contentType)
	})
}

func (s *checkpointService) OverrideReading(ctx context.Context, operatorID, sessionID string, field workflow.Field, value int, reason string) (workflow.Snapshot, error) {
	return s.with(operatorID, sessionID, func(sess *workflow.Session) (workflow.Snapshot, error) {
		return sess.OverrideReading(ctx, field, value, reason)
	})
}

func (s *checkpointService) SetCleanliness(ctx context.Context, operatorID, sessionID string, exteriorClean, interiorClean bool) (workflow.Snapshot, error) {
	return s.with(operatorID, sessionID, func(sess *workflow.Session) (workflow.Snapshot, error) {
		return sess.SetCleanliness(ctx, exteriorClean, interiorClean)
	})
}

func (s *checkpointService) Confirm(ctx context.Context, operatorID, sessionID string) (workflow.Snapshot, error) {
	return s.with(operatorID, sessionID, func(sess *workflow.Session) (workflow.Snapshot, error) {
		return sess.Confirm(ctx)
	})
}

func (s *checkpointService) EnterManualReadings(ctx context.Context, operatorID, sessionID string, startOdometer, startFuelPercent int) (workflow.Snapshot, error) {
	return s.with(operatorID, sessionID, func(sess *workflow.Session) (workflow.Snapshot, error) {
		return sess.EnterManualReadings(ctx, startOdometer, startFuelPercent)
	})
}

func (s *checkpointService) AcceptSettlement(ctx context.Context, operatorID, sessionID string) (workflow.Snapshot, error) {
	return s.with(operatorID, sessionID, func(sess *workflow.Session) (workflow.Snapshot, error) {
		return sess.AcceptSettlement(ctx)
	})
}

func (s *checkpointService) Restart(ctx context.Context, operatorID, sessionID string) (workflow.Snapshot, error) {
	return s.with(operatorID, sessionID, func(sess *workflow.Session) (workflow.Snapshot, error) {
		return sess.Restart(ctx)
	})
}

func (s *checkpointService) Close(ctx context.Context, operatorID, sessionID string) error {
	sess, err := s.lookup(operatorID, sessionID)
	if err != nil {
		return err
	}
	s.remove(sess)
	sess.Close()
	return nil
}

func (s *checkpointService) remove(sess *workflow.Session) {
	snap := sess.Snapshot()
	key := checkKey{bookingID: snap.Booking.ID, recordType: snap.RecordType}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sess.ID())
	if s.open[key] == sess.ID() {
		delete(s.open, key)
	}
}

func (s *checkpointService) SweepExpired(now time.Time) int {
	cutoff := now.Add(-s.ttl)

	s.mu.Lock()
	all := make([]*workflow.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		all = append(all, sess)
	}
	s.mu.Unlock()

	var expired []*workflow.Session
	for _, sess := range all {
		if sess.LastActive().Before(cutoff) {
			expired = append(expired, sess)
		}
	}
	for _, sess := range expired {
		s.remove(sess)
		sess.Close()
		s.log.Info("Expired check session closed", "sessionID", sess.ID(), "operatorID", sess.OperatorID())
	}
	return len(expired)
}
