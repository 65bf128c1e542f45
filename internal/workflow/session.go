package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"vehicle-checkpoint-backend/internal/domain"
	"vehicle-checkpoint-backend/internal/estimator"
	"vehicle-checkpoint-backend/internal/logger"
	"vehicle-checkpoint-backend/internal/repository"
)

// CapturedImage is one frame taken by a CaptureDevice.
type CapturedImage struct {
	Key         string
	ContentType string
	Data        []byte
}

// CaptureDevice is an exclusive handle on the camera. Release must be safe to call twice.
type CaptureDevice interface {
	Capture(ctx context.Context, frame io.Reader, contentType string) (CapturedImage, error)
	Release() error
}

// ImageCapture hands out capture devices.
type ImageCapture interface {
	Acquire(ctx context.Context, sessionID string) (CaptureDevice, error)
}

// GeoLocator reports where the operator's device is.
type GeoLocator interface {
	Locate(ctx context.Context) (Coordinates, error)
}

// SettlementLoader fetches the check-in record, unpaid fines and fuel pricing of a booking.
type SettlementLoader interface {
	LoadInputs(ctx context.Context, booking domain.Booking) (SettlementInputsLoaded, error)
}

// Submitter persists a finished workflow. Implementations assign record.ID.
type Submitter interface {
	SubmitCheckIn(ctx context.Context, record *domain.CheckRecord) error
	ApplySettlement(ctx context.Context, record *domain.CheckRecord, fines []domain.Fine, summary domain.SettlementSummary) error
}

type Dependencies struct {
	Capture    ImageCapture
	Locator    GeoLocator
	Estimator  estimator.ConditionEstimator
	Settlement SettlementLoader
	Submitter  Submitter
	// LocateTimeout bounds the background position lookup.
	LocateTimeout time.Duration
}

// Session runs one check-in or check-out for one operator. Calls are serialized.
type Session struct {
	mu         sync.Mutex
	id         string
	deps       Dependencies
	operatorID string
	log        *slog.Logger

	snap       Snapshot
	device     CaptureDevice
	generation int
	closed     bool
	lastActive time.Time

	locMu        sync.Mutex
	location     *Coordinates
	cancelLocate context.CancelFunc
}

// NewSession creates a session at the plate step and starts looking up the device
// position in the background. The lookup never blocks the workflow.
func NewSession(id, operatorID string, booking domain.Booking, recordType domain.RecordType, deps Dependencies) *Session {
	if deps.Estimator == nil {
		deps.Estimator = estimator.Disabled()
	}
	s := &Session{
		id:         id,
		deps:       deps,
		operatorID: operatorID,
		log:        logger.WithSession(id, booking.ID, string(recordType)),
		snap:       Initial(id, booking, recordType),
		lastActive: time.Now(),
	}
	s.startLocate()
	return s
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) OperatorID() string {
	return s.operatorID
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Location returns the device position if the background lookup has finished.
func (s *Session) Location() *Coordinates {
	s.locMu.Lock()
	defer s.locMu.Unlock()
	return s.location
}

// SetLocation records a position reported by the client. It wins over a pending lookup.
func (s *Session) SetLocation(c Coordinates) {
	s.locMu.Lock()
	defer s.locMu.Unlock()
	s.location = &c
	if s.cancelLocate != nil {
		s.cancelLocate()
	}
}

func (s *Session) startLocate() {
	if s.deps.Locator == nil {
		return
	}
	timeout := s.deps.LocateTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	s.cancelLocate = cancel

	go func() {
		defer cancel()
		c, err := s.deps.Locator.Locate(ctx)
		if err != nil {
			s.log.Warn("Geolocation unavailable, record will carry no coordinates", "error", err)
			return
		}
		s.locMu.Lock()
		if s.location == nil {
			s.location = &c
		}
		s.locMu.Unlock()
	}()
}

// apply runs the reducer and keeps the new snapshot. Callers hold s.mu.
func (s *Session) apply(ev Event) error {
	next, err := Reduce(s.snap, ev)
	s.snap = next
	s.lastActive = time.Now()
	return err
}

func (s *Session) begin() error {
	if s.closed {
		return ErrSessionClosed
	}
	return nil
}

func (s *Session) ScanPlate(ctx context.Context, scanned string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(); err != nil {
		return s.snap, err
	}
	if err := s.apply(PlateScanned{Scanned: scanned}); err != nil {
		if errors.Is(err, ErrPlateMismatch) {
			s.log.Info("Plate verification failed", "attempt", s.snap.PlateAttempts)
		}
		return s.snap, err
	}
	return s.snap, nil
}

func (s *Session) CompleteDamageScan(ctx context.Context, findings int) (Snapshot, error) {
	return s.leaveDamageScan(ctx, DamageScanCompleted{Findings: findings})
}

func (s *Session) SkipDamageScan(ctx context.Context) (Snapshot, error) {
	return s.leaveDamageScan(ctx, DamageScanSkipped{})
}

func (s *Session) leaveDamageScan(ctx context.Context, ev Event) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(); err != nil {
		return s.snap, err
	}
	if err := s.apply(ev); err != nil {
		return s.snap, err
	}
	// Entering the dashboard step claims the camera. If that fails the step stays usable;
	// CaptureDashboard tries again.
	if err := s.acquireDevice(ctx); err != nil {
		s.snap.Notice = "Camera unavailable. Retry the capture."
	}
	return s.snap, nil
}

func (s *Session) acquireDevice(ctx context.Context) error {
	if s.device != nil || s.deps.Capture == nil {
		return nil
	}
	dev, err := s.deps.Capture.Acquire(ctx, s.snap.SessionID)
	if err != nil {
		s.log.Warn("Failed to acquire capture device", "error", err)
		return err
	}
	s.device = dev
	return nil
}

func (s *Session) releaseDevice() {
	if s.device == nil {
		return
	}
	if err := s.device.Release(); err != nil {
		s.log.Warn("Failed to release capture device", "error", err)
	}
	s.device = nil
}

// CaptureDashboard captures the dashboard frame and waits for the bounded estimate.
// While the estimator runs the session lock is released, so Snapshot reports Analyzing.
func (s *Session) CaptureDashboard(ctx context.Context, frame io.Reader, contentType string) (Snapshot, error) {
	s.mu.Lock()
	if err := s.begin(); err != nil {
		defer s.mu.Unlock()
		return s.snap, err
	}
	if s.snap.Step != StepDashboard || s.snap.Analyzing {
		defer s.mu.Unlock()
		return s.snap, ErrTransitionNotAllowed
	}
	if err := s.acquireDevice(ctx); err != nil {
		defer s.mu.Unlock()
		return s.snap, fmt.Errorf("%w: %w", ErrCaptureFailed, err)
	}
	if s.device == nil {
		defer s.mu.Unlock()
		return s.snap, fmt.Errorf("%w: no capture device configured", ErrCaptureFailed)
	}
	img, err := s.device.Capture(ctx, frame, contentType)
	if err != nil {
		s.snap.Notice = "Capture failed. Try again."
		defer s.mu.Unlock()
		return s.snap, fmt.Errorf("%w: %w", ErrCaptureFailed, err)
	}
	if err := s.apply(DashboardCaptured{ImageKey: img.Key}); err != nil {
		defer s.mu.Unlock()
		return s.snap, err
	}
	gen := s.generation
	s.mu.Unlock()

	logger.ExternalServiceCall("estimator", "Estimate", "session_id", s.id)
	res := s.deps.Estimator.Estimate(ctx, estimator.Image{Data: img.Data, ContentType: img.ContentType})
	if !res.OK() {
		logger.ExternalServiceResult("estimator", "Estimate", res.Err, "kind", res.Err.Kind)
	} else {
		logger.ExternalServiceResult("estimator", "Estimate", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return s.snap, ErrSessionClosed
	}
	if gen != s.generation {
		// Restarted while the estimator was running; the result belongs to a discarded attempt.
		return s.snap, ErrTransitionNotAllowed
	}
	if err := s.apply(EstimateReceived{Result: res}); err != nil {
		return s.snap, err
	}
	s.releaseDevice()
	return s.snap, nil
}

func (s *Session) OverrideReading(ctx context.Context, field Field, value int, reason string) (Snapshot, error) {
	return s.simple(ReadingOverridden{Field: field, Value: value, Reason: reason})
}

func (s *Session) SetCleanliness(ctx context.Context, exteriorClean, interiorClean bool) (Snapshot, error) {
	return s.simple(CleanlinessSet{ExteriorClean: exteriorClean, InteriorClean: interiorClean})
}

func (s *Session) simple(ev Event) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(); err != nil {
		return s.snap, err
	}
	err := s.apply(ev)
	return s.snap, err
}

// Confirm accepts the confirmed readings. A check-in is submitted right away; a
// check-out moves on to settlement and loads its inputs.
func (s *Session) Confirm(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(); err != nil {
		return s.snap, err
	}
	if err := s.apply(ConfirmAccepted{}); err != nil {
		return s.snap, err
	}
	if !s.snap.IsCheckOut() {
		return s.snap, s.submit(ctx)
	}
	return s.snap, s.loadSettlement(ctx)
}

func (s *Session) loadSettlement(ctx context.Context) error {
	if s.deps.Settlement == nil {
		return fmt.Errorf("%w: no settlement loader configured", ErrSettlementNotReady)
	}
	inputs, err := s.deps.Settlement.LoadInputs(ctx, s.snap.Booking)
	if err != nil {
		s.log.Error("Failed to load settlement inputs", "error", err)
		s.snap.Notice = "Could not load settlement data. Try again."
		return fmt.Errorf("%w: %v", ErrSettlementNotReady, err)
	}
	if err := s.apply(inputs); err != nil {
		return err
	}
	s.logAnomalies(ctx)
	return nil
}

func (s *Session) ensureSettlementInputs(ctx context.Context) error {
	if s.snap.Step != StepSettlement || s.snap.Settlement.InputsLoaded {
		return nil
	}
	return s.loadSettlement(ctx)
}

func (s *Session) logAnomalies(ctx context.Context) {
	b := s.snap.Settlement.Breakdown
	if b == nil || !b.NeedsReview() {
		return
	}
	in := s.snap.SettlementInput()
	logger.Anomaly(ctx, s.snap.Booking.ID, b.ReviewFlags(),
		"session_id", s.snap.SessionID,
		"start_odometer", in.StartOdometer,
		"end_odometer", in.EndOdometer,
		"manual_reconciliation", s.snap.Settlement.ManualMode)
}

// EnterManualReadings supplies start readings when no check-in record exists.
// The settlement is recomputed in full.
func (s *Session) EnterManualReadings(ctx context.Context, startOdometer, startFuelPercent int) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(); err != nil {
		return s.snap, err
	}
	if err := s.ensureSettlementInputs(ctx); err != nil {
		return s.snap, err
	}
	if err := s.apply(ManualReadingsEntered{StartOdometer: startOdometer, StartFuelPercent: startFuelPercent}); err != nil {
		return s.snap, err
	}
	s.logAnomalies(ctx)
	return s.snap, nil
}

// AcceptSettlement persists the check-out together with its settlement.
func (s *Session) AcceptSettlement(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(); err != nil {
		return s.snap, err
	}
	if err := s.ensureSettlementInputs(ctx); err != nil {
		return s.snap, err
	}
	if err := s.apply(SettlementAccepted{}); err != nil {
		return s.snap, err
	}
	return s.snap, s.submit(ctx)
}

// submit persists the pending record. Callers hold s.mu and the snapshot is Submitting.
func (s *Session) submit(ctx context.Context) error {
	if s.deps.Submitter == nil {
		_ = s.apply(SubmissionFailed{Err: errors.New("no submitter configured")})
		return ErrSubmissionFailed
	}
	rec := BuildRecord(s.snap, s.operatorID, s.Location())

	var err error
	if s.snap.IsCheckOut() {
		summary, _ := s.snap.Summary()
		err = s.deps.Submitter.ApplySettlement(ctx, rec, s.snap.Settlement.Fines, summary)
	} else {
		err = s.deps.Submitter.SubmitCheckIn(ctx, rec)
	}
	if err != nil {
		s.log.Error("Submission failed", "error", err)
		stale := errors.Is(err, repository.ErrStaleSettlement)
		_ = s.apply(SubmissionFailed{Err: err, InputsStale: stale})
		if stale {
			// Show the recalculated settlement right away; accepting again reloads on failure.
			if reloadErr := s.loadSettlement(ctx); reloadErr != nil {
				s.log.Warn("Failed to reload settlement inputs after stale fines", "error", reloadErr)
			} else {
				s.snap.Notice = noticeSettlementStale
			}
		}
		return fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}
	_ = s.apply(SubmissionSucceeded{RecordID: rec.ID})
	s.log.Info("Check record submitted", "record_id", rec.ID, "manually_adjusted", rec.WasManuallyAdjusted)
	return nil
}

// Restart discards everything gathered so far and returns to the plate step.
func (s *Session) Restart(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(); err != nil {
		return s.snap, err
	}
	s.releaseDevice()
	s.generation++
	err := s.apply(Restart{})
	return s.snap, err
}

// Close ends the session. Unsaved state is discarded and the camera is released.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.generation++
	s.releaseDevice()

	s.locMu.Lock()
	if s.cancelLocate != nil {
		s.cancelLocate()
	}
	s.locMu.Unlock()
}
