package workflow

import (
	"fmt"
	"slices"
	"strings"

	"vehicle-checkpoint-backend/internal/domain"
	"vehicle-checkpoint-backend/internal/utils"
)

const (
	noticePlateMismatch   = "Registration does not match the booking. Scan the plate again."
	noticeEstimateFailed  = "Automatic reading failed. Enter the odometer and fuel level manually."
	noticeEstimatePartial = "Some values could not be read from the dashboard. Check them before confirming."
	noticeManualMode      = "No check-in record found. Enter the start odometer and fuel level to reconcile manually."
	noticeSubmitFailed    = "Saving failed. Nothing was recorded; try again."
	noticeSettlementStale = "Fines changed since the settlement was calculated. Review the updated settlement and accept again."
)

// Reduce applies ev to s and returns the next snapshot. It performs no I/O.
//
// On a guard violation the unchanged snapshot is returned together with the error.
// A plate mismatch is the one rejection that still changes state (attempt count and notice).
func Reduce(s Snapshot, ev Event) (Snapshot, error) {
	if _, ok := ev.(Restart); ok {
		return Initial(s.SessionID, s.Booking, s.RecordType), nil
	}
	if s.Step == StepSubmitted {
		return s, ErrTransitionNotAllowed
	}

	next := s
	next.Notice = ""

	switch e := ev.(type) {
	case PlateScanned:
		if s.Step != StepPlate {
			return s, ErrTransitionNotAllowed
		}
		next.PlateAttempts++
		if !utils.VerifyPlate(e.Scanned, s.Booking.Registration) {
			next.Notice = noticePlateMismatch
			return next, ErrPlateMismatch
		}
		next.Step = StepDamageScan

	case DamageScanCompleted:
		if s.Step != StepDamageScan {
			return s, ErrTransitionNotAllowed
		}
		if e.Findings < 0 {
			return s, fmt.Errorf("%w: damage count must not be negative", ErrInvalidReading)
		}
		next.DamageCount = e.Findings
		next.DamageScanSkipped = false
		next.Step = StepDashboard

	case DamageScanSkipped:
		if s.Step != StepDamageScan {
			return s, ErrTransitionNotAllowed
		}
		next.DamageCount = 0
		next.DamageScanSkipped = true
		next.Step = StepDashboard

	case DashboardCaptured:
		if s.Step != StepDashboard || s.Analyzing {
			return s, ErrTransitionNotAllowed
		}
		if e.ImageKey == "" {
			return s, ErrImageRequired
		}
		next.DashboardImageKey = e.ImageKey
		next.Analyzing = true

	case EstimateReceived:
		if s.Step != StepDashboard || !s.Analyzing {
			return s, ErrTransitionNotAllowed
		}
		res := e.Result
		next.Analyzing = false
		next.Estimate = &res
		next.Confirmation = Confirmation{
			Odometer:    domain.Automated(res.OdometerOr(0)),
			FuelPercent: domain.Automated(res.FuelPercentOr(0)),
		}
		switch {
		case !res.OK():
			next.Notice = noticeEstimateFailed
		case res.Estimate.Odometer == nil || res.Estimate.FuelPercent == nil:
			next.Notice = noticeEstimatePartial
		}
		next.Step = StepConfirm

	case ReadingOverridden:
		if s.Step != StepConfirm || s.Submitting {
			return s, ErrTransitionNotAllowed
		}
		reason := strings.TrimSpace(e.Reason)
		if reason == "" {
			return s, ErrReasonRequired
		}
		if err := validateReading(e.Field, e.Value); err != nil {
			return s, err
		}
		if s.showsReading(e.Field, e.Value) {
			// Re-entering the value already on screen is not an adjustment.
			return next, nil
		}
		c := s.Confirmation
		c.Reasons = append(slices.Clone(c.Reasons), fmt.Sprintf("%s: %s", e.Field, reason))
		c.ManuallyAdjusted = true
		if e.Field == FieldOdometer {
			c.Odometer = domain.ManualOverride(e.Value, reason)
		} else {
			c.FuelPercent = domain.ManualOverride(e.Value, reason)
		}
		next.Confirmation = c

	case CleanlinessSet:
		if s.Step != StepConfirm || s.Submitting || !s.IsCheckOut() {
			return s, ErrTransitionNotAllowed
		}
		ext, in := e.ExteriorClean, e.InteriorClean
		next.Confirmation.ExteriorClean = &ext
		next.Confirmation.InteriorClean = &in

	case ConfirmAccepted:
		if s.Step != StepConfirm || s.Submitting {
			return s, ErrTransitionNotAllowed
		}
		if err := validateReading(FieldOdometer, s.Confirmation.Odometer.Value()); err != nil {
			return s, err
		}
		if err := validateReading(FieldFuelPercent, s.Confirmation.FuelPercent.Value()); err != nil {
			return s, err
		}
		if !s.IsCheckOut() {
			next.Submitting = true
			break
		}
		if s.Confirmation.ExteriorClean == nil || s.Confirmation.InteriorClean == nil {
			return s, ErrCleanlinessRequired
		}
		next.Settlement = SettlementState{}
		next.Step = StepSettlement

	case SettlementInputsLoaded:
		if s.Step != StepSettlement || s.Submitting {
			return s, ErrTransitionNotAllowed
		}
		st := SettlementState{
			InputsLoaded:   true,
			Fines:          slices.Clone(e.Fines),
			FuelPricing:    e.FuelPricing,
			MaxPlausibleKm: e.MaxPlausibleKm,
		}
		if e.CheckIn != nil {
			st.CheckInRecordID = e.CheckIn.ID
			st.StartOdometer = e.CheckIn.ConfirmedOdometer
			st.StartFuelPercent = e.CheckIn.ConfirmedFuelPercent
			st.HasStartReadings = true
		} else {
			st.ManualMode = true
			// Start readings typed in before a reload survive it.
			if prev := s.Settlement; prev.ManualMode && prev.HasStartReadings {
				st.StartOdometer = prev.StartOdometer
				st.StartFuelPercent = prev.StartFuelPercent
				st.HasStartReadings = true
			} else {
				next.Notice = noticeManualMode
			}
		}
		next.Settlement = st
		next.Settlement.Breakdown = recompute(next)

	case ManualReadingsEntered:
		if s.Step != StepSettlement || s.Submitting || !s.Settlement.ManualMode {
			return s, ErrTransitionNotAllowed
		}
		if err := validateReading(FieldOdometer, e.StartOdometer); err != nil {
			return s, err
		}
		if err := validateReading(FieldFuelPercent, e.StartFuelPercent); err != nil {
			return s, err
		}
		st := s.Settlement
		st.StartOdometer = e.StartOdometer
		st.StartFuelPercent = e.StartFuelPercent
		st.HasStartReadings = true
		next.Settlement = st
		next.Settlement.Breakdown = recompute(next)

	case SettlementAccepted:
		if s.Step != StepSettlement || s.Submitting {
			return s, ErrTransitionNotAllowed
		}
		if s.Settlement.Breakdown == nil {
			return s, ErrSettlementNotReady
		}
		next.Submitting = true

	case SubmissionSucceeded:
		if !s.Submitting {
			return s, ErrTransitionNotAllowed
		}
		next.Submitting = false
		next.RecordID = e.RecordID
		next.Step = StepSubmitted

	case SubmissionFailed:
		if !s.Submitting {
			return s, ErrTransitionNotAllowed
		}
		next.Submitting = false
		next.Notice = noticeSubmitFailed
		if e.InputsStale && s.Step == StepSettlement {
			st := s.Settlement
			st.InputsLoaded = false
			st.Breakdown = nil
			next.Settlement = st
			next.Notice = noticeSettlementStale
		}

	default:
		return s, fmt.Errorf("%w: unknown event %T", ErrTransitionNotAllowed, ev)
	}
	return next, nil
}

// showsReading reports whether field already holds value as an estimated or typed-in
// reading. A placeholder left by a failed estimate does not count.
func (s Snapshot) showsReading(field Field, value int) bool {
	current, estimated := s.Confirmation.Odometer, -1
	if s.Estimate != nil {
		estimated = s.Estimate.OdometerOr(-1)
	}
	if field == FieldFuelPercent {
		current, estimated = s.Confirmation.FuelPercent, -1
		if s.Estimate != nil {
			estimated = s.Estimate.FuelPercentOr(-1)
		}
	}
	if current.Value() != value {
		return false
	}
	return current.IsManual() || estimated == value
}

func validateReading(field Field, value int) error {
	switch field {
	case FieldOdometer:
		if value < 0 {
			return fmt.Errorf("%w: odometer must not be negative", ErrInvalidReading)
		}
	case FieldFuelPercent:
		if value < 0 || value > 100 {
			return fmt.Errorf("%w: fuel level must be between 0 and 100", ErrInvalidReading)
		}
	default:
		return fmt.Errorf("%w: unknown field %q", ErrInvalidReading, field)
	}
	return nil
}

// recompute runs the full settlement calculation from the snapshot, or returns nil
// while start readings are still missing.
func recompute(s Snapshot) *utils.SettlementBreakdown {
	if !s.Settlement.HasStartReadings {
		return nil
	}
	b := utils.CalculateSettlement(s.SettlementInput())
	return &b
}

// SettlementInput assembles calculator input from the snapshot. The end readings are
// always the confirmed ones; only the source of the start readings differs by mode.
func (s Snapshot) SettlementInput() utils.SettlementInput {
	var ext, in bool
	if s.Confirmation.ExteriorClean != nil {
		ext = *s.Confirmation.ExteriorClean
	}
	if s.Confirmation.InteriorClean != nil {
		in = *s.Confirmation.InteriorClean
	}
	return utils.SettlementInput{
		StartOdometer:    s.Settlement.StartOdometer,
		StartFuelPercent: s.Settlement.StartFuelPercent,
		EndOdometer:      s.Confirmation.Odometer.Value(),
		EndFuelPercent:   s.Confirmation.FuelPercent.Value(),
		Rules:            s.Booking.Rules,
		FuelPricing:      s.Settlement.FuelPricing,
		ExteriorClean:    ext,
		InteriorClean:    in,
		Fines:            s.Settlement.Fines,
		DepositAmount:    s.Booking.DepositAmount,
		RentalPrice:      s.Booking.TotalPrice,
		MaxPlausibleKm:   s.Settlement.MaxPlausibleKm,
	}
}
