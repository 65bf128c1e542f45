// Package workflow implements the check-in/check-out reconciliation workflow as an explicit
// state machine: a pure reducer over immutable snapshots, plus a Session that performs the
// side effects (camera, geolocation, estimation, persistence) around it.
package workflow

import (
	"errors"

	"vehicle-checkpoint-backend/internal/domain"
	"vehicle-checkpoint-backend/internal/estimator"
	"vehicle-checkpoint-backend/internal/utils"
)

type Step string

const (
	StepPlate      Step = "plate"
	StepDamageScan Step = "damage_scan"
	StepDashboard  Step = "dashboard"
	StepConfirm    Step = "confirm"
	StepSettlement Step = "settlement"
	StepSubmitted  Step = "submitted"
)

type Field string

const (
	FieldOdometer    Field = "odometer"
	FieldFuelPercent Field = "fuel_percent"
)

var (
	ErrTransitionNotAllowed = errors.New("action not allowed in the current step")
	ErrPlateMismatch        = errors.New("registration does not match the booking")
	ErrInvalidReading       = errors.New("invalid reading")
	ErrReasonRequired       = errors.New("a reason is required for a manual adjustment")
	ErrCleanlinessRequired  = errors.New("cleanliness must be recorded before settlement")
	ErrSettlementNotReady   = errors.New("settlement has not been calculated")
	ErrImageRequired        = errors.New("a dashboard image is required")
	ErrSessionClosed        = errors.New("session is closed")
	ErrCaptureFailed        = errors.New("image capture failed")
	ErrSubmissionFailed     = errors.New("submission failed")
)

// Confirmation holds the readings the operator confirms. ManuallyAdjusted never goes
// back to false within a session; only Restart resets it.
type Confirmation struct {
	Odometer         domain.Reading `json:"odometer"`
	FuelPercent      domain.Reading `json:"fuel_percent"`
	ManuallyAdjusted bool           `json:"manually_adjusted"`
	Reasons          []string       `json:"reasons,omitempty"`
	ExteriorClean    *bool          `json:"exterior_clean,omitempty"`
	InteriorClean    *bool          `json:"interior_clean,omitempty"`
}

// SettlementState is the check-out settlement step. ManualMode means no check-in record
// exists and the operator supplies the start readings.
type SettlementState struct {
	InputsLoaded     bool                       `json:"inputs_loaded"`
	ManualMode       bool                       `json:"manual_mode"`
	CheckInRecordID  string                     `json:"check_in_record_id,omitempty"`
	HasStartReadings bool                       `json:"has_start_readings"`
	StartOdometer    int                        `json:"start_odometer"`
	StartFuelPercent int                        `json:"start_fuel_percent"`
	Fines            []domain.Fine              `json:"fines,omitempty"`
	FuelPricing      domain.FuelPricing         `json:"fuel_pricing"`
	MaxPlausibleKm   int                        `json:"max_plausible_km"`
	Breakdown        *utils.SettlementBreakdown `json:"breakdown,omitempty"`
}

// Snapshot is the complete state of one workflow session. Reduce never mutates a
// snapshot in place.
type Snapshot struct {
	SessionID         string            `json:"session_id"`
	Booking           domain.Booking    `json:"booking"`
	RecordType        domain.RecordType `json:"record_type"`
	Step              Step              `json:"step"`
	PlateAttempts     int               `json:"plate_attempts"`
	DamageCount       int               `json:"damage_count"`
	DamageScanSkipped bool              `json:"damage_scan_skipped"`
	DashboardImageKey string            `json:"dashboard_image_key,omitempty"`
	Analyzing         bool              `json:"analyzing"`
	Estimate          *estimator.Result `json:"-"`
	Confirmation      Confirmation      `json:"confirmation"`
	Settlement        SettlementState   `json:"settlement"`
	Submitting        bool              `json:"submitting"`
	RecordID          string            `json:"record_id,omitempty"`
	Notice            string            `json:"notice,omitempty"`
}

// Initial returns the first snapshot of a session.
func Initial(sessionID string, booking domain.Booking, recordType domain.RecordType) Snapshot {
	return Snapshot{
		SessionID:  sessionID,
		Booking:    booking,
		RecordType: recordType,
		Step:       StepPlate,
		Confirmation: Confirmation{
			Odometer:    domain.Automated(0),
			FuelPercent: domain.Automated(0),
		},
	}
}

func (s Snapshot) IsCheckOut() bool {
	return s.RecordType == domain.RecordTypeCheckOut
}

func (s Snapshot) Done() bool {
	return s.Step == StepSubmitted
}

// Summary returns the computed settlement, if any.
func (s Snapshot) Summary() (domain.SettlementSummary, bool) {
	if s.Settlement.Breakdown == nil {
		return domain.SettlementSummary{}, false
	}
	return s.Settlement.Breakdown.Summary, true
}
