package workflow

import (
	"vehicle-checkpoint-backend/internal/domain"
	"vehicle-checkpoint-backend/internal/estimator"
)

// Event is an input to Reduce.
type Event interface {
	event()
}

type PlateScanned struct{ Scanned string }

type DamageScanCompleted struct{ Findings int }

type DamageScanSkipped struct{}

type DashboardCaptured struct{ ImageKey string }

type EstimateReceived struct{ Result estimator.Result }

type ReadingOverridden struct {
	Field  Field
	Value  int
	Reason string
}

type CleanlinessSet struct {
	ExteriorClean bool
	InteriorClean bool
}

type ConfirmAccepted struct{}

// SettlementInputsLoaded carries what settlement needs beyond the session itself.
// A nil CheckIn switches the step into manual reconciliation.
type SettlementInputsLoaded struct {
	CheckIn        *domain.CheckRecord
	Fines          []domain.Fine
	FuelPricing    domain.FuelPricing
	MaxPlausibleKm int
}

type ManualReadingsEntered struct {
	StartOdometer    int
	StartFuelPercent int
}

type SettlementAccepted struct{}

type SubmissionSucceeded struct{ RecordID string }

// SubmissionFailed reports a failed save. InputsStale means the unpaid fines changed
// underneath the settlement, so its inputs must be loaded again before a retry.
type SubmissionFailed struct {
	Err         error
	InputsStale bool
}

type Restart struct{}

func (PlateScanned) event()           {}
func (DamageScanCompleted) event()    {}
func (DamageScanSkipped) event()      {}
func (DashboardCaptured) event()      {}
func (EstimateReceived) event()       {}
func (ReadingOverridden) event()      {}
func (CleanlinessSet) event()         {}
func (ConfirmAccepted) event()        {}
func (SettlementInputsLoaded) event() {}
func (ManualReadingsEntered) event()  {}
func (SettlementAccepted) event()     {}
func (SubmissionSucceeded) event()    {}
func (SubmissionFailed) event()       {}
func (Restart) event()                {}
