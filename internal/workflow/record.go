package workflow

import (
	"strings"

	"vehicle-checkpoint-backend/internal/domain"
)

// Coordinates is a device position. A nil *Coordinates means the position is unknown.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// BuildRecord turns a snapshot that is ready to submit into the check record to persist.
func BuildRecord(s Snapshot, operatorID string, loc *Coordinates) *domain.CheckRecord {
	c := s.Confirmation
	rec := &domain.CheckRecord{
		BookingID:            s.Booking.ID,
		RecordType:           s.RecordType,
		ConfirmedOdometer:    c.Odometer.Value(),
		ConfirmedFuelPercent: c.FuelPercent.Value(),
		WasManuallyAdjusted:  c.ManuallyAdjusted,
		AdjustmentReason:     strings.Join(c.Reasons, "; "),
		ExpectedLatitude:     s.Booking.PickupLatitude,
		ExpectedLongitude:    s.Booking.PickupLongitude,
		DamageCount:          s.DamageCount,
		DamageScanSkipped:    s.DamageScanSkipped,
		RecordedBy:           operatorID,
	}
	if s.Estimate != nil && s.Estimate.OK() {
		rec.AIOdometer = copyInt(s.Estimate.Estimate.Odometer)
		rec.AIFuelPercent = copyInt(s.Estimate.Estimate.FuelPercent)
	}
	if loc != nil {
		lat, lon := loc.Latitude, loc.Longitude
		rec.Latitude = &lat
		rec.Longitude = &lon
	}

	if !s.IsCheckOut() || s.Settlement.Breakdown == nil {
		return rec
	}
	b := s.Settlement.Breakdown
	in := s.SettlementInput()
	rec.KmOverage = b.KmOverage
	rec.KmOverageFee = b.Summary.KmOverageFee
	rec.FuelFee = b.Summary.FuelFee
	rec.ExteriorClean = in.ExteriorClean
	rec.InteriorClean = in.InteriorClean
	rec.ExteriorCleaningFee = b.Summary.ExteriorCleaningFee
	rec.InteriorCleaningFee = b.Summary.InteriorCleaningFee
	rec.TotalExtraCharges = b.Summary.TotalCharges
	rec.RentalPrice = b.Summary.RentalPrice
	rec.FinesTotal = b.Summary.FinesTotal
	rec.DepositAmount = b.Summary.DepositAmount
	rec.DepositRefund = b.Summary.DepositRefund
	rec.AmountDueFromRenter = b.Summary.AmountDueFromRenter
	rec.Settled = true
	rec.ManualReconciliation = s.Settlement.ManualMode
	rec.ReviewFlags = b.ReviewFlags()
	return rec
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}
