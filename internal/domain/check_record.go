package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type RecordType string

const (
	RecordTypeCheckIn  RecordType = "check_in"
	RecordTypeCheckOut RecordType = "check_out"
)

func (t RecordType) Valid() bool {
	return t == RecordTypeCheckIn || t == RecordTypeCheckOut
}

// CheckRecord is the persisted snapshot of vehicle condition at pickup or return.
// There is at most one record per (BookingID, RecordType).
type CheckRecord struct {
	ID                   string     `json:"id"`
	BookingID            string     `json:"booking_id"`
	RecordType           RecordType `json:"record_type"`
	ConfirmedOdometer    int        `json:"confirmed_odometer"`
	ConfirmedFuelPercent int        `json:"confirmed_fuel_percent"`
	AIOdometer           *int       `json:"ai_odometer,omitempty"`
	AIFuelPercent        *int       `json:"ai_fuel_percent,omitempty"`
	WasManuallyAdjusted  bool       `json:"was_manually_adjusted"`
	AdjustmentReason     string     `json:"adjustment_reason,omitempty"`
	Latitude             *float64   `json:"latitude,omitempty"`
	Longitude            *float64   `json:"longitude,omitempty"`
	ExpectedLatitude     *float64   `json:"expected_latitude,omitempty"`
	ExpectedLongitude    *float64   `json:"expected_longitude,omitempty"`
	DamageCount          int        `json:"damage_count"`
	DamageScanSkipped    bool       `json:"damage_scan_skipped"`
	RecordedBy           string     `json:"recorded_by"`

	// Check-out only. Zero on check-in records.
	KmOverage            int             `json:"km_overage"`
	KmOverageFee         decimal.Decimal `json:"km_overage_fee"`
	FuelFee              decimal.Decimal `json:"fuel_fee"`
	ExteriorClean        bool            `json:"exterior_clean"`
	InteriorClean        bool            `json:"interior_clean"`
	ExteriorCleaningFee  decimal.Decimal `json:"exterior_cleaning_fee"`
	InteriorCleaningFee  decimal.Decimal `json:"interior_cleaning_fee"`
	TotalExtraCharges    decimal.Decimal `json:"total_extra_charges"`
	RentalPrice          decimal.Decimal `json:"rental_price"`
	FinesTotal           decimal.Decimal `json:"fines_total"`
	DepositAmount        decimal.Decimal `json:"deposit_amount"`
	DepositRefund        decimal.Decimal `json:"deposit_refund"`
	AmountDueFromRenter  decimal.Decimal `json:"amount_due_from_renter"`
	Settled              bool            `json:"settled"`
	ManualReconciliation bool            `json:"manual_reconciliation"`

	ReviewFlags []string   `json:"review_flags,omitempty"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (r *CheckRecord) NeedsReview() bool {
	return len(r.ReviewFlags) > 0 && r.ReviewedAt == nil
}

// Summary returns the settlement stored with a check-out record as it was accepted.
func (r *CheckRecord) Summary() SettlementSummary {
	return SettlementSummary{
		RentalPrice:         r.RentalPrice,
		KmOverageFee:        r.KmOverageFee,
		FuelFee:             r.FuelFee,
		ExteriorCleaningFee: r.ExteriorCleaningFee,
		InteriorCleaningFee: r.InteriorCleaningFee,
		FinesTotal:          r.FinesTotal,
		TotalCharges:        r.TotalExtraCharges,
		DepositAmount:       r.DepositAmount,
		DepositRefund:       r.DepositRefund,
		AmountDueFromRenter: r.AmountDueFromRenter,
	}
}
