package dynamo

import (
	"time"

	"github.com/shopspring/decimal"

	"vehicle-checkpoint-backend/internal/domain"
)

// Amounts are stored as decimal strings and timestamps as RFC 3339 strings.

type bookingItem struct {
	ID                  string   `dynamodbav:"id"`
	VehicleID           string   `dynamodbav:"vehicle_id"`
	LessorID            string   `dynamodbav:"lessor_id"`
	RenterID            string   `dynamodbav:"renter_id"`
	RenterName          string   `dynamodbav:"renter_name"`
	RenterEmail         string   `dynamodbav:"renter_email"`
	Registration        string   `dynamodbav:"registration"`
	DepositAmount       string   `dynamodbav:"deposit_amount"`
	TotalPrice          string   `dynamodbav:"total_price"`
	Status              string   `dynamodbav:"status"`
	IncludedKm          int      `dynamodbav:"included_km"`
	ExtraKmPrice        string   `dynamodbav:"extra_km_price"`
	FuelTankSize        string   `dynamodbav:"fuel_tank_size"`
	ExteriorCleaningFee string   `dynamodbav:"exterior_cleaning_fee"`
	InteriorCleaningFee string   `dynamodbav:"interior_cleaning_fee"`
	PickupLatitude      *float64 `dynamodbav:"pickup_latitude,omitempty"`
	PickupLongitude     *float64 `dynamodbav:"pickup_longitude,omitempty"`
}

type fuelPricingItem struct {
	LessorID        string `dynamodbav:"lessor_id"`
	PricePerLiter   string `dynamodbav:"fuel_price_per_liter"`
	FixedMissingFee string `dynamodbav:"fuel_missing_fee"`
}

type fineItem struct {
	BookingID   string `dynamodbav:"booking_id"`
	ID          string `dynamodbav:"id"`
	FineType    string `dynamodbav:"fine_type"`
	FineAmount  string `dynamodbav:"fine_amount"`
	AdminFee    string `dynamodbav:"admin_fee"`
	TotalAmount string `dynamodbav:"total_amount"`
	Status      string `dynamodbav:"status"`
	PaidAt      string `dynamodbav:"paid_at,omitempty"`
}

type checkRecordItem struct {
	BookingID            string   `dynamodbav:"booking_id"`
	RecordType           string   `dynamodbav:"record_type"`
	ID                   string   `dynamodbav:"id"`
	ConfirmedOdometer    int      `dynamodbav:"confirmed_odometer"`
	ConfirmedFuelPercent int      `dynamodbav:"confirmed_fuel_percent"`
	AIOdometer           *int     `dynamodbav:"ai_odometer,omitempty"`
	AIFuelPercent        *int     `dynamodbav:"ai_fuel_percent,omitempty"`
	WasManuallyAdjusted  bool     `dynamodbav:"was_manually_adjusted"`
	AdjustmentReason     string   `dynamodbav:"adjustment_reason,omitempty"`
	Latitude             *float64 `dynamodbav:"latitude,omitempty"`
	Longitude            *float64 `dynamodbav:"longitude,omitempty"`
	ExpectedLatitude     *float64 `dynamodbav:"expected_latitude,omitempty"`
	ExpectedLongitude    *float64 `dynamodbav:"expected_longitude,omitempty"`
	DamageCount          int      `dynamodbav:"damage_count"`
	DamageScanSkipped    bool     `dynamodbav:"damage_scan_skipped"`
	RecordedBy           string   `dynamodbav:"recorded_by"`
	KmOverage            int      `dynamodbav:"km_overage"`
	KmOverageFee         string   `dynamodbav:"km_overage_fee"`
	FuelFee              string   `dynamodbav:"fuel_fee"`
	ExteriorClean        bool     `dynamodbav:"exterior_clean"`
	InteriorClean        bool     `dynamodbav:"interior_clean"`
	ExteriorCleaningFee  string   `dynamodbav:"exterior_cleaning_fee"`
	InteriorCleaningFee  string   `dynamodbav:"interior_cleaning_fee"`
	TotalExtraCharges    string   `dynamodbav:"total_extra_charges"`
	RentalPrice          string   `dynamodbav:"rental_price"`
	FinesTotal           string   `dynamodbav:"fines_total"`
	DepositAmount        string   `dynamodbav:"deposit_amount"`
	DepositRefund        string   `dynamodbav:"deposit_refund"`
	AmountDueFromRenter  string   `dynamodbav:"amount_due_from_renter"`
	Settled              bool     `dynamodbav:"settled"`
	ManualReconciliation bool     `dynamodbav:"manual_reconciliation"`
	ReviewFlags          []string `dynamodbav:"review_flags,omitempty"`
	ReviewedAt           string   `dynamodbav:"reviewed_at,omitempty"`
	CreatedAt            string   `dynamodbav:"created_at"`
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func parseOptionalTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t := parseTime(s)
	return &t
}

func fromBookingItem(it bookingItem) *domain.Booking {
	return &domain.Booking{
		ID:            it.ID,
		VehicleID:     it.VehicleID,
		LessorID:      it.LessorID,
		RenterID:      it.RenterID,
		RenterName:    it.RenterName,
		RenterEmail:   it.RenterEmail,
		Registration:  it.Registration,
		DepositAmount: parseDecimal(it.DepositAmount),
		TotalPrice:    parseDecimal(it.TotalPrice),
		Status:        domain.BookingStatus(it.Status),
		Rules: domain.VehicleRules{
			IncludedKm:          it.IncludedKm,
			ExtraKmPrice:        parseDecimal(it.ExtraKmPrice),
			FuelTankSize:        parseDecimal(it.FuelTankSize),
			ExteriorCleaningFee: parseDecimal(it.ExteriorCleaningFee),
			InteriorCleaningFee: parseDecimal(it.InteriorCleaningFee),
		},
		PickupLatitude:  it.PickupLatitude,
		PickupLongitude: it.PickupLongitude,
	}
}

func fromFineItem(it fineItem) domain.Fine {
	return domain.Fine{
		ID:          it.ID,
		BookingID:   it.BookingID,
		FineType:    it.FineType,
		FineAmount:  parseDecimal(it.FineAmount),
		AdminFee:    parseDecimal(it.AdminFee),
		TotalAmount: parseDecimal(it.TotalAmount),
		Status:      domain.FineStatus(it.Status),
		PaidAt:      parseOptionalTime(it.PaidAt),
	}
}

func toCheckRecordItem(r *domain.CheckRecord) checkRecordItem {
	it := checkRecordItem{
		BookingID:            r.BookingID,
		RecordType:           string(r.RecordType),
		ID:                   r.ID,
		ConfirmedOdometer:    r.ConfirmedOdometer,
		ConfirmedFuelPercent: r.ConfirmedFuelPercent,
		AIOdometer:           r.AIOdometer,
		AIFuelPercent:        r.AIFuelPercent,
		WasManuallyAdjusted:  r.WasManuallyAdjusted,
		AdjustmentReason:     r.AdjustmentReason,
		Latitude:             r.Latitude,
		Longitude:            r.Longitude,
		ExpectedLatitude:     r.ExpectedLatitude,
		ExpectedLongitude:    r.ExpectedLongitude,
		DamageCount:          r.DamageCount,
		DamageScanSkipped:    r.DamageScanSkipped,
		RecordedBy:           r.RecordedBy,
		KmOverage:            r.KmOverage,
		KmOverageFee:         r.KmOverageFee.StringFixed(2),
		FuelFee:              r.FuelFee.StringFixed(2),
		ExteriorClean:        r.ExteriorClean,
		InteriorClean:        r.InteriorClean,
		ExteriorCleaningFee:  r.ExteriorCleaningFee.StringFixed(2),
		InteriorCleaningFee:  r.InteriorCleaningFee.StringFixed(2),
		TotalExtraCharges:    r.TotalExtraCharges.StringFixed(2),
		RentalPrice:          r.RentalPrice.StringFixed(2),
		FinesTotal:           r.FinesTotal.StringFixed(2),
		DepositAmount:        r.DepositAmount.StringFixed(2),
		DepositRefund:        r.DepositRefund.StringFixed(2),
		AmountDueFromRenter:  r.AmountDueFromRenter.StringFixed(2),
		Settled:              r.Settled,
		ManualReconciliation: r.ManualReconciliation,
		ReviewFlags:          r.ReviewFlags,
		CreatedAt:            formatTime(r.CreatedAt),
	}
	if r.ReviewedAt != nil {
		it.ReviewedAt = formatTime(*r.ReviewedAt)
	}
	return it
}

func fromCheckRecordItem(it checkRecordItem) *domain.CheckRecord {
	return &domain.CheckRecord{
		ID:                   it.ID,
		BookingID:            it.BookingID,
		RecordType:           domain.RecordType(it.RecordType),
		ConfirmedOdometer:    it.ConfirmedOdometer,
		ConfirmedFuelPercent: it.ConfirmedFuelPercent,
		AIOdometer:           it.AIOdometer,
		AIFuelPercent:        it.AIFuelPercent,
		WasManuallyAdjusted:  it.WasManuallyAdjusted,
		AdjustmentReason:     it.AdjustmentReason,
		Latitude:             it.Latitude,
		Longitude:            it.Longitude,
		ExpectedLatitude:     it.ExpectedLatitude,
		ExpectedLongitude:    it.ExpectedLongitude,
		DamageCount:          it.DamageCount,
		DamageScanSkipped:    it.DamageScanSkipped,
		RecordedBy:           it.RecordedBy,
		KmOverage:            it.KmOverage,
		KmOverageFee:         parseDecimal(it.KmOverageFee),
		FuelFee:              parseDecimal(it.FuelFee),
		ExteriorClean:        it.ExteriorClean,
		InteriorClean:        it.InteriorClean,
		ExteriorCleaningFee:  parseDecimal(it.ExteriorCleaningFee),
		InteriorCleaningFee:  parseDecimal(it.InteriorCleaningFee),
		TotalExtraCharges:    parseDecimal(it.TotalExtraCharges),
		RentalPrice:          parseDecimal(it.RentalPrice),
		FinesTotal:           parseDecimal(it.FinesTotal),
		DepositAmount:        parseDecimal(it.DepositAmount),
		DepositRefund:        parseDecimal(it.DepositRefund),
		AmountDueFromRenter:  parseDecimal(it.AmountDueFromRenter),
		Settled:              it.Settled,
		ManualReconciliation: it.ManualReconciliation,
		ReviewFlags:          it.ReviewFlags,
		ReviewedAt:           parseOptionalTime(it.ReviewedAt),
		CreatedAt:            parseTime(it.CreatedAt),
	}
}
