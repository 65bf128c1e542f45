package http

import (
	"time"

	"vehicle-checkpoint-backend/internal/domain"
	"vehicle-checkpoint-backend/internal/service"
	"vehicle-checkpoint-backend/internal/utils"
	"vehicle-checkpoint-backend/internal/workflow"
)

// Money values are rendered as fixed two-decimal strings.

type SummaryView struct {
	RentalPrice         string `json:"rentalPrice"`
	KmOverageFee        string `json:"kmOverageFee"`
	FuelFee             string `json:"fuelFee"`
	ExteriorCleaningFee string `json:"exteriorCleaningFee"`
	InteriorCleaningFee string `json:"interiorCleaningFee"`
	FinesTotal          string `json:"finesTotal"`
	TotalCharges        string `json:"totalCharges"`
	DepositAmount       string `json:"depositAmount"`
	DepositRefund       string `json:"depositRefund"`
	AmountDueFromRenter string `json:"amountDueFromRenter"`
}

func toSummaryView(s domain.SettlementSummary) SummaryView {
	return SummaryView{
		RentalPrice:         s.RentalPrice.StringFixed(2),
		KmOverageFee:        s.KmOverageFee.StringFixed(2),
		FuelFee:             s.FuelFee.StringFixed(2),
		ExteriorCleaningFee: s.ExteriorCleaningFee.StringFixed(2),
		InteriorCleaningFee: s.InteriorCleaningFee.StringFixed(2),
		FinesTotal:          s.FinesTotal.StringFixed(2),
		TotalCharges:        s.TotalCharges.StringFixed(2),
		DepositAmount:       s.DepositAmount.StringFixed(2),
		DepositRefund:       s.DepositRefund.StringFixed(2),
		AmountDueFromRenter: s.AmountDueFromRenter.StringFixed(2),
	}
}

type BreakdownView struct {
	KmDriven          int         `json:"km_driven"`
	KmOverage         int         `json:"km_overage"`
	FuelDiff          int         `json:"fuel_diff"`
	FuelMissingLiters string      `json:"fuel_missing_liters"`
	ReviewFlags       []string    `json:"review_flags,omitempty"`
	Summary           SummaryView `json:"summary"`
}

func toBreakdownView(b *utils.SettlementBreakdown) *BreakdownView {
	if b == nil {
		return nil
	}
	return &BreakdownView{
		KmDriven:          b.KmDriven,
		KmOverage:         b.KmOverage,
		FuelDiff:          b.FuelDiff,
		FuelMissingLiters: b.FuelMissingLiters.StringFixed(2),
		ReviewFlags:       b.ReviewFlags(),
		Summary:           toSummaryView(b.Summary),
	}
}

type ReadingView struct {
	Value  int    `json:"value"`
	Source string `json:"source"`
	Reason string `json:"reason,omitempty"`
}

func toReadingView(r domain.Reading) ReadingView {
	return ReadingView{Value: r.Value(), Source: string(r.Source()), Reason: r.Reason()}
}

type EstimateView struct {
	Odometer    *int   `json:"odometer,omitempty"`
	FuelPercent *int   `json:"fuel_percent,omitempty"`
	ErrorKind   string `json:"error_kind,omitempty"`
}

type SettlementView struct {
	ManualMode       bool           `json:"manual_mode"`
	CheckInRecordID  string         `json:"check_in_record_id,omitempty"`
	StartOdometer    *int           `json:"start_odometer,omitempty"`
	StartFuelPercent *int           `json:"start_fuel_percent,omitempty"`
	UnpaidFines      int            `json:"unpaid_fines"`
	Breakdown        *BreakdownView `json:"breakdown,omitempty"`
}

type SessionView struct {
	ID                string          `json:"id"`
	BookingID         string          `json:"booking_id"`
	Registration      string          `json:"registration"`
	RecordType        string          `json:"record_type"`
	Step              string          `json:"step"`
	PlateAttempts     int             `json:"plate_attempts"`
	DamageCount       int             `json:"damage_count"`
	DamageScanSkipped bool            `json:"damage_scan_skipped"`
	DashboardImageKey string          `json:"dashboard_image_key,omitempty"`
	Analyzing         bool            `json:"analyzing"`
	Estimate          *EstimateView   `json:"estimate,omitempty"`
	Odometer          ReadingView     `json:"odometer"`
	FuelPercent       ReadingView     `json:"fuel_percent"`
	ManuallyAdjusted  bool            `json:"manually_adjusted"`
	AdjustmentReasons []string        `json:"adjustment_reasons,omitempty"`
	ExteriorClean     *bool           `json:"exterior_clean,omitempty"`
	InteriorClean     *bool           `json:"interior_clean,omitempty"`
	Settlement        *SettlementView `json:"settlement,omitempty"`
	Submitting        bool            `json:"submitting"`
	RecordID          string          `json:"record_id,omitempty"`
	Notice            string          `json:"notice,omitempty"`
}

func toSessionView(s workflow.Snapshot) SessionView {
	v := SessionView{
		ID:                s.SessionID,
		BookingID:         s.Booking.ID,
		Registration:      s.Booking.Registration,
		RecordType:        string(s.RecordType),
		Step:              string(s.Step),
		PlateAttempts:     s.PlateAttempts,
		DamageCount:       s.DamageCount,
		DamageScanSkipped: s.DamageScanSkipped,
		DashboardImageKey: s.DashboardImageKey,
		Analyzing:         s.Analyzing,
		Odometer:          toReadingView(s.Confirmation.Odometer),
		FuelPercent:       toReadingView(s.Confirmation.FuelPercent),
		ManuallyAdjusted:  s.Confirmation.ManuallyAdjusted,
		AdjustmentReasons: s.Confirmation.Reasons,
		ExteriorClean:     s.Confirmation.ExteriorClean,
		InteriorClean:     s.Confirmation.InteriorClean,
		Submitting:        s.Submitting,
		RecordID:          s.RecordID,
		Notice:            s.Notice,
	}
	if s.Estimate != nil {
		ev := &EstimateView{
			Odometer:    s.Estimate.Estimate.Odometer,
			FuelPercent: s.Estimate.Estimate.FuelPercent,
		}
		if s.Estimate.Err != nil {
			ev.ErrorKind = string(s.Estimate.Err.Kind)
		}
		v.Estimate = ev
	}
	if s.Step == workflow.StepSettlement || (s.IsCheckOut() && s.Settlement.InputsLoaded) {
		st := s.Settlement
		sv := &SettlementView{
			ManualMode:      st.ManualMode,
			CheckInRecordID: st.CheckInRecordID,
			UnpaidFines:     len(domain.FineIDs(st.Fines)),
			Breakdown:       toBreakdownView(st.Breakdown),
		}
		if st.HasStartReadings {
			odo, fuel := st.StartOdometer, st.StartFuelPercent
			sv.StartOdometer = &odo
			sv.StartFuelPercent = &fuel
		}
		v.Settlement = sv
	}
	return v
}

type SettlementResponse struct {
	BookingID            string      `json:"booking_id"`
	RecordID             string      `json:"record_id"`
	ManualReconciliation bool        `json:"manual_reconciliation"`
	ReviewFlags          []string    `json:"review_flags,omitempty"`
	Summary              SummaryView `json:"summary"`
	SettledAt            time.Time   `json:"settled_at"`
}

func toSettlementResponse(s *service.BookingSettlement) SettlementResponse {
	return SettlementResponse{
		BookingID:            s.BookingID,
		RecordID:             s.RecordID,
		ManualReconciliation: s.ManualReconciliation,
		ReviewFlags:          s.ReviewFlags,
		Summary:              toSummaryView(s.Summary),
		SettledAt:            s.SettledAt,
	}
}

type ReviewItem struct {
	RecordID             string    `json:"record_id"`
	BookingID            string    `json:"booking_id"`
	RecordType           string    `json:"record_type"`
	ConfirmedOdometer    int       `json:"confirmed_odometer"`
	ConfirmedFuelPercent int       `json:"confirmed_fuel_percent"`
	ManualReconciliation bool      `json:"manual_reconciliation"`
	ReviewFlags          []string  `json:"review_flags"`
	TotalExtraCharges    string    `json:"total_extra_charges"`
	RecordedBy           string    `json:"recorded_by"`
	CreatedAt            time.Time `json:"created_at"`
}

func toReviewItems(records []domain.CheckRecord) []ReviewItem {
	items := make([]ReviewItem, 0, len(records))
	for _, r := range records {
		items = append(items, ReviewItem{
			RecordID:             r.ID,
			BookingID:            r.BookingID,
			RecordType:           string(r.RecordType),
			ConfirmedOdometer:    r.ConfirmedOdometer,
			ConfirmedFuelPercent: r.ConfirmedFuelPercent,
			ManualReconciliation: r.ManualReconciliation,
			ReviewFlags:          r.ReviewFlags,
			TotalExtraCharges:    r.TotalExtraCharges.StringFixed(2),
			RecordedBy:           r.RecordedBy,
			CreatedAt:            r.CreatedAt,
		})
	}
	return items
}
