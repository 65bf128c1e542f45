package workflow

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehicle-checkpoint-backend/internal/domain"
	"vehicle-checkpoint-backend/internal/estimator"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func intPtr(v int) *int { return &v }

func testBooking() domain.Booking {
	return domain.Booking{
		ID:            "bk-1",
		VehicleID:     "veh-1",
		LessorID:      "lessor-1",
		RenterID:      "renter-1",
		RenterEmail:   "renter@example.com",
		Registration:  "ABC 123",
		DepositAmount: dec("2500"),
		TotalPrice:    dec("3990"),
		Status:        domain.BookingStatusActive,
		Rules: domain.VehicleRules{
			IncludedKm:          500,
			ExtraKmPrice:        dec("2.5"),
			FuelTankSize:        dec("50"),
			ExteriorCleaningFee: dec("300"),
			InteriorCleaningFee: dec("450"),
		},
	}
}

func testPricing() domain.FuelPricing {
	return domain.FuelPricing{PricePerLiter: dec("12"), FixedMissingFee: dec("100")}
}

// reduceAll applies events in order and fails the test on the first error.
func reduceAll(t *testing.T, s Snapshot, events ...Event) Snapshot {
	t.Helper()
	for _, ev := range events {
		var err error
		s, err = Reduce(s, ev)
		require.NoError(t, err, "event %T", ev)
	}
	return s
}

func atConfirm(t *testing.T, rt domain.RecordType, res estimator.Result) Snapshot {
	t.Helper()
	return reduceAll(t, Initial("sess-1", testBooking(), rt),
		PlateScanned{Scanned: "abc123"},
		DamageScanCompleted{Findings: 2},
		DashboardCaptured{ImageKey: "img-1"},
		EstimateReceived{Result: res},
	)
}

func TestReduce_PlateStep(t *testing.T) {
	s := Initial("sess-1", testBooking(), domain.RecordTypeCheckIn)

	t.Run("Mismatch stays at plate with notice", func(t *testing.T) {
		next, err := Reduce(s, PlateScanned{Scanned: "XYZ 999"})
		assert.ErrorIs(t, err, ErrPlateMismatch)
		assert.Equal(t, StepPlate, next.Step)
		assert.Equal(t, 1, next.PlateAttempts)
		assert.NotEmpty(t, next.Notice)
	})

	t.Run("Empty scan is a mismatch", func(t *testing.T) {
		next, err := Reduce(s, PlateScanned{Scanned: "   "})
		assert.ErrorIs(t, err, ErrPlateMismatch)
		assert.Equal(t, StepPlate, next.Step)
	})

	t.Run("Match ignores case and whitespace", func(t *testing.T) {
		next, err := Reduce(s, PlateScanned{Scanned: " abc123 "})
		require.NoError(t, err)
		assert.Equal(t, StepDamageScan, next.Step)
		assert.Empty(t, next.Notice)
	})

	t.Run("Retry after mismatch succeeds", func(t *testing.T) {
		failed, _ := Reduce(s, PlateScanned{Scanned: "nope"})
		next, err := Reduce(failed, PlateScanned{Scanned: "ABC123"})
		require.NoError(t, err)
		assert.Equal(t, StepDamageScan, next.Step)
		assert.Equal(t, 2, next.PlateAttempts)
		assert.Empty(t, next.Notice)
	})
}

func TestReduce_GuardsLeaveSnapshotUnchanged(t *testing.T) {
	s := Initial("sess-1", testBooking(), domain.RecordTypeCheckOut)

	tests := []struct {
		name string
		ev   Event
	}{
		{"Damage scan before plate", DamageScanCompleted{Findings: 1}},
		{"Skip before plate", DamageScanSkipped{}},
		{"Capture before plate", DashboardCaptured{ImageKey: "k"}},
		{"Estimate without capture", EstimateReceived{Result: estimator.Success(estimator.Estimate{})}},
		{"Override before confirm", ReadingOverridden{Field: FieldOdometer, Value: 1, Reason: "r"}},
		{"Confirm before confirm step", ConfirmAccepted{}},
		{"Settlement accept early", SettlementAccepted{}},
		{"Submission result without submit", SubmissionSucceeded{RecordID: "r"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := Reduce(s, tt.ev)
			assert.ErrorIs(t, err, ErrTransitionNotAllowed)
			assert.Equal(t, s, next)
		})
	}
}

func TestReduce_DamageScan(t *testing.T) {
	s := reduceAll(t, Initial("sess-1", testBooking(), domain.RecordTypeCheckIn), PlateScanned{Scanned: "ABC123"})

	next, err := Reduce(s, DamageScanCompleted{Findings: -1})
	assert.ErrorIs(t, err, ErrInvalidReading)
	assert.Equal(t, StepDamageScan, next.Step)

	next, err = Reduce(s, DamageScanSkipped{})
	require.NoError(t, err)
	assert.Equal(t, StepDashboard, next.Step)
	assert.True(t, next.DamageScanSkipped)
	assert.Equal(t, 0, next.DamageCount)
}

func TestReduce_Estimation(t *testing.T) {
	t.Run("Success seeds automated readings", func(t *testing.T) {
		s := atConfirm(t, domain.RecordTypeCheckIn,
			estimator.Success(estimator.Estimate{Odometer: intPtr(45210), FuelPercent: intPtr(80)}))

		assert.Equal(t, StepConfirm, s.Step)
		assert.False(t, s.Analyzing)
		assert.Equal(t, 45210, s.Confirmation.Odometer.Value())
		assert.Equal(t, 80, s.Confirmation.FuelPercent.Value())
		assert.False(t, s.Confirmation.Odometer.IsManual())
		assert.False(t, s.Confirmation.ManuallyAdjusted)
		assert.Empty(t, s.Notice)
	})

	t.Run("Failure is a soft warning", func(t *testing.T) {
		s := atConfirm(t, domain.RecordTypeCheckIn, estimator.Failure(estimator.KindTimeout, errors.New("slow")))

		assert.Equal(t, StepConfirm, s.Step)
		assert.Equal(t, 0, s.Confirmation.Odometer.Value())
		assert.Equal(t, 0, s.Confirmation.FuelPercent.Value())
		assert.NotEmpty(t, s.Notice)
	})

	t.Run("Partial estimate warns", func(t *testing.T) {
		s := atConfirm(t, domain.RecordTypeCheckIn, estimator.Success(estimator.Estimate{FuelPercent: intPtr(50)}))
		assert.Equal(t, 50, s.Confirmation.FuelPercent.Value())
		assert.NotEmpty(t, s.Notice)
	})

	t.Run("Capture sets analyzing and blocks a second capture", func(t *testing.T) {
		s := reduceAll(t, Initial("sess-1", testBooking(), domain.RecordTypeCheckIn),
			PlateScanned{Scanned: "ABC123"}, DamageScanSkipped{}, DashboardCaptured{ImageKey: "k"})
		assert.True(t, s.Analyzing)

		_, err := Reduce(s, DashboardCaptured{ImageKey: "k2"})
		assert.ErrorIs(t, err, ErrTransitionNotAllowed)
	})

	t.Run("Capture requires an image", func(t *testing.T) {
		s := reduceAll(t, Initial("sess-1", testBooking(), domain.RecordTypeCheckIn),
			PlateScanned{Scanned: "ABC123"}, DamageScanSkipped{})
		_, err := Reduce(s, DashboardCaptured{})
		assert.ErrorIs(t, err, ErrImageRequired)
	})
}

func TestReduce_ManualOverride(t *testing.T) {
	s := atConfirm(t, domain.RecordTypeCheckIn,
		estimator.Success(estimator.Estimate{Odometer: intPtr(45210), FuelPercent: intPtr(80)}))

	t.Run("Reason is required", func(t *testing.T) {
		next, err := Reduce(s, ReadingOverridden{Field: FieldOdometer, Value: 45200, Reason: "  "})
		assert.ErrorIs(t, err, ErrReasonRequired)
		assert.False(t, next.Confirmation.ManuallyAdjusted)
	})

	t.Run("Values are validated", func(t *testing.T) {
		_, err := Reduce(s, ReadingOverridden{Field: FieldFuelPercent, Value: 101, Reason: "gauge"})
		assert.ErrorIs(t, err, ErrInvalidReading)
		_, err = Reduce(s, ReadingOverridden{Field: FieldOdometer, Value: -5, Reason: "typo"})
		assert.ErrorIs(t, err, ErrInvalidReading)
	})

	t.Run("Override marks the session adjusted for good", func(t *testing.T) {
		next := reduceAll(t, s,
			ReadingOverridden{Field: FieldOdometer, Value: 45200, Reason: "glare on display"},
			ReadingOverridden{Field: FieldOdometer, Value: 45210, Reason: "back to estimate"},
		)
		assert.True(t, next.Confirmation.ManuallyAdjusted)
		assert.True(t, next.Confirmation.Odometer.IsManual())
		assert.Equal(t, 45210, next.Confirmation.Odometer.Value())
		assert.Equal(t, "back to estimate", next.Confirmation.Odometer.Reason())
		assert.Len(t, next.Confirmation.Reasons, 2)
		assert.False(t, next.Confirmation.FuelPercent.IsManual())

		// The earlier snapshot is untouched.
		assert.False(t, s.Confirmation.ManuallyAdjusted)
		assert.Empty(t, s.Confirmation.Reasons)
	})

	t.Run("Same value as the estimate is not an adjustment", func(t *testing.T) {
		next, err := Reduce(s, ReadingOverridden{Field: FieldFuelPercent, Value: 80, Reason: "looks right"})
		require.NoError(t, err)
		assert.False(t, next.Confirmation.ManuallyAdjusted)
		assert.False(t, next.Confirmation.FuelPercent.IsManual())
		assert.Empty(t, next.Confirmation.Reasons)
	})

	t.Run("Same value as a failed estimate placeholder is an adjustment", func(t *testing.T) {
		failed := atConfirm(t, domain.RecordTypeCheckIn, estimator.Failure(estimator.KindTimeout, errors.New("slow")))
		next, err := Reduce(failed, ReadingOverridden{Field: FieldOdometer, Value: 0, Reason: "new vehicle"})
		require.NoError(t, err)
		assert.True(t, next.Confirmation.ManuallyAdjusted)
		assert.True(t, next.Confirmation.Odometer.IsManual())
	})

	t.Run("Restart is the only reset", func(t *testing.T) {
		next := reduceAll(t, s, ReadingOverridden{Field: FieldFuelPercent, Value: 75, Reason: "needle"}, Restart{})
		assert.Equal(t, StepPlate, next.Step)
		assert.False(t, next.Confirmation.ManuallyAdjusted)
		assert.Equal(t, "sess-1", next.SessionID)
	})
}

func TestReduce_CheckInSubmission(t *testing.T) {
	s := atConfirm(t, domain.RecordTypeCheckIn,
		estimator.Success(estimator.Estimate{Odometer: intPtr(12000), FuelPercent: intPtr(90)}))

	_, err := Reduce(s, CleanlinessSet{ExteriorClean: true, InteriorClean: true})
	assert.ErrorIs(t, err, ErrTransitionNotAllowed, "cleanliness is a check-out concern")

	pending := reduceAll(t, s, ConfirmAccepted{})
	assert.True(t, pending.Submitting)
	assert.Equal(t, StepConfirm, pending.Step)

	_, err = Reduce(pending, ConfirmAccepted{})
	assert.ErrorIs(t, err, ErrTransitionNotAllowed)

	failed := reduceAll(t, pending, SubmissionFailed{Err: errors.New("db down")})
	assert.False(t, failed.Submitting)
	assert.Equal(t, StepConfirm, failed.Step)
	assert.NotEmpty(t, failed.Notice)

	done := reduceAll(t, failed, ConfirmAccepted{}, SubmissionSucceeded{RecordID: "rec-1"})
	assert.Equal(t, StepSubmitted, done.Step)
	assert.Equal(t, "rec-1", done.RecordID)
	assert.True(t, done.Done())

	_, err = Reduce(done, ConfirmAccepted{})
	assert.ErrorIs(t, err, ErrTransitionNotAllowed)
}

func TestReduce_CheckOutSettlement(t *testing.T) {
	confirm := atConfirm(t, domain.RecordTypeCheckOut,
		estimator.Success(estimator.Estimate{Odometer: intPtr(10800), FuelPercent: intPtr(70)}))

	_, err := Reduce(confirm, ConfirmAccepted{})
	assert.ErrorIs(t, err, ErrCleanlinessRequired)

	settlement := reduceAll(t, confirm, CleanlinessSet{ExteriorClean: true, InteriorClean: false}, ConfirmAccepted{})
	assert.Equal(t, StepSettlement, settlement.Step)
	assert.False(t, settlement.Submitting)

	_, err = Reduce(settlement, SettlementAccepted{})
	assert.ErrorIs(t, err, ErrSettlementNotReady)

	fines := []domain.Fine{
		{ID: "f1", TotalAmount: dec("150"), Status: domain.FineStatusUnpaid},
		{ID: "f2", TotalAmount: dec("999"), Status: domain.FineStatusPaid},
	}

	t.Run("Record-derived start readings", func(t *testing.T) {
		checkIn := &domain.CheckRecord{ID: "rec-in", ConfirmedOdometer: 10000, ConfirmedFuelPercent: 100}
		s := reduceAll(t, settlement, SettlementInputsLoaded{CheckIn: checkIn, Fines: fines, FuelPricing: testPricing()})

		require.NotNil(t, s.Settlement.Breakdown)
		assert.False(t, s.Settlement.ManualMode)
		assert.Equal(t, "rec-in", s.Settlement.CheckInRecordID)
		sum := s.Settlement.Breakdown.Summary
		// 300 km over at 2.5, 30% of 50 l at 12 + 100, interior 450, fine 150
		assert.Equal(t, "750.00", sum.KmOverageFee.StringFixed(2))
		assert.Equal(t, "280.00", sum.FuelFee.StringFixed(2))
		assert.Equal(t, "450.00", sum.InteriorCleaningFee.StringFixed(2))
		assert.Equal(t, "150.00", sum.FinesTotal.StringFixed(2))
		assert.Equal(t, "1630.00", sum.TotalCharges.StringFixed(2))
		assert.Equal(t, "870.00", sum.DepositRefund.StringFixed(2))

		_, err := Reduce(s, ManualReadingsEntered{StartOdometer: 1, StartFuelPercent: 1})
		assert.ErrorIs(t, err, ErrTransitionNotAllowed)

		done := reduceAll(t, s, SettlementAccepted{}, SubmissionSucceeded{RecordID: "rec-out"})
		assert.Equal(t, StepSubmitted, done.Step)
	})

	t.Run("Manual reconciliation without check-in", func(t *testing.T) {
		s := reduceAll(t, settlement, SettlementInputsLoaded{Fines: fines, FuelPricing: testPricing()})
		assert.True(t, s.Settlement.ManualMode)
		assert.Nil(t, s.Settlement.Breakdown)
		assert.NotEmpty(t, s.Notice)

		_, err := Reduce(s, SettlementAccepted{})
		assert.ErrorIs(t, err, ErrSettlementNotReady)

		_, err = Reduce(s, ManualReadingsEntered{StartOdometer: 10000, StartFuelPercent: 120})
		assert.ErrorIs(t, err, ErrInvalidReading)

		first := reduceAll(t, s, ManualReadingsEntered{StartOdometer: 10500, StartFuelPercent: 70})
		require.NotNil(t, first.Settlement.Breakdown)
		assert.Equal(t, "0.00", first.Settlement.Breakdown.Summary.KmOverageFee.StringFixed(2))

		// Every change recomputes in full.
		second := reduceAll(t, first, ManualReadingsEntered{StartOdometer: 10000, StartFuelPercent: 100})
		assert.Equal(t, "1630.00", second.Settlement.Breakdown.Summary.TotalCharges.StringFixed(2))
	})

	t.Run("Manual and record-derived paths agree", func(t *testing.T) {
		checkIn := &domain.CheckRecord{ID: "rec-in", ConfirmedOdometer: 10000, ConfirmedFuelPercent: 100}
		derived := reduceAll(t, settlement, SettlementInputsLoaded{CheckIn: checkIn, Fines: fines, FuelPricing: testPricing()})
		manual := reduceAll(t, settlement,
			SettlementInputsLoaded{Fines: fines, FuelPricing: testPricing()},
			ManualReadingsEntered{StartOdometer: 10000, StartFuelPercent: 100},
		)
		assert.Equal(t, derived.SettlementInput(), manual.SettlementInput())
		assert.Equal(t, *derived.Settlement.Breakdown, *manual.Settlement.Breakdown)
	})

	t.Run("Stale inputs must be reloaded before accepting again", func(t *testing.T) {
		s := reduceAll(t, settlement,
			SettlementInputsLoaded{Fines: fines, FuelPricing: testPricing()},
			ManualReadingsEntered{StartOdometer: 10000, StartFuelPercent: 100},
			SettlementAccepted{},
			SubmissionFailed{Err: errors.New("fines changed"), InputsStale: true},
		)
		assert.False(t, s.Submitting)
		assert.False(t, s.Settlement.InputsLoaded)
		assert.Nil(t, s.Settlement.Breakdown)
		assert.Equal(t, noticeSettlementStale, s.Notice)

		_, err := Reduce(s, SettlementAccepted{})
		assert.ErrorIs(t, err, ErrSettlementNotReady)

		// Typed-in start readings survive the reload; only the fines change.
		reloaded := reduceAll(t, s, SettlementInputsLoaded{FuelPricing: testPricing()})
		assert.True(t, reloaded.Settlement.ManualMode)
		assert.True(t, reloaded.Settlement.HasStartReadings)
		require.NotNil(t, reloaded.Settlement.Breakdown)
		assert.Equal(t, "1480.00", reloaded.Settlement.Breakdown.Summary.TotalCharges.StringFixed(2))
	})

	t.Run("Decreasing odometer is clamped and flagged", func(t *testing.T) {
		checkIn := &domain.CheckRecord{ID: "rec-in", ConfirmedOdometer: 12000, ConfirmedFuelPercent: 70}
		s := reduceAll(t, settlement, SettlementInputsLoaded{CheckIn: checkIn, FuelPricing: testPricing()})
		b := s.Settlement.Breakdown
		assert.Equal(t, 0, b.KmDriven)
		assert.Equal(t, []domain.Anomaly{domain.AnomalyOdometerDecreased}, b.Anomalies)
	})
}
