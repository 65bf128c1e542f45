package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehicle-checkpoint-backend/internal/domain"
	"vehicle-checkpoint-backend/internal/repository"
)

var recordCols = []string{
	"id", "booking_id", "record_type", "confirmed_odometer", "confirmed_fuel_percent", "ai_odometer", "ai_fuel_percent",
	"was_manually_adjusted", "adjustment_reason", "latitude", "longitude", "expected_latitude", "expected_longitude",
	"damage_count", "damage_scan_skipped", "recorded_by", "km_overage", "km_overage_fee", "fuel_fee", "exterior_clean", "interior_clean",
	"exterior_cleaning_fee", "interior_cleaning_fee", "total_extra_charges", "rental_price", "fines_total", "deposit_amount",
	"deposit_refund", "amount_due_from_renter", "settled", "manual_reconciliation",
	"review_flags", "reviewed_at", "created_at",
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func checkOutRecord() *domain.CheckRecord {
	return &domain.CheckRecord{
		BookingID:            "bk-1",
		RecordType:           domain.RecordTypeCheckOut,
		ConfirmedOdometer:    10800,
		ConfirmedFuelPercent: 70,
		RecordedBy:           "op-1",
		KmOverage:            300,
		KmOverageFee:         decimal.RequireFromString("750"),
		FuelFee:              decimal.RequireFromString("280"),
		TotalExtraCharges:    decimal.RequireFromString("1630"),
		Settled:              true,
	}
}

func TestBookingRepository_GetByID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "vehicle_id", "lessor_id", "renter_id", "renter_name", "renter_email", "registration",
			"deposit_amount", "total_price", "status", "included_km", "extra_km_price", "fuel_tank_size",
			"exterior_cleaning_fee", "interior_cleaning_fee", "pickup_latitude", "pickup_longitude"}).
			AddRow("bk-1", "veh-1", "lessor-1", "renter-1", "Ann", "ann@example.com", "ABC 123",
				"2500.00", "3990.00", "active", 500, "2.50", "50", "300", "450", 13.75, nil)
		mock.ExpectQuery("SELECT (.+) FROM bookings WHERE id = \\$1").
			WithArgs("bk-1").
			WillReturnRows(rows)

		b, err := repo.GetByID(ctx, "bk-1")
		require.NoError(t, err)
		assert.Equal(t, "ABC 123", b.Registration)
		assert.Equal(t, domain.BookingStatusActive, b.Status)
		assert.Equal(t, 500, b.Rules.IncludedKm)
		assert.True(t, b.Rules.ExtraKmPrice.Equal(decimal.RequireFromString("2.5")))
		require.NotNil(t, b.PickupLatitude)
		assert.Equal(t, 13.75, *b.PickupLatitude)
		assert.Nil(t, b.PickupLongitude)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM bookings").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_GetFuelPricing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepository(db)

	mock.ExpectQuery("SELECT fuel_price_per_liter, fuel_missing_fee FROM lessor_fuel_pricing").
		WithArgs("lessor-1").
		WillReturnRows(sqlmock.NewRows([]string{"fuel_price_per_liter", "fuel_missing_fee"}).AddRow("12.00", "100.00"))

	p, err := repo.GetFuelPricing(context.Background(), "lessor-1")
	require.NoError(t, err)
	assert.Equal(t, "12.00", p.PricePerLiter.StringFixed(2))
	assert.Equal(t, "100.00", p.FixedMissingFee.StringFixed(2))
}

func TestFineRepository_ListUnpaidByBooking(t *testing.T) {
	db, mock := newMock(t)
	repo := NewFineRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM fines WHERE booking_id = \\$1 AND status = 'unpaid'").
		WithArgs("bk-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "booking_id", "fine_type", "fine_amount", "admin_fee", "total_amount", "status", "paid_at"}).
			AddRow("f1", "bk-1", "speeding", "100", "50", "150", "unpaid", nil).
			AddRow("f2", "bk-1", "parking", "40", "10", "50", "unpaid", nil))

	fines, err := repo.ListUnpaidByBooking(context.Background(), "bk-1")
	require.NoError(t, err)
	require.Len(t, fines, 2)
	assert.Equal(t, "150.00", fines[0].TotalAmount.StringFixed(2))
	assert.Equal(t, domain.FineStatusUnpaid, fines[1].Status)
	assert.Equal(t, []string{"f1", "f2"}, domain.FineIDs(fines))
}

func TestCheckRecordRepository_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCheckRecordRepository(db)
	ctx := context.Background()

	t.Run("Success assigns id", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO check_records").
			WillReturnResult(sqlmock.NewResult(0, 1))

		rec := checkOutRecord()
		require.NoError(t, repo.Create(ctx, rec))
		assert.NotEmpty(t, rec.ID)
		assert.False(t, rec.CreatedAt.IsZero())
	})

	t.Run("Duplicate maps to ErrRecordExists", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO check_records").
			WillReturnError(&pq.Error{Code: "23505", Constraint: "check_records_booking_id_record_type_key"})

		err := repo.Create(ctx, checkOutRecord())
		assert.ErrorIs(t, err, repository.ErrRecordExists)
	})

	t.Run("Other errors pass through", func(t *testing.T) {
		boom := errors.New("connection reset")
		mock.ExpectExec("INSERT INTO check_records").WillReturnError(boom)

		err := repo.Create(ctx, checkOutRecord())
		assert.ErrorIs(t, err, boom)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckRecordRepository_GetByBookingAndType(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCheckRecordRepository(db)
	ctx := context.Background()
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM check_records WHERE booking_id = \\$1 AND record_type = \\$2").
			WithArgs("bk-1", domain.RecordTypeCheckIn).
			WillReturnRows(sqlmock.NewRows(recordCols).AddRow(
				"rec-1", "bk-1", "check_in", 10000, 100, 10010, nil,
				true, "odometer: glare", nil, nil, nil, nil,
				2, false, "op-1", 0, "0", "0", false, false,
				"0", "0", "0", "0", "0", "0", "0", "0", false, false,
				"{}", nil, created))

		rec, err := repo.GetByBookingAndType(ctx, "bk-1", domain.RecordTypeCheckIn)
		require.NoError(t, err)
		assert.Equal(t, "rec-1", rec.ID)
		assert.Equal(t, domain.RecordTypeCheckIn, rec.RecordType)
		assert.Equal(t, 10000, rec.ConfirmedOdometer)
		require.NotNil(t, rec.AIOdometer)
		assert.Equal(t, 10010, *rec.AIOdometer)
		assert.Nil(t, rec.AIFuelPercent)
		assert.True(t, rec.WasManuallyAdjusted)
		assert.Empty(t, rec.ReviewFlags)
		assert.Equal(t, created, rec.CreatedAt)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM check_records").
			WithArgs("bk-2", domain.RecordTypeCheckIn).
			WillReturnRows(sqlmock.NewRows(recordCols))

		_, err := repo.GetByBookingAndType(ctx, "bk-2", domain.RecordTypeCheckIn)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestCheckRecordRepository_Review(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCheckRecordRepository(db)
	ctx := context.Background()

	mock.ExpectQuery("SELECT (.+) FROM check_records\\s+WHERE reviewed_at IS NULL").
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows(recordCols).AddRow(
			"rec-9", "bk-9", "check_out", 9000, 40, nil, nil,
			false, "", nil, nil, nil, nil,
			0, true, "op-2", 0, "0", "0", true, true,
			"0", "0", "1180.00", "3990.00", "150.00", "2500.00", "1320.00", "0.00", true, true,
			"{odometer_decreased}", nil, time.Now()))

	records, err := repo.ListPendingReview(ctx, 50)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []string{"odometer_decreased"}, records[0].ReviewFlags)
	assert.True(t, records[0].NeedsReview())
	assert.Equal(t, "150.00", records[0].FinesTotal.StringFixed(2))
	assert.Equal(t, "1320.00", records[0].Summary().DepositRefund.StringFixed(2))

	at := time.Now().UTC()
	mock.ExpectExec("UPDATE check_records SET reviewed_at").
		WithArgs(at, "rec-9").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.MarkReviewed(ctx, "rec-9", at))

	mock.ExpectExec("UPDATE check_records SET reviewed_at").
		WithArgs(at, "rec-9").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.MarkReviewed(ctx, "rec-9", at), repository.ErrNotFound)
}

func TestSettlementRepository_ApplySettlement(t *testing.T) {
	ctx := context.Background()
	fineIDs := []string{"f1", "f2"}

	t.Run("Success commits everything", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewSettlementRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT status FROM bookings WHERE id = \\$1 FOR UPDATE").
			WithArgs("bk-1").
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("active"))
		mock.ExpectExec("INSERT INTO check_records").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE fines SET status = 'paid'").
			WithArgs(sqlmock.AnyArg(), "bk-1", pq.Array(fineIDs)).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec("UPDATE bookings SET status").
			WithArgs(domain.BookingStatusCompleted, sqlmock.AnyArg(), "bk-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		rec := checkOutRecord()
		require.NoError(t, repo.ApplySettlement(ctx, rec, fineIDs))
		assert.NotEmpty(t, rec.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Existing check-out rolls back", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewSettlementRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT status FROM bookings").
			WithArgs("bk-1").
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("completed"))
		mock.ExpectExec("INSERT INTO check_records").
			WillReturnError(&pq.Error{Code: "23505"})
		mock.ExpectRollback()

		err := repo.ApplySettlement(ctx, checkOutRecord(), fineIDs)
		assert.ErrorIs(t, err, repository.ErrRecordExists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Fine paid concurrently is stale", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewSettlementRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT status FROM bookings").
			WithArgs("bk-1").
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("active"))
		mock.ExpectExec("INSERT INTO check_records").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE fines").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectRollback()

		err := repo.ApplySettlement(ctx, checkOutRecord(), fineIDs)
		assert.ErrorIs(t, err, repository.ErrStaleSettlement)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Cancelled booking", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewSettlementRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT status FROM bookings").
			WithArgs("bk-1").
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("cancelled"))
		mock.ExpectRollback()

		err := repo.ApplySettlement(ctx, checkOutRecord(), nil)
		assert.ErrorIs(t, err, repository.ErrBookingState)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSettlementRepository_ApplyCheckIn(t *testing.T) {
	ctx := context.Background()
	rec := &domain.CheckRecord{BookingID: "bk-1", RecordType: domain.RecordTypeCheckIn, ConfirmedOdometer: 10000, ConfirmedFuelPercent: 100}

	t.Run("Activates booking", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewSettlementRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT status FROM bookings").
			WithArgs("bk-1").
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("confirmed"))
		mock.ExpectExec("INSERT INTO check_records").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE bookings SET status").
			WithArgs(domain.BookingStatusActive, sqlmock.AnyArg(), "bk-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.ApplyCheckIn(ctx, rec))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Completed booking is rejected", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewSettlementRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT status FROM bookings").
			WithArgs("bk-1").
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("completed"))
		mock.ExpectRollback()

		err := repo.ApplyCheckIn(ctx, rec)
		assert.ErrorIs(t, err, repository.ErrBookingState)
	})

	t.Run("Missing booking", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewSettlementRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT status FROM bookings").
			WithArgs("bk-1").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		err := repo.ApplyCheckIn(ctx, rec)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}
