package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"vehicle-checkpoint-backend/internal/domain"
	"vehicle-checkpoint-backend/internal/logger"
	"vehicle-checkpoint-backend/internal/repository"
)

const checkRecordColumns = `id, booking_id, record_type, confirmed_odometer, confirmed_fuel_percent, ai_odometer, ai_fuel_percent,
	was_manually_adjusted, adjustment_reason, latitude, longitude, expected_latitude, expected_longitude,
	damage_count, damage_scan_skipped, recorded_by, km_overage, km_overage_fee, fuel_fee, exterior_clean, interior_clean,
	exterior_cleaning_fee, interior_cleaning_fee, total_extra_charges, rental_price, fines_total, deposit_amount,
	deposit_refund, amount_due_from_renter, settled, manual_reconciliation, review_flags, reviewed_at, created_at`

type checkRecordRepository struct {
	db *sql.DB
}

func NewCheckRecordRepository(db *sql.DB) repository.CheckRecordRepository {
	return &checkRecordRepository{db: db}
}

func (r *checkRecordRepository) Create(ctx context.Context, rec *domain.CheckRecord) error {
	return insertCheckRecord(ctx, r.db, rec)
}

// insertCheckRecord assigns ID and CreatedAt, then inserts. The unique (booking_id, record_type)
// constraint makes this the single point where a duplicate record is rejected.
func insertCheckRecord(ctx context.Context, db execer, rec *domain.CheckRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.CreatedAt = time.Now().UTC()
	flags := rec.ReviewFlags
	if flags == nil {
		flags = []string{}
	}

	query := `INSERT INTO check_records (` + checkRecordColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33, $34)`
	logger.DatabaseCall("check_records.Insert", "INSERT INTO check_records", "booking_id", rec.BookingID, "record_type", rec.RecordType)
	result, err := db.ExecContext(ctx, query,
		rec.ID, rec.BookingID, rec.RecordType, rec.ConfirmedOdometer, rec.ConfirmedFuelPercent, rec.AIOdometer, rec.AIFuelPercent,
		rec.WasManuallyAdjusted, rec.AdjustmentReason, rec.Latitude, rec.Longitude, rec.ExpectedLatitude, rec.ExpectedLongitude,
		rec.DamageCount, rec.DamageScanSkipped, rec.RecordedBy, rec.KmOverage, rec.KmOverageFee, rec.FuelFee, rec.ExteriorClean, rec.InteriorClean,
		rec.ExteriorCleaningFee, rec.InteriorCleaningFee, rec.TotalExtraCharges, rec.RentalPrice, rec.FinesTotal, rec.DepositAmount,
		rec.DepositRefund, rec.AmountDueFromRenter, rec.Settled, rec.ManualReconciliation, pq.Array(flags), rec.ReviewedAt, rec.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			err = repository.ErrRecordExists
		}
		logger.DatabaseResult("check_records.Insert", 0, err)
		return err
	}
	n, _ := result.RowsAffected()
	logger.DatabaseResult("check_records.Insert", n, nil, "record_id", rec.ID)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCheckRecord(row rowScanner) (*domain.CheckRecord, error) {
	rec := &domain.CheckRecord{}
	var flags pq.StringArray
	err := row.Scan(
		&rec.ID, &rec.BookingID, &rec.RecordType, &rec.ConfirmedOdometer, &rec.ConfirmedFuelPercent, &rec.AIOdometer, &rec.AIFuelPercent,
		&rec.WasManuallyAdjusted, &rec.AdjustmentReason, &rec.Latitude, &rec.Longitude, &rec.ExpectedLatitude, &rec.ExpectedLongitude,
		&rec.DamageCount, &rec.DamageScanSkipped, &rec.RecordedBy, &rec.KmOverage, &rec.KmOverageFee, &rec.FuelFee, &rec.ExteriorClean, &rec.InteriorClean,
		&rec.ExteriorCleaningFee, &rec.InteriorCleaningFee, &rec.TotalExtraCharges, &rec.RentalPrice, &rec.FinesTotal, &rec.DepositAmount,
		&rec.DepositRefund, &rec.AmountDueFromRenter, &rec.Settled, &rec.ManualReconciliation, &flags, &rec.ReviewedAt, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(flags) > 0 {
		rec.ReviewFlags = []string(flags)
	}
	return rec, nil
}

func (r *checkRecordRepository) GetByBookingAndType(ctx context.Context, bookingID string, recordType domain.RecordType) (*domain.CheckRecord, error) {
	query := `SELECT ` + checkRecordColumns + ` FROM check_records WHERE booking_id = $1 AND record_type = $2`
	rec, err := scanCheckRecord(r.db.QueryRowContext(ctx, query, bookingID, recordType))
	if err != nil {
		return nil, notFound(err)
	}
	return rec, nil
}

func (r *checkRecordRepository) ListPendingReview(ctx context.Context, limit int) ([]domain.CheckRecord, error) {
	query := `SELECT ` + checkRecordColumns + ` FROM check_records
	          WHERE reviewed_at IS NULL AND cardinality(review_flags) > 0
	          ORDER BY created_at LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.CheckRecord
	for rows.Next() {
		rec, err := scanCheckRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func (r *checkRecordRepository) MarkReviewed(ctx context.Context, id string, reviewedAt time.Time) error {
	query := `UPDATE check_records SET reviewed_at = $1 WHERE id = $2 AND reviewed_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, reviewedAt, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
