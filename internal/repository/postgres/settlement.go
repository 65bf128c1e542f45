package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"vehicle-checkpoint-backend/internal/domain"
	"vehicle-checkpoint-backend/internal/logger"
	"vehicle-checkpoint-backend/internal/repository"
)

type settlementRepository struct {
	db *sql.DB
}

func NewSettlementRepository(db *sql.DB) repository.SettlementRepository {
	return &settlementRepository{db: db}
}

// lockBooking takes the booking row lock that serializes every write for the booking.
func lockBooking(ctx context.Context, tx *sql.Tx, bookingID string) (domain.BookingStatus, error) {
	var status domain.BookingStatus
	err := tx.QueryRowContext(ctx, `SELECT status FROM bookings WHERE id = $1 FOR UPDATE`, bookingID).Scan(&status)
	if err != nil {
		return "", notFound(err)
	}
	return status, nil
}

func (r *settlementRepository) ApplyCheckIn(ctx context.Context, rec *domain.CheckRecord) error {
	logger.EnterMethod("settlementRepository.ApplyCheckIn", "booking_id", rec.BookingID)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	status, err := lockBooking(ctx, tx, rec.BookingID)
	if err != nil {
		return err
	}
	if status != domain.BookingStatusConfirmed && status != domain.BookingStatusActive {
		return fmt.Errorf("%w: booking is %s", repository.ErrBookingState, status)
	}

	if err := insertCheckRecord(ctx, tx, rec); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `UPDATE bookings SET status = $1, updated_at = $2 WHERE id = $3`,
		domain.BookingStatusActive, time.Now().UTC(), rec.BookingID)
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	logger.ExitMethod("settlementRepository.ApplyCheckIn", "record_id", rec.ID)
	return nil
}

func (r *settlementRepository) ApplySettlement(ctx context.Context, rec *domain.CheckRecord, fineIDs []string) error {
	logger.EnterMethod("settlementRepository.ApplySettlement", "booking_id", rec.BookingID, "fines", len(fineIDs))

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	status, err := lockBooking(ctx, tx, rec.BookingID)
	if err != nil {
		return err
	}
	if status == domain.BookingStatusCancelled {
		return fmt.Errorf("%w: booking is %s", repository.ErrBookingState, status)
	}

	if err := insertCheckRecord(ctx, tx, rec); err != nil {
		return err
	}

	if len(fineIDs) > 0 {
		now := time.Now().UTC()
		result, err := tx.ExecContext(ctx,
			`UPDATE fines SET status = 'paid', paid_at = $1 WHERE booking_id = $2 AND id = ANY($3) AND status = 'unpaid'`,
			now, rec.BookingID, pq.Array(fineIDs))
		if err != nil {
			return err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if n != int64(len(fineIDs)) {
			return fmt.Errorf("%w: settled %d of %d fines", repository.ErrStaleSettlement, n, len(fineIDs))
		}
	}

	_, err = tx.ExecContext(ctx, `UPDATE bookings SET status = $1, updated_at = $2 WHERE id = $3`,
		domain.BookingStatusCompleted, time.Now().UTC(), rec.BookingID)
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		logger.ExitMethodWithError("settlementRepository.ApplySettlement", err)
		return err
	}
	logger.ExitMethod("settlementRepository.ApplySettlement", "record_id", rec.ID)
	return nil
}
