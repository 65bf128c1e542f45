package postgres

import (
	"context"
	"database/sql"

	"vehicle-checkpoint-backend/internal/domain"
	"vehicle-checkpoint-backend/internal/repository"
)

type fineRepository struct {
	db *sql.DB
}

func NewFineRepository(db *sql.DB) repository.FineRepository {
	return &fineRepository{db: db}
}

func (r *fineRepository) ListUnpaidByBooking(ctx context.Context, bookingID string) ([]domain.Fine, error) {
	query := `SELECT id, booking_id, fine_type, fine_amount, admin_fee, total_amount, status, paid_at
	          FROM fines WHERE booking_id = $1 AND status = 'unpaid' ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fines []domain.Fine
	for rows.Next() {
		var f domain.Fine
		if err := rows.Scan(&f.ID, &f.BookingID, &f.FineType, &f.FineAmount, &f.AdminFee, &f.TotalAmount, &f.Status, &f.PaidAt); err != nil {
			return nil, err
		}
		fines = append(fines, f)
	}
	return fines, rows.Err()
}
