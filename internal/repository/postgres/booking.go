package postgres

import (
	"context"
	"database/sql"

	"vehicle-checkpoint-backend/internal/domain"
	"vehicle-checkpoint-backend/internal/logger"
	"vehicle-checkpoint-backend/internal/repository"
)

type bookingRepository struct {
	db *sql.DB
}

func NewBookingRepository(db *sql.DB) repository.BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	b := &domain.Booking{}
	query := `SELECT id, vehicle_id, lessor_id, renter_id, renter_name, renter_email, registration, deposit_amount, total_price, status,
	                 included_km, extra_km_price, fuel_tank_size, exterior_cleaning_fee, interior_cleaning_fee, pickup_latitude, pickup_longitude
	          FROM bookings WHERE id = $1`
	logger.DatabaseCall("bookings.GetByID", query, "booking_id", id)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&b.ID, &b.VehicleID, &b.LessorID, &b.RenterID, &b.RenterName, &b.RenterEmail, &b.Registration, &b.DepositAmount, &b.TotalPrice, &b.Status,
		&b.Rules.IncludedKm, &b.Rules.ExtraKmPrice, &b.Rules.FuelTankSize, &b.Rules.ExteriorCleaningFee, &b.Rules.InteriorCleaningFee,
		&b.PickupLatitude, &b.PickupLongitude)
	if err != nil {
		return nil, notFound(err)
	}
	return b, nil
}

func (r *bookingRepository) GetFuelPricing(ctx context.Context, lessorID string) (*domain.FuelPricing, error) {
	p := &domain.FuelPricing{}
	query := `SELECT fuel_price_per_liter, fuel_missing_fee FROM lessor_fuel_pricing WHERE lessor_id = $1`
	err := r.db.QueryRowContext(ctx, query, lessorID).Scan(&p.PricePerLiter, &p.FixedMissingFee)
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}
