//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehicle-checkpoint-backend/internal/config"
	"vehicle-checkpoint-backend/internal/domain"
	"vehicle-checkpoint-backend/internal/repository"
)

var configPath = flag.String("config", "../../../config/config.test.yaml", "path to config file")

func prepareDB(t *testing.T) *sql.DB {
	t.Helper()
	cfg, err := config.Load(*configPath, "")
	require.NoError(t, err, "load config from %s", *configPath)

	var db *sql.DB
	// Retry connection as DB might still be starting up
	for i := 0; i < 10; i++ {
		db, err = sql.Open("postgres", cfg.GetDatabaseConnectionString())
		if err == nil {
			if err = db.Ping(); err == nil {
				break
			}
		}
		time.Sleep(2 * time.Second)
	}
	require.NoError(t, err, "connect to database")
	t.Cleanup(func() { db.Close() })

	schema, err := os.ReadFile(filepath.Join("..", "..", "..", "migrations", "001_checkpoint.sql"))
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)
	return db
}

func seedBooking(t *testing.T, db *sql.DB, status domain.BookingStatus) string {
	t.Helper()
	id := "bk-" + uuid.NewString()
	_, err := db.Exec(`
		INSERT INTO bookings (id, vehicle_id, lessor_id, renter_id, registration, deposit_amount, total_price, status,
			included_km, extra_km_price, fuel_tank_size, exterior_cleaning_fee, interior_cleaning_fee)
		VALUES ($1, 'veh-1', 'lessor-1', 'renter-1', 'ABC 123', 2500, 3990, $2, 500, 2.5, 50, 300, 450)`,
		id, status)
	require.NoError(t, err)
	return id
}

func seedFine(t *testing.T, db *sql.DB, bookingID string) string {
	t.Helper()
	id := "fine-" + uuid.NewString()
	_, err := db.Exec(`
		INSERT INTO fines (id, booking_id, fine_type, fine_amount, admin_fee, total_amount, status)
		VALUES ($1, $2, 'speeding', 50, 25.50, 75.50, 'unpaid')`, id, bookingID)
	require.NoError(t, err)
	return id
}

func record(bookingID string, recordType domain.RecordType) *domain.CheckRecord {
	return &domain.CheckRecord{
		ID:                   uuid.NewString(),
		BookingID:            bookingID,
		RecordType:           recordType,
		ConfirmedOdometer:    12000,
		ConfirmedFuelPercent: 80,
		RecordedBy:           "op-1",
		TotalExtraCharges:    decimal.Zero,
		CreatedAt:            time.Now().UTC(),
	}
}

func TestIntegration_CheckInThenSettlement(t *testing.T) {
	db := prepareDB(t)
	store := NewStore(db)
	ctx := context.Background()

	bookingID := seedBooking(t, db, domain.BookingStatusConfirmed)
	fineID := seedFine(t, db, bookingID)

	require.NoError(t, store.ApplyCheckIn(ctx, record(bookingID, domain.RecordTypeCheckIn)))
	booking, err := store.BookingRepository.GetByID(ctx, bookingID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusActive, booking.Status)

	err = store.ApplyCheckIn(ctx, record(bookingID, domain.RecordTypeCheckIn))
	assert.ErrorIs(t, err, repository.ErrRecordExists)

	out := record(bookingID, domain.RecordTypeCheckOut)
	out.ConfirmedOdometer = 12700
	out.Settled = true
	out.TotalExtraCharges = decimal.RequireFromString("575.50")
	out.FinesTotal = decimal.RequireFromString("75.50")
	require.NoError(t, store.ApplySettlement(ctx, out, []string{fineID}))

	booking, err = store.BookingRepository.GetByID(ctx, bookingID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCompleted, booking.Status)

	fines, err := store.ListUnpaidByBooking(ctx, bookingID)
	require.NoError(t, err)
	assert.Empty(t, fines)

	saved, err := store.GetByBookingAndType(ctx, bookingID, domain.RecordTypeCheckOut)
	require.NoError(t, err)
	assert.True(t, saved.Settled)
	assert.True(t, saved.TotalExtraCharges.Equal(decimal.RequireFromString("575.50")))
	assert.True(t, saved.FinesTotal.Equal(decimal.RequireFromString("75.50")))
}

func TestIntegration_StaleFinesRollBack(t *testing.T) {
	db := prepareDB(t)
	store := NewStore(db)
	ctx := context.Background()

	bookingID := seedBooking(t, db, domain.BookingStatusActive)
	fineID := seedFine(t, db, bookingID)
	_, err := db.Exec(`UPDATE fines SET status = 'paid', paid_at = now() WHERE id = $1`, fineID)
	require.NoError(t, err)

	err = store.ApplySettlement(ctx, record(bookingID, domain.RecordTypeCheckOut), []string{fineID})
	assert.ErrorIs(t, err, repository.ErrStaleSettlement)

	_, err = store.GetByBookingAndType(ctx, bookingID, domain.RecordTypeCheckOut)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	booking, err := store.BookingRepository.GetByID(ctx, bookingID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusActive, booking.Status)
}
