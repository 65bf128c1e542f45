package domain

import "github.com/shopspring/decimal"

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusActive    BookingStatus = "active"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// VehicleRules is the snapshot of the vehicle's pricing rules taken when the booking was made.
// Settlement always uses the snapshot, never live vehicle rates.
type VehicleRules struct {
	IncludedKm          int             `json:"included_km"`
	ExtraKmPrice        decimal.Decimal `json:"extra_km_price"`
	FuelTankSize        decimal.Decimal `json:"fuel_tank_size"`
	ExteriorCleaningFee decimal.Decimal `json:"exterior_cleaning_fee"`
	InteriorCleaningFee decimal.Decimal `json:"interior_cleaning_fee"`
}

type Booking struct {
	ID              string          `json:"id"`
	VehicleID       string          `json:"vehicle_id"`
	LessorID        string          `json:"lessor_id"`
	RenterID        string          `json:"renter_id"`
	RenterName      string          `json:"renter_name"`
	RenterEmail     string          `json:"renter_email"`
	Registration    string          `json:"registration"`
	DepositAmount   decimal.Decimal `json:"deposit_amount"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	Status          BookingStatus   `json:"status"`
	Rules           VehicleRules    `json:"rules"`
	PickupLatitude  *float64        `json:"pickup_latitude,omitempty"`
	PickupLongitude *float64        `json:"pickup_longitude,omitempty"`
}

// FuelPricing is the lessor's fuel configuration used for shortfall fees.
type FuelPricing struct {
	PricePerLiter   decimal.Decimal `json:"fuel_price_per_liter"`
	FixedMissingFee decimal.Decimal `json:"fuel_missing_fee"`
}
