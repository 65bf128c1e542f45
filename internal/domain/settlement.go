package domain

import "github.com/shopspring/decimal"

// SettlementSummary is handed to invoicing and email collaborators verbatim.
// Field names and values must not be re-derived downstream.
type SettlementSummary struct {
	RentalPrice         decimal.Decimal `json:"rentalPrice"`
	KmOverageFee        decimal.Decimal `json:"kmOverageFee"`
	FuelFee             decimal.Decimal `json:"fuelFee"`
	ExteriorCleaningFee decimal.Decimal `json:"exteriorCleaningFee"`
	InteriorCleaningFee decimal.Decimal `json:"interiorCleaningFee"`
	FinesTotal          decimal.Decimal `json:"finesTotal"`
	TotalCharges        decimal.Decimal `json:"totalCharges"`
	DepositAmount       decimal.Decimal `json:"depositAmount"`
	DepositRefund       decimal.Decimal `json:"depositRefund"`
	AmountDueFromRenter decimal.Decimal `json:"amountDueFromRenter"`
}

type Anomaly string

const (
	AnomalyOdometerDecreased   Anomaly = "odometer_decreased"
	AnomalyImplausibleDistance Anomaly = "implausible_distance"
)
