package utils

import (
	"github.com/shopspring/decimal"

	"vehicle-checkpoint-backend/internal/domain"
)

// FuelTolerancePercent is the fuel-level drop, in percentage points, that is never charged.
const FuelTolerancePercent = 5

// SettlementInput carries everything the settlement formula reads.
// It is the same whether the start readings come from a stored check-in record
// or were typed in by the operator.
type SettlementInput struct {
	StartOdometer    int
	StartFuelPercent int
	EndOdometer      int
	EndFuelPercent   int
	Rules            domain.VehicleRules
	FuelPricing      domain.FuelPricing
	ExteriorClean    bool
	InteriorClean    bool
	Fines            []domain.Fine
	DepositAmount    decimal.Decimal
	RentalPrice      decimal.Decimal
	// MaxPlausibleKm flags longer trips for review. Zero disables the check.
	MaxPlausibleKm int
}

// SettlementBreakdown is the summary plus the intermediate quantities it was derived from.
type SettlementBreakdown struct {
	KmDriven          int
	KmOverage         int
	FuelDiff          int
	FuelMissingLiters decimal.Decimal
	Anomalies         []domain.Anomaly
	Summary           domain.SettlementSummary
}

func money(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func maxZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// CalculateSettlement computes the final settlement of a rental.
// It is a pure function: identical input always yields identical output.
func CalculateSettlement(in SettlementInput) SettlementBreakdown {
	var out SettlementBreakdown

	// A decreasing odometer is clamped to zero usage and flagged, never charged negatively.
	kmDriven := in.EndOdometer - in.StartOdometer
	if kmDriven < 0 {
		out.Anomalies = append(out.Anomalies, domain.AnomalyOdometerDecreased)
		kmDriven = 0
	}
	if in.MaxPlausibleKm > 0 && kmDriven > in.MaxPlausibleKm {
		out.Anomalies = append(out.Anomalies, domain.AnomalyImplausibleDistance)
	}
	out.KmDriven = kmDriven

	kmOverage := kmDriven - in.Rules.IncludedKm
	if kmOverage < 0 {
		kmOverage = 0
	}
	out.KmOverage = kmOverage
	kmOverageFee := money(decimal.NewFromInt(int64(kmOverage)).Mul(in.Rules.ExtraKmPrice))

	out.FuelDiff = in.StartFuelPercent - in.EndFuelPercent
	fuelFee := decimal.Zero
	out.FuelMissingLiters = decimal.Zero
	if out.FuelDiff > FuelTolerancePercent {
		out.FuelMissingLiters = decimal.NewFromInt(int64(out.FuelDiff)).
			Div(decimal.NewFromInt(100)).
			Mul(in.Rules.FuelTankSize)
		fuelFee = money(out.FuelMissingLiters.Mul(in.FuelPricing.PricePerLiter).Add(in.FuelPricing.FixedMissingFee))
	}

	exteriorFee := decimal.Zero
	if !in.ExteriorClean {
		exteriorFee = money(in.Rules.ExteriorCleaningFee)
	}
	interiorFee := decimal.Zero
	if !in.InteriorClean {
		interiorFee = money(in.Rules.InteriorCleaningFee)
	}

	finesTotal := decimal.Zero
	for _, f := range in.Fines {
		if f.IsPaid() {
			continue
		}
		finesTotal = finesTotal.Add(money(f.TotalAmount))
	}

	total := kmOverageFee.Add(fuelFee).Add(exteriorFee).Add(interiorFee).Add(finesTotal)
	deposit := money(in.DepositAmount)

	out.Summary = domain.SettlementSummary{
		RentalPrice:         money(in.RentalPrice),
		KmOverageFee:        kmOverageFee,
		FuelFee:             fuelFee,
		ExteriorCleaningFee: exteriorFee,
		InteriorCleaningFee: interiorFee,
		FinesTotal:          finesTotal,
		TotalCharges:        total,
		DepositAmount:       deposit,
		DepositRefund:       maxZero(deposit.Sub(total)),
		AmountDueFromRenter: maxZero(total.Sub(deposit)),
	}
	return out
}

// NeedsReview reports whether the breakdown carries anything an operator should look at.
func (b SettlementBreakdown) NeedsReview() bool {
	return len(b.Anomalies) > 0
}

// ReviewFlags returns the anomalies as plain strings for persistence.
func (b SettlementBreakdown) ReviewFlags() []string {
	if len(b.Anomalies) == 0 {
		return nil
	}
	flags := make([]string, len(b.Anomalies))
	for i, a := range b.Anomalies {
		flags[i] = string(a)
	}
	return flags
}
