package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type FineStatus string

const (
	FineStatusUnpaid FineStatus = "unpaid"
	FineStatusPaid   FineStatus = "paid"
)

type Fine struct {
	ID          string          `json:"id"`
	BookingID   string          `json:"booking_id"`
	FineType    string          `json:"fine_type"`
	FineAmount  decimal.Decimal `json:"fine_amount"`
	AdminFee    decimal.Decimal `json:"admin_fee"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      FineStatus      `json:"status"`
	PaidAt      *time.Time      `json:"paid_at,omitempty"`
}

func (f Fine) IsPaid() bool {
	return f.Status == FineStatusPaid
}

// FineIDs returns the ids of the unpaid fines in the list.
func FineIDs(fines []Fine) []string {
	ids := make([]string, 0, len(fines))
	for _, f := range fines {
		if !f.IsPaid() {
			ids = append(ids, f.ID)
		}
	}
	return ids
}
