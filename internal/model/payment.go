package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment amounts are stored as NUMERIC(10,2).
const AmountScale = 2

// MaxAmount is the largest value a NUMERIC(10,2) column holds.
var MaxAmount = decimal.New(9999999999, -AmountScale)

type Payment struct {
	Base
	PatientID     uuid.UUID       `db:"patient_id" json:"patient_id"`
	CheckInID     uuid.UUID       `db:"check_in_id" json:"check_in_id"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	PaymentMethod PaymentMethod   `db:"payment_method" json:"payment_method"`
	Reference     string          `db:"reference" json:"reference,omitempty"`
	Notes         string          `db:"notes" json:"notes,omitempty"`
}

type CreatePaymentRequest struct {
	PatientID     uuid.UUID       `json:"patient_id" binding:"required"`
	CheckInID     uuid.UUID       `json:"check_in_id" binding:"required"`
	Amount        decimal.Decimal `json:"amount" binding:"money"`
	PaymentMethod PaymentMethod   `json:"payment_method" binding:"required,payment_method"`
	Reference     string          `json:"reference" binding:"max=100"`
	Notes         string          `json:"notes" binding:"max=1000"`
}

// ValidAmount reports whether d is between zero and MaxAmount with at most
// two decimals.
func ValidAmount(d decimal.Decimal) bool {
	if d.IsNegative() || d.GreaterThan(MaxAmount) {
		return false
	}
	return d.Equal(d.Round(AmountScale))
}

type PaymentFilters struct {
	PatientID uuid.UUID `form:"-"`
	CheckInID uuid.UUID `form:"-"`
	Pagination
}
