package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentReceipt records a confirmed fine payment, keyed by the processor's
// reference so webhook retries cannot settle twice
type PaymentReceipt struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	Reference    string          `json:"reference" db:"reference"`
	UserID       string          `json:"user_id" db:"user_id"`
	Amount       decimal.Decimal `json:"amount" db:"amount"`
	LoansSettled int             `json:"loans_settled" db:"loans_settled"`
	RecordedAt   time.Time       `json:"recorded_at" db:"recorded_at"`
}

// FineSettlement is the outcome of paying a user's outstanding fines
type FineSettlement struct {
	UserID           string          `json:"user_id"`
	AmountSettled    decimal.Decimal `json:"amount_settled"`
	LoansSettled     int             `json:"loans_settled"`
	NothingDue       bool            `json:"nothing_due"`
	PaymentReference string          `json:"payment_reference,omitempty"`
}

type PayFineRequest struct {
	PaymentReference string `json:"payment_reference" validate:"omitempty,max=255"`
}

type ConfirmPaymentRequest struct {
	UserID           string          `json:"user_id" validate:"required,max=64"`
	PaymentReference string          `json:"payment_reference" validate:"required,max=255"`
	Amount           decimal.Decimal `json:"amount" validate:"decimal_gt=0"`
}
