package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// Payment tracks the money side of a booking. Only gateway references are
// stored, never card data.
type Payment struct {
	Base
	BookingID     uuid.UUID           `db:"booking_id" json:"booking_id"`
	Amount        decimal.Decimal     `db:"amount" json:"amount"`
	Status        PaymentStatus       `db:"status" json:"status"`
	Method        string              `db:"method" json:"method,omitempty"`
	TransactionID string              `db:"transaction_id" json:"transaction_id,omitempty"`
	ReferenceID   string              `db:"reference_id" json:"reference_id,omitempty"`
	FailureReason string              `db:"failure_reason" json:"failure_reason,omitempty"`
	PaidAt        *time.Time          `db:"paid_at" json:"paid_at,omitempty"`
	RefundedAt    *time.Time          `db:"refunded_at" json:"refunded_at,omitempty"`
	RefundAmount  decimal.NullDecimal `db:"refund_amount" json:"refund_amount,omitempty"`
}

type InitiatePaymentRequest struct {
	BookingID uuid.UUID `json:"booking_id" binding:"required"`
	Method    string    `json:"method" binding:"required,oneof=card upi netbanking cash"`
}
