package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "PENDING"
	BookingStatusConfirmed  BookingStatus = "CONFIRMED"
	BookingStatusRejected   BookingStatus = "REJECTED"
	BookingStatusInProgress BookingStatus = "IN_PROGRESS"
	BookingStatusCompleted  BookingStatus = "COMPLETED"
	BookingStatusCancelled  BookingStatus = "CANCELLED"
)

// IsTerminal reports whether no further transition is defined from s.
func (s BookingStatus) IsTerminal() bool {
	switch s {
	case BookingStatusRejected, BookingStatusCompleted, BookingStatusCancelled:
		return true
	}
	return false
}

// Blocks reports whether a booking in this status occupies the provider's
// calendar for conflict checking. Pending requests do not block.
func (s BookingStatus) Blocks() bool {
	return s == BookingStatusConfirmed || s == BookingStatusInProgress
}

const DefaultDurationMinutes = 60

type Booking struct {
	Base
	CustomerID         uuid.UUID           `db:"customer_id" json:"customer_id"`
	ProviderID         uuid.UUID           `db:"provider_id" json:"provider_id"`
	ScheduledAt        time.Time           `db:"scheduled_at" json:"scheduled_at"`
	DurationMinutes    int                 `db:"duration_minutes" json:"duration_minutes"`
	Status             BookingStatus       `db:"status" json:"status"`
	Address            string              `db:"address" json:"address"`
	Notes              string              `db:"notes" json:"notes,omitempty"`
	QuotedAmount       decimal.Decimal     `db:"quoted_amount" json:"quoted_amount"`
	FinalAmount        decimal.NullDecimal `db:"final_amount" json:"final_amount,omitempty"`
	RespondedAt        *time.Time          `db:"responded_at" json:"responded_at,omitempty"`
	CompletedAt        *time.Time          `db:"completed_at" json:"completed_at,omitempty"`
	Rating             *int                `db:"rating" json:"rating,omitempty"`
	Review             string              `db:"review" json:"review,omitempty"`
	CancellationReason string              `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
}

// EndTime is the derived end of the scheduled window.
func (b *Booking) EndTime() time.Time {
	return b.ScheduledAt.Add(time.Duration(b.DurationMinutes) * time.Minute)
}

type CreateBookingRequest struct {
	ProviderID      uuid.UUID       `json:"provider_id" binding:"required"`
	ScheduledAt     time.Time       `json:"scheduled_at" binding:"required"`
	DurationMinutes int             `json:"duration_minutes"`
	Address         string          `json:"address" binding:"required"`
	Notes           string          `json:"notes" binding:"max=1000"`
	QuotedAmount    decimal.Decimal `json:"quoted_amount"`
}

type RespondBookingRequest struct {
	Accept bool `json:"accept"`
}

type CompleteBookingRequest struct {
	FinalAmount decimal.Decimal `json:"final_amount" binding:"required"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type ReviewBookingRequest struct {
	Rating int    `json:"rating" binding:"required,min=1,max=5"`
	Review string `json:"review" binding:"max=2000"`
}
