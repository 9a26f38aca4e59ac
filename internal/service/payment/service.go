package payment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/jwalitptl/quickserve-api/internal/model"
	"github.com/jwalitptl/quickserve-api/internal/repository"
	apperrors "github.com/jwalitptl/quickserve-api/pkg/errors"
)

// Emitter writes domain events for asynchronous delivery.
type Emitter interface {
	Emit(ctx context.Context, eventType string, payload interface{}) error
}

// Service tracks the money side of completed bookings. It stores gateway
// references only; actual charging happens at the payment gateway.
type Service struct {
	payments repository.PaymentRepository
	bookings repository.BookingRepository
	events   Emitter
}

func NewService(payments repository.PaymentRepository, bookings repository.BookingRepository, events Emitter) *Service {
	return &Service{
		payments: payments,
		bookings: bookings,
		events:   events,
	}
}

// Initiate opens a PENDING payment for a completed booking. The amount is
// the booking's final amount; a booking has at most one payment.
func (s *Service) Initiate(ctx context.Context, actor model.Actor, req *model.InitiatePaymentRequest) (*model.Payment, error) {
	booking, err := s.bookings.Get(ctx, req.BookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("booking")
		}
		return nil, apperrors.Internal(err)
	}
	if booking.CustomerID != actor.ID {
		return nil, apperrors.Unauthorized("only the booking customer can pay")
	}
	if booking.Status != model.BookingStatusCompleted {
		return nil, apperrors.InvalidOperation("booking is not completed")
	}
	if !booking.FinalAmount.Valid {
		return nil, apperrors.InvalidOperation("booking has no final amount")
	}

	if _, err := s.payments.GetByBookingID(ctx, req.BookingID); err == nil {
		return nil, apperrors.Conflict("payment already exists for this booking")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Internal(err)
	}

	now := time.Now().UTC()
	payment := &model.Payment{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		BookingID: req.BookingID,
		Amount:    booking.FinalAmount.Decimal,
		Status:    model.PaymentStatusPending,
		Method:    req.Method,
	}

	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, apperrors.Internal(err)
	}

	s.emit(ctx, model.EventPaymentInitiated, payment)
	return payment, nil
}

// Complete records a successful gateway charge against a PENDING payment.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, transactionID string) (*model.Payment, error) {
	if transactionID == "" {
		return nil, apperrors.Validation("transaction id is required")
	}

	payment, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment.Status != model.PaymentStatusPending {
		return nil, apperrors.InvalidOperation("payment is not pending")
	}

	now := time.Now().UTC()
	payment.Status = model.PaymentStatusCompleted
	payment.TransactionID = transactionID
	payment.PaidAt = &now
	payment.UpdatedAt = now

	if err := s.payments.Update(ctx, payment); err != nil {
		return nil, apperrors.Internal(err)
	}

	s.emit(ctx, model.EventPaymentCompleted, payment)
	return payment, nil
}

// Fail records a declined or errored gateway charge.
func (s *Service) Fail(ctx context.Context, id uuid.UUID, reason string) (*model.Payment, error) {
	payment, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment.Status != model.PaymentStatusPending {
		return nil, apperrors.InvalidOperation("payment is not pending")
	}

	payment.Status = model.PaymentStatusFailed
	payment.FailureReason = reason
	payment.UpdatedAt = time.Now().UTC()

	if err := s.payments.Update(ctx, payment); err != nil {
		return nil, apperrors.Internal(err)
	}

	s.emit(ctx, model.EventPaymentFailed, payment)
	return payment, nil
}

// Refund refunds part or all of a COMPLETED payment. Admin only.
func (s *Service) Refund(ctx context.Context, actor model.Actor, id uuid.UUID, amount decimal.Decimal) (*model.Payment, error) {
	if actor.Role != model.RoleAdmin {
		return nil, apperrors.Unauthorized("only admins can issue refunds")
	}

	payment, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment.Status != model.PaymentStatusCompleted {
		return nil, apperrors.InvalidOperation("only completed payments can be refunded")
	}
	if amount.IsZero() {
		amount = payment.Amount
	}
	if amount.IsNegative() || amount.GreaterThan(payment.Amount) {
		return nil, apperrors.Validation("refund amount must be between zero and the paid amount")
	}

	now := time.Now().UTC()
	payment.Status = model.PaymentStatusRefunded
	payment.RefundAmount = decimal.NewNullDecimal(amount)
	payment.RefundedAt = &now
	payment.UpdatedAt = now

	if err := s.payments.Update(ctx, payment); err != nil {
		return nil, apperrors.Internal(err)
	}

	s.emit(ctx, model.EventPaymentRefunded, payment)
	return payment, nil
}

// GetByBooking returns the payment for a booking, visible to its customer
// or an admin.
func (s *Service) GetByBooking(ctx context.Context, actor model.Actor, bookingID uuid.UUID) (*model.Payment, error) {
	booking, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("booking")
		}
		return nil, apperrors.Internal(err)
	}
	if actor.Role != model.RoleAdmin && booking.CustomerID != actor.ID {
		return nil, apperrors.Unauthorized("cannot view another customer's payment")
	}

	payment, err := s.payments.GetByBookingID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("payment")
		}
		return nil, apperrors.Internal(err)
	}
	return payment, nil
}

func (s *Service) get(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	payment, err := s.payments.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("payment")
		}
		return nil, apperrors.Internal(err)
	}
	return payment, nil
}

func (s *Service) emit(ctx context.Context, eventType string, payment *model.Payment) {
	if s.events == nil {
		return
	}
	if err := s.events.Emit(ctx, eventType, payment); err != nil {
		log.Warn().Err(err).
			Str("event_type", eventType).
			Str("payment_id", payment.ID.String()).
			Msg("failed to emit payment event")
	}
}
