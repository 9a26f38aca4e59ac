package payment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/quickserve-api/internal/model"
	"github.com/jwalitptl/quickserve-api/internal/repository"
	apperrors "github.com/jwalitptl/quickserve-api/pkg/errors"
)

type fakePaymentRepo struct {
	payments map[uuid.UUID]*model.Payment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: make(map[uuid.UUID]*model.Payment)}
}

func (r *fakePaymentRepo) Create(ctx context.Context, p *model.Payment) error {
	clone := *p
	r.payments[p.ID] = &clone
	return nil
}

func (r *fakePaymentRepo) Get(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	p, ok := r.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *fakePaymentRepo) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*model.Payment, error) {
	for _, p := range r.payments {
		if p.BookingID == bookingID {
			clone := *p
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakePaymentRepo) Update(ctx context.Context, p *model.Payment) error {
	if _, ok := r.payments[p.ID]; !ok {
		return repository.ErrNotFound
	}
	clone := *p
	r.payments[p.ID] = &clone
	return nil
}

// bookingGetter satisfies the booking repository interface; only Get is
// exercised by the payment service.
type bookingGetter struct {
	bookings map[uuid.UUID]*model.Booking
}

func newBookingGetter() *bookingGetter {
	return &bookingGetter{bookings: make(map[uuid.UUID]*model.Booking)}
}

func (r *bookingGetter) Create(ctx context.Context, b *model.Booking) error {
	r.bookings[b.ID] = b
	return nil
}

func (r *bookingGetter) Get(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	b, ok := r.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return b, nil
}

func (r *bookingGetter) Update(ctx context.Context, b *model.Booking) error { return nil }

func (r *bookingGetter) ListByCustomer(ctx context.Context, customerID uuid.UUID, p model.Pagination) ([]*model.Booking, int, error) {
	return nil, 0, nil
}

func (r *bookingGetter) ListByProvider(ctx context.Context, providerID uuid.UUID, p model.Pagination) ([]*model.Booking, int, error) {
	return nil, 0, nil
}

func (r *bookingGetter) ListPendingForProvider(ctx context.Context, providerID uuid.UUID) ([]*model.Booking, error) {
	return nil, nil
}

func (r *bookingGetter) ListUpcomingForProvider(ctx context.Context, providerID uuid.UUID, after time.Time) ([]*model.Booking, error) {
	return nil, nil
}

func (r *bookingGetter) HasOverlapping(ctx context.Context, providerID uuid.UUID, start, end time.Time) (bool, error) {
	return false, nil
}

type recordingEmitter struct {
	events []string
}

func (e *recordingEmitter) Emit(ctx context.Context, eventType string, payload interface{}) error {
	e.events = append(e.events, eventType)
	return nil
}

type fixture struct {
	svc      *Service
	payments *fakePaymentRepo
	bookings *bookingGetter
	emitter  *recordingEmitter
	customer model.Actor
	booking  *model.Booking
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	payments := newFakePaymentRepo()
	bookings := newBookingGetter()
	emitter := &recordingEmitter{}

	customerID := uuid.New()
	booking := &model.Booking{
		Base:        model.Base{ID: uuid.New()},
		CustomerID:  customerID,
		ProviderID:  uuid.New(),
		Status:      model.BookingStatusCompleted,
		FinalAmount: decimal.NewNullDecimal(decimal.RequireFromString("500.00")),
	}
	require.NoError(t, bookings.Create(context.Background(), booking))

	return &fixture{
		svc:      NewService(payments, bookings, emitter),
		payments: payments,
		bookings: bookings,
		emitter:  emitter,
		customer: model.Actor{ID: customerID, Role: model.RoleCustomer},
		booking:  booking,
	}
}

func (f *fixture) initiate(t *testing.T) *model.Payment {
	t.Helper()
	p, err := f.svc.Initiate(context.Background(), f.customer, &model.InitiatePaymentRequest{
		BookingID: f.booking.ID,
		Method:    "card",
	})
	require.NoError(t, err)
	return p
}

func TestInitiate(t *testing.T) {
	f := newFixture(t)

	p := f.initiate(t)
	assert.Equal(t, model.PaymentStatusPending, p.Status)
	assert.True(t, p.Amount.Equal(decimal.RequireFromString("500.00")))
	assert.Equal(t, []string{model.EventPaymentInitiated}, f.emitter.events)
}

func TestInitiate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("unknown booking", func(t *testing.T) {
		_, err := f.svc.Initiate(ctx, f.customer, &model.InitiatePaymentRequest{
			BookingID: uuid.New(),
			Method:    "card",
		})
		assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
	})

	t.Run("not the customer", func(t *testing.T) {
		stranger := model.Actor{ID: uuid.New(), Role: model.RoleCustomer}
		_, err := f.svc.Initiate(ctx, stranger, &model.InitiatePaymentRequest{
			BookingID: f.booking.ID,
			Method:    "card",
		})
		assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err))
	})

	t.Run("booking not completed", func(t *testing.T) {
		pending := &model.Booking{
			Base:       model.Base{ID: uuid.New()},
			CustomerID: f.customer.ID,
			Status:     model.BookingStatusPending,
		}
		require.NoError(t, f.bookings.Create(ctx, pending))

		_, err := f.svc.Initiate(ctx, f.customer, &model.InitiatePaymentRequest{
			BookingID: pending.ID,
			Method:    "card",
		})
		assert.Equal(t, apperrors.CodeInvalidOperation, apperrors.CodeOf(err))
	})

	t.Run("duplicate", func(t *testing.T) {
		f.initiate(t)
		_, err := f.svc.Initiate(ctx, f.customer, &model.InitiatePaymentRequest{
			BookingID: f.booking.ID,
			Method:    "card",
		})
		assert.Equal(t, apperrors.CodeConflict, apperrors.CodeOf(err))
	})
}

func TestComplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.initiate(t)

	completed, err := f.svc.Complete(ctx, p.ID, "txn-123")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCompleted, completed.Status)
	assert.Equal(t, "txn-123", completed.TransactionID)
	require.NotNil(t, completed.PaidAt)

	_, err = f.svc.Complete(ctx, p.ID, "txn-456")
	assert.Equal(t, apperrors.CodeInvalidOperation, apperrors.CodeOf(err))
}

func TestComplete_RequiresTransactionID(t *testing.T) {
	f := newFixture(t)
	p := f.initiate(t)

	_, err := f.svc.Complete(context.Background(), p.ID, "")
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
}

func TestFail(t *testing.T) {
	f := newFixture(t)
	p := f.initiate(t)

	failed, err := f.svc.Fail(context.Background(), p.ID, "card declined")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusFailed, failed.Status)
	assert.Equal(t, "card declined", failed.FailureReason)
}

func TestRefund(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := model.Actor{ID: uuid.New(), Role: model.RoleAdmin}

	p := f.initiate(t)
	_, err := f.svc.Complete(ctx, p.ID, "txn-123")
	require.NoError(t, err)

	t.Run("admin only", func(t *testing.T) {
		_, err := f.svc.Refund(ctx, f.customer, p.ID, decimal.Zero)
		assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err))
	})

	t.Run("amount above paid", func(t *testing.T) {
		_, err := f.svc.Refund(ctx, admin, p.ID, decimal.RequireFromString("600.00"))
		assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
	})

	t.Run("full refund by default", func(t *testing.T) {
		refunded, err := f.svc.Refund(ctx, admin, p.ID, decimal.Zero)
		require.NoError(t, err)
		assert.Equal(t, model.PaymentStatusRefunded, refunded.Status)
		require.True(t, refunded.RefundAmount.Valid)
		assert.True(t, refunded.RefundAmount.Decimal.Equal(decimal.RequireFromString("500.00")))
	})

	t.Run("cannot refund twice", func(t *testing.T) {
		_, err := f.svc.Refund(ctx, admin, p.ID, decimal.Zero)
		assert.Equal(t, apperrors.CodeInvalidOperation, apperrors.CodeOf(err))
	})
}

func TestGetByBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.initiate(t)

	p, err := f.svc.GetByBooking(ctx, f.customer, f.booking.ID)
	require.NoError(t, err)
	assert.Equal(t, f.booking.ID, p.BookingID)

	stranger := model.Actor{ID: uuid.New(), Role: model.RoleCustomer}
	_, err = f.svc.GetByBooking(ctx, stranger, f.booking.ID)
	assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err))
}
