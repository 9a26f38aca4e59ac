package booking

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/quickserve-api/internal/model"
	"github.com/jwalitptl/quickserve-api/internal/repository"
	providersvc "github.com/jwalitptl/quickserve-api/internal/service/provider"
	apperrors "github.com/jwalitptl/quickserve-api/pkg/errors"
	"github.com/jwalitptl/quickserve-api/pkg/metrics"
)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

// fakeBookingRepo is an in-memory booking store with the same half-open
// overlap semantics as the Postgres implementation.
type fakeBookingRepo struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*model.Booking
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{bookings: make(map[uuid.UUID]*model.Booking)}
}

func (r *fakeBookingRepo) Create(ctx context.Context, b *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *b
	r.bookings[b.ID] = &clone
	return nil
}

func (r *fakeBookingRepo) Get(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *b
	return &clone, nil
}

// Update enforces the same rule as the exclusion constraint: a booking
// cannot move into a blocking status while another blocking booking holds
// an overlapping window for the provider.
func (r *fakeBookingRepo) Update(ctx context.Context, b *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[b.ID]; !ok {
		return repository.ErrNotFound
	}
	if b.Status.Blocks() {
		for _, other := range r.bookings {
			if other.ID == b.ID || other.ProviderID != b.ProviderID || !other.Status.Blocks() {
				continue
			}
			if other.ScheduledAt.Before(b.EndTime()) && other.EndTime().After(b.ScheduledAt) {
				return repository.ErrOverlap
			}
		}
	}
	clone := *b
	r.bookings[b.ID] = &clone
	return nil
}

func (r *fakeBookingRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID, p model.Pagination) ([]*model.Booking, int, error) {
	return r.list(func(b *model.Booking) bool { return b.CustomerID == customerID }, &p)
}

func (r *fakeBookingRepo) ListByProvider(ctx context.Context, providerID uuid.UUID, p model.Pagination) ([]*model.Booking, int, error) {
	return r.list(func(b *model.Booking) bool { return b.ProviderID == providerID }, &p)
}

func (r *fakeBookingRepo) ListPendingForProvider(ctx context.Context, providerID uuid.UUID) ([]*model.Booking, error) {
	out, _, err := r.list(func(b *model.Booking) bool {
		return b.ProviderID == providerID && b.Status == model.BookingStatusPending
	}, nil)
	return out, err
}

func (r *fakeBookingRepo) ListUpcomingForProvider(ctx context.Context, providerID uuid.UUID, after time.Time) ([]*model.Booking, error) {
	out, _, err := r.list(func(b *model.Booking) bool {
		return b.ProviderID == providerID &&
			b.Status == model.BookingStatusConfirmed &&
			b.ScheduledAt.After(after)
	}, nil)
	return out, err
}

func (r *fakeBookingRepo) HasOverlapping(ctx context.Context, providerID uuid.UUID, start, end time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bookings {
		if b.ProviderID != providerID || !b.Status.Blocks() {
			continue
		}
		if b.ScheduledAt.Before(end) && b.EndTime().After(start) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeBookingRepo) list(match func(*model.Booking) bool, p *model.Pagination) ([]*model.Booking, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Booking
	for _, b := range r.bookings {
		if match(b) {
			clone := *b
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	total := len(out)
	if p != nil {
		lo := p.Offset()
		if lo > len(out) {
			lo = len(out)
		}
		hi := lo + p.PageSize
		if hi > len(out) {
			hi = len(out)
		}
		out = out[lo:hi]
	}
	return out, total, nil
}

type fakeProviderRepo struct {
	providers map[uuid.UUID]*model.Provider
}

func newFakeProviderRepo() *fakeProviderRepo {
	return &fakeProviderRepo{providers: make(map[uuid.UUID]*model.Provider)}
}

func (r *fakeProviderRepo) Create(ctx context.Context, p *model.Provider) error {
	clone := *p
	r.providers[p.ID] = &clone
	return nil
}

func (r *fakeProviderRepo) Get(ctx context.Context, id uuid.UUID) (*model.Provider, error) {
	p, ok := r.providers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *fakeProviderRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Provider, error) {
	for _, p := range r.providers {
		if p.UserID == userID {
			clone := *p
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeProviderRepo) Update(ctx context.Context, p *model.Provider) error {
	if _, ok := r.providers[p.ID]; !ok {
		return repository.ErrNotFound
	}
	clone := *p
	r.providers[p.ID] = &clone
	return nil
}

func (r *fakeProviderRepo) List(ctx context.Context, filters *model.ProviderFilters) ([]*model.Provider, int, error) {
	var out []*model.Provider
	for _, p := range r.providers {
		clone := *p
		out = append(out, &clone)
	}
	return out, len(out), nil
}

type fakeUserRepo struct {
	users map[uuid.UUID]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*model.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, u *model.User) error {
	r.users[u.ID] = u
	return nil
}

func (r *fakeUserRepo) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) Update(ctx context.Context, u *model.User) error {
	r.users[u.ID] = u
	return nil
}

type recordingCache struct {
	deleted []string
}

func (c *recordingCache) Get(key string) (interface{}, bool) { return nil, false }

func (c *recordingCache) Set(key string, value interface{}, _ time.Duration) {}

func (c *recordingCache) Delete(key string) { c.deleted = append(c.deleted, key) }

func (c *recordingCache) Flush() {}

type recordingEmitter struct {
	events []string
}

func (e *recordingEmitter) Emit(ctx context.Context, eventType string, payload interface{}) error {
	e.events = append(e.events, eventType)
	return nil
}

type fixture struct {
	svc       *Service
	bookings  *fakeBookingRepo
	providers *fakeProviderRepo
	users     *fakeUserRepo
	emitter   *recordingEmitter
	cache     *recordingCache
	metrics   *metrics.Metrics
	clock     *fixedClock

	customer     model.Actor
	providerUser model.Actor
	providerID   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := &fixedClock{now: time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)}
	bookings := newFakeBookingRepo()
	providers := newFakeProviderRepo()
	users := newFakeUserRepo()
	emitter := &recordingEmitter{}

	customerID := uuid.New()
	providerUserID := uuid.New()
	providerID := uuid.New()

	require.NoError(t, users.Create(context.Background(), &model.User{
		Base: model.Base{ID: customerID}, Email: "customer@example.com", Role: model.RoleCustomer,
	}))
	require.NoError(t, users.Create(context.Background(), &model.User{
		Base: model.Base{ID: providerUserID}, Email: "provider@example.com", Role: model.RoleProvider,
	}))
	require.NoError(t, providers.Create(context.Background(), &model.Provider{
		Base:       model.Base{ID: providerID},
		UserID:     providerUserID,
		HourlyRate: decimal.NewFromInt(50),
		Available:  true,
	}))

	store := &recordingCache{}
	m := metrics.NewMetricsWith(prometheus.NewRegistry(), "test", "booking")
	svc := NewService(bookings, providers, users, emitter, nil, store, m, clock)

	return &fixture{
		svc:          svc,
		bookings:     bookings,
		providers:    providers,
		users:        users,
		emitter:      emitter,
		cache:        store,
		metrics:      m,
		clock:        clock,
		customer:     model.Actor{ID: customerID, Role: model.RoleCustomer},
		providerUser: model.Actor{ID: providerUserID, Role: model.RoleProvider},
		providerID:   providerID,
	}
}

func (f *fixture) createRequest(start time.Time, durationMin int) *model.CreateBookingRequest {
	return &model.CreateBookingRequest{
		ProviderID:      f.providerID,
		ScheduledAt:     start,
		DurationMinutes: durationMin,
		Address:         "42 Main St",
		QuotedAmount:    decimal.RequireFromString("120.00"),
	}
}

func TestCreateBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	b, err := f.svc.Create(ctx, f.customer, f.createRequest(start, 60))
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPending, b.Status)
	assert.Equal(t, f.customer.ID, b.CustomerID)
	assert.Equal(t, f.providerID, b.ProviderID)
	assert.Equal(t, start.Add(time.Hour), b.EndTime())
	assert.Equal(t, []string{model.EventBookingCreated}, f.emitter.events)
}

func TestCreateBooking_DefaultDuration(t *testing.T) {
	f := newFixture(t)
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	b, err := f.svc.Create(context.Background(), f.customer, f.createRequest(start, 0))
	require.NoError(t, err)
	assert.Equal(t, model.DefaultDurationMinutes, b.DurationMinutes)
}

func TestCreateBooking_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	future := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("past date", func(t *testing.T) {
		req := f.createRequest(f.clock.now.Add(-time.Hour), 60)
		_, err := f.svc.Create(ctx, f.customer, req)
		assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
	})

	t.Run("start equal to now", func(t *testing.T) {
		req := f.createRequest(f.clock.now, 60)
		_, err := f.svc.Create(ctx, f.customer, req)
		assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
	})

	t.Run("missing address", func(t *testing.T) {
		req := f.createRequest(future, 60)
		req.Address = ""
		_, err := f.svc.Create(ctx, f.customer, req)
		assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
	})

	t.Run("negative duration", func(t *testing.T) {
		req := f.createRequest(future, -30)
		_, err := f.svc.Create(ctx, f.customer, req)
		assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
	})

	t.Run("unknown provider", func(t *testing.T) {
		req := f.createRequest(future, 60)
		req.ProviderID = uuid.New()
		_, err := f.svc.Create(ctx, f.customer, req)
		assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
	})

	t.Run("provider role cannot create", func(t *testing.T) {
		_, err := f.svc.Create(ctx, f.providerUser, f.createRequest(future, 60))
		assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err))
	})

	t.Run("provider cannot book own profile", func(t *testing.T) {
		actor := model.Actor{ID: f.providerUser.ID, Role: model.RoleCustomer}
		_, err := f.svc.Create(ctx, actor, f.createRequest(future, 60))
		assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err))
	})
}

func TestCreateBooking_UnavailableProvider(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.providers.Get(ctx, f.providerID)
	require.NoError(t, err)
	p.Available = false
	require.NoError(t, f.providers.Update(ctx, p))

	_, err = f.svc.Create(ctx, f.customer, f.createRequest(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), 60))
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
}

// The example from the conflict rules: a confirmed 10:00-11:00 booking
// blocks 10:30-11:30 but not a back-to-back 11:00-11:30.
func TestSchedulingConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, f.customer, f.createRequest(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), 60))
	require.NoError(t, err)

	_, err = f.svc.Respond(ctx, f.providerUser, first.ID, true)
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, f.customer, f.createRequest(time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC), 60))
	assert.Equal(t, apperrors.CodeSchedulingConflict, apperrors.CodeOf(err))

	backToBack, err := f.svc.Create(ctx, f.customer, f.createRequest(time.Date(2025, 3, 1, 11, 0, 0, 0, time.UTC), 30))
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPending, backToBack.Status)

	// An existing booking starting mid-window also conflicts.
	_, err = f.svc.Create(ctx, f.customer, f.createRequest(time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC), 60))
	assert.Equal(t, apperrors.CodeSchedulingConflict, apperrors.CodeOf(err))
}

// Two pending requests for overlapping windows are both legal; once one is
// accepted, accepting the other must fail as a scheduling conflict, not a
// storage error, and leave the record untouched.
func TestAcceptingSecondBookingForTakenWindowConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, f.customer, f.createRequest(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), 60))
	require.NoError(t, err)
	second, err := f.svc.Create(ctx, f.customer, f.createRequest(time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC), 60))
	require.NoError(t, err)

	_, err = f.svc.Respond(ctx, f.providerUser, first.ID, true)
	require.NoError(t, err)

	_, err = f.svc.Respond(ctx, f.providerUser, second.ID, true)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeSchedulingConflict, apperrors.CodeOf(err))

	stored, err := f.bookings.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPending, stored.Status)
	assert.Nil(t, stored.RespondedAt)
}

func TestPendingBookingsDoNotBlock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	_, err := f.svc.Create(ctx, f.customer, f.createRequest(start, 60))
	require.NoError(t, err)

	// Same window, first request still pending: no conflict.
	_, err = f.svc.Create(ctx, f.customer, f.createRequest(start, 60))
	require.NoError(t, err)
}

func TestTerminalBookingsDoNotBlock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	b, err := f.svc.Create(ctx, f.customer, f.createRequest(start, 60))
	require.NoError(t, err)
	_, err = f.svc.Respond(ctx, f.providerUser, b.ID, true)
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, f.customer, b.ID, "change of plans")
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, f.customer, f.createRequest(start, 60))
	require.NoError(t, err)
}

func TestRespond(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("accept", func(t *testing.T) {
		b, err := f.svc.Create(ctx, f.customer, f.createRequest(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), 60))
		require.NoError(t, err)

		b, err = f.svc.Respond(ctx, f.providerUser, b.ID, true)
		require.NoError(t, err)
		assert.Equal(t, model.BookingStatusConfirmed, b.Status)
		require.NotNil(t, b.RespondedAt)
		assert.Equal(t, f.clock.now, *b.RespondedAt)
	})

	t.Run("reject", func(t *testing.T) {
		b, err := f.svc.Create(ctx, f.customer, f.createRequest(time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC), 60))
		require.NoError(t, err)

		b, err = f.svc.Respond(ctx, f.providerUser, b.ID, false)
		require.NoError(t, err)
		assert.Equal(t, model.BookingStatusRejected, b.Status)
		assert.NotNil(t, b.RespondedAt)
	})

	t.Run("customer cannot accept", func(t *testing.T) {
		b, err := f.svc.Create(ctx, f.customer, f.createRequest(time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC), 60))
		require.NoError(t, err)

		_, err = f.svc.Respond(ctx, f.customer, b.ID, true)
		assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err))
	})

	t.Run("other provider cannot accept", func(t *testing.T) {
		b, err := f.svc.Create(ctx, f.customer, f.createRequest(time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC), 60))
		require.NoError(t, err)

		stranger := model.Actor{ID: uuid.New(), Role: model.RoleProvider}
		_, err = f.svc.Respond(ctx, stranger, b.ID, true)
		assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err))
	})

	t.Run("already confirmed", func(t *testing.T) {
		b, err := f.svc.Create(ctx, f.customer, f.createRequest(time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC), 60))
		require.NoError(t, err)
		_, err = f.svc.Respond(ctx, f.providerUser, b.ID, true)
		require.NoError(t, err)

		_, err = f.svc.Respond(ctx, f.providerUser, b.ID, true)
		assert.Equal(t, apperrors.CodeInvalidTransition, apperrors.CodeOf(err))
	})
}

func TestFullLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, f.customer, f.createRequest(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), 60))
	require.NoError(t, err)

	b, err = f.svc.Respond(ctx, f.providerUser, b.ID, true)
	require.NoError(t, err)

	b, err = f.svc.StartService(ctx, f.providerUser, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusInProgress, b.Status)

	final := decimal.RequireFromString("500.00")
	b, err = f.svc.CompleteService(ctx, f.providerUser, b.ID, final)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCompleted, b.Status)
	require.NotNil(t, b.CompletedAt)
	require.True(t, b.FinalAmount.Valid)
	assert.True(t, b.FinalAmount.Decimal.Equal(final))

	b, err = f.svc.AttachReview(ctx, f.customer, b.ID, 5, "Great")
	require.NoError(t, err)
	require.NotNil(t, b.Rating)
	assert.Equal(t, 5, *b.Rating)

	_, err = f.svc.AttachReview(ctx, f.customer, b.ID, 3, "changed my mind")
	assert.Equal(t, apperrors.CodeInvalidOperation, apperrors.CodeOf(err))

	assert.Equal(t, []string{
		model.EventBookingCreated,
		model.EventBookingConfirmed,
		model.EventBookingStarted,
		model.EventBookingCompleted,
		model.EventBookingReviewed,
	}, f.emitter.events)
}

// Transitions outside the table must fail and leave the record unchanged.
func TestInvalidTransitionsLeaveRecordUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, f.customer, f.createRequest(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), 60))
	require.NoError(t, err)

	_, err = f.svc.CompleteService(ctx, f.providerUser, b.ID, decimal.NewFromInt(100))
	assert.Equal(t, apperrors.CodeInvalidTransition, apperrors.CodeOf(err))

	_, err = f.svc.StartService(ctx, f.providerUser, b.ID)
	assert.Equal(t, apperrors.CodeInvalidTransition, apperrors.CodeOf(err))

	stored, err := f.bookings.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPending, stored.Status)
	assert.Nil(t, stored.CompletedAt)
	assert.False(t, stored.FinalAmount.Valid)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	newBooking := func(t *testing.T, day int) *model.Booking {
		b, err := f.svc.Create(ctx, f.customer, f.createRequest(time.Date(2025, 3, day, 10, 0, 0, 0, time.UTC), 60))
		require.NoError(t, err)
		return b
	}

	t.Run("by customer while pending", func(t *testing.T) {
		b := newBooking(t, 1)
		b, err := f.svc.Cancel(ctx, f.customer, b.ID, "found someone else")
		require.NoError(t, err)
		assert.Equal(t, model.BookingStatusCancelled, b.Status)
		assert.Equal(t, "found someone else", b.CancellationReason)
	})

	t.Run("by provider while confirmed", func(t *testing.T) {
		b := newBooking(t, 2)
		_, err := f.svc.Respond(ctx, f.providerUser, b.ID, true)
		require.NoError(t, err)

		b, err = f.svc.Cancel(ctx, f.providerUser, b.ID, "equipment failure")
		require.NoError(t, err)
		assert.Equal(t, model.BookingStatusCancelled, b.Status)
	})

	t.Run("while in progress", func(t *testing.T) {
		b := newBooking(t, 3)
		_, err := f.svc.Respond(ctx, f.providerUser, b.ID, true)
		require.NoError(t, err)
		_, err = f.svc.StartService(ctx, f.providerUser, b.ID)
		require.NoError(t, err)

		b, err = f.svc.Cancel(ctx, f.customer, b.ID, "emergency")
		require.NoError(t, err)
		assert.Equal(t, model.BookingStatusCancelled, b.Status)
	})

	t.Run("reason required", func(t *testing.T) {
		b := newBooking(t, 4)
		_, err := f.svc.Cancel(ctx, f.customer, b.ID, "")
		assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
	})

	t.Run("terminal state", func(t *testing.T) {
		b := newBooking(t, 5)
		_, err := f.svc.Respond(ctx, f.providerUser, b.ID, false)
		require.NoError(t, err)

		_, err = f.svc.Cancel(ctx, f.customer, b.ID, "too late")
		assert.Equal(t, apperrors.CodeInvalidTransition, apperrors.CodeOf(err))
	})

	t.Run("stranger", func(t *testing.T) {
		b := newBooking(t, 6)
		stranger := model.Actor{ID: uuid.New(), Role: model.RoleCustomer}
		_, err := f.svc.Cancel(ctx, stranger, b.ID, "nope")
		assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err))
	})
}

func TestAttachReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	complete := func(t *testing.T, day int) *model.Booking {
		b, err := f.svc.Create(ctx, f.customer, f.createRequest(time.Date(2025, 3, day, 10, 0, 0, 0, time.UTC), 60))
		require.NoError(t, err)
		_, err = f.svc.Respond(ctx, f.providerUser, b.ID, true)
		require.NoError(t, err)
		_, err = f.svc.StartService(ctx, f.providerUser, b.ID)
		require.NoError(t, err)
		b, err = f.svc.CompleteService(ctx, f.providerUser, b.ID, decimal.NewFromInt(200))
		require.NoError(t, err)
		return b
	}

	t.Run("updates provider aggregate", func(t *testing.T) {
		b := complete(t, 1)
		_, err := f.svc.AttachReview(ctx, f.customer, b.ID, 4, "solid work")
		require.NoError(t, err)

		p, err := f.providers.Get(ctx, f.providerID)
		require.NoError(t, err)
		assert.Equal(t, 1, p.TotalRatings)
		assert.True(t, p.Rating.Equal(decimal.NewFromInt(4)))

		b2 := complete(t, 2)
		_, err = f.svc.AttachReview(ctx, f.customer, b2.ID, 5, "")
		require.NoError(t, err)

		p, err = f.providers.Get(ctx, f.providerID)
		require.NoError(t, err)
		assert.Equal(t, 2, p.TotalRatings)
		assert.True(t, p.Rating.Equal(decimal.RequireFromString("4.5")))
	})

	t.Run("not completed", func(t *testing.T) {
		b, err := f.svc.Create(ctx, f.customer, f.createRequest(time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC), 60))
		require.NoError(t, err)
		_, err = f.svc.AttachReview(ctx, f.customer, b.ID, 5, "premature")
		assert.Equal(t, apperrors.CodeInvalidOperation, apperrors.CodeOf(err))
	})

	t.Run("rating out of range", func(t *testing.T) {
		b := complete(t, 11)
		_, err := f.svc.AttachReview(ctx, f.customer, b.ID, 6, "")
		assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
		_, err = f.svc.AttachReview(ctx, f.customer, b.ID, 0, "")
		assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
	})

	t.Run("only the customer", func(t *testing.T) {
		b := complete(t, 12)
		_, err := f.svc.AttachReview(ctx, f.providerUser, b.ID, 5, "")
		assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err))
	})
}

func TestQueries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ids []uuid.UUID
	for day := 5; day >= 1; day-- {
		b, err := f.svc.Create(ctx, f.customer, f.createRequest(time.Date(2025, 3, day, 10, 0, 0, 0, time.UTC), 60))
		require.NoError(t, err)
		ids = append(ids, b.ID)
	}

	t.Run("list by customer is chronological and paginated", func(t *testing.T) {
		page, total, err := f.svc.ListByCustomer(ctx, f.customer, f.customer.ID, model.Pagination{Page: 1, PageSize: 2})
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		require.Len(t, page, 2)
		assert.True(t, page[0].ScheduledAt.Before(page[1].ScheduledAt))

		page2, _, err := f.svc.ListByCustomer(ctx, f.customer, f.customer.ID, model.Pagination{Page: 2, PageSize: 2})
		require.NoError(t, err)
		require.Len(t, page2, 2)
		assert.True(t, page[1].ScheduledAt.Before(page2[0].ScheduledAt))
	})

	t.Run("customer cannot list others", func(t *testing.T) {
		stranger := model.Actor{ID: uuid.New(), Role: model.RoleCustomer}
		_, _, err := f.svc.ListByCustomer(ctx, stranger, f.customer.ID, model.Pagination{})
		assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err))
	})

	t.Run("pending for provider", func(t *testing.T) {
		pending, err := f.svc.ListPendingForProvider(ctx, f.providerUser, f.providerID)
		require.NoError(t, err)
		assert.Len(t, pending, 5)
	})

	t.Run("upcoming for provider", func(t *testing.T) {
		_, err := f.svc.Respond(ctx, f.providerUser, ids[0], true)
		require.NoError(t, err)
		_, err = f.svc.Respond(ctx, f.providerUser, ids[1], true)
		require.NoError(t, err)

		upcoming, err := f.svc.ListUpcomingForProvider(ctx, f.providerUser, f.providerID)
		require.NoError(t, err)
		require.Len(t, upcoming, 2)
		assert.True(t, upcoming[0].ScheduledAt.Before(upcoming[1].ScheduledAt))
		for _, b := range upcoming {
			assert.Equal(t, model.BookingStatusConfirmed, b.Status)
			assert.True(t, b.ScheduledAt.After(f.clock.now))
		}
	})

	t.Run("admin can list any provider", func(t *testing.T) {
		admin := model.Actor{ID: uuid.New(), Role: model.RoleAdmin}
		_, total, err := f.svc.ListByProvider(ctx, admin, f.providerID, model.Pagination{})
		require.NoError(t, err)
		assert.Equal(t, 5, total)
	})
}

func TestGetBooking_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Get(context.Background(), f.customer, uuid.New())
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
}

func TestConcurrentCreationIsSerialized(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Confirmed booking occupying 10:00-11:00 so later attempts conflict.
	seed, err := f.svc.Create(ctx, f.customer, f.createRequest(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), 60))
	require.NoError(t, err)
	_, err = f.svc.Respond(ctx, f.providerUser, seed.ID, true)
	require.NoError(t, err)

	var wg sync.WaitGroup
	conflicts := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Create(ctx, f.customer, f.createRequest(time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC), 60))
			conflicts <- err
		}()
	}
	wg.Wait()
	close(conflicts)

	for err := range conflicts {
		assert.Equal(t, apperrors.CodeSchedulingConflict, apperrors.CodeOf(err))
	}
}

func TestAttachReviewEvictsCachedProviderProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, f.customer, f.createRequest(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), 60))
	require.NoError(t, err)
	_, err = f.svc.Respond(ctx, f.providerUser, b.ID, true)
	require.NoError(t, err)
	_, err = f.svc.StartService(ctx, f.providerUser, b.ID)
	require.NoError(t, err)
	_, err = f.svc.CompleteService(ctx, f.providerUser, b.ID, decimal.NewFromInt(200))
	require.NoError(t, err)

	_, err = f.svc.AttachReview(ctx, f.customer, b.ID, 5, "great")
	require.NoError(t, err)

	assert.Contains(t, f.cache.deleted, providersvc.CacheKey(f.providerID))
}

func TestLifecycleMetrics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, f.customer, f.createRequest(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), 60))
	require.NoError(t, err)
	_, err = f.svc.Respond(ctx, f.providerUser, b.ID, true)
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, f.customer, f.createRequest(time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC), 60))
	require.Error(t, err)

	_, err = f.svc.StartService(ctx, f.providerUser, b.ID)
	require.NoError(t, err)
	_, err = f.svc.CompleteService(ctx, f.providerUser, b.ID, decimal.NewFromInt(200))
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.BookingsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SchedulingConflicts))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.BookingTransitions.WithLabelValues("CONFIRMED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.BookingTransitions.WithLabelValues("IN_PROGRESS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.BookingTransitions.WithLabelValues("COMPLETED")))
}
