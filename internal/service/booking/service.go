package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/jwalitptl/quickserve-api/internal/email"
	"github.com/jwalitptl/quickserve-api/internal/model"
	"github.com/jwalitptl/quickserve-api/internal/repository"
	"github.com/jwalitptl/quickserve-api/internal/service/provider"
	"github.com/jwalitptl/quickserve-api/pkg/cache"
	apperrors "github.com/jwalitptl/quickserve-api/pkg/errors"
	"github.com/jwalitptl/quickserve-api/pkg/metrics"
)

// Emitter writes domain events for asynchronous delivery.
type Emitter interface {
	Emit(ctx context.Context, eventType string, payload interface{}) error
}

// Service owns the booking lifecycle: creation with conflict detection,
// status transitions, and the read queries the API exposes. All role checks
// happen here, not in middleware; every operation takes the acting user.
type Service struct {
	bookings  repository.BookingRepository
	providers repository.ProviderRepository
	users     repository.UserRepository
	events    Emitter
	emails    email.Service
	cache     cache.Store
	metrics   *metrics.Metrics
	clock     Clock
	locks     *providerLocks
}

func NewService(
	bookings repository.BookingRepository,
	providers repository.ProviderRepository,
	users repository.UserRepository,
	events Emitter,
	emails email.Service,
	store cache.Store,
	m *metrics.Metrics,
	clock Clock,
) *Service {
	if clock == nil {
		clock = SystemClock()
	}
	return &Service{
		bookings:  bookings,
		providers: providers,
		users:     users,
		events:    events,
		emails:    emails,
		cache:     store,
		metrics:   m,
		clock:     clock,
		locks:     newProviderLocks(),
	}
}

// Create validates the request, checks the provider's calendar for an
// overlapping active booking and persists a new PENDING record. The
// conflict check and the insert run under a per-provider lock.
func (s *Service) Create(ctx context.Context, actor model.Actor, req *model.CreateBookingRequest) (*model.Booking, error) {
	if actor.Role != model.RoleCustomer {
		return nil, apperrors.Unauthorized("only customers can create bookings")
	}

	if req.DurationMinutes == 0 {
		req.DurationMinutes = model.DefaultDurationMinutes
	}
	if req.DurationMinutes < 0 {
		return nil, apperrors.Validation("duration must be positive")
	}
	if req.Address == "" {
		return nil, apperrors.Validation("address is required")
	}
	if req.QuotedAmount.IsNegative() {
		return nil, apperrors.Validation("quoted amount cannot be negative")
	}
	if !req.ScheduledAt.After(s.clock.Now()) {
		return nil, apperrors.Validation("scheduled time must be in the future")
	}

	provider, err := s.providers.Get(ctx, req.ProviderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("provider")
		}
		return nil, apperrors.Internal(err)
	}
	if provider.UserID == actor.ID {
		return nil, apperrors.Unauthorized("providers cannot book themselves")
	}
	if !provider.Available {
		return nil, apperrors.Validation("provider is not accepting bookings")
	}

	booking := &model.Booking{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: s.clock.Now(),
			UpdatedAt: s.clock.Now(),
		},
		CustomerID:      actor.ID,
		ProviderID:      req.ProviderID,
		ScheduledAt:     req.ScheduledAt,
		DurationMinutes: req.DurationMinutes,
		Status:          model.BookingStatusPending,
		Address:         req.Address,
		Notes:           req.Notes,
		QuotedAmount:    req.QuotedAmount,
	}

	// Serialize check-then-insert per provider so two concurrent requests
	// cannot both pass the conflict check.
	mu := s.locks.lock(req.ProviderID)
	defer mu.Unlock()

	hasConflict, err := s.bookings.HasOverlapping(ctx, req.ProviderID, booking.ScheduledAt, booking.EndTime())
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if hasConflict {
		s.countConflict()
		return nil, apperrors.SchedulingConflict("provider already has a booking in this time window")
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		if errors.Is(err, repository.ErrOverlap) {
			s.countConflict()
			return nil, apperrors.SchedulingConflict("provider already has a booking in this time window")
		}
		return nil, err
	}

	s.countCreated()
	s.emit(ctx, model.EventBookingCreated, booking)
	s.notifyProvider(ctx, provider, booking)

	return booking, nil
}

// Respond applies the provider's accept or reject decision to a PENDING
// booking and stamps the response time.
func (s *Service) Respond(ctx context.Context, actor model.Actor, id uuid.UUID, accept bool) (*model.Booking, error) {
	eventName := "reject"
	if accept {
		eventName = "accept"
	}

	booking, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireBookingProvider(ctx, actor, booking, eventName); err != nil {
		return nil, err
	}
	if booking.Status != model.BookingStatusPending {
		return nil, apperrors.InvalidTransition(string(booking.Status), eventName)
	}

	now := s.clock.Now()
	booking.RespondedAt = &now
	eventType := model.EventBookingRejected
	booking.Status = model.BookingStatusRejected
	if accept {
		booking.Status = model.BookingStatusConfirmed
		eventType = model.EventBookingConfirmed
	}

	if err := s.update(ctx, booking); err != nil {
		return nil, err
	}

	s.countTransition(booking.Status)
	s.emit(ctx, eventType, booking)
	s.notifyCustomer(ctx, booking, func(to string) error {
		return s.emails.SendBookingResponded(ctx, to, booking)
	})

	return booking, nil
}

// StartService moves a CONFIRMED booking to IN_PROGRESS.
func (s *Service) StartService(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Booking, error) {
	booking, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireBookingProvider(ctx, actor, booking, "start"); err != nil {
		return nil, err
	}
	if booking.Status != model.BookingStatusConfirmed {
		return nil, apperrors.InvalidTransition(string(booking.Status), "start")
	}

	booking.Status = model.BookingStatusInProgress
	if err := s.update(ctx, booking); err != nil {
		return nil, err
	}

	s.countTransition(booking.Status)
	s.emit(ctx, model.EventBookingStarted, booking)
	return booking, nil
}

// CompleteService finishes an IN_PROGRESS booking, recording the completion
// time and the final amount charged.
func (s *Service) CompleteService(ctx context.Context, actor model.Actor, id uuid.UUID, finalAmount decimal.Decimal) (*model.Booking, error) {
	booking, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireBookingProvider(ctx, actor, booking, "complete"); err != nil {
		return nil, err
	}
	if booking.Status != model.BookingStatusInProgress {
		return nil, apperrors.InvalidTransition(string(booking.Status), "complete")
	}
	if finalAmount.IsNegative() {
		return nil, apperrors.Validation("final amount cannot be negative")
	}

	now := s.clock.Now()
	booking.Status = model.BookingStatusCompleted
	booking.CompletedAt = &now
	booking.FinalAmount = decimal.NewNullDecimal(finalAmount)

	if err := s.update(ctx, booking); err != nil {
		return nil, err
	}

	s.countTransition(booking.Status)
	s.emit(ctx, model.EventBookingCompleted, booking)
	return booking, nil
}

// Cancel moves a booking to CANCELLED with a mandatory reason. Either side
// of the booking may cancel while it is PENDING, CONFIRMED or IN_PROGRESS.
func (s *Service) Cancel(ctx context.Context, actor model.Actor, id uuid.UUID, reason string) (*model.Booking, error) {
	if reason == "" {
		return nil, apperrors.Validation("cancellation reason is required")
	}

	booking, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireParticipant(ctx, actor, booking); err != nil {
		return nil, err
	}
	if booking.Status.IsTerminal() {
		return nil, apperrors.InvalidTransition(string(booking.Status), "cancel")
	}

	booking.Status = model.BookingStatusCancelled
	booking.CancellationReason = reason

	if err := s.update(ctx, booking); err != nil {
		return nil, err
	}

	s.countTransition(booking.Status)
	s.emit(ctx, model.EventBookingCancelled, booking)
	s.notifyCustomer(ctx, booking, func(to string) error {
		return s.emails.SendBookingCancelled(ctx, to, booking)
	})

	return booking, nil
}

// AttachReview records the customer's rating and review on a COMPLETED
// booking and folds the rating into the provider's aggregate. A booking can
// be reviewed exactly once.
func (s *Service) AttachReview(ctx context.Context, actor model.Actor, id uuid.UUID, rating int, review string) (*model.Booking, error) {
	if rating < 1 || rating > 5 {
		return nil, apperrors.Validation("rating must be between 1 and 5")
	}

	booking, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.CustomerID != actor.ID {
		return nil, apperrors.Unauthorized("only the booking customer can leave a review")
	}
	if booking.Status != model.BookingStatusCompleted {
		return nil, apperrors.InvalidOperation("only completed bookings can be reviewed")
	}
	if booking.Rating != nil {
		return nil, apperrors.InvalidOperation("booking already has a review")
	}

	booking.Rating = &rating
	booking.Review = review

	if err := s.update(ctx, booking); err != nil {
		return nil, err
	}

	if err := s.updateProviderRating(ctx, booking.ProviderID, rating); err != nil {
		log.Warn().Err(err).
			Str("booking_id", booking.ID.String()).
			Msg("failed to update provider rating aggregate")
	}

	s.emit(ctx, model.EventBookingReviewed, booking)
	return booking, nil
}

// Get returns a booking visible to the actor: its customer, its provider,
// or an admin.
func (s *Service) Get(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Booking, error) {
	booking, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == model.RoleAdmin || booking.CustomerID == actor.ID {
		return booking, nil
	}
	provider, err := s.providers.Get(ctx, booking.ProviderID)
	if err == nil && provider.UserID == actor.ID {
		return booking, nil
	}
	return nil, apperrors.Unauthorized("not a participant of this booking")
}

func (s *Service) ListByCustomer(ctx context.Context, actor model.Actor, customerID uuid.UUID, p model.Pagination) ([]*model.Booking, int, error) {
	if actor.Role != model.RoleAdmin && actor.ID != customerID {
		return nil, 0, apperrors.Unauthorized("cannot list another customer's bookings")
	}
	p.Normalize()
	return s.bookings.ListByCustomer(ctx, customerID, p)
}

func (s *Service) ListByProvider(ctx context.Context, actor model.Actor, providerID uuid.UUID, p model.Pagination) ([]*model.Booking, int, error) {
	if err := s.requireProviderAccess(ctx, actor, providerID); err != nil {
		return nil, 0, err
	}
	p.Normalize()
	return s.bookings.ListByProvider(ctx, providerID, p)
}

func (s *Service) ListPendingForProvider(ctx context.Context, actor model.Actor, providerID uuid.UUID) ([]*model.Booking, error) {
	if err := s.requireProviderAccess(ctx, actor, providerID); err != nil {
		return nil, err
	}
	return s.bookings.ListPendingForProvider(ctx, providerID)
}

func (s *Service) ListUpcomingForProvider(ctx context.Context, actor model.Actor, providerID uuid.UUID) ([]*model.Booking, error) {
	if err := s.requireProviderAccess(ctx, actor, providerID); err != nil {
		return nil, err
	}
	return s.bookings.ListUpcomingForProvider(ctx, providerID, s.clock.Now())
}

func (s *Service) get(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	booking, err := s.bookings.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("booking")
		}
		return nil, apperrors.Internal(err)
	}
	return booking, nil
}

func (s *Service) update(ctx context.Context, booking *model.Booking) error {
	booking.UpdatedAt = s.clock.Now()
	if err := s.bookings.Update(ctx, booking); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("booking")
		}
		// The exclusion constraint can reject a transition into a blocking
		// status, such as accepting a second request for a taken window.
		if errors.Is(err, repository.ErrOverlap) {
			s.countConflict()
			return apperrors.SchedulingConflict("provider already has a booking in this time window")
		}
		return err
	}
	return nil
}

// requireBookingProvider ensures the actor is the provider the booking
// belongs to.
func (s *Service) requireBookingProvider(ctx context.Context, actor model.Actor, booking *model.Booking, eventName string) error {
	if actor.Role != model.RoleProvider {
		return apperrors.Unauthorized(fmt.Sprintf("only the provider can %s a booking", eventName))
	}
	provider, err := s.providers.Get(ctx, booking.ProviderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("provider")
		}
		return apperrors.Internal(err)
	}
	if provider.UserID != actor.ID {
		return apperrors.Unauthorized("booking belongs to another provider")
	}
	return nil
}

// requireParticipant ensures the actor is the customer or the provider of
// the booking.
func (s *Service) requireParticipant(ctx context.Context, actor model.Actor, booking *model.Booking) error {
	if booking.CustomerID == actor.ID {
		return nil
	}
	provider, err := s.providers.Get(ctx, booking.ProviderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("provider")
		}
		return apperrors.Internal(err)
	}
	if provider.UserID != actor.ID {
		return apperrors.Unauthorized("not a participant of this booking")
	}
	return nil
}

func (s *Service) requireProviderAccess(ctx context.Context, actor model.Actor, providerID uuid.UUID) error {
	if actor.Role == model.RoleAdmin {
		return nil
	}
	provider, err := s.providers.Get(ctx, providerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("provider")
		}
		return apperrors.Internal(err)
	}
	if provider.UserID != actor.ID {
		return apperrors.Unauthorized("cannot list another provider's bookings")
	}
	return nil
}

func (s *Service) updateProviderRating(ctx context.Context, providerID uuid.UUID, rating int) error {
	p, err := s.providers.Get(ctx, providerID)
	if err != nil {
		return err
	}

	total := decimal.NewFromInt(int64(p.TotalRatings))
	sum := p.Rating.Mul(total).Add(decimal.NewFromInt(int64(rating)))
	p.TotalRatings++
	p.Rating = sum.DivRound(decimal.NewFromInt(int64(p.TotalRatings)), 2)
	p.UpdatedAt = s.clock.Now()

	if err := s.providers.Update(ctx, p); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Delete(provider.CacheKey(providerID))
	}
	return nil
}

func (s *Service) countCreated() {
	if s.metrics != nil {
		s.metrics.BookingsCreated.Inc()
	}
}

func (s *Service) countConflict() {
	if s.metrics != nil {
		s.metrics.SchedulingConflicts.Inc()
	}
}

func (s *Service) countTransition(status model.BookingStatus) {
	if s.metrics != nil {
		s.metrics.BookingTransitions.WithLabelValues(string(status)).Inc()
	}
}

func (s *Service) emit(ctx context.Context, eventType string, booking *model.Booking) {
	if s.events == nil {
		return
	}
	if err := s.events.Emit(ctx, eventType, booking); err != nil {
		log.Warn().Err(err).
			Str("event_type", eventType).
			Str("booking_id", booking.ID.String()).
			Msg("failed to emit booking event")
	}
}

func (s *Service) notifyProvider(ctx context.Context, provider *model.Provider, booking *model.Booking) {
	if s.emails == nil {
		return
	}
	user, err := s.users.Get(ctx, provider.UserID)
	if err != nil {
		log.Warn().Err(err).Str("provider_id", provider.ID.String()).Msg("failed to load provider user for notification")
		return
	}
	if err := s.emails.SendBookingCreated(ctx, user.Email, booking); err != nil {
		log.Warn().Err(err).Str("booking_id", booking.ID.String()).Msg("failed to send booking notification")
	}
}

func (s *Service) notifyCustomer(ctx context.Context, booking *model.Booking, send func(to string) error) {
	if s.emails == nil {
		return
	}
	user, err := s.users.Get(ctx, booking.CustomerID)
	if err != nil {
		log.Warn().Err(err).Str("customer_id", booking.CustomerID.String()).Msg("failed to load customer for notification")
		return
	}
	if err := send(user.Email); err != nil {
		log.Warn().Err(err).Str("booking_id", booking.ID.String()).Msg("failed to send booking notification")
	}
}
