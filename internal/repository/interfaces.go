package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/quickserve-api/internal/model"
)

// ErrNotFound is returned when a requested record does not exist. Services
// translate it into their own typed errors.
var ErrNotFound = errors.New("record not found")

// ErrOverlap is returned when the storage-level exclusion constraint on a
// provider's active bookings rejects an insert. It is the backstop for the
// advisory conflict check.
var ErrOverlap = errors.New("overlapping booking")

// All repository interfaces in one file
type (
	// BookingRepository is the booking store. Bookings are never deleted;
	// they are retained for audit and history.
	BookingRepository interface {
		Create(ctx context.Context, booking *model.Booking) error
		Get(ctx context.Context, id uuid.UUID) (*model.Booking, error)
		Update(ctx context.Context, booking *model.Booking) error
		ListByCustomer(ctx context.Context, customerID uuid.UUID, p model.Pagination) ([]*model.Booking, int, error)
		ListByProvider(ctx context.Context, providerID uuid.UUID, p model.Pagination) ([]*model.Booking, int, error)
		ListPendingForProvider(ctx context.Context, providerID uuid.UUID) ([]*model.Booking, error)
		ListUpcomingForProvider(ctx context.Context, providerID uuid.UUID, after time.Time) ([]*model.Booking, error)
		// HasOverlapping reports whether the provider has a CONFIRMED or
		// IN_PROGRESS booking whose [start,end) window overlaps the given
		// half-open window.
		HasOverlapping(ctx context.Context, providerID uuid.UUID, start, end time.Time) (bool, error)
	}

	ProviderRepository interface {
		Create(ctx context.Context, provider *model.Provider) error
		Get(ctx context.Context, id uuid.UUID) (*model.Provider, error)
		GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Provider, error)
		Update(ctx context.Context, provider *model.Provider) error
		List(ctx context.Context, filters *model.ProviderFilters) ([]*model.Provider, int, error)
	}

	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		Update(ctx context.Context, user *model.User) error
	}

	CategoryRepository interface {
		Create(ctx context.Context, category *model.Category) error
		Get(ctx context.Context, id uuid.UUID) (*model.Category, error)
		GetBySlug(ctx context.Context, slug string) (*model.Category, error)
		Update(ctx context.Context, category *model.Category) error
		List(ctx context.Context, activeOnly bool) ([]*model.Category, error)
	}

	PaymentRepository interface {
		Create(ctx context.Context, payment *model.Payment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Payment, error)
		GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*model.Payment, error)
		Update(ctx context.Context, payment *model.Payment) error
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		BeginTx(ctx context.Context) (*sql.Tx, error)
		UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uuid.UUID, status string, errorMessage *string, retryAt *time.Time) error
		MoveToDeadLetter(ctx context.Context, tx *sql.Tx, event *model.OutboxEvent) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
