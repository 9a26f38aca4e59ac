package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/jwalitptl/quickserve-api/internal/model"
	"github.com/jwalitptl/quickserve-api/internal/repository"
)

const bookingColumns = `
	id, customer_id, provider_id, scheduled_at, duration_minutes, status,
	address, notes, quoted_amount, final_amount, responded_at, completed_at,
	rating, review, cancellation_reason, created_at, updated_at
`

// exclusionViolation is the Postgres error code raised by the
// no_overlapping_active_bookings constraint.
const exclusionViolation = "23P01"

func (r *bookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	query := `
		INSERT INTO bookings (
			id, customer_id, provider_id, scheduled_at, duration_minutes,
			status, address, notes, quoted_amount, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		booking.ID,
		booking.CustomerID,
		booking.ProviderID,
		booking.ScheduledAt,
		booking.DurationMinutes,
		booking.Status,
		booking.Address,
		booking.Notes,
		booking.QuotedAmount,
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == exclusionViolation {
			return repository.ErrOverlap
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *bookingRepository) Get(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	var booking model.Booking
	err := r.db.GetContext(ctx, &booking, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &booking, nil
}

func (r *bookingRepository) Update(ctx context.Context, booking *model.Booking) error {
	query := `
		UPDATE bookings
		SET status = $1, final_amount = $2, responded_at = $3, completed_at = $4,
			rating = $5, review = $6, cancellation_reason = $7, updated_at = $8
		WHERE id = $9
	`
	result, err := r.db.ExecContext(ctx, query,
		booking.Status,
		booking.FinalAmount,
		booking.RespondedAt,
		booking.CompletedAt,
		booking.Rating,
		booking.Review,
		booking.CancellationReason,
		booking.UpdatedAt,
		booking.ID,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == exclusionViolation {
			return repository.ErrOverlap
		}
		return fmt.Errorf("failed to update booking: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *bookingRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID, p model.Pagination) ([]*model.Booking, int, error) {
	return r.listPaginated(ctx, "customer_id", customerID, p)
}

func (r *bookingRepository) ListByProvider(ctx context.Context, providerID uuid.UUID, p model.Pagination) ([]*model.Booking, int, error) {
	return r.listPaginated(ctx, "provider_id", providerID, p)
}

func (r *bookingRepository) listPaginated(ctx context.Context, column string, id uuid.UUID, p model.Pagination) ([]*model.Booking, int, error) {
	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM bookings WHERE %s = $1`, column)
	if err := r.db.GetContext(ctx, &total, countQuery, id); err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE %s = $1
		ORDER BY scheduled_at ASC
		LIMIT $2 OFFSET $3
	`, column)

	var bookings []*model.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, id, p.PageSize, p.Offset()); err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, total, nil
}

func (r *bookingRepository) ListPendingForProvider(ctx context.Context, providerID uuid.UUID) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE provider_id = $1 AND status = $2
		ORDER BY scheduled_at ASC
	`
	var bookings []*model.Booking
	err := r.db.SelectContext(ctx, &bookings, query, providerID, model.BookingStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending bookings: %w", err)
	}
	return bookings, nil
}

func (r *bookingRepository) ListUpcomingForProvider(ctx context.Context, providerID uuid.UUID, after time.Time) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE provider_id = $1
		AND status = $2
		AND scheduled_at > $3
		ORDER BY scheduled_at ASC
	`
	var bookings []*model.Booking
	err := r.db.SelectContext(ctx, &bookings, query, providerID, model.BookingStatusConfirmed, after)
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming bookings: %w", err)
	}
	return bookings, nil
}

func (r *bookingRepository) HasOverlapping(ctx context.Context, providerID uuid.UUID, start, end time.Time) (bool, error) {
	// Half-open windows: a booking ending exactly when another starts does
	// not overlap.
	query := `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE provider_id = $1
			AND status IN ($2, $3)
			AND scheduled_at < $5
			AND scheduled_at + (duration_minutes * interval '1 minute') > $4
		)
	`
	var hasOverlap bool
	err := r.db.GetContext(ctx, &hasOverlap, query,
		providerID,
		model.BookingStatusConfirmed,
		model.BookingStatusInProgress,
		start,
		end,
	)
	if err != nil {
		return false, fmt.Errorf("failed to check overlapping bookings: %w", err)
	}
	return hasOverlap, nil
}
