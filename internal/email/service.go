package email

import (
	"context"

	"github.com/jwalitptl/quickserve-api/internal/model"
)

// Service sends transactional mail. Failures are reported to the caller but
// never abort the operation that triggered them.
type Service interface {
	SendBookingCreated(ctx context.Context, to string, booking *model.Booking) error
	SendBookingResponded(ctx context.Context, to string, booking *model.Booking) error
	SendBookingCancelled(ctx context.Context, to string, booking *model.Booking) error
	SendWelcome(ctx context.Context, to, name string) error
}
