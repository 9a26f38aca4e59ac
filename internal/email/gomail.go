package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/quickserve-api/internal/model"
)

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type smtpService struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPService creates a gomail-backed email service.
func NewSMTPService(cfg SMTPConfig) Service {
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *smtpService) SendBookingCreated(ctx context.Context, to string, booking *model.Booking) error {
	subject := "New booking request"
	body := fmt.Sprintf(
		"You have a new booking request for %s at %s.\n\nAddress: %s\nQuoted amount: %s",
		booking.ScheduledAt.Format("Jan 2, 2006"),
		booking.ScheduledAt.Format("15:04"),
		booking.Address,
		booking.QuotedAmount.StringFixed(2),
	)
	return s.send(ctx, to, subject, body)
}

func (s *smtpService) SendBookingResponded(ctx context.Context, to string, booking *model.Booking) error {
	var subject, body string
	if booking.Status == model.BookingStatusConfirmed {
		subject = "Booking confirmed"
		body = fmt.Sprintf(
			"Your booking for %s has been confirmed.",
			booking.ScheduledAt.Format("Jan 2, 2006 15:04"),
		)
	} else {
		subject = "Booking declined"
		body = fmt.Sprintf(
			"Your booking for %s was declined by the provider.",
			booking.ScheduledAt.Format("Jan 2, 2006 15:04"),
		)
	}
	return s.send(ctx, to, subject, body)
}

func (s *smtpService) SendBookingCancelled(ctx context.Context, to string, booking *model.Booking) error {
	subject := "Booking cancelled"
	body := fmt.Sprintf(
		"Your booking for %s was cancelled.\nReason: %s",
		booking.ScheduledAt.Format("Jan 2, 2006 15:04"),
		booking.CancellationReason,
	)
	return s.send(ctx, to, subject, body)
}

func (s *smtpService) SendWelcome(ctx context.Context, to, name string) error {
	body := fmt.Sprintf("Hi %s,\n\nWelcome to QuickServe. Your account is ready.", name)
	return s.send(ctx, to, "Welcome to QuickServe", body)
}

func (s *smtpService) send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
