package service

import (
	"context"

	"membership-service/internal/calendar"
	"membership-service/internal/config"
	"membership-service/internal/models"
)

// PaymentProvider is implemented by payments.StripeClient.
type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, userID, email string, tier config.Tier) (string, error)
	CreatePortalSession(ctx context.Context, customerID string) (string, error)
}

// CalendarProvider is implemented by calendar.GoogleClient.
type CalendarProvider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*calendar.Tokens, error)
	CreateEvent(ctx context.Context, t *calendar.Tokens, booking *models.Booking) (string, error)
	DeleteEvent(ctx context.Context, t *calendar.Tokens, eventID string) error
}

// AuditPublisher is implemented by events.Publisher.
type AuditPublisher interface {
	Publish(ctx context.Context, eventType string, fields map[string]string)
}
