// Package calendar wraps the Google OAuth code flow and Calendar event
// CRUD used by booking synchronization.
package calendar

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"membership-service/internal/config"
	"membership-service/internal/models"
)

// Tokens carries the stored OAuth credential set for one linked account.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

type GoogleClient struct {
	oauth      *oauth2.Config
	calendarID string
	logger     *zap.Logger
}

func NewGoogleClient(cfg *config.Config, logger *zap.Logger) *GoogleClient {
	return &GoogleClient{
		oauth: &oauth2.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.Google.RedirectURL,
			Scopes:       []string{gcal.CalendarEventsScope},
			Endpoint:     google.Endpoint,
		},
		calendarID: cfg.Google.CalendarID,
		logger:     logger,
	}
}

// AuthURL builds the consent-screen URL with the caller's identifier as
// opaque state. Offline access plus forced approval so Google always
// issues a refresh token.
func (c *GoogleClient) AuthURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for tokens.
func (c *GoogleClient) Exchange(ctx context.Context, code string) (*Tokens, error) {
	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	return &Tokens{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}, nil
}

func (c *GoogleClient) service(ctx context.Context, t *Tokens) (*gcal.Service, error) {
	src := c.oauth.TokenSource(ctx, &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		Expiry:       t.Expiry,
	})
	svc, err := gcal.NewService(ctx, option.WithTokenSource(src))
	if err != nil {
		return nil, fmt.Errorf("failed to build calendar service: %w", err)
	}
	return svc, nil
}

// CreateEvent inserts a remote event for the booking and returns its ID.
func (c *GoogleClient) CreateEvent(ctx context.Context, t *Tokens, booking *models.Booking) (string, error) {
	svc, err := c.service(ctx, t)
	if err != nil {
		return "", err
	}

	event := &gcal.Event{
		Summary: booking.Title,
		Start:   &gcal.EventDateTime{DateTime: booking.StartsAt.Format(time.RFC3339)},
		End:     &gcal.EventDateTime{DateTime: booking.EndsAt.Format(time.RFC3339)},
	}

	created, err := svc.Events.Insert(c.calendarID, event).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create calendar event: %w", err)
	}

	c.logger.Info("Calendar event created",
		zap.String("booking_id", booking.ID),
		zap.String("event_id", created.Id))
	return created.Id, nil
}

// DeleteEvent removes a remote event.
func (c *GoogleClient) DeleteEvent(ctx context.Context, t *Tokens, eventID string) error {
	svc, err := c.service(ctx, t)
	if err != nil {
		return err
	}

	if err := svc.Events.Delete(c.calendarID, eventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete calendar event: %w", err)
	}

	c.logger.Info("Calendar event deleted", zap.String("event_id", eventID))
	return nil
}
