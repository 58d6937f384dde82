package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"membership-service/internal/calendar"
	"membership-service/internal/config"
	"membership-service/internal/events"
	"membership-service/internal/models"
	"membership-service/internal/store"
)

// Sync actions accepted by POST /api/calendar/sync.
const (
	SyncActionCreate = "create"
	SyncActionDelete = "delete"
)

// SyncResult carries the remote event ID when one was created.
type SyncResult struct {
	EventID string
}

// CalendarService owns the Google OAuth linkage (admin only) and the
// booking-event synchronization. Remote and local writes are not
// transactional: a remote success followed by a local failure can leave
// an orphaned event or a stale reference.
type CalendarService struct {
	users    store.UserRepository
	bookings store.BookingRepository
	provider CalendarProvider
	cfg      *config.Config
	audit    AuditPublisher
	logger   *zap.Logger
}

func NewCalendarService(
	users store.UserRepository,
	bookings store.BookingRepository,
	provider CalendarProvider,
	cfg *config.Config,
	audit AuditPublisher,
	logger *zap.Logger,
) *CalendarService {
	return &CalendarService{
		users:    users,
		bookings: bookings,
		provider: provider,
		cfg:      cfg,
		audit:    audit,
		logger:   logger,
	}
}

// OAuthStart returns the consent-screen URL for the calling admin. The
// caller's user ID rides along as opaque state.
func (s *CalendarService) OAuthStart(ctx context.Context, token string) (string, error) {
	if !s.cfg.CalendarConfigured() {
		return "", fmt.Errorf("%w: google oauth client", ErrNotConfigured)
	}
	if token == "" {
		return "", ErrUnauthorized
	}

	user, err := s.users.GetBySessionToken(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrUnauthorized
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve session: %w", err)
	}
	if !user.IsAdmin() {
		return "", ErrForbidden
	}

	return s.provider.AuthURL(user.ID), nil
}

// OAuthCallback exchanges the authorization code and persists the token
// set against the user named by state. State is generated server-side in
// OAuthStart and trusted to be unmodified between steps; it still has to
// parse as a UUID and resolve to an existing account.
func (s *CalendarService) OAuthCallback(ctx context.Context, code, state string) error {
	if !s.cfg.CalendarConfigured() {
		return fmt.Errorf("%w: google oauth client", ErrNotConfigured)
	}
	if code == "" || state == "" {
		return fmt.Errorf("%w: code and state are required", ErrInvalidInput)
	}
	if _, err := uuid.Parse(state); err != nil {
		return fmt.Errorf("%w: malformed state", ErrInvalidInput)
	}

	user, err := s.users.GetByID(ctx, state)
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to look up account: %w", err)
	}

	tokens, err := s.provider.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to complete authorization: %w", err)
	}
	if tokens.RefreshToken == "" {
		return ErrNoRefreshToken
	}

	if err := s.users.SaveGoogleTokens(ctx, user.ID, tokens.AccessToken, tokens.RefreshToken, tokens.Expiry); err != nil {
		return fmt.Errorf("failed to store calendar tokens: %w", err)
	}

	s.logger.Info("Calendar linked", zap.String("user_id", user.ID))
	s.audit.Publish(ctx, events.CalendarConnected, map[string]string{
		"user_id": user.ID,
	})
	return nil
}

// SyncBooking mirrors a booking onto the linked calendar: create inserts
// a remote event and stores its ID, delete removes the remote event if
// one is recorded and clears the stored ID. Deleting a booking with no
// stored event ID is a successful no-op.
func (s *CalendarService) SyncBooking(ctx context.Context, bookingID, action string) (*SyncResult, error) {
	if bookingID == "" {
		return nil, fmt.Errorf("%w: bookingId is required", ErrInvalidInput)
	}

	switch action {
	case SyncActionCreate:
		return s.syncCreate(ctx, bookingID)
	case SyncActionDelete:
		return s.syncDelete(ctx, bookingID)
	default:
		return nil, fmt.Errorf("%w: unknown action %q", ErrInvalidInput, action)
	}
}

func (s *CalendarService) syncCreate(ctx context.Context, bookingID string) (*SyncResult, error) {
	var (
		booking *models.Booking
		account *models.User
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b, err := s.bookings.GetByID(gctx, bookingID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrBookingNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load booking: %w", err)
		}
		booking = b
		return nil
	})
	g.Go(func() error {
		u, err := s.users.GetCalendarAccount(gctx)
		if errors.Is(err, store.ErrNotFound) {
			return ErrCalendarNotConnected
		}
		if err != nil {
			return fmt.Errorf("failed to load calendar account: %w", err)
		}
		account = u
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	eventID, err := s.provider.CreateEvent(ctx, tokensFor(account), booking)
	if err != nil {
		return nil, fmt.Errorf("failed to create remote event: %w", err)
	}

	// No compensation: the remote event is orphaned if this write fails
	if err := s.bookings.SetCalendarEventID(ctx, bookingID, eventID); err != nil {
		return nil, fmt.Errorf("failed to store event id: %w", err)
	}

	return &SyncResult{EventID: eventID}, nil
}

func (s *CalendarService) syncDelete(ctx context.Context, bookingID string) (*SyncResult, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}

	if booking.CalendarEventID == nil || *booking.CalendarEventID == "" {
		s.logger.Debug("No calendar event recorded for booking, nothing to delete",
			zap.String("booking_id", bookingID))
		return &SyncResult{}, nil
	}

	account, err := s.users.GetCalendarAccount(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrCalendarNotConnected
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load calendar account: %w", err)
	}

	if err := s.provider.DeleteEvent(ctx, tokensFor(account), *booking.CalendarEventID); err != nil {
		return nil, fmt.Errorf("failed to delete remote event: %w", err)
	}

	if err := s.bookings.ClearCalendarEventID(ctx, bookingID); err != nil {
		return nil, fmt.Errorf("failed to clear event id: %w", err)
	}

	return &SyncResult{}, nil
}

// CancelBooking cancels the local row, then tears down the linked
// calendar event. A remote failure after the local cancel surfaces as an
// error with no rollback.
func (s *CalendarService) CancelBooking(ctx context.Context, bookingID string) error {
	if bookingID == "" {
		return fmt.Errorf("%w: bookingId is required", ErrInvalidInput)
	}

	if err := s.bookings.Cancel(ctx, bookingID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrBookingNotFound
		}
		return fmt.Errorf("failed to cancel booking: %w", err)
	}

	if _, err := s.SyncBooking(ctx, bookingID, SyncActionDelete); err != nil {
		return err
	}
	return nil
}

func tokensFor(u *models.User) *calendar.Tokens {
	t := &calendar.Tokens{}
	if u.GoogleAccessToken != nil {
		t.AccessToken = *u.GoogleAccessToken
	}
	if u.GoogleRefreshToken != nil {
		t.RefreshToken = *u.GoogleRefreshToken
	}
	if u.GoogleTokenExpiry != nil {
		t.Expiry = *u.GoogleTokenExpiry
	}
	return t
}
