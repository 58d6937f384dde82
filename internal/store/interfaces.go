package store

import (
	"context"
	"time"

	"membership-service/internal/models"
)

// Repository interfaces consumed by the service layer. The SQL types in
// this package are the only production implementations; tests substitute
// fakes.

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetBySessionToken(ctx context.Context, token string) (*models.User, error)
	CountAdmins(ctx context.Context) (int, error)
	// PromoteToAdmin promotes the user only while no admin row exists;
	// returns ErrNotFound when the guarded update matched nothing.
	PromoteToAdmin(ctx context.Context, id string) error
	SetStatus(ctx context.Context, id, status string) error
	SaveGoogleTokens(ctx context.Context, id, accessToken, refreshToken string, expiry time.Time) error
	// GetCalendarAccount returns the admin account holding a Google
	// refresh token, or ErrNotFound when the calendar was never linked.
	GetCalendarAccount(ctx context.Context) (*models.User, error)
}

type MembershipRepository interface {
	GetByUserID(ctx context.Context, userID string) (*models.Membership, error)
	// ActivateForUser upserts an active membership row for the user.
	ActivateForUser(ctx context.Context, userID, tier string) error
}

type BookingRepository interface {
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	SetCalendarEventID(ctx context.Context, id, eventID string) error
	ClearCalendarEventID(ctx context.Context, id string) error
	Cancel(ctx context.Context, id string) error
}
