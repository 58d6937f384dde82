package models

import "time"

// Row structs mirror the club schema by field name only; the schema is
// owned by the database, not this service.

type User struct {
	ID                 string     `db:"id"`
	Email              string     `db:"email"`
	Role               string     `db:"role"`
	Status             string     `db:"status"`
	StripeCustomerID   *string    `db:"stripe_customer_id"`
	GoogleAccessToken  *string    `db:"google_access_token"`
	GoogleRefreshToken *string    `db:"google_refresh_token"`
	GoogleTokenExpiry  *time.Time `db:"google_token_expiry"`
	CreatedAt          time.Time  `db:"created_at"`
	UpdatedAt          *time.Time `db:"updated_at"`
}

const (
	RoleMember = "member"
	RoleAdmin  = "admin"

	StatusPending   = "pending"
	StatusActive    = "active"
	StatusCancelled = "cancelled"
)

// IsAdmin reports whether the user holds the administrator role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CalendarLinked reports whether a Google refresh token is stored.
func (u *User) CalendarLinked() bool {
	return u.GoogleRefreshToken != nil && *u.GoogleRefreshToken != ""
}

type Membership struct {
	ID                   string     `db:"id"`
	UserID               string     `db:"user_id"`
	Tier                 string     `db:"tier"`
	Status               string     `db:"status"`
	StripeSubscriptionID *string    `db:"stripe_subscription_id"`
	CreatedAt            time.Time  `db:"created_at"`
	UpdatedAt            *time.Time `db:"updated_at"`
}

type Booking struct {
	ID              string    `db:"id"`
	UserID          string    `db:"user_id"`
	Title           string    `db:"title"`
	StartsAt        time.Time `db:"starts_at"`
	EndsAt          time.Time `db:"ends_at"`
	Status          string    `db:"status"`
	CalendarEventID *string   `db:"calendar_event_id"`
	CreatedAt       time.Time `db:"created_at"`
}

type Session struct {
	Token     string    `db:"token"`
	UserID    string    `db:"user_id"`
	ExpiresAt time.Time `db:"expires_at"`
}
