package service

import "errors"

// Sentinel errors consumed by handlers via errors.Is to pick status
// codes. Anything unlisted maps to a 500 with a generic message.
var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrInvalidPassphrase    = errors.New("invalid passphrase")
	ErrUnauthorized         = errors.New("missing or invalid credentials")
	ErrForbidden            = errors.New("permission denied")
	ErrUserNotFound         = errors.New("user not found")
	ErrBookingNotFound      = errors.New("booking not found")
	ErrNoBillingAccount     = errors.New("no billing account on file")
	ErrAdminExists          = errors.New("an administrator already exists")
	ErrNoRefreshToken       = errors.New("authorization response did not include a refresh token")
	ErrCalendarNotConnected = errors.New("calendar is not connected")
	ErrNotConfigured        = errors.New("missing configuration")
)
