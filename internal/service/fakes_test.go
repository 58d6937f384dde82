package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"membership-service/internal/calendar"
	"membership-service/internal/config"
	"membership-service/internal/models"
	"membership-service/internal/store"
)

// In-memory repository and provider fakes. The user fake honors the
// PromoteToAdmin compare-and-swap contract so race behavior is testable.

type fakeUserRepo struct {
	mu       sync.Mutex
	users    map[string]*models.User
	sessions map[string]string // token -> user id

	promoteErr error
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	f := &fakeUserRepo{
		users:    make(map[string]*models.User),
		sessions: make(map[string]string),
	}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeUserRepo) GetBySessionToken(_ context.Context, token string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.sessions[token]
	if !ok {
		return nil, store.ErrNotFound
	}
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) CountAdmins(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, u := range f.users {
		if u.Role == models.RoleAdmin {
			count++
		}
	}
	return count, nil
}

func (f *fakeUserRepo) PromoteToAdmin(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.promoteErr != nil {
		return f.promoteErr
	}
	// Guarded update: no-op when any admin row already exists
	for _, u := range f.users {
		if u.Role == models.RoleAdmin {
			return store.ErrNotFound
		}
	}
	u, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.Role = models.RoleAdmin
	u.Status = models.StatusActive
	return nil
}

func (f *fakeUserRepo) SetStatus(_ context.Context, id, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.Status = status
	return nil
}

func (f *fakeUserRepo) SaveGoogleTokens(_ context.Context, id, accessToken, refreshToken string, expiry time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.GoogleAccessToken = &accessToken
	u.GoogleRefreshToken = &refreshToken
	u.GoogleTokenExpiry = &expiry
	return nil
}

func (f *fakeUserRepo) GetCalendarAccount(_ context.Context) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Role == models.RoleAdmin && u.CalendarLinked() {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

type fakeMembershipRepo struct {
	mu          sync.Mutex
	memberships map[string]*models.Membership // by user id
}

func newFakeMembershipRepo() *fakeMembershipRepo {
	return &fakeMembershipRepo{memberships: make(map[string]*models.Membership)}
}

func (f *fakeMembershipRepo) GetByUserID(_ context.Context, userID string) (*models.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.memberships[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return m, nil
}

func (f *fakeMembershipRepo) ActivateForUser(_ context.Context, userID, tier string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.memberships[userID] = &models.Membership{
		UserID: userID,
		Tier:   tier,
		Status: models.StatusActive,
	}
	return nil
}

type fakeBookingRepo struct {
	mu       sync.Mutex
	bookings map[string]*models.Booking
}

func newFakeBookingRepo(bookings ...*models.Booking) *fakeBookingRepo {
	f := &fakeBookingRepo{bookings: make(map[string]*models.Booking)}
	for _, b := range bookings {
		f.bookings[b.ID] = b
	}
	return f
}

func (f *fakeBookingRepo) GetByID(_ context.Context, id string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return b, nil
}

func (f *fakeBookingRepo) SetCalendarEventID(_ context.Context, id, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return store.ErrNotFound
	}
	b.CalendarEventID = &eventID
	return nil
}

func (f *fakeBookingRepo) ClearCalendarEventID(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return store.ErrNotFound
	}
	b.CalendarEventID = nil
	return nil
}

func (f *fakeBookingRepo) Cancel(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return store.ErrNotFound
	}
	b.Status = models.StatusCancelled
	return nil
}

type fakePayments struct {
	checkoutCalls int
	portalCalls   int
	checkoutErr   error
}

func (f *fakePayments) CreateCheckoutSession(_ context.Context, userID, email string, tier config.Tier) (string, error) {
	f.checkoutCalls++
	if f.checkoutErr != nil {
		return "", f.checkoutErr
	}
	return "https://checkout.example.com/" + userID, nil
}

func (f *fakePayments) CreatePortalSession(_ context.Context, customerID string) (string, error) {
	f.portalCalls++
	return "https://portal.example.com/" + customerID, nil
}

type fakeCalendarProvider struct {
	exchangeTokens *calendar.Tokens
	exchangeErr    error

	createdEvents int
	deletedEvents []string
	createErr     error
	deleteErr     error
}

func (f *fakeCalendarProvider) AuthURL(state string) string {
	return "https://accounts.example.com/consent?state=" + state
}

func (f *fakeCalendarProvider) Exchange(_ context.Context, code string) (*calendar.Tokens, error) {
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	if f.exchangeTokens != nil {
		return f.exchangeTokens, nil
	}
	return &calendar.Tokens{
		AccessToken:  "access-" + code,
		RefreshToken: "refresh-" + code,
		Expiry:       time.Now().Add(time.Hour),
	}, nil
}

func (f *fakeCalendarProvider) CreateEvent(_ context.Context, _ *calendar.Tokens, booking *models.Booking) (string, error) {
	f.createdEvents++
	if f.createErr != nil {
		return "", f.createErr
	}
	return fmt.Sprintf("evt_%s_%d", booking.ID, f.createdEvents), nil
}

func (f *fakeCalendarProvider) DeleteEvent(_ context.Context, _ *calendar.Tokens, eventID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedEvents = append(f.deletedEvents, eventID)
	return nil
}

type recordingAudit struct {
	mu     sync.Mutex
	events []string
}

func (a *recordingAudit) Publish(_ context.Context, eventType string, _ map[string]string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, eventType)
}

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Stripe: config.StripeConfig{
			Tiers: map[string]config.Tier{
				"standard": {Name: "Standard membership", Currency: "gbp", Amount: 2500, Interval: "month"},
				"premium":  {Name: "Premium membership", Currency: "gbp", Amount: 4500, Interval: "month", PriceID: "price_premium"},
			},
		},
		Google: config.GoogleConfig{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			RedirectURL:  "https://club.example.com/api/calendar/oauth/callback",
			AdminPageURL: "https://club.example.com/admin/calendar",
			CalendarID:   "primary",
		},
		Admin: config.AdminConfig{SetupSecret: "letmein"},
	}
}
