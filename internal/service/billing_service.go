package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"membership-service/internal/config"
	"membership-service/internal/events"
	"membership-service/internal/models"
	"membership-service/internal/store"
)

// CheckoutRequest is the POST /api/checkout payload.
type CheckoutRequest struct {
	UserID string `json:"userId"`
	Tier   string `json:"tier"`
	Email  string `json:"email"`
}

// CheckoutResult carries either a hosted checkout URL or the bypass flag.
type CheckoutResult struct {
	URL      string
	Bypassed bool
}

// BillingService drives subscription checkout and billing-portal
// sessions. External calls are single attempts with no compensation.
type BillingService struct {
	users       store.UserRepository
	memberships store.MembershipRepository
	payments    PaymentProvider
	cfg         *config.Config
	audit       AuditPublisher
	logger      *zap.Logger
}

func NewBillingService(
	users store.UserRepository,
	memberships store.MembershipRepository,
	payments PaymentProvider,
	cfg *config.Config,
	audit AuditPublisher,
	logger *zap.Logger,
) *BillingService {
	return &BillingService{
		users:       users,
		memberships: memberships,
		payments:    payments,
		cfg:         cfg,
		audit:       audit,
		logger:      logger,
	}
}

// CreateCheckout starts a subscription checkout for a known tier. With
// the bypass flag set the payment provider is skipped entirely and the
// user and membership rows are activated directly.
func (s *BillingService) CreateCheckout(ctx context.Context, req *CheckoutRequest) (*CheckoutResult, error) {
	if req.UserID == "" || req.Tier == "" || req.Email == "" {
		return nil, fmt.Errorf("%w: userId, tier and email are required", ErrInvalidInput)
	}
	tier, ok := s.cfg.Stripe.Tiers[req.Tier]
	if !ok {
		return nil, fmt.Errorf("%w: unknown tier %q", ErrInvalidInput, req.Tier)
	}

	if s.cfg.Stripe.PaymentBypass {
		if err := s.users.SetStatus(ctx, req.UserID, models.StatusActive); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, fmt.Errorf("failed to activate user: %w", err)
		}
		if err := s.memberships.ActivateForUser(ctx, req.UserID, req.Tier); err != nil {
			return nil, fmt.Errorf("failed to activate membership: %w", err)
		}

		s.logger.Warn("Checkout bypassed - membership activated without payment",
			zap.String("user_id", req.UserID),
			zap.String("tier", req.Tier))
		s.audit.Publish(ctx, events.CheckoutBypassed, map[string]string{
			"user_id": req.UserID,
			"tier":    req.Tier,
		})
		return &CheckoutResult{Bypassed: true}, nil
	}

	if s.payments == nil {
		return nil, fmt.Errorf("%w: payment provider", ErrNotConfigured)
	}

	url, err := s.payments.CreateCheckoutSession(ctx, req.UserID, req.Email, tier)
	if err != nil {
		return nil, fmt.Errorf("failed to start checkout: %w", err)
	}
	return &CheckoutResult{URL: url}, nil
}

// CreatePortalSession resolves the bearer token to a user and returns a
// provider-hosted billing portal URL. Users without a linked payment
// customer get ErrNoBillingAccount, never a URL.
func (s *BillingService) CreatePortalSession(ctx context.Context, token string) (string, error) {
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

	if user.StripeCustomerID == nil || *user.StripeCustomerID == "" {
		return "", ErrNoBillingAccount
	}
	if s.payments == nil {
		return "", fmt.Errorf("%w: payment provider", ErrNotConfigured)
	}

	url, err := s.payments.CreatePortalSession(ctx, *user.StripeCustomerID)
	if err != nil {
		return "", fmt.Errorf("failed to create portal session: %w", err)
	}
	return url, nil
}
