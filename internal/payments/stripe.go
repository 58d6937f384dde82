// Package payments wraps the Stripe API for subscription checkout and
// billing-portal sessions. All calls are single attempts; failures map
// straight to error responses upstream.
package payments

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"go.uber.org/zap"

	"membership-service/internal/config"
)

type StripeClient struct {
	api    *client.API
	cfg    *config.StripeConfig
	logger *zap.Logger
}

func NewStripeClient(cfg *config.Config, logger *zap.Logger) *StripeClient {
	api := &client.API{}
	api.Init(cfg.Stripe.SecretKey, nil)

	return &StripeClient{
		api:    api,
		cfg:    &cfg.Stripe,
		logger: logger,
	}
}

// CreateCheckoutSession starts a subscription checkout for one tier,
// preferring the preconfigured price ID and falling back to an inline
// ad-hoc price when none is set. Returns the hosted checkout URL.
func (c *StripeClient) CreateCheckoutSession(ctx context.Context, userID, email string, tier config.Tier) (string, error) {
	lineItem := &stripe.CheckoutSessionLineItemParams{
		Quantity: stripe.Int64(1),
	}
	if tier.PriceID != "" {
		lineItem.Price = stripe.String(tier.PriceID)
	} else {
		lineItem.PriceData = &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:   stripe.String(tier.Currency),
			UnitAmount: stripe.Int64(tier.Amount),
			Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
				Interval: stripe.String(tier.Interval),
			},
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripe.String(tier.Name),
			},
		}
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		CustomerEmail:     stripe.String(email),
		ClientReferenceID: stripe.String(userID),
		SuccessURL:        stripe.String(c.cfg.SuccessURL),
		CancelURL:         stripe.String(c.cfg.CancelURL),
		LineItems:         []*stripe.CheckoutSessionLineItemParams{lineItem},
	}
	params.Context = ctx

	sess, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}

	c.logger.Info("Checkout session created",
		zap.String("user_id", userID),
		zap.String("tier", tier.Name),
		zap.Bool("adhoc_price", tier.PriceID == ""))
	return sess.URL, nil
}

// CreatePortalSession returns a hosted billing-portal URL for an
// existing Stripe customer.
func (c *StripeClient) CreatePortalSession(ctx context.Context, customerID string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(c.cfg.PortalReturn),
	}
	params.Context = ctx

	sess, err := c.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create billing portal session: %w", err)
	}

	c.logger.Info("Billing portal session created", zap.String("customer_id", customerID))
	return sess.URL, nil
}
