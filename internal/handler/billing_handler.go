package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"membership-service/internal/service"
	"membership-service/internal/util"
)

// BillingHandler handles HTTP requests for checkout and the billing portal
type BillingHandler struct {
	billingService *service.BillingService
	logger         *zap.Logger
}

func NewBillingHandler(billingService *service.BillingService, logger *zap.Logger) *BillingHandler {
	return &BillingHandler{
		billingService: billingService,
		logger:         logger,
	}
}

// Checkout starts a subscription checkout session, or activates the
// membership directly when the payment bypass is enabled.
func (h *BillingHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req service.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, fmt.Errorf("%w: malformed request body", service.ErrInvalidInput))
		return
	}

	result, err := h.billingService.CreateCheckout(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	if result.Bypassed {
		respondJSON(w, http.StatusOK, map[string]bool{"bypassed": true, "success": true})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"url": result.URL})

	h.logger.Info("Checkout session created via HTTP",
		util.String("user_id", req.UserID),
		util.String("tier", req.Tier),
		util.String("method", "Checkout"))
}

// Portal returns a provider-hosted billing portal URL for the
// authenticated user.
func (h *BillingHandler) Portal(w http.ResponseWriter, r *http.Request) {
	url, err := h.billingService.CreatePortalSession(r.Context(), bearerToken(r))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"url": url})
	h.logger.Debug("Billing portal session created via HTTP",
		util.String("method", "Portal"))
}
