package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"membership-service/internal/service"
	"membership-service/internal/util"
)

// CalendarHandler handles Google Calendar OAuth linkage and booking sync
type CalendarHandler struct {
	calendarService *service.CalendarService
	adminPageURL    string
	logger          *zap.Logger
}

func NewCalendarHandler(calendarService *service.CalendarService, adminPageURL string, logger *zap.Logger) *CalendarHandler {
	return &CalendarHandler{
		calendarService: calendarService,
		adminPageURL:    adminPageURL,
		logger:          logger,
	}
}

// OAuthStart redirects the calling admin to the provider's consent
// screen with their user ID embedded as opaque state.
func (h *CalendarHandler) OAuthStart(w http.ResponseWriter, r *http.Request) {
	url, err := h.calendarService.OAuthStart(r.Context(), bearerToken(r))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// OAuthCallback exchanges the authorization code and redirects to the
// admin page with a connected or error flag. Failures redirect rather
// than render: the admin page owns error display.
func (h *CalendarHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	if err := h.calendarService.OAuthCallback(r.Context(), code, state); err != nil {
		h.logger.Error("Calendar OAuth callback failed", zap.Error(err))
		http.Redirect(w, r, h.adminPageURL+"?calendar=error", http.StatusFound)
		return
	}

	http.Redirect(w, r, h.adminPageURL+"?calendar=connected", http.StatusFound)
}

// Sync mirrors a booking onto the linked calendar.
func (h *CalendarHandler) Sync(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BookingID string `json:"bookingId"`
		Action    string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, fmt.Errorf("%w: malformed request body", service.ErrInvalidInput))
		return
	}

	result, err := h.calendarService.SyncBooking(r.Context(), req.BookingID, req.Action)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	if result.EventID != "" {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"eventId": result.EventID,
		})
	} else {
		respondJSON(w, http.StatusOK, map[string]bool{"success": true})
	}

	h.logger.Info("Booking sync completed via HTTP",
		util.String("booking_id", req.BookingID),
		util.String("action", req.Action),
		util.String("method", "Sync"))
}

// CancelBooking cancels the booking row and removes its calendar event.
func (h *CalendarHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BookingID string `json:"bookingId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, fmt.Errorf("%w: malformed request body", service.ErrInvalidInput))
		return
	}

	if err := h.calendarService.CancelBooking(r.Context(), req.BookingID); err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
	h.logger.Info("Booking cancelled via HTTP",
		util.String("booking_id", req.BookingID),
		util.String("method", "CancelBooking"))
}
