package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"membership-service/internal/service"
	"membership-service/internal/util"
)

// errorBody is the fixed failure shape for every endpoint.
type errorBody struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		util.Error("Failed to encode JSON response", util.ErrorField(err))
	}
}

// respondError maps a service error to its status code. Upstream and
// configuration failures log server-side and surface a generic message;
// client and authorization errors surface their own text.
func respondError(w http.ResponseWriter, logger *zap.Logger, err error) {
	statusCode := errorStatusCode(err)

	message := err.Error()
	if statusCode == http.StatusInternalServerError {
		logger.Error("Request failed", zap.Error(err))
		message = "Internal server error"
	} else {
		logger.Warn("Request rejected",
			zap.Int("status_code", statusCode),
			zap.Error(err))
	}

	respondJSON(w, statusCode, errorBody{Error: message})
}

func errorStatusCode(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidPassphrase),
		errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrBookingNotFound),
		errors.Is(err, service.ErrNoBillingAccount):
		return http.StatusNotFound
	case errors.Is(err, service.ErrAdminExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// bearerToken extracts the credential from an Authorization header.
func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return auth[len(prefix):]
	}
	return ""
}
