package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"membership-service/internal/service"
	"membership-service/internal/util"
)

// AdminHandler handles HTTP requests for admin bootstrap
type AdminHandler struct {
	adminService *service.AdminService
	logger       *zap.Logger
}

func NewAdminHandler(adminService *service.AdminService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		logger:       logger,
	}
}

// Setup promotes the account named in the payload to administrator,
// gated by the shared setup passphrase.
func (h *AdminHandler) Setup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email      string `json:"email"`
		Passphrase string `json:"passphrase"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, fmt.Errorf("%w: malformed request body", service.ErrInvalidInput))
		return
	}

	if err := h.adminService.Bootstrap(r.Context(), req.Email, req.Passphrase); err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
	h.logger.Info("Admin bootstrap completed via HTTP",
		util.String("email", req.Email),
		util.String("method", "Setup"))
}
