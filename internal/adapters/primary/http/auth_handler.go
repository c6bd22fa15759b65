package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lorrc/sap-helpdesk/internal/core/domain"
	"github.com/lorrc/sap-helpdesk/internal/core/ports"
)

// AuthHandler exposes the caller's identity. Tokens are minted by the
// external identity provider; this handler only records logins.
type AuthHandler struct {
	adminService ports.AdminService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

func NewAuthHandler(adminService ports.AdminService, errorHandler *ErrorHandler, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		adminService: adminService,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "auth"),
	}
}

func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/login", h.HandleLogin)
	r.Get("/me", h.HandleMe)
}

// MeResponse describes the authenticated caller.
type MeResponse struct {
	User    *domain.User `json:"user"`
	IsAdmin bool         `json:"isAdmin"`
}

// HandleLogin handles POST /auth/login. The bearer token has already been
// verified; this upserts the directory entry and bootstraps the first admin.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r, h.errorHandler)
	if !ok {
		return
	}

	result, err := h.adminService.CheckFirstLogin(r.Context(), claims.Identity(), claims.Name)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.DebugContext(r.Context(), "login recorded", "user_id", result.User.ID, "first_user", result.IsFirstUser)

	WriteData(w, result)
}

// HandleMe handles GET /auth/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r, h.errorHandler)
	if !ok {
		return
	}

	user, err := h.adminService.GetUserByEmail(r.Context(), claims.Identity())
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteData(w, MeResponse{User: user, IsAdmin: user.IsAdmin && user.IsActive})
}
