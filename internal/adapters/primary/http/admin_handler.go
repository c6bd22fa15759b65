package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lorrc/sap-helpdesk/internal/adapters/primary/validation"
	"github.com/lorrc/sap-helpdesk/internal/core/ports"
)

const maxAuditPage = 200

type AdminHandler struct {
	adminService ports.AdminService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

func NewAdminHandler(adminService ports.AdminService, errorHandler *ErrorHandler, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "admin"),
	}
}

func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Get("/panel", h.HandlePanel)
	r.Get("/audit-logs", h.HandleAuditLogs)

	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.HandleListUsers)
		r.Post("/{userID}/deactivate", h.HandleDeactivateUser)
		r.Post("/{userID}/reactivate", h.HandleReactivateUser)
	})

	r.Route("/admins", func(r chi.Router) {
		r.Get("/", h.HandleListAdmins)
		r.Post("/add", h.HandleAddAdmin)
		r.Post("/remove", h.HandleRemoveAdmin)
	})
}

type AddAdminRequest struct {
	Email string `json:"email"`
}

func (r *AddAdminRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("email", r.Email).
		Email("email", r.Email)

	return v.Err()
}

type RemoveAdminRequest struct {
	ID string `json:"id"`
}

func (r *RemoveAdminRequest) Validate() error {
	v := validation.NewValidator()
	v.Required("id", r.ID)
	return v.Err()
}

// HandleListUsers handles GET /admin/users
func (h *AdminHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r, h.errorHandler)
	if !ok {
		return
	}

	users, err := h.adminService.ListUsers(r.Context(), claims.Identity())
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteList(w, users)
}

// HandleListAdmins handles GET /admin/admins
func (h *AdminHandler) HandleListAdmins(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r, h.errorHandler)
	if !ok {
		return
	}

	admins, err := h.adminService.ListAdmins(r.Context(), claims.Identity())
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteList(w, admins)
}

// HandlePanel handles GET /admin/panel
func (h *AdminHandler) HandlePanel(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r, h.errorHandler)
	if !ok {
		return
	}

	panel, err := h.adminService.PanelData(r.Context(), claims.Identity())
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteData(w, panel)
}

// HandleAddAdmin handles POST /admin/admins/add
func (h *AdminHandler) HandleAddAdmin(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r, h.errorHandler)
	if !ok {
		return
	}

	req, err := validation.DecodeAndValidate[AddAdminRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	admin, err := h.adminService.AddAdmin(r.Context(), req.Email, claims.Identity())
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "admin added", "user_id", admin.ID)

	WriteMessage(w, admin, "Admin added")
}

// HandleRemoveAdmin handles POST /admin/admins/remove
func (h *AdminHandler) HandleRemoveAdmin(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r, h.errorHandler)
	if !ok {
		return
	}

	req, err := validation.DecodeAndValidate[RemoveAdminRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := h.adminService.RemoveAdmin(r.Context(), strings.TrimSpace(req.ID), claims.Identity()); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "admin removed", "user_id", req.ID)

	WriteNoContent(w)
}

// HandleDeactivateUser handles POST /admin/users/{userID}/deactivate
func (h *AdminHandler) HandleDeactivateUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r, h.errorHandler)
	if !ok {
		return
	}

	if err := h.adminService.DeactivateUser(r.Context(), chi.URLParam(r, "userID"), claims.Identity()); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteNoContent(w)
}

// HandleReactivateUser handles POST /admin/users/{userID}/reactivate
func (h *AdminHandler) HandleReactivateUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r, h.errorHandler)
	if !ok {
		return
	}

	if err := h.adminService.ReactivateUser(r.Context(), chi.URLParam(r, "userID"), claims.Identity()); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteNoContent(w)
}

// HandleAuditLogs handles GET /admin/audit-logs?limit=&offset=
func (h *AdminHandler) HandleAuditLogs(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r, h.errorHandler)
	if !ok {
		return
	}

	v := validation.NewValidator()
	page := validation.ParsePagination(r, maxAuditPage, v)
	if err := v.Err(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	logs, total, err := h.adminService.AuditLogs(r.Context(), claims.Identity(), page.Limit, page.Offset)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WritePaginated(w, logs, total, page.Limit, page.Offset)
}
