package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lorrc/sap-helpdesk/internal/core/ports"
)

// UserHandler serves the read-only user directory.
type UserHandler struct {
	userService  ports.UserService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

func NewUserHandler(userService ports.UserService, errorHandler *ErrorHandler, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		userService:  userService,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "users"),
	}
}

func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleDirectory)
	r.Get("/search", h.HandleSearch)
	r.Get("/assignable", h.HandleAssignable)
}

// HandleDirectory handles GET /users
func (h *UserHandler) HandleDirectory(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.Directory(r.Context())
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	WriteList(w, users)
}

// HandleSearch handles GET /users/search?q=
func (h *UserHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	WriteList(w, users)
}

// HandleAssignable handles GET /users/assignable
func (h *UserHandler) HandleAssignable(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.Assignable(r.Context())
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	WriteList(w, users)
}
