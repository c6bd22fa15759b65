package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lorrc/sap-helpdesk/internal/adapters/primary/validation"
	"github.com/lorrc/sap-helpdesk/internal/core/domain"
	"github.com/lorrc/sap-helpdesk/internal/core/ports"
)

var commentRoles = []domain.CommentRole{domain.RoleRaiser, domain.RoleAssignee, domain.RoleViewer}

// CommentHandler handles HTTP requests for comments.
type CommentHandler struct {
	ticketService ports.TicketService
	errorHandler  *ErrorHandler
	logger        *slog.Logger
}

// NewCommentHandler creates a new CommentHandler.
func NewCommentHandler(
	ticketService ports.TicketService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *CommentHandler {
	return &CommentHandler{
		ticketService: ticketService,
		errorHandler:  errorHandler,
		logger:        logger.With("handler", "comment"),
	}
}

// RegisterRoutes registers the comment-specific endpoints.
// These routes are relative to /api/v1/tickets/{ticketID}/comments
func (h *CommentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.HandleCreateComment)
	r.Get("/", h.HandleListComments)
}

// CreateCommentRequest defines the expected JSON body for creating a comment.
// Author defaults to the caller's display name.
type CreateCommentRequest struct {
	Message string             `json:"message"`
	Author  string             `json:"author"`
	Role    domain.CommentRole `json:"role"`
}

// Validate validates the create comment request
func (r *CreateCommentRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("message", r.Message).
		MaxLength("message", r.Message, domain.MaxCommentLength).
		MaxLength("author", r.Author, domain.MaxNameLength)
	validation.OneOf(v, "role", r.Role, commentRoles)

	return v.Err()
}

// HandleCreateComment handles POST /tickets/{ticketID}/comments
func (h *CommentHandler) HandleCreateComment(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r, h.errorHandler)
	if !ok {
		return
	}

	ticketID, err := parseTicketID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[CreateCommentRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	author := req.Author
	if author == "" {
		author = claims.DisplayName()
	}

	comment, err := h.ticketService.AddComment(r.Context(), ports.AddCommentParams{
		TicketID: ticketID,
		Author:   author,
		Role:     req.Role,
		Message:  req.Message,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "comment created",
		"comment_id", comment.ID,
		"ticket_id", ticketID,
	)

	WriteCreated(w, comment)
}

// HandleListComments handles GET /tickets/{ticketID}/comments
func (h *CommentHandler) HandleListComments(w http.ResponseWriter, r *http.Request) {
	ticketID, err := parseTicketID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	ticket, err := h.ticketService.GetTicket(r.Context(), ticketID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteList(w, ticket.Comments)
}
