package http

import (
	"bytes"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lorrc/sap-helpdesk/internal/adapters/primary/validation"
	"github.com/lorrc/sap-helpdesk/internal/core/domain"
	apperrors "github.com/lorrc/sap-helpdesk/internal/core/errors"
	"github.com/lorrc/sap-helpdesk/internal/core/export"
	"github.com/lorrc/sap-helpdesk/internal/core/ports"
	"github.com/lorrc/sap-helpdesk/internal/core/query"
)

const maxTicketsPerPage = 500

// TicketHandler handles HTTP requests for tickets
type TicketHandler struct {
	ticketService  ports.TicketService
	commentHandler *CommentHandler
	errorHandler   *ErrorHandler
	logger         *slog.Logger
	exportStem     string
	now            func() time.Time
}

// NewTicketHandler creates a new ticket handler
func NewTicketHandler(
	ticketService ports.TicketService,
	commentHandler *CommentHandler,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
	exportStem string,
) *TicketHandler {
	return &TicketHandler{
		ticketService:  ticketService,
		commentHandler: commentHandler,
		errorHandler:   errorHandler,
		logger:         logger.With("handler", "ticket"),
		exportStem:     exportStem,
		now:            time.Now,
	}
}

// RegisterRoutes sets up the routing for all ticket endpoints.
func (h *TicketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListTickets)
	r.Post("/", h.HandleCreateTicket)
	r.Get("/export", h.HandleExportTickets)

	// Routes for a specific ticket
	r.Route("/{ticketID}", func(r chi.Router) {
		r.Get("/", h.HandleGetTicket)
		r.Put("/", h.HandleUpdateTicket)
		r.Patch("/", h.HandleUpdateTicket)
		r.Delete("/", h.HandleDeleteTicket)
		r.Get("/logs", h.HandleGetLogs)

		// Mount the comment routes nested under /tickets/{ticketID}
		if h.commentHandler != nil {
			r.Route("/comments", h.commentHandler.RegisterRoutes)
		}
	})
}

// --- Request DTOs ---

// CreateTicketRequest defines the expected JSON body for creating a ticket
type CreateTicketRequest struct {
	Title           string                `json:"title"`
	Description     string                `json:"description"`
	Priority        domain.TicketPriority `json:"priority"`
	Module          domain.Module         `json:"module"`
	AssignedTo      string                `json:"assignedTo"`
	AssignedToEmail string                `json:"assignedToEmail"`
	RaisedBy        string                `json:"raisedBy"`
	CompletionBy    domain.Date           `json:"completionBy"`
	Tags            []string              `json:"tags"`
	Attachments     []domain.Attachment   `json:"attachments"`
}

// Validate validates the create ticket request
func (r *CreateTicketRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("title", r.Title).
		MaxLength("title", r.Title, domain.MaxTitleLength).
		MaxLength("description", r.Description, domain.MaxDescriptionLength).
		Email("assignedToEmail", r.AssignedToEmail)
	validation.OneOf(v, "priority", r.Priority, domain.TicketPriorities)
	validation.OneOf(v, "module", r.Module, domain.Modules)

	return v.Err()
}

// optionalDate tells an explicit null apart from an absent field.
type optionalDate struct {
	Set   bool
	Value domain.Date
}

func (o *optionalDate) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(data, []byte("null")) {
		o.Value = domain.Date{}
		return nil
	}
	return o.Value.UnmarshalJSON(data)
}

// UpdateTicketRequest is a partial update; absent fields stay unchanged.
type UpdateTicketRequest struct {
	Title           *string                `json:"title"`
	Description     *string                `json:"description"`
	Status          *domain.TicketStatus   `json:"status"`
	Priority        *domain.TicketPriority `json:"priority"`
	Module          *domain.Module         `json:"module"`
	AssignedTo      *string                `json:"assignedTo"`
	AssignedToEmail *string                `json:"assignedToEmail"`
	CompletionBy    optionalDate           `json:"completionBy"`
	Tags            *[]string              `json:"tags"`
}

// Validate validates the update ticket request
func (r *UpdateTicketRequest) Validate() error {
	v := validation.NewValidator()

	if r.Title != nil {
		v.Required("title", *r.Title).MaxLength("title", *r.Title, domain.MaxTitleLength)
	}
	if r.Description != nil {
		v.MaxLength("description", *r.Description, domain.MaxDescriptionLength)
	}
	if r.Status != nil {
		v.Required("status", string(*r.Status))
		validation.OneOf(v, "status", *r.Status, domain.TicketStatuses)
	}
	if r.Priority != nil {
		v.Required("priority", string(*r.Priority))
		validation.OneOf(v, "priority", *r.Priority, domain.TicketPriorities)
	}
	if r.Module != nil {
		validation.OneOf(v, "module", *r.Module, domain.Modules)
	}
	if r.AssignedToEmail != nil {
		v.Email("assignedToEmail", *r.AssignedToEmail)
	}

	return v.Err()
}

func (r *UpdateTicketRequest) changes() domain.TicketChanges {
	c := domain.TicketChanges{
		Title:           r.Title,
		Description:     r.Description,
		Status:          r.Status,
		Priority:        r.Priority,
		Module:          r.Module,
		AssignedTo:      r.AssignedTo,
		AssignedToEmail: r.AssignedToEmail,
		Tags:            r.Tags,
	}
	if r.CompletionBy.Set {
		due := r.CompletionBy.Value
		c.CompletionBy = &due
	}
	return c
}

// --- Handlers ---

// HandleListTickets handles GET /tickets
func (h *TicketHandler) HandleListTickets(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r, true)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	page, err := h.ticketService.ListTickets(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WritePaginated(w, page.Items, page.Total, page.Limit, page.Offset)
}

// HandleExportTickets handles GET /tickets/export?format=csv|xlsx. It
// applies the same filters and sort as the list but never paginates.
func (h *TicketHandler) HandleExportTickets(w http.ResponseWriter, r *http.Request) {
	format, ok := export.ParseFormat(r.URL.Query().Get("format"))
	if !ok {
		h.errorHandler.Handle(w, r, apperrors.ErrInvalidFormat)
		return
	}

	params, err := parseListParams(r, false)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	page, err := h.ticketService.ListTickets(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	// Render into memory first so a failure can still produce an error body
	var buf bytes.Buffer
	if format == export.FormatXLSX {
		err = export.Spreadsheet(&buf, page.Items)
	} else {
		err = export.CSV(&buf, page.Items)
	}
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	filename := export.Filename(h.exportStem, h.now(), format)
	h.logger.InfoContext(r.Context(), "tickets exported",
		"format", format,
		"count", len(page.Items),
	)
	writeAttachment(w, format.ContentType(), filename, buf.Bytes())
}

// HandleCreateTicket handles POST /tickets
func (h *TicketHandler) HandleCreateTicket(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r, h.errorHandler)
	if !ok {
		return
	}

	req, err := validation.DecodeAndValidate[CreateTicketRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	raisedBy := req.RaisedBy
	if raisedBy == "" {
		raisedBy = claims.DisplayName()
	}

	params := ports.CreateTicketParams{
		TicketParams: domain.TicketParams{
			Title:           req.Title,
			Description:     req.Description,
			Priority:        req.Priority,
			Module:          req.Module,
			AssignedTo:      req.AssignedTo,
			AssignedToEmail: req.AssignedToEmail,
			RaisedBy:        raisedBy,
			CompletionBy:    req.CompletionBy,
			Tags:            req.Tags,
			Attachments:     req.Attachments,
		},
		Actor: claims.DisplayName(),
	}

	ticket, err := h.ticketService.CreateTicket(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "ticket created", "ticket_id", ticket.ID)

	WriteCreated(w, ticket)
}

// HandleGetTicket handles GET /tickets/{ticketID}
func (h *TicketHandler) HandleGetTicket(w http.ResponseWriter, r *http.Request) {
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

	WriteData(w, ticket)
}

// HandleUpdateTicket handles PUT and PATCH /tickets/{ticketID}
func (h *TicketHandler) HandleUpdateTicket(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r, h.errorHandler)
	if !ok {
		return
	}

	ticketID, err := parseTicketID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[UpdateTicketRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	ticket, err := h.ticketService.UpdateTicket(r.Context(), ports.UpdateTicketParams{
		TicketID: ticketID,
		Changes:  req.changes(),
		Actor:    claims.DisplayName(),
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "ticket updated", "ticket_id", ticketID)

	WriteData(w, ticket)
}

// HandleDeleteTicket handles DELETE /tickets/{ticketID}
func (h *TicketHandler) HandleDeleteTicket(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r, h.errorHandler)
	if !ok {
		return
	}

	ticketID, err := parseTicketID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := h.ticketService.DeleteTicket(r.Context(), ticketID, claims.DisplayName()); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "ticket deleted", "ticket_id", ticketID)

	WriteNoContent(w)
}

// HandleGetLogs handles GET /tickets/{ticketID}/logs
func (h *TicketHandler) HandleGetLogs(w http.ResponseWriter, r *http.Request) {
	ticketID, err := parseTicketID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	logs, err := h.ticketService.GetLogs(r.Context(), ticketID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteList(w, logs)
}

// --- Helper methods ---

// parseListParams reads filter, sort and (optionally) pagination from the
// query string.
func parseListParams(r *http.Request, paginate bool) (ports.ListTicketsParams, error) {
	q := r.URL.Query()
	v := validation.NewValidator()

	criteria := query.Criteria{
		ID:           q.Get("id"),
		Title:        q.Get("title"),
		AssignedTo:   q.Get("assignedTo"),
		RaisedBy:     q.Get("raisedBy"),
		CompletionBy: q.Get("completionBy"),
		Tag:          q.Get("tag"),
		Status:       domain.TicketStatus(q.Get("status")),
		Priority:     domain.TicketPriority(q.Get("priority")),
		Module:       domain.Module(q.Get("module")),
		DateFrom:     validation.ParseDateQueryParam(r, "dateFrom", v),
		DateTo:       validation.ParseDateQueryParam(r, "dateTo", v),
	}
	validation.OneOf(v, "status", criteria.Status, domain.TicketStatuses)
	validation.OneOf(v, "priority", criteria.Priority, domain.TicketPriorities)
	validation.OneOf(v, "module", criteria.Module, domain.Modules)

	params := ports.ListTicketsParams{Criteria: criteria}

	if sortBy := q.Get("sort"); sortBy != "" {
		col, err := query.ParseColumn(sortBy)
		v.Custom("sort", err == nil, "Unknown sort column")
		params.SortBy = col
	}
	dir, err := query.ParseDirection(q.Get("order"))
	v.Custom("order", err == nil, "order must be asc or desc")
	params.Direction = dir

	if paginate {
		page := validation.ParsePagination(r, maxTicketsPerPage, v)
		params.Limit = page.Limit
		params.Offset = page.Offset
	}

	if err := v.Err(); err != nil {
		return ports.ListTicketsParams{}, err
	}
	return params, nil
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
