package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lorrc/sap-helpdesk/internal/adapters/primary/validation"
	"github.com/lorrc/sap-helpdesk/internal/core/ports"
)

const (
	maxFetchDaysBack     = 30
	maxFetchEmails       = 500
	maxEmailListLimit    = 500
	maxCategoryListLimit = 200
)

// EmailHandler proxies the email ingestion pipeline. Any signed-in user may
// trigger a fetch; the rest sit behind the admin guard handed to
// RegisterRoutes.
type EmailHandler struct {
	emailService ports.EmailService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

func NewEmailHandler(emailService ports.EmailService, errorHandler *ErrorHandler, logger *slog.Logger) *EmailHandler {
	return &EmailHandler{
		emailService: emailService,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "email"),
	}
}

func (h *EmailHandler) RegisterRoutes(r chi.Router, adminOnly func(http.Handler) http.Handler) {
	r.Post("/fetch", h.HandleFetch)

	r.Group(func(r chi.Router) {
		r.Use(adminOnly)
		r.Get("/stats", h.HandleStats)
		r.Get("/recent", h.HandleRecent)
		r.Get("/unprocessed", h.HandleUnprocessed)
		r.Get("/by-category/{category}", h.HandleByCategory)
		r.Post("/{emailID}/reprocess", h.HandleReprocess)
	})
}

// FetchEmailsRequest is optional; an empty body uses the service defaults.
type FetchEmailsRequest struct {
	DaysBack  int `json:"daysBack"`
	MaxEmails int `json:"maxEmails"`
}

func (r *FetchEmailsRequest) Validate() error {
	v := validation.NewValidator()
	v.Range("daysBack", r.DaysBack, 0, maxFetchDaysBack).
		Range("maxEmails", r.MaxEmails, 0, maxFetchEmails)
	return v.Err()
}

// HandleFetch handles POST /emails/fetch
func (h *EmailHandler) HandleFetch(w http.ResponseWriter, r *http.Request) {
	req := &FetchEmailsRequest{}
	if r.ContentLength != 0 {
		decoded, err := validation.DecodeAndValidate[FetchEmailsRequest](r)
		if err != nil {
			h.errorHandler.Handle(w, r, err)
			return
		}
		req = decoded
	}

	result, err := h.emailService.TriggerFetch(r.Context(), req.DaysBack, req.MaxEmails)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "email fetch triggered", "days_back", req.DaysBack, "max_emails", req.MaxEmails)
	WriteData(w, result)
}

// HandleStats handles GET /emails/stats
func (h *EmailHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.emailService.Stats(r.Context())
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	WriteData(w, stats)
}

// HandleRecent handles GET /emails/recent?limit=
func (h *EmailHandler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.parseLimit(w, r)
	if !ok {
		return
	}

	records, err := h.emailService.Recent(r.Context(), limit)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	WriteList(w, records)
}

// HandleUnprocessed handles GET /emails/unprocessed?limit=
func (h *EmailHandler) HandleUnprocessed(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.parseLimit(w, r)
	if !ok {
		return
	}

	records, err := h.emailService.Unprocessed(r.Context(), limit)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	WriteList(w, records)
}

// HandleByCategory handles GET /emails/by-category/{category}?skip=&limit=
func (h *EmailHandler) HandleByCategory(w http.ResponseWriter, r *http.Request) {
	v := validation.NewValidator()
	skip := validation.ParseIntQueryParam(r, "skip", 0, v)
	limit := validation.ParseIntQueryParam(r, "limit", 0, v)
	if !v.HasErrors() {
		v.Custom("skip", skip >= 0, "skip must not be negative").
			Range("limit", limit, 0, maxCategoryListLimit)
	}
	if err := v.Err(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	records, err := h.emailService.ByCategory(r.Context(), chi.URLParam(r, "category"), skip, limit)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	WriteList(w, records)
}

// HandleReprocess handles POST /emails/{emailID}/reprocess
func (h *EmailHandler) HandleReprocess(w http.ResponseWriter, r *http.Request) {
	id, err := validation.ParseID("emailID", chi.URLParam(r, "emailID"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	result, err := h.emailService.Reprocess(r.Context(), id)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "email reprocessed", "email_id", id)
	WriteData(w, result)
}

// parseLimit reads ?limit=; zero lets the service pick its default.
func (h *EmailHandler) parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	v := validation.NewValidator()
	limit := validation.ParseIntQueryParam(r, "limit", 0, v)
	if !v.HasErrors() {
		v.Range("limit", limit, 0, maxEmailListLimit)
	}
	if err := v.Err(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return 0, false
	}
	return limit, true
}
