package http

import (
	"bytes"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lorrc/sap-helpdesk/internal/adapters/primary/validation"
	"github.com/lorrc/sap-helpdesk/internal/core/analytics"
	"github.com/lorrc/sap-helpdesk/internal/core/export"
	"github.com/lorrc/sap-helpdesk/internal/core/ports"
)

const analyticsExportStem = "helpdesk_analytics"

// AnalyticsHandler serves the reporting endpoints.
type AnalyticsHandler struct {
	analyticsService ports.AnalyticsService
	errorHandler     *ErrorHandler
	logger           *slog.Logger
	now              func() time.Time
}

func NewAnalyticsHandler(analyticsService ports.AnalyticsService, errorHandler *ErrorHandler, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService: analyticsService,
		errorHandler:     errorHandler,
		logger:           logger.With("handler", "analytics"),
		now:              time.Now,
	}
}

func (h *AnalyticsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard", h.HandleDashboard)
	r.Get("/full", h.HandleFull)
	r.Get("/summary", h.HandleSummary)
	r.Get("/workload", h.HandleWorkload)
	r.Get("/categories", h.HandleCategories)
	r.Get("/reports/date-range", h.HandleDateRange)
	r.Get("/export", h.HandleExport)
}

// HandleDashboard handles GET /analytics/dashboard
func (h *AnalyticsHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.analyticsService.Dashboard(r.Context())
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	WriteData(w, stats)
}

// HandleFull handles GET /analytics/full?days=
func (h *AnalyticsHandler) HandleFull(w http.ResponseWriter, r *http.Request) {
	v := validation.NewValidator()
	days := validation.ParseIntQueryParam(r, "days", analytics.DefaultTrendDays, v)
	if !v.HasErrors() {
		v.Range("days", days, 1, analytics.MaxTrendDays)
	}
	if err := v.Err(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	full, err := h.analyticsService.Full(r.Context(), days)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	WriteData(w, full)
}

// HandleSummary handles GET /analytics/summary?dueSoonDays=
func (h *AnalyticsHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	v := validation.NewValidator()
	dueSoon := validation.ParseIntQueryParam(r, "dueSoonDays", 0, v)
	if !v.HasErrors() {
		v.Range("dueSoonDays", dueSoon, 0, analytics.MaxTrendDays)
	}
	if err := v.Err(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	report, err := h.analyticsService.Summary(r.Context(), dueSoon)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	WriteData(w, report)
}

// HandleWorkload handles GET /analytics/workload
func (h *AnalyticsHandler) HandleWorkload(w http.ResponseWriter, r *http.Request) {
	items, err := h.analyticsService.Workload(r.Context())
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	WriteList(w, items)
}

// HandleCategories handles GET /analytics/categories
func (h *AnalyticsHandler) HandleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.analyticsService.Categories(r.Context())
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	WriteList(w, categories)
}

// HandleDateRange handles GET /analytics/reports/date-range?start=&end=
func (h *AnalyticsHandler) HandleDateRange(w http.ResponseWriter, r *http.Request) {
	v := validation.NewValidator()
	v.Required("start", r.URL.Query().Get("start")).
		Required("end", r.URL.Query().Get("end"))
	start := validation.ParseDateQueryParam(r, "start", v)
	end := validation.ParseDateQueryParam(r, "end", v)
	if err := v.Err(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	report, err := h.analyticsService.DateRange(r.Context(), start, end)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	WriteData(w, report)
}

// HandleExport handles GET /analytics/export. The workbook is always XLSX.
func (h *AnalyticsHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	report, err := h.analyticsService.Summary(r.Context(), 0)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.AnalyticsWorkbook(&buf, report); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	filename := export.Filename(analyticsExportStem, h.now(), export.FormatXLSX)
	h.logger.InfoContext(r.Context(), "analytics exported", "bytes", buf.Len())
	writeAttachment(w, export.FormatXLSX.ContentType(), filename, buf.Bytes())
}
