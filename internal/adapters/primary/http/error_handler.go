package http

import (
	"errors"
	"log/slog"
	"net/http"

	mw "github.com/lorrc/sap-helpdesk/internal/adapters/primary/http/middleware"
	apperrors "github.com/lorrc/sap-helpdesk/internal/core/errors"
)

// ErrorResponse is the envelope for every error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries a machine-readable code and a user-facing message.
type ErrorBody struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"requestId,omitempty"`
}

// ErrorHandler provides centralized error handling for HTTP handlers
type ErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle processes an error and writes the appropriate HTTP response
func (h *ErrorHandler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	requestID := mw.GetRequestID(r.Context())

	// Check for AppError first (most specific)
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		h.logError(r, err, appErr.StatusCode)
		WriteJSON(w, appErr.StatusCode, ErrorResponse{Error: ErrorBody{
			Code:      appErr.Code,
			Message:   appErr.Error(),
			Details:   appErr.Details,
			RequestID: requestID,
		}})
		return
	}

	// Check for validation errors
	var validationErrs *apperrors.ValidationErrors
	if errors.As(err, &validationErrs) {
		h.logError(r, err, http.StatusUnprocessableEntity)
		details := make(map[string]any, len(validationErrs.Errors))
		for field, msgs := range validationErrs.Errors {
			details[field] = msgs
		}
		WriteJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: ErrorBody{
			Code:      "VALIDATION_ERROR",
			Message:   "Request validation failed",
			Details:   details,
			RequestID: requestID,
		}})
		return
	}

	// Upstream failures keep the backend's own detail for the caller
	var upstream *apperrors.UpstreamError
	if errors.As(err, &upstream) {
		status := http.StatusBadGateway
		code := "UPSTREAM_ERROR"
		switch {
		case upstream.StatusCode == http.StatusNotFound:
			status, code = http.StatusNotFound, "NOT_FOUND"
		case upstream.StatusCode >= 400 && upstream.StatusCode < 500 && upstream.StatusCode != http.StatusTooManyRequests:
			status = upstream.StatusCode
		}
		h.logError(r, err, status)
		body := ErrorBody{Code: code, Message: upstream.Error(), RequestID: requestID}
		if upstream.ErrorCode != "" || upstream.StatusCode != 0 {
			body.Details = map[string]any{"upstreamStatus": upstream.StatusCode}
			if upstream.ErrorCode != "" {
				body.Details["upstreamCode"] = upstream.ErrorCode
			}
		}
		WriteJSON(w, status, ErrorResponse{Error: body})
		return
	}

	// Map domain errors to HTTP responses
	statusCode, code, message := mapDomainError(err)
	h.logError(r, err, statusCode)

	WriteJSON(w, statusCode, ErrorResponse{Error: ErrorBody{
		Code:      code,
		Message:   message,
		RequestID: requestID,
	}})
}

// mapDomainError maps domain errors to HTTP status codes and messages
func mapDomainError(err error) (int, string, string) {
	switch {
	// Not found errors
	case errors.Is(err, apperrors.ErrTicketNotFound),
		errors.Is(err, apperrors.ErrUserNotFound),
		errors.Is(err, apperrors.ErrAdminNotFound),
		errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", err.Error()

	// Authorization errors
	case errors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required"
	case errors.Is(err, apperrors.ErrUserInactive):
		return http.StatusForbidden, "USER_INACTIVE", err.Error()
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN", "You don't have permission to perform this action"

	// Registry and lifecycle conflicts
	case errors.Is(err, apperrors.ErrAlreadyAdmin):
		return http.StatusConflict, "ALREADY_ADMIN", err.Error()
	case errors.Is(err, apperrors.ErrLastAdmin):
		return http.StatusConflict, "LAST_ADMIN", err.Error()
	case errors.Is(err, apperrors.ErrSelfRemovalLocked):
		return http.StatusConflict, "SELF_REMOVAL_LOCKED", err.Error()
	case errors.Is(err, apperrors.ErrCannotDeactivateSelf):
		return http.StatusConflict, "CANNOT_DEACTIVATE_SELF", err.Error()
	case errors.Is(err, apperrors.ErrTicketClosed):
		return http.StatusConflict, "TICKET_CLOSED", err.Error()
	case errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict, "CONFLICT", err.Error()

	// Field validation errors raised by the core
	case errors.Is(err, apperrors.ErrTitleRequired),
		errors.Is(err, apperrors.ErrTitleTooLong),
		errors.Is(err, apperrors.ErrDescriptionTooLong),
		errors.Is(err, apperrors.ErrInvalidPriority),
		errors.Is(err, apperrors.ErrInvalidStatus),
		errors.Is(err, apperrors.ErrInvalidModule),
		errors.Is(err, apperrors.ErrCommentBodyRequired),
		errors.Is(err, apperrors.ErrCommentBodyTooLong),
		errors.Is(err, apperrors.ErrAuthorRequired),
		errors.Is(err, apperrors.ErrEmailRequired),
		errors.Is(err, apperrors.ErrEmailInvalid):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error()

	// Malformed requests
	case errors.Is(err, apperrors.ErrInvalidDateRange),
		errors.Is(err, apperrors.ErrInvalidFormat),
		errors.Is(err, apperrors.ErrInvalidInput),
		errors.Is(err, apperrors.ErrBadRequest):
		return http.StatusBadRequest, "BAD_REQUEST", err.Error()

	case errors.Is(err, apperrors.ErrRateLimited):
		return http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please try again later."

	// Integration errors
	case errors.Is(err, apperrors.ErrUnmappedStatus):
		return http.StatusBadGateway, "INTEGRATION_ERROR", err.Error()
	case errors.Is(err, apperrors.ErrUpstream):
		return http.StatusBadGateway, "UPSTREAM_ERROR", err.Error()
	case errors.Is(err, apperrors.ErrNotConfigured):
		return http.StatusServiceUnavailable, "NOT_CONFIGURED", err.Error()

	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"
	}
}

// logError logs the error with appropriate level based on status code
func (h *ErrorHandler) logError(r *http.Request, err error, statusCode int) {
	attrs := []any{
		"error", err.Error(),
		"status_code", statusCode,
		"method", r.Method,
		"path", r.URL.Path,
	}

	if statusCode >= 500 {
		h.logger.ErrorContext(r.Context(), "server error", attrs...)
	} else if statusCode >= 400 {
		h.logger.WarnContext(r.Context(), "client error", attrs...)
	}
}
