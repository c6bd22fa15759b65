package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/lorrc/sap-helpdesk/internal/adapters/primary/http/middleware"
	"github.com/lorrc/sap-helpdesk/internal/adapters/primary/validation"
	"github.com/lorrc/sap-helpdesk/internal/auth"
	apperrors "github.com/lorrc/sap-helpdesk/internal/core/errors"
)

// getClaims extracts the verified caller, writing a 401 when the request
// did not pass through the authentication middleware.
func getClaims(w http.ResponseWriter, r *http.Request, eh *ErrorHandler) (*auth.Claims, bool) {
	claims, ok := mw.GetClaims(r.Context())
	if !ok {
		eh.Handle(w, r, apperrors.NewUnauthorizedError("Not authorized"))
		return nil, false
	}
	return claims, true
}

// parseTicketID extracts and validates the ticket ID from the URL
func parseTicketID(r *http.Request) (int64, error) {
	return validation.ParseID("ticketID", chi.URLParam(r, "ticketID"))
}
