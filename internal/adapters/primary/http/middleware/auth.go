package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/lorrc/sap-helpdesk/internal/auth"
	"github.com/lorrc/sap-helpdesk/internal/infrastructure/logging"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// UserClaimsKey is the key used to store user claims in the request context.
const UserClaimsKey contextKey = "userClaims"

// TokenVerifier checks a raw bearer token.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// ContextDecorator lets the caller attach the verified token to the request
// context, e.g. so outbound calls can forward it.
type ContextDecorator func(ctx context.Context, token string) context.Context

// Authenticate validates the bearer token from the Authorization header.
func Authenticate(v TokenVerifier, logger *slog.Logger, decorators ...ContextDecorator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Authorization header format must be Bearer {token}")
				return
			}

			claims, err := v.Verify(token)
			if err != nil {
				logger.WarnContext(r.Context(), "bearer token rejected", "error", err)
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), UserClaimsKey, claims)
			ctx = logging.WithUserID(ctx, claims.Identity())
			for _, decorate := range decorators {
				ctx = decorate(ctx, token)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// GetClaims returns the verified claims, if the request was authenticated.
func GetClaims(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(UserClaimsKey).(*auth.Claims)
	return claims, ok && claims != nil
}

// WithClaims stores claims in ctx. Used by tests and the websocket handler.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, UserClaimsKey, claims)
}

// AdminChecker reports whether an email belongs to an active admin.
type AdminChecker interface {
	IsAdmin(ctx context.Context, email string) (bool, error)
}

// RequireAdmin rejects callers that are not admins. It must run after
// Authenticate.
func RequireAdmin(checker AdminChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetClaims(r.Context())
			if !ok {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Not authorized")
				return
			}

			isAdmin, err := checker.IsAdmin(r.Context(), claims.Identity())
			if err != nil {
				logger.ErrorContext(r.Context(), "admin check failed", "error", err)
				writeError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred")
				return
			}
			if !isAdmin {
				writeError(w, r, http.StatusForbidden, "FORBIDDEN", "Admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
