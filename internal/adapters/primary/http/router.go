package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	mw "github.com/lorrc/sap-helpdesk/internal/adapters/primary/http/middleware"
	"github.com/lorrc/sap-helpdesk/internal/infrastructure/metrics"
)

// Handlers groups the primary adapters mounted by NewRouter. A nil handler
// leaves its routes unmounted.
type Handlers struct {
	Auth      *AuthHandler
	Tickets   *TicketHandler
	Users     *UserHandler
	Admin     *AdminHandler
	Analytics *AnalyticsHandler
	Emails    *EmailHandler
	Health    *HealthHandler
	WebSocket *WebSocketHandler
}

// RouterConfig carries the cross-cutting pieces of the HTTP stack.
type RouterConfig struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	Verifier       mw.TokenVerifier
	AdminChecker   mw.AdminChecker
	AllowedOrigins []string

	// Optional; nil disables rate limiting for that group.
	GeneralLimiter *mw.RateLimiter
	AuthLimiter    *mw.RateLimiter

	// Decorators run on every authenticated request context, e.g. to
	// forward the caller's token to the remote backend.
	Decorators []mw.ContextDecorator
}

// NewRouter assembles the middleware chain and mounts every handler under
// /api/v1. Health and metrics stay at the root for probes and scrapers.
func NewRouter(cfg RouterConfig, h Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(cfg.Logger, cfg.Metrics))
	r.Use(mw.RecoveryLogger(cfg.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", mw.RequestIDHeader},
		ExposedHeaders:   []string{"Content-Disposition", mw.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.GeneralLimiter != nil {
		r.Use(cfg.GeneralLimiter.Middleware)
	}

	if h.Health != nil {
		r.Route("/health", h.Health.RegisterRoutes)
	}
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Authentication for the socket is handled inside the handler
		if h.WebSocket != nil {
			r.Get("/ws", h.WebSocket.ServeHTTP)
		}

		r.Group(func(r chi.Router) {
			r.Use(mw.Authenticate(cfg.Verifier, cfg.Logger, cfg.Decorators...))

			if h.Auth != nil {
				r.Group(func(r chi.Router) {
					if cfg.AuthLimiter != nil {
						r.Use(cfg.AuthLimiter.Middleware)
					}
					r.Route("/auth", h.Auth.RegisterRoutes)
				})
			}
			if h.Tickets != nil {
				r.Route("/tickets", h.Tickets.RegisterRoutes)
			}
			if h.Users != nil {
				r.Route("/users", h.Users.RegisterRoutes)
			}
			if h.Admin != nil {
				r.Route("/admin", h.Admin.RegisterRoutes)
			}
			if h.Analytics != nil {
				r.Route("/analytics", h.Analytics.RegisterRoutes)
			}
			if h.Emails != nil {
				r.Route("/emails", func(r chi.Router) {
					h.Emails.RegisterRoutes(r, mw.RequireAdmin(cfg.AdminChecker, cfg.Logger))
				})
			}
		})
	})

	return r
}
