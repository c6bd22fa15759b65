package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpAdapter "github.com/lorrc/sap-helpdesk/internal/adapters/primary/http"
	mw "github.com/lorrc/sap-helpdesk/internal/adapters/primary/http/middleware"
	"github.com/lorrc/sap-helpdesk/internal/adapters/secondary/backend"
	"github.com/lorrc/sap-helpdesk/internal/app"
	"github.com/lorrc/sap-helpdesk/internal/auth"
	"github.com/lorrc/sap-helpdesk/internal/config"
	"github.com/lorrc/sap-helpdesk/internal/infrastructure/logging"
	"github.com/lorrc/sap-helpdesk/internal/infrastructure/metrics"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger and Metrics
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})
	slog.SetDefault(logger)
	m := metrics.New()

	logger.Info("starting service",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"store", cfg.Store.Driver,
	)

	// 3. Open Store and Build Services
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	application, err := app.New(ctx, cfg, logger, m)
	if err != nil {
		logger.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Error("failed to close resources", "error", err)
		}
	}()

	// 4. Initialize Security & Real-time Components
	verifier, err := auth.NewVerifier(auth.VerifierConfig{
		HMACSecret:   cfg.Auth.HMACSecret,
		RSAPublicKey: cfg.Auth.RSAPublicKey,
		Issuer:       cfg.Auth.Issuer,
		Audience:     cfg.Auth.Audience,
	})
	if err != nil {
		logger.Error("failed to initialize token verifier", "error", err)
		os.Exit(1)
	}
	go application.Hub.Run(ctx)

	// 5. Initialize Rate Limiters
	var generalRateLimiter, authRateLimiter *mw.RateLimiter
	if cfg.RateLimit.Enabled {
		generalRateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstSize:         cfg.RateLimit.BurstSize,
			CleanupInterval:   time.Minute,
			TTL:               3 * time.Minute,
			Key:               mw.ClientIPKey,
		})
		defer generalRateLimiter.Stop()

		authRateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.AuthRPS,
			BurstSize:         cfg.RateLimit.AuthBurst,
			CleanupInterval:   time.Minute,
			TTL:               5 * time.Minute,
			Key:               mw.IdentityKey,
		})
		defer authRateLimiter.Stop()
	}

	// 6. Handlers (Primary Adapters)
	errorHandler := httpAdapter.NewErrorHandler(logger)
	commentHandler := httpAdapter.NewCommentHandler(application.TicketService, errorHandler, logger)

	healthDeps := []httpAdapter.Dependency{{Name: "store", Checker: application.Store, Critical: true}}
	if application.Cache != nil {
		healthDeps = append(healthDeps, httpAdapter.Dependency{Name: "cache", Checker: application.Cache})
	}

	handlers := httpAdapter.Handlers{
		Auth:      httpAdapter.NewAuthHandler(application.AdminService, errorHandler, logger),
		Tickets:   httpAdapter.NewTicketHandler(application.TicketService, commentHandler, errorHandler, logger, cfg.App.ExportFilenameStem),
		Users:     httpAdapter.NewUserHandler(application.UserService, errorHandler, logger),
		Admin:     httpAdapter.NewAdminHandler(application.AdminService, errorHandler, logger),
		Analytics: httpAdapter.NewAnalyticsHandler(application.AnalyticsService, errorHandler, logger),
		Emails:    httpAdapter.NewEmailHandler(application.EmailService, errorHandler, logger),
		Health:    httpAdapter.NewHealthHandler(cfg.App.Version, healthDeps...),
		WebSocket: httpAdapter.NewWebSocketHandler(application.Hub, verifier, httpAdapter.WebSocketConfig{
			AllowedOrigins:  cfg.WebSocket.AllowedOrigins,
			ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
			WriteBufferSize: cfg.WebSocket.WriteBufferSize,
			IsDevelopment:   cfg.IsDevelopment(),
		}, logger),
	}

	// Forward the caller's token so the remote backend sees the same user.
	var decorators []mw.ContextDecorator
	if application.Backend != nil {
		decorators = append(decorators, backend.WithBearerToken)
	}

	// 7. Setup Router
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		Logger:         logger,
		Metrics:        m,
		Verifier:       verifier,
		AdminChecker:   application.AdminService,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		GeneralLimiter: generalRateLimiter,
		AuthLimiter:    authRateLimiter,
		Decorators:     decorators,
	}, handlers)

	// 8. Start Background Jobs
	sched, err := application.Scheduler()
	if err != nil {
		logger.Error("failed to register scheduled jobs", "error", err)
		os.Exit(1)
	}
	sched.Start()

	// 9. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-quit:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		logger.Error("server error", "error", err)
		exitCode = 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		exitCode = 1
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		logger.Error("scheduler shutdown error", "error", err)
		exitCode = 1
	}
	stop()

	logger.Info("server shutdown complete")
	if exitCode != 0 {
		cancel()
		_ = application.Close()
		os.Exit(exitCode)
	}
}
