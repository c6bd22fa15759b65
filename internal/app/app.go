// Package app wires configuration into stores, services and background
// components. Both binaries build on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lorrc/sap-helpdesk/internal/adapters/primary/websocket"
	"github.com/lorrc/sap-helpdesk/internal/adapters/secondary/backend"
	"github.com/lorrc/sap-helpdesk/internal/adapters/secondary/cache"
	"github.com/lorrc/sap-helpdesk/internal/adapters/secondary/email"
	"github.com/lorrc/sap-helpdesk/internal/adapters/secondary/memory"
	"github.com/lorrc/sap-helpdesk/internal/adapters/secondary/postgres"
	"github.com/lorrc/sap-helpdesk/internal/adapters/secondary/sqlite"
	"github.com/lorrc/sap-helpdesk/internal/config"
	"github.com/lorrc/sap-helpdesk/internal/core/ports"
	"github.com/lorrc/sap-helpdesk/internal/core/services"
	"github.com/lorrc/sap-helpdesk/internal/infrastructure/metrics"
	"github.com/lorrc/sap-helpdesk/internal/infrastructure/scheduler"
)

// App holds the assembled dependency graph.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	Tickets  ports.TicketRepository
	Registry ports.RegistryRepository
	Store    ports.Pinger
	Cache    *cache.RedisCache
	Backend  *backend.Client
	Notifier *email.LogNotifier
	Hub      *websocket.Hub

	TicketService    *services.TicketService
	AdminService     *services.AdminService
	UserService      *services.UserService
	AnalyticsService *services.AnalyticsService
	EmailService     *services.EmailService
	ReminderService  *services.ReminderService

	closers []func() error
}

// New opens the configured store and builds every service. The caller
// must Close the returned App.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*App, error) {
	a := &App{Config: cfg, Logger: logger, Metrics: m}

	if cfg.Backend.URL != "" {
		client, err := backend.NewClient(backend.Config{
			BaseURL:      cfg.Backend.URL,
			Timeout:      cfg.Backend.Timeout,
			MaxAttempts:  cfg.Backend.MaxRetries,
			TokenURL:     cfg.Backend.TokenURL,
			ClientID:     cfg.Backend.ClientID,
			ClientSecret: cfg.Backend.ClientSecret,
			Scopes:       cfg.Backend.Scopes,
			Logger:       logger,
		})
		if err != nil {
			return nil, fmt.Errorf("backend client: %w", err)
		}
		a.Backend = client
	}

	if err := a.openStore(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}

	var reportCache ports.ReportCache
	if cfg.Cache.RedisAddr != "" {
		a.Cache = cache.NewRedisCache(ctx, cache.Config{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		}, logger)
		a.closers = append(a.closers, a.Cache.Close)
		reportCache = a.Cache
	}

	var gateway ports.EmailGateway
	if a.Backend != nil {
		gateway = backend.NewEmailGateway(a.Backend)
	}

	a.Notifier = email.NewLogNotifier(a.Registry, logger)
	a.Hub = websocket.NewHub(logger, m)

	a.TicketService = services.NewTicketService(a.Tickets, a.Notifier, a.Hub, reportCache, services.WithLogger(logger))
	// Closed last-in first-out, so pending notifications drain before the store goes.
	a.closers = append(a.closers, func() error { a.TicketService.Shutdown(); return nil })
	a.AdminService = services.NewAdminService(a.Registry, services.WithLogger(logger))
	a.UserService = services.NewUserService(a.Registry)
	a.AnalyticsService = services.NewAnalyticsService(a.Tickets, reportCache,
		services.WithLogger(logger),
		services.WithCacheTTL(cfg.Cache.TTL),
		services.WithDueSoonDays(cfg.Jobs.DueSoonDays),
	)
	a.EmailService = services.NewEmailService(gateway, services.WithLogger(logger))
	a.ReminderService = services.NewReminderService(a.Tickets, a.Notifier, services.WithLogger(logger))

	return a, nil
}

func (a *App) openStore(ctx context.Context) error {
	cfg := a.Config.Store
	switch cfg.Driver {
	case config.StorePostgres:
		if err := postgres.Migrate(cfg.DatabaseURL); err != nil {
			return err
		}
		pool, err := postgres.Connect(ctx, postgres.PoolConfig{
			URL:             cfg.DatabaseURL,
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.ConnMaxIdleTime,
		})
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		tickets := postgres.NewTicketRepository(pool)
		a.Tickets, a.Store = tickets, tickets
		a.Registry = postgres.NewRegistryRepository(pool)
		a.Logger.Info("database connection established", "driver", cfg.Driver)

	case config.StoreSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath, a.Logger)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() error { return sqlite.Close(db) })
		tickets := sqlite.NewTicketStore(db)
		a.Tickets, a.Store = tickets, tickets
		a.Registry = sqlite.NewRegistry(db)

	case config.StoreRemote:
		if a.Backend == nil {
			return errors.New("remote store requires BACKEND_URL")
		}
		registry, err := seededRegistry()
		if err != nil {
			return err
		}
		tickets := backend.NewTicketRepository(a.Backend)
		a.Tickets, a.Store = tickets, tickets
		a.Registry = registry

	case config.StoreMemory, "":
		seed, err := memory.SeedTickets()
		if err != nil {
			return err
		}
		registry, err := seededRegistry()
		if err != nil {
			return err
		}
		tickets := memory.NewTicketStore(seed)
		a.Tickets, a.Store = tickets, tickets
		a.Registry = registry

	default:
		return fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
	return nil
}

func seededRegistry() (*memory.Registry, error) {
	users, admins, err := memory.SeedRegistry()
	if err != nil {
		return nil, err
	}
	return memory.NewRegistry(users, admins), nil
}

// Scheduler registers the background jobs. Jobs without a schedule can
// still be triggered through RunNow.
func (a *App) Scheduler(opts ...scheduler.Option) (*scheduler.Service, error) {
	opts = append([]scheduler.Option{
		scheduler.WithLogger(a.Logger),
		scheduler.WithMetrics(a.Metrics),
	}, opts...)
	sched := scheduler.NewService(opts...)

	if err := sched.AddJob(scheduler.JobEmailFetch, a.Config.Jobs.EmailFetchSchedule,
		scheduler.EmailFetchJob(a.EmailService)); err != nil {
		return nil, err
	}
	if err := sched.AddJob(scheduler.JobOverdueReminders, a.Config.Jobs.ReminderSchedule,
		scheduler.OverdueReminderJob(a.ReminderService, a.Metrics)); err != nil {
		return nil, err
	}
	return sched, nil
}

// Close releases stores and connections in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
