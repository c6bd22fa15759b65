package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lorrc/sap-helpdesk/internal/core/analytics"
	"github.com/lorrc/sap-helpdesk/internal/core/domain"
	"github.com/lorrc/sap-helpdesk/internal/core/ports"
)

// AnalyticsService computes reports over the current ticket set, caching
// results per day when a cache is configured.
type AnalyticsService struct {
	ticketRepo  ports.TicketRepository
	cache       ports.ReportCache
	ttl         time.Duration
	dueSoonDays int
	now         func() time.Time
	logger      *slog.Logger
}

var _ ports.AnalyticsService = (*AnalyticsService)(nil)

func NewAnalyticsService(ticketRepo ports.TicketRepository, cache ports.ReportCache, opts ...Option) *AnalyticsService {
	o := applyOptions(opts)
	return &AnalyticsService{
		ticketRepo:  ticketRepo,
		cache:       cache,
		ttl:         o.CacheTTL,
		dueSoonDays: o.DueSoonDays,
		now:         o.Now,
		logger:      o.Logger.With("component", "analytics_service"),
	}
}

func (s *AnalyticsService) Dashboard(ctx context.Context) (*domain.DashboardStats, error) {
	opts := s.options(0)
	return cached(ctx, s, s.key("dashboard", opts.Today, opts.DueSoonDays), func(tickets []*domain.Ticket) (*domain.DashboardStats, error) {
		return analytics.Dashboard(tickets, opts), nil
	})
}

// Full returns the dashboard plus daily trends over the last days days.
func (s *AnalyticsService) Full(ctx context.Context, days int) (*domain.FullAnalytics, error) {
	days = analytics.ClampDays(days)
	opts := s.options(0)
	return cached(ctx, s, s.key("full", opts.Today, days), func(tickets []*domain.Ticket) (*domain.FullAnalytics, error) {
		return analytics.Full(tickets, opts, days), nil
	})
}

func (s *AnalyticsService) Summary(ctx context.Context, dueSoonDays int) (*domain.AnalyticsReport, error) {
	opts := s.options(dueSoonDays)
	return cached(ctx, s, s.key("summary", opts.Today, opts.DueSoonDays), func(tickets []*domain.Ticket) (*domain.AnalyticsReport, error) {
		return analytics.Summarize(tickets, opts), nil
	})
}

func (s *AnalyticsService) Workload(ctx context.Context) ([]domain.WorkloadItem, error) {
	today := domain.Today(s.now())
	items, err := cached(ctx, s, s.key("workload", today), func(tickets []*domain.Ticket) (*[]domain.WorkloadItem, error) {
		items := analytics.Workload(tickets, today)
		return &items, nil
	})
	if err != nil {
		return nil, err
	}
	return *items, nil
}

// DateRange reports tickets created and completed within [start, end].
func (s *AnalyticsService) DateRange(ctx context.Context, start, end domain.Date) (*domain.DateRangeReport, error) {
	tickets, err := s.ticketRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	return analytics.DateRange(tickets, start, end)
}

func (s *AnalyticsService) Categories(ctx context.Context) ([]domain.CategorySummary, error) {
	tickets, err := s.ticketRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	return analytics.Categories(tickets), nil
}

func (s *AnalyticsService) options(dueSoonDays int) analytics.Options {
	if dueSoonDays <= 0 {
		dueSoonDays = s.dueSoonDays
	}
	if dueSoonDays <= 0 {
		dueSoonDays = analytics.DefaultDueSoonDays
	}
	return analytics.Options{
		Today:       domain.Today(s.now()),
		DueSoonDays: dueSoonDays,
	}
}

func (s *AnalyticsService) key(kind string, today domain.Date, params ...any) string {
	k := fmt.Sprintf("analytics:%s:%s", kind, today)
	for _, p := range params {
		k += fmt.Sprintf(":%v", p)
	}
	return k
}

// cached serves a report from the cache, computing and storing it on a
// miss. Cache failures never fail the request.
func cached[T any](ctx context.Context, s *AnalyticsService, key string, compute func([]*domain.Ticket) (*T, error)) (*T, error) {
	if s.cache != nil {
		var hit T
		ok, err := s.cache.Get(ctx, key, &hit)
		if err != nil {
			s.logger.Warn("report cache read failed", "key", key, "error", err)
		} else if ok {
			return &hit, nil
		}
	}

	tickets, err := s.ticketRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	result, err := compute(tickets)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, result, s.ttl); err != nil {
			s.logger.Warn("report cache write failed", "key", key, "error", err)
		}
	}
	return result, nil
}
