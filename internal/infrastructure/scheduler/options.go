package scheduler

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lorrc/sap-helpdesk/internal/infrastructure/metrics"
)

type options struct {
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
	Cron       *cron.Cron
	Parser     cron.Parser
	Location   *time.Location
	JobTimeout time.Duration
	Now        func() time.Time
}

// Option applies configuration to the scheduler service.
type Option func(*options)

func defaultOptions() options {
	return options{
		Logger:     slog.Default(),
		Parser:     cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		Location:   time.UTC,
		JobTimeout: 5 * time.Minute,
		Now:        time.Now,
	}
}

// WithLogger injects a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithMetrics records job runs and durations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.Metrics = m
	}
}

// WithCron supplies a preconfigured cron scheduler instance.
func WithCron(c *cron.Cron) Option {
	return func(o *options) {
		o.Cron = c
	}
}

// WithCronParser allows replacing the cron expression parser.
func WithCronParser(p cron.Parser) Option {
	return func(o *options) {
		o.Parser = p
	}
}

// WithLocation sets the time zone schedules are evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.Location = loc
		}
	}
}

// WithJobTimeout bounds a single job run. Zero disables the bound.
func WithJobTimeout(d time.Duration) Option {
	return func(o *options) {
		o.JobTimeout = d
	}
}

// WithClock overrides the time source used for run bookkeeping.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.Now = now
		}
	}
}
