package services

import (
	"io"
	"log/slog"
	"time"
)

type options struct {
	Now         func() time.Time
	Logger      *slog.Logger
	CacheTTL    time.Duration
	DueSoonDays int
}

// Option applies configuration to a service.
type Option func(*options)

func defaultOptions() options {
	return options{
		Now:      time.Now,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		CacheTTL: 5 * time.Minute,
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithClock overrides the wall clock; "today" is derived from it.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.Now = now
		}
	}
}

// WithLogger injects a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithCacheTTL sets how long computed reports stay cached.
func WithCacheTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.CacheTTL = ttl
	}
}

// WithDueSoonDays sets the default due-soon window.
func WithDueSoonDays(days int) Option {
	return func(o *options) {
		o.DueSoonDays = days
	}
}
