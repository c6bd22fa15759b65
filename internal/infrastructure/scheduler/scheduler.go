// Package scheduler runs the periodic background jobs: pulling new mail
// into the ticket pipeline and reminding assignees about overdue tickets.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lorrc/sap-helpdesk/internal/infrastructure/logging"
	"github.com/lorrc/sap-helpdesk/internal/infrastructure/metrics"
)

var (
	ErrUnknownJob   = errors.New("unknown job")
	ErrDuplicateJob = errors.New("job already registered")
)

// Handler is the body of a scheduled job.
type Handler func(ctx context.Context) error

// JobStatus is a snapshot of one registered job.
type JobStatus struct {
	Name     string    `json:"name"`
	Schedule string    `json:"schedule"`
	Next     time.Time `json:"next"`
	LastRun  time.Time `json:"lastRun"`
	LastErr  string    `json:"lastError,omitempty"`
}

type job struct {
	name     string
	schedule string
	handler  Handler
	entryID  cron.EntryID
	lastRun  time.Time
	lastErr  error
}

// Service wraps a cron engine. Overlapping runs of the same job are skipped.
type Service struct {
	cron       *cron.Cron
	parser     cron.Parser
	logger     *slog.Logger
	metrics    *metrics.Metrics
	jobTimeout time.Duration
	now        func() time.Time

	mu   sync.Mutex
	jobs map[string]*job

	ctx    context.Context
	cancel context.CancelFunc
}

func NewService(opts ...Option) *Service {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.Logger.With("component", "scheduler")
	engine := o.Cron
	if engine == nil {
		cronLog := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelWarn))
		engine = cron.New(
			cron.WithLocation(o.Location),
			cron.WithParser(o.Parser),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		cron:       engine,
		parser:     o.Parser,
		logger:     logger,
		metrics:    o.Metrics,
		jobTimeout: o.JobTimeout,
		now:        o.Now,
		jobs:       make(map[string]*job),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// AddJob registers handler under name on a cron spec. An empty spec
// registers the job for RunNow only.
func (s *Service) AddJob(name, spec string, handler Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, name)
	}

	j := &job{name: name, schedule: spec, handler: handler}
	if spec != "" {
		if _, err := s.parser.Parse(spec); err != nil {
			return fmt.Errorf("job %s: invalid schedule %q: %w", name, spec, err)
		}
		id, err := s.cron.AddFunc(spec, func() { _ = s.run(s.ctx, j) })
		if err != nil {
			return fmt.Errorf("job %s: %w", name, err)
		}
		j.entryID = id
	}
	s.jobs[name] = j

	s.logger.Info("job registered", "job", name, "schedule", spec)
	return nil
}

// RunNow executes a registered job synchronously and returns its error.
func (s *Service) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.run(ctx, j)
}

// Start begins firing scheduled jobs in the background.
func (s *Service) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.jobs))
}

// Stop cancels running jobs and waits for them to return, or for ctx.
func (s *Service) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Jobs lists registered jobs ordered by name.
func (s *Service) Jobs() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobStatus, 0, len(s.jobs))
	for _, j := range s.jobs {
		st := JobStatus{Name: j.name, Schedule: j.schedule, LastRun: j.lastRun}
		if j.entryID != 0 {
			st.Next = s.cron.Entry(j.entryID).Next
		}
		if j.lastErr != nil {
			st.LastErr = j.lastErr.Error()
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out
}

func (s *Service) run(ctx context.Context, j *job) error {
	ctx = logging.WithJob(ctx, j.name)
	if s.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.jobTimeout)
		defer cancel()
	}

	start := s.now()
	done := s.metrics.RecordJob(j.name)
	err := j.handler(ctx)
	done(err)

	s.mu.Lock()
	j.lastRun = start
	j.lastErr = err
	s.mu.Unlock()

	if err != nil {
		s.logger.ErrorContext(ctx, "job failed", "error", err)
		return err
	}
	s.logger.InfoContext(ctx, "job completed", "duration_ms", s.now().Sub(start).Milliseconds())
	return nil
}
