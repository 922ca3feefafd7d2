// Package jobs runs the periodic reminder, escalation and expiry work.
//
// A job never runs twice at the same time. Cron ticks that find the job
// still running are skipped, and so are manual runs, which report a conflict.
package jobs

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"estate/internal/apperr"
	"estate/internal/metrics"
)

type Func func(ctx context.Context) error

type job struct {
	name string
	spec string
	fn   Func
	mu   sync.Mutex
}

type Scheduler struct {
	cron    *cron.Cron
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu   sync.Mutex
	ctx  context.Context
	jobs map[string]*job
}

func NewScheduler(loc *time.Location, logger *zap.Logger, m *metrics.Metrics) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	cl := cronLogger{logger: logger.Sugar()}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger:  logger,
		metrics: m,
		now:     time.Now,
		ctx:     context.Background(),
		jobs:    make(map[string]*job),
	}
}

// Register schedules fn under name. The spec is a standard five-field cron
// expression evaluated in the scheduler's location.
func (s *Scheduler) Register(name, spec string, fn Func) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[name]; ok {
		return apperr.Conflictf("job %s already registered", name)
	}
	j := &job{name: name, spec: spec, fn: fn}
	if _, err := s.cron.AddFunc(spec, func() { s.execute(s.baseContext(), j) }); err != nil {
		return err
	}
	s.jobs[name] = j
	return nil
}

// Names lists registered jobs in a stable order.
func (s *Scheduler) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Strings("jobs", s.Names()))
}

// Stop waits for running jobs to return or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out")
	}
}

// RunNow executes a job immediately on the caller's goroutine.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return apperr.NotFound("job not found")
	}
	if !s.execute(ctx, j) {
		return apperr.Conflictf("job %s is already running", name)
	}
	return nil
}

func (s *Scheduler) baseContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// execute reports false when the job was already running.
func (s *Scheduler) execute(ctx context.Context, j *job) bool {
	if !j.mu.TryLock() {
		s.logger.Info("job skipped, previous run still in progress", zap.String("job", j.name))
		s.metrics.ObserveJob(j.name, "skipped", 0)
		return false
	}
	defer j.mu.Unlock()

	start := s.now()
	err := j.fn(ctx)
	elapsed := s.now().Sub(start)
	if err != nil {
		s.logger.Error("job failed", zap.String("job", j.name), zap.Duration("elapsed", elapsed), zap.Error(err))
		s.metrics.ObserveJob(j.name, "error", elapsed)
		return true
	}
	s.logger.Info("job finished", zap.String("job", j.name), zap.Duration("elapsed", elapsed))
	s.metrics.ObserveJob(j.name, "ok", elapsed)
	return true
}

type cronLogger struct {
	logger *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
