// Package scheduler owns the background work of the process: recurring
// tasks on fixed intervals (deletion sweep, retention enforcement, audit
// retry) and a bounded queue of one-off jobs such as subject rights
// processing. Nothing runs until Start and everything stops with Stop.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	dErrors "voxguard/pkg/domain-errors"
)

// Task is a recurring unit of work. A task never overlaps with itself.
type Task struct {
	Name     string
	Interval time.Duration
	// RunOnStart runs the task once immediately instead of waiting a full
	// interval.
	RunOnStart bool
	Run        func(ctx context.Context) error
}

type job struct {
	name string
	run  func(ctx context.Context) error
}

type Scheduler struct {
	tasks     []Task
	queueSize int
	workers   int
	logger    *slog.Logger
	metrics   *Metrics

	mu      sync.Mutex
	queue   chan job
	cancel  context.CancelFunc
	group   *errgroup.Group
	running bool
}

type Option func(*Scheduler)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

func WithQueueSize(n int) Option {
	return func(s *Scheduler) {
		s.queueSize = n
	}
}

func WithWorkers(n int) Option {
	return func(s *Scheduler) {
		s.workers = n
	}
}

func New(tasks []Task, opts ...Option) (*Scheduler, error) {
	s := &Scheduler{
		queueSize: 128,
		workers:   2,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.queueSize <= 0 || s.workers <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "queue size and worker count must be positive")
	}
	seen := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		if t.Name == "" || t.Run == nil {
			return nil, dErrors.New(dErrors.CodeValidation, "task name and run function are required")
		}
		if t.Interval <= 0 {
			return nil, dErrors.New(dErrors.CodeValidation, "task "+t.Name+" needs a positive interval")
		}
		if seen[t.Name] {
			return nil, dErrors.New(dErrors.CodeValidation, "duplicate task "+t.Name)
		}
		seen[t.Name] = true
	}
	s.tasks = tasks
	return s, nil
}

// Start launches every task loop and the queue workers. They run until
// Stop is called or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return dErrors.New(dErrors.CodeConflict, "scheduler already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	s.queue = make(chan job, s.queueSize)
	s.cancel = cancel
	s.group = g
	s.running = true

	for _, t := range s.tasks {
		g.Go(func() error {
			s.loop(gctx, t)
			return nil
		})
	}
	queue := s.queue
	for range s.workers {
		g.Go(func() error {
			s.work(gctx, queue)
			return nil
		})
	}
	s.logInfo(ctx, "scheduler started", "tasks", len(s.tasks), "workers", s.workers)
	return nil
}

// Stop cancels every loop and waits for in-flight runs to return, or for
// ctx to expire. Queued jobs that never started are dropped.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.cancel()
	g := s.group
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.logInfo(ctx, "scheduler stopped")
		return nil
	case <-ctx.Done():
		return dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "scheduler did not stop in time")
	}
}

// Enqueue hands a one-off job to the workers without blocking.
func (s *Scheduler) Enqueue(ctx context.Context, name string, run func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		s.metrics.incDropped()
		return dErrors.New(dErrors.CodeInternal, "scheduler is not running")
	}
	select {
	case s.queue <- job{name: name, run: run}:
		s.metrics.setDepth(len(s.queue))
		return nil
	default:
		s.metrics.incDropped()
		if s.logger != nil {
			s.logger.WarnContext(ctx, "job queue full", "job", name)
		}
		return dErrors.New(dErrors.CodeInternal, "job queue is full")
	}
}

func (s *Scheduler) loop(ctx context.Context, t Task) {
	if t.RunOnStart {
		s.run(ctx, t.Name, t.Run)
	}
	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.run(ctx, t.Name, t.Run)
		}
	}
}

func (s *Scheduler) work(ctx context.Context, queue <-chan job) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-queue:
			s.metrics.setDepth(len(queue))
			s.run(ctx, j.name, j.run)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, name string, fn func(context.Context) error) {
	start := time.Now()
	err := fn(ctx)
	s.metrics.observe(name, err, time.Since(start).Seconds())
	if err != nil && ctx.Err() == nil && s.logger != nil {
		s.logger.WarnContext(ctx, "background run failed", "name", name, "error", err)
	}
}

func (s *Scheduler) logInfo(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, msg, args...)
	}
}
