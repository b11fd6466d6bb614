// Copyright (c) 2025 BVK Chaitanya

// Package scheduler runs tasks on fixed intervals using a cron scheduler.
// Every task runs once immediately when the scheduler is started and then on
// every tick. A tick is skipped when the previous run of the same task is
// still in progress.
//
// Failed runs are retried with exponential backoff till the next tick is
// due. Consecutive failures beyond a limit are reported through the
// OnFailure callback, once, till the task succeeds again.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/bvk/goldalert/ctxutil"
	"github.com/robfig/cron/v3"
)

type Func func(ctx context.Context) error

type Task struct {
	Name string

	Interval time.Duration

	Func Func
}

type Options struct {
	// RetryBase is the wait before the first retry of a failed run. Waits
	// double on every retry.
	RetryBase time.Duration

	// FailureLimit is the number of consecutive failed runs before OnFailure
	// is invoked.
	FailureLimit int

	// OnFailure is invoked when a task fails FailureLimit times in a row.
	OnFailure func(ctx context.Context, task string, failures int, err error)

	// OnRecover is invoked when a task succeeds after OnFailure was invoked.
	OnRecover func(ctx context.Context, task string, failures int)
}

func (v *Options) setDefaults() {
	if v.RetryBase == 0 {
		v.RetryBase = time.Second
	}
	if v.FailureLimit == 0 {
		v.FailureLimit = 3
	}
}

func (v *Options) Check() error {
	if v.RetryBase < 0 || v.FailureLimit < 0 {
		return os.ErrInvalid
	}
	return nil
}

// Status is a snapshot of a task's run history.
type Status struct {
	Name string `json:"name"`

	Interval time.Duration `json:"interval"`

	Runs    int64 `json:"runs"`
	Skipped int64 `json:"skipped"`

	LastRun   time.Time `json:"last_run"`
	LastError string    `json:"last_error,omitempty"`

	ConsecutiveFailures int `json:"consecutive_failures"`
}

type task struct {
	Task

	mu       sync.Mutex
	status   Status
	notified bool
}

type Scheduler struct {
	cg ctxutil.CloseGroup

	opts Options

	cron *cron.Cron

	mu      sync.Mutex
	started bool
	tasks   []*task
}

// New creates a scheduler with no tasks.
func New(opts *Options) (*Scheduler, error) {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}
	s := &Scheduler{
		opts: *opts,
		cron: cron.New(cron.WithLogger(cronLogger{})),
	}
	return s, nil
}

// Add registers a task. Tasks cannot be added after the scheduler is started.
func (s *Scheduler) Add(t Task) error {
	if len(t.Name) == 0 || t.Interval <= 0 || t.Func == nil {
		return fmt.Errorf("task name, interval and function are required: %w", os.ErrInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("scheduler is already started: %w", os.ErrInvalid)
	}
	for _, v := range s.tasks {
		if v.Name == t.Name {
			return fmt.Errorf("task %q: %w", t.Name, os.ErrExist)
		}
	}
	s.tasks = append(s.tasks, &task{
		Task:   t,
		status: Status{Name: t.Name, Interval: t.Interval},
	})
	return nil
}

// Start launches all tasks in the background. Tasks are stopped when the
// input context is canceled or the scheduler is closed.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return os.ErrExist
	}
	s.started = true

	cgctx := s.cg.Context()
	ctx, cancel := context.WithCancelCause(ctx)
	context.AfterFunc(cgctx, func() { cancel(context.Cause(cgctx)) })
	context.AfterFunc(ctx, func() {
		slog.Info("scheduler is stopped", "cause", context.Cause(ctx))
		s.cron.Stop()
	})

	for _, t := range s.tasks {
		t := t
		run := cron.FuncJob(func() { s.runOnce(ctx, t) })
		job := cron.NewChain(cron.SkipIfStillRunning(skipLogger{t})).Then(run)

		s.cron.Schedule(every(t.Interval), job)
		s.cg.Go(func(context.Context) { job.Run() })
	}
	s.cron.Start()
	return nil
}

// Close stops all tasks and waits for in-progress runs to return.
func (s *Scheduler) Close() error {
	stopped := s.cron.Stop()
	s.cg.Close()
	<-stopped.Done()
	return nil
}

// Statuses returns the run history of all tasks.
func (s *Scheduler) Statuses() []Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	var vs []Status
	for _, t := range s.tasks {
		t.mu.Lock()
		vs = append(vs, t.status)
		t.mu.Unlock()
	}
	return vs
}

// every is a fixed delay schedule. Unlike cron.Every it is not rounded to
// whole seconds.
type every time.Duration

func (v every) Next(t time.Time) time.Time {
	return t.Add(time.Duration(v))
}

// skipLogger receives the skip notices of a task from
// cron.SkipIfStillRunning.
type skipLogger struct {
	t *task
}

func (v skipLogger) Info(msg string, _ ...interface{}) {
	slog.Warn("previous run is still in progress; tick is skipped", "task", v.t.Name)
	v.t.mu.Lock()
	v.t.status.Skipped++
	v.t.mu.Unlock()
}

func (v skipLogger) Error(err error, msg string, kvs ...interface{}) {
	slog.Error(msg, append(kvs, "task", v.t.Name, "err", err)...)
}

type cronLogger struct{}

func (cronLogger) Info(msg string, kvs ...interface{}) {
	slog.Debug("cron: "+msg, kvs...)
}

func (cronLogger) Error(err error, msg string, kvs ...interface{}) {
	slog.Error("cron: "+msg, append(kvs, "err", err)...)
}

func (s *Scheduler) runOnce(ctx context.Context, t *task) {
	if context.Cause(ctx) != nil {
		return
	}

	start := time.Now()
	deadline := start.Add(t.Interval)

	attempt := 0
	wrapper := func(ctx context.Context) error {
		attempt++
		if err := t.Func(ctx); err != nil {
			slog.Warn("task run has failed", "task", t.Name, "attempt", attempt, "err", err)
			return err
		}
		return nil
	}
	err := ctxutil.RetryBackoff(ctx, s.opts.RetryBase, deadline, wrapper)
	if err != nil && context.Cause(ctx) != nil {
		return
	}

	t.mu.Lock()
	t.status.Runs++
	t.status.LastRun = start
	if err == nil {
		failures, notified := t.status.ConsecutiveFailures, t.notified
		t.status.LastError = ""
		t.status.ConsecutiveFailures = 0
		t.notified = false
		t.mu.Unlock()

		if notified && s.opts.OnRecover != nil {
			s.opts.OnRecover(ctx, t.Name, failures)
		}
		return
	}

	t.status.LastError = err.Error()
	t.status.ConsecutiveFailures++
	failures := t.status.ConsecutiveFailures
	notify := failures >= s.opts.FailureLimit && !t.notified
	if notify {
		t.notified = true
	}
	t.mu.Unlock()

	slog.Error("task has failed after retries", "task", t.Name, "attempts", attempt, "consecutive-failures", failures, "err", err)
	if notify && s.opts.OnFailure != nil {
		s.opts.OnFailure(ctx, t.Name, failures, err)
	}
}
