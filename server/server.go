// Copyright (c) 2023 BVK Chaitanya

// Package server ties the threshold store, the quote fetcher, the chat
// notifier and the scheduler into the running gold price alert service.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bvk/goldalert/message"
	"github.com/bvk/goldalert/quote"
	"github.com/bvk/goldalert/scheduler"
	"github.com/bvk/goldalert/threshold"
	"github.com/bvkgo/topic"
	"github.com/shopspring/decimal"
)

const (
	CheckPriceTask  = "check-price"
	RefreshRateTask = "refresh-rate"
)

// Store holds the alert threshold and the cached exchange rate.
type Store interface {
	Get(ctx context.Context) (*threshold.Config, error)
	Update(ctx context.Context, fn func(*threshold.Config) error) error
}

// Fetcher creates gold price quotes.
type Fetcher interface {
	Fetch(ctx context.Context) (*quote.Quote, error)
	RefreshRate(ctx context.Context) (decimal.Decimal, error)
}

// Notifier delivers alert messages to the destination chat.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Operator delivers notices about the service health to the operator.
type Operator interface {
	SendMessage(ctx context.Context, at time.Time, text string) error
}

type Server struct {
	opts Options

	store    Store
	fetcher  Fetcher
	notifier Notifier
	operator Operator

	refreshRate bool

	sched *scheduler.Scheduler

	quoteTopic *topic.Topic[*quote.Quote]

	startTime time.Time

	mu        sync.Mutex
	lastCheck *CheckResult
}

// CheckResult is the outcome of the most recent price check.
type CheckResult struct {
	Time time.Time `json:"time"`

	PerGramIDR int64 `json:"idr_per_gram,omitempty"`
	Threshold  int64 `json:"threshold,omitempty"`
	Alerted    bool  `json:"alerted"`

	Error string `json:"error,omitempty"`
}

// New creates the service. Operator can be nil, in which case operator
// notices are only logged. Exchange rate is refreshed periodically only when
// refreshRate is true.
func New(store Store, fetcher Fetcher, notifier Notifier, operator Operator, refreshRate bool, opts *Options) (*Server, error) {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}

	s := &Server{
		opts:        *opts,
		store:       store,
		fetcher:     fetcher,
		notifier:    notifier,
		operator:    operator,
		refreshRate: refreshRate,
		quoteTopic:  topic.New[*quote.Quote](),
		startTime:   time.Now(),
	}

	sopts := &scheduler.Options{
		RetryBase:    opts.RetryBase,
		FailureLimit: opts.FailureLimit,
		OnFailure:    s.onTaskFailure,
		OnRecover:    s.onTaskRecover,
	}
	sched, err := scheduler.New(sopts)
	if err != nil {
		return nil, err
	}
	if s.refreshRate {
		task := scheduler.Task{
			Name:     RefreshRateTask,
			Interval: opts.RateInterval,
			Func:     s.RefreshRate,
		}
		if err := sched.Add(task); err != nil {
			return nil, err
		}
	}
	task := scheduler.Task{
		Name:     CheckPriceTask,
		Interval: opts.CheckInterval,
		Func:     s.CheckPrice,
	}
	if err := sched.Add(task); err != nil {
		return nil, err
	}
	s.sched = sched
	return s, nil
}

// Start runs the scheduled tasks in the background.
func (s *Server) Start(ctx context.Context) error {
	if !s.refreshRate {
		slog.Warn("exchange rate refresh is disabled; using the stored or default rate")
	}
	return s.sched.Start(ctx)
}

func (s *Server) Close() error {
	s.sched.Close()
	s.quoteTopic.Close()
	return nil
}

// CheckPrice fetches a fresh quote and sends an alert when the price is
// strictly below the threshold. No alert is sent when the quote cannot be
// fetched.
func (s *Server) CheckPrice(ctx context.Context) (status error) {
	result := &CheckResult{Time: time.Now()}
	defer func() {
		if status != nil {
			result.Error = status.Error()
		}
		s.mu.Lock()
		s.lastCheck = result
		s.mu.Unlock()
	}()

	q, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("could not fetch gold price quote: %w", err)
	}
	if !s.quoteTopic.Send(q) {
		slog.Warn("could not publish latest quote; topic is closed (ignored)")
	}
	result.PerGramIDR = q.RoundedIDR()

	cfg, err := s.store.Get(ctx)
	if err != nil {
		return fmt.Errorf("could not read alert threshold: %w", err)
	}
	result.Threshold = cfg.PerGramIDR

	if !q.Below(cfg.PerGramIDR) {
		return nil
	}

	slog.Info("gold price is below the threshold", "idr-per-gram", q.RoundedIDR(), "threshold", cfg.PerGramIDR)
	if err := s.notifier.Notify(ctx, message.Alert(q, cfg.PerGramIDR, q.Time)); err != nil {
		return fmt.Errorf("could not send price alert: %w", err)
	}
	result.Alerted = true
	return nil
}

// RefreshRate updates the cached exchange rate.
func (s *Server) RefreshRate(ctx context.Context) error {
	if _, err := s.fetcher.RefreshRate(ctx); err != nil {
		return err
	}
	return nil
}

// LastCheck returns the result of the most recent price check.
func (s *Server) LastCheck() (*CheckResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastCheck == nil {
		return nil, false
	}
	v := *s.lastCheck
	return &v, true
}

// LatestQuote returns the most recent quote fetched by the service.
func (s *Server) LatestQuote() (*quote.Quote, bool) {
	return topic.Recent(s.quoteTopic)
}

func (s *Server) onTaskFailure(ctx context.Context, task string, failures int, err error) {
	slog.Error("scheduled task is failing repeatedly", "task", task, "failures", failures, "err", err)
	s.notifyOperator(ctx, message.TaskFailing(task, failures, err))
}

func (s *Server) onTaskRecover(ctx context.Context, task string, failures int) {
	slog.Info("scheduled task has recovered", "task", task, "failures", failures)
	s.notifyOperator(ctx, message.TaskRecovered(task, failures))
}

func (s *Server) notifyOperator(ctx context.Context, text string) {
	if s.operator == nil {
		return
	}
	if err := s.operator.SendMessage(ctx, time.Now(), text); err != nil {
		slog.Warn("could not send operator notice (ignored)", "err", err)
	}
}
