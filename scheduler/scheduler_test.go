// Copyright (c) 2025 BVK Chaitanya

package scheduler

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestImmediateRun(t *testing.T) {
	ctx := context.Background()

	s, err := New(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	ch := make(chan struct{}, 1)
	if err := s.Add(Task{Name: "check", Interval: time.Hour, Func: func(context.Context) error {
		ch <- struct{}{}
		return nil
	}}); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}

	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatalf("task did not run immediately after start")
	}
}

func TestAddErrors(t *testing.T) {
	s, err := New(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	nop := func(context.Context) error { return nil }
	if err := s.Add(Task{Name: "", Interval: time.Second, Func: nop}); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("want os.ErrInvalid for empty name, got %v", err)
	}
	if err := s.Add(Task{Name: "a", Interval: 0, Func: nop}); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("want os.ErrInvalid for zero interval, got %v", err)
	}
	if err := s.Add(Task{Name: "a", Interval: time.Hour, Func: nop}); err != nil {
		t.Fatal(err)
	}
	if err := s.Add(Task{Name: "a", Interval: time.Hour, Func: nop}); !errors.Is(err, os.ErrExist) {
		t.Fatalf("want os.ErrExist for duplicate task, got %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := s.Add(Task{Name: "b", Interval: time.Hour, Func: nop}); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("want os.ErrInvalid after start, got %v", err)
	}
}

func TestSkipInFlight(t *testing.T) {
	ctx := context.Background()

	s, err := New(nil)
	if err != nil {
		t.Fatal(err)
	}

	var active, maxActive, runs atomic.Int32
	release := make(chan struct{})
	taskf := func(ctx context.Context) error {
		n := active.Add(1)
		defer active.Add(-1)
		if n > maxActive.Load() {
			maxActive.Store(n)
		}
		runs.Add(1)
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	}
	if err := s.Add(Task{Name: "slow", Interval: 10 * time.Millisecond, Func: taskf}); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}

	time.Sleep(200 * time.Millisecond)
	close(release)
	s.Close()

	if v := maxActive.Load(); v != 1 {
		t.Fatalf("want at most one active run, got %d", v)
	}
	st := s.Statuses()
	if len(st) != 1 {
		t.Fatalf("want one status, got %d", len(st))
	}
	if st[0].Skipped == 0 {
		t.Fatalf("want skipped ticks while the first run is blocked")
	}
}

func TestRetryBeforeNextTick(t *testing.T) {
	ctx := context.Background()

	s, err := New(&Options{RetryBase: 5 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	var attempts atomic.Int32
	done := make(chan struct{})
	taskf := func(ctx context.Context) error {
		if attempts.Add(1) < 3 {
			return errors.New("transient")
		}
		close(done)
		return nil
	}
	if err := s.Add(Task{Name: "flaky", Interval: time.Hour, Func: taskf}); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("task was not retried")
	}
}

func TestFailureNotice(t *testing.T) {
	ctx := context.Background()

	var mu sync.Mutex
	var failures, recoveries []int
	recovered := make(chan struct{})

	opts := &Options{
		RetryBase:    time.Hour,
		FailureLimit: 3,
		OnFailure: func(_ context.Context, task string, n int, err error) {
			mu.Lock()
			defer mu.Unlock()
			failures = append(failures, n)
		},
		OnRecover: func(_ context.Context, task string, n int) {
			mu.Lock()
			defer mu.Unlock()
			recoveries = append(recoveries, n)
			close(recovered)
		},
	}
	s, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	var runs atomic.Int32
	taskf := func(ctx context.Context) error {
		if runs.Add(1) <= 5 {
			return errors.New("upstream is down")
		}
		return nil
	}
	if err := s.Add(Task{Name: "check", Interval: 20 * time.Millisecond, Func: taskf}); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}

	select {
	case <-recovered:
	case <-time.After(5 * time.Second):
		t.Fatalf("task did not recover")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(failures) != 1 || failures[0] != 3 {
		t.Fatalf("want exactly one failure notice at 3 failures, got %v", failures)
	}
	if len(recoveries) != 1 || recoveries[0] != 5 {
		t.Fatalf("want one recovery notice after 5 failures, got %v", recoveries)
	}
}

func TestStopTicks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := New(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	var runs atomic.Int32
	taskf := func(context.Context) error {
		runs.Add(1)
		return nil
	}
	if err := s.Add(Task{Name: "tick", Interval: 10 * time.Millisecond, Func: taskf}); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}

	time.Sleep(100 * time.Millisecond)
	if v := runs.Load(); v < 2 {
		t.Fatalf("want repeated runs on every tick, got %d", v)
	}

	cancel()
	time.Sleep(50 * time.Millisecond)
	stopped := runs.Load()
	time.Sleep(100 * time.Millisecond)
	if v := runs.Load(); v != stopped {
		t.Fatalf("want no runs after the context is canceled, got %d more", v-stopped)
	}
}
