// Copyright (c) 2023 BVK Chaitanya

package ctxutil

import (
	"context"
	"math"
	"time"

	"github.com/jpillora/backoff"
)

// Sleep blocks the caller for given timeout duration. Returns early if the
// input context is canceled.
func Sleep(ctx context.Context, d time.Duration) {
	sctx, scancel := context.WithTimeout(ctx, d)
	<-sctx.Done()
	scancel()
}

// Retry runs the input function till it succeeds or till the input context is
// canceled. Returns nil if the input function is successful or last non-nil
// error from the function after the context has expired.
func Retry(ctx context.Context, interval time.Duration, f func() error) (err error) {
	for err = f(); err != nil && context.Cause(ctx) == nil; err = f() {
		Sleep(ctx, interval)
	}
	return
}

// RetryTimeout is like Retry, but gives up after the input timeout.
func RetryTimeout(ctx context.Context, interval, timeout time.Duration, f func() error) error {
	sctx, scancel := context.WithTimeout(ctx, timeout)
	defer scancel()
	return Retry(sctx, interval, f)
}

// Backoff returns the wait duration before the n-th retry (zero based) which
// is base*2^n, limited to the input limit.
func Backoff(n int, base, limit time.Duration) time.Duration {
	b := &backoff.Backoff{Min: base, Max: limit, Factor: 2}
	return b.ForAttempt(float64(n))
}

// RetryBackoff runs the input function until it succeeds, the context is
// canceled or the retries would go past the deadline. Waits between the
// attempts grow exponentially from base. Returns the last error from the input
// function.
func RetryBackoff(ctx context.Context, base time.Duration, deadline time.Time, f func(ctx context.Context) error) error {
	var err error
	for i := 0; ; i++ {
		if err = f(ctx); err == nil {
			return nil
		}
		wait := Backoff(i, base, math.MaxInt64)
		if !time.Now().Add(wait).Before(deadline) {
			return err
		}
		Sleep(ctx, wait)
		if context.Cause(ctx) != nil {
			return err
		}
	}
}
