// Copyright (c) 2023 BVK Chaitanya

package server

import (
	"fmt"
	"os"
	"time"
)

type Options struct {
	// CheckInterval is the wait between gold price checks.
	CheckInterval time.Duration

	// RateInterval is the wait between exchange rate refreshes. It is also
	// the staleness bound for the cached exchange rate while the exchange
	// rate service is healthy.
	RateInterval time.Duration

	// RetryBase is the initial wait before retrying a failed task.
	RetryBase time.Duration

	// FailureLimit is the number of consecutive failures of a task after
	// which the operator is notified.
	FailureLimit int
}

func (v *Options) setDefaults() {
	if v.CheckInterval == 0 {
		v.CheckInterval = 15 * time.Minute
	}
	if v.RateInterval == 0 {
		v.RateInterval = 6 * time.Hour
	}
	if v.RetryBase == 0 {
		v.RetryBase = time.Second
	}
	if v.FailureLimit == 0 {
		v.FailureLimit = 3
	}
}

func (v *Options) Check() error {
	if v.CheckInterval < 0 {
		return fmt.Errorf("check interval %s cannot be negative: %w", v.CheckInterval, os.ErrInvalid)
	}
	if v.RateInterval < 0 {
		return fmt.Errorf("rate interval %s cannot be negative: %w", v.RateInterval, os.ErrInvalid)
	}
	if v.RetryBase < 0 || v.FailureLimit < 0 {
		return os.ErrInvalid
	}
	return nil
}
