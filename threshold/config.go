// Copyright (c) 2025 BVK Chaitanya

package threshold

import (
	"errors"
	"fmt"
	"math"
)

const (
	// MinPerGram and MaxPerGram bound the alert threshold accepted from users.
	MinPerGram int64 = 100000
	MaxPerGram int64 = 2000000

	// DefaultPerGram is the threshold written when the store is created.
	DefaultPerGram int64 = 1000000

	// DefaultUSDToIDR is the exchange rate used when none was stored yet.
	DefaultUSDToIDR = 16000
)

var (
	// ErrStorage is wrapped by all errors due to unreadable, unwritable or
	// malformed threshold files.
	ErrStorage = errors.New("threshold storage error")

	// ErrOutOfRange is wrapped by validation errors for the threshold values
	// outside the [MinPerGram, MaxPerGram] range.
	ErrOutOfRange = errors.New("threshold out of range")
)

// Config is the persisted alert configuration.
type Config struct {
	// PerGramIDR is the price per gram in rupiah below which alerts are sent.
	PerGramIDR int64 `json:"idr_per_gram"`

	// USDToIDR holds the last fetched exchange rate. It is nil if the rate was
	// never fetched.
	USDToIDR *float64 `json:"usd_to_idr,omitempty"`
}

// Default returns the initial configuration.
func Default() *Config {
	rate := float64(DefaultUSDToIDR)
	return &Config{
		PerGramIDR: DefaultPerGram,
		USDToIDR:   &rate,
	}
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	v := &Config{PerGramIDR: c.PerGramIDR}
	if c.USDToIDR != nil {
		rate := *c.USDToIDR
		v.USDToIDR = &rate
	}
	return v
}

// Rate returns the stored exchange rate or the default rate.
func (c *Config) Rate() float64 {
	if c.USDToIDR == nil || *c.USDToIDR <= 0 {
		return DefaultUSDToIDR
	}
	return *c.USDToIDR
}

// Check validates the configuration loaded from the file.
func (c *Config) Check() error {
	if c.PerGramIDR <= 0 {
		return fmt.Errorf("idr_per_gram must be a positive number: %w", ErrStorage)
	}
	if c.USDToIDR != nil {
		if v := *c.USDToIDR; v <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
			return fmt.Errorf("usd_to_idr must be a positive number: %w", ErrStorage)
		}
	}
	return nil
}

// Validate checks that a user supplied threshold is within the allowed range.
func Validate(perGram int64) error {
	if perGram < MinPerGram || perGram > MaxPerGram {
		return fmt.Errorf("threshold %d is outside [%d, %d]: %w", perGram, MinPerGram, MaxPerGram, ErrOutOfRange)
	}
	return nil
}
