// Copyright (c) 2025 BVK Chaitanya

package quote

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bvk/goldalert/threshold"
	"github.com/shopspring/decimal"
)

// GoldSource returns the gold price per troy ounce in USD.
type GoldSource interface {
	PerOunceUSD(ctx context.Context) (decimal.Decimal, error)
}

// RateSource returns the exchange rate from USD to the input currency.
type RateSource interface {
	RateFromUSD(ctx context.Context, currency string) (decimal.Decimal, error)
}

// ConfigStore is the subset of threshold.Store used for the cached exchange
// rate.
type ConfigStore interface {
	Get(ctx context.Context) (*threshold.Config, error)
	Update(ctx context.Context, fn func(*threshold.Config) error) error
}

// Fetcher creates quotes. Exchange rate is not fetched for every quote; it is
// read from the config store where RefreshRate keeps it updated. When the
// store has no rate, threshold.DefaultUSDToIDR is used.
type Fetcher struct {
	gold  GoldSource
	rates RateSource
	store ConfigStore

	now func() time.Time
}

// NewFetcher creates a quote fetcher. Rates can be nil, in which case
// RefreshRate always fails and quotes use the stored or default rate.
func NewFetcher(gold GoldSource, rates RateSource, store ConfigStore) *Fetcher {
	return &Fetcher{
		gold:  gold,
		rates: rates,
		store: store,
		now:   time.Now,
	}
}

// Fetch returns a fresh quote with the current gold price and the cached
// exchange rate.
func (f *Fetcher) Fetch(ctx context.Context) (*Quote, error) {
	perOunce, err := f.gold.PerOunceUSD(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not fetch gold price: %w", err)
	}
	cfg, err := f.store.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not load cached exchange rate: %w", err)
	}
	rate := decimal.NewFromFloat(cfg.Rate())
	q := New(perOunce, rate, f.now())
	slog.InfoContext(ctx, "fetched gold price", "idr-per-gram", q.RoundedIDR(), "usd-per-gram", q.PerGramUSD.StringFixed(2), "usd-to-idr", rate)
	return q, nil
}

// RefreshRate fetches the latest USD to IDR rate and saves it in the config
// store.
func (f *Fetcher) RefreshRate(ctx context.Context) (decimal.Decimal, error) {
	if f.rates == nil {
		return decimal.Zero, fmt.Errorf("exchange rate source is not configured")
	}
	rate, err := f.rates.RateFromUSD(ctx, "IDR")
	if err != nil {
		return decimal.Zero, fmt.Errorf("could not fetch exchange rate: %w", err)
	}
	update := func(cfg *threshold.Config) error {
		v := rate.InexactFloat64()
		cfg.USDToIDR = &v
		return nil
	}
	if err := f.store.Update(ctx, update); err != nil {
		return decimal.Zero, fmt.Errorf("could not save exchange rate: %w", err)
	}
	slog.InfoContext(ctx, "updated usd to idr exchange rate", "usd-to-idr", rate)
	return rate, nil
}
