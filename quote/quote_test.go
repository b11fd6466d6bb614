// Copyright (c) 2025 BVK Chaitanya

package quote

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bvk/goldalert/threshold"
	"github.com/bvk/goldalert/upstream"
	"github.com/shopspring/decimal"
)

func TestNew(t *testing.T) {
	q := New(decimal.NewFromInt(3000), decimal.NewFromInt(16000), time.Now())

	if got := q.PerGramUSD.StringFixed(4); got != "96.4522" {
		t.Fatalf("want 96.4522 usd per gram, got %s", got)
	}
	if got := q.RoundedIDR(); got != 1543235 {
		t.Fatalf("want 1543235 idr per gram, got %d", got)
	}

	if !q.Below(1543235) {
		t.Fatalf("1543234.68 must be below 1543235")
	}
	if q.Below(1543234) {
		t.Fatalf("1543234.68 must not be below 1543234")
	}
	if q.Below(threshold.DefaultPerGram) {
		t.Fatalf("quote must not be below the default threshold")
	}
}

type fakeGold struct {
	price decimal.Decimal
	err   error
}

func (f *fakeGold) PerOunceUSD(context.Context) (decimal.Decimal, error) {
	return f.price, f.err
}

type fakeRates struct {
	rate decimal.Decimal
	err  error
}

func (f *fakeRates) RateFromUSD(context.Context, string) (decimal.Decimal, error) {
	return f.rate, f.err
}

func newStore(t *testing.T) *threshold.Store {
	s, err := threshold.New(filepath.Join(t.TempDir(), "threshold.json"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestFetcher(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	gold := &fakeGold{price: decimal.NewFromInt(3000)}
	rates := &fakeRates{rate: decimal.NewFromInt(15000)}
	f := NewFetcher(gold, rates, store)

	// Default exchange rate before any refresh.
	q, err := f.Fetch(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !q.USDToIDR.Equal(decimal.NewFromInt(threshold.DefaultUSDToIDR)) {
		t.Fatalf("want default rate, got %s", q.USDToIDR)
	}

	if _, err := f.RefreshRate(ctx); err != nil {
		t.Fatal(err)
	}
	q, err = f.Fetch(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !q.USDToIDR.Equal(decimal.NewFromInt(15000)) {
		t.Fatalf("want refreshed rate 15000, got %s", q.USDToIDR)
	}

	// Failed refresh keeps the last stored rate.
	rates.err = upstream.ErrNetwork
	if _, err := f.RefreshRate(ctx); !errors.Is(err, upstream.ErrNetwork) {
		t.Fatalf("want ErrNetwork, got %v", err)
	}
	cfg, err := store.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Rate() != 15000 {
		t.Fatalf("want stored rate 15000, got %v", cfg.Rate())
	}
	if cfg.PerGramIDR != threshold.DefaultPerGram {
		t.Fatalf("rate refresh must not change the threshold, got %d", cfg.PerGramIDR)
	}
}

func TestFetcherErrors(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	gold := &fakeGold{err: upstream.ErrUpstream}
	f := NewFetcher(gold, nil, store)
	if _, err := f.Fetch(ctx); !errors.Is(err, upstream.ErrUpstream) {
		t.Fatalf("want ErrUpstream, got %v", err)
	}
	if _, err := f.RefreshRate(ctx); err == nil {
		t.Fatalf("refresh without a rate source must fail")
	}

	if err := os.WriteFile(store.Path(), []byte("{"), 0600); err != nil {
		t.Fatal(err)
	}
	gold.err = nil
	gold.price = decimal.NewFromInt(3000)
	if _, err := f.Fetch(ctx); !errors.Is(err, threshold.ErrStorage) {
		t.Fatalf("want ErrStorage, got %v", err)
	}
}
