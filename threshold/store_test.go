// Copyright (c) 2025 BVK Chaitanya

package threshold

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStoreDefault(t *testing.T) {
	ctx := context.Background()
	fpath := filepath.Join(t.TempDir(), "threshold.json")

	s, err := New(fpath)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(fpath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("threshold file must not exist before first get")
	}

	cfg, err := s.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.PerGramIDR != DefaultPerGram {
		t.Fatalf("want default threshold %d, got %d", DefaultPerGram, cfg.PerGramIDR)
	}
	if cfg.Rate() != DefaultUSDToIDR {
		t.Fatalf("want default rate %d, got %v", DefaultUSDToIDR, cfg.Rate())
	}
	if _, err := os.Stat(fpath); err != nil {
		t.Fatalf("threshold file must be created by first get: %v", err)
	}

	for i := 0; i < 3; i++ {
		again, err := s.Get(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if again.PerGramIDR != DefaultPerGram {
			t.Fatalf("want %d, got %d", DefaultPerGram, again.PerGramIDR)
		}
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	fpath := filepath.Join(t.TempDir(), "threshold.json")

	s, err := New(fpath)
	if err != nil {
		t.Fatal(err)
	}

	rate := 16250.5
	want := &Config{PerGramIDR: 1543246, USDToIDR: &rate}
	if err := s.Set(ctx, want); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.PerGramIDR != want.PerGramIDR || got.Rate() != rate {
		t.Fatalf("want %+v, got %+v", want, got)
	}

	// A fresh store on the same file observes the write.
	s2, err := New(fpath)
	if err != nil {
		t.Fatal(err)
	}
	got2, err := s2.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got2.PerGramIDR != want.PerGramIDR {
		t.Fatalf("want %d, got %d", want.PerGramIDR, got2.PerGramIDR)
	}

	// No temporary files are left behind.
	matches, err := filepath.Glob(fpath + ".*.tmp")
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Fatalf("unexpected temporary files: %v", matches)
	}
}

func TestStoreUpdate(t *testing.T) {
	ctx := context.Background()
	s, err := New(filepath.Join(t.TempDir(), "threshold.json"))
	if err != nil {
		t.Fatal(err)
	}

	setRate := func(cfg *Config) error {
		rate := 15900.0
		cfg.USDToIDR = &rate
		return nil
	}
	if err := s.Update(ctx, setRate); err != nil {
		t.Fatal(err)
	}
	setThreshold := func(cfg *Config) error {
		cfg.PerGramIDR = 1200000
		return nil
	}
	if err := s.Update(ctx, setThreshold); err != nil {
		t.Fatal(err)
	}

	cfg, err := s.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.PerGramIDR != 1200000 || cfg.Rate() != 15900 {
		t.Fatalf("updates must not lose each other's fields, got %+v", cfg)
	}

	failed := func(cfg *Config) error {
		cfg.PerGramIDR = 1
		return os.ErrInvalid
	}
	if err := s.Update(ctx, failed); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("want os.ErrInvalid, got %v", err)
	}
	if cfg, err := s.Get(ctx); err != nil || cfg.PerGramIDR != 1200000 {
		t.Fatalf("failed update must not be written: %+v, %v", cfg, err)
	}
}

func TestStoreMalformed(t *testing.T) {
	ctx := context.Background()

	inputs := []string{
		"not json",
		`{"idr_per_gram": "abc"}`,
		`{"usd_to_idr": 16000}`,
		`{"idr_per_gram": 1000000, "usd_to_idr": -1}`,
		`{"idr_per_gram": 1500000} garbage`,
		`{"idr_per_gram": 1500000}{"idr_per_gram": 5}`,
	}
	for _, input := range inputs {
		fpath := filepath.Join(t.TempDir(), "threshold.json")
		if err := os.WriteFile(fpath, []byte(input), 0600); err != nil {
			t.Fatal(err)
		}
		s, err := New(fpath)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := s.Get(ctx); !errors.Is(err, ErrStorage) {
			t.Fatalf("input %q: want ErrStorage, got %v", input, err)
		}
		data, err := os.ReadFile(fpath)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != input {
			t.Fatalf("malformed file must not be replaced with defaults")
		}
	}
}

func TestStoreLocked(t *testing.T) {
	ctx := context.Background()
	fpath := filepath.Join(t.TempDir(), "threshold.json")

	s, err := New(fpath)
	if err != nil {
		t.Fatal(err)
	}
	s.lockWait = 50 * time.Millisecond

	if err := s.Set(ctx, &Config{PerGramIDR: 1200000}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(fpath + ".lock"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("lock file must be removed after the write: %v", err)
	}

	// Parent process is alive, so the lock looks held by another process.
	owner := fmt.Sprintf("%d\n", os.Getppid())
	if err := os.WriteFile(fpath+".lock", []byte(owner), 0600); err != nil {
		t.Fatal(err)
	}
	setThreshold := func(cfg *Config) error {
		cfg.PerGramIDR = 1500000
		return nil
	}
	if err := s.Update(ctx, setThreshold); !errors.Is(err, ErrStorage) {
		t.Fatalf("want ErrStorage while another process holds the lock, got %v", err)
	}
	if cfg, err := s.Get(ctx); err != nil || cfg.PerGramIDR != 1200000 {
		t.Fatalf("update without the lock must not be written: %+v, %v", cfg, err)
	}

	if err := os.Remove(fpath + ".lock"); err != nil {
		t.Fatal(err)
	}
	if err := s.Update(ctx, setThreshold); err != nil {
		t.Fatal(err)
	}
	if cfg, err := s.Get(ctx); err != nil || cfg.PerGramIDR != 1500000 {
		t.Fatalf("want 1500000 after the lock is released, got %+v, %v", cfg, err)
	}
}

func TestValidate(t *testing.T) {
	valid := []int64{MinPerGram, 1000000, MaxPerGram}
	for _, v := range valid {
		if err := Validate(v); err != nil {
			t.Fatalf("%d: want nil, got %v", v, err)
		}
	}
	invalid := []int64{0, MinPerGram - 1, MaxPerGram + 1, -5}
	for _, v := range invalid {
		if err := Validate(v); !errors.Is(err, ErrOutOfRange) {
			t.Fatalf("%d: want ErrOutOfRange, got %v", v, err)
		}
	}
}
