// Copyright (c) 2025 BVK Chaitanya

// Package threshold implements the file backed store for the alert threshold
// and the cached exchange rate.
//
// Every read goes to the file, so all readers observe the latest committed
// value. Writes replace the file atomically with a rename. Writers are
// serialized with a mutex inside the process and with a lock file next to the
// threshold file across processes.
package threshold

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bvk/goldalert/ctxutil"
	"github.com/google/uuid"
	"github.com/nightlyone/lockfile"
)

// DefaultLockWait is the maximum wait for the lock file held by another
// process.
const DefaultLockWait = 5 * time.Second

type Store struct {
	mu sync.Mutex

	fpath string

	flock    lockfile.Lockfile
	lockWait time.Duration
}

// New returns a store for the file at fpath. File is not touched until the
// first Get or Set.
func New(fpath string) (*Store, error) {
	if len(fpath) == 0 {
		return nil, os.ErrInvalid
	}
	fpath, err := filepath.Abs(fpath)
	if err != nil {
		return nil, fmt.Errorf("could not determine absolute path for %q: %w", fpath, err)
	}
	flock, err := lockfile.New(fpath + ".lock")
	if err != nil {
		return nil, fmt.Errorf("could not create lock file handle: %w", err)
	}
	s := &Store{
		fpath:    fpath,
		flock:    flock,
		lockWait: DefaultLockWait,
	}
	return s, nil
}

// Path returns the threshold file path.
func (s *Store) Path() string {
	return s.fpath
}

// Get returns the current configuration. If the file doesn't exist, it is
// created with the default configuration.
func (s *Store) Get(ctx context.Context) (*Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.readLocked()
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		return cfg, err
	}

	unlock, err := s.lockFile(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// Another process may have created the file while we waited for the lock.
	cfg, err = s.readLocked()
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		return cfg, err
	}
	cfg = Default()
	if err := s.setLocked(ctx, cfg); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "created threshold file with defaults", "path", s.fpath, "idr-per-gram", cfg.PerGramIDR)
	return cfg, nil
}

// Set replaces the configuration in the file.
func (s *Store) Set(ctx context.Context, cfg *Config) error {
	if err := cfg.Check(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lockFile(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	return s.setLocked(ctx, cfg)
}

// Update performs a read-modify-write of the configuration. Configuration is
// not written if the input function fails.
func (s *Store) Update(ctx context.Context, fn func(*Config) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lockFile(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	cfg, err := s.readLocked()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		cfg = Default()
	}
	if err := fn(cfg); err != nil {
		return err
	}
	if err := cfg.Check(); err != nil {
		return err
	}
	return s.setLocked(ctx, cfg)
}

// lockFile takes the lock file, waiting for other processes to release it.
// Lock file is owned by the process, so it must not be taken recursively.
func (s *Store) lockFile(ctx context.Context) (unlock func(), err error) {
	dir := filepath.Dir(s.fpath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("could not create directory %q: %w: %w", dir, ErrStorage, err)
	}
	if err := ctxutil.RetryTimeout(ctx, 10*time.Millisecond, s.lockWait, s.flock.TryLock); err != nil {
		return nil, fmt.Errorf("could not lock %q: %w: %w", string(s.flock), ErrStorage, err)
	}
	unlock = func() {
		if err := s.flock.Unlock(); err != nil {
			slog.WarnContext(ctx, "could not unlock threshold file lock (ignored)", "lockfile", string(s.flock), "err", err)
		}
	}
	return unlock, nil
}

// readLocked returns an error wrapping os.ErrNotExist when the file is
// missing.
func (s *Store) readLocked() (*Config, error) {
	data, err := os.ReadFile(s.fpath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("could not read %q: %w: %w", s.fpath, ErrStorage, err)
	}

	cfg := new(Config)
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("could not json-decode %q: %w: %w", s.fpath, ErrStorage, err)
	}
	if err := cfg.Check(); err != nil {
		return nil, fmt.Errorf("invalid threshold file %q: %w", s.fpath, err)
	}
	return cfg, nil
}

func (s *Store) setLocked(ctx context.Context, cfg *Config) (status error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("could not json-encode threshold config: %w: %w", ErrStorage, err)
	}

	tmp := fmt.Sprintf("%s.%s.tmp", s.fpath, uuid.New().String())
	fp, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("could not create temporary file: %w: %w", ErrStorage, err)
	}
	defer func() {
		if status != nil {
			fp.Close()
			os.Remove(tmp)
		}
	}()

	if _, err := fp.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("could not write temporary file: %w: %w", ErrStorage, err)
	}
	if err := fp.Sync(); err != nil {
		return fmt.Errorf("could not sync temporary file: %w: %w", ErrStorage, err)
	}
	if err := fp.Close(); err != nil {
		return fmt.Errorf("could not close temporary file: %w: %w", ErrStorage, err)
	}
	if err := os.Rename(tmp, s.fpath); err != nil {
		return fmt.Errorf("could not replace %q: %w: %w", s.fpath, ErrStorage, err)
	}
	return nil
}
