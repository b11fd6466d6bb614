// Copyright (c) 2025 BVK Chaitanya

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/bvk/goldalert/message"
	"github.com/bvk/goldalert/threshold"
	"github.com/visvasity/cli"
)

// CommandRegistry registers chat command handlers.
type CommandRegistry interface {
	AddCommand(ctx context.Context, name, purpose string, handler cli.CmdFunc) error
}

// AddCommands registers the status and threshold commands with their aliases.
func (s *Server) AddCommands(ctx context.Context, r CommandRegistry) error {
	cmds := []struct {
		name    string
		purpose string
		handler cli.CmdFunc
	}{
		{"set-harga-emas", "Ubah batas harga alert (Rp/gram)", s.SetThresholdCmd},
		{"set", "Ubah batas harga alert (Rp/gram)", s.SetThresholdCmd},
		{"emas", "Harga emas saat ini", s.StatusCmd},
		{"status", "Harga emas saat ini", s.StatusCmd},
	}
	for _, c := range cmds {
		if err := r.AddCommand(ctx, c.name, c.purpose, c.handler); err != nil {
			return fmt.Errorf("could not add command %q: %w", c.name, err)
		}
	}
	return nil
}

// StatusCmd replies with a fresh quote and the current threshold. Failures
// are returned to the caller and not written to the reply.
func (s *Server) StatusCmd(ctx context.Context, _ []string) error {
	q, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("could not fetch gold price quote: %w", err)
	}
	cfg, err := s.store.Get(ctx)
	if err != nil {
		return fmt.Errorf("could not read alert threshold: %w", err)
	}
	fmt.Fprint(cli.Stdout(ctx), message.Status(q, cfg.PerGramIDR, q.Time))
	return nil
}

// SetThresholdCmd updates the threshold to the single integer argument.
// Missing, malformed or out of range values are rejected with a reply and
// the stored threshold is left unchanged.
func (s *Server) SetThresholdCmd(ctx context.Context, args []string) error {
	stdout := cli.Stdout(ctx)

	v, err := parseThreshold(args)
	if err != nil {
		slog.Info("rejected threshold update", "args", args, "err", err)
		fmt.Fprint(stdout, message.ThresholdRejected())
		return nil
	}

	update := func(cfg *threshold.Config) error {
		cfg.PerGramIDR = v
		return nil
	}
	if err := s.store.Update(ctx, update); err != nil {
		return fmt.Errorf("could not save alert threshold: %w", err)
	}
	slog.Info("updated alert threshold", "threshold", v, "at", time.Now())
	fmt.Fprint(stdout, message.ThresholdUpdated(v))
	return nil
}

func parseThreshold(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("need exactly one argument: %w", threshold.ErrOutOfRange)
	}
	v, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, fmt.Errorf("value %q: %w", args[0], threshold.ErrOutOfRange)
		}
		return 0, fmt.Errorf("value %q is not an integer: %w", args[0], threshold.ErrOutOfRange)
	}
	if err := threshold.Validate(v); err != nil {
		return 0, err
	}
	return v, nil
}
