// Copyright (c) 2025 BVK Chaitanya

package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/bvk/goldalert/httputil"
	"github.com/bvk/goldalert/quote"
	"github.com/bvk/goldalert/scheduler"
	"github.com/shirou/gopsutil/v4/process"
)

type PID struct {
	PID int `json:"pid"`
}

type Health struct {
	PID    int           `json:"pid"`
	Uptime time.Duration `json:"uptime"`

	// RSS is the resident memory of the process in bytes. Zero when it could
	// not be determined.
	RSS uint64 `json:"rss"`

	LastCheck *CheckResult `json:"last_check,omitempty"`

	Tasks []scheduler.Status `json:"tasks"`
}

// AddHandlers adds the operator endpoints to the http server.
func (s *Server) AddHandlers(h *httputil.Server) {
	h.AddHandler("/pid", httputil.JSONHandler(s.pid))
	h.AddHandler("/health", httputil.JSONHandler(s.Health))
	h.AddHandler("/quote", httputil.JSONHandler(s.quote))
}

func (s *Server) pid(context.Context) (*PID, error) {
	return &PID{PID: os.Getpid()}, nil
}

// Health returns the process and task health information.
func (s *Server) Health(ctx context.Context) (*Health, error) {
	v := &Health{
		PID:    os.Getpid(),
		Uptime: time.Since(s.startTime),
		Tasks:  s.sched.Statuses(),
	}
	if last, ok := s.LastCheck(); ok {
		v.LastCheck = last
	}

	p, err := process.NewProcessWithContext(ctx, int32(v.PID))
	if err != nil {
		slog.Warn("could not inspect self process (ignored)", "err", err)
		return v, nil
	}
	mem, err := p.MemoryInfoWithContext(ctx)
	if err != nil {
		slog.Warn("could not read process memory info (ignored)", "err", err)
		return v, nil
	}
	v.RSS = mem.RSS
	return v, nil
}

func (s *Server) quote(context.Context) (*quote.Quote, error) {
	q, ok := s.LatestQuote()
	if !ok {
		return nil, fmt.Errorf("no quote was fetched yet: %w", os.ErrNotExist)
	}
	return q, nil
}
