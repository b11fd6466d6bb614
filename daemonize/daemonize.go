// Copyright (c) 2023 BVK Chaitanya

// Package daemonize respawns the current program as a background process.
package daemonize

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"log/syslog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

type Options struct {
	// EnvKey names the environment variable that marks the background
	// process. Its value is the parent process pid. It must not be used by
	// any other program.
	EnvKey string

	// SyslogTag is the tag for the syslog messages from the background
	// process.
	SyslogTag string

	// CheckInterval is the wait between readiness checks.
	CheckInterval time.Duration
}

func (v *Options) setDefaults() {
	if len(v.EnvKey) == 0 {
		v.EnvKey = "GOLDALERT_DAEMONIZE"
	}
	if len(v.SyslogTag) == 0 {
		v.SyslogTag = "goldalert"
	}
	if v.CheckInterval == 0 {
		v.CheckInterval = time.Second
	}
}

// Daemonize respawns the current program in the background with the same
// command-line arguments and environment. It *must* be called during the
// program startup before opening databases, starting servers, etc.
//
// Standard input and outputs of the background process are replaced with
// /dev/null and the standard library log is redirected to syslog.
//
// Parent process waits for the check function to succeed, which is expected
// to verify that the background process is initialized. When successful,
// Daemonize exits the parent process and returns nil in the background
// process. When unsuccessful, it returns non-nil error to the parent process.
func Daemonize(ctx context.Context, opts *Options, check func(context.Context, *os.Process) error) error {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()

	if v := os.Getenv(opts.EnvKey); len(v) == 0 {
		if err := daemonizeParent(ctx, opts, check); err != nil {
			return err
		}
		os.Exit(0)
	}
	if err := daemonizeChild(opts); err != nil {
		os.Exit(1)
	}
	return nil
}

func daemonizeParent(ctx context.Context, opts *Options, check func(context.Context, *os.Process) error) error {
	binary, err := exec.LookPath(os.Args[0])
	if err != nil {
		return fmt.Errorf("failed to lookup binary: %w", err)
	}
	binaryPath, err := filepath.Abs(binary)
	if err != nil {
		return fmt.Errorf("could not determine absolute path for binary: %w", err)
	}
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("could not determine working directory: %w", err)
	}

	file, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", os.DevNull, err)
	}
	defer file.Close()

	// Receive signal when child-process dies.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGCHLD, os.Interrupt)
	defer stop()

	env := append(os.Environ(), fmt.Sprintf("%s=%d", opts.EnvKey, os.Getpid()))
	attr := &os.ProcAttr{
		Dir:   wd,
		Env:   env,
		Files: []*os.File{file, file, file},
	}
	proc, err := os.StartProcess(binaryPath, os.Args, attr)
	if err != nil {
		return fmt.Errorf("failed to start process: %w", err)
	}
	defer proc.Release()

	if check != nil {
		time.Sleep(opts.CheckInterval)
		for ctx.Err() == nil {
			if err := check(ctx, proc); err != nil {
				slog.WarnContext(ctx, "daemon process not yet initialized", "pid", proc.Pid, "err", err)
				time.Sleep(opts.CheckInterval)
				continue
			}
			break
		}
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("could not initialize the background process: %w", err)
	}
	return nil
}

func daemonizeChild(opts *Options) error {
	syslogger, err := syslog.New(syslog.LOG_INFO, opts.SyslogTag)
	if err != nil {
		return fmt.Errorf("could not create syslog: %w", err)
	}
	log.SetOutput(syslogger)

	if _, err := unix.Setsid(); err != nil {
		return fmt.Errorf("could not set session id: %w", err)
	}
	return nil
}
