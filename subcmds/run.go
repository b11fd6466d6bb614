// Copyright (c) 2023 BVK Chaitanya

package subcmds

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bvk/goldalert/ctxutil"
	"github.com/bvk/goldalert/daemonize"
	"github.com/bvk/goldalert/forex"
	"github.com/bvk/goldalert/goldprice"
	"github.com/bvk/goldalert/httputil"
	"github.com/bvk/goldalert/logdir"
	"github.com/bvk/goldalert/pushover"
	"github.com/bvk/goldalert/quote"
	"github.com/bvk/goldalert/server"
	"github.com/bvk/goldalert/telegram"
	"github.com/bvk/goldalert/threshold"
	"github.com/bvkgo/kvbadger"
	"github.com/dgraph-io/badger/v4"
	"github.com/nightlyone/lockfile"
	"github.com/visvasity/cli"
)

type Run struct {
	DataFlags

	background bool

	restart         bool
	shutdownTimeout time.Duration

	listenAddr string
	noPprof    bool

	checkInterval time.Duration
	rateInterval  time.Duration
	failureLimit  int

	logLimitMB int64
}

func (c *Run) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("run", flag.ContinueOnError)
	c.DataFlags.SetFlags(fset)
	fset.BoolVar(&c.background, "background", false, "runs the daemon in background")
	fset.BoolVar(&c.restart, "restart", false, "when true, kills any old instance")
	fset.DurationVar(&c.shutdownTimeout, "shutdown-timeout", 30*time.Second, "max timeout for shutdown when restarting")
	fset.StringVar(&c.listenAddr, "listen-addr", "127.0.0.1:10100", "host:port for the operator http endpoint")
	fset.BoolVar(&c.noPprof, "no-pprof", false, "when true net/http/pprof handler is not registered")
	fset.DurationVar(&c.checkInterval, "check-interval", 15*time.Minute, "interval between gold price checks")
	fset.DurationVar(&c.rateInterval, "rate-interval", 6*time.Hour, "interval between exchange rate refreshes")
	fset.IntVar(&c.failureLimit, "failure-limit", 3, "consecutive task failures before the operator is notified")
	fset.Int64Var(&c.logLimitMB, "log-limit-mb", 64, "size limit for each log file in mega bytes")
	return "run", fset, cli.CmdFunc(c.run)
}

func (c *Run) Purpose() string {
	return "Runs goldalert service in foreground or background"
}

func (c *Run) Description() string {
	return `

Command "run" starts the gold price alert service. Service checks the gold
price periodically and sends a Telegram message when the price per gram in
rupiah is below the alert threshold. Telegram users can query the price with
/emas or /status commands and change the threshold with /set-harga-emas or
/set commands.

ENVIRONMENT

Secrets are read from the environment, which can be loaded from a .env file in
the current directory or the data directory:

    TELEGRAM_TOKEN=123456:ABC...     (required)
    CHAT_ID=-1001234567              (optional; learned from the first command)
    EXCHANGE_API_KEY=...             (optional; exchange rate is not refreshed)
    GOLD_API_KEY=...                 (optional; goldapi.io is used when set)
    PUSHOVER_APP_KEY=...             (optional; operator notices)
    PUSHOVER_USER_KEY=...

`
}

func (c *Run) run(ctx context.Context, args []string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	dataDir, err := c.DataDir()
	if err != nil {
		return err
	}
	if err := c.LoadEnv(dataDir); err != nil {
		return err
	}
	secrets, err := server.SecretsFromEnv()
	if err != nil {
		return fmt.Errorf("could not load secrets: %w", err)
	}

	// Health checker for the background process initialization. We need to
	// verify that responding http server is really our child and not an older
	// instance.
	check := func(ctx context.Context, child *os.Process) error {
		client := http.Client{Timeout: time.Second}
		resp, err := client.Get(fmt.Sprintf("http://%s/pid", c.listenAddr))
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("http status: %d", resp.StatusCode)
		}
		v := new(server.PID)
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			return err
		}
		if v.PID != child.Pid {
			return fmt.Errorf("is another instance already running? pid mismatch: want %d got %d", child.Pid, v.PID)
		}
		return nil
	}

	if c.background {
		if err := daemonize.Daemonize(ctx, nil /* opts */, check); err != nil {
			return err
		}
	}

	logs, err := logdir.New(filepath.Join(dataDir, "logs"), "goldalert", c.logLimitMB)
	if err != nil {
		return fmt.Errorf("could not create log backend: %w", err)
	}
	defer logs.Close()

	var logw io.Writer = logs
	if !c.background {
		logw = io.MultiWriter(logs, os.Stderr)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(logw, nil)))
	slog.Info("using data directory", "data-dir", dataDir, "pid", os.Getpid())

	lockPath := filepath.Join(dataDir, "goldalert.lock")
	flock, err := lockfile.New(lockPath)
	if err != nil {
		return fmt.Errorf("could not create lock file %q: %w", lockPath, err)
	}
	if err := flock.TryLock(); err != nil {
		if !c.restart {
			return fmt.Errorf("could not get lock on file %q: %w", lockPath, err)
		}
		owner, err := flock.GetOwner()
		if err != nil {
			return fmt.Errorf("could not get current owner of the lock file: %w", err)
		}
		if err := owner.Signal(os.Interrupt); err == nil {
			slog.Info("waiting for the previous instance to shutdown", "pid", owner.Pid)
			if err := ctxutil.RetryTimeout(ctx, time.Second, c.shutdownTimeout, flock.TryLock); err != nil {
				if err := owner.Signal(os.Kill); err != nil {
					return fmt.Errorf("could not kill current owner of the lock file: %w", err)
				}
				ctxutil.Sleep(ctx, time.Millisecond)
			}
		}
		if err := flock.TryLock(); err != nil {
			return fmt.Errorf("could not get lock on file %q after killing previous instance: %w", lockPath, err)
		}
	}
	defer flock.Unlock()

	// Open the database for the bot state.
	bopts := badger.DefaultOptions(filepath.Join(dataDir, "db"))
	bopts.Logger = nil
	bdb, err := badger.Open(bopts)
	if err != nil {
		return fmt.Errorf("could not open the database: %w", err)
	}
	defer bdb.Close()
	db := kvbadger.New(bdb, isGoodKey)

	store, err := threshold.New(c.ThresholdFile(dataDir))
	if err != nil {
		return err
	}

	gold, err := goldprice.New(&goldprice.Options{APIKey: secrets.GoldAPIKey})
	if err != nil {
		return err
	}
	var rates quote.RateSource
	if len(secrets.ExchangeAPIKey) != 0 {
		fx, err := forex.New(secrets.ExchangeAPIKey, nil /* opts */)
		if err != nil {
			return err
		}
		rates = fx
	}
	fetcher := quote.NewFetcher(gold, rates, store)

	var operator server.Operator
	if secrets.Pushover != nil {
		po, err := pushover.New(secrets.Pushover, nil /* opts */)
		if err != nil {
			return err
		}
		operator = po
	}

	tg, err := telegram.New(ctx, db, secrets.Telegram)
	if err != nil {
		return fmt.Errorf("could not start telegram bot: %w", err)
	}
	defer tg.Close()

	sopts := &server.Options{
		CheckInterval: c.checkInterval,
		RateInterval:  c.rateInterval,
		FailureLimit:  c.failureLimit,
	}
	svc, err := server.New(store, fetcher, tg, operator, rates != nil, sopts)
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.AddCommands(ctx, tg); err != nil {
		return err
	}

	// Start HTTP server.
	hs, err := httputil.New(&httputil.Options{ListenAddr: c.listenAddr})
	if err != nil {
		return err
	}
	defer hs.Close()

	svc.AddHandlers(hs)
	if !c.noPprof {
		hs.AddHandler("/debug/pprof/heap", pprof.Handler("heap"))
		hs.AddHandler("/debug/pprof/goroutine", pprof.Handler("goroutine"))
		hs.AddHandler("/debug/pprof/allocs", pprof.Handler("allocs"))
	}
	if err := hs.Start(ctx); err != nil {
		return fmt.Errorf("could not start http server on %s: %w", c.listenAddr, err)
	}

	if err := svc.Start(ctx); err != nil {
		return err
	}

	if id, ok := tg.ChatID(); ok {
		slog.Info("started goldalert service", "bot", tg.BotUserName(), "chat-id", id, "addr", hs.Addr())
	} else {
		slog.Warn("started goldalert service without a destination chat; send /status to the bot to set it", "bot", tg.BotUserName(), "addr", hs.Addr())
	}

	<-ctx.Done()
	slog.Info("goldalert service is shutting down", "cause", context.Cause(ctx))
	return nil
}

func isGoodKey(k string) bool {
	return path.IsAbs(k) && k == path.Clean(k)
}
