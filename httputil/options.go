// Copyright (c) 2023 BVK Chaitanya

package httputil

import (
	"fmt"
	"net"
	"os"
	"time"
)

type Options struct {
	// ListenAddr is the host:port for the operator endpoint. Port zero picks a
	// random port.
	ListenAddr string

	// ServerCheckTimeout holds the http client timeout when checking for the
	// http server initialization.
	ServerCheckTimeout time.Duration

	// ServerCheckRetryInterval holds the amount of time to wait to check for
	// the http server readiness.
	ServerCheckRetryInterval time.Duration
}

func (v *Options) setDefaults() {
	if len(v.ListenAddr) == 0 {
		v.ListenAddr = "127.0.0.1:10100"
	}
	if v.ServerCheckTimeout == 0 {
		v.ServerCheckTimeout = 10 * time.Second
	}
	if v.ServerCheckRetryInterval == 0 {
		v.ServerCheckRetryInterval = 100 * time.Millisecond
	}
}

func (v *Options) Check() error {
	if _, _, err := net.SplitHostPort(v.ListenAddr); err != nil {
		return fmt.Errorf("listen address %q is invalid: %w", v.ListenAddr, os.ErrInvalid)
	}
	return nil
}
