// Copyright (c) 2025 BVK Chaitanya

// Package upstream holds the shared http plumbing for the price and exchange
// rate APIs.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

var (
	// ErrNetwork is wrapped by errors where the http request could not be
	// performed or the response could not be read.
	ErrNetwork = errors.New("network error")

	// ErrUpstream is wrapped by errors where the api returned an unsuccessful
	// status code or an unusable payload.
	ErrUpstream = errors.New("upstream error")
)

// DefaultTimeout is the per-call timeout used when none is configured.
const DefaultTimeout = 10 * time.Second

// maxBodySize limits the response bytes read from the apis.
const maxBodySize = 1 << 20

// Client performs rate limited json GET requests with a per-call timeout.
type Client struct {
	client http.Client

	limiter *rate.Limiter

	timeout time.Duration
}

// New creates a client. Outbound requests are limited to ratePerMinute
// requests per minute. Zero timeout selects the DefaultTimeout.
func New(timeout time.Duration, ratePerMinute int) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if ratePerMinute <= 0 {
		ratePerMinute = 60
	}
	return &Client{
		client:  http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(float64(ratePerMinute)/60), 1),
		timeout: timeout,
	}
}

// GetJSON performs a GET request on the input url and json-decodes the
// successful response into the responsePtr.
func GetJSON[PT *T, T any](ctx context.Context, c *Client, addrURL *url.URL, header http.Header, responsePtr PT) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("could not wait for the rate limiter: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addrURL.String(), nil)
	if err != nil {
		return fmt.Errorf("could not create http get request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	s := time.Now()
	resp, err := c.client.Do(req)
	if d := time.Since(s); d > c.timeout {
		slog.Warn(fmt.Sprintf("get request took %s which is more than the http client timeout %s", d, c.timeout))
	}
	if err != nil {
		// Url errors carry the full url, which can have api keys in the path.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return fmt.Errorf("could not perform http get request to %s: %w: %w", addrURL.Host, ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("could not read http response from %s: %w: %w", addrURL.Host, ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Warn("http get returned unsuccessful status code", "host", addrURL.Host, "status-code", resp.StatusCode, "body", truncate(body, 256))
		return fmt.Errorf("http GET to %s returned %d: %w", addrURL.Host, resp.StatusCode, ErrUpstream)
	}

	if err := json.Unmarshal(body, responsePtr); err != nil {
		return fmt.Errorf("could not json-decode response from %s: %w: %w", addrURL.Host, ErrUpstream, err)
	}
	return nil
}

func truncate(data []byte, n int) string {
	if len(data) <= n {
		return string(data)
	}
	return string(data[:n]) + "..."
}
