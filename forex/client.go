// Copyright (c) 2025 BVK Chaitanya

// Package forex fetches USD exchange rates from the exchangerate-api.com v6
// service.
package forex

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/bvk/goldalert/upstream"
	"github.com/shopspring/decimal"
)

var BaseURL = url.URL{
	Scheme: "https",
	Host:   "v6.exchangerate-api.com",
	Path:   "/v6",
}

type Options struct {
	// BaseURL overrides the service url.
	BaseURL string

	// Timeout is the per-call http timeout.
	Timeout time.Duration
}

func (v *Options) setDefaults() {
	if v.BaseURL == "" {
		v.BaseURL = BaseURL.String()
	}
	if v.Timeout == 0 {
		v.Timeout = 10 * time.Second
	}
}

type Client struct {
	key string

	baseURL *url.URL

	client *upstream.Client
}

// New returns a client that authenticates with the input api key.
func New(key string, opts *Options) (*Client, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("exchange rate api key cannot be empty: %w", os.ErrInvalid)
	}
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	baseURL, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		key:     key,
		baseURL: baseURL,
		client:  upstream.New(opts.Timeout, 10),
	}
	return c, nil
}

type latestResponse struct {
	Result          string                     `json:"result"`
	ErrorType       string                     `json:"error-type"`
	BaseCode        string                     `json:"base_code"`
	ConversionRates map[string]decimal.Decimal `json:"conversion_rates"`
}

// RateFromUSD returns the number of currency units for one USD.
func (c *Client) RateFromUSD(ctx context.Context, currency string) (decimal.Decimal, error) {
	currency = strings.ToUpper(currency)
	addrURL := &url.URL{
		Scheme: c.baseURL.Scheme,
		Host:   c.baseURL.Host,
		Path:   path.Join(c.baseURL.Path, c.key, "latest", "USD"),
	}

	resp := new(latestResponse)
	if err := upstream.GetJSON(ctx, c.client, addrURL, nil /* header */, resp); err != nil {
		// Url has the api key, so only the host is logged.
		slog.Error("could not get latest exchange rates", "host", addrURL.Host, "err", err)
		return decimal.Zero, err
	}
	if resp.Result != "success" {
		return decimal.Zero, fmt.Errorf("exchange rate api returned result %q (%s): %w", resp.Result, resp.ErrorType, upstream.ErrUpstream)
	}
	rate, ok := resp.ConversionRates[currency]
	if !ok {
		return decimal.Zero, fmt.Errorf("exchange rate for %s is not found: %w", currency, upstream.ErrUpstream)
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("exchange rate for %s is invalid (%s): %w", currency, rate, upstream.ErrUpstream)
	}
	return rate, nil
}
