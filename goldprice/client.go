// Copyright (c) 2025 BVK Chaitanya

// Package goldprice fetches the spot gold price in USD per troy ounce.
package goldprice

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/bvk/goldalert/upstream"
	"github.com/shopspring/decimal"
)

type Client struct {
	opts Options

	addrURL *url.URL

	client *upstream.Client
}

// New returns a new client instance.
func New(opts *Options) (*Client, error) {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}
	addrURL, err := url.Parse(opts.URL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		opts:    *opts,
		addrURL: addrURL,
		client:  upstream.New(opts.Timeout, opts.MaxRequestsPerMinute),
	}
	return c, nil
}

// priceResponse covers both gold-api.com and goldapi.io payloads, which carry
// the per ounce price in the "price" field.
type priceResponse struct {
	Price    decimal.NullDecimal `json:"price"`
	Currency string              `json:"currency"`
	Error    string              `json:"error"`
}

// PerOunceUSD returns the current gold price per troy ounce in USD.
func (c *Client) PerOunceUSD(ctx context.Context) (decimal.Decimal, error) {
	var header http.Header
	if len(c.opts.APIKey) != 0 {
		header = make(http.Header)
		header.Set("x-access-token", c.opts.APIKey)
	}

	resp := new(priceResponse)
	if err := upstream.GetJSON(ctx, c.client, c.addrURL, header, resp); err != nil {
		slog.Error("could not get gold price", "url", c.opts.URL, "err", err)
		return decimal.Zero, err
	}
	if len(resp.Error) != 0 {
		return decimal.Zero, fmt.Errorf("gold price api returned error %q: %w", resp.Error, upstream.ErrUpstream)
	}
	if !resp.Price.Valid || !resp.Price.Decimal.IsPositive() {
		return decimal.Zero, fmt.Errorf("gold price api returned invalid price: %w", upstream.ErrUpstream)
	}
	if len(resp.Currency) != 0 && resp.Currency != "USD" {
		return decimal.Zero, fmt.Errorf("gold price api returned unexpected currency %q: %w", resp.Currency, upstream.ErrUpstream)
	}
	return resp.Price.Decimal, nil
}
