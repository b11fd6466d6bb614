// Copyright (c) 2025 BVK Chaitanya

package goldprice

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bvk/goldalert/upstream"
	"github.com/shopspring/decimal"
)

func TestPerOunceUSD(t *testing.T) {
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"Gold","price":3000.25,"symbol":"XAU","updatedAt":"2025-01-01T00:00:00Z"}`))
	}))
	defer server.Close()

	c, err := New(&Options{URL: server.URL})
	if err != nil {
		t.Fatal(err)
	}
	price, err := c.PerOunceUSD(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if want := decimal.RequireFromString("3000.25"); !price.Equal(want) {
		t.Fatalf("want %s, got %s", want, price)
	}
}

func TestPerOunceUSDKeyed(t *testing.T) {
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-access-token") != "secret" {
			http.Error(w, `{"error":"No API Key provided"}`, http.StatusForbidden)
			return
		}
		w.Write([]byte(`{"metal":"XAU","currency":"USD","price":2950}`))
	}))
	defer server.Close()

	c, err := New(&Options{URL: server.URL, APIKey: "secret"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.PerOunceUSD(ctx); err != nil {
		t.Fatal(err)
	}

	bad, err := New(&Options{URL: server.URL, APIKey: "wrong"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := bad.PerOunceUSD(ctx); !errors.Is(err, upstream.ErrUpstream) {
		t.Fatalf("want ErrUpstream, got %v", err)
	}
}

func TestPerOunceUSDInvalid(t *testing.T) {
	ctx := context.Background()

	payloads := []string{
		`{}`,
		`{"price": 0}`,
		`{"price": -10}`,
		`{"price": 3000, "currency": "INR"}`,
	}
	for _, payload := range payloads {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(payload))
		}))
		c, err := New(&Options{URL: server.URL})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := c.PerOunceUSD(ctx); !errors.Is(err, upstream.ErrUpstream) {
			t.Fatalf("payload %s: want ErrUpstream, got %v", payload, err)
		}
		server.Close()
	}
}
