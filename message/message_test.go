// Copyright (c) 2025 BVK Chaitanya

package message

import (
	"strings"
	"testing"
	"time"

	"github.com/bvk/goldalert/quote"
	"github.com/shopspring/decimal"
)

func TestRupiah(t *testing.T) {
	tests := map[int64]string{
		0:          "0",
		999:        "999",
		1000:       "1.000",
		100000:     "100.000",
		1543246:    "1.543.246",
		2000000:    "2.000.000",
		-1234567:   "-1.234.567",
		1000000000: "1.000.000.000",
	}
	for v, want := range tests {
		if got := Rupiah(v); got != want {
			t.Fatalf("Rupiah(%d): want %q, got %q", v, want, got)
		}
	}
}

func TestDecimal(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{"16000", "16.000"},
		{"16325.5", "16.325,5"},
		{"16325.456", "16.325,46"},
		{"0.5", "0,5"},
	}
	for _, test := range tests {
		if got := Decimal(decimal.RequireFromString(test.value), 2); got != test.want {
			t.Fatalf("Decimal(%s): want %q, got %q", test.value, test.want, got)
		}
	}
}

func TestTimestamp(t *testing.T) {
	at := time.Date(2026, 10, 17, 11, 49, 5, 0, time.UTC)
	if got, want := Timestamp(at), "17/10/2026, 18.49.05"; got != want {
		t.Fatalf("want %q, got %q", want, got)
	}
}

func TestTemplates(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	q := quote.New(decimal.NewFromInt(3000), decimal.NewFromInt(16000), at)

	alert := Alert(q, 1600000, at)
	for _, want := range []string{"Harga emas turun!", "Rp1.543.235/gram", "Batas alert: Rp1.600.000/gram", "Waktu: 2/1/2026, 10.04.05"} {
		if !strings.Contains(alert, want) {
			t.Fatalf("alert %q does not contain %q", alert, want)
		}
	}

	status := Status(q, 1000000, at)
	for _, want := range []string{"Harga Emas Saat Ini: Rp1.543.235/gram", "Batas Alert: Rp1.000.000/gram", "Kurs: 16.000"} {
		if !strings.Contains(status, want) {
			t.Fatalf("status %q does not contain %q", status, want)
		}
	}

	if got, want := ThresholdUpdated(1200000), "Batas harga diubah menjadi Rp1.200.000/gram"; got != want {
		t.Fatalf("want %q, got %q", want, got)
	}
	if got := ThresholdRejected(); !strings.Contains(got, "100.000 – 2.000.000") {
		t.Fatalf("rejection %q does not mention the range", got)
	}
}
