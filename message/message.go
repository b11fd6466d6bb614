// Copyright (c) 2025 BVK Chaitanya

// Package message renders the chat messages. Numbers and timestamps use the
// Indonesian conventions regardless of the host locale.
package message

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/bvk/goldalert/quote"
	"github.com/bvk/goldalert/threshold"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	xmessage "golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Location is the timezone for all timestamps in the messages.
var Location = loadLocation("Asia/Jakarta")

func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("WIB", 7*60*60)
	}
	return loc
}

// Timestamp formats the input time like the id-ID locale does, for example,
// "17/10/2026, 18.49.05".
func Timestamp(at time.Time) string {
	return at.In(Location).Format("2/1/2006, 15.04.05")
}

// Rupiah formats an integer with dots as the thousands separator.
func Rupiah(v int64) string {
	return printer().Sprintf("%d", v)
}

// Decimal formats a decimal number with dots as the thousands separator and
// a comma as the decimal separator. Trailing zero decimals are dropped.
func Decimal(v decimal.Decimal, places int32) string {
	f := v.Round(places).InexactFloat64()
	return printer().Sprint(number.Decimal(f, number.MaxFractionDigits(int(places))))
}

func printer() *xmessage.Printer {
	return xmessage.NewPrinter(language.Indonesian)
}

// Alert is sent when the price is below the threshold.
func Alert(q *quote.Quote, perGramIDR int64, at time.Time) string {
	return fmt.Sprintf("⚠️⚠️⚠️\n\nHarga emas turun!\n\nRp%s/gram\n\nBatas alert: Rp%s/gram\n\nWaktu: %s",
		Rupiah(q.RoundedIDR()), Rupiah(perGramIDR), Timestamp(at))
}

// Status is the reply for the status command.
func Status(q *quote.Quote, perGramIDR int64, at time.Time) string {
	return fmt.Sprintf("Harga Emas Saat Ini: Rp%s/gram\n\nBatas Alert: Rp%s/gram\n\nKurs: %s\n\nWaktu: %s",
		Rupiah(q.RoundedIDR()), Rupiah(perGramIDR), Decimal(q.USDToIDR, 2), Timestamp(at))
}

// ThresholdUpdated confirms a threshold change.
func ThresholdUpdated(perGramIDR int64) string {
	return fmt.Sprintf("Batas harga diubah menjadi Rp%s/gram", Rupiah(perGramIDR))
}

// ThresholdRejected is the reply for an out of range threshold.
func ThresholdRejected() string {
	return fmt.Sprintf("Batas harga tidak wajar. Masukkan angka antara %s – %s.",
		Rupiah(threshold.MinPerGram), Rupiah(threshold.MaxPerGram))
}

// TaskFailing is the operator notice for a repeatedly failing task.
func TaskFailing(task string, failures int, err error) string {
	return fmt.Sprintf("Task %q has failed %d times in a row; last error: %v", task, failures, err)
}

// TaskRecovered is the operator notice when a failing task succeeds again.
func TaskRecovered(task string, failures int) string {
	return fmt.Sprintf("Task %q has recovered after %d failures", task, failures)
}
