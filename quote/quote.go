// Copyright (c) 2025 BVK Chaitanya

// Package quote computes the gold price per gram in rupiah from the per ounce
// USD price and the USD to IDR exchange rate.
package quote

import (
	"time"

	"github.com/shopspring/decimal"
)

// GramsPerTroyOunce is the conversion factor used for all quotes.
var GramsPerTroyOunce = decimal.RequireFromString("31.1035")

// Quote is a single snapshot of the gold price and the exchange rate.
type Quote struct {
	PerOunceUSD decimal.Decimal `json:"per_ounce_usd"`
	PerGramUSD  decimal.Decimal `json:"per_gram_usd"`
	PerGramIDR  decimal.Decimal `json:"per_gram_idr"`
	USDToIDR    decimal.Decimal `json:"usd_to_idr"`

	Time time.Time `json:"time"`
}

// New computes a quote from the per ounce USD price and the exchange rate.
func New(perOunceUSD, usdToIDR decimal.Decimal, at time.Time) *Quote {
	perGramUSD := perOunceUSD.Div(GramsPerTroyOunce)
	return &Quote{
		PerOunceUSD: perOunceUSD,
		PerGramUSD:  perGramUSD,
		PerGramIDR:  perGramUSD.Mul(usdToIDR),
		USDToIDR:    usdToIDR,
		Time:        at,
	}
}

// RoundedIDR returns the per gram rupiah price rounded to the nearest rupiah.
func (q *Quote) RoundedIDR() int64 {
	return q.PerGramIDR.Round(0).IntPart()
}

// Below returns true if the per gram rupiah price is strictly less than the
// threshold.
func (q *Quote) Below(perGramIDR int64) bool {
	return q.PerGramIDR.LessThan(decimal.NewFromInt(perGramIDR))
}
