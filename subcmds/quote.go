// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/bvk/goldalert/forex"
	"github.com/bvk/goldalert/goldprice"
	"github.com/bvk/goldalert/message"
	"github.com/bvk/goldalert/quote"
	"github.com/bvk/goldalert/threshold"
	"github.com/visvasity/cli"
)

type Quote struct {
	DataFlags

	liveRate bool
	asJSON   bool
}

func (c *Quote) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("quote", flag.ContinueOnError)
	c.DataFlags.SetFlags(fset)
	fset.BoolVar(&c.liveRate, "live-rate", false, "fetch the exchange rate instead of using the cached rate")
	fset.BoolVar(&c.asJSON, "json", false, "prints the quote in json format")
	return "quote", fset, cli.CmdFunc(c.run)
}

func (c *Quote) Purpose() string {
	return "Prints the current gold price per gram in rupiah"
}

func (c *Quote) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("this command takes no arguments")
	}
	dataDir, err := c.DataDir()
	if err != nil {
		return err
	}
	if err := c.LoadEnv(dataDir); err != nil {
		return err
	}

	store, err := threshold.New(c.ThresholdFile(dataDir))
	if err != nil {
		return err
	}
	gold, err := goldprice.New(&goldprice.Options{APIKey: strings.TrimSpace(os.Getenv("GOLD_API_KEY"))})
	if err != nil {
		return err
	}

	var rates quote.RateSource
	if c.liveRate {
		fx, err := forex.New(strings.TrimSpace(os.Getenv("EXCHANGE_API_KEY")), nil /* opts */)
		if err != nil {
			return err
		}
		rates = fx
	}
	fetcher := quote.NewFetcher(gold, rates, store)
	if c.liveRate {
		if _, err := fetcher.RefreshRate(ctx); err != nil {
			return err
		}
	}

	q, err := fetcher.Fetch(ctx)
	if err != nil {
		return err
	}

	if c.asJSON {
		js, err := json.MarshalIndent(q, "", "  ")
		if err != nil {
			return err
		}
		fmt.Printf("%s\n", js)
		return nil
	}

	fmt.Printf("Gold (USD/oz): %s\n", q.PerOunceUSD.StringFixed(2))
	fmt.Printf("Gold (USD/g): %s\n", q.PerGramUSD.StringFixed(2))
	fmt.Printf("Gold (IDR/g): Rp%s\n", message.Rupiah(q.RoundedIDR()))
	fmt.Printf("USD/IDR: %s\n", message.Decimal(q.USDToIDR, 2))
	fmt.Printf("Time: %s\n", message.Timestamp(q.Time))
	return nil
}
