// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strconv"

	"github.com/bvk/goldalert/message"
	"github.com/bvk/goldalert/threshold"
	"github.com/visvasity/cli"
)

type Threshold struct {
	DataFlags
}

func (c *Threshold) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("threshold", flag.ContinueOnError)
	c.DataFlags.SetFlags(fset)
	return "threshold", fset, cli.CmdFunc(c.run)
}

func (c *Threshold) Purpose() string {
	return "Prints or updates the alert threshold"
}

func (c *Threshold) Description() string {
	return `

Command "threshold" prints the alert threshold and the cached exchange rate
when run without arguments. With one argument, it updates the alert threshold
to the given rupiah per gram value, which must be within 100000 and 2000000.

    $ goldalert threshold 1500000

`
}

func (c *Threshold) run(ctx context.Context, args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("this command takes at most one argument")
	}
	dataDir, err := c.DataDir()
	if err != nil {
		return err
	}
	store, err := threshold.New(c.ThresholdFile(dataDir))
	if err != nil {
		return err
	}

	if len(args) == 1 {
		v, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			if errors.Is(err, strconv.ErrRange) {
				return fmt.Errorf("value %q: %w", args[0], threshold.ErrOutOfRange)
			}
			return fmt.Errorf("could not parse threshold value %q: %w", args[0], err)
		}
		if err := threshold.Validate(v); err != nil {
			return err
		}
		update := func(cfg *threshold.Config) error {
			cfg.PerGramIDR = v
			return nil
		}
		if err := store.Update(ctx, update); err != nil {
			return err
		}
	}

	cfg, err := store.Get(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("File: %s\n", store.Path())
	fmt.Printf("Threshold (IDR/g): Rp%s\n", message.Rupiah(cfg.PerGramIDR))
	if cfg.USDToIDR != nil {
		fmt.Printf("USD/IDR (cached): %v\n", *cfg.USDToIDR)
	} else {
		fmt.Printf("USD/IDR (default): %d\n", threshold.DefaultUSDToIDR)
	}
	return nil
}
