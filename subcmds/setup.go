// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/bvk/goldalert/envfile"
	"github.com/bvk/goldalert/pushover"
	"github.com/bvk/goldalert/telegram"
	"github.com/bvkgo/kv/kvmemdb"
	"github.com/visvasity/cli"
	"golang.org/x/term"
)

type Setup struct {
	DataFlags

	skipTesting bool

	botToken       string
	chatID         string
	exchangeAPIKey string
	goldAPIKey     string
	pushoverApp    string
	pushoverUser   string
}

func (c *Setup) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("setup", flag.ContinueOnError)
	c.DataFlags.SetFlags(fset)
	fset.StringVar(&c.botToken, "bot-token", "", "Telegram bot token (prompted when empty)")
	fset.StringVar(&c.chatID, "chat-id", "", "Telegram chat id for the alerts")
	fset.StringVar(&c.exchangeAPIKey, "exchange-api-key", "", "exchangerate-api.com api key")
	fset.StringVar(&c.goldAPIKey, "gold-api-key", "", "goldapi.io access token")
	fset.StringVar(&c.pushoverApp, "pushover-app-key", "", "Pushover application key for operator notices")
	fset.StringVar(&c.pushoverUser, "pushover-user-key", "", "Pushover user key for operator notices")
	fset.BoolVar(&c.skipTesting, "skip-testing", false, "don't test the parameters")
	return "setup", fset, cli.CmdFunc(c.run)
}

func (c *Setup) Purpose() string {
	return "Setup configures the secrets in the env file"
}

func (c *Setup) Description() string {
	return `

Command "setup" writes the Telegram bot token and the optional api keys into
the env file in the data directory. Values already in the env file are kept
unless they are given on the command-line. Bot token is read from the terminal
without echo when it is not given with the -bot-token flag.

    $ goldalert setup -chat-id=-1001234567 -exchange-api-key=0a1b2c...

`
}

func (c *Setup) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("this command takes no arguments")
	}
	dataDir, err := c.DataDir()
	if err != nil {
		return err
	}
	envPath := c.EnvFile(dataDir)

	var vars [][2]string
	if fp, err := os.Open(envPath); err == nil {
		vs, err := envfile.Parse(fp)
		fp.Close()
		if err != nil {
			return fmt.Errorf("could not parse env file %q: %w", envPath, err)
		}
		vars = vs
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	lookup := func(key string) string {
		for _, kv := range vars {
			if kv[0] == key {
				return kv[1]
			}
		}
		return ""
	}
	set := func(key, value string) {
		if len(value) == 0 {
			return
		}
		for i := range vars {
			if vars[i][0] == key {
				vars[i][1] = value
				return
			}
		}
		vars = append(vars, [2]string{key, value})
	}

	if len(c.botToken) == 0 && len(lookup("TELEGRAM_TOKEN")) == 0 {
		token, err := readSecret("Telegram bot token: ")
		if err != nil {
			return err
		}
		c.botToken = token
	}
	if len(c.chatID) != 0 {
		if _, err := strconv.ParseInt(c.chatID, 10, 64); err != nil {
			return fmt.Errorf("chat id %q is not a number: %w", c.chatID, err)
		}
	}

	set("TELEGRAM_TOKEN", c.botToken)
	set("CHAT_ID", c.chatID)
	set("EXCHANGE_API_KEY", c.exchangeAPIKey)
	set("GOLD_API_KEY", c.goldAPIKey)
	set("PUSHOVER_APP_KEY", c.pushoverApp)
	set("PUSHOVER_USER_KEY", c.pushoverUser)

	creds := &telegram.Credentials{BotToken: lookup("TELEGRAM_TOKEN")}
	if err := creds.Check(); err != nil {
		return err
	}
	if app, user := lookup("PUSHOVER_APP_KEY"), lookup("PUSHOVER_USER_KEY"); len(app) != 0 || len(user) != 0 {
		keys := &pushover.Keys{ApplicationKey: app, UserKey: user}
		if err := keys.Check(); err != nil {
			return err
		}
	}

	if !c.skipTesting {
		// Attempt to authenticate with telegram to validate the token.
		client, err := telegram.New(ctx, kvmemdb.New(), creds)
		if err != nil {
			return fmt.Errorf("could not verify the bot token: %w", err)
		}
		fmt.Printf("Bot token is valid for @%s\n", client.BotUserName())
		client.Close()
	}

	if err := envfile.Write(envPath, vars); err != nil {
		return err
	}
	fmt.Printf("Updated %s\n", envPath)
	return nil
}

func readSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("standard input is not a terminal; use the flags instead: %w", os.ErrInvalid)
	}
	fmt.Print(prompt)
	data, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("could not read from the terminal: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
