// Copyright (c) 2023 BVK Chaitanya

package server

import (
	"os"
	"strings"

	"github.com/bvk/goldalert/pushover"
	"github.com/bvk/goldalert/telegram"
)

// Secrets holds the credentials for all external services.
type Secrets struct {
	Telegram *telegram.Credentials `json:"telegram"`
	Pushover *pushover.Keys        `json:"pushover"`

	// ExchangeAPIKey is the exchangerate-api.com key. Exchange rate is not
	// refreshed when it is empty.
	ExchangeAPIKey string `json:"exchange_api_key"`

	// GoldAPIKey is the goldapi.io key. The public gold-api.com endpoint is
	// used when it is empty.
	GoldAPIKey string `json:"gold_api_key"`
}

// SecretsFromEnv reads all secrets from the environment variables. Telegram
// bot token is required.
func SecretsFromEnv() (*Secrets, error) {
	tg, err := telegram.CredentialsFromEnv()
	if err != nil {
		return nil, err
	}
	po, err := pushover.KeysFromEnv()
	if err != nil {
		return nil, err
	}
	s := &Secrets{
		Telegram:       tg,
		Pushover:       po,
		ExchangeAPIKey: strings.TrimSpace(os.Getenv("EXCHANGE_API_KEY")),
		GoldAPIKey:     strings.TrimSpace(os.Getenv("GOLD_API_KEY")),
	}
	if err := s.Check(); err != nil {
		return nil, err
	}
	return s, nil
}

func (v *Secrets) Check() error {
	if v.Telegram != nil {
		if err := v.Telegram.Check(); err != nil {
			return err
		}
	}
	if v.Pushover != nil {
		if err := v.Pushover.Check(); err != nil {
			return err
		}
	}
	return nil
}
