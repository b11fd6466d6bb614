// Copyright (c) 2025 BVK Chaitanya

package telegram

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Credentials struct {
	BotToken string `json:"token"`

	// ChatID is the destination for alerts. Zero value means the chat is
	// learned from the first inbound command.
	ChatID int64 `json:"chat_id,omitempty"`
}

// CredentialsFromEnv reads the bot token from TELEGRAM_TOKEN and the optional
// destination chat from CHAT_ID environment variables.
func CredentialsFromEnv() (*Credentials, error) {
	v := &Credentials{
		BotToken: strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
	}
	if s := strings.TrimSpace(os.Getenv("CHAT_ID")); len(s) != 0 {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("could not parse CHAT_ID value %q: %w", s, err)
		}
		v.ChatID = id
	}
	if err := v.Check(); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *Credentials) Check() error {
	if len(v.BotToken) == 0 {
		return fmt.Errorf("bot token cannot be empty: %w", os.ErrInvalid)
	}
	if strings.ContainsAny(v.BotToken, " \t\r\n") {
		return fmt.Errorf("bot token cannot have whitespace: %w", os.ErrInvalid)
	}
	return nil
}

func (v *Credentials) Clone() *Credentials {
	return &Credentials{
		BotToken: v.BotToken,
		ChatID:   v.ChatID,
	}
}
