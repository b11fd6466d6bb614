// Copyright (c) 2023 BVK Chaitanya

package pushover

import (
	"fmt"
	"os"
	"strings"
)

type Keys struct {
	ApplicationKey string `json:"application_key"`
	UserKey        string `json:"user_key"`
}

// KeysFromEnv returns the keys from PUSHOVER_APP_KEY and PUSHOVER_USER_KEY
// environment variables. Returns nil when neither is set.
func KeysFromEnv() (*Keys, error) {
	keys := &Keys{
		ApplicationKey: strings.TrimSpace(os.Getenv("PUSHOVER_APP_KEY")),
		UserKey:        strings.TrimSpace(os.Getenv("PUSHOVER_USER_KEY")),
	}
	if len(keys.ApplicationKey) == 0 && len(keys.UserKey) == 0 {
		return nil, nil
	}
	if err := keys.Check(); err != nil {
		return nil, err
	}
	return keys, nil
}

func (v *Keys) Check() error {
	if len(v.ApplicationKey) == 0 {
		return fmt.Errorf("pushover application key cannot be empty: %w", os.ErrInvalid)
	}
	if len(v.UserKey) == 0 {
		return fmt.Errorf("pushover user key cannot be empty: %w", os.ErrInvalid)
	}
	return nil
}
