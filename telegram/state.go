// Copyright (c) 2025 BVK Chaitanya

package telegram

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"path"
	"time"

	"github.com/bvkgo/kv"
)

// State is the bot state saved in the database.
type State struct {
	ChatID int64

	// LearnedFrom is the username of the sender whose message fixed the
	// ChatID.
	LearnedFrom string

	LearnedAt time.Time
}

func stateKey(botName string) string {
	return path.Join("/telegram", botName, "state")
}

func loadState(ctx context.Context, db kv.Database, key string) (state *State, err error) {
	load := func(ctx context.Context, r kv.Reader) error {
		value, err := r.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("could not Get from %q: %w", key, err)
		}
		v := new(State)
		if err := gob.NewDecoder(value).Decode(v); err != nil {
			return fmt.Errorf("could not gob-decode value at key %q: %w", key, err)
		}
		state = v
		return nil
	}
	if err := kv.WithReader(ctx, db, load); err != nil {
		return nil, err
	}
	return state, nil
}

func saveState(ctx context.Context, db kv.Database, key string, state *State) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(state); err != nil {
		return fmt.Errorf("could not gob-encode telegram state: %w", err)
	}
	return kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		return rw.Set(ctx, key, &buf)
	})
}
