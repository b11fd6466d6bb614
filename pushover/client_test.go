// Copyright (c) 2023 BVK Chaitanya

package pushover

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"
)

func TestSendMessage(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("want POST, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("could not decode request: %v", err)
		}
		if got["token"] == "bad" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"status":0,"errors":["application token is invalid"]}`))
			return
		}
		w.Write([]byte(`{"status":1,"request":"abc"}`))
	}))
	defer srv.Close()

	ctx := context.Background()
	c, err := New(&Keys{ApplicationKey: "app", UserKey: "user"}, &Options{URL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.SendMessage(ctx, time.Unix(1700000000, 0), "task check is failing"); err != nil {
		t.Fatal(err)
	}
	if got["message"] != "task check is failing" || got["user"] != "user" || got["title"] != "goldalert" {
		t.Fatalf("unexpected request body %v", got)
	}
	if ts, _ := got["timestamp"].(float64); ts != 1700000000 {
		t.Fatalf("want timestamp 1700000000, got %v", got["timestamp"])
	}

	bad, err := New(&Keys{ApplicationKey: "bad", UserKey: "user"}, &Options{URL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	if err := bad.SendMessage(ctx, time.Now(), "x"); err == nil || !strings.Contains(err.Error(), "application token is invalid") {
		t.Fatalf("want application token error, got %v", err)
	}
}

func TestKeysFromEnv(t *testing.T) {
	t.Setenv("PUSHOVER_APP_KEY", "")
	t.Setenv("PUSHOVER_USER_KEY", "")
	if keys, err := KeysFromEnv(); err != nil || keys != nil {
		t.Fatalf("want nil keys without error, got %v, %v", keys, err)
	}

	t.Setenv("PUSHOVER_APP_KEY", "app")
	if _, err := KeysFromEnv(); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("want os.ErrInvalid for partial keys, got %v", err)
	}

	t.Setenv("PUSHOVER_USER_KEY", "user")
	keys, err := KeysFromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if keys.ApplicationKey != "app" || keys.UserKey != "user" {
		t.Fatalf("unexpected keys %+v", keys)
	}
}
