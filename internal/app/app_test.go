package app

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/andy/billable/internal/config"
	"github.com/andy/billable/internal/domain"
	"github.com/andy/billable/internal/repository/memstore"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(config.LogConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown", "k", 1)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("expected info to be filtered, got %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) {
		t.Fatalf("expected a json line, got %s", out)
	}
}

func TestNewLogger_BadLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(config.LogConfig{Level: "chatty", Format: "text"}, &buf)

	logger.Debug("hidden")
	logger.Info("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "msg=shown") {
		t.Fatalf("unexpected output: %s", buf.String())
	}
}

func TestActingUser(t *testing.T) {
	ctx := context.Background()
	cfg := config.DefaultConfig()
	cfg.User.Username = "alice"
	cfg.Auth.JWTSecret = "s3cret"

	store := memstore.New()
	clock := domain.NewManualClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	a := NewWithStore(cfg, store, clock, NewLogger(cfg.Log, &bytes.Buffer{}))

	if _, err := a.Users.Register(ctx, "alice", "alice@example.com", "", "correct horse"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := a.Users.Register(ctx, "bob", "bob@example.com", "", "correct horse"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	u, err := a.ActingUser(ctx, "")
	if err != nil || u.Username != "alice" {
		t.Fatalf("expected alice, got %v %v", u, err)
	}
	u, err = a.ActingUser(ctx, "bob")
	if err != nil || u.Username != "bob" {
		t.Fatalf("expected bob, got %v %v", u, err)
	}

	cfg.User.Username = ""
	if _, err := a.ActingUser(ctx, ""); err == nil {
		t.Fatalf("expected an error without a user")
	}

	if _, err := a.Issuer(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
