package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Invoice.NumberPrefix != "INV" || cfg.Invoice.DefaultDueDays != 30 {
		t.Fatalf("expected invoice defaults, got %+v", cfg.Invoice)
	}
	if cfg.TimeTracking.DefaultWithholdingRate != 0.20 {
		t.Fatalf("expected withholding 0.20, got %v", cfg.TimeTracking.DefaultWithholdingRate)
	}
	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Fatalf("expected 24h token ttl, got %s", cfg.Auth.TokenTTL)
	}
}

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
database:
  path: /tmp/b.db
server:
  addr: ":9090"
  read_timeout: 5s
invoice:
  default_tax_rate: 8.25
  number_prefix: ACME
log:
  level: debug
  format: json
user:
  username: alice
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.Path != "/tmp/b.db" || cfg.Server.Addr != ":9090" {
		t.Fatalf("unexpected values: %+v %+v", cfg.Database, cfg.Server)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Fatalf("expected 5s, got %s", cfg.Server.ReadTimeout)
	}
	// untouched keys keep their defaults
	if cfg.Server.WriteTimeout != 15*time.Second {
		t.Fatalf("expected default write timeout, got %s", cfg.Server.WriteTimeout)
	}
	if got := cfg.TaxRate().String(); got != "8.25" {
		t.Fatalf("expected tax rate 8.25, got %s", got)
	}
	if cfg.Invoice.NumberPrefix != "ACME" || cfg.User.Username != "alice" || cfg.Log.Format != "json" {
		t.Fatalf("unexpected values: %+v", cfg)
	}
}

func TestLoad_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[database]
path = "/tmp/t.db"

[auth]
jwt_secret = "from-file"
token_ttl = "2h"

[time_tracking]
default_withholding_rate = 0.15
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.Path != "/tmp/t.db" || cfg.Auth.JWTSecret != "from-file" {
		t.Fatalf("unexpected values: %+v %+v", cfg.Database, cfg.Auth)
	}
	if cfg.Auth.TokenTTL != 2*time.Hour {
		t.Fatalf("expected 2h, got %s", cfg.Auth.TokenTTL)
	}
	if got := cfg.WithholdingRate().String(); got != "0.15" {
		t.Fatalf("expected 0.15, got %s", got)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvJWTSecret, "from-env")
	t.Setenv(EnvDBPath, "/var/lib/billable.db")
	t.Setenv(EnvAddr, "127.0.0.1:7000")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Auth.JWTSecret != "from-env" || cfg.Database.Path != "/var/lib/billable.db" || cfg.Server.Addr != "127.0.0.1:7000" {
		t.Fatalf("env overrides not applied: %+v %+v %+v", cfg.Auth, cfg.Database, cfg.Server)
	}
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "invoice:\n  default_tax_rate: 120\nserver:\n  mode: prod\nlog:\n  format: xml\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatalf("expected an error")
	}
	for _, want := range []string{"default_tax_rate", "server.mode", "log.format"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}
}

func TestSaveRoundTrip(t *testing.T) {
	for _, name := range []string{"config.yaml", "config.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			cfg := DefaultConfig()
			cfg.User.Username = "alice"
			cfg.Server.ReadTimeout = 3 * time.Second
			if err := cfg.Save(path); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			got, err := Load(path)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.User.Username != "alice" || got.Server.ReadTimeout != 3*time.Second {
				t.Fatalf("round trip lost values: %+v %+v", got.User, got.Server)
			}
		})
	}
}
