package crypto

import (
	"errors"
	"strings"
	"testing"

	"github.com/zalando/go-keyring"
)

func TestKeyStore(t *testing.T) {
	keyring.MockInit()
	t.Setenv(EnvKey, "")
	k := NewKeyStore()

	if _, err := k.GetKey(); !errors.Is(err, ErrNoKey) {
		t.Fatalf("expected ErrNoKey, got %v", err)
	}
	if err := k.SetKey(""); err == nil {
		t.Fatalf("expected empty key to be rejected")
	}
	if err := k.SetKey("hunter22"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	key, err := k.GetKey()
	if err != nil || key != "hunter22" {
		t.Fatalf("expected hunter22, got %q %v", key, err)
	}
	if k.Source() != "system keyring" {
		t.Fatalf("unexpected source %q", k.Source())
	}

	t.Setenv(EnvKey, "from-env")
	if key, _ := k.GetKey(); key != "from-env" {
		t.Fatalf("expected env to win, got %q", key)
	}
	if k.Source() != "$"+EnvKey {
		t.Fatalf("unexpected source %q", k.Source())
	}

	if err := k.DeleteKey(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := k.DeleteKey(); !errors.Is(err, ErrNoKey) {
		t.Fatalf("expected ErrNoKey, got %v", err)
	}
}

func TestKeyStore_Unavailable(t *testing.T) {
	keyring.MockInitWithError(errors.New("no secret service"))
	t.Setenv(EnvKey, "")
	k := NewKeyStore()

	err := k.SetKey("hunter22")
	if err == nil || strings.Contains(err.Error(), "hunter22") || !strings.Contains(err.Error(), EnvKey) {
		t.Fatalf("expected an error pointing at %s without the key, got %v", EnvKey, err)
	}
	if _, err := k.GetKey(); err == nil || errors.Is(err, ErrNoKey) {
		t.Fatalf("expected a keyring error, got %v", err)
	}
}
