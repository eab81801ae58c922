package crypto

import (
	"errors"
	"fmt"
	"os"

	"github.com/zalando/go-keyring"
)

const (
	ServiceName = "billable"
	KeyName     = "db-key"

	// EnvKey overrides the keyring, for hosts without one
	EnvKey = "BILLABLE_DB_KEY"
)

// ErrNoKey means no database key has been stored yet
var ErrNoKey = errors.New("database key not found")

// KeyStore finds the database encryption key. EnvKey wins over the OS
// keyring (macOS Keychain, Secret Service, Windows Credential Manager).
type KeyStore struct {
	service string
	account string
}

// NewKeyStore returns the store for billable's database key
func NewKeyStore() *KeyStore {
	return &KeyStore{service: ServiceName, account: KeyName}
}

// GetKey returns the database key or ErrNoKey
func (k *KeyStore) GetKey() (string, error) {
	if key := os.Getenv(EnvKey); key != "" {
		return key, nil
	}

	key, err := keyring.Get(k.service, k.account)
	if errors.Is(err, keyring.ErrNotFound) || (err == nil && key == "") {
		return "", ErrNoKey
	}
	if err != nil {
		return "", fmt.Errorf("failed to read key from keyring (or set %s): %w", EnvKey, err)
	}
	return key, nil
}

// SetKey stores key in the OS keyring
func (k *KeyStore) SetKey(key string) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}
	// never echo the key back
	if err := keyring.Set(k.service, k.account, key); err != nil {
		return fmt.Errorf("failed to store key in keyring, export %s instead: %w", EnvKey, err)
	}
	return nil
}

// DeleteKey removes the key from the OS keyring
func (k *KeyStore) DeleteKey() error {
	err := keyring.Delete(k.service, k.account)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrNoKey
	}
	if err != nil {
		return fmt.Errorf("failed to delete key from keyring: %w", err)
	}
	return nil
}

// Source names where GetKey reads from
func (k *KeyStore) Source() string {
	if os.Getenv(EnvKey) != "" {
		return "$" + EnvKey
	}
	return "system keyring"
}
