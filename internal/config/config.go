package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the file
const (
	EnvJWTSecret = "BILLABLE_JWT_SECRET"
	EnvDBPath    = "BILLABLE_DB_PATH"
	EnvAddr      = "BILLABLE_ADDR"
)

type Config struct {
	// Database settings
	Database DatabaseConfig `yaml:"database" toml:"database"`

	// HTTP API
	Server ServerConfig `yaml:"server" toml:"server"`
	Auth   AuthConfig   `yaml:"auth" toml:"auth"`

	// Invoice settings
	Invoice      InvoiceConfig      `yaml:"invoice" toml:"invoice"`
	TimeTracking TimeTrackingConfig `yaml:"time_tracking" toml:"time_tracking"`

	Log LogConfig `yaml:"log" toml:"log"`

	// Acting user for the CLI and TUI, and contact details for invoices
	User UserConfig `yaml:"user" toml:"user"`
}

type DatabaseConfig struct {
	Path string `yaml:"path" toml:"path"` // Path to the SQLCipher database
}

type ServerConfig struct {
	Addr         string        `yaml:"addr" toml:"addr"`
	Mode         string        `yaml:"mode" toml:"mode"` // gin mode: debug, release or test
	ReadTimeout  time.Duration `yaml:"read_timeout" toml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" toml:"write_timeout"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret" toml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl" toml:"token_ttl"`
}

type InvoiceConfig struct {
	DefaultDueDays  int     `yaml:"default_due_days" toml:"default_due_days"` // Days until invoice due
	DefaultTaxRate  float64 `yaml:"default_tax_rate" toml:"default_tax_rate"` // Percent (8.25 = 8.25%)
	NumberPrefix    string  `yaml:"number_prefix" toml:"number_prefix"`       // e.g. "INV"
	DefaultCurrency string  `yaml:"default_currency" toml:"default_currency"` // ISO 4217
}

type TimeTrackingConfig struct {
	DefaultWithholdingRate float64 `yaml:"default_withholding_rate" toml:"default_withholding_rate"` // Fraction (0.20 = 20%)
}

type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`   // debug, info, warn, error
	Format string `yaml:"format" toml:"format"` // text or json
}

type UserConfig struct {
	Username string `yaml:"username" toml:"username"`
	Name     string `yaml:"name" toml:"name"`
	Email    string `yaml:"email" toml:"email"`
	Address  string `yaml:"address" toml:"address"`
	Phone    string `yaml:"phone" toml:"phone"`
}

func configDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home dir unavailable
		homeDir = "."
	}
	return filepath.Join(homeDir, ".config", "billable")
}

// DefaultConfigPath returns ~/.config/billable/config.yaml
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: filepath.Join(configDir(), "billable.db"),
		},
		Server: ServerConfig{
			Addr:         ":8080",
			Mode:         "release",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Invoice: InvoiceConfig{
			DefaultDueDays:  30,
			NumberPrefix:    "INV",
			DefaultCurrency: "EUR",
		},
		TimeTracking: TimeTrackingConfig{
			DefaultWithholdingRate: 0.20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads config from the given path, or returns defaults if the file
// doesn't exist. Environment overrides are applied either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	case isTOML(path):
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault loads from the default config path
func LoadDefault() (*Config, error) {
	return Load(DefaultConfigPath())
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvJWTSecret); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(EnvAddr); v != "" {
		c.Server.Addr = v
	}
}

// Validate rejects values the services would refuse later
func (c *Config) Validate() error {
	var problems []string
	if c.Database.Path == "" {
		problems = append(problems, "database.path is required")
	}
	if c.Invoice.DefaultDueDays < 0 {
		problems = append(problems, "invoice.default_due_days cannot be negative")
	}
	if c.Invoice.DefaultTaxRate < 0 || c.Invoice.DefaultTaxRate > 100 {
		problems = append(problems, "invoice.default_tax_rate must be between 0 and 100")
	}
	if r := c.TimeTracking.DefaultWithholdingRate; r < 0 || r > 1 {
		problems = append(problems, "time_tracking.default_withholding_rate must be between 0 and 1")
	}
	switch c.Server.Mode {
	case "", "debug", "release", "test":
	default:
		problems = append(problems, fmt.Sprintf("server.mode %q is not debug, release or test", c.Server.Mode))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("log.format %q is not text or json", c.Log.Format))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// TaxRate is the default invoice tax rate as a decimal percent
func (c *Config) TaxRate() decimal.Decimal {
	return decimal.NewFromFloat(c.Invoice.DefaultTaxRate)
}

// WithholdingRate is the default withholding fraction for new entries
func (c *Config) WithholdingRate() decimal.Decimal {
	return decimal.NewFromFloat(c.TimeTracking.DefaultWithholdingRate)
}

// Save writes the config to the given path in the format its extension implies
func (c *Config) Save(path string) error {
	// Create parent directories if they don't exist
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	if isTOML(path) {
		var b strings.Builder
		err = toml.NewEncoder(&b).Encode(c)
		data = []byte(b.String())
	} else {
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	// the file may hold the JWT secret
	return os.WriteFile(path, data, 0o600)
}

// EnsureDirectories creates the database directory
func (c *Config) EnsureDirectories() error {
	return os.MkdirAll(filepath.Dir(c.Database.Path), 0o700)
}
