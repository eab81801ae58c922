package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/andy/billable/internal/api"
	"github.com/andy/billable/internal/auth"
	"github.com/andy/billable/internal/config"
	"github.com/andy/billable/internal/crypto"
	"github.com/andy/billable/internal/db"
	"github.com/andy/billable/internal/domain"
	"github.com/andy/billable/internal/repository"
	"github.com/andy/billable/internal/service"
)

// ErrNotInitialized means no database key is stored yet
var ErrNotInitialized = errors.New("billable is not initialized: run `billable init` first")

// App is the dependency injection container for all application components
type App struct {
	Config *config.Config
	DB     *db.DB
	Store  repository.Store
	Clock  domain.Clock
	Logger *slog.Logger

	// Services
	Users       service.UserService
	Clients     service.ClientService
	Projects    service.ProjectService
	Assignments service.AssignmentService
	Tracking    service.TimeTrackingService
	Invoices    service.InvoiceService
	Reports     service.ReportService
}

// New creates a new App instance, initializing all dependencies:
// the database key from the keyring, the encrypted database and its
// migrations, the store and the services.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	password, err := crypto.NewKeyStore().GetKey()
	if errors.Is(err, crypto.ErrNoKey) {
		return nil, ErrNotInitialized
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get database key: %w", err)
	}
	return Open(ctx, cfg, password)
}

// Open builds the App with an explicit database key
func Open(ctx context.Context, cfg *config.Config, password string) (*App, error) {
	// Ensure all necessary directories exist
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	database, err := db.Open(cfg.Database.Path, password)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Run migrations to ensure schema is up to date
	if err := database.RunMigrations(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger := NewLogger(cfg.Log, os.Stderr)
	a := NewWithStore(cfg, repository.NewSQLStore(database), domain.SystemClock{}, logger)
	a.DB = database
	return a, nil
}

// NewWithStore wires the services over an already opened store
func NewWithStore(cfg *config.Config, store repository.Store, clock domain.Clock, logger *slog.Logger) *App {
	opts := service.InvoiceOptions{
		NumberPrefix: cfg.Invoice.NumberPrefix,
		DueDays:      cfg.Invoice.DefaultDueDays,
		TaxRate:      cfg.TaxRate(),
		Currency:     cfg.Invoice.DefaultCurrency,
	}
	return &App{
		Config:      cfg,
		Store:       store,
		Clock:       clock,
		Logger:      logger,
		Users:       service.NewUserService(store, clock, logger),
		Clients:     service.NewClientService(store, clock, logger),
		Projects:    service.NewProjectService(store, clock, logger),
		Assignments: service.NewAssignmentService(store, clock, logger),
		Tracking:    service.NewTimeTrackingService(store, clock, logger, cfg.WithholdingRate()),
		Invoices:    service.NewInvoiceService(store, clock, logger, opts),
		Reports:     service.NewReportService(store, clock, logger),
	}
}

// NewLogger builds the process logger from the log section
func NewLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Services exposes the services to the HTTP layer
func (a *App) Services() api.Services {
	return api.Services{
		Users:       a.Users,
		Clients:     a.Clients,
		Projects:    a.Projects,
		Assignments: a.Assignments,
		Tracking:    a.Tracking,
		Invoices:    a.Invoices,
		Reports:     a.Reports,
	}
}

// Issuer creates the token issuer for the API from the auth section
func (a *App) Issuer() (*auth.Issuer, error) {
	return auth.NewIssuer(a.Config.Auth.JWTSecret, a.Config.Auth.TokenTTL, a.Clock.Now)
}

// ActingUser resolves the user the CLI and TUI act as. An explicit name wins
// over the configured one.
func (a *App) ActingUser(ctx context.Context, username string) (*domain.User, error) {
	if username == "" {
		username = a.Config.User.Username
	}
	if username == "" {
		return nil, errors.New("no user selected: set user.username in the config or pass --user")
	}
	return a.Users.GetByUsername(ctx, username)
}

// Close cleanly shuts down the application
func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

// PromptPassword reads a password twice without echo
func PromptPassword(prompt string) (string, error) {
	fmt.Print(prompt)

	// Read password securely (no echo)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	if len(password) == 0 {
		return "", fmt.Errorf("password cannot be empty")
	}

	// Confirm password
	fmt.Print("Confirm password: ")
	confirm, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read confirmation: %w", err)
	}

	if string(password) != string(confirm) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(password), nil
}
