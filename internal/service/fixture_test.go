package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andy/billable/internal/db"
	"github.com/andy/billable/internal/domain"
	"github.com/andy/billable/internal/repository"
	"github.com/andy/billable/internal/repository/memstore"
)

// Monday morning
var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fixture struct {
	store       *memstore.Store
	repo        repository.Store
	clock       *domain.ManualClock
	users       UserService
	clients     ClientService
	projects    ProjectService
	assignments AssignmentService
	tracking    TimeTrackingService
	invoices    InvoiceService
	reports     ReportService
	userID      int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	f := newFixtureOn(t, store)
	f.store = store
	return f
}

// newSQLFixture runs the services against an encrypted database in a temp dir
func newSQLFixture(t *testing.T) *fixture {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "billable.db"), "test-key")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := database.RunMigrations(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return newFixtureOn(t, repository.NewSQLStore(database))
}

// backends lists the stores that concurrency tests run against
var backends = []struct {
	name string
	open func(*testing.T) *fixture
}{
	{"memstore", newFixture},
	{"sqlcipher", newSQLFixture},
}

func newFixtureOn(t *testing.T, store repository.Store) *fixture {
	t.Helper()
	clock := domain.NewManualClock(t0)

	opts := DefaultInvoiceOptions()
	f := &fixture{
		repo:        store,
		clock:       clock,
		users:       NewUserService(store, clock, nil),
		clients:     NewClientService(store, clock, nil),
		projects:    NewProjectService(store, clock, nil),
		assignments: NewAssignmentService(store, clock, nil),
		tracking:    NewTimeTrackingService(store, clock, nil, domain.DefaultWithholdingTaxRate),
		invoices:    NewInvoiceService(store, clock, nil, opts),
		reports:     NewReportService(store, clock, nil),
	}
	f.userID = f.user(t, "alice")
	return f
}

// user inserts a user straight into the store, skipping bcrypt
func (f *fixture) user(t *testing.T, username string) int64 {
	t.Helper()
	u := domain.NewUser(username, username+"@example.com", "", t0)
	u.PasswordHash = "x"
	if err := f.repo.Users().Create(ctx(), u); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return u.ID
}

func (f *fixture) client(t *testing.T, userID int64, name, rate string) *domain.Client {
	t.Helper()
	r := dec(rate)
	c, err := f.clients.Create(ctx(), userID, ClientInput{Name: &name, HourlyRate: &r})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return c
}

func (f *fixture) project(t *testing.T, userID, clientID int64, rate, estimated string) *domain.Project {
	t.Helper()
	p, err := f.projects.Create(ctx(), userID, ProjectInput{
		ClientID:       clientID,
		Name:           "Website",
		HourlyRate:     dec(rate),
		EstimatedHours: dec(estimated),
	})
	if err != nil {
		t.Fatalf("failed to create project: %v", err)
	}
	return p
}

// track records minutes of work on project by running the timer
func (f *fixture) track(t *testing.T, projectID int64, minutes int) *domain.TimeEntry {
	t.Helper()
	if _, err := f.tracking.StartTimeTracking(ctx(), f.userID, projectID, nil); err != nil {
		t.Fatalf("failed to start timer: %v", err)
	}
	f.clock.Advance(time.Duration(minutes) * time.Minute)
	entry, err := f.tracking.StopTimeTracking(ctx(), f.userID)
	if err != nil {
		t.Fatalf("failed to stop timer: %v", err)
	}
	return entry
}

func ctx() context.Context {
	return context.Background()
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
