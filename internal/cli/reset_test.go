package cli

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andy/billable/internal/app"
	"github.com/andy/billable/internal/config"
	"github.com/andy/billable/internal/domain"
	"github.com/andy/billable/internal/service"
)

func TestExecAll_ResetEntries(t *testing.T) {
	ctx := context.Background()
	cfg := config.DefaultConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "billable.db")

	a, err := app.Open(ctx, cfg, "test-key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.Close()

	user, err := a.Users.Register(ctx, "alice", "alice@example.com", "", "correct horse")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	name := "Acme"
	client, err := a.Clients.Create(ctx, user.ID, service.ClientInput{Name: &name})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	project, err := a.Projects.Create(ctx, user.ID, service.ProjectInput{
		ClientID:   client.ID,
		Name:       "Website",
		HourlyRate: decimal.NewFromInt(80),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	start := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	entry, err := a.Tracking.LogTimeEntry(ctx, user.ID, service.LogEntryInput{
		ProjectID: project.ID,
		Start:     start,
		End:       start.Add(2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := a.Invoices.CreateInvoiceFromTimeEntries(ctx, user.ID, service.FromEntriesInput{
		ClientID: client.ID,
		EntryIDs: []int64{entry.ID},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := execAll(ctx, a.DB.DB, user.ID, resetInvoiceStmts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	invoices, err := a.Invoices.ListInvoices(ctx, user.ID, service.InvoiceQuery{})
	if err != nil || len(invoices) != 0 {
		t.Fatalf("expected no invoices, got %d %v", len(invoices), err)
	}
	unlocked, err := a.Tracking.GetTimeEntry(ctx, user.ID, entry.ID)
	if err != nil || unlocked.IsLocked() {
		t.Fatalf("expected an unlocked entry, got %+v %v", unlocked, err)
	}

	if err := execAll(ctx, a.DB.DB, user.ID, resetAllStmts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clients, err := a.Clients.List(ctx, user.ID, true)
	if err != nil || len(clients) != 0 {
		t.Fatalf("expected no clients, got %d %v", len(clients), err)
	}

	// numbers are never reused after a reset
	number, err := a.Invoices.PeekInvoiceNumber(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := domain.FormatInvoiceNumber(cfg.Invoice.NumberPrefix, a.Clock.Now().Year(), 2)
	if number != want {
		t.Fatalf("expected %s, got %s", want, number)
	}
}
