package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andy/billable/internal/db"
	"github.com/andy/billable/internal/domain"
)

const testKey = "test-key"

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func openStore(t *testing.T) (*SQLStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "billable.db")
	database, err := db.Open(path, testKey)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := database.RunMigrations(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return NewSQLStore(database), path
}

type seed struct {
	user    *domain.User
	client  *domain.Client
	project *domain.Project
}

func seedProject(t *testing.T, s Store) seed {
	t.Helper()
	ctx := context.Background()

	user := domain.NewUser("alice", "alice@example.com", "Alice", t0)
	user.PasswordHash = "x"
	if err := s.Users().Create(ctx, user); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	client := domain.NewClient(user.ID, "Acme", decimal.NewFromInt(50), t0)
	if err := s.Clients().Create(ctx, client); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	project := domain.NewProject(user.ID, client.ID, "Website", t0, t0)
	project.HourlyRate = decimal.RequireFromString("62.50")
	if err := s.Projects().Create(ctx, project); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return seed{user: user, client: client, project: project}
}

func TestOpen_WrongKey(t *testing.T) {
	_, path := openStore(t)

	if _, err := db.Open(path, "not-the-key"); err == nil {
		t.Fatalf("expected wrong key to be rejected")
	}
}

func TestMigrations_Idempotent(t *testing.T) {
	s, _ := openStore(t)
	before, err := s.db.SchemaVersion()
	if err != nil || before < 1 {
		t.Fatalf("expected a migrated schema, got %d %v", before, err)
	}
	if err := s.db.RunMigrations(); err != nil {
		t.Fatalf("expected second run to be a no-op, got %v", err)
	}
	if after, _ := s.db.SchemaVersion(); after != before {
		t.Fatalf("expected version %d, got %d", before, after)
	}
}

func TestSQLStore_ProjectRoundTrip(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()
	sd := seedProject(t, s)

	got, err := s.Projects().GetByID(ctx, sd.project.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "Website" || !got.HourlyRate.Equal(decimal.RequireFromString("62.5")) {
		t.Fatalf("unexpected project: %+v", got)
	}
	if got.Status != domain.ProjectStatusPlanning {
		t.Fatalf("expected planning, got %s", got.Status)
	}

	if _, err := s.Projects().GetByID(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	dup := domain.NewUser("alice", "other@example.com", "", t0)
	dup.PasswordHash = "x"
	if err := s.Users().Create(ctx, dup); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestSQLStore_TimesKeepSubSecondPrecision(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()
	sd := seedProject(t, s)

	start := t0.Add(123456789 * time.Nanosecond)
	first := domain.NewTimeEntry(sd.user.ID, sd.project.ID, nil, sd.project.HourlyRate, decimal.Zero, start)
	first.Stop(start.Add(30*time.Minute + 987654321*time.Nanosecond))
	if err := s.Entries().Create(ctx, first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := s.Entries().GetByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.StartTime.Equal(first.StartTime) {
		t.Fatalf("expected start %v, got %v", first.StartTime, got.StartTime)
	}
	if got.EndTime == nil || !got.EndTime.Equal(*first.EndTime) {
		t.Fatalf("expected end %v, got %v", first.EndTime, got.EndTime)
	}

	// a whole-second start just after must still sort and filter after it
	second := domain.NewTimeEntry(sd.user.ID, sd.project.ID, nil, sd.project.HourlyRate, decimal.Zero, t0.Add(time.Second))
	second.Stop(t0.Add(time.Hour))
	if err := s.Entries().Create(ctx, second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	from := start.Add(time.Nanosecond)
	list, err := s.Entries().List(ctx, EntryFilter{UserID: sd.user.ID, From: &from})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 1 || list[0].ID != second.ID {
		t.Fatalf("expected only entry %d after %v, got %d entries", second.ID, from, len(list))
	}
	list, err = s.Entries().List(ctx, EntryFilter{UserID: sd.user.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatalf("expected newest first, got %d entries", len(list))
	}
}

func TestSQLStore_OneRunningEntryPerUser(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()
	sd := seedProject(t, s)

	running := domain.NewTimeEntry(sd.user.ID, sd.project.ID, nil, sd.project.HourlyRate, decimal.RequireFromString("0.2"), t0)
	if err := s.Entries().Create(ctx, running); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second := domain.NewTimeEntry(sd.user.ID, sd.project.ID, nil, sd.project.HourlyRate, decimal.Zero, t0)
	if err := s.Entries().Create(ctx, second); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	active, err := s.Entries().GetActive(ctx, sd.user.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if active.ID != running.ID || active.EndTime != nil {
		t.Fatalf("unexpected active entry: %+v", active)
	}

	active.Stop(t0.Add(90 * time.Minute))
	active.CalculateAmounts()
	if err := s.Entries().Update(ctx, active); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stopped, err := s.Entries().GetByID(ctx, running.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stopped.Minutes() != 90 {
		t.Fatalf("expected 90 minutes, got %d", stopped.Minutes())
	}
	if !stopped.Amount.Equal(decimal.RequireFromString("93.75")) {
		t.Fatalf("expected 93.75, got %s", stopped.Amount)
	}
	if _, err := s.Entries().GetActive(ctx, sd.user.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected no active entry, got %v", err)
	}
}

func TestSQLStore_WithTxRollsBack(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()
	sd := seedProject(t, s)

	boom := errors.New("boom")
	var createdID int64
	err := s.WithTx(ctx, func(tx Store) error {
		c := domain.NewClient(sd.user.ID, "Globex", decimal.NewFromInt(80), t0)
		if err := tx.Clients().Create(ctx, c); err != nil {
			return err
		}
		createdID = c.ID
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := s.Clients().GetByID(ctx, createdID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected rolled back client, got %v", err)
	}
}

func TestInvoiceRepo_SequenceItemsAndLocking(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()
	sd := seedProject(t, s)
	invoices := s.Invoices()

	if n, err := invoices.PeekSequence(ctx, 2026); err != nil || n != 1 {
		t.Fatalf("expected peek 1, got %d %v", n, err)
	}
	for want := int64(1); want <= 2; want++ {
		n, err := invoices.NextSequence(ctx, 2026)
		if err != nil || n != want {
			t.Fatalf("expected %d, got %d %v", want, n, err)
		}
	}
	if n, _ := invoices.NextSequence(ctx, 2027); n != 1 {
		t.Fatalf("expected a fresh sequence per year, got %d", n)
	}

	number := domain.FormatInvoiceNumber("INV", 2026, 2)
	inv := domain.NewInvoice(sd.user.ID, sd.client.ID, number, t0, t0.AddDate(0, 0, 30), decimal.NewFromInt(10), "EUR", t0)
	item := domain.NewInvoiceItem("Design", decimal.NewFromInt(2), decimal.NewFromInt(100), "hours")
	if err := inv.AddItem(item, t0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := invoices.Create(ctx, inv); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := invoices.GetByNumber(ctx, "INV-2026-0002")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Items) != 1 || !got.TotalAmount.Equal(decimal.NewFromInt(220)) {
		t.Fatalf("unexpected invoice: items=%d total=%s", len(got.Items), got.TotalAmount)
	}

	again := domain.NewInvoice(sd.user.ID, sd.client.ID, number, t0, t0, decimal.Zero, "EUR", t0)
	if err := invoices.Create(ctx, again); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate number to be rejected, got %v", err)
	}

	// Running entries cannot be billed
	entry := domain.NewTimeEntry(sd.user.ID, sd.project.ID, nil, sd.project.HourlyRate, decimal.Zero, t0)
	if err := s.Entries().Create(ctx, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Entries().LockForInvoice(ctx, []int64{entry.ID}, inv.ID, t0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected running entry to stay unlocked, got %v", err)
	}

	entry.Stop(t0.Add(time.Hour))
	entry.CalculateAmounts()
	if err := s.Entries().Update(ctx, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Entries().LockForInvoice(ctx, []int64{entry.ID}, inv.ID, t0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Entries().LockForInvoice(ctx, []int64{entry.ID}, inv.ID, t0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected second lock to fail, got %v", err)
	}

	unbilled, err := s.Entries().List(ctx, EntryFilter{UserID: sd.user.ID, UnbilledOnly: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(unbilled) != 0 {
		t.Fatalf("expected no unbilled entries, got %d", len(unbilled))
	}
}

func TestEntryRepo_History(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()
	sd := seedProject(t, s)

	entry := domain.NewTimeEntry(sd.user.ID, sd.project.ID, nil, sd.project.HourlyRate, decimal.Zero, t0)
	if err := s.Entries().Create(ctx, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, desc := range []string{"draft", "final"} {
		h := domain.NewEntryHistory(entry.ID, "description", "", desc, t0.Add(time.Duration(i)*time.Minute))
		if err := s.Entries().AddHistory(ctx, h); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	history, err := s.Entries().GetHistory(ctx, entry.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 2 || history[0].NewValue != "final" {
		t.Fatalf("expected newest change first, got %+v", history)
	}
}
