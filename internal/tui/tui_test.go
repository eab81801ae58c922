package tui

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/andy/billable/internal/app"
	"github.com/andy/billable/internal/config"
	"github.com/andy/billable/internal/domain"
	"github.com/andy/billable/internal/repository/memstore"
	"github.com/andy/billable/internal/service"
)

type fixture struct {
	app     *app.App
	clock   *domain.ManualClock
	user    *domain.User
	project *domain.Project
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	cfg := config.DefaultConfig()
	clock := domain.NewManualClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	a := app.NewWithStore(cfg, memstore.New(), clock, app.NewLogger(cfg.Log, &bytes.Buffer{}))

	user, err := a.Users.Register(ctx, "alice", "alice@example.com", "Alice", "correct horse")
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
		HourlyRate: decimal.NewFromInt(60),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return &fixture{app: a, clock: clock, user: user, project: project}
}

func keyPress(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestTimerScreen_StartStopDiscard(t *testing.T) {
	f := newFixture(t)
	m := NewTimerModel(f.app, f.user.ID)
	m, _ = m.Update(m.loadProjects())

	if !strings.Contains(m.View(), "[1] Website") {
		t.Fatalf("expected project list, got %s", m.View())
	}

	m, cmd := m.Update(keyPress("1"))
	if cmd == nil {
		t.Fatalf("expected a start command")
	}
	m, cmd = m.Update(cmd())
	if m.active == nil || cmd == nil {
		t.Fatalf("expected a running timer with a tick scheduled")
	}

	f.clock.Advance(90 * time.Minute)
	if view := m.View(); !strings.Contains(view, "01:30:00") || !strings.Contains(view, "90.00 EUR") {
		t.Fatalf("expected live elapsed and accrued value, got %s", view)
	}

	m, cmd = m.Update(keyPress("1"))
	if cmd != nil || m.statusMsg != "Stop the running timer first" {
		t.Fatalf("expected start to be refused, got %q", m.statusMsg)
	}

	m, cmd = m.Update(keyPress("x"))
	m, _ = m.Update(cmd())
	if m.active != nil {
		t.Fatalf("expected timer to be stopped")
	}
	if !strings.Contains(m.statusMsg, "1h 30m") {
		t.Fatalf("expected recorded duration, got %q", m.statusMsg)
	}

	m, cmd = m.Update(keyPress("1"))
	m, _ = m.Update(cmd())
	m, cmd = m.Update(keyPress("d"))
	m, _ = m.Update(cmd())
	if m.active != nil || m.statusMsg != "Timer discarded" {
		t.Fatalf("expected discarded timer, got %q", m.statusMsg)
	}

	entries, err := f.app.Tracking.ListEntries(context.Background(), f.user.ID, service.EntryQuery{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
}

func TestTimerScreen_HidesClosedProjects(t *testing.T) {
	f := newFixture(t)
	if _, err := f.app.Projects.Cancel(context.Background(), f.user.ID, f.project.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m := NewTimerModel(f.app, f.user.ID)
	m, _ = m.Update(m.loadProjects())
	if len(m.projects) != 0 {
		t.Fatalf("expected no open projects, got %d", len(m.projects))
	}
	if _, cmd := m.Update(keyPress("1")); cmd != nil {
		t.Fatalf("expected no command without projects")
	}
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.app.Tracking.StartTimeTracking(ctx, f.user.ID, f.project.ID, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.clock.Advance(30 * time.Minute)
	if _, err := f.app.Tracking.StopTimeTracking(ctx, f.user.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.app.Tracking.StartTimeTracking(ctx, f.user.ID, f.project.ID, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.clock.Advance(15 * time.Minute)

	m := NewDashboardModel(f.app, f.user.ID)
	m, cmd := m.Update(m.loadData())
	if m.err != nil {
		t.Fatalf("unexpected error: %v", m.err)
	}
	if cmd == nil || !m.ticking {
		t.Fatalf("expected a tick while a timer runs")
	}

	view := m.View()
	for _, want := range []string{"Tracking", "Website", "00:15:00", "15.00 EUR", "30.00 EUR", "30m"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in view, got %s", want, view)
		}
	}
}

func TestModel_QuitBlockedWhileTracking(t *testing.T) {
	f := newFixture(t)
	m := New(f.app, f.user)

	if _, err := f.app.Tracking.StartTimeTracking(context.Background(), f.user.ID, f.project.ID, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	next, cmd := m.Update(keyPress("q"))
	if cmd != nil {
		t.Fatalf("expected quit to be blocked")
	}
	if next.(Model).quitMsg == "" {
		t.Fatalf("expected a warning")
	}

	if err := f.app.Tracking.DiscardActive(context.Background(), f.user.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, cmd = next.Update(keyPress("q"))
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected QuitMsg")
	}
}

func TestModel_SwitchScreens(t *testing.T) {
	f := newFixture(t)
	m := New(f.app, f.user)

	next, _ := m.Update(keyPress("t"))
	if next.(Model).currentScreen != ScreenTimer {
		t.Fatalf("expected timer screen")
	}
	next, _ = next.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if next.(Model).currentScreen != ScreenDashboard {
		t.Fatalf("expected dashboard screen")
	}
}

func TestFormatters(t *testing.T) {
	if got := formatMoney(decimal.RequireFromString("1234567.5"), "EUR"); got != "1,234,567.50 EUR" {
		t.Fatalf("expected 1,234,567.50 EUR, got %s", got)
	}
	if got := formatMoney(decimal.RequireFromString("-12.3"), ""); got != "-12.30" {
		t.Fatalf("expected -12.30, got %s", got)
	}
	if got := formatHours(decimal.RequireFromString("1.5")); got != "1h 30m" {
		t.Fatalf("expected 1h 30m, got %s", got)
	}
	if got := formatHours(decimal.NewFromInt(2)); got != "2h" {
		t.Fatalf("expected 2h, got %s", got)
	}
	if got := formatClock(3725 * time.Second); got != "01:02:05" {
		t.Fatalf("expected 01:02:05, got %s", got)
	}
}
