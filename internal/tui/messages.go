package tui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/andy/billable/internal/app"
	"github.com/andy/billable/internal/domain"
	"github.com/andy/billable/internal/service"
)

// SwitchScreenMsg requests a screen change
type SwitchScreenMsg struct {
	Screen Screen
}

// RefreshDataMsg requests data refresh
type RefreshDataMsg struct{}

// ErrorMsg carries error information
type ErrorMsg struct {
	Err error
}

// activeLoadedMsg carries the running entry, nil when idle
type activeLoadedMsg struct {
	entry *domain.TimeEntry
	err   error
}

// Ticks are per screen so a screen never consumes another's ticks
type (
	dashboardTickMsg struct{}
	timerTickMsg     struct{}
)

const tickInterval = time.Second

func tick(msg tea.Msg) tea.Cmd {
	return tea.Tick(tickInterval, func(time.Time) tea.Msg { return msg })
}

// loadActiveCmd fetches the running entry of the user
func loadActiveCmd(a *app.App, userID int64) tea.Cmd {
	return func() tea.Msg {
		entry, err := a.Tracking.GetActiveTimeEntry(context.Background(), userID)
		if errors.Is(err, service.ErrNoActiveTimer) {
			return activeLoadedMsg{}
		}
		return activeLoadedMsg{entry: entry, err: err}
	}
}
