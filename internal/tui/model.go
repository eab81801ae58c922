package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/andy/billable/internal/app"
	"github.com/andy/billable/internal/domain"
)

// Screen represents the current active screen
type Screen int

const (
	ScreenDashboard Screen = iota
	ScreenTimer
)

// String returns the screen name
func (s Screen) String() string {
	switch s {
	case ScreenDashboard:
		return "Dashboard"
	case ScreenTimer:
		return "Timer"
	default:
		return "Unknown"
	}
}

// Model is the root Bubble Tea model
type Model struct {
	app           *app.App
	user          *domain.User
	currentScreen Screen
	width         int
	height        int

	dashboard DashboardModel
	timer     TimerModel

	quitMsg string // shown when quit is blocked
}

// New creates a new root model for the given user
func New(a *app.App, user *domain.User) Model {
	return Model{
		app:           a,
		user:          user,
		currentScreen: ScreenDashboard,
		dashboard:     NewDashboardModel(a, user.ID),
		timer:         NewTimerModel(a, user.ID),
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return m.dashboard.Init()
}

func (m Model) switchTo(screen Screen) (Model, tea.Cmd) {
	m.currentScreen = screen
	if screen == ScreenTimer {
		return m, m.timer.Init()
	}
	return m, func() tea.Msg { return RefreshDataMsg{} }
}

// Update implements tea.Model - routes keys to screens
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		m.quitMsg = ""

		switch {
		case key.Matches(msg, DefaultKeyMap.Quit):
			if _, err := m.app.Tracking.GetActiveTimeEntry(context.Background(), m.user.ID); err == nil {
				m.quitMsg = "Timer is running. Stop or discard it before quitting."
				return m, nil
			}
			return m, tea.Quit

		case key.Matches(msg, DefaultKeyMap.Timer):
			return m.switchTo(ScreenTimer)

		case key.Matches(msg, DefaultKeyMap.Dashboard), key.Matches(msg, DefaultKeyMap.Back):
			return m.switchTo(ScreenDashboard)

		case key.Matches(msg, DefaultKeyMap.Refresh):
			return m, func() tea.Msg { return RefreshDataMsg{} }
		}

	case SwitchScreenMsg:
		return m.switchTo(msg.Screen)

	case dashboardTickMsg:
		var cmd tea.Cmd
		m.dashboard, cmd = m.dashboard.Update(msg)
		return m, cmd

	case timerTickMsg:
		var cmd tea.Cmd
		m.timer, cmd = m.timer.Update(msg)
		return m, cmd
	}

	// Route message to current screen
	var cmd tea.Cmd
	switch m.currentScreen {
	case ScreenDashboard:
		m.dashboard, cmd = m.dashboard.Update(msg)
	case ScreenTimer:
		m.timer, cmd = m.timer.Update(msg)
	}
	return m, cmd
}

// View implements tea.Model - renders header + current screen + footer
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	header := headerStyle.Render(fmt.Sprintf("billable - %s - %s", m.currentScreen.String(), m.user.Username))
	footer := footerStyle.Render("[T]imer  [H]ome  [R]efresh  [Q]uit")

	var content string
	switch m.currentScreen {
	case ScreenDashboard:
		content = m.dashboard.View()
	case ScreenTimer:
		content = m.timer.View()
	}

	warning := ""
	if m.quitMsg != "" {
		warning = "\n" + warningStyle.Render(m.quitMsg)
	}

	innerWidth := m.width - 6 // border (2) + padding (4)
	if innerWidth < 20 {
		innerWidth = 20
	}
	dividerWidth := innerWidth - 12
	if dividerWidth < 10 {
		dividerWidth = 10
	}
	divider := dividerStyle.Render(strings.Repeat("─", dividerWidth))

	body := fmt.Sprintf("%s\n%s\n\n%s%s\n\n%s\n%s", header, divider, content, warning, divider, footer)

	frame := appBorderStyle.
		Width(innerWidth).
		Height(m.height - 4)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, frame.Render(body))
}

// Run starts the TUI for user
func Run(a *app.App, user *domain.User) error {
	p := tea.NewProgram(New(a, user), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
