package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/andy/billable/internal/app"
	"github.com/andy/billable/internal/domain"
	"github.com/andy/billable/internal/service"
)

// TimerModel starts, stops and discards the user's timer
type TimerModel struct {
	app    *app.App
	userID int64

	active   *domain.TimeEntry
	projects []*domain.Project
	ticking  bool

	statusMsg string
	err       error
}

type projectsLoadedMsg struct {
	projects []*domain.Project
	err      error
}

type timerStartedMsg struct{ entry *domain.TimeEntry }
type timerStoppedMsg struct{ entry *domain.TimeEntry }
type timerDiscardedMsg struct{}

func NewTimerModel(a *app.App, userID int64) TimerModel {
	return TimerModel{app: a, userID: userID}
}

func (m TimerModel) Init() tea.Cmd {
	return tea.Batch(m.loadProjects, loadActiveCmd(m.app, m.userID))
}

// loadProjects lists the projects time can still be tracked on
func (m TimerModel) loadProjects() tea.Msg {
	all, err := m.app.Projects.List(context.Background(), m.userID, service.ProjectQuery{})
	if err != nil {
		return projectsLoadedMsg{err: err}
	}
	open := make([]*domain.Project, 0, len(all))
	for _, p := range all {
		if !p.Status.IsClosed() {
			open = append(open, p)
		}
	}
	return projectsLoadedMsg{projects: open}
}

func (m TimerModel) startTimer(projectID int64) tea.Cmd {
	return func() tea.Msg {
		entry, err := m.app.Tracking.StartTimeTracking(context.Background(), m.userID, projectID, nil)
		if err != nil {
			return ErrorMsg{Err: err}
		}
		return timerStartedMsg{entry: entry}
	}
}

func (m TimerModel) stopTimer() tea.Msg {
	entry, err := m.app.Tracking.StopTimeTracking(context.Background(), m.userID)
	if err != nil {
		return ErrorMsg{Err: err}
	}
	return timerStoppedMsg{entry: entry}
}

func (m TimerModel) discardTimer() tea.Msg {
	if err := m.app.Tracking.DiscardActive(context.Background(), m.userID); err != nil {
		return ErrorMsg{Err: err}
	}
	return timerDiscardedMsg{}
}

func (m TimerModel) Update(msg tea.Msg) (TimerModel, tea.Cmd) {
	switch msg := msg.(type) {
	case projectsLoadedMsg:
		m.projects, m.err = msg.projects, msg.err
		return m, nil

	case activeLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.active = msg.entry
		if m.active != nil && !m.ticking {
			m.ticking = true
			return m, tick(timerTickMsg{})
		}
		return m, nil

	case timerTickMsg:
		m.ticking = false
		if m.active == nil {
			return m, nil
		}
		// Reload so a timer stopped from the CLI is noticed
		return m, loadActiveCmd(m.app, m.userID)

	case timerStartedMsg:
		m.active = msg.entry
		m.err = nil
		m.statusMsg = "Timer started"
		if !m.ticking {
			m.ticking = true
			return m, tick(timerTickMsg{})
		}
		return m, nil

	case timerStoppedMsg:
		m.active = nil
		m.err = nil
		m.statusMsg = fmt.Sprintf("Recorded %s (%s)",
			formatHours(msg.entry.Hours()),
			formatMoney(msg.entry.Amount, m.app.Config.Invoice.DefaultCurrency))
		return m, nil

	case timerDiscardedMsg:
		m.active = nil
		m.err = nil
		m.statusMsg = "Timer discarded"
		return m, nil

	case ErrorMsg:
		m.err = msg.Err
		m.statusMsg = ""
		return m, nil

	case RefreshDataMsg:
		return m, m.Init()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m TimerModel) handleKey(msg tea.KeyMsg) (TimerModel, tea.Cmd) {
	switch {
	case key.Matches(msg, DefaultKeyMap.Stop):
		if m.active != nil {
			return m, m.stopTimer
		}
	case key.Matches(msg, DefaultKeyMap.Discard):
		if m.active != nil {
			return m, m.discardTimer
		}
	case key.Matches(msg, DefaultKeyMap.Pick):
		if m.active != nil {
			m.statusMsg = "Stop the running timer first"
			return m, nil
		}
		idx := int(msg.String()[0] - '1')
		if idx < len(m.projects) {
			return m, m.startTimer(m.projects[idx].ID)
		}
	}
	return m, nil
}

func (m TimerModel) View() string {
	var b strings.Builder

	if m.active != nil {
		now := m.app.Clock.Now()
		b.WriteString(timerRunningStyle.Render("● Tracking "+m.projectName(m.active.ProjectID)) + "\n\n")
		b.WriteString(boxStyle.Render(fmt.Sprintf("%s\n%s",
			timerValueStyle.Render(formatClock(m.active.Duration(now))),
			formatMoney(m.active.AccruedAmount(now), m.app.Config.Invoice.DefaultCurrency))))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("[x] stop  [d] discard"))
	} else {
		b.WriteString(titleStyle.Render("Start tracking") + "\n\n")
		if len(m.projects) == 0 {
			b.WriteString(subtitleStyle.Render("No open projects. Create one with `billable` or the API."))
		}
		for i, p := range m.projects {
			if i >= 9 {
				break
			}
			b.WriteString(fmt.Sprintf("  [%d] %-28s %s\n", i+1, truncateStr(p.Name, 28),
				subtitleStyle.Render(formatMoney(p.HourlyRate, m.app.Config.Invoice.DefaultCurrency)+"/h")))
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("[1-9] start  [esc] back"))
	}

	if m.err != nil {
		b.WriteString("\n\n" + errorStyle.Render("Error: "+m.err.Error()))
	} else if m.statusMsg != "" {
		b.WriteString("\n\n" + subtitleStyle.Render(m.statusMsg))
	}
	return b.String()
}

func (m TimerModel) projectName(id int64) string {
	for _, p := range m.projects {
		if p.ID == id {
			return p.Name
		}
	}
	return fmt.Sprintf("project %d", id)
}
