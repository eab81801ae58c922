package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/andy/billable/internal/app"
	"github.com/andy/billable/internal/service"
)

// DashboardModel shows today's and this week's totals, money owed and the running timer
type DashboardModel struct {
	app    *app.App
	userID int64

	data     *service.Dashboard
	projects map[int64]string
	ticking  bool
	err      error
}

type dashboardLoadedMsg struct {
	data     *service.Dashboard
	projects map[int64]string
	err      error
}

func NewDashboardModel(a *app.App, userID int64) DashboardModel {
	return DashboardModel{app: a, userID: userID}
}

func (m DashboardModel) Init() tea.Cmd {
	return m.loadData
}

func (m DashboardModel) loadData() tea.Msg {
	ctx := context.Background()
	data, err := m.app.Reports.Dashboard(ctx, m.userID)
	if err != nil {
		return dashboardLoadedMsg{err: err}
	}
	projects, err := m.app.Projects.List(ctx, m.userID, service.ProjectQuery{})
	if err != nil {
		return dashboardLoadedMsg{err: err}
	}
	names := make(map[int64]string, len(projects))
	for _, p := range projects {
		names[p.ID] = p.Name
	}
	return dashboardLoadedMsg{data: data, projects: names}
}

func (m DashboardModel) Update(msg tea.Msg) (DashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case dashboardLoadedMsg:
		m.err = msg.err
		if msg.err != nil {
			return m, nil
		}
		m.data = msg.data
		m.projects = msg.projects
		if m.data.Active != nil && !m.ticking {
			m.ticking = true
			return m, tick(dashboardTickMsg{})
		}
		return m, nil

	case dashboardTickMsg:
		// Elapsed and accrued are recomputed from the clock in View
		if m.data == nil || m.data.Active == nil {
			m.ticking = false
			return m, nil
		}
		return m, tick(dashboardTickMsg{})

	case RefreshDataMsg:
		return m, m.loadData
	}
	return m, nil
}

func (m DashboardModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	}
	if m.data == nil {
		return subtitleStyle.Render("Loading...")
	}

	currency := m.app.Config.Invoice.DefaultCurrency
	var b strings.Builder

	b.WriteString(m.renderActiveTimer(currency))
	b.WriteString("\n\n")

	today := boxStyle.Render(fmt.Sprintf("%s\n%s\n%s",
		titleStyle.Render("Today"),
		formatHours(m.data.Today.TotalHours),
		formatMoney(m.data.Today.TotalValue, currency)))
	week := boxStyle.Render(fmt.Sprintf("%s\n%s\n%s",
		titleStyle.Render("This week"),
		formatHours(m.data.Week.TotalHours),
		formatMoney(m.data.Week.TotalValue, currency)))
	owed := fmt.Sprintf("%s\n%s\n%s",
		titleStyle.Render("Outstanding"),
		formatMoney(m.data.Outstanding, currency),
		subtitleStyle.Render("unbilled "+formatMoney(m.data.Unbilled, currency)))
	if m.data.OverdueInvoices > 0 {
		owed += "\n" + warningStyle.Render(fmt.Sprintf("%d overdue", m.data.OverdueInvoices))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, today, " ", week, " ", boxStyle.Render(owed)))
	b.WriteString("\n\n")

	b.WriteString(m.renderRecentEntries(currency))
	return b.String()
}

func (m DashboardModel) renderActiveTimer(currency string) string {
	active := m.data.Active
	if active == nil {
		return subtitleStyle.Render("No timer running. Press t to start one.")
	}
	now := m.app.Clock.Now()
	entry := active.Entry
	return fmt.Sprintf("%s %s  %s  %s",
		timerRunningStyle.Render("● Tracking"),
		m.projectName(entry.ProjectID),
		timerValueStyle.Render(formatClock(entry.Duration(now))),
		formatMoney(entry.AccruedAmount(now), currency))
}

func (m DashboardModel) renderRecentEntries(currency string) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Recent entries"))
	b.WriteString("\n")
	if len(m.data.RecentEntries) == 0 {
		b.WriteString(subtitleStyle.Render("Nothing tracked yet"))
		return b.String()
	}
	for _, e := range m.data.RecentEntries {
		if e.IsRunning() {
			continue
		}
		desc := e.Description
		if desc == "" {
			desc = "-"
		}
		b.WriteString(fmt.Sprintf("  %s  %-20s %-24s %8s %14s\n",
			e.StartTime.Format("Jan 02"),
			truncateStr(m.projectName(e.ProjectID), 20),
			truncateStr(desc, 24),
			formatHours(e.Hours()),
			formatMoney(e.Amount, currency)))
	}
	return b.String()
}

func (m DashboardModel) projectName(id int64) string {
	if name, ok := m.projects[id]; ok {
		return name
	}
	return fmt.Sprintf("project %d", id)
}
