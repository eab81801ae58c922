package tui

import "github.com/charmbracelet/lipgloss"

// Palette adapts to light and dark terminals
var (
	brandColor   = lipgloss.AdaptiveColor{Light: "25", Dark: "39"}
	moneyColor   = lipgloss.AdaptiveColor{Light: "127", Dark: "205"}
	mutedColor   = lipgloss.AdaptiveColor{Light: "245", Dark: "241"}
	runningColor = lipgloss.AdaptiveColor{Light: "28", Dark: "76"}
	warnColor    = lipgloss.AdaptiveColor{Light: "166", Dark: "214"}
	dangerColor  = lipgloss.AdaptiveColor{Light: "160", Dark: "196"}
	frameColor   = lipgloss.AdaptiveColor{Light: "61", Dark: "63"}
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(brandColor)
	subtitleStyle = lipgloss.NewStyle().Foreground(mutedColor)
	helpStyle     = lipgloss.NewStyle().Foreground(mutedColor).Italic(true)
	errorStyle    = lipgloss.NewStyle().Foreground(dangerColor)
	warningStyle  = lipgloss.NewStyle().Foreground(warnColor).Bold(true)

	// summary cards on the dashboard
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(frameColor).
			Padding(0, 2)

	appBorderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(frameColor).
			Padding(1, 2)
	dividerStyle = lipgloss.NewStyle().Foreground(frameColor)

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(brandColor)
	footerStyle = lipgloss.NewStyle().Foreground(mutedColor)

	timerRunningStyle = lipgloss.NewStyle().Bold(true).Foreground(runningColor)
	timerValueStyle   = lipgloss.NewStyle().Bold(true).Foreground(moneyColor)
)
