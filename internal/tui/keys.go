package tui

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	Quit key.Binding
	Back key.Binding

	// Navigation
	Dashboard key.Binding
	Timer     key.Binding
	Refresh   key.Binding

	// Timer actions
	Stop    key.Binding
	Discard key.Binding
	Pick    key.Binding
}

var DefaultKeyMap = KeyMap{
	Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Back:      key.NewBinding(key.WithKeys("esc", "backspace"), key.WithHelp("esc", "back")),
	Dashboard: key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "dashboard")),
	Timer:     key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "timer")),
	Refresh:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Stop:      key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "stop")),
	Discard:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "discard")),
	Pick:      key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"), key.WithHelp("1-9", "start")),
}
