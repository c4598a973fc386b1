// Package keymap defines the dashboard keybindings and user overrides.
package keymap

import (
	"github.com/charmbracelet/bubbles/key"
)

// Base contains the bindings every arcade TUI shares.
type Base struct {
	Quit    key.Binding
	Help    key.Binding
	Confirm key.Binding
	Cancel  key.Binding
	Refresh key.Binding
}

// NewBase returns the default shared bindings.
func NewBase() Base {
	return Base{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "confirm"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r", "ctrl+r"),
			key.WithHelp("r", "refresh"),
		),
	}
}

// Dashboard is the keymap of the session dashboard.
type Dashboard struct {
	Base
	Start key.Binding
	Pause key.Binding
	End   key.Binding
	Slack key.Binding
}

// NewDashboard returns the dashboard bindings with user overrides from the
// "tui.keybindings" config section applied.
func NewDashboard() Dashboard {
	km := Dashboard{
		Base: NewBase(),
		Start: key.NewBinding(
			key.WithKeys("s", "n"),
			key.WithHelp("s", "start session"),
		),
		Pause: key.NewBinding(
			key.WithKeys("p", " "),
			key.WithHelp("p", "pause/resume"),
		),
		End: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "end session"),
		),
		Slack: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "open slack"),
		),
	}
	ApplyOverrides(&km, LoadOverrides())
	return km
}

// ShortHelp implements help.KeyMap.
func (k Dashboard) ShortHelp() []key.Binding {
	return []key.Binding{k.Start, k.Pause, k.End, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k Dashboard) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Start, k.Pause, k.End},
		{k.Refresh, k.Slack},
		{k.Help, k.Quit},
	}
}
