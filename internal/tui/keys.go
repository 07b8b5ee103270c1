// ABOUTME: Key bindings for each TUI view
// ABOUTME: Feeds the footer help line and the dashboard's expanded help

package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Generate key.Binding
	Copy     key.Binding
	Revoke   key.Binding
	Refresh  key.Binding
	Logout   key.Binding
	Help     key.Binding
	Quit     key.Binding

	Submit    key.Binding
	Toggle    key.Binding
	ForceQuit key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Generate: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "generate"),
		),
		Copy: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "copy"),
		),
		Revoke: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "revoke"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Logout: key.NewBinding(
			key.WithKeys("L", "ctrl+l"),
			key.WithHelp("L", "logout"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "next/submit"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("ctrl+t", "register instead"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

// viewKeys adapts keyMap to help.KeyMap for one view
type viewKeys struct {
	km   keyMap
	view View
}

// ShortHelp implements help.KeyMap
func (v viewKeys) ShortHelp() []key.Binding {
	if v.view == ViewDashboard {
		return []key.Binding{v.km.Generate, v.km.Copy, v.km.Revoke, v.km.Refresh, v.km.Logout, v.km.Help, v.km.Quit}
	}

	toggle := v.km.Toggle
	if v.view == ViewRegister {
		toggle.SetHelp("ctrl+t", "login instead")
	}
	return []key.Binding{v.km.Submit, toggle, v.km.ForceQuit}
}

// FullHelp implements help.KeyMap
func (v viewKeys) FullHelp() [][]key.Binding {
	if v.view != ViewDashboard {
		return [][]key.Binding{v.ShortHelp()}
	}
	return [][]key.Binding{
		{v.km.Up, v.km.Down},
		{v.km.Generate, v.km.Copy, v.km.Revoke},
		{v.km.Refresh, v.km.Logout, v.km.Quit},
	}
}
