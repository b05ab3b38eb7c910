package ui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Confirm key.Binding
	Cancel  key.Binding
	Quit    key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Confirm: key.NewBinding(
		key.WithKeys("enter", " "),
		key.WithHelp("enter", "select"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc", "q"),
		key.WithHelp("q/esc", "back"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
	),
}

// menuResult is what a key did to a menu.
type menuResult int

const (
	menuNone menuResult = iota
	menuMoved
	menuConfirmed
	menuCancelled
)

// handleMenuKey applies navigation keys to m. Confirm on an empty menu
// is ignored, so an empty menu only accepts cancel.
func handleMenuKey(m *MenuModel, msg tea.KeyMsg) (menuResult, int) {
	switch {
	case key.Matches(msg, keys.Up):
		m.Up()
		return menuMoved, m.Selected()
	case key.Matches(msg, keys.Down):
		m.Down()
		return menuMoved, m.Selected()
	case key.Matches(msg, keys.Confirm):
		if i := m.Confirm(); i != NoSelection {
			return menuConfirmed, i
		}
	case key.Matches(msg, keys.Cancel):
		return menuCancelled, m.Cancel()
	}
	return menuNone, NoSelection
}
