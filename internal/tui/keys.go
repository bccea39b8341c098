package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines all keybindings for the TUI
type KeyMap struct {
	// Navigation
	Up       key.Binding
	Down     key.Binding
	Left     key.Binding
	Right    key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Home     key.Binding
	End      key.Binding

	// Tabs
	Tab1 key.Binding
	Tab2 key.Binding
	Tab3 key.Binding
	Tab4 key.Binding
	Tab5 key.Binding
	Tab6 key.Binding

	// Actions
	Enter  key.Binding
	Search key.Binding
	Filter key.Binding
	Reload key.Binding
	Back   key.Binding
	Quit   key.Binding
	Help   key.Binding

	// Package actions
	Install   key.Binding
	Uninstall key.Binding
	Update    key.Binding
	UpdateAll key.Binding
	Ignore    key.Binding

	// Operation actions
	CancelOp key.Binding
}

// DefaultKeyMap returns the default keybindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "move down"),
		),
		Left: key.NewBinding(
			key.WithKeys("left", "shift+tab"),
			key.WithHelp("←", "previous tab"),
		),
		Right: key.NewBinding(
			key.WithKeys("right", "tab"),
			key.WithHelp("→", "next tab"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("pgup", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("pgdown", "page down"),
		),
		Home: key.NewBinding(
			key.WithKeys("home", "g"),
			key.WithHelp("g", "go to top"),
		),
		End: key.NewBinding(
			key.WithKeys("end", "G"),
			key.WithHelp("G", "go to bottom"),
		),

		Tab1: key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "installed")),
		Tab2: key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "updates")),
		Tab3: key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "search")),
		Tab4: key.NewBinding(key.WithKeys("4"), key.WithHelp("4", "operations")),
		Tab5: key.NewBinding(key.WithKeys("5"), key.WithHelp("5", "history")),
		Tab6: key.NewBinding(key.WithKeys("6"), key.WithHelp("6", "log")),

		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "details"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		Filter: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "filter"),
		),
		Reload: key.NewBinding(
			key.WithKeys("r", "f5"),
			key.WithHelp("r", "reload"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc", "backspace"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),

		Install: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "install"),
		),
		Uninstall: key.NewBinding(
			key.WithKeys("x", "delete"),
			key.WithHelp("x", "uninstall"),
		),
		Update: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "update"),
		),
		UpdateAll: key.NewBinding(
			key.WithKeys("U"),
			key.WithHelp("U", "update all"),
		),
		Ignore: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "ignore update"),
		),

		CancelOp: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "cancel operation"),
		),
	}
}

// HelpBindings returns the bindings listed on the help screen, in order.
func (k KeyMap) HelpBindings() []key.Binding {
	return []key.Binding{
		k.Up, k.Down, k.PageUp, k.PageDown, k.Home, k.End,
		k.Left, k.Right, k.Tab1, k.Tab2, k.Tab3, k.Tab4, k.Tab5, k.Tab6,
		k.Enter, k.Search, k.Filter, k.Reload,
		k.Install, k.Uninstall, k.Update, k.UpdateAll, k.Ignore, k.CancelOp,
		k.Back, k.Help, k.Quit,
	}
}
