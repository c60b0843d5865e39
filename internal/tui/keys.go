package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the banner preview key bindings with built-in help text.
type KeyMap struct {
	Previous key.Binding
	Next     key.Binding
	GoTo     key.Binding
	Activate key.Binding
	Stats    key.Binding
	Slides   key.Binding
	Help     key.Binding
	Quit     key.Binding

	// Slide list
	Up   key.Binding
	Down key.Binding
	Back key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Previous: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "previous"),
		),
		Next: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "next"),
		),
		GoTo: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("1-9", "go to slide"),
		),
		Activate: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open call to action"),
		),
		Stats: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "toggle stats"),
		),
		Slides: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "slide list"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc", "tab"),
			key.WithHelp("esc", "back"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Previous, k.Next, k.Activate, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Previous, k.Next, k.GoTo},
		{k.Activate, k.Stats, k.Slides},
		{k.Help, k.Quit},
	}
}

// slideListKeys is the help view of the slide list page.
type slideListKeys struct{ KeyMap }

func (k slideListKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Activate, k.Back, k.Quit}
}

func (k slideListKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
