package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap is the terminal dashboard's key binding set.
type KeyMap struct {
	Toggle key.Binding
	Up     key.Binding
	Down   key.Binding
	Help   key.Binding
	Quit   key.Binding
}

// DefaultKeyMap is the built-in binding set.
var DefaultKeyMap = KeyMap{
	Toggle: key.NewBinding(
		key.WithKeys(" ", "p"),
		key.WithHelp("space/p", "pause/resume"),
	),
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "scroll up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "scroll down"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Toggle, k.Up, k.Down},
		{k.Help, k.Quit},
	}
}
