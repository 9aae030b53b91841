package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Left     key.Binding
	Right    key.Binding
	Dispatch key.Binding
	Hint     key.Binding
	Reset    key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k", "w"), key.WithHelp("↑/w", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j", "s"), key.WithHelp("↓/s", "down")),
		Left:     key.NewBinding(key.WithKeys("left", "h", "a"), key.WithHelp("←/a", "left")),
		Right:    key.NewBinding(key.WithKeys("right", "l", "d"), key.WithHelp("→/d", "right")),
		Dispatch: key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "dispatch")),
		Hint:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "hint")),
		Reset:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset")),
		Help:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "more keys")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Dispatch, k.Hint, k.Reset, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.Dispatch, k.Hint, k.Reset},
		{k.Help, k.Quit},
	}
}
