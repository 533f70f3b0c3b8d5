package picker

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the picker's own bindings. Navigation and filtering come
// from the list component.
type KeyMap struct {
	Launch key.Binding
	Rescan key.Binding
	Quit   key.Binding
}

var defaultKeyMap = KeyMap{
	Launch: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "launch"),
	),
	Rescan: key.NewBinding(
		key.WithKeys("r", "ctrl+r"),
		key.WithHelp("r", "rescan"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Launch, k.Rescan}
}
