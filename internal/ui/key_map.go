package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up       key.Binding
	down     key.Binding
	edit     key.Binding
	add      key.Binding
	remove   key.Binding
	platform key.Binding
	open     key.Binding
	accept   key.Binding
	done     key.Binding
	back     key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		edit:     key.NewBinding(key.WithKeys("enter", "e"), key.WithHelp("enter", "edit")),
		add:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		remove:   key.NewBinding(key.WithKeys("d", "x"), key.WithHelp("d", "remove")),
		platform: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "platform")),
		open:     key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open embed")),
		accept:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "use suggestion")),
		done:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "done")),
		back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.edit},
		{k.add, k.remove, k.platform, k.open},
		{k.accept, k.back, k.quit},
	}
}
