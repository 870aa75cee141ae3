package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Toggle  key.Binding
	Skip    key.Binding
	Extend  key.Binding
	Quit    key.Binding
	Confirm key.Binding
	Cancel  key.Binding
	Abort   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Toggle:  key.NewBinding(key.WithKeys(" ", "p"), key.WithHelp("space/p", "start/pause/resume")),
		Skip:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "skip rest")),
		Extend:  key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "extend rest")),
		Quit:    key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		Confirm: key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "discard workout")),
		Cancel:  key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "keep going")),
		Abort:   key.NewBinding(key.WithKeys("ctrl+c")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Skip, k.Extend, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// confirmHelp is shown while the quit confirmation is open.
type confirmHelp struct{ k keyMap }

func (c confirmHelp) ShortHelp() []key.Binding {
	return []key.Binding{c.k.Confirm, c.k.Cancel}
}

func (c confirmHelp) FullHelp() [][]key.Binding {
	return [][]key.Binding{c.ShortHelp()}
}
