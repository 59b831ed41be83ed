package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
//
// Printable keys are reserved for text inputs, so the search surface binds control keys.
type keyMap struct {
	up      key.Binding
	down    key.Binding
	submit  key.Binding
	next    key.Binding
	prev    key.Binding
	filters key.Binding
	open    key.Binding
	login   key.Binding
	logout  key.Binding
	toggle  key.Binding
	clear   key.Binding
	tab     key.Binding
	back    key.Binding
	signup  key.Binding
	mode    key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:      key.NewBinding(key.WithKeys("up", "ctrl+k"), key.WithHelp("↑", "up")),
		down:    key.NewBinding(key.WithKeys("down", "ctrl+j"), key.WithHelp("↓", "down")),
		submit:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "search")),
		next:    key.NewBinding(key.WithKeys("pgdown", "ctrl+n"), key.WithHelp("ctrl+n", "next page")),
		prev:    key.NewBinding(key.WithKeys("pgup", "ctrl+p"), key.WithHelp("ctrl+p", "prev page")),
		filters: key.NewBinding(key.WithKeys("ctrl+f"), key.WithHelp("ctrl+f", "filters")),
		open:    key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "open")),
		login:   key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "login")),
		logout:  key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("ctrl+x", "logout")),
		toggle:  key.NewBinding(key.WithKeys(" ", "space", "enter"), key.WithHelp("space", "toggle")),
		clear:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear")),
		tab:     key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "next field")),
		back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		signup:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sign up")),
		mode:    key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "login/sign up")),
		quit:    key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.submit, k.filters, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.submit},
		{k.next, k.prev, k.filters, k.open},
		{k.login, k.logout, k.quit},
	}
}
