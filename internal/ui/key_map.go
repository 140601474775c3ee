package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	enter      key.Binding
	back       key.Binding
	search     key.Binding
	playAll    key.Binding
	toggle     key.Binding
	next       key.Binding
	previous   key.Binding
	volumeUp   key.Binding
	volumeDown key.Binding
	nowPlaying key.Binding
	quit       key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		enter:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open/play")),
		back:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		search:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "search")),
		playAll:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "play all")),
		toggle:     key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		next:       key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next")),
		previous:   key.NewBinding(key.WithKeys("["), key.WithHelp("[", "previous")),
		volumeUp:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "volume up")),
		volumeDown: key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "volume down")),
		nowPlaying: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "now playing")),
		quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.enter, k.back, k.toggle, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.enter, k.back, k.search, k.playAll},
		{k.toggle, k.next, k.previous, k.nowPlaying},
		{k.volumeUp, k.volumeDown, k.quit},
	}
}
