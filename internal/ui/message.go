package ui

import (
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/opium/internal/models"
	"github.com/desertthunder/opium/internal/player"
)

var (
	_ tea.Msg = screenLoadedMsg{}
	_ tea.Msg = playerEventMsg{}
)

// screenLoadedMsg carries a fetched listing to push onto the navigation stack.
type screenLoadedMsg struct {
	title  string
	items  []list.Item
	tracks []models.Track // queued by "play all" and by selecting a track
	err    error
}

type profileLoadedMsg struct {
	profile *models.UserProfile
	err     error
}

// playerEventMsg forwards a controller broadcast. ok is false once the subscription is closed.
type playerEventMsg struct {
	event player.Event
	ok    bool
}

// playResultMsg reports the outcome of a playback command.
type playResultMsg struct {
	err error
}

// clearBannerMsg dismisses the banner if it is still the one identified by seq.
type clearBannerMsg struct {
	seq int
}
