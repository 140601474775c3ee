package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/opium/internal/models"
	"github.com/desertthunder/opium/internal/player"
	"github.com/desertthunder/opium/internal/services"
)

// BannerTimeout is how long an error banner stays on screen.
const BannerTimeout = 4 * time.Second

const volumeStep = 0.1

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ListView ViewState = iota
	SearchView
	ProfileView
	NowPlayingView
)

// Player is the subset of [player.Controller] driven by the TUI.
type Player interface {
	Play(ctx context.Context, track models.Track) (*player.Session, error)
	PlayQueue(ctx context.Context, tracks []models.Track, start models.Track) (*player.Session, error)
	PlayAll(ctx context.Context, tracks []models.Track) (*player.Session, error)
	TogglePlayPause() error
	Next() (*player.Session, error)
	Previous() (*player.Session, error)
	SetVolume(v float64) error
	Volume() float64
	Subscribe(buffer int) (<-chan player.Event, func())
}

// screen is one level of the navigation stack.
type screen struct {
	list   list.Model
	tracks []models.Track
}

// nowPlaying mirrors the most recent controller broadcast.
type nowPlaying struct {
	visible bool
	track   models.Track
	index   int
	total   int
	playing bool
	ended   bool
	volume  float64
}

// Model represents the TUI application state.
type Model struct {
	ctx         context.Context
	view        ViewState
	catalog     services.Catalog
	player      Player
	events      <-chan player.Event
	unsubscribe func()
	stack       []screen
	search      textinput.Model
	spinner     spinner.Model
	loading     bool
	profile     *models.UserProfile
	playback    nowPlaying
	banner      string
	bannerSeq   int
	width       int
	height      int
	help        help.Model
	keys        keyMap
}

// NewModel creates the TUI model and subscribes to playback events.
func NewModel(ctx context.Context, catalog services.Catalog, p Player) Model {
	events, unsubscribe := p.Subscribe(16)

	input := textinput.New()
	input.Placeholder = "Search tracks, artists, playlists, albums"
	input.CharLimit = 100

	m := Model{
		ctx:         ctx,
		view:        ListView,
		catalog:     catalog,
		player:      p,
		events:      events,
		unsubscribe: unsubscribe,
		search:      input,
		spinner:     spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.ok)),
		playback:    nowPlaying{volume: p.Volume()},
		width:       80,
		height:      24,
		help:        help.New(),
		keys:        newKeyMap(),
	}
	m.stack = []screen{{list: m.newList("Opium", menuItems())}}
	return m
}

// Init starts listening for playback events.
func (m Model) Init() tea.Cmd {
	return waitForEvent(m.events)
}

func (m Model) newList(title string, items []list.Item) list.Model {
	l := list.New(items, list.NewDefaultDelegate(), m.width, m.listHeight())
	l.Title = title
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()
	return l
}

// listHeight leaves room for the mini-player, the banner and the help line.
func (m Model) listHeight() int {
	h := m.height - 6
	if h < 5 {
		h = 5
	}
	return h
}

func (m Model) top() *screen {
	return &m.stack[len(m.stack)-1]
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		for i := range m.stack {
			m.stack[i].list.SetSize(m.width, m.listHeight())
		}
		m.search.Width = m.width - 4
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case screenLoadedMsg:
		m.loading = false
		if msg.err != nil {
			return m.showError(msg.err)
		}
		m.stack = append(m.stack, screen{list: m.newList(msg.title, msg.items), tracks: msg.tracks})
		m.view = ListView
		return m, nil

	case profileLoadedMsg:
		m.loading = false
		if msg.err != nil {
			return m.showError(msg.err)
		}
		m.profile = msg.profile
		m.view = ProfileView
		return m, nil

	case playerEventMsg:
		if !msg.ok {
			m.playback.visible = false
			return m, nil
		}
		m.applyEvent(msg.event)
		return m, waitForEvent(m.events)

	case playResultMsg:
		if msg.err != nil {
			return m.showError(msg.err)
		}
		return m, nil

	case clearBannerMsg:
		if msg.seq == m.bannerSeq {
			m.banner = ""
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.view == ListView {
		var cmd tea.Cmd
		top := m.top()
		top.list, cmd = top.list.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) applyEvent(ev player.Event) {
	switch ev.Kind {
	case player.EventMiniPlayerHidden:
		m.playback.visible = false
	case player.EventMiniPlayerShown:
		m.playback.visible = true
		m.playback.ended = false
	case player.EventTrackChanged:
		m.playback.track = ev.Track
		m.playback.index = ev.Index
		m.playback.total = ev.Total
		m.playback.ended = false
	case player.EventEnded:
		m.playback.ended = true
	}
	m.playback.playing = ev.Playing
	m.playback.volume = ev.Volume
}

// showError raises the banner and schedules its dismissal.
func (m Model) showError(err error) (tea.Model, tea.Cmd) {
	m.bannerSeq++
	m.banner = err.Error()
	seq := m.bannerSeq
	return m, tea.Tick(BannerTimeout, func(time.Time) tea.Msg {
		return clearBannerMsg{seq: seq}
	})
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m.quit()
	}

	if m.view == SearchView {
		return m.handleSearchKeys(msg)
	}

	// An active list filter owns the keyboard until it is applied or cancelled.
	if m.view == ListView && m.filtering(msg) {
		var cmd tea.Cmd
		top := m.top()
		top.list, cmd = top.list.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m.quit()
	case key.Matches(msg, m.keys.back):
		return m.back()
	case key.Matches(msg, m.keys.search):
		return m.openSearch()
	case key.Matches(msg, m.keys.toggle):
		return m, m.playerCmd(func() error { return m.player.TogglePlayPause() })
	case key.Matches(msg, m.keys.next):
		return m, m.playerCmd(func() error { _, err := m.player.Next(); return err })
	case key.Matches(msg, m.keys.previous):
		return m, m.playerCmd(func() error { _, err := m.player.Previous(); return err })
	case key.Matches(msg, m.keys.volumeUp):
		v := m.player.Volume() + volumeStep
		return m, m.playerCmd(func() error { return m.player.SetVolume(v) })
	case key.Matches(msg, m.keys.volumeDown):
		v := m.player.Volume() - volumeStep
		return m, m.playerCmd(func() error { return m.player.SetVolume(v) })
	case key.Matches(msg, m.keys.nowPlaying):
		if m.view == NowPlayingView {
			m.view = ListView
		} else if m.playback.visible {
			m.view = NowPlayingView
		}
		return m, nil
	}

	if m.view != ListView {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.enter):
		return m.selectItem()
	case key.Matches(msg, m.keys.playAll):
		tracks := m.top().tracks
		if len(tracks) == 0 {
			return m, nil
		}
		return m, m.playerCmd(func() error { _, err := m.player.PlayAll(m.ctx, tracks); return err })
	}

	var cmd tea.Cmd
	top := m.top()
	top.list, cmd = top.list.Update(msg)
	return m, cmd
}

// filtering reports whether msg belongs to the list filter, including esc on an applied filter.
func (m Model) filtering(msg tea.KeyMsg) bool {
	switch m.top().list.FilterState() {
	case list.Filtering:
		return true
	case list.FilterApplied:
		return key.Matches(msg, m.keys.back)
	}
	return false
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.search.Blur()
		m.view = ListView
		return m, nil
	case tea.KeyEnter:
		query := m.search.Value()
		if query == "" {
			return m, nil
		}
		m.search.Blur()
		return m.load(m.searchCatalog(query))
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	return m, tea.Quit
}

func (m Model) back() (tea.Model, tea.Cmd) {
	if m.view != ListView {
		m.view = ListView
		return m, nil
	}
	if len(m.stack) > 1 {
		m.stack = m.stack[:len(m.stack)-1]
	}
	return m, nil
}

func (m Model) openSearch() (tea.Model, tea.Cmd) {
	m.view = SearchView
	m.search.SetValue("")
	return m, m.search.Focus()
}

// load marks the model busy and runs the fetch alongside the spinner.
func (m Model) load(fetch tea.Cmd) (tea.Model, tea.Cmd) {
	if m.loading {
		return m, nil
	}
	m.loading = true
	return m, tea.Batch(fetch, m.spinner.Tick)
}

func (m Model) selectItem() (tea.Model, tea.Cmd) {
	selected := m.top().list.SelectedItem()
	if selected == nil {
		return m, nil
	}

	switch item := selected.(type) {
	case menuItem:
		switch item.action {
		case actionBrowse:
			return m.load(m.fetchCategories())
		case actionReleases:
			return m.load(m.fetchReleases())
		case actionSearch:
			return m.openSearch()
		case actionProfile:
			return m.load(m.fetchProfile())
		}
	case categoryItem:
		return m.load(m.fetchCategoryPlaylists(item.category))
	case playlistItem:
		return m.load(m.fetchPlaylist(item.playlist))
	case albumItem:
		return m.load(m.fetchAlbum(item.album))
	case artistItem:
		return m.load(m.fetchArtist(item.artist))
	case trackItem:
		tracks := m.top().tracks
		track := item.track
		if len(tracks) == 0 {
			return m, m.playerCmd(func() error { _, err := m.player.Play(m.ctx, track); return err })
		}
		return m, m.playerCmd(func() error { _, err := m.player.PlayQueue(m.ctx, tracks, track); return err })
	}
	return m, nil
}

// playerCmd runs a controller call off the update loop and reports its error.
func (m Model) playerCmd(fn func() error) tea.Cmd {
	return func() tea.Msg {
		return playResultMsg{err: fn()}
	}
}

// waitForEvent reads the next controller broadcast.
func waitForEvent(events <-chan player.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		return playerEventMsg{event: ev, ok: ok}
	}
}

func (m Model) fetchCategories() tea.Cmd {
	return func() tea.Msg {
		categories, err := m.catalog.Categories(m.ctx)
		if err != nil {
			return screenLoadedMsg{err: err}
		}
		return screenLoadedMsg{title: "Browse", items: categoryItems(categories)}
	}
}

func (m Model) fetchCategoryPlaylists(c models.Category) tea.Cmd {
	return func() tea.Msg {
		playlists, err := m.catalog.CategoryPlaylists(m.ctx, c.ID)
		if err != nil {
			return screenLoadedMsg{err: err}
		}
		return screenLoadedMsg{title: c.Name, items: playlistItems(playlists)}
	}
}

func (m Model) fetchReleases() tea.Cmd {
	return func() tea.Msg {
		releases, err := m.catalog.NewReleases(m.ctx)
		if err != nil {
			return screenLoadedMsg{err: err}
		}
		albums := append(append([]models.Album{}, releases.Albums...), releases.Singles...)
		return screenLoadedMsg{title: "New Releases", items: albumItems(albums)}
	}
}

func (m Model) fetchPlaylist(p models.Playlist) tea.Cmd {
	return func() tea.Msg {
		detail, err := m.catalog.Playlist(m.ctx, p.ID)
		if err != nil {
			return screenLoadedMsg{err: err}
		}
		return screenLoadedMsg{title: detail.Playlist.Name, items: trackItems(detail.Tracks), tracks: detail.Tracks}
	}
}

func (m Model) fetchAlbum(a models.Album) tea.Cmd {
	return func() tea.Msg {
		detail, err := m.catalog.Album(m.ctx, a.ID)
		if err != nil {
			return screenLoadedMsg{err: err}
		}
		return screenLoadedMsg{title: detail.Album.Name, items: trackItems(detail.Tracks), tracks: detail.Tracks}
	}
}

// fetchArtist lists the top tracks first, followed by the discography.
func (m Model) fetchArtist(a models.Artist) tea.Cmd {
	return func() tea.Msg {
		overview, err := m.catalog.ArtistOverview(m.ctx, a.ID)
		if err != nil {
			return screenLoadedMsg{err: err}
		}
		items := append(trackItems(overview.TopTracks), albumItems(overview.Albums)...)
		return screenLoadedMsg{title: overview.Artist.Name, items: items, tracks: overview.TopTracks}
	}
}

func (m Model) searchCatalog(query string) tea.Cmd {
	return func() tea.Msg {
		results, err := m.catalog.Search(m.ctx, query)
		if err != nil {
			return screenLoadedMsg{err: err}
		}
		return screenLoadedMsg{title: fmt.Sprintf("Results for %q", query), items: searchItems(results)}
	}
}

func (m Model) fetchProfile() tea.Cmd {
	return func() tea.Msg {
		profile, err := m.catalog.CurrentUser(m.ctx)
		return profileLoadedMsg{profile: profile, err: err}
	}
}
