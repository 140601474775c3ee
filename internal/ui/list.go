package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/opium/internal/formatter"
	"github.com/desertthunder/opium/internal/models"
	"github.com/desertthunder/opium/internal/services"
)

var (
	_ list.Item = menuItem{}
	_ list.Item = categoryItem{}
	_ list.Item = playlistItem{}
	_ list.Item = albumItem{}
	_ list.Item = artistItem{}
	_ list.Item = trackItem{}
)

type menuAction int

const (
	actionBrowse menuAction = iota
	actionReleases
	actionSearch
	actionProfile
)

// menuItem is an entry of the home screen.
type menuItem struct {
	title  string
	desc   string
	action menuAction
}

func (i menuItem) FilterValue() string { return i.title }
func (i menuItem) Title() string       { return i.title }
func (i menuItem) Description() string { return i.desc }

func menuItems() []list.Item {
	return []list.Item{
		menuItem{"Browse", "Categories and their playlists", actionBrowse},
		menuItem{"New Releases", "Latest albums and singles", actionReleases},
		menuItem{"Search", "Tracks, artists, playlists and albums", actionSearch},
		menuItem{"Profile", "The signed-in account", actionProfile},
	}
}

// categoryItem wraps [models.Category] to implement [list.Item].
type categoryItem struct {
	category models.Category
}

func (i categoryItem) FilterValue() string { return i.category.Name }
func (i categoryItem) Title() string       { return i.category.Name }
func (i categoryItem) Description() string { return "Category" }

// playlistItem wraps [models.Playlist] to implement [list.Item].
type playlistItem struct {
	playlist models.Playlist
}

func (i playlistItem) FilterValue() string { return i.playlist.Name }
func (i playlistItem) Title() string       { return i.playlist.Name }
func (i playlistItem) Description() string {
	desc := fmt.Sprintf("%d tracks", i.playlist.TrackCount)
	if i.playlist.Owner != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.playlist.Owner)
	}
	return desc
}

// albumItem wraps [models.Album] to implement [list.Item].
type albumItem struct {
	album models.Album
}

func (i albumItem) FilterValue() string { return i.album.Name }
func (i albumItem) Title() string       { return i.album.Name }
func (i albumItem) Description() string {
	desc := models.JoinArtists(i.album.Artists)
	if i.album.AlbumType != "" {
		desc = fmt.Sprintf("%s • %s", i.album.AlbumType, desc)
	}
	return desc
}

// artistItem wraps [models.Artist] to implement [list.Item].
type artistItem struct {
	artist models.Artist
}

func (i artistItem) FilterValue() string { return i.artist.Name }
func (i artistItem) Title() string       { return i.artist.Name }
func (i artistItem) Description() string { return "Artist" }

// trackItem wraps [models.Track] to implement [list.Item].
type trackItem struct {
	track models.Track
}

func (i trackItem) FilterValue() string { return i.track.Name }
func (i trackItem) Title() string {
	if i.track.PreviewURL == "" {
		return i.track.Name + " (no preview)"
	}
	return i.track.Name
}
func (i trackItem) Description() string {
	desc := i.track.ArtistNames()
	if i.track.Album != nil && i.track.Album.Name != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.track.Album.Name)
	}
	return fmt.Sprintf("%s • %s", desc, formatter.FormatDuration(i.track.DurationMS))
}

func categoryItems(categories []models.Category) []list.Item {
	items := make([]list.Item, len(categories))
	for i, c := range categories {
		items[i] = categoryItem{c}
	}
	return items
}

func playlistItems(playlists []models.Playlist) []list.Item {
	items := make([]list.Item, len(playlists))
	for i, p := range playlists {
		items[i] = playlistItem{p}
	}
	return items
}

func albumItems(albums []models.Album) []list.Item {
	items := make([]list.Item, len(albums))
	for i, a := range albums {
		items[i] = albumItem{a}
	}
	return items
}

func trackItems(tracks []models.Track) []list.Item {
	items := make([]list.Item, len(tracks))
	for i, t := range tracks {
		items[i] = trackItem{t}
	}
	return items
}

func searchItems(results *services.SearchResults) []list.Item {
	flat := results.Flatten()
	items := make([]list.Item, 0, len(flat))
	for _, r := range flat {
		switch r.Kind {
		case services.ResultTrack:
			items = append(items, trackItem{*r.Track})
		case services.ResultArtist:
			items = append(items, artistItem{*r.Artist})
		case services.ResultPlaylist:
			items = append(items, playlistItem{*r.Playlist})
		case services.ResultAlbum:
			items = append(items, albumItem{*r.Album})
		}
	}
	return items
}
