package services

import "github.com/desertthunder/opium/internal/models"

// ResultKind identifies the variant held by a [SearchResult].
type ResultKind int

const (
	ResultTrack ResultKind = iota
	ResultArtist
	ResultPlaylist
	ResultAlbum
)

func (k ResultKind) String() string {
	switch k {
	case ResultTrack:
		return "track"
	case ResultArtist:
		return "artist"
	case ResultPlaylist:
		return "playlist"
	case ResultAlbum:
		return "album"
	default:
		return "unknown"
	}
}

// SearchResult is one row of a merged search listing. Exactly one of the pointers matches Kind.
type SearchResult struct {
	Kind     ResultKind
	Track    *models.Track
	Artist   *models.Artist
	Playlist *models.Playlist
	Album    *models.Album
}

// Title returns the display name of the underlying item.
func (r SearchResult) Title() string {
	switch r.Kind {
	case ResultTrack:
		return r.Track.Name
	case ResultArtist:
		return r.Artist.Name
	case ResultPlaylist:
		return r.Playlist.Name
	case ResultAlbum:
		return r.Album.Name
	}
	return ""
}

// Subtitle returns a short secondary line for the item.
func (r SearchResult) Subtitle() string {
	switch r.Kind {
	case ResultTrack:
		return r.Track.ArtistNames()
	case ResultArtist:
		return "Artist"
	case ResultPlaylist:
		return r.Playlist.Owner
	case ResultAlbum:
		return models.JoinArtists(r.Album.Artists)
	}
	return ""
}

// SearchResults holds the four typed groups of a search response, each in API order.
type SearchResults struct {
	Query     string
	Tracks    []models.Track
	Artists   []models.Artist
	Playlists []models.Playlist
	Albums    []models.Album
}

// Len returns the total number of results across all groups.
func (s *SearchResults) Len() int {
	return len(s.Tracks) + len(s.Artists) + len(s.Playlists) + len(s.Albums)
}

// Flatten merges the groups into a single listing: tracks, artists, playlists, then albums.
func (s *SearchResults) Flatten() []SearchResult {
	out := make([]SearchResult, 0, s.Len())
	for i := range s.Tracks {
		out = append(out, SearchResult{Kind: ResultTrack, Track: &s.Tracks[i]})
	}
	for i := range s.Artists {
		out = append(out, SearchResult{Kind: ResultArtist, Artist: &s.Artists[i]})
	}
	for i := range s.Playlists {
		out = append(out, SearchResult{Kind: ResultPlaylist, Playlist: &s.Playlists[i]})
	}
	for i := range s.Albums {
		out = append(out, SearchResult{Kind: ResultAlbum, Album: &s.Albums[i]})
	}
	return out
}
