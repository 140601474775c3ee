package services

import (
	"context"

	"github.com/desertthunder/opium/internal/models"
)

// TokenProvider hands out bearer tokens for outbound requests.
//
// [auth.Manager] satisfies it.
type TokenProvider interface {
	ValidToken(ctx context.Context) (string, error)
}

// Catalog is the read-only surface of the Spotify catalog used by the CLI and TUI.
type Catalog interface {
	Categories(ctx context.Context) ([]models.Category, error)
	CategoryPlaylists(ctx context.Context, categoryID string) ([]models.Playlist, error)
	NewReleases(ctx context.Context) (Releases, error)
	Playlist(ctx context.Context, playlistID string) (*PlaylistDetail, error)
	Album(ctx context.Context, albumID string) (*AlbumDetail, error)
	Track(ctx context.Context, trackID string) (*models.Track, error)
	Artist(ctx context.Context, artistID string) (*models.Artist, error)
	ArtistAlbums(ctx context.Context, artistID string) ([]models.Album, error)
	ArtistTopTracks(ctx context.Context, artistID string) ([]models.Track, error)
	ArtistOverview(ctx context.Context, artistID string) (*ArtistOverview, error)
	Search(ctx context.Context, query string) (*SearchResults, error)
	CurrentUser(ctx context.Context) (*models.UserProfile, error)
}

// PlaylistDetail is a playlist together with its first page of tracks.
type PlaylistDetail struct {
	Playlist models.Playlist
	Tracks   []models.Track
}

// AlbumDetail is an album together with its tracks.
type AlbumDetail struct {
	Album  models.Album
	Tracks []models.Track
}

// ArtistOverview collects everything shown on an artist page.
type ArtistOverview struct {
	Artist    models.Artist
	Albums    []models.Album
	TopTracks []models.Track
}

// Releases splits new releases by album type.
type Releases struct {
	Albums  []models.Album
	Singles []models.Album
}

// PartitionReleases buckets albums by [models.Album.AlbumType].
//
// Only "album" and "single" are kept; any other tag is dropped from both buckets.
func PartitionReleases(albums []models.Album) Releases {
	var r Releases
	for _, a := range albums {
		switch a.AlbumType {
		case "album":
			r.Albums = append(r.Albums, a)
		case "single":
			r.Singles = append(r.Singles, a)
		}
	}
	return r
}
