// Spotify Web API implementation of [Catalog]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/opium/internal/models"
	"github.com/desertthunder/opium/internal/shared"
	"golang.org/x/sync/errgroup"
)

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Country     string         `json:"country"`
	Product     string         `json:"product"` // premium, free, etc.
	Images      []SpotifyImage `json:"images"`
}

// SpotifyArtist represents a Spotify artist. Simplified artist objects omit genres and images.
type SpotifyArtist struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Type   string         `json:"type"`
	Genres []string       `json:"genres"`
	Images []SpotifyImage `json:"images"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	AlbumType   string          `json:"album_type"`
	Artists     []SpotifyArtist `json:"artists"`
	ReleaseDate string          `json:"release_date"`
	TotalTracks int             `json:"total_tracks"`
	Images      []SpotifyImage  `json:"images"`
}

// SpotifyTrack represents a Spotify track. Album is absent on the simplified tracks of an album.
type SpotifyTrack struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Artists      []SpotifyArtist `json:"artists"`
	Album        *SpotifyAlbum   `json:"album"`
	DurationMS   int             `json:"duration_ms"`
	PreviewURL   *string         `json:"preview_url"`
	ExternalURLs externalURLs    `json:"external_urls"`
}

type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type playlistTracks struct {
	Total int                     `json:"total"`
	Items []*SpotifyPlaylistTrack `json:"items"`
}

// SpotifyPlaylist represents a playlist. List endpoints only populate Tracks.Total.
type SpotifyPlaylist struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Owner       Owner          `json:"owner"`
	Tracks      playlistTracks `json:"tracks"`
	Images      []SpotifyImage `json:"images"`
}

// SpotifyPlaylistTrack represents a track within a playlist context. Track is null for removed items.
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifyCategory represents a browse category.
type SpotifyCategory struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Paging is the Web API paging envelope. Items may contain nulls.
type Paging[T any] struct {
	Items  []*T    `json:"items"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
	Next   *string `json:"next"`
}

type albumDetail struct {
	SpotifyAlbum
	Tracks Paging[SpotifyTrack] `json:"tracks"`
}

type searchResponse struct {
	Tracks    *Paging[SpotifyTrack]    `json:"tracks"`
	Artists   *Paging[SpotifyArtist]   `json:"artists"`
	Albums    *Paging[SpotifyAlbum]    `json:"albums"`
	Playlists *Paging[SpotifyPlaylist] `json:"playlists"`
}

type errorResponse struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// SpotifyOpts contains configuration options for creating a [SpotifyService].
type SpotifyOpts struct {
	BaseURL    string
	Tokens     TokenProvider
	HTTPClient *http.Client
	RateLimit  float64 // requests per second
	Market     string  // ISO 3166-1 alpha-2 country code
	Logger     *log.Logger
}

// SpotifyService implements [Catalog] against the Spotify Web API.
type SpotifyService struct {
	requester
	market string
}

// NewSpotifyService creates a new Spotify catalog client.
func NewSpotifyService(opts SpotifyOpts) (*SpotifyService, error) {
	if opts.Tokens == nil {
		return nil, fmt.Errorf("%w: token provider is required", shared.ErrInvalidArgument)
	}
	if opts.Market == "" {
		opts.Market = "US"
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	r := newRequester(opts.BaseURL, opts.Tokens, opts.HTTPClient, opts.RateLimit, shared.WithLogger(opts.Logger, "component", "spotify"))
	return &SpotifyService{requester: r, market: opts.Market}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// doRequest performs an authenticated GET and decodes the JSON body into result.
func (s *SpotifyService) doRequest(ctx context.Context, endpoint string, query url.Values, result any) error {
	resp, err := s.get(ctx, endpoint, query)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr errorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, resp.StatusCode, apiErr.Error.Message)
		}
		return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrDecode, err)
		}
	}

	return nil
}

func idPath(format, id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("%w: id", shared.ErrMissingArgument)
	}
	return fmt.Sprintf(format, url.PathEscape(id)), nil
}

// Categories retrieves the first page of browse categories for the configured market.
func (s *SpotifyService) Categories(ctx context.Context) ([]models.Category, error) {
	var response struct {
		Categories Paging[SpotifyCategory] `json:"categories"`
	}

	query := url.Values{"offset": {"0"}, "limit": {"50"}, "country": {s.market}}
	if err := s.doRequest(ctx, "/browse/categories", query, &response); err != nil {
		return nil, err
	}

	categories := make([]models.Category, 0, len(response.Categories.Items))
	for _, c := range response.Categories.Items {
		if c == nil {
			continue
		}
		categories = append(categories, models.Category{ID: c.ID, Name: c.Name})
	}
	return categories, nil
}

// CategoryPlaylists retrieves the playlists listed under a category.
func (s *SpotifyService) CategoryPlaylists(ctx context.Context, categoryID string) ([]models.Playlist, error) {
	endpoint, err := idPath("/browse/categories/%s/playlists", categoryID)
	if err != nil {
		return nil, err
	}

	var response struct {
		Playlists Paging[SpotifyPlaylist] `json:"playlists"`
	}
	if err := s.doRequest(ctx, endpoint, nil, &response); err != nil {
		return nil, err
	}
	return toPlaylists(response.Playlists.Items), nil
}

// NewReleases retrieves new releases partitioned into albums and singles.
func (s *SpotifyService) NewReleases(ctx context.Context) (Releases, error) {
	var response struct {
		Albums Paging[SpotifyAlbum] `json:"albums"`
	}
	if err := s.doRequest(ctx, "/browse/new-releases", nil, &response); err != nil {
		return Releases{}, err
	}
	return PartitionReleases(toAlbums(response.Albums.Items)), nil
}

// Playlist retrieves a playlist and its first page of tracks. Removed items are skipped.
func (s *SpotifyService) Playlist(ctx context.Context, playlistID string) (*PlaylistDetail, error) {
	endpoint, err := idPath("/playlists/%s", playlistID)
	if err != nil {
		return nil, err
	}

	var sp SpotifyPlaylist
	if err := s.doRequest(ctx, endpoint, nil, &sp); err != nil {
		return nil, err
	}

	detail := &PlaylistDetail{Playlist: toPlaylist(sp)}
	for _, item := range sp.Tracks.Items {
		if item == nil || item.Track == nil {
			continue
		}
		detail.Tracks = append(detail.Tracks, toTrack(*item.Track, nil))
	}
	return detail, nil
}

// Album retrieves an album. Each track carries a reference to the album for artwork.
func (s *SpotifyService) Album(ctx context.Context, albumID string) (*AlbumDetail, error) {
	endpoint, err := idPath("/albums/%s", albumID)
	if err != nil {
		return nil, err
	}

	var sa albumDetail
	if err := s.doRequest(ctx, endpoint, nil, &sa); err != nil {
		return nil, err
	}

	detail := &AlbumDetail{Album: toAlbum(sa.SpotifyAlbum)}
	for _, t := range sa.Tracks.Items {
		if t == nil {
			continue
		}
		detail.Tracks = append(detail.Tracks, toTrack(*t, &detail.Album))
	}
	return detail, nil
}

// Track retrieves a single track, relinked for the configured market.
func (s *SpotifyService) Track(ctx context.Context, trackID string) (*models.Track, error) {
	endpoint, err := idPath("/tracks/%s", trackID)
	if err != nil {
		return nil, err
	}

	var st SpotifyTrack
	if err := s.doRequest(ctx, endpoint, url.Values{"market": {s.market}}, &st); err != nil {
		return nil, err
	}
	track := toTrack(st, nil)
	return &track, nil
}

// Artist retrieves an artist by ID.
func (s *SpotifyService) Artist(ctx context.Context, artistID string) (*models.Artist, error) {
	endpoint, err := idPath("/artists/%s", artistID)
	if err != nil {
		return nil, err
	}

	var sa SpotifyArtist
	if err := s.doRequest(ctx, endpoint, nil, &sa); err != nil {
		return nil, err
	}
	artist := toArtist(sa)
	return &artist, nil
}

// ArtistAlbums retrieves the albums of an artist.
func (s *SpotifyService) ArtistAlbums(ctx context.Context, artistID string) ([]models.Album, error) {
	endpoint, err := idPath("/artists/%s/albums", artistID)
	if err != nil {
		return nil, err
	}

	var response Paging[SpotifyAlbum]
	if err := s.doRequest(ctx, endpoint, nil, &response); err != nil {
		return nil, err
	}
	return toAlbums(response.Items), nil
}

// ArtistTopTracks retrieves the top tracks of an artist in the configured market.
func (s *SpotifyService) ArtistTopTracks(ctx context.Context, artistID string) ([]models.Track, error) {
	endpoint, err := idPath("/artists/%s/top-tracks", artistID)
	if err != nil {
		return nil, err
	}

	var response struct {
		Tracks []*SpotifyTrack `json:"tracks"`
	}
	if err := s.doRequest(ctx, endpoint, url.Values{"market": {s.market}}, &response); err != nil {
		return nil, err
	}
	return toTracks(response.Tracks), nil
}

// ArtistOverview fetches the artist, albums and top tracks concurrently.
//
// The first failure cancels the remaining requests.
func (s *SpotifyService) ArtistOverview(ctx context.Context, artistID string) (*ArtistOverview, error) {
	if artistID == "" {
		return nil, fmt.Errorf("%w: id", shared.ErrMissingArgument)
	}

	var (
		overview ArtistOverview
		g, gctx  = errgroup.WithContext(ctx)
	)

	g.Go(func() error {
		artist, err := s.Artist(gctx, artistID)
		if err != nil {
			return fmt.Errorf("artist: %w", err)
		}
		overview.Artist = *artist
		return nil
	})
	g.Go(func() error {
		albums, err := s.ArtistAlbums(gctx, artistID)
		if err != nil {
			return fmt.Errorf("artist albums: %w", err)
		}
		overview.Albums = albums
		return nil
	})
	g.Go(func() error {
		tracks, err := s.ArtistTopTracks(gctx, artistID)
		if err != nil {
			return fmt.Errorf("artist top tracks: %w", err)
		}
		overview.TopTracks = tracks
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &overview, nil
}

// Search queries all four item types at once.
func (s *SpotifyService) Search(ctx context.Context, query string) (*SearchResults, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}

	var response searchResponse
	params := url.Values{"type": {"album,artist,playlist,track"}, "q": {query}}
	if err := s.doRequest(ctx, "/search", params, &response); err != nil {
		return nil, err
	}

	results := &SearchResults{Query: query}
	if response.Tracks != nil {
		results.Tracks = toTracks(response.Tracks.Items)
	}
	if response.Artists != nil {
		for _, a := range response.Artists.Items {
			if a != nil {
				results.Artists = append(results.Artists, toArtist(*a))
			}
		}
	}
	if response.Playlists != nil {
		results.Playlists = toPlaylists(response.Playlists.Items)
	}
	if response.Albums != nil {
		results.Albums = toAlbums(response.Albums.Items)
	}
	return results, nil
}

// CurrentUser retrieves the signed-in user's profile.
func (s *SpotifyService) CurrentUser(ctx context.Context) (*models.UserProfile, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, "/me", nil, &user); err != nil {
		return nil, err
	}

	return &models.UserProfile{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		Country:     user.Country,
		Product:     user.Product,
		Images:      toImages(user.Images),
	}, nil
}

func toImages(images []SpotifyImage) []models.Image {
	if len(images) == 0 {
		return nil
	}
	out := make([]models.Image, len(images))
	for i, img := range images {
		out[i] = models.Image{URL: img.URL, Width: img.Width, Height: img.Height}
	}
	return out
}

func toArtist(a SpotifyArtist) models.Artist {
	return models.Artist{
		ID:     a.ID,
		Name:   a.Name,
		Type:   a.Type,
		Genres: a.Genres,
		Images: toImages(a.Images),
	}
}

func toArtists(artists []SpotifyArtist) []models.Artist {
	if len(artists) == 0 {
		return nil
	}
	out := make([]models.Artist, len(artists))
	for i, a := range artists {
		out[i] = toArtist(a)
	}
	return out
}

func toAlbum(a SpotifyAlbum) models.Album {
	return models.Album{
		ID:          a.ID,
		Name:        a.Name,
		AlbumType:   a.AlbumType,
		ReleaseDate: a.ReleaseDate,
		Images:      toImages(a.Images),
		Artists:     toArtists(a.Artists),
	}
}

func toAlbums(items []*SpotifyAlbum) []models.Album {
	albums := make([]models.Album, 0, len(items))
	for _, a := range items {
		if a == nil {
			continue
		}
		albums = append(albums, toAlbum(*a))
	}
	return albums
}

// toTrack maps a track, falling back to parent when the payload has no album.
func toTrack(t SpotifyTrack, parent *models.Album) models.Track {
	track := models.Track{
		ID:          t.ID,
		Name:        t.Name,
		Artists:     toArtists(t.Artists),
		ExternalURL: t.ExternalURLs.Spotify,
		DurationMS:  t.DurationMS,
		Album:       parent,
	}
	if t.PreviewURL != nil {
		track.PreviewURL = *t.PreviewURL
	}
	if t.Album != nil {
		album := toAlbum(*t.Album)
		track.Album = &album
	}
	return track
}

func toTracks(items []*SpotifyTrack) []models.Track {
	tracks := make([]models.Track, 0, len(items))
	for _, t := range items {
		if t == nil {
			continue
		}
		tracks = append(tracks, toTrack(*t, nil))
	}
	return tracks
}

func toPlaylist(p SpotifyPlaylist) models.Playlist {
	return models.Playlist{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Owner:       p.Owner.DisplayName,
		TrackCount:  p.Tracks.Total,
		Images:      toImages(p.Images),
	}
}

func toPlaylists(items []*SpotifyPlaylist) []models.Playlist {
	playlists := make([]models.Playlist, 0, len(items))
	for _, p := range items {
		if p == nil {
			continue
		}
		playlists = append(playlists, toPlaylist(*p))
	}
	return playlists
}
