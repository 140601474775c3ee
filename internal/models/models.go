package models

import "time"

// Image is an artwork reference. The API lists images widest first.
type Image struct {
	URL    string
	Width  int
	Height int
}

// Artist represents a catalog artist.
type Artist struct {
	ID     string
	Name   string
	Type   string
	Genres []string
	Images []Image
}

// Album represents a catalog album, single or compilation.
type Album struct {
	ID          string
	Name        string
	AlbumType   string // album, single, compilation
	ReleaseDate string
	Images      []Image
	Artists     []Artist
}

// Track represents a music track. Tracks are immutable once fetched.
type Track struct {
	ID          string
	Name        string
	Artists     []Artist
	Album       *Album
	PreviewURL  string
	ExternalURL string
	DurationMS  int
}

// Equal reports whether two tracks refer to the same catalog item.
func (t Track) Equal(o Track) bool {
	return t.ID == o.ID
}

// PrimaryArtist returns the first credited artist, if any.
func (t Track) PrimaryArtist() (Artist, bool) {
	if len(t.Artists) == 0 {
		return Artist{}, false
	}
	return t.Artists[0], true
}

// ArtistNames joins all credited artist names.
func (t Track) ArtistNames() string {
	return JoinArtists(t.Artists)
}

// ImageURL returns the album artwork URL, or "" when none is known.
func (t Track) ImageURL() string {
	if t.Album == nil {
		return ""
	}
	return FirstImage(t.Album.Images)
}

// Playlist represents a playlist summary.
type Playlist struct {
	ID          string
	Name        string
	Description string
	Owner       string
	TrackCount  int
	Images      []Image
}

// Category represents a browse category.
type Category struct {
	ID   string
	Name string
}

// UserProfile represents the signed-in user.
type UserProfile struct {
	ID          string
	DisplayName string
	Email       string
	Country     string
	Product     string
	Images      []Image
}

// Token holds OAuth2 credentials. A zero ExpiresAt means no token was ever issued.
type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Issued reports whether the token represents an authenticated session.
func (t Token) Issued() bool {
	return !t.ExpiresAt.IsZero()
}

// NeedsRefresh reports whether now falls inside the refresh window before expiry.
func (t Token) NeedsRefresh(now time.Time, window time.Duration) bool {
	return !now.Add(window).Before(t.ExpiresAt)
}

// FirstImage returns the URL of the first image, or "".
func FirstImage(images []Image) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}

// JoinArtists renders artist names as a comma separated list.
func JoinArtists(artists []Artist) string {
	names := ""
	for i, a := range artists {
		if i > 0 {
			names += ", "
		}
		names += a.Name
	}
	return names
}
