// package formatter renders catalog listings as plain text, Markdown or CSV
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/desertthunder/opium/internal/models"
	"github.com/desertthunder/opium/internal/services"
	"github.com/desertthunder/opium/internal/shared"
)

// Format is an output format for [Table]s.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
)

// ParseFormat maps a flag value to a [Format]. "md" is accepted for Markdown.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
	}
}

// Table is a titled listing with optional key/value metadata.
type Table struct {
	Title   string
	Meta    [][2]string
	Headers []string
	Rows    [][]string
}

// Render writes t to w in the given format.
func Render(w io.Writer, t *Table, format Format) error {
	var (
		data []byte
		err  error
	)

	switch format {
	case FormatCSV:
		data, err = ExportToCSV(t)
	case FormatMarkdown:
		data, err = ExportToMarkdown(t)
	case FormatText, "":
		data, err = ExportToText(t)
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
	if err != nil {
		return err
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// ExportToCSV converts a table to CSV with a header row. Title and metadata are omitted.
func ExportToCSV(t *Table) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(t.Headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, row := range t.Rows {
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a table to a Markdown document with a pipe table.
func ExportToMarkdown(t *Table) ([]byte, error) {
	var buf bytes.Buffer

	if t.Title != "" {
		fmt.Fprintf(&buf, "# %s\n\n", t.Title)
	}
	for _, kv := range t.Meta {
		fmt.Fprintf(&buf, "**%s**: %s\n", kv[0], kv[1])
	}
	if len(t.Meta) > 0 {
		buf.WriteString("\n")
	}

	if len(t.Headers) == 0 {
		return buf.Bytes(), nil
	}

	buf.WriteString("| # | " + strings.Join(escapeCells(t.Headers), " | ") + " |\n")
	buf.WriteString("|---|" + strings.Repeat("---|", len(t.Headers)) + "\n")
	for i, row := range t.Rows {
		fmt.Fprintf(&buf, "| %d | %s |\n", i+1, strings.Join(escapeCells(row), " | "))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a table to numbered plain text, one row per line.
func ExportToText(t *Table) ([]byte, error) {
	var buf bytes.Buffer

	if t.Title != "" {
		fmt.Fprintf(&buf, "%s\n", t.Title)
	}
	for _, kv := range t.Meta {
		fmt.Fprintf(&buf, "%s: %s\n", kv[0], kv[1])
	}
	if t.Title != "" || len(t.Meta) > 0 {
		buf.WriteString("\n")
	}

	for i, row := range t.Rows {
		fields := make([]string, 0, len(row))
		for _, f := range row {
			if f != "" {
				fields = append(fields, f)
			}
		}
		fmt.Fprintf(&buf, "%d. %s\n", i+1, strings.Join(fields, " - "))
	}

	return buf.Bytes(), nil
}

func escapeCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.ReplaceAll(strings.ReplaceAll(c, "|", `\|`), "\n", " ")
	}
	return out
}

// FormatDuration renders milliseconds as m:ss.
func FormatDuration(ms int) string {
	if ms < 0 {
		ms = 0
	}
	seconds := ms / 1000
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

func previewMark(t models.Track) string {
	if t.PreviewURL == "" {
		return "no"
	}
	return "yes"
}

// Tracks builds a track listing.
func Tracks(title string, tracks []models.Track) *Table {
	t := &Table{
		Title:   title,
		Meta:    [][2]string{{"Tracks", strconv.Itoa(len(tracks))}},
		Headers: []string{"ID", "Title", "Artists", "Album", "Duration", "Preview"},
	}
	for _, tr := range tracks {
		album := ""
		if tr.Album != nil {
			album = tr.Album.Name
		}
		t.Rows = append(t.Rows, []string{tr.ID, tr.Name, tr.ArtistNames(), album, FormatDuration(tr.DurationMS), previewMark(tr)})
	}
	return t
}

// Albums builds an album listing.
func Albums(title string, albums []models.Album) *Table {
	t := &Table{Title: title, Headers: []string{"ID", "Name", "Artists", "Type", "Released"}}
	for _, a := range albums {
		t.Rows = append(t.Rows, []string{a.ID, a.Name, models.JoinArtists(a.Artists), a.AlbumType, a.ReleaseDate})
	}
	return t
}

// Playlists builds a playlist listing.
func Playlists(title string, playlists []models.Playlist) *Table {
	t := &Table{Title: title, Headers: []string{"ID", "Name", "Owner", "Tracks"}}
	for _, p := range playlists {
		t.Rows = append(t.Rows, []string{p.ID, p.Name, p.Owner, strconv.Itoa(p.TrackCount)})
	}
	return t
}

// Categories builds a browse category listing.
func Categories(categories []models.Category) *Table {
	t := &Table{Title: "Browse", Headers: []string{"ID", "Name"}}
	for _, c := range categories {
		t.Rows = append(t.Rows, []string{c.ID, c.Name})
	}
	return t
}

// Releases builds a listing of new releases with albums before singles.
func Releases(r services.Releases) *Table {
	t := &Table{
		Title:   "New Releases",
		Meta:    [][2]string{{"Albums", strconv.Itoa(len(r.Albums))}, {"Singles", strconv.Itoa(len(r.Singles))}},
		Headers: []string{"ID", "Name", "Artists", "Type", "Released"},
	}
	for _, group := range [][]models.Album{r.Albums, r.Singles} {
		t.Rows = append(t.Rows, Albums("", group).Rows...)
	}
	return t
}

// Artist builds an artist page: top tracks with the artist's details as metadata.
func Artist(o *services.ArtistOverview) *Table {
	t := Tracks(o.Artist.Name, o.TopTracks)
	t.Meta = [][2]string{{"ID", o.Artist.ID}, {"Albums", strconv.Itoa(len(o.Albums))}}
	if len(o.Artist.Genres) > 0 {
		t.Meta = append(t.Meta, [2]string{"Genres", strings.Join(o.Artist.Genres, ", ")})
	}
	return t
}

// Search builds a merged search listing in result order.
func Search(results *services.SearchResults) *Table {
	t := &Table{
		Title:   fmt.Sprintf("Search: %s", results.Query),
		Meta:    [][2]string{{"Results", strconv.Itoa(results.Len())}},
		Headers: []string{"Kind", "ID", "Name", "Detail"},
	}
	for _, r := range results.Flatten() {
		var id string
		switch r.Kind {
		case services.ResultTrack:
			id = r.Track.ID
		case services.ResultArtist:
			id = r.Artist.ID
		case services.ResultPlaylist:
			id = r.Playlist.ID
		case services.ResultAlbum:
			id = r.Album.ID
		}
		t.Rows = append(t.Rows, []string{r.Kind.String(), id, r.Title(), r.Subtitle()})
	}
	return t
}

// Profile builds a single-row listing for the signed-in user.
func Profile(u *models.UserProfile) *Table {
	return &Table{
		Title:   u.DisplayName,
		Meta:    [][2]string{{"Country", u.Country}, {"Product", u.Product}},
		Headers: []string{"ID", "Name", "Email"},
		Rows:    [][]string{{u.ID, u.DisplayName, u.Email}},
	}
}
