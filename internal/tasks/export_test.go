package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/opium/internal/models"
	"github.com/desertthunder/opium/internal/services"
	"github.com/desertthunder/opium/internal/shared"
	tu "github.com/desertthunder/opium/internal/testing"
)

var errNotFound = errors.New("not found")

// exportCatalog serves playlists and albums; any ID starting with "missing" fails.
type exportCatalog struct {
	services.Catalog

	mu    sync.Mutex
	calls []string
}

func (c *exportCatalog) record(call string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
}

func (c *exportCatalog) Playlist(ctx context.Context, id string) (*services.PlaylistDetail, error) {
	c.record("playlist:" + id)
	if strings.HasPrefix(id, "missing") {
		return nil, errNotFound
	}
	return &services.PlaylistDetail{
		Playlist: models.Playlist{ID: id, Name: "Playlist " + id},
		Tracks: []models.Track{
			{ID: "t1", Name: "First", Artists: []models.Artist{{Name: "Band"}}, DurationMS: 61000},
			{ID: "t2", Name: "Second", Artists: []models.Artist{{Name: "Band"}}, DurationMS: 122000},
		},
	}, nil
}

func (c *exportCatalog) Album(ctx context.Context, id string) (*services.AlbumDetail, error) {
	c.record("album:" + id)
	if strings.HasPrefix(id, "missing") {
		return nil, errNotFound
	}
	return &services.AlbumDetail{
		Album:  models.Album{ID: id, Name: "Album " + id, AlbumType: "album"},
		Tracks: []models.Track{{ID: "t3", Name: "Third", Artists: []models.Artist{{Name: "Band"}}}},
	}, nil
}

func newTestExporter(t *testing.T) (*Exporter, *exportCatalog) {
	t.Helper()
	catalog := &exportCatalog{}
	e, err := NewExporter(catalog, shared.NewLogger(io.Discard))
	if err != nil {
		t.Fatalf("failed to create exporter: %v", err)
	}
	return e, catalog
}

func TestParseSource(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Source
	}{
		{"Bare ID", "37i9dQZF1DXcBWIGoYBM5M", Source{SourcePlaylist, "37i9dQZF1DXcBWIGoYBM5M"}},
		{"Prefixed Playlist", "playlist:abc", Source{SourcePlaylist, "abc"}},
		{"Prefixed Album", "album:xyz", Source{SourceAlbum, "xyz"}},
		{"Uppercase Kind", "ALBUM:xyz", Source{SourceAlbum, "xyz"}},
		{"Spotify URI", "spotify:album:xyz", Source{SourceAlbum, "xyz"}},
		{"Web Link", "https://open.spotify.com/playlist/abc", Source{SourcePlaylist, "abc"}},
		{"Web Link With Query", "https://open.spotify.com/album/xyz?si=123", Source{SourceAlbum, "xyz"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSource(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}

	t.Run("Errors", func(t *testing.T) {
		cases := map[string]error{
			"":                              shared.ErrMissingArgument,
			"   ":                           shared.ErrMissingArgument,
			"playlist:":                     shared.ErrMissingArgument,
			"artist:abc":                    shared.ErrInvalidArgument,
			"spotify:user:me:playlist:abc":  shared.ErrInvalidArgument,
			"https://open.spotify.com/":     shared.ErrInvalidArgument,
			"https://open.spotify.com/x/id": shared.ErrInvalidArgument,
		}
		for input, want := range cases {
			if _, err := ParseSource(input); !errors.Is(err, want) {
				t.Errorf("ParseSource(%q): expected %v, got %v", input, want, err)
			}
		}
	})

	t.Run("String", func(t *testing.T) {
		if got := (Source{SourceAlbum, "xyz"}).String(); got != "album:xyz" {
			t.Errorf("expected album:xyz, got %s", got)
		}
	})
}

func TestNewExporter(t *testing.T) {
	if _, err := NewExporter(nil, nil); !errors.Is(err, shared.ErrServiceUnavailable) {
		t.Errorf("expected ErrServiceUnavailable, got %v", err)
	}
	e, err := NewExporter(&exportCatalog{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.logger == nil {
		t.Error("expected default logger")
	}
}

func TestBulkExport(t *testing.T) {
	ctx := context.Background()

	t.Run("Writes Each Source", func(t *testing.T) {
		e, catalog := newTestExporter(t)
		dir := filepath.Join(t.TempDir(), "out")
		sources := []Source{{SourcePlaylist, "p1"}, {SourceAlbum, "a1"}, {SourcePlaylist, "p2"}}

		result, err := e.BulkExport(ctx, nil, sources, BulkExportOpts{Format: "markdown", OutputDir: dir, RateLimit: 1000})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.TotalSources != 3 || result.Succeeded != 3 || result.Failed != 0 {
			t.Errorf("unexpected counts: %+v", result)
		}
		if len(catalog.calls) != 3 {
			t.Errorf("expected 3 fetches, got %v", catalog.calls)
		}

		tu.AssertDirExists(t, dir)
		for i, src := range sources {
			res := result.Results[i]
			if res.Source != src {
				t.Errorf("result %d: expected %s, got %s", i, src, res.Source)
			}
			if filepath.Ext(res.File) != ".md" {
				t.Errorf("expected markdown file, got %s", res.File)
			}
			tu.AssertFileExists(t, res.File)
		}

		content := tu.MustReadFile(t, filepath.Join(dir, "playlist_p1.md"))
		if !strings.Contains(content, "Playlist p1") || !strings.Contains(content, "Second") {
			t.Errorf("unexpected export content:\n%s", content)
		}
		if result.Results[1].Tracks != 1 || result.Results[1].Name != "Album a1" {
			t.Errorf("unexpected album result: %+v", result.Results[1])
		}
	})

	t.Run("Manifest", func(t *testing.T) {
		e, _ := newTestExporter(t)
		dir := t.TempDir()

		result, err := e.BulkExport(ctx, nil, []Source{{SourcePlaylist, "p1"}, {SourceAlbum, "missing"}}, BulkExportOpts{
			Format:    "csv",
			OutputDir: dir,
			RateLimit: 1000,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.ManifestPath != filepath.Join(dir, manifestName) {
			t.Errorf("unexpected manifest path %s", result.ManifestPath)
		}

		var manifest BulkExportResult
		if err := json.Unmarshal([]byte(tu.MustReadFile(t, result.ManifestPath)), &manifest); err != nil {
			t.Fatalf("manifest is not valid JSON: %v", err)
		}
		if manifest.Format != "csv" || manifest.Succeeded != 1 || manifest.Failed != 1 {
			t.Errorf("unexpected manifest: %+v", manifest)
		}
		if manifest.Results[1].Error == "" {
			t.Error("expected failure message in manifest")
		}
	})

	t.Run("Failures Do Not Abort", func(t *testing.T) {
		e, _ := newTestExporter(t)
		sources := []Source{{SourcePlaylist, "missing1"}, {SourcePlaylist, "p1"}, {SourceAlbum, "missing2"}}

		result, err := e.BulkExport(ctx, nil, sources, BulkExportOpts{OutputDir: t.TempDir(), RateLimit: 1000})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Succeeded != 1 || result.Failed != 2 {
			t.Errorf("expected 1 success and 2 failures, got %+v", result)
		}
		if !errors.Is(result.Results[0].Err(), errNotFound) {
			t.Errorf("expected errNotFound, got %v", result.Results[0].Err())
		}
		if result.Results[1].Err() != nil || filepath.Ext(result.Results[1].File) != ".txt" {
			t.Errorf("expected text export, got %+v", result.Results[1])
		}
	})

	t.Run("JSON", func(t *testing.T) {
		e, _ := newTestExporter(t)
		dir := t.TempDir()

		result, err := e.BulkExport(ctx, nil, []Source{{SourceAlbum, "a1"}}, BulkExportOpts{Format: "JSON", OutputDir: dir, RateLimit: 1000})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var detail services.AlbumDetail
		if err := json.Unmarshal([]byte(tu.MustReadFile(t, result.Results[0].File)), &detail); err != nil {
			t.Fatalf("export is not valid JSON: %v", err)
		}
		if detail.Album.Name != "Album a1" || len(detail.Tracks) != 1 {
			t.Errorf("unexpected album detail: %+v", detail)
		}
	})

	t.Run("Progress", func(t *testing.T) {
		e, _ := newTestExporter(t)
		prog := make(chan ProgressUpdate, 32)

		_, err := e.BulkExport(ctx, prog, []Source{{SourcePlaylist, "p1"}, {SourcePlaylist, "missing"}}, BulkExportOpts{
			OutputDir: t.TempDir(),
			RateLimit: 1000,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		close(prog)

		phases := map[Phase]int{}
		failed := 0
		for u := range prog {
			phases[u.Phase]++
			if u.Err != nil {
				failed++
			}
		}
		if phases[FetchSource] != 2 || phases[WriteExport] != 2 || phases[WriteManifest] != 1 {
			t.Errorf("unexpected progress phases: %v", phases)
		}
		if failed != 1 {
			t.Errorf("expected one failed update, got %d", failed)
		}
	})

	t.Run("Unbuffered Progress Never Blocks", func(t *testing.T) {
		e, _ := newTestExporter(t)
		prog := make(chan ProgressUpdate)

		result, err := e.BulkExport(ctx, prog, []Source{{SourcePlaylist, "p1"}}, BulkExportOpts{OutputDir: t.TempDir(), RateLimit: 1000})
		if err != nil || result.Succeeded != 1 {
			t.Fatalf("expected success, got %+v, %v", result, err)
		}
	})

	t.Run("No Sources", func(t *testing.T) {
		e, _ := newTestExporter(t)
		if _, err := e.BulkExport(ctx, nil, nil, BulkExportOpts{}); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("Unknown Format", func(t *testing.T) {
		e, _ := newTestExporter(t)
		_, err := e.BulkExport(ctx, nil, []Source{{SourcePlaylist, "p1"}}, BulkExportOpts{Format: "xml", OutputDir: t.TempDir()})
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Cancelled", func(t *testing.T) {
		e, catalog := newTestExporter(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		result, err := e.BulkExport(cctx, nil, []Source{{SourcePlaylist, "p1"}, {SourcePlaylist, "p2"}}, BulkExportOpts{
			OutputDir: t.TempDir(),
			RateLimit: 1000,
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if result == nil || result.ManifestPath != "" {
			t.Errorf("expected partial result without manifest, got %+v", result)
		}
		if len(catalog.calls) != 0 {
			t.Errorf("expected no fetches after cancel, got %v", catalog.calls)
		}
	})

	t.Run("Worker Bounds", func(t *testing.T) {
		e, _ := newTestExporter(t)
		sources := make([]Source, 12)
		for i := range sources {
			sources[i] = Source{SourcePlaylist, "p" + string(rune('a'+i))}
		}

		result, err := e.BulkExport(ctx, nil, sources, BulkExportOpts{OutputDir: t.TempDir(), NumWorkers: 50, RateLimit: 1000})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Succeeded != 12 {
			t.Errorf("expected 12 exports, got %d", result.Succeeded)
		}
	})
}

func TestSafeName(t *testing.T) {
	if got := safeName("a/b:c.d"); got != "a_b_c_d" {
		t.Errorf("expected a_b_c_d, got %s", got)
	}
}
