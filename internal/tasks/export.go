package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/opium/internal/formatter"
	"github.com/desertthunder/opium/internal/models"
	"github.com/desertthunder/opium/internal/services"
	"github.com/desertthunder/opium/internal/shared"
	"golang.org/x/time/rate"
)

const (
	defaultWorkers = 5
	maxWorkers     = 10
	manifestName   = "export_manifest.json"
)

// SourceKind is the catalog entity an export reads from.
type SourceKind string

const (
	SourcePlaylist SourceKind = "playlist"
	SourceAlbum    SourceKind = "album"
)

// Source identifies one playlist or album to export.
type Source struct {
	Kind SourceKind `json:"kind"`
	ID   string     `json:"id"`
}

func (s Source) String() string {
	return fmt.Sprintf("%s:%s", s.Kind, s.ID)
}

// ParseSource accepts "playlist:ID", "album:ID", Spotify URIs ("spotify:album:ID"),
// open.spotify.com links, or a bare ID, which is treated as a playlist.
func ParseSource(s string) (Source, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Source{}, fmt.Errorf("%w: empty source", shared.ErrMissingArgument)
	}

	if u, err := url.Parse(s); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) >= 2 {
			return newSource(parts[len(parts)-2], parts[len(parts)-1])
		}
		return Source{}, fmt.Errorf("%w: %s", shared.ErrInvalidArgument, s)
	}

	parts := strings.Split(strings.TrimPrefix(s, "spotify:"), ":")
	switch len(parts) {
	case 1:
		return newSource(string(SourcePlaylist), parts[0])
	case 2:
		return newSource(parts[0], parts[1])
	default:
		return Source{}, fmt.Errorf("%w: %s", shared.ErrInvalidArgument, s)
	}
}

func newSource(kind, id string) (Source, error) {
	if id == "" {
		return Source{}, fmt.Errorf("%w: source id", shared.ErrMissingArgument)
	}
	switch k := SourceKind(strings.ToLower(kind)); k {
	case SourcePlaylist, SourceAlbum:
		return Source{Kind: k, ID: id}, nil
	default:
		return Source{}, fmt.Errorf("%w: unsupported source kind %q", shared.ErrInvalidArgument, kind)
	}
}

// BulkExportOpts contains configuration for bulk exports.
type BulkExportOpts struct {
	Format     string  // text, markdown, csv or json
	OutputDir  string  // Base output directory (default: opium_export_{epoch})
	NumWorkers int     // Concurrent writers (default: 5, max: 10)
	RateLimit  float64 // Fetches per second (default: 5)
}

// ExportResult records the outcome for one source.
type ExportResult struct {
	Source Source `json:"source"`
	Name   string `json:"name"`
	File   string `json:"file,omitempty"`
	Tracks int    `json:"tracks"`
	Error  string `json:"error,omitempty"`
	err    error
	index  int
}

// Err returns the failure, or nil when the source was written.
func (r ExportResult) Err() error {
	return r.err
}

// BulkExportResult summarizes a bulk export. Results are in source order.
type BulkExportResult struct {
	Format          string         `json:"format"`
	TotalSources    int            `json:"total_sources"`
	Succeeded       int            `json:"succeeded"`
	Failed          int            `json:"failed"`
	OutputDirectory string         `json:"output_directory"`
	ManifestPath    string         `json:"-"`
	Results         []ExportResult `json:"results"`
}

// listing is a fetched source ready to render.
type listing struct {
	index  int
	source Source
	name   string
	tracks []models.Track
	raw    any
}

// Exporter writes catalog listings to disk.
type Exporter struct {
	catalog services.Catalog
	logger  *log.Logger
}

// NewExporter creates an [Exporter] reading from catalog.
func NewExporter(catalog services.Catalog, logger *log.Logger) (*Exporter, error) {
	if catalog == nil {
		return nil, fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Exporter{catalog: catalog, logger: shared.WithLogger(logger, "component", "export")}, nil
}

// BulkExport exports every source concurrently with rate limiting and progress tracking.
//
// Fetches run one at a time behind the limiter; rendering and writing fan out to a worker pool.
// Per-source failures are recorded in the result. Cancelling ctx stops scheduling new sources.
func (e *Exporter) BulkExport(ctx context.Context, prog chan<- ProgressUpdate, sources []Source, opts BulkExportOpts) (*BulkExportResult, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: no sources to export", shared.ErrMissingArgument)
	}

	opts.Format = strings.ToLower(strings.TrimSpace(opts.Format))
	if opts.Format == "" {
		opts.Format = string(formatter.FormatText)
	}
	ext, err := extension(opts.Format)
	if err != nil {
		return nil, err
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("opium_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = defaultWorkers
	}
	opts.NumWorkers = min(opts.NumWorkers, maxWorkers)
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		Format:          opts.Format,
		TotalSources:    len(sources),
		OutputDirectory: opts.OutputDir,
		Results:         make([]ExportResult, 0, len(sources)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan listing, len(sources))
	results := make(chan ExportResult, len(sources))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				results <- e.write(job, opts.OutputDir, opts.Format, ext)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, src := range sources {
			if err := limiter.Wait(ctx); err != nil {
				e.logger.Warn("export cancelled", "remaining", len(sources)-i)
				return
			}
			sendProgress(prog, fetchingSourceUpdate(i+1, len(sources), src))

			job, err := e.fetch(ctx, i, src)
			if err != nil {
				results <- ExportResult{Source: src, Name: src.String(), Error: err.Error(), err: err, index: i}
				continue
			}
			jobs <- job
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.err == nil {
			result.Succeeded++
			sendProgress(prog, exportCompletedUpdate(completed, len(sources), res.Name, res.Tracks))
		} else {
			result.Failed++
			e.logger.Warn("export failed", "source", res.Source, "err", res.err)
			sendProgress(prog, exportFailedUpdate(completed, len(sources), res.Name, res.err))
		}
	}
	sort.SliceStable(result.Results, func(a, b int) bool {
		return result.Results[a].index < result.Results[b].index
	})

	if err := ctx.Err(); err != nil {
		return result, err
	}

	manifestPath := filepath.Join(opts.OutputDir, manifestName)
	sendProgress(prog, manifestUpdate(manifestPath))
	if err := writeManifest(result, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

func (e *Exporter) fetch(ctx context.Context, index int, src Source) (listing, error) {
	switch src.Kind {
	case SourceAlbum:
		detail, err := e.catalog.Album(ctx, src.ID)
		if err != nil {
			return listing{}, fmt.Errorf("failed to fetch album: %w", err)
		}
		return listing{index: index, source: src, name: detail.Album.Name, tracks: detail.Tracks, raw: detail}, nil
	default:
		detail, err := e.catalog.Playlist(ctx, src.ID)
		if err != nil {
			return listing{}, fmt.Errorf("failed to fetch playlist: %w", err)
		}
		return listing{index: index, source: src, name: detail.Playlist.Name, tracks: detail.Tracks, raw: detail}, nil
	}
}

// write renders one listing to <dir>/<kind>_<id>.<ext>.
func (e *Exporter) write(job listing, dir, format, ext string) ExportResult {
	res := ExportResult{Source: job.source, Name: job.name, Tracks: len(job.tracks), index: job.index}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.%s", job.source.Kind, safeName(job.source.ID), ext))

	var data []byte
	var err error
	if format == "json" {
		data, err = json.MarshalIndent(job.raw, "", "  ")
	} else {
		var buf strings.Builder
		f, _ := formatter.ParseFormat(format)
		err = formatter.Render(&buf, formatter.Tracks(job.name, job.tracks), f)
		data = []byte(buf.String())
	}
	if err == nil {
		err = os.WriteFile(path, data, 0644)
	}
	if err != nil {
		res.err = fmt.Errorf("%s export failed: %w", ext, err)
		res.Error = res.err.Error()
		return res
	}

	e.logger.Debug("exported", "source", job.source, "file", path)
	res.File = path
	return res
}

func writeManifest(result *BulkExportResult, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// extension validates format and returns the file extension used for it.
func extension(format string) (string, error) {
	if format == "json" {
		return "json", nil
	}
	f, err := formatter.ParseFormat(format)
	if err != nil {
		return "", err
	}
	switch f {
	case formatter.FormatMarkdown:
		return "md", nil
	case formatter.FormatCSV:
		return "csv", nil
	default:
		return "txt", nil
	}
}

// safeName keeps IDs usable as file names.
func safeName(id string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '.':
			return '_'
		}
		return r
	}, id)
}
