package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/opium/internal/formatter"
	"github.com/desertthunder/opium/internal/shared"
	"github.com/urfave/cli/v3"
)

func requireArg(cmd *cli.Command, name string) (string, error) {
	value := strings.TrimSpace(cmd.StringArg(name))
	if value == "" {
		return "", fmt.Errorf("%w: %s", shared.ErrMissingArgument, name)
	}
	return value, nil
}

// BrowseCategories lists browse categories.
func (r *Runner) BrowseCategories(ctx context.Context, cmd *cli.Command) error {
	catalog, err := r.requireCatalog()
	if err != nil {
		return err
	}

	categories, err := catalog.Categories(ctx)
	if err != nil {
		return err
	}
	r.logger.Debug("fetched categories", "count", len(categories))
	return r.render(cmd, categories, formatter.Categories(categories))
}

// BrowsePlaylists lists the playlists of a category.
func (r *Runner) BrowsePlaylists(ctx context.Context, cmd *cli.Command) error {
	categoryID, err := requireArg(cmd, "category")
	if err != nil {
		return err
	}
	catalog, err := r.requireCatalog()
	if err != nil {
		return err
	}

	playlists, err := catalog.CategoryPlaylists(ctx, categoryID)
	if err != nil {
		return err
	}
	return r.render(cmd, playlists, formatter.Playlists(fmt.Sprintf("Category: %s", categoryID), playlists))
}

// BrowseReleases lists new albums and singles.
func (r *Runner) BrowseReleases(ctx context.Context, cmd *cli.Command) error {
	catalog, err := r.requireCatalog()
	if err != nil {
		return err
	}

	releases, err := catalog.NewReleases(ctx)
	if err != nil {
		return err
	}
	return r.render(cmd, releases, formatter.Releases(releases))
}

// Playlist shows a playlist and its tracks.
func (r *Runner) Playlist(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	catalog, err := r.requireCatalog()
	if err != nil {
		return err
	}

	detail, err := catalog.Playlist(ctx, id)
	if err != nil {
		return err
	}
	t := formatter.Tracks(detail.Playlist.Name, detail.Tracks)
	if detail.Playlist.Owner != "" {
		t.Meta = append([][2]string{{"Owner", detail.Playlist.Owner}}, t.Meta...)
	}
	return r.render(cmd, detail, t)
}

// Album shows an album and its tracks.
func (r *Runner) Album(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	catalog, err := r.requireCatalog()
	if err != nil {
		return err
	}

	detail, err := catalog.Album(ctx, id)
	if err != nil {
		return err
	}
	return r.render(cmd, detail, formatter.Tracks(detail.Album.Name, detail.Tracks))
}

// Artist shows an artist page: top tracks followed by the discography.
func (r *Runner) Artist(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	catalog, err := r.requireCatalog()
	if err != nil {
		return err
	}

	overview, err := catalog.ArtistOverview(ctx, id)
	if err != nil {
		return err
	}
	return r.render(cmd, overview, formatter.Artist(overview))
}

// Search queries all four result groups at once.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query, err := requireArg(cmd, "query")
	if err != nil {
		return err
	}
	catalog, err := r.requireCatalog()
	if err != nil {
		return err
	}

	results, err := catalog.Search(ctx, query)
	if err != nil {
		return err
	}
	r.logger.Debug("search complete", "query", query, "results", results.Len())
	return r.render(cmd, results, formatter.Search(results))
}

// Me shows the signed-in profile.
func (r *Runner) Me(ctx context.Context, cmd *cli.Command) error {
	catalog, err := r.requireCatalog()
	if err != nil {
		return err
	}

	profile, err := catalog.CurrentUser(ctx)
	if err != nil {
		return err
	}
	return r.render(cmd, profile, formatter.Profile(profile))
}
