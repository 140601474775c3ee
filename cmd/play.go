package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/opium/internal/models"
	"github.com/desertthunder/opium/internal/player"
	"github.com/urfave/cli/v3"
)

// PlayTrack plays one track preview in single mode.
func (r *Runner) PlayTrack(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	catalog, err := r.requireCatalog()
	if err != nil {
		return err
	}

	track, err := catalog.Track(ctx, id)
	if err != nil {
		return err
	}
	return r.playAndWait(ctx, func() (*player.Session, error) {
		return r.player.Play(ctx, *track)
	})
}

// PlayAlbum queues every playable track of an album.
func (r *Runner) PlayAlbum(ctx context.Context, cmd *cli.Command) error {
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
	return r.playAll(ctx, detail.Tracks)
}

// PlayPlaylist queues every playable track of a playlist.
func (r *Runner) PlayPlaylist(ctx context.Context, cmd *cli.Command) error {
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
	return r.playAll(ctx, detail.Tracks)
}

func (r *Runner) playAll(ctx context.Context, tracks []models.Track) error {
	if skipped := len(tracks) - len(player.Playable(tracks)); skipped > 0 {
		r.logger.Info("skipping tracks without a preview", "count", skipped)
	}
	return r.playAndWait(ctx, func() (*player.Session, error) {
		return r.player.PlayAll(ctx, tracks)
	})
}

// playAndWait starts a session and prints each track change until playback ends or ctx is cancelled.
func (r *Runner) playAndWait(ctx context.Context, start func() (*player.Session, error)) error {
	events, unsubscribe := r.player.Subscribe(16)
	defer unsubscribe()

	session, err := start()
	if err != nil {
		return err
	}
	r.logger.Debug("session started", "id", session.ID, "mode", session.Mode, "tracks", session.Len())

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev.Kind {
			case player.EventTrackChanged:
				r.writePlain("▶ %s\n", describe(ev))
			case player.EventEnded:
				return r.writePlain("■ Finished\n")
			}
		case <-ctx.Done():
			return r.writePlainln("Stopped")
		}
	}
}

func describe(ev player.Event) string {
	line := ev.Track.Name
	if artists := ev.Track.ArtistNames(); artists != "" {
		line = fmt.Sprintf("%s - %s", artists, line)
	}
	if ev.Total > 1 {
		line = fmt.Sprintf("%s [%d/%d]", line, ev.Index+1, ev.Total)
	}
	return line
}
