// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// outputFlags are shared by every command that prints catalog data.
func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: text, markdown or csv",
			Value:   "text",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
			Value: true,
		},
	}
}

// initCommand writes a starter configuration file.
func initCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "init",
		Usage:  "Create a config.toml from the built-in template",
		Action: r.Init,
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the Spotify session",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Sign in with Spotify in the browser",
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show whether a session is stored and when it expires",
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "Forget the stored tokens",
				Action: r.AuthLogout,
			},
		},
	}
}

// browseCommand exposes the browse tab.
func browseCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "browse",
		Usage: "Browse categories and new releases",
		Commands: []*cli.Command{
			{
				Name:   "categories",
				Usage:  "List browse categories",
				Flags:  outputFlags(),
				Action: r.BrowseCategories,
			},
			{
				Name:  "playlists",
				Usage: "List the playlists of a category",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "category"},
				},
				Flags:  outputFlags(),
				Action: r.BrowsePlaylists,
			},
			{
				Name:   "releases",
				Usage:  "List new albums and singles",
				Flags:  outputFlags(),
				Action: r.BrowseReleases,
			},
		},
	}
}

func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "playlist",
		Usage:     "Show a playlist and its tracks",
		Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
		Flags:     outputFlags(),
		Action:    r.Playlist,
	}
}

func albumCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "album",
		Usage:     "Show an album and its tracks",
		Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
		Flags:     outputFlags(),
		Action:    r.Album,
	}
}

func artistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "artist",
		Usage:     "Show an artist with top tracks and albums",
		Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
		Flags:     outputFlags(),
		Action:    r.Artist,
	}
}

func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search tracks, artists, playlists and albums",
		Arguments: []cli.Argument{&cli.StringArg{Name: "query"}},
		Flags:     outputFlags(),
		Action:    r.Search,
	}
}

func meCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "me",
		Usage:  "Show the signed-in profile",
		Flags:  outputFlags(),
		Action: r.Me,
	}
}

// playCommand plays previews in the foreground until they finish or the process is interrupted.
func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "Play 30-second previews",
		Commands: []*cli.Command{
			{
				Name:      "track",
				Usage:     "Play a single track",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.PlayTrack,
			},
			{
				Name:      "album",
				Usage:     "Queue every playable track of an album",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.PlayAlbum,
			},
			{
				Name:      "playlist",
				Usage:     "Queue every playable track of a playlist",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.PlayPlaylist,
			},
		},
	}
}

// apiCommand handles direct Web API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct Web API calls",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Authenticated GET, prints the raw response",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output compact JSON",
					},
				},
				Action: r.APIGet,
			},
		},
	}
}

// exportCommand writes playlists and albums to files.
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export playlists and albums to files",
		ArgsUsage: "<playlist:ID|album:ID|spotify URI|link>...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "Output directory (default: opium_export_<timestamp>)",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "File format: text, markdown, csv or json",
				Value:   "text",
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Usage:   "Concurrent writers (max 10)",
				Value:   5,
			},
		},
		Action: r.Export,
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive browser and player",
		Action:  r.TUI,
	}
}
