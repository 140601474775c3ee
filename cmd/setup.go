package main

import (
	"context"

	"github.com/desertthunder/opium/internal/shared"
	"github.com/urfave/cli/v3"
)

// Init writes the embedded example configuration to the --config path.
func (r *Runner) Init(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", path)
	r.writePlain("✓ Created %s\n\n", path)
	r.writePlain("Add your Spotify client_id and client_secret, then run: opium auth login\n")
	return nil
}
