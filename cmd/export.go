package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/opium/internal/shared"
	"github.com/desertthunder/opium/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Export writes playlists and albums to disk, one file per source.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()
	if len(args) == 0 {
		return fmt.Errorf("%w: sources", shared.ErrMissingArgument)
	}

	sources := make([]tasks.Source, 0, len(args))
	for _, arg := range args {
		src, err := tasks.ParseSource(arg)
		if err != nil {
			return err
		}
		sources = append(sources, src)
	}

	catalog, err := r.requireCatalog()
	if err != nil {
		return err
	}
	exporter, err := tasks.NewExporter(catalog, r.logger)
	if err != nil {
		return err
	}

	opts := tasks.BulkExportOpts{
		Format:     cmd.String("format"),
		OutputDir:  cmd.String("dir"),
		NumWorkers: int(cmd.Int("workers")),
		RateLimit:  r.config.API.RateLimit,
	}

	r.logger.Info("starting export", "sources", len(sources), "format", opts.Format)
	r.writePlain("Exporting %d source(s)...\n\n", len(sources))

	prog := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range prog {
			switch update.Phase {
			case tasks.FetchSource:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.WriteExport:
				r.writePlain("   %s\n", update.Message)
			case tasks.WriteManifest:
				r.writePlain("\n📝 %s\n", update.Message)
			}
		}
	}()

	result, err := exporter.BulkExport(ctx, prog, sources, opts)
	close(prog)
	<-done

	if err != nil {
		return err
	}

	r.writePlain("\n═══════════════════════════════════════\n")
	r.writePlain("Export Complete!\n")
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("Directory: %s\n", result.OutputDirectory)
	r.writePlain("Exported: %d/%d\n", result.Succeeded, result.TotalSources)

	if result.Failed > 0 {
		r.writePlain("\nFailed to export %d source(s):\n", result.Failed)
		for _, res := range result.Results {
			if res.Err() != nil {
				r.writePlain("  - %s: %v\n", res.Source, res.Err())
			}
		}
	}
	return nil
}
