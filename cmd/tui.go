package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/opium/internal/shared"
	"github.com/desertthunder/opium/internal/ui"
	"github.com/urfave/cli/v3"
)

// defaultTUILog receives logs when no log.file is configured, since the terminal belongs to the TUI.
const defaultTUILog = "~/.opium/tui.log"

// TUI launches the interactive terminal UI.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	catalog, err := r.requireCatalog()
	if err != nil {
		return err
	}
	if r.player == nil {
		return fmt.Errorf("%w: player not initialized", shared.ErrServiceUnavailable)
	}

	r.logger.Info("starting TUI")
	model := ui.NewModel(ctx, catalog, r.player)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
