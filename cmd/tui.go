package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/dsync/internal/models"
	"github.com/desertthunder/dsync/internal/ui"
)

// runTUI runs the sync under the interactive progress view and returns its result once the sync has stopped.
func (r *Runner) runTUI(ctx context.Context, source, destination string, run ui.SyncFunc) (models.Stats, error) {
	model := ui.NewModel(ctx, source, destination, run)
	p := tea.NewProgram(model, tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		model.Stop()
		if !model.Started() {
			return models.Stats{}, fmt.Errorf("error running TUI: %w", err)
		}
		r.logger.Warn("TUI exited early", "err", err)
	}

	return model.Wait()
}
