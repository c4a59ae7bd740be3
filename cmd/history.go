package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/dsync/internal/formatter"
	"github.com/desertthunder/dsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// History prints the most recent runs, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	limit := cmd.Int("limit")
	if limit < 1 {
		return fmt.Errorf("%w: --limit must be positive, got %d", shared.ErrInvalidFlag, limit)
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	repo, closeDB, err := r.openHistory(config)
	if err != nil {
		return err
	}
	defer closeDB()

	runs, err := repo.ListRecent(limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	r.logger.Debug("loaded run history", "count", len(runs), "format", format)

	if path := cmd.String("output"); path != "" {
		if err := formatter.WriteExport(runs, format, path); err != nil {
			return err
		}
		r.logger.Info("history exported", "path", path, "runs", len(runs))
		return nil
	}

	data, err := formatter.Render(runs, format)
	if err != nil {
		return err
	}
	return r.writePlain("%s", data)
}
