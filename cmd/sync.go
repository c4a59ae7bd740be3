package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/dsync/internal/formatter"
	"github.com/desertthunder/dsync/internal/models"
	"github.com/desertthunder/dsync/internal/repositories"
	"github.com/desertthunder/dsync/internal/shared"
	"github.com/desertthunder/dsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

const tuiLogPath = "./tmp/dsync-tui.log"

// syncParams are the effective settings of one sync after flags override config.
type syncParams struct {
	source      string
	destination string
	preserve    bool
	workers     int
	rateLimit   int64
	tui         bool
	history     bool
	verbose     bool
}

// Sync mirrors SOURCE onto DESTINATION and records the run.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	params, err := r.syncParams(cmd, config)
	if err != nil {
		return err
	}

	if params.tui {
		fileLogger, err := shared.NewFileLogger(tuiLogPath)
		if err != nil {
			return fmt.Errorf("failed to create file logger: %w", err)
		}
		fileLogger.SetLevel(r.logger.GetLevel())
		r.SetLogger(fileLogger)
	}

	var forward func(models.ProgressMessage)
	syncer, err := tasks.NewSyncer(tasks.SyncerOpts{
		Source:           params.source,
		Destination:      params.destination,
		Workers:          params.workers,
		QueueCapacity:    config.Sync.QueueCapacity,
		ProgressCapacity: config.Sync.ProgressCapacity,
		RateLimit:        params.rateLimit,
		Logger:           r.logger,
		OnMessage:        func(msg models.ProgressMessage) { forward(msg) },
	})
	if err != nil {
		return err
	}

	run, finish := r.startRun(config, syncer, params)
	opts := tasks.SyncOptions{PreservePermissions: params.preserve}

	var stats models.Stats
	if params.tui {
		stats, err = r.runTUI(ctx, syncer.Source(), syncer.Destination(), func(ctx context.Context, onMessage func(models.ProgressMessage)) (models.Stats, error) {
			forward = onMessage
			return syncer.Sync(ctx, opts)
		})
	} else {
		forward = r.printProgress(params.verbose)
		stats, err = syncer.Sync(ctx, opts)
	}

	finish(stats, err)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	if run != nil {
		r.writePlain("Run #%d: %s\n", run.Sequence(), formatter.Summary(stats))
	} else {
		r.writePlain("%s\n", formatter.Summary(stats))
	}
	return nil
}

func (r *Runner) syncParams(cmd *cli.Command, config *shared.Config) (syncParams, error) {
	params := syncParams{
		source:      cmd.StringArg("source"),
		destination: cmd.StringArg("destination"),
		preserve:    config.Sync.PreservePermissions && !cmd.Bool("no-perms"),
		workers:     config.Sync.Workers,
		rateLimit:   config.Sync.RateLimit,
		tui:         cmd.Bool("tui"),
		history:     !cmd.Bool("no-history"),
		verbose:     cmd.Bool("verbose"),
	}

	if params.source == "" || params.destination == "" {
		return params, fmt.Errorf("%w: SOURCE and DESTINATION are required", shared.ErrMissingArgument)
	}

	if cmd.IsSet("workers") {
		params.workers = cmd.Int("workers")
		if params.workers < 1 || params.workers > shared.MaxWorkers {
			return params, fmt.Errorf("%w: --workers must be between 1 and %d, got %d", shared.ErrInvalidFlag, shared.MaxWorkers, params.workers)
		}
	}

	if cmd.IsSet("rate-limit") {
		params.rateLimit = cmd.Int64("rate-limit")
		if params.rateLimit < 0 {
			return params, fmt.Errorf("%w: --rate-limit must not be negative", shared.ErrInvalidFlag)
		}
	}

	return params, nil
}

// startRun records a running [models.SyncRun] and returns a func that completes it.
//
// History failures are logged and never fail the sync.
func (r *Runner) startRun(config *shared.Config, syncer *tasks.Syncer, params syncParams) (*models.SyncRun, func(models.Stats, error)) {
	noop := func(models.Stats, error) {}
	if !params.history {
		return nil, noop
	}

	repo, closeDB, err := r.openHistory(config)
	if err != nil {
		r.logger.Warn("run history unavailable", "err", err)
		return nil, noop
	}

	run := models.NewSyncRun(0, syncer.Source(), syncer.Destination(), params.preserve, syncer.Workers())
	if err := repo.Create(run); err != nil {
		r.logger.Warn("failed to record run", "err", err)
		closeDB()
		return nil, noop
	}

	return run, func(stats models.Stats, syncErr error) {
		defer closeDB()
		record(r, repo, run, stats, syncErr)
	}
}

func record(r *Runner, repo *repositories.RunRepository, run *models.SyncRun, stats models.Stats, err error) {
	run.Finish(stats, err)
	if err := repo.Update(run); err != nil {
		r.logger.Warn("failed to update run", "id", run.ID(), "err", err)
		return
	}
	r.logger.Debug("recorded run", "id", run.ID(), "sequence", run.Sequence(), "status", run.Status())
}

// printProgress writes one line per finished entry. Up-to-date entries are only shown when verbose.
//
// A failed write is logged once and does not stop the sync.
func (r *Runner) printProgress(verbose bool) func(models.ProgressMessage) {
	var warned bool
	return func(msg models.ProgressMessage) {
		if msg.Kind != models.DoneSyncing {
			return
		}
		if msg.Outcome == models.UpToDate && !verbose {
			return
		}
		if err := r.writePlain("%-17s %s\n", msg.Outcome, msg.Description); err != nil && !warned {
			warned = true
			r.logger.Warn("could not print progress", "err", err)
		}
	}
}
