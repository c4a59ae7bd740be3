package tasks

import (
	"context"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/dsync/internal/fsops"
	"github.com/desertthunder/dsync/internal/models"
	"github.com/desertthunder/dsync/internal/shared"
	"github.com/go-git/go-billy/v5"
)

const dirMode = 0755

// WorkerOpts contains the dependencies of a [SyncWorker].
type WorkerOpts struct {
	Source      string                        // Source root
	Destination string                        // Destination root
	Input       <-chan models.Entry           // Entry queue, possibly shared with other workers
	Output      chan<- models.ProgressMessage // Progress channel
	Transfer    Transferer                    // Defaults to an [fsops.Copier] on FS
	FS          billy.Filesystem              // Defaults to [fsops.NewOSFS]
	Logger      *log.Logger
}

// SyncWorker drains entries from its input and mirrors each into the destination tree.
type SyncWorker struct {
	input       <-chan models.Entry
	output      chan<- models.ProgressMessage
	source      string
	destination string
	transfer    Transferer
	fs          billy.Filesystem
	logger      *log.Logger
}

// NewSyncWorker creates a [SyncWorker] from opts.
func NewSyncWorker(opts WorkerOpts) *SyncWorker {
	if opts.FS == nil {
		opts.FS = fsops.NewOSFS()
	}
	if opts.Transfer == nil {
		opts.Transfer = fsops.NewCopier(fsops.CopierOpts{FS: opts.FS})
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &SyncWorker{
		input:       opts.Input,
		output:      opts.Output,
		source:      opts.Source,
		destination: opts.Destination,
		transfer:    opts.Transfer,
		fs:          opts.FS,
		logger:      opts.Logger,
	}
}

// Run syncs entries until the input is closed, returning nil, or until one fails, returning its error.
//
// Nothing else is received after a failure. Cancelling ctx stops the loop at the next receive.
func (w *SyncWorker) Run(ctx context.Context, opts SyncOptions) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var (
			entry models.Entry
			ok    bool
		)
		select {
		case entry, ok = <-w.input:
		case <-ctx.Done():
			return ctx.Err()
		}
		if !ok {
			return nil
		}

		outcome, err := w.SyncOne(ctx, entry, opts)
		if err != nil {
			w.logger.Error("sync failed", "entry", entry.Description(), "err", err)
			return err
		}

		done := models.DoneSyncingMsg(outcome)
		done.Description = entry.Description()
		if err := fsops.Send(ctx, w.output, done); err != nil {
			return err
		}
	}
}

// SyncOne mirrors a single source entry and returns what the transfer delegate did.
func (w *SyncWorker) SyncOne(ctx context.Context, src models.Entry, opts SyncOptions) (models.SyncOutcome, error) {
	rel, err := fsops.RelPath(src.Path(), w.source)
	if err != nil {
		return 0, err
	}

	if err := w.createMissingDestDirs(rel); err != nil {
		return 0, err
	}

	dst := models.NewEntry(rel, filepath.Join(w.destination, rel))
	outcome, err := w.transfer.SyncEntries(ctx, w.output, src, dst)
	if err != nil {
		return 0, err
	}

	if opts.PreservePermissions {
		if err := w.transfer.CopyPermissions(src, dst); err != nil {
			return 0, err
		}
	}

	w.logger.Debug("synced", "entry", rel, "outcome", outcome)
	return outcome, nil
}

// createMissingDestDirs creates every ancestor of rel under the destination root in one call.
//
// MkdirAll tolerates directories created concurrently by other workers.
func (w *SyncWorker) createMissingDestDirs(rel string) error {
	if rel == "" || rel == "." {
		return shared.NewPathError("could not get parent path of %q", rel)
	}

	toCreate := filepath.Join(w.destination, filepath.Dir(rel))
	if err := w.fs.MkdirAll(toCreate, dirMode); err != nil {
		return shared.NewIOError(err, "could not create %s", toCreate)
	}
	return nil
}
