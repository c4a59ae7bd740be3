package tasks

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/dsync/internal/fsops"
	"github.com/desertthunder/dsync/internal/models"
	"github.com/desertthunder/dsync/internal/shared"
	"github.com/go-git/go-billy/v5"
	"go.uber.org/multierr"
)

const (
	DefaultWorkers          = 4
	DefaultQueueCapacity    = 128
	DefaultProgressCapacity = 256
)

// SyncerOpts configures a [Syncer]. Zero values fall back to the defaults above.
type SyncerOpts struct {
	Source           string
	Destination      string
	Workers          int   // Number of concurrent workers, capped at [shared.MaxWorkers]
	QueueCapacity    int   // Entry queue buffer
	ProgressCapacity int   // Progress channel buffer
	RateLimit        int64 // Copy bandwidth in bytes per second; 0 disables limiting
	FS               billy.Filesystem
	Transfer         Transferer                   // Defaults to an [fsops.Copier] sharing FS
	Logger           *log.Logger
	OnMessage        func(models.ProgressMessage) // Called from the reporter goroutine
}

// Syncer runs one full mirror of Source onto Destination.
type Syncer struct {
	source           string
	destination      string
	workers          int
	queueCapacity    int
	progressCapacity int
	fs               billy.Filesystem
	transfer         Transferer
	logger           *log.Logger
	onMessage        func(models.ProgressMessage)
}

// NewSyncer creates a [Syncer]. Source and Destination are made absolute and cleaned.
func NewSyncer(opts SyncerOpts) (*Syncer, error) {
	if opts.Source == "" || opts.Destination == "" {
		return nil, fmt.Errorf("%w: source and destination are required", shared.ErrMissingArgument)
	}

	source, err := filepath.Abs(opts.Source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	destination, err := filepath.Abs(opts.Destination)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	if _, err := fsops.RelPath(destination, source); err == nil {
		return nil, fmt.Errorf("%w: destination %s is inside source %s", shared.ErrInvalidArgument, destination, source)
	}

	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Workers > shared.MaxWorkers {
		opts.Workers = shared.MaxWorkers
	}
	if opts.QueueCapacity <= 0 {
		opts.QueueCapacity = DefaultQueueCapacity
	}
	if opts.ProgressCapacity <= 0 {
		opts.ProgressCapacity = DefaultProgressCapacity
	}
	if opts.FS == nil {
		opts.FS = fsops.NewOSFS()
	}
	if opts.Transfer == nil {
		opts.Transfer = fsops.NewCopier(fsops.CopierOpts{FS: opts.FS, RateLimit: opts.RateLimit})
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Syncer{
		source:           source,
		destination:      destination,
		workers:          opts.Workers,
		queueCapacity:    opts.QueueCapacity,
		progressCapacity: opts.ProgressCapacity,
		fs:               opts.FS,
		transfer:         opts.Transfer,
		logger:           opts.Logger,
		onMessage:        opts.OnMessage,
	}, nil
}

func (s *Syncer) Source() string      { return s.source }
func (s *Syncer) Destination() string { return s.destination }
func (s *Syncer) Workers() int        { return s.workers }

// Sync mirrors the source tree and returns the aggregated stats together with any error.
//
// The first failing worker cancels the others; their cancellation errors are not reported.
// Deferred directory permissions are applied after the workers finish, even when the sync failed.
func (s *Syncer) Sync(parent context.Context, opts SyncOptions) (models.Stats, error) {
	info, err := s.fs.Lstat(s.source)
	if err != nil {
		return models.Stats{}, fmt.Errorf("%w: %s", shared.ErrSourceNotFound, s.source)
	}
	if !info.IsDir() {
		return models.Stats{}, fmt.Errorf("%w: %s", shared.ErrNotADirectory, s.source)
	}
	if err := s.fs.MkdirAll(s.destination, dirMode); err != nil {
		return models.Stats{}, shared.NewIOError(err, "could not create %s", s.destination)
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	entries := make(chan models.Entry, s.queueCapacity)
	progress := make(chan models.ProgressMessage, s.progressCapacity)

	reporter := NewReporter(s.logger, s.onMessage)
	statsCh := make(chan models.Stats, 1)
	go func() {
		statsCh <- reporter.Run(progress)
	}()

	s.logger.Info("starting sync", "source", s.source, "destination", s.destination, "workers", s.workers)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error
	)
	record := func(err error) {
		if err == nil {
			return
		}
		mu.Lock()
		errs = multierr.Append(errs, err)
		mu.Unlock()
		cancel()
	}

	for i := range s.workers {
		worker := NewSyncWorker(WorkerOpts{
			Source:      s.source,
			Destination: s.destination,
			Input:       entries,
			Output:      progress,
			Transfer:    s.transfer,
			FS:          s.fs,
			Logger:      shared.WithLogger(s.logger, "worker", i+1),
		})

		wg.Add(1)
		go func() {
			defer wg.Done()
			record(worker.Run(ctx, opts))
		}()
	}

	walker := NewWalker(s.fs, s.source, s.logger)
	record(walker.Walk(ctx, entries, progress))
	close(entries)

	wg.Wait()
	if applier, ok := s.transfer.(DirPermissionApplier); ok && opts.PreservePermissions {
		record(applier.ApplyDirPermissions())
	}
	close(progress)
	stats := <-statsCh

	err = collectErrors(errs, parent)
	if err != nil {
		s.logger.Error("sync failed", "synced", stats.Synced, "err", err)
	} else {
		s.logger.Info("sync complete", "synced", stats.Synced, "copied", stats.Copied, "updated", stats.Updated)
	}
	return stats, err
}

// collectErrors drops cancellation errors caused by fail-fast, keeping the parent's own cancellation.
func collectErrors(errs error, parent context.Context) error {
	var kept error
	for _, err := range multierr.Errors(errs) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			continue
		}
		kept = multierr.Append(kept, err)
	}
	if kept == nil && parent.Err() != nil {
		return parent.Err()
	}
	return kept
}
