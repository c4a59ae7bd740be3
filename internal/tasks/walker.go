package tasks

import (
	"context"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/dsync/internal/fsops"
	"github.com/desertthunder/dsync/internal/models"
	"github.com/desertthunder/dsync/internal/shared"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// Walker enumerates a source tree onto an entry queue.
type Walker struct {
	fs     billy.Filesystem
	source string
	logger *log.Logger
}

// NewWalker creates a [Walker] for the cleaned, absolute source root.
func NewWalker(fs billy.Filesystem, source string, logger *log.Logger) *Walker {
	return &Walker{fs: fs, source: source, logger: logger}
}

// Walk sends one entry per path below the source root, parents before children.
//
// Symlinks are emitted, not followed. Every entry is preceded by a [models.Todo] on out carrying the running
// totals, where NumFiles and TotalSize count non-directories only. Walk does not close entries.
func (w *Walker) Walk(ctx context.Context, entries chan<- models.Entry, out chan<- models.ProgressMessage) error {
	var (
		numEntries int
		numFiles   int
		totalSize  int64
	)

	err := util.Walk(w.fs, w.source, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return shared.NewIOError(err, "could not read %s", path)
		}
		if path == w.source {
			return nil
		}

		rel, err := fsops.RelPath(path, w.source)
		if err != nil {
			return err
		}

		numEntries++
		if !info.IsDir() {
			numFiles++
			totalSize += info.Size()
		}
		if err := fsops.Send(ctx, out, models.TodoMsg(numEntries, numFiles, totalSize)); err != nil {
			return err
		}

		select {
		case entries <- models.NewEntry(rel, path):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if err != nil {
		return err
	}

	w.logger.Debug("walk complete", "entries", numEntries, "files", numFiles, "size", totalSize)
	return nil
}
