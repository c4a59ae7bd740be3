// package tasks implements concurrent directory mirroring.
//
// The core abstraction is SyncWorker, which drains a queue of entries into the destination tree.
// Syncer runs a walker, a pool of workers and a reporter together for one full sync.
package tasks

import (
	"context"

	"github.com/desertthunder/dsync/internal/models"
)

// SyncOptions configures a worker invocation. It is copied per call and never mutated.
type SyncOptions struct {
	PreservePermissions bool // Copy source permission bits to the destination after a successful sync
}

// Transferer decides and performs the content synchronization of one entry.
//
// SyncEntries may publish intermediate progress on out.
type Transferer interface {
	SyncEntries(ctx context.Context, out chan<- models.ProgressMessage, src, dst models.Entry) (models.SyncOutcome, error)
	CopyPermissions(src, dst models.Entry) error
}

// DirPermissionApplier is implemented by a [Transferer] that defers directory modes until the tree below
// them is written. [Syncer] calls it once every worker has returned.
type DirPermissionApplier interface {
	ApplyDirPermissions() error
}
