// Package tasks mirrors a source directory tree onto a destination tree with a pool of concurrent workers.
//
// # Pipeline
//
// A [Syncer] wires three kinds of goroutines around two bounded channels:
//
//  1. [Walker] : enumerates the source tree and pushes one [models.Entry] per path onto the entry queue,
//     announcing running totals as [models.Todo] messages
//  2. [SyncWorker] (N of them) : drain the shared entry queue; for each entry
//     - resolve the path relative to the source root
//     - create the destination's missing ancestor directories
//     - hand the entry to the [Transferer] and optionally copy permission bits
//     - publish a [models.DoneSyncing] message
//  3. [Reporter] : drains the progress channel and aggregates [models.Stats]
//
// # Failure
//
// A worker stops on the first error and returns it without touching the rest of the queue.
// The [Syncer] then cancels the shared context so the walker and the remaining workers stop at their next
// receive, and returns every error combined with multierr.
//
// # Progress
//
// Progress sends block, so a slow consumer applies backpressure to the workers rather than dropping events.
package tasks
