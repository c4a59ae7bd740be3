// Package ui renders a running sync in the terminal using bubbletea's Elm architecture.
//
// The [Model] starts the sync in a goroutine and forwards each progress message into the bubbletea loop,
// where a [tasks.Reporter] keeps live totals for the view:
//   - a bubbles/progress bar of finished entries over discovered entries
//   - bytes copied against the bytes discovered so far
//   - the entry currently being synced and per-outcome counters
//
// Pressing q cancels the sync's context and quits. The program also quits on its own once the sync returns;
// [Model.Wait] then yields the final stats and error.
package ui
