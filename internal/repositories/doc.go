// Package repositories implements SQLite persistence for sync run history.
//
// [RunRepository] implements models.Repository[*models.SyncRun] with soft deletes: deleted runs are excluded
// from every query.
//
// Sequence numbers give runs a stable, human-readable order (run #42) independent of UUIDs and timestamps.
// [NextSequence] atomically increments per-table counters kept in dedicated sequence tables.
package repositories
