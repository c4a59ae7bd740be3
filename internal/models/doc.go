// Package models defines the values that flow through a dsync run and the persisted run history.
//
// The package contains two categories of types:
//
// 1. Pipeline values: immutable data handed between the walker, the workers and the reporter
//   - [Entry] : A described reference to one filesystem path
//   - [SyncOutcome] : What the transfer delegate did for one entry
//   - [ProgressMessage] : Events published on the progress channel
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [SyncRun] : One invocation of `dsync sync` with its counters and final status
//
// All persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
