package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/dsync/internal/models"
	"github.com/desertthunder/dsync/internal/shared"
)

const runColumns = `id, sequence, source, destination, status, preserve_permissions, workers,
	num_files, total_size, synced, copied, updated, up_to_date, symlinks_created, symlinks_updated, dirs_created, bytes_copied,
	error_message, started_at, completed_at, created_at, updated_at, deleted_at`

// RunRepository implements models.Repository[*models.SyncRun] for run history.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new run with a generated ID and the next sequence number
func (r *RunRepository) Create(run *models.SyncRun) error {
	sequence, err := NextSequence(r.db, "sync_runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	run.SetID(shared.GenerateID())
	run.SetSequence(sequence)

	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	stats := run.Stats()
	query := `
		INSERT INTO sync_runs (` + runColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		run.ID(),
		run.Sequence(),
		run.Source(),
		run.Destination(),
		string(run.Status()),
		run.PreservePermissions(),
		run.Workers(),
		stats.NumFiles,
		stats.TotalSize,
		stats.Synced,
		stats.Copied,
		stats.Updated,
		stats.UpToDate,
		stats.SymlinksCreated,
		stats.SymlinksUpdated,
		stats.DirsCreated,
		stats.BytesCopied,
		nullString(run.ErrorMessage()),
		run.StartedAt(),
		run.CompletedAt(),
		run.CreatedAt(),
		run.UpdatedAt(),
		run.DeletedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return nil
}

// Get retrieves a run by ID, excluding soft-deleted runs
func (r *RunRepository) Get(id string) (*models.SyncRun, error) {
	query := `SELECT ` + runColumns + ` FROM sync_runs WHERE id = ? AND deleted_at IS NULL`

	run, err := r.scan(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrRunNotFound, id)
	}
	return run, err
}

// Update writes the status, stats and completion of an existing run
func (r *RunRepository) Update(run *models.SyncRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	run.SetUpdatedAt(now)

	stats := run.Stats()
	query := `
		UPDATE sync_runs
		SET status = ?, num_files = ?, total_size = ?, synced = ?, copied = ?, updated = ?, up_to_date = ?,
			symlinks_created = ?, symlinks_updated = ?, dirs_created = ?, bytes_copied = ?,
			error_message = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		string(run.Status()),
		stats.NumFiles,
		stats.TotalSize,
		stats.Synced,
		stats.Copied,
		stats.Updated,
		stats.UpToDate,
		stats.SymlinksCreated,
		stats.SymlinksUpdated,
		stats.DirsCreated,
		stats.BytesCopied,
		nullString(run.ErrorMessage()),
		run.CompletedAt(),
		now,
		run.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	return expectRow(result, run.ID())
}

// Delete soft-deletes a run by ID
func (r *RunRepository) Delete(id string) error {
	query := `UPDATE sync_runs SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	return expectRow(result, id)
}

// List retrieves runs matching the given criteria in sequence order.
//
// Supported criteria: "status" (string or [models.RunStatus]), "source" and "destination".
func (r *RunRepository) List(criteria map[string]any) ([]*models.SyncRun, error) {
	query := `SELECT ` + runColumns + ` FROM sync_runs WHERE deleted_at IS NULL`
	args := []any{}

	switch status := criteria["status"].(type) {
	case models.RunStatus:
		query += " AND status = ?"
		args = append(args, string(status))
	case string:
		if status != "" {
			query += " AND status = ?"
			args = append(args, status)
		}
	}

	if source, ok := criteria["source"].(string); ok && source != "" {
		query += " AND source = ?"
		args = append(args, source)
	}

	if destination, ok := criteria["destination"].(string); ok && destination != "" {
		query += " AND destination = ?"
		args = append(args, destination)
	}

	query += " ORDER BY sequence ASC"

	return r.query(query, args...)
}

// ListRecent returns up to limit runs, newest first
func (r *RunRepository) ListRecent(limit int) ([]*models.SyncRun, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", shared.ErrInvalidInput, limit)
	}

	query := `SELECT ` + runColumns + ` FROM sync_runs WHERE deleted_at IS NULL ORDER BY sequence DESC LIMIT ?`
	return r.query(query, limit)
}

func (r *RunRepository) query(query string, args ...any) ([]*models.SyncRun, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.SyncRun
	for rows.Next() {
		run, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

// scan reads one row into a [models.SyncRun]
func (r *RunRepository) scan(row scanner) (*models.SyncRun, error) {
	var (
		id                  string
		sequence            int
		source              string
		destination         string
		status              string
		preservePermissions bool
		workers             int
		stats               models.Stats
		errorMessage        sql.NullString
		startedAt           time.Time
		completedAt         sql.NullTime
		createdAt           time.Time
		updatedAt           time.Time
		deletedAt           sql.NullTime
	)

	err := row.Scan(
		&id, &sequence, &source, &destination, &status, &preservePermissions, &workers,
		&stats.NumFiles, &stats.TotalSize, &stats.Synced, &stats.Copied, &stats.Updated, &stats.UpToDate,
		&stats.SymlinksCreated, &stats.SymlinksUpdated, &stats.DirsCreated, &stats.BytesCopied,
		&errorMessage, &startedAt, &completedAt, &createdAt, &updatedAt, &deletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	return models.RestoreSyncRun(
		id, sequence, source, destination, models.RunStatus(status),
		preservePermissions, workers, stats, errorMessage.String,
		startedAt, timePtr(completedAt), createdAt, updatedAt, timePtr(deletedAt),
	), nil
}

func expectRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrRunNotFound, id)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}
