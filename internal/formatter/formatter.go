// package formatter renders sync run history in various formats (JSON, CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/dsync/internal/models"
	"github.com/desertthunder/dsync/internal/shared"
)

// Format names an output format for run history.
type Format string

const (
	JSON     Format = "json"
	CSV      Format = "csv"
	Markdown Format = "markdown"
	Text     Format = "txt"
)

// Formats lists the supported formats in help order.
var Formats = []Format{Text, JSON, CSV, Markdown}

// ParseFormat accepts a format name case-insensitively, with "md" and "text" as aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return JSON, nil
	case "csv":
		return CSV, nil
	case "markdown", "md":
		return Markdown, nil
	case "txt", "text", "":
		return Text, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, s)
	}
}

// RunView is the serialized form of a [models.SyncRun].
type RunView struct {
	ID                  string       `json:"id"`
	Sequence            int          `json:"sequence"`
	Source              string       `json:"source"`
	Destination         string       `json:"destination"`
	Status              string       `json:"status"`
	PreservePermissions bool         `json:"preserve_permissions"`
	Workers             int          `json:"workers"`
	Stats               models.Stats `json:"stats"`
	Error               string       `json:"error,omitempty"`
	StartedAt           time.Time    `json:"started_at"`
	CompletedAt         *time.Time   `json:"completed_at,omitempty"`
	DurationMS          int64        `json:"duration_ms"`
}

// NewRunView flattens run for serialization.
func NewRunView(run *models.SyncRun) RunView {
	return RunView{
		ID:                  run.ID(),
		Sequence:            run.Sequence(),
		Source:              run.Source(),
		Destination:         run.Destination(),
		Status:              string(run.Status()),
		PreservePermissions: run.PreservePermissions(),
		Workers:             run.Workers(),
		Stats:               run.Stats(),
		Error:               run.ErrorMessage(),
		StartedAt:           run.StartedAt(),
		CompletedAt:         run.CompletedAt(),
		DurationMS:          run.Duration().Milliseconds(),
	}
}

// Render converts runs to the given format.
func Render(runs []*models.SyncRun, format Format) ([]byte, error) {
	switch format {
	case JSON:
		return RunsToJSON(runs)
	case CSV:
		return RunsToCSV(runs)
	case Markdown:
		return RunsToMarkdown(runs)
	case Text:
		return RunsToText(runs)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, format)
	}
}

// RunsToJSON renders runs as an indented JSON array.
func RunsToJSON(runs []*models.SyncRun) ([]byte, error) {
	views := make([]RunView, 0, len(runs))
	for _, run := range runs {
		views = append(views, NewRunView(run))
	}
	return shared.MarshalJSON(views, true)
}

// RunsToCSV renders runs with one row per run and a header row.
func RunsToCSV(runs []*models.SyncRun) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{
		"Sequence", "ID", "Status", "Source", "Destination", "Started", "Duration",
		"Files", "Synced", "Copied", "Updated", "UpToDate", "Symlinks", "DirsCreated", "BytesCopied", "Error",
	}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, run := range runs {
		stats := run.Stats()
		record := []string{
			strconv.Itoa(run.Sequence()),
			run.ID(),
			string(run.Status()),
			run.Source(),
			run.Destination(),
			run.StartedAt().Format(time.RFC3339),
			run.Duration().Round(time.Millisecond).String(),
			strconv.Itoa(stats.NumFiles),
			strconv.Itoa(stats.Synced),
			strconv.Itoa(stats.Copied),
			strconv.Itoa(stats.Updated),
			strconv.Itoa(stats.UpToDate),
			strconv.Itoa(stats.Symlinks()),
			strconv.Itoa(stats.DirsCreated),
			strconv.FormatInt(stats.BytesCopied, 10),
			run.ErrorMessage(),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// RunsToMarkdown renders runs as a Markdown table followed by any failures.
func RunsToMarkdown(runs []*models.SyncRun) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Sync history\n\n")
	if len(runs) == 0 {
		buf.WriteString("_No runs recorded._\n")
		return buf.Bytes(), nil
	}

	buf.WriteString("| # | Status | Source | Destination | Started | Synced | Copied | Updated | Bytes |\n")
	buf.WriteString("|---|--------|--------|-------------|---------|--------|--------|---------|-------|\n")

	var failed []*models.SyncRun
	for _, run := range runs {
		stats := run.Stats()
		buf.WriteString(fmt.Sprintf("| %d | %s | `%s` | `%s` | %s | %d | %d | %d | %s |\n",
			run.Sequence(), run.Status(), run.Source(), run.Destination(),
			run.StartedAt().Format(time.DateTime), stats.Synced, stats.Copied, stats.Updated,
			shared.HumanBytes(stats.BytesCopied)))
		if run.Status() == models.RunFailed {
			failed = append(failed, run)
		}
	}

	if len(failed) > 0 {
		buf.WriteString("\n## Failures\n\n")
		for _, run := range failed {
			buf.WriteString(fmt.Sprintf("- **#%d**: %s\n", run.Sequence(), run.ErrorMessage()))
		}
	}

	return buf.Bytes(), nil
}

// RunsToText renders runs as plain text, one block per run.
func RunsToText(runs []*models.SyncRun) ([]byte, error) {
	var buf bytes.Buffer

	if len(runs) == 0 {
		buf.WriteString("No runs recorded.\n")
		return buf.Bytes(), nil
	}

	for i, run := range runs {
		if i > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(fmt.Sprintf("Run #%d [%s] %s -> %s\n", run.Sequence(), run.Status(), run.Source(), run.Destination()))
		buf.WriteString(fmt.Sprintf("  Started: %s (%s)\n", run.StartedAt().Format(time.DateTime), run.Duration().Round(time.Millisecond)))
		buf.WriteString("  " + Summary(run.Stats()) + "\n")
		if msg := run.ErrorMessage(); msg != "" {
			buf.WriteString(fmt.Sprintf("  Error: %s\n", msg))
		}
	}

	return buf.Bytes(), nil
}

// Summary is a one-line description of stats.
func Summary(stats models.Stats) string {
	return fmt.Sprintf("%d synced (%d copied, %d updated, %d up to date, %d symlinks, %d dirs), %s transferred",
		stats.Synced, stats.Copied, stats.Updated, stats.UpToDate, stats.Symlinks(), stats.DirsCreated,
		shared.HumanBytes(stats.BytesCopied))
}

// WriteExport renders runs to the file at path.
func WriteExport(runs []*models.SyncRun, format Format, path string) error {
	data, err := Render(runs, format)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s export: %w", format, err)
	}
	return nil
}
