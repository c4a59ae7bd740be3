package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/dsync/internal/formatter"
	"github.com/desertthunder/dsync/internal/models"
	"github.com/desertthunder/dsync/internal/shared"
	tu "github.com/desertthunder/dsync/internal/testing"
)

func newTestRunner() (*Runner, *bytes.Buffer) {
	output := &bytes.Buffer{}
	return NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard), Output: output}), output
}

func run(r *Runner, args ...string) error {
	return newApp(r).Run(context.Background(), append([]string{"dsync"}, args...))
}

// writeConfig writes a config file whose database lives in dir.
func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "config.toml")
	content := fmt.Sprintf("[sync]\nworkers = 2\n\n[database]\npath = %q\n", filepath.Join(dir, "dsync.db"))
	tu.MustWriteFile(t, path, content, 0644)
	return path
}

func sourceTree(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	tu.MustWriteFile(t, filepath.Join(src, "a.txt"), "alpha", 0644)
	tu.MustWriteFile(t, filepath.Join(src, "nested", "b.txt"), "beta", 0644)
	return src, filepath.Join(dir, "dst")
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}

			runner := NewRunner(RunnerOpts{Config: config, Logger: logger, Output: output})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
		})

		t.Run("with nil options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner, _ := newTestRunner()
		var names []string
		for _, c := range runner.register() {
			names = append(names, c.Name)
		}
		if strings.Join(names, ",") != "sync,history,setup" {
			t.Errorf("unexpected commands %v", names)
		}
	})
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, exitOK},
		{"missing argument", fmt.Errorf("%w: SOURCE", shared.ErrMissingArgument), exitUsage},
		{"invalid flag", fmt.Errorf("%w: --workers", shared.ErrInvalidFlag), exitUsage},
		{"invalid config", fmt.Errorf("%w: workers", shared.ErrInvalidConfig), exitUsage},
		{"missing config", shared.ErrMissingConfig, exitUsage},
		{"io failure", fmt.Errorf("sync failed: %w", shared.NewIOError(os.ErrPermission, "could not create /x")), exitFailure},
		{"source missing", fmt.Errorf("sync failed: %w", shared.ErrSourceNotFound), exitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestSyncCommand(t *testing.T) {
	t.Run("mirrors and prints each entry", func(t *testing.T) {
		src, dst := sourceTree(t)
		runner, output := newTestRunner()

		if err := run(runner, "sync", "--no-history", "--workers", "1", src, dst); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if got := tu.MustReadFile(t, filepath.Join(dst, "nested", "b.txt")); got != "beta" {
			t.Errorf("unexpected content %q", got)
		}

		out := output.String()
		for _, want := range []string{"file_copied", "a.txt", "directory_created", "nested", "3 synced (2 copied"} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("hides up-to-date entries unless verbose", func(t *testing.T) {
		src, dst := sourceTree(t)
		runner, output := newTestRunner()

		if err := run(runner, "sync", "--no-history", src, dst); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output.Reset()

		if err := run(runner, "sync", "--no-history", src, dst); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(output.String(), "up_to_date") {
			t.Errorf("quiet output listed up-to-date entries:\n%s", output.String())
		}
		output.Reset()

		if err := run(runner, "sync", "--no-history", "--verbose", src, dst); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output.String(), "up_to_date") {
			t.Errorf("verbose output should list up-to-date entries:\n%s", output.String())
		}
		if runner.logger.GetLevel() != log.DebugLevel {
			t.Errorf("expected debug level, got %v", runner.logger.GetLevel())
		}
	})

	t.Run("records runs in history", func(t *testing.T) {
		src, dst := sourceTree(t)
		config := writeConfig(t, t.TempDir())
		runner, output := newTestRunner()

		for range 2 {
			if err := run(runner, "sync", "--config", config, src, dst); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if !strings.Contains(output.String(), "Run #2:") {
			t.Errorf("expected the run sequence in output:\n%s", output.String())
		}
		output.Reset()

		if err := run(runner, "history", "--config", config, "--format", "json"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var views []formatter.RunView
		if err := json.Unmarshal(output.Bytes(), &views); err != nil {
			t.Fatalf("invalid JSON %q: %v", output.String(), err)
		}
		if len(views) != 2 {
			t.Fatalf("expected 2 runs, got %d", len(views))
		}
		if views[0].Sequence != 2 || views[0].Status != "completed" {
			t.Errorf("unexpected newest run %+v", views[0])
		}
		if views[1].Stats.Copied != 2 || views[0].Stats.UpToDate != 3 {
			t.Errorf("unexpected stats %+v / %+v", views[1].Stats, views[0].Stats)
		}
		if views[0].Workers != 2 {
			t.Errorf("expected workers from config, got %d", views[0].Workers)
		}
	})

	t.Run("records failed runs", func(t *testing.T) {
		dir := t.TempDir()
		config := writeConfig(t, dir)
		runner, output := newTestRunner()

		err := run(runner, "sync", "--config", config, filepath.Join(dir, "missing"), filepath.Join(dir, "dst"))
		if !errors.Is(err, shared.ErrSourceNotFound) {
			t.Fatalf("expected ErrSourceNotFound, got %v", err)
		}
		if exitCode(err) != exitFailure {
			t.Errorf("expected exit code %d, got %d", exitFailure, exitCode(err))
		}

		if err := run(runner, "history", "--config", config); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output.String(), "[failed]") {
			t.Errorf("expected a failed run:\n%s", output.String())
		}
	})

	t.Run("syncs without a usable database", func(t *testing.T) {
		src, dst := sourceTree(t)
		dir := t.TempDir()
		config := filepath.Join(dir, "config.toml")
		tu.MustWriteFile(t, config, fmt.Sprintf("[database]\npath = %q\n", filepath.Join(dir, "missing", "dir", "dsync.db")), 0644)
		runner, _ := newTestRunner()

		if err := run(runner, "sync", "--config", config, src, dst); err != nil {
			t.Fatalf("history failures should not fail the sync: %v", err)
		}
		tu.AssertFileExists(t, filepath.Join(dst, "a.txt"))
	})

	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{"missing arguments", []string{"sync", "--no-history"}, shared.ErrMissingArgument},
		{"too many workers", []string{"sync", "--no-history", "--workers", "64", "/a", "/b"}, shared.ErrInvalidFlag},
		{"negative rate limit", []string{"sync", "--no-history", "--rate-limit", "-1", "/a", "/b"}, shared.ErrInvalidFlag},
		{"destination inside source", []string{"sync", "--no-history", "/a", "/a/b"}, shared.ErrInvalidArgument},
		{"explicit missing config", []string{"sync", "--config", "/nonexistent/config.toml", "/a", "/b"}, shared.ErrMissingConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner, _ := newTestRunner()
			err := run(runner, tt.args...)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if exitCode(err) != exitUsage {
				t.Errorf("expected exit code %d, got %d", exitUsage, exitCode(err))
			}
		})
	}
}

func TestHistoryCommand(t *testing.T) {
	t.Run("empty history", func(t *testing.T) {
		config := writeConfig(t, t.TempDir())
		runner, output := newTestRunner()

		if err := run(runner, "history", "--config", config); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output.String(), "No runs recorded") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("exports to a file", func(t *testing.T) {
		dir := t.TempDir()
		config := writeConfig(t, dir)
		runner, _ := newTestRunner()
		path := filepath.Join(dir, "history.md")

		if err := run(runner, "history", "--config", config, "--format", "md", "--output", path); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := tu.MustReadFile(t, path); !strings.Contains(got, "# Sync history") {
			t.Errorf("unexpected export %q", got)
		}
	})

	t.Run("rejects bad flags", func(t *testing.T) {
		config := writeConfig(t, t.TempDir())
		runner, _ := newTestRunner()

		for _, args := range [][]string{
			{"history", "--config", config, "--format", "yaml"},
			{"history", "--config", config, "--limit", "0"},
		} {
			if err := run(runner, args...); !errors.Is(err, shared.ErrInvalidFlag) {
				t.Errorf("%v: expected ErrInvalidFlag, got %v", args, err)
			}
		}
	})
}

func TestSetupCommand(t *testing.T) {
	dir := t.TempDir()
	config := writeConfig(t, dir)
	runner, output := newTestRunner()

	if err := run(runner, "setup", "--config", config); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tu.AssertFileExists(t, filepath.Join(dir, "dsync.db"))
	if !strings.Contains(output.String(), "History database") {
		t.Errorf("unexpected output %q", output.String())
	}
}

func TestPrintProgress(t *testing.T) {
	t.Run("prints finished entries", func(t *testing.T) {
		r, output := newTestRunner()
		show := r.printProgress(false)

		show(models.StartSyncMsg("a.txt"))
		show(models.ProgressMessage{Kind: models.DoneSyncing, Outcome: models.FileCopied, Description: "a.txt"})
		show(models.ProgressMessage{Kind: models.DoneSyncing, Outcome: models.UpToDate, Description: "b.txt"})

		if got := output.String(); got != "file_copied       a.txt\n" {
			t.Errorf("unexpected output %q", got)
		}
	})

	t.Run("logs a failed write once", func(t *testing.T) {
		logs := &bytes.Buffer{}
		r := NewRunner(RunnerOpts{Logger: shared.NewLogger(logs), Output: &tu.FWriter{}})
		show := r.printProgress(true)

		for _, desc := range []string{"a.txt", "b.txt", "c.txt"} {
			show(models.ProgressMessage{Kind: models.DoneSyncing, Outcome: models.FileCopied, Description: desc})
		}

		if n := strings.Count(logs.String(), "could not print progress"); n != 1 {
			t.Errorf("expected one warning, got %d in %q", n, logs.String())
		}
	})
}
