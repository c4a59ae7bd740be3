package fsops

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/dsync/internal/models"
	"github.com/desertthunder/dsync/internal/shared"
	tu "github.com/desertthunder/dsync/internal/testing"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
)

func entries(t *testing.T, name string) (string, models.Entry, models.Entry) {
	t.Helper()
	dir := t.TempDir()
	src := models.NewEntry(name, filepath.Join(dir, "src", name))
	dst := models.NewEntry(name, filepath.Join(dir, "dst", name))
	for _, e := range []models.Entry{src, dst} {
		if err := os.MkdirAll(filepath.Dir(e.Path()), 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	return dir, src, dst
}

func drain(out chan models.ProgressMessage) []models.ProgressMessage {
	close(out)
	var msgs []models.ProgressMessage
	for m := range out {
		msgs = append(msgs, m)
	}
	return msgs
}

func TestCopier(t *testing.T) {
	ctx := context.Background()

	t.Run("SyncEntries", func(t *testing.T) {
		t.Run("copies a missing file", func(t *testing.T) {
			_, src, dst := entries(t, "a.txt")
			tu.MustWriteFile(t, src.Path(), "hello world", 0644)

			c := NewCopier(CopierOpts{})
			out := make(chan models.ProgressMessage, 16)
			outcome, err := c.SyncEntries(ctx, out, src, dst)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if outcome != models.FileCopied {
				t.Errorf("expected file_copied, got %s", outcome)
			}
			if got := tu.MustReadFile(t, dst.Path()); got != "hello world" {
				t.Errorf("unexpected content %q", got)
			}

			msgs := drain(out)
			if len(msgs) < 2 {
				t.Fatalf("expected start and byte progress messages, got %v", msgs)
			}
			if msgs[0].Kind != models.StartSync || msgs[0].Description != "a.txt" {
				t.Errorf("expected start_sync first, got %+v", msgs[0])
			}
			last := msgs[len(msgs)-1]
			if last.Kind != models.Syncing || last.Done != 11 || last.Size != 11 || last.Description != "a.txt" {
				t.Errorf("unexpected final progress %+v", last)
			}
		})

		t.Run("reports progress per chunk", func(t *testing.T) {
			_, src, dst := entries(t, "big.bin")
			tu.MustWriteFile(t, src.Path(), strings.Repeat("x", 10), 0644)

			c := NewCopier(CopierOpts{BufferSize: 4})
			out := make(chan models.ProgressMessage, 16)
			if _, err := c.SyncEntries(ctx, out, src, dst); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var done []int64
			for _, m := range drain(out) {
				if m.Kind == models.Syncing {
					done = append(done, m.Done)
				}
			}
			want := []int64{4, 8, 10}
			if len(done) != len(want) {
				t.Fatalf("expected %v, got %v", want, done)
			}
			for i := range want {
				if done[i] != want[i] {
					t.Errorf("chunk %d: expected %d, got %d", i, want[i], done[i])
				}
			}
		})

		t.Run("second sync is up to date", func(t *testing.T) {
			_, src, dst := entries(t, "a.txt")
			tu.MustWriteFile(t, src.Path(), "data", 0644)

			c := NewCopier(CopierOpts{})
			if _, err := c.SyncEntries(ctx, nil, src, dst); err != nil {
				t.Fatalf("first sync: %v", err)
			}
			outcome, err := c.SyncEntries(ctx, nil, src, dst)
			if err != nil {
				t.Fatalf("second sync: %v", err)
			}
			if outcome != models.UpToDate {
				t.Errorf("expected up_to_date, got %s", outcome)
			}
		})

		t.Run("updates when the source is newer", func(t *testing.T) {
			_, src, dst := entries(t, "a.txt")
			tu.MustWriteFile(t, src.Path(), "new", 0644)
			tu.MustWriteFile(t, dst.Path(), "old", 0644)

			past := time.Now().Add(-time.Hour)
			if err := os.Chtimes(dst.Path(), past, past); err != nil {
				t.Fatalf("chtimes: %v", err)
			}

			outcome, err := NewCopier(CopierOpts{}).SyncEntries(ctx, nil, src, dst)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if outcome != models.FileUpdated {
				t.Errorf("expected file_updated, got %s", outcome)
			}
			if got := tu.MustReadFile(t, dst.Path()); got != "new" {
				t.Errorf("unexpected content %q", got)
			}

			srcInfo, _ := os.Stat(src.Path())
			dstInfo, _ := os.Stat(dst.Path())
			if !dstInfo.ModTime().Equal(srcInfo.ModTime()) {
				t.Errorf("expected mtime %v, got %v", srcInfo.ModTime(), dstInfo.ModTime())
			}
		})

		t.Run("updates when sizes differ", func(t *testing.T) {
			_, src, dst := entries(t, "a.txt")
			tu.MustWriteFile(t, dst.Path(), "a much longer destination", 0644)
			tu.MustWriteFile(t, src.Path(), "short", 0644)

			future := time.Now().Add(time.Hour)
			if err := os.Chtimes(dst.Path(), future, future); err != nil {
				t.Fatalf("chtimes: %v", err)
			}

			outcome, err := NewCopier(CopierOpts{}).SyncEntries(ctx, nil, src, dst)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if outcome != models.FileUpdated {
				t.Errorf("expected file_updated, got %s", outcome)
			}
			if got := tu.MustReadFile(t, dst.Path()); got != "short" {
				t.Errorf("unexpected content %q", got)
			}
		})

		t.Run("fails when a directory is in the way", func(t *testing.T) {
			_, src, dst := entries(t, "a.txt")
			tu.MustWriteFile(t, src.Path(), "data", 0644)
			if err := os.Mkdir(dst.Path(), 0755); err != nil {
				t.Fatalf("mkdir: %v", err)
			}

			_, err := NewCopier(CopierOpts{}).SyncEntries(ctx, nil, src, dst)
			if !errors.Is(err, shared.ErrIO) {
				t.Errorf("expected io error, got %v", err)
			}
		})

		t.Run("fails for a missing source", func(t *testing.T) {
			_, src, dst := entries(t, "ghost.txt")

			_, err := NewCopier(CopierOpts{}).SyncEntries(ctx, nil, src, dst)
			if !errors.Is(err, shared.ErrIO) || !errors.Is(err, os.ErrNotExist) {
				t.Errorf("expected io error wrapping not-exist, got %v", err)
			}
		})

		t.Run("creates and updates symlinks", func(t *testing.T) {
			_, src, dst := entries(t, "link")
			if err := os.Symlink("target-one", src.Path()); err != nil {
				t.Fatalf("symlink: %v", err)
			}

			c := NewCopier(CopierOpts{})
			outcome, err := c.SyncEntries(ctx, nil, src, dst)
			if err != nil || outcome != models.SymlinkCreated {
				t.Fatalf("expected symlink_created, got %s (%v)", outcome, err)
			}

			outcome, err = c.SyncEntries(ctx, nil, src, dst)
			if err != nil || outcome != models.UpToDate {
				t.Fatalf("expected up_to_date, got %s (%v)", outcome, err)
			}

			if err := os.Remove(src.Path()); err != nil {
				t.Fatalf("remove: %v", err)
			}
			if err := os.Symlink("target-two", src.Path()); err != nil {
				t.Fatalf("symlink: %v", err)
			}

			outcome, err = c.SyncEntries(ctx, nil, src, dst)
			if err != nil || outcome != models.SymlinkUpdated {
				t.Fatalf("expected symlink_updated, got %s (%v)", outcome, err)
			}
			if target, _ := os.Readlink(dst.Path()); target != "target-two" {
				t.Errorf("expected link to target-two, got %q", target)
			}
		})

		t.Run("creates directories", func(t *testing.T) {
			_, src, dst := entries(t, "sub")
			if err := os.Mkdir(src.Path(), 0755); err != nil {
				t.Fatalf("mkdir: %v", err)
			}

			c := NewCopier(CopierOpts{})
			outcome, err := c.SyncEntries(ctx, nil, src, dst)
			if err != nil || outcome != models.DirectoryCreated {
				t.Fatalf("expected directory_created, got %s (%v)", outcome, err)
			}
			tu.AssertDirExists(t, dst.Path())

			outcome, err = c.SyncEntries(ctx, nil, src, dst)
			if err != nil || outcome != models.UpToDate {
				t.Fatalf("expected up_to_date, got %s (%v)", outcome, err)
			}
		})

		t.Run("stops when the context is cancelled", func(t *testing.T) {
			_, src, dst := entries(t, "a.txt")
			tu.MustWriteFile(t, src.Path(), "data", 0644)

			cctx, cancel := context.WithCancel(ctx)
			cancel()

			_, err := NewCopier(CopierOpts{}).SyncEntries(cctx, nil, src, dst)
			if !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", err)
			}
		})

		t.Run("rate limit still copies everything", func(t *testing.T) {
			_, src, dst := entries(t, "a.txt")
			tu.MustWriteFile(t, src.Path(), strings.Repeat("y", 64), 0644)

			c := NewCopier(CopierOpts{RateLimit: 1 << 20, BufferSize: 16})
			if _, err := c.SyncEntries(ctx, nil, src, dst); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := tu.MustReadFile(t, dst.Path()); len(got) != 64 {
				t.Errorf("expected 64 bytes, got %d", len(got))
			}
		})

		t.Run("works on an in-memory filesystem", func(t *testing.T) {
			mem := memfs.New()
			if err := mem.MkdirAll("/src", 0755); err != nil {
				t.Fatalf("mkdir: %v", err)
			}
			if err := mem.MkdirAll("/dst", 0755); err != nil {
				t.Fatalf("mkdir: %v", err)
			}
			if err := util.WriteFile(mem, "/src/a.txt", []byte("in memory"), 0644); err != nil {
				t.Fatalf("write: %v", err)
			}

			c := NewCopier(CopierOpts{FS: mem})
			src := models.NewEntry("a.txt", "/src/a.txt")
			dst := models.NewEntry("a.txt", "/dst/a.txt")
			outcome, err := c.SyncEntries(ctx, nil, src, dst)
			if err != nil || outcome != models.FileCopied {
				t.Fatalf("expected file_copied, got %s (%v)", outcome, err)
			}
			if got := tu.MustReadBillyFile(t, mem, "/dst/a.txt"); got != "in memory" {
				t.Errorf("unexpected content %q", got)
			}
		})
	})

	t.Run("CopyPermissions", func(t *testing.T) {
		t.Run("copies permission bits", func(t *testing.T) {
			_, src, dst := entries(t, "run.sh")
			tu.MustWriteFile(t, src.Path(), "#!/bin/sh", 0755)
			if err := os.Chmod(src.Path(), 0750); err != nil {
				t.Fatalf("chmod: %v", err)
			}
			tu.MustWriteFile(t, dst.Path(), "#!/bin/sh", 0600)

			if err := NewCopier(CopierOpts{}).CopyPermissions(src, dst); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			info, _ := os.Stat(dst.Path())
			if info.Mode().Perm() != 0750 {
				t.Errorf("expected 0750, got %o", info.Mode().Perm())
			}
		})

		t.Run("fails for a missing destination", func(t *testing.T) {
			_, src, dst := entries(t, "a.txt")
			tu.MustWriteFile(t, src.Path(), "x", 0644)

			err := NewCopier(CopierOpts{}).CopyPermissions(src, dst)
			if !errors.Is(err, shared.ErrIO) {
				t.Errorf("expected io error, got %v", err)
			}
		})

		t.Run("defers directory modes", func(t *testing.T) {
			_, src, dst := entries(t, "ro")
			for _, e := range []models.Entry{src, dst} {
				if err := os.Mkdir(e.Path(), 0755); err != nil {
					t.Fatalf("mkdir: %v", err)
				}
			}
			if err := os.Chmod(src.Path(), 0555); err != nil {
				t.Fatalf("chmod: %v", err)
			}
			t.Cleanup(func() {
				os.Chmod(src.Path(), 0755)
				os.Chmod(dst.Path(), 0755)
			})

			c := NewCopier(CopierOpts{})
			if err := c.CopyPermissions(src, dst); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if info, _ := os.Stat(dst.Path()); info.Mode().Perm() != 0755 {
				t.Errorf("expected 0755 before applying, got %o", info.Mode().Perm())
			}

			if err := c.ApplyDirPermissions(); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if info, _ := os.Stat(dst.Path()); info.Mode().Perm() != 0555 {
				t.Errorf("expected 0555 after applying, got %o", info.Mode().Perm())
			}
			if len(c.dirMode) != 0 {
				t.Errorf("expected pending modes to be cleared, got %v", c.dirMode)
			}
		})

		t.Run("skips symlinks", func(t *testing.T) {
			_, src, dst := entries(t, "link")
			if err := os.Symlink("nowhere", src.Path()); err != nil {
				t.Fatalf("symlink: %v", err)
			}
			if err := NewCopier(CopierOpts{}).CopyPermissions(src, dst); err != nil {
				t.Errorf("expected nil for symlink, got %v", err)
			}
		})
	})
}

func TestSend(t *testing.T) {
	t.Run("nil channel discards", func(t *testing.T) {
		if err := Send(context.Background(), nil, models.StartSyncMsg("a")); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("blocked send returns on cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		out := make(chan models.ProgressMessage)
		if err := Send(ctx, out, models.StartSyncMsg("a")); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}
