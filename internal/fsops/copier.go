package fsops

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/desertthunder/dsync/internal/models"
	"github.com/desertthunder/dsync/internal/shared"
	"github.com/go-git/go-billy/v5"
	"go.uber.org/multierr"
	"golang.org/x/time/rate"
)

// DefaultBufferSize is the copy chunk size and the interval between [models.Syncing] messages.
const DefaultBufferSize = 100 * 1024

const (
	newFileMode = 0666
	newDirMode  = 0755
	permBits    = fs.ModePerm | fs.ModeSetuid | fs.ModeSetgid | fs.ModeSticky
)

type chmodder interface {
	Chmod(name string, mode os.FileMode) error
}

type chtimeser interface {
	Chtimes(name string, atime, mtime time.Time) error
}

// CopierOpts configures a [Copier].
type CopierOpts struct {
	FS         billy.Filesystem // Defaults to [NewOSFS]
	RateLimit  int64            // Bytes per second; 0 disables limiting
	BufferSize int              // Copy chunk size (default: [DefaultBufferSize])
}

// Copier is the transfer delegate: it reconciles one destination entry with its source.
type Copier struct {
	fs      billy.Filesystem
	limiter *rate.Limiter
	bufSize int

	mu      sync.Mutex
	dirMode map[string]fs.FileMode // pending directory modes, applied by ApplyDirPermissions
}

// NewCopier creates a [Copier] from opts.
func NewCopier(opts CopierOpts) *Copier {
	if opts.FS == nil {
		opts.FS = NewOSFS()
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}

	c := &Copier{fs: opts.FS, bufSize: opts.BufferSize, dirMode: make(map[string]fs.FileMode)}
	if opts.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), opts.BufferSize)
	}
	return c
}

// FS returns the filesystem the copier operates on.
func (c *Copier) FS() billy.Filesystem {
	return c.fs
}

// SyncEntries brings dst in line with src and reports what it did.
//
// A [models.StartSync] message and, for file copies, byte progress are sent on out, which may be nil.
func (c *Copier) SyncEntries(ctx context.Context, out chan<- models.ProgressMessage, src, dst models.Entry) (models.SyncOutcome, error) {
	if err := Send(ctx, out, models.StartSyncMsg(src.Description())); err != nil {
		return 0, err
	}

	info, err := c.fs.Lstat(src.Path())
	if err != nil {
		return 0, shared.NewIOError(err, "could not stat %s", src.Path())
	}

	switch mode := info.Mode(); {
	case mode&fs.ModeSymlink != 0:
		return c.syncLink(src, dst)
	case mode.IsDir():
		return c.syncDir(dst)
	case mode.IsRegular():
		return c.syncFile(ctx, out, src, dst, info)
	default:
		return 0, shared.NewIOError(nil, "%s is not a regular file, directory or symlink", src.Path())
	}
}

// CopyPermissions sets the permission bits of dst to those of src.
//
// Symlinks are left alone since chmod would follow them. Directory modes are only recorded: a read-only
// directory would reject the files still to be copied into it, so they are set by [Copier.ApplyDirPermissions].
func (c *Copier) CopyPermissions(src, dst models.Entry) error {
	info, err := c.fs.Lstat(src.Path())
	if err != nil {
		return shared.NewIOError(err, "could not stat %s", src.Path())
	}
	if info.Mode()&fs.ModeSymlink != 0 {
		return nil
	}
	if _, ok := c.fs.(chmodder); !ok {
		return shared.NewIOError(errors.ErrUnsupported, "could not copy permissions to %s", dst.Path())
	}

	if info.IsDir() {
		c.mu.Lock()
		c.dirMode[dst.Path()] = info.Mode() & permBits
		c.mu.Unlock()
		return nil
	}
	return c.chmod(dst.Path(), info.Mode()&permBits)
}

// ApplyDirPermissions sets the directory modes recorded by [Copier.CopyPermissions], deepest first,
// and forgets them. It must run after every entry below those directories has been synced.
func (c *Copier) ApplyDirPermissions() error {
	c.mu.Lock()
	pending := c.dirMode
	c.dirMode = make(map[string]fs.FileMode)
	c.mu.Unlock()

	paths := make([]string, 0, len(pending))
	for path := range pending {
		paths = append(paths, path)
	}
	// A child path sorts after its parent, so reverse order visits children first.
	slices.Sort(paths)
	slices.Reverse(paths)

	var errs error
	for _, path := range paths {
		errs = multierr.Append(errs, c.chmod(path, pending[path]))
	}
	return errs
}

func (c *Copier) chmod(path string, mode fs.FileMode) error {
	ch, ok := c.fs.(chmodder)
	if !ok {
		return shared.NewIOError(errors.ErrUnsupported, "could not copy permissions to %s", path)
	}
	if err := ch.Chmod(path, mode); err != nil {
		return shared.NewIOError(err, "could not copy permissions to %s", path)
	}
	return nil
}

func (c *Copier) syncFile(ctx context.Context, out chan<- models.ProgressMessage, src, dst models.Entry, srcInfo fs.FileInfo) (models.SyncOutcome, error) {
	dstInfo, err := c.fs.Lstat(dst.Path())
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return models.FileCopied, c.copyFile(ctx, out, src, dst, srcInfo)
	case err != nil:
		return 0, shared.NewIOError(err, "could not stat %s", dst.Path())
	case dstInfo.IsDir():
		return 0, shared.NewIOError(nil, "could not copy %s: %s is a directory", src.Path(), dst.Path())
	case dstInfo.Mode()&fs.ModeSymlink != 0:
		if err := c.fs.Remove(dst.Path()); err != nil {
			return 0, shared.NewIOError(err, "could not remove %s", dst.Path())
		}
	case !moreRecent(srcInfo, dstInfo):
		return models.UpToDate, nil
	}

	return models.FileUpdated, c.copyFile(ctx, out, src, dst, srcInfo)
}

// moreRecent reports whether src differs in size from dst or was modified after it.
func moreRecent(src, dst fs.FileInfo) bool {
	return src.Size() != dst.Size() || src.ModTime().After(dst.ModTime())
}

func (c *Copier) copyFile(ctx context.Context, out chan<- models.ProgressMessage, src, dst models.Entry, srcInfo fs.FileInfo) error {
	in, err := c.fs.Open(src.Path())
	if err != nil {
		return shared.NewIOError(err, "could not open %s for reading", src.Path())
	}
	defer in.Close()

	f, err := c.fs.OpenFile(dst.Path(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, newFileMode)
	if err != nil {
		return shared.NewIOError(err, "could not open %s for writing", dst.Path())
	}

	if err := c.stream(ctx, out, in, f, src, srcInfo.Size()); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return shared.NewIOError(err, "could not close %s", dst.Path())
	}

	if ch, ok := c.fs.(chtimeser); ok {
		mtime := srcInfo.ModTime()
		if err := ch.Chtimes(dst.Path(), mtime, mtime); err != nil {
			return shared.NewIOError(err, "could not set modification time of %s", dst.Path())
		}
	}
	return nil
}

func (c *Copier) stream(ctx context.Context, out chan<- models.ProgressMessage, r io.Reader, w io.Writer, src models.Entry, size int64) error {
	buf := make([]byte, c.bufSize)
	var done int64

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, rerr := r.Read(buf)
		if n > 0 {
			if c.limiter != nil {
				if err := c.limiter.WaitN(ctx, n); err != nil {
					return err
				}
			}
			if _, err := w.Write(buf[:n]); err != nil {
				return shared.NewIOError(err, "could not write %s", src.Description())
			}
			done += int64(n)
			if err := Send(ctx, out, models.SyncingMsg(src.Description(), size, done)); err != nil {
				return err
			}
		}

		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			return shared.NewIOError(rerr, "could not read %s", src.Path())
		}
	}
}

func (c *Copier) syncLink(src, dst models.Entry) (models.SyncOutcome, error) {
	target, err := c.fs.Readlink(src.Path())
	if err != nil {
		return 0, shared.NewIOError(err, "could not read link %s", src.Path())
	}

	outcome := models.SymlinkCreated
	dstInfo, err := c.fs.Lstat(dst.Path())
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return 0, shared.NewIOError(err, "could not stat %s", dst.Path())
	case dstInfo.IsDir():
		return 0, shared.NewIOError(nil, "could not replace directory %s with a symlink", dst.Path())
	default:
		if dstInfo.Mode()&fs.ModeSymlink != 0 {
			if existing, err := c.fs.Readlink(dst.Path()); err == nil && existing == target {
				return models.UpToDate, nil
			}
		}
		if err := c.fs.Remove(dst.Path()); err != nil {
			return 0, shared.NewIOError(err, "could not remove %s", dst.Path())
		}
		outcome = models.SymlinkUpdated
	}

	if err := c.fs.Symlink(target, dst.Path()); err != nil {
		return 0, shared.NewIOError(err, "could not create link %s -> %s", dst.Path(), target)
	}
	return outcome, nil
}

func (c *Copier) syncDir(dst models.Entry) (models.SyncOutcome, error) {
	info, err := c.fs.Lstat(dst.Path())
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := c.fs.MkdirAll(dst.Path(), newDirMode); err != nil {
			return 0, shared.NewIOError(err, "could not create %s", dst.Path())
		}
		return models.DirectoryCreated, nil
	case err != nil:
		return 0, shared.NewIOError(err, "could not stat %s", dst.Path())
	case !info.IsDir():
		return 0, shared.NewIOError(nil, "could not create directory %s: a file is in the way", dst.Path())
	default:
		return models.UpToDate, nil
	}
}

// Send delivers msg on out, blocking until it is received or ctx is done. A nil out discards msg.
func Send(ctx context.Context, out chan<- models.ProgressMessage, msg models.ProgressMessage) error {
	if out == nil {
		return nil
	}
	select {
	case out <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
