package fsops

import (
	"os"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

// osFS is the host filesystem addressed by absolute paths, with chmod and chtimes support.
type osFS struct {
	billy.Filesystem
}

// NewOSFS returns a [billy.Filesystem] over the host filesystem that accepts absolute paths.
func NewOSFS() billy.Filesystem {
	return osFS{Filesystem: osfs.New("/")}
}

func (osFS) Chmod(name string, mode os.FileMode) error {
	return os.Chmod(name, mode)
}

func (osFS) Chtimes(name string, atime, mtime time.Time) error {
	return os.Chtimes(name, atime, mtime)
}
