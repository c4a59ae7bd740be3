package fsops

import (
	"path/filepath"
	"strings"

	"github.com/desertthunder/dsync/internal/shared"
)

// RelPath returns path relative to root.
//
// The root itself resolves to ".". Paths that are not below root are a [shared.PathError].
func RelPath(path, root string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", shared.NewPathError("could not get relative path of %s from %s: %v", path, root, err)
	}

	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", shared.NewPathError("%s is not under %s", path, root)
	}
	return rel, nil
}
