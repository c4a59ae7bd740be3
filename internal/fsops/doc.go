// Package fsops implements the filesystem side of a sync: path relativization and the transfer delegate.
//
// [RelPath] maps an absolute source path onto a path relative to the source root, rejecting anything outside it.
//
// [Copier] decides, per entry, whether the destination must change and performs the change:
//   - Regular files are copied when missing, when sizes differ, or when the source is newer.
//     Copies stream in fixed-size chunks, emitting [models.Syncing] messages and honouring an optional byte rate limit.
//   - Symlinks are recreated with the same target.
//   - Directories are created.
//
// All operations go through a [billy.Filesystem]; [NewOSFS] is the on-disk implementation and
// memfs works for tests.
package fsops
