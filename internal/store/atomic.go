package store

import (
	"os"
	"path/filepath"

	"github.com/outfitter-dev/blz/internal/blzerr"
)

// writeAtomic writes data to path via a temp file in the same directory,
// fsyncs it, then renames over the destination, so a crash between write
// and rename can never leave a torn file at the destination path.
func writeAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return blzerr.Wrap(blzerr.FileSystem, "create parent dir", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return blzerr.Wrap(blzerr.FileSystem, "create temp file", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return blzerr.Wrap(blzerr.FileSystem, "write temp file", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return blzerr.Wrap(blzerr.FileSystem, "fsync temp file", err)
	}
	if err := tmp.Close(); err != nil {
		return blzerr.Wrap(blzerr.FileSystem, "close temp file", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return blzerr.Wrap(blzerr.FileSystem, "chmod temp file", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return blzerr.Wrap(blzerr.FileSystem, "rename into place", err)
	}
	return nil
}
