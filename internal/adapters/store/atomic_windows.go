//go:build windows

package store

import (
	"os"
	"path/filepath"
)

// atomicWriteFile writes data to a file atomically via a write-rename
// pattern; renameio does not support Windows.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tempFile := path + ".tmp"
	if err := os.WriteFile(tempFile, data, perm); err != nil {
		return err
	}

	// Rename is atomic on Windows when source and target share a volume.
	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return err
	}

	return nil
}
