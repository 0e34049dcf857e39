// Package fsio provides the file-system primitives sumfile builds on:
// atomic whole-file replacement and read-only memory mapping.
package fsio

import (
	"fmt"
	"os"
	"path/filepath"
)

// ReplaceFile atomically replaces the file at path with data.
//
// Readers observe either the fully-old or fully-new content, never a
// partial write. Process:
//  1. Write data to a temporary file (path + ".tmp")
//  2. Fsync the temporary file (if durable)
//  3. Atomic rename to the final path
//  4. Fsync the directory so the rename survives a crash (if durable)
func ReplaceFile(path string, data []byte, durable bool) error {
	tmpPath := path + ".tmp"

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644) //nolint:gosec // G304: Path is user-provided for sidecar data
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	if durable {
		if err := f.Sync(); err != nil {
			_ = f.Close()
			_ = os.Remove(tmpPath)
			return fmt.Errorf("failed to sync temporary file: %w", err)
		}
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	// Atomic rename (overwrites existing file)
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename into place: %w", err)
	}

	if durable {
		if err := syncDir(filepath.Dir(path)); err != nil {
			return fmt.Errorf("failed to sync directory: %w", err)
		}
	}

	return nil
}

// syncDir fsyncs a directory so a completed rename is durable.
func syncDir(path string) error {
	d, err := os.Open(path) //nolint:gosec // G304: Path is user-provided for sidecar data
	if err != nil {
		return err
	}
	defer func() { _ = d.Close() }()

	return d.Sync()
}
