//go:build windows

package fsio

import (
	"fmt"
	"io"
	"os"
)

// Map captures a read-only view of the file's current contents.
//
// The Windows implementation reads the file into memory instead of mapping
// it. Windows forbids renaming or resizing a file while a real mapping of
// it exists; a plain copy preserves the Unix semantics that the view is
// frozen at Map time.
func Map(f *os.File) (*Mapping, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	size := info.Size()
	if size == 0 {
		return &Mapping{}, nil
	}

	data := make([]byte, size)
	if _, err := io.ReadFull(io.NewSectionReader(f, 0, size), data); err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", f.Name(), err)
	}
	return &Mapping{data: data}, nil
}

// Close releases the view.
func (m *Mapping) Close() error {
	m.data = nil
	return nil
}
