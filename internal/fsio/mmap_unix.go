//go:build unix || linux || darwin || freebsd || openbsd || netbsd

package fsio

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Map creates a read-only shared memory mapping of the file's current
// contents. Mapping an empty file yields an empty view without a kernel
// mapping, since mmap rejects zero-length regions.
func Map(f *os.File) (*Mapping, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	size := info.Size()
	if size == 0 {
		return &Mapping{}, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("failed to mmap %q: %w", f.Name(), err)
	}
	return &Mapping{data: data, mapped: true}, nil
}

// Close releases the mapping. The view returned by Bytes must not be used
// afterwards.
func (m *Mapping) Close() error {
	if !m.mapped {
		m.data = nil
		return nil
	}
	data := m.data
	m.data = nil
	m.mapped = false
	return unix.Munmap(data)
}
