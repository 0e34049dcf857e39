package fsio

// Mapping is a read-only view of a file's contents captured at Map time.
//
// On Unix platforms the view is a shared memory mapping, so bytes appended
// to the file after Map are not visible through it and the underlying pages
// must not outlive Close. On platforms without mmap support the view is a
// plain in-memory copy with identical semantics.
type Mapping struct {
	data   []byte
	mapped bool
}

// Bytes returns the mapped view. The slice is only valid until Close.
func (m *Mapping) Bytes() []byte {
	return m.data
}

// Len returns the length of the mapped view in bytes.
func (m *Mapping) Len() uint64 {
	return uint64(len(m.data))
}
