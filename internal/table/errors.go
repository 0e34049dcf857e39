package table

import (
	"errors"
	"fmt"
)

// Common errors returned by table operations.
var (
	// ErrClosed indicates the table has been closed.
	ErrClosed = errors.New("sumfile: table closed")

	// ErrTruncated indicates the primary file shrank below the covered
	// length, violating the append-only contract. This is fatal: the table
	// never resyncs silently.
	ErrTruncated = errors.New("sumfile: file was truncated unexpectedly")

	// ErrChunkSizeZero indicates a degenerate zero chunk size. The chunk
	// size is always a power of two of a bounded exponent, so this guard
	// protects against future changes to how the exponent is derived.
	ErrChunkSizeZero = errors.New("sumfile: chunk size cannot be zero")
)

// ChecksumError reports that a byte range of the primary file failed its
// checksum check. The span localizes the failure to the requested range,
// not to the precise failing byte: depending on the chunk size, the
// mismatch may sit in a neighboring byte of the same chunk.
type ChecksumError struct {
	// Path is the primary file path
	Path string

	// Start is the inclusive start offset of the failed range
	Start uint64

	// End is the exclusive end offset of the failed range
	End uint64
}

// Error implements the error interface.
func (e *ChecksumError) Error() string {
	return fmt.Sprintf("%s: range %d..%d failed checksum check", e.Path, e.Start, e.End)
}
