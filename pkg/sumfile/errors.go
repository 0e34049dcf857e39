package sumfile

import (
	"github.com/vnykmshr/sumfile/internal/format"
	"github.com/vnykmshr/sumfile/internal/table"
)

// Common errors returned by sumfile operations. Match with errors.Is.
var (
	// ErrClosed indicates the table has been closed.
	ErrClosed = table.ErrClosed

	// ErrTruncated indicates the primary file shrank below the covered
	// length, violating the append-only contract. Fatal: the table never
	// resyncs silently.
	ErrTruncated = table.ErrTruncated

	// ErrChunkSizeTooLarge indicates a chunk size exponent above
	// MaxChunkSizeLog, either requested by the caller or declared by a
	// sidecar on disk.
	ErrChunkSizeTooLarge = format.ErrChunkSizeTooLarge

	// ErrBadSidecar indicates a sidecar file that cannot be parsed.
	ErrBadSidecar = format.ErrBadSidecar
)

// ChecksumError reports that a byte range of the primary file failed its
// checksum check. It is the only error kind that signals actual data
// corruption. Match with errors.As.
type ChecksumError = table.ChecksumError
