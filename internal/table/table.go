// Package table implements the checksum table protecting an append-only
// file.
//
// A Table maintains a sidecar file of per-chunk 64-bit checksums next to a
// primary data file. Readers call CheckRange before trusting a byte range;
// the writer calls Update after each batch of appends. Verification is lazy:
// a chunk is hashed the first time a range check touches it and the outcome
// is cached for the lifetime of the instance.
//
// A Table performs no internal locking. Share one instance from a single
// goroutine, or give each goroutine its own instance via Clone.
package table

import (
	"fmt"
	"os"

	"github.com/vnykmshr/sumfile/internal/format"
	"github.com/vnykmshr/sumfile/internal/fsio"
	"github.com/vnykmshr/sumfile/internal/logging"
	"github.com/vnykmshr/sumfile/internal/metrics"
)

// Options configures table behavior.
type Options struct {
	// ChunkSizeLog is the chunk size exponent used when no sidecar exists
	// yet (chunk size = 1 << ChunkSizeLog). Zero means the default of 20
	// (1 MiB chunks). A sidecar on disk always wins over this value.
	ChunkSizeLog uint32

	// Fsync makes Update flush the sidecar to the storage device before
	// returning.
	Fsync bool

	// Logger for structured logging
	Logger logging.Logger

	// Metrics records verification activity
	Metrics metrics.Recorder
}

// DefaultOptions returns sensible defaults for table configuration.
func DefaultOptions() *Options {
	return &Options{
		ChunkSizeLog: format.DefaultChunkSizeLog,
		Fsync:        false,
	}
}

// Table verifies byte ranges of an append-only primary file against a
// sidecar of per-chunk checksums.
type Table struct {
	// The file being checked and a read-only view of it, captured at the
	// last load or update. The view is replaced outright on update, so
	// slices borrowed from it must not outlive that call.
	file *os.File
	buf  *fsio.Mapping

	path    string
	sumPath string

	fsync  bool
	closed bool

	chunkSizeLog uint32
	end          uint64
	checksums    []uint64

	// checked is a bitset with one bit per chunk index, set once the
	// chunk's bytes have been hash-verified. In-memory only, never
	// persisted; reset whenever checksums change.
	checked []uint64

	logger  logging.Logger
	metrics metrics.Recorder
}

// Open constructs a Table for checking the file at path.
//
// The sidecar uses a separate file name: path + ".sum". If that file
// exists, the table is loaded from it; otherwise the table starts with zero
// coverage and CheckRange fails for every non-empty range until the first
// Update.
//
// Once loaded, changes to the files on disk do not affect the table in
// memory.
func Open(path string, opts *Options) (*Table, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	chunkSizeLog := opts.ChunkSizeLog
	if chunkSizeLog == 0 {
		chunkSizeLog = format.DefaultChunkSizeLog
	}
	if chunkSizeLog > format.MaxChunkSizeLog {
		return nil, fmt.Errorf("%w: %d (max %d)", format.ErrChunkSizeTooLarge, chunkSizeLog, format.MaxChunkSizeLog)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NoopLogger{}
	}
	recorder := opts.Metrics
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}

	file, err := os.Open(path) //nolint:gosec // G304: Path is user-provided for primary data
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", path, err)
	}
	m, err := fsio.Map(file)
	if err != nil {
		_ = file.Close()
		return nil, err
	}

	sumPath := format.SumPath(path)
	data, err := os.ReadFile(sumPath) //nolint:gosec // G304: Path is derived from the primary path
	if err != nil && !os.IsNotExist(err) {
		_ = m.Close()
		_ = file.Close()
		return nil, fmt.Errorf("failed to read sidecar %q: %w", sumPath, err)
	}

	end := uint64(0)
	var checksums []uint64
	if len(data) > 0 {
		var decErr error
		chunkSizeLog, end, checksums, decErr = format.DecodeSidecar(data, m.Len())
		if decErr != nil {
			_ = m.Close()
			_ = file.Close()
			return nil, fmt.Errorf("invalid sidecar %q: %w", sumPath, decErr)
		}
	}

	t := &Table{
		file:         file,
		buf:          m,
		path:         path,
		sumPath:      sumPath,
		fsync:        opts.Fsync,
		chunkSizeLog: chunkSizeLog,
		end:          end,
		checksums:    checksums,
		checked:      make([]uint64, (len(checksums)+63)/64),
		logger:       logger,
		metrics:      recorder,
	}
	t.metrics.UpdateCoverage(t.end, uint64(len(t.checksums)))
	t.logger.Debug("opened checksum table",
		logging.F("path", path),
		logging.F("chunk_size_log", chunkSizeLog),
		logging.F("covered_length", end),
		logging.F("chunks", len(checksums)))
	return t, nil
}

// CheckRange checks the given byte range of the primary file. It returns
// nil if the range passes its checksums and a ChecksumError if it fails or
// is not covered by the table.
func (t *Table) CheckRange(offset, length uint64) error {
	if t.closed {
		return ErrClosed
	}

	// Empty range is treated as good.
	if length == 0 {
		return nil
	}

	// Ranges not covered by checksums are treated as bad.
	if offset+length < offset || offset+length > t.end {
		t.metrics.RecordRangeCheck(false)
		return t.checksumError(offset, length)
	}

	// Otherwise, scan related chunks.
	first := offset >> t.chunkSizeLog
	last := (offset + length - 1) >> t.chunkSizeLog
	for i := first; i <= last; i++ {
		if !t.checkChunk(i) {
			t.metrics.RecordRangeCheck(false)
			return t.checksumError(offset, length)
		}
	}
	t.metrics.RecordRangeCheck(true)
	return nil
}

// checkChunk verifies a single chunk, consulting the cache first. A
// mismatch is never cached, so a later call re-checks the chunk.
func (t *Table) checkChunk(i uint64) bool {
	if t.checked[i/64]>>(i%64)&1 == 1 {
		t.metrics.RecordCacheHit()
		return true
	}
	start := i << t.chunkSizeLog
	end := min(t.end, (i+1)<<t.chunkSizeLog)
	if start == end {
		// Degenerate trailing chunk with zero bytes.
		return true
	}
	buf := t.buf.Bytes()
	if end > uint64(len(buf)) {
		// The view is shorter than the covered length: the file shrank
		// under us. Treat as failed rather than fault on the mapping.
		return false
	}
	t.metrics.RecordChunkHashed(int(end - start))
	if !format.VerifyChecksum(buf[start:end], t.checksums[i]) {
		return false
	}
	t.checked[i/64] |= 1 << (i % 64)
	return true
}

func (t *Table) checksumError(offset, length uint64) error {
	return &ChecksumError{Path: t.path, Start: offset, End: offset + length}
}

// Clone produces an independent table sharing the same on-disk files but
// no in-process mutable state. The clone re-opens the primary file,
// captures its own view at call time, and copies the checksum array and
// the verification cache (cached verdicts stay valid because checksums and
// bytes are identical at the moment of cloning).
func (t *Table) Clone() (*Table, error) {
	if t.closed {
		return nil, ErrClosed
	}
	file, err := os.Open(t.path) //nolint:gosec // G304: Path is user-provided for primary data
	if err != nil {
		return nil, fmt.Errorf("failed to reopen %q: %w", t.path, err)
	}
	m, err := fsio.Map(file)
	if err != nil {
		_ = file.Close()
		return nil, err
	}

	checksums := make([]uint64, len(t.checksums))
	copy(checksums, t.checksums)
	checked := make([]uint64, len(t.checked))
	copy(checked, t.checked)

	return &Table{
		file:         file,
		buf:          m,
		path:         t.path,
		sumPath:      t.sumPath,
		fsync:        t.fsync,
		chunkSizeLog: t.chunkSizeLog,
		end:          t.end,
		checksums:    checksums,
		checked:      checked,
		logger:       t.logger,
		metrics:      t.metrics,
	}, nil
}

// Close releases the file handle and the mapped view. It never writes to
// disk. Operations on a closed table return ErrClosed.
func (t *Table) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	var firstErr error
	if err := t.buf.Close(); err != nil {
		firstErr = err
	}
	if err := t.file.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// SetFsync controls whether Update flushes the sidecar to the storage
// device before returning.
func (t *Table) SetFsync(enabled bool) {
	t.fsync = enabled
}

// Path returns the primary file path.
func (t *Table) Path() string {
	return t.path
}

// SumPath returns the sidecar file path.
func (t *Table) SumPath() string {
	return t.sumPath
}

// ChunkSizeLog returns the current chunk size exponent.
func (t *Table) ChunkSizeLog() uint32 {
	return t.chunkSizeLog
}

// ChunkSize returns the current chunk size in bytes.
func (t *Table) ChunkSize() uint64 {
	return uint64(1) << t.chunkSizeLog
}

// CoveredLength returns the byte offset up to which checksums exist.
func (t *Table) CoveredLength() uint64 {
	return t.end
}

// ChecksumCount returns the number of chunk checksums in the table.
func (t *Table) ChecksumCount() int {
	return len(t.checksums)
}

// FileLength returns the primary file length as observed by the current
// view.
func (t *Table) FileLength() uint64 {
	return t.buf.Len()
}
