// Package sumfile maintains checksum sidecars for append-only files.
//
// A Table keeps a side file of per-chunk xxhash checksums (path + ".sum")
// for a primary data file, letting readers cheaply confirm that a byte
// range has not been corrupted and letting the writer extend coverage
// incrementally as the file grows.
//
// To use a Table:
//   - Before reading, call CheckRange to verify the range.
//   - After appending to the primary file, call Update.
//
// Only append-only files are supported efficiently. Non-append-only files
// can still be covered by calling Clear before each Update, at the cost of
// a full rebuild.
//
// Example usage:
//
//	t, err := sumfile.Open("/path/to/data.idx", nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer t.Close()
//
//	// After appending to data.idx:
//	if err := t.Update(); err != nil {
//		log.Fatal(err)
//	}
//
//	// Before trusting bytes [off, off+n):
//	if err := t.CheckRange(off, n); err != nil {
//		log.Fatal(err)
//	}
package sumfile

import (
	"io"

	"github.com/vnykmshr/sumfile/internal/format"
	"github.com/vnykmshr/sumfile/internal/logging"
	"github.com/vnykmshr/sumfile/internal/metrics"
	"github.com/vnykmshr/sumfile/internal/table"
)

// Version is the current version of sumfile.
const Version = "1.0.0"

// DefaultChunkSizeLog is the default chunk size exponent (1 MiB chunks).
const DefaultChunkSizeLog = format.DefaultChunkSizeLog

// MaxChunkSizeLog is the largest supported chunk size exponent (2 GiB
// chunks).
const MaxChunkSizeLog = format.MaxChunkSizeLog

// Table verifies byte ranges of an append-only primary file against a
// sidecar of per-chunk checksums.
//
// A Table performs no internal locking: share one instance from a single
// goroutine, or give each goroutine its own independent instance via Clone.
type Table struct {
	t       *table.Table
	metrics MetricsCollector
}

// Options configures table behavior.
type Options struct {
	// ChunkSizeLog is the chunk size exponent used when no sidecar exists
	// yet (chunk size = 1 << ChunkSizeLog). Zero means DefaultChunkSizeLog.
	// A sidecar on disk always wins over this value.
	ChunkSizeLog uint32

	// Fsync makes Update flush the sidecar to the storage device before
	// returning.
	// Default: false
	Fsync bool

	// Logger for structured logging (nil = no logging)
	Logger Logger

	// MetricsCollector for recording verification activity. Nil means an
	// internal collector readable through Stats.
	MetricsCollector MetricsCollector
}

// DefaultOptions returns the default configuration options.
func DefaultOptions() *Options {
	return &Options{
		ChunkSizeLog: DefaultChunkSizeLog,
		Fsync:        false,
	}
}

// SumPath returns the sidecar path for a primary file path, e.g.
// "data.idx" becomes "data.idx.sum".
func SumPath(path string) string {
	return format.SumPath(path)
}

// Open constructs a Table for checking the file at path. The primary file
// must exist; the sidecar is optional and absent means zero coverage.
func Open(path string, opts *Options) (*Table, error) {
	iopts := table.DefaultOptions()
	if opts != nil {
		iopts.ChunkSizeLog = opts.ChunkSizeLog
		iopts.Fsync = opts.Fsync
		iopts.Logger = opts.Logger
		iopts.Metrics = opts.MetricsCollector
	}
	if iopts.Metrics == nil {
		iopts.Metrics = metrics.NewCollector(path)
	}
	t, err := table.Open(path, iopts)
	if err != nil {
		return nil, err
	}
	return &Table{t: t, metrics: iopts.Metrics}, nil
}

// CheckRange checks the given byte range of the primary file. It returns
// nil if the range passes its checksums, and a ChecksumError if it fails
// or is not covered. A zero-length range always passes.
func (t *Table) CheckRange(offset, length uint64) error {
	return t.t.CheckRange(offset, length)
}

// Update brings the table up to date with the primary file using the
// current chunk size and atomically rewrites the sidecar.
func (t *Table) Update() error {
	return t.t.Update(table.KeepChunkSizeLog)
}

// UpdateChunkSizeLog is Update with an explicit chunk size exponent. If
// the exponent differs from the current one the table is rebuilt from
// scratch.
func (t *Table) UpdateChunkSizeLog(chunkSizeLog uint32) error {
	return t.t.Update(int64(chunkSizeLog))
}

// Clear resets the table in memory as if it had been created from an
// empty file. No disk I/O happens until the next Update, which rebuilds
// the whole table from offset zero.
func (t *Table) Clear() {
	t.t.Clear()
}

// Clone produces an independent table reading the same on-disk files but
// sharing no in-process mutable state with the original.
func (t *Table) Clone() (*Table, error) {
	clone, err := t.t.Clone()
	if err != nil {
		return nil, err
	}
	// Clones share the collector, so activity aggregates per file.
	return &Table{t: clone, metrics: t.metrics}, nil
}

// Close releases the file handle and the mapped view without writing to
// disk.
func (t *Table) Close() error {
	return t.t.Close()
}

// SetFsync controls whether Update flushes the sidecar to the storage
// device before returning.
func (t *Table) SetFsync(enabled bool) {
	t.t.SetFsync(enabled)
}

// Path returns the primary file path.
func (t *Table) Path() string {
	return t.t.Path()
}

// SumPath returns the sidecar file path.
func (t *Table) SumPath() string {
	return t.t.SumPath()
}

// ChunkSizeLog returns the current chunk size exponent.
func (t *Table) ChunkSizeLog() uint32 {
	return t.t.ChunkSizeLog()
}

// ChunkSize returns the current chunk size in bytes.
func (t *Table) ChunkSize() uint64 {
	return t.t.ChunkSize()
}

// CoveredLength returns the byte offset up to which checksums exist.
// Bytes beyond it are always treated as unverifiable.
func (t *Table) CoveredLength() uint64 {
	return t.t.CoveredLength()
}

// ChecksumCount returns the number of chunk checksums in the table.
func (t *Table) ChecksumCount() int {
	return t.t.ChecksumCount()
}

// FileLength returns the primary file length as observed at the last load
// or update.
func (t *Table) FileLength() uint64 {
	return t.t.FileLength()
}

// Stats returns a snapshot of the table's verification activity, or nil if
// a custom MetricsCollector without snapshot support was supplied in
// Options.
func (t *Table) Stats() *MetricsSnapshot {
	return GetMetricsSnapshot(t.metrics)
}

// Logger is the interface for pluggable logging.
type Logger = logging.Logger

// LogField is a structured logging field.
type LogField = logging.Field

// F is a convenience function to create a LogField.
func F(key string, value interface{}) LogField {
	return logging.F(key, value)
}

// LogLevel represents the severity of a log message.
type LogLevel = logging.Level

// Log levels for NewZerologLogger.
const (
	LogDebug = logging.LevelDebug
	LogInfo  = logging.LevelInfo
	LogWarn  = logging.LevelWarn
	LogError = logging.LevelError
)

// NewZerologLogger creates a zerolog-backed Logger writing structured JSON
// to w with the specified minimum level.
func NewZerologLogger(w io.Writer, minLevel LogLevel) Logger {
	return logging.NewZerologLogger(w, minLevel)
}

// MetricsCollector defines the interface for recording verification
// metrics.
type MetricsCollector = metrics.Recorder

// MetricsSnapshot is a point-in-time view of verification metrics.
type MetricsSnapshot = metrics.Snapshot

// NewMetricsCollector creates a new metrics collector, typically named
// after the primary file. Pass it in Options.MetricsCollector and read it
// back with GetMetricsSnapshot.
func NewMetricsCollector(name string) *metrics.Collector {
	return metrics.NewCollector(name)
}

// GetMetricsSnapshot returns a snapshot of current metrics from a
// collector, or nil if the collector does not support snapshots.
func GetMetricsSnapshot(collector MetricsCollector) *MetricsSnapshot {
	if c, ok := collector.(*metrics.Collector); ok {
		return c.GetSnapshot()
	}
	return nil
}
