package table

import (
	"fmt"
	"math/bits"
	"time"

	"github.com/vnykmshr/sumfile/internal/format"
	"github.com/vnykmshr/sumfile/internal/fsio"
	"github.com/vnykmshr/sumfile/internal/logging"
)

// KeepChunkSizeLog directs Update to reuse the table's current chunk size
// exponent.
const KeepChunkSizeLog int64 = -1

// Update brings the table up to date with the primary file and writes the
// sidecar back to disk atomically.
//
// chunkSizeLog selects the chunk size (1 << chunkSizeLog) going forward;
// pass KeepChunkSizeLog to reuse the current one. If the exponent differs
// from the existing one the table is rebuilt from scratch, otherwise it is
// extended incrementally with checksums for the newly appended bytes.
//
// Any part of the old coverage that is about to be dropped or rebuilt is
// re-verified first; a ChecksumError from that verification aborts the
// update, so corrupted history is never silently endorsed. On any failure
// the in-memory table is left unchanged.
func (t *Table) Update(chunkSizeLog int64) error {
	if t.closed {
		return ErrClosed
	}
	begin := time.Now()
	full, changed, err := t.update(chunkSizeLog)
	if err != nil {
		t.metrics.RecordUpdateError()
		return err
	}
	if changed {
		t.metrics.RecordUpdate(full, time.Since(begin))
		t.metrics.UpdateCoverage(t.end, uint64(len(t.checksums)))
	}
	return nil
}

func (t *Table) update(chunkSizeLog int64) (full, changed bool, err error) {
	// Re-map to observe the primary file's current length.
	m, err := fsio.Map(t.file)
	if err != nil {
		return false, false, fmt.Errorf("failed to remap %q: %w", t.path, err)
	}

	resolved := t.chunkSizeLog
	if chunkSizeLog != KeepChunkSizeLog {
		if chunkSizeLog < 0 || chunkSizeLog > int64(format.MaxChunkSizeLog) {
			_ = m.Close()
			return false, false, fmt.Errorf("%w: %d (max %d)", format.ErrChunkSizeTooLarge, chunkSizeLog, format.MaxChunkSizeLog)
		}
		resolved = uint32(chunkSizeLog)
	}
	chunkSize := uint64(1) << resolved
	oldChunkSize := uint64(1) << t.chunkSizeLog

	if chunkSize == 0 {
		_ = m.Close()
		return false, false, ErrChunkSizeZero
	}

	length := m.Len()

	// Fast path: nothing appended and the chunk size is unchanged.
	if length == t.end && chunkSize == oldChunkSize {
		_ = m.Close()
		return false, false, nil
	}

	if length < t.end {
		// Breaks the append-only assumption.
		_ = m.Close()
		return false, false, fmt.Errorf("%s: %w", t.path, ErrTruncated)
	}

	checksums := make([]uint64, len(t.checksums))
	copy(checksums, t.checksums)
	if chunkSize == oldChunkSize {
		if t.end%chunkSize != 0 && len(checksums) > 0 {
			// The trailing chunk was partial when last hashed and may have
			// grown since; recompute it.
			checksums = checksums[:len(checksums)-1]
		}
	} else {
		// Chunk boundaries moved; recompute everything.
		checksums = checksums[:0]
		full = true
	}

	// Verify the part of the old coverage being rebuilt before trusting
	// the kept prefix.
	verifyStart := uint64(len(checksums)) * oldChunkSize
	if err := t.CheckRange(verifyStart, t.end-verifyStart); err != nil {
		_ = m.Close()
		return full, false, err
	}

	// Hash the new chunks from the fresh view.
	buf := m.Bytes()
	for offset := uint64(len(checksums)) * chunkSize; offset < length; {
		chunkEnd := min(offset+chunkSize, length)
		checksums = append(checksums, format.Checksum(buf[offset:chunkEnd]))
		offset = chunkEnd
	}

	// The persisted exponent is re-derived from the chunk size actually
	// used, keeping the header self-consistent.
	resolved = uint32(bits.Len64(chunkSize)) - 1

	data := format.EncodeSidecar(resolved, length, checksums)
	if err := fsio.ReplaceFile(t.sumPath, data, t.fsync); err != nil {
		_ = m.Close()
		return full, false, fmt.Errorf("failed to replace sidecar %q: %w", t.sumPath, err)
	}

	old := t.buf
	t.buf = m
	t.end = length
	t.checksums = checksums
	t.checked = make([]uint64, (len(checksums)+63)/64)
	t.chunkSizeLog = resolved
	_ = old.Close()

	t.logger.Debug("updated checksum table",
		logging.F("path", t.path),
		logging.F("chunk_size_log", resolved),
		logging.F("covered_length", length),
		logging.F("chunks", len(checksums)),
		logging.F("full_rebuild", full))
	return full, true, nil
}

// Clear resets the table as if it had been created from an empty file. It
// does not write to disk: the next Update rebuilds the whole table from
// offset zero, with nothing kept and therefore nothing to re-verify.
//
// Use it when the primary file's existing content should no longer be
// trusted, e.g. after a non-append-only modification.
func (t *Table) Clear() {
	t.end = 0
	t.checksums = nil
	t.checked = nil
}
