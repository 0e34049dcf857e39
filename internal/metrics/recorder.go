package metrics

import "time"

// Recorder is the interface the table uses to record verification activity.
// Collector implements it; callers can supply their own implementation to
// integrate with an external metrics system.
type Recorder interface {
	// RecordRangeCheck records a range verification and its outcome
	RecordRangeCheck(ok bool)

	// RecordChunkHashed records one chunk hashed against its checksum
	RecordChunkHashed(size int)

	// RecordCacheHit records a chunk verification satisfied by the cache
	RecordCacheHit()

	// RecordUpdate records a successful update (full = rebuilt from zero)
	RecordUpdate(full bool, duration time.Duration)

	// RecordUpdateError records a failed update
	RecordUpdateError()

	// UpdateCoverage updates coverage state after a successful update
	UpdateCoverage(coveredLength, chunkCount uint64)
}

// NoopRecorder is a Recorder that does nothing.
// Useful when metrics are disabled.
type NoopRecorder struct{}

func (NoopRecorder) RecordRangeCheck(bool)            {}
func (NoopRecorder) RecordChunkHashed(int)            {}
func (NoopRecorder) RecordCacheHit()                  {}
func (NoopRecorder) RecordUpdate(bool, time.Duration) {}
func (NoopRecorder) RecordUpdateError()               {}
func (NoopRecorder) UpdateCoverage(uint64, uint64)    {}
