// Package metrics provides verification metrics collection for sumfile.
//
// Metrics are plain atomic counters without external dependencies. A
// Collector can be shared between cloned tables to aggregate activity, or
// kept per-table for isolated accounting.
//
// Usage:
//
//	collector := metrics.NewCollector("main.idx")
//
//	// Record operations
//	collector.RecordRangeCheck(true)
//	collector.RecordChunkHashed(chunkSize)
//
//	// Inspect activity
//	snap := collector.GetSnapshot()
package metrics

import (
	"sync/atomic"
	"time"
)

// Collector tracks verification activity for a checksum table.
type Collector struct {
	name string

	// Range check counters
	rangeChecks   atomic.Uint64
	rangeFailures atomic.Uint64

	// Per-chunk verification counters
	chunksHashed atomic.Uint64
	bytesHashed  atomic.Uint64
	cacheHits    atomic.Uint64

	// Update counters
	updates      atomic.Uint64
	fullRebuilds atomic.Uint64
	updateErrors atomic.Uint64

	// Update durations
	updateDurations *durationHistogram

	// Coverage state (updated after each successful update)
	coveredLength atomic.Uint64
	chunkCount    atomic.Uint64
	lastUpdateSec atomic.Int64 // Unix seconds
}

// NewCollector creates a new metrics collector, typically named after the
// primary file being verified.
func NewCollector(name string) *Collector {
	return &Collector{
		name:            name,
		updateDurations: newDurationHistogram(),
	}
}

// Name returns the collector name.
func (c *Collector) Name() string {
	return c.name
}

// RecordRangeCheck records a range verification and its outcome.
func (c *Collector) RecordRangeCheck(ok bool) {
	c.rangeChecks.Add(1)
	if !ok {
		c.rangeFailures.Add(1)
	}
}

// RecordChunkHashed records one chunk hashed against its stored checksum.
func (c *Collector) RecordChunkHashed(size int) {
	c.chunksHashed.Add(1)
	c.bytesHashed.Add(uint64(size))
}

// RecordCacheHit records a chunk verification satisfied by the cache.
func (c *Collector) RecordCacheHit() {
	c.cacheHits.Add(1)
}

// RecordUpdate records a successful table update. full indicates the table
// was rebuilt from offset zero rather than extended incrementally.
func (c *Collector) RecordUpdate(full bool, duration time.Duration) {
	c.updates.Add(1)
	if full {
		c.fullRebuilds.Add(1)
	}
	c.updateDurations.observe(duration)
	c.lastUpdateSec.Store(time.Now().Unix())
}

// RecordUpdateError records a failed table update.
func (c *Collector) RecordUpdateError() {
	c.updateErrors.Add(1)
}

// UpdateCoverage updates coverage state metrics after a successful update.
func (c *Collector) UpdateCoverage(coveredLength, chunkCount uint64) {
	c.coveredLength.Store(coveredLength)
	c.chunkCount.Store(chunkCount)
}

// GetSnapshot returns a snapshot of current metrics.
func (c *Collector) GetSnapshot() *Snapshot {
	return &Snapshot{
		Name:              c.name,
		RangeChecks:       c.rangeChecks.Load(),
		RangeFailures:     c.rangeFailures.Load(),
		ChunksHashed:      c.chunksHashed.Load(),
		BytesHashed:       c.bytesHashed.Load(),
		CacheHits:         c.cacheHits.Load(),
		Updates:           c.updates.Load(),
		FullRebuilds:      c.fullRebuilds.Load(),
		UpdateErrors:      c.updateErrors.Load(),
		UpdateDurationP50: c.updateDurations.percentile(0.50),
		UpdateDurationP95: c.updateDurations.percentile(0.95),
		UpdateDurationP99: c.updateDurations.percentile(0.99),
		CoveredLength:     c.coveredLength.Load(),
		ChunkCount:        c.chunkCount.Load(),
		LastUpdateUnixSec: c.lastUpdateSec.Load(),
	}
}

// Reset resets all metrics (useful for testing).
func (c *Collector) Reset() {
	c.rangeChecks.Store(0)
	c.rangeFailures.Store(0)
	c.chunksHashed.Store(0)
	c.bytesHashed.Store(0)
	c.cacheHits.Store(0)
	c.updates.Store(0)
	c.fullRebuilds.Store(0)
	c.updateErrors.Store(0)
	c.updateDurations = newDurationHistogram()
	c.coveredLength.Store(0)
	c.chunkCount.Store(0)
	c.lastUpdateSec.Store(0)
}

// Snapshot is a point-in-time view of metrics.
type Snapshot struct {
	Name string

	// Range check counters
	RangeChecks   uint64
	RangeFailures uint64

	// Per-chunk verification counters
	ChunksHashed uint64
	BytesHashed  uint64
	CacheHits    uint64

	// Update counters
	Updates      uint64
	FullRebuilds uint64
	UpdateErrors uint64

	// Update duration percentiles
	UpdateDurationP50 time.Duration
	UpdateDurationP95 time.Duration
	UpdateDurationP99 time.Duration

	// Coverage state
	CoveredLength     uint64
	ChunkCount        uint64
	LastUpdateUnixSec int64
}

// durationHistogram is a simple histogram for tracking durations.
// Uses fixed buckets for simplicity (no external dependencies).
type durationHistogram struct {
	buckets [10]atomic.Uint64 // 10 buckets for different duration ranges
}

func newDurationHistogram() *durationHistogram {
	return &durationHistogram{}
}

// observe records a duration in the appropriate bucket.
func (h *durationHistogram) observe(d time.Duration) {
	micros := d.Microseconds()
	var bucket int

	// Bucket boundaries (microseconds):
	// 0: < 1μs, 1: 1-10μs, 2: 10-100μs, 3: 100μs-1ms
	// 4: 1-10ms, 5: 10-100ms, 6: 100ms-1s, 7: 1-10s, 8: >10s
	switch {
	case micros < 1:
		bucket = 0
	case micros < 10:
		bucket = 1
	case micros < 100:
		bucket = 2
	case micros < 1000:
		bucket = 3
	case micros < 10000:
		bucket = 4
	case micros < 100000:
		bucket = 5
	case micros < 1000000:
		bucket = 6
	case micros < 10000000:
		bucket = 7
	case micros < 100000000:
		bucket = 8
	default:
		bucket = 9
	}

	h.buckets[bucket].Add(1)
}

// percentile approximates a percentile from histogram buckets.
func (h *durationHistogram) percentile(p float64) time.Duration {
	// Count total observations
	var total uint64
	for i := 0; i < 10; i++ {
		total += h.buckets[i].Load()
	}

	if total == 0 {
		return 0
	}

	// Find the bucket containing the percentile
	target := uint64(float64(total) * p)
	var count uint64
	for i := 0; i < 10; i++ {
		count += h.buckets[i].Load()
		if count >= target {
			// Return the upper bound of this bucket
			switch i {
			case 0:
				return 500 * time.Nanosecond
			case 1:
				return 5 * time.Microsecond
			case 2:
				return 50 * time.Microsecond
			case 3:
				return 500 * time.Microsecond
			case 4:
				return 5 * time.Millisecond
			case 5:
				return 50 * time.Millisecond
			case 6:
				return 500 * time.Millisecond
			case 7:
				return 5 * time.Second
			case 8:
				return 50 * time.Second
			default:
				return 100 * time.Second
			}
		}
	}

	return 0
}
