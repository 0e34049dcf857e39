package format

import (
	"testing"
)

// FuzzDecodeSidecar tests the sidecar decoder with arbitrary inputs
func FuzzDecodeSidecar(f *testing.F) {
	// Add seed corpus with valid sidecars
	f.Add(EncodeSidecar(3, 26, []uint64{1, 2, 3, 4}), uint64(26))
	f.Add(EncodeSidecar(20, 0, nil), uint64(0))
	f.Add(EncodeSidecar(0, 1, []uint64{42}), uint64(1))
	f.Add([]byte{}, uint64(0))

	f.Fuzz(func(t *testing.T, data []byte, fileLen uint64) {
		// Cap fileLen so a hostile header cannot ask for a huge allocation
		if fileLen > 1<<20 {
			fileLen %= 1 << 20
		}

		log, covered, sums, err := DecodeSidecar(data, fileLen)
		if err != nil {
			return
		}

		// Decoded values must be internally consistent
		if log > MaxChunkSizeLog {
			t.Errorf("decoded chunkSizeLog %d above max", log)
		}
		if covered > fileLen {
			t.Errorf("decoded coverage %d beyond file length %d", covered, fileLen)
		}
		if got, want := uint64(len(sums)), ChunkCount(covered, log); got != want {
			t.Errorf("checksum count = %d, want %d", got, want)
		}

		// Re-encoding must survive a second decode with identical results
		re := EncodeSidecar(log, covered, sums)
		log2, covered2, sums2, err := DecodeSidecar(re, fileLen)
		if err != nil {
			t.Fatalf("re-decode failed: %v", err)
		}
		if log2 != log || covered2 != covered || len(sums2) != len(sums) {
			t.Errorf("re-decode mismatch: (%d,%d,%d) != (%d,%d,%d)",
				log2, covered2, len(sums2), log, covered, len(sums))
		}
	})
}
