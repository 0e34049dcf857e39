package format

import "github.com/cespare/xxhash/v2"

// Checksum computes a 64-bit xxhash over the given data.
// xxhash is a fast non-cryptographic hash; it detects accidental
// corruption, not adversarial tampering.
func Checksum(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// VerifyChecksum verifies that the computed hash matches the expected value.
func VerifyChecksum(data []byte, expected uint64) bool {
	return Checksum(data) == expected
}
