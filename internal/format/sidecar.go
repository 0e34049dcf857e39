// Package format provides binary encoding/decoding for sumfile sidecars.
//
// This package implements:
//   - Sidecar format: fixed header plus an array of per-chunk checksums
//   - Checksum utilities: xxhash64 computation and verification
//   - Sidecar path derivation
package format

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// HeaderSize is the fixed size of the sidecar header (16 bytes)
const HeaderSize = 16

// ChecksumSize is the size of each checksum entry (8 bytes)
const ChecksumSize = 8

// DefaultChunkSizeLog is the default chunk size exponent (1 MiB chunks)
const DefaultChunkSizeLog uint32 = 20

// MaxChunkSizeLog is the largest supported chunk size exponent (2 GiB chunks)
const MaxChunkSizeLog uint32 = 31

// ErrChunkSizeTooLarge indicates a chunk size exponent above MaxChunkSizeLog.
var ErrChunkSizeTooLarge = errors.New("sumfile: chunk size exponent too large")

// ErrBadSidecar indicates a sidecar file that cannot be parsed.
var ErrBadSidecar = errors.New("sumfile: invalid sidecar")

// Header represents the fixed-size header of a sidecar file.
//
// Binary format (little-endian, 16 bytes):
//
//	[ChunkSizeLog:8][CoveredLength:8]
//
// ChunkSizeLog is the chunk size exponent (chunk size = 1 << ChunkSizeLog).
// CoveredLength is the byte offset of the primary file up to which checksums
// exist. The header is followed by ceil(CoveredLength / chunk size) 64-bit
// checksums, also little-endian.
type Header struct {
	// ChunkSizeLog is the chunk size exponent
	ChunkSizeLog uint64

	// CoveredLength is the checksummed prefix length of the primary file
	CoveredLength uint64
}

// Marshal encodes the header into binary format.
func (h *Header) Marshal() []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint64(buf[0:8], h.ChunkSizeLog)
	binary.LittleEndian.PutUint64(buf[8:16], h.CoveredLength)
	return buf
}

// UnmarshalHeader decodes a sidecar header from the given bytes.
func UnmarshalHeader(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes, need %d for the header", ErrBadSidecar, len(data), HeaderSize)
	}
	h := &Header{
		ChunkSizeLog:  binary.LittleEndian.Uint64(data[0:8]),
		CoveredLength: binary.LittleEndian.Uint64(data[8:16]),
	}
	if h.ChunkSizeLog > uint64(MaxChunkSizeLog) {
		return nil, fmt.Errorf("%w: %d (max %d)", ErrChunkSizeTooLarge, h.ChunkSizeLog, MaxChunkSizeLog)
	}
	return h, nil
}

// ChunkCount returns the number of chunks needed to cover length bytes.
func ChunkCount(length uint64, chunkSizeLog uint32) uint64 {
	chunkSize := uint64(1) << chunkSizeLog
	return (length + chunkSize - 1) / chunkSize
}

// EncodeSidecar serializes a full sidecar file: header followed by the
// checksum array.
func EncodeSidecar(chunkSizeLog uint32, coveredLength uint64, checksums []uint64) []byte {
	h := &Header{
		ChunkSizeLog:  uint64(chunkSizeLog),
		CoveredLength: coveredLength,
	}
	buf := make([]byte, 0, HeaderSize+len(checksums)*ChecksumSize)
	buf = append(buf, h.Marshal()...)
	var entry [ChecksumSize]byte
	for _, sum := range checksums {
		binary.LittleEndian.PutUint64(entry[:], sum)
		buf = append(buf, entry[:]...)
	}
	return buf
}

// DecodeSidecar parses a sidecar file against a primary file of fileLen
// bytes.
//
// The stored covered length is clamped to fileLen: a sidecar claiming
// coverage beyond what the primary file currently contains covers only the
// bytes that exist. Only the checksums for the clamped coverage are read;
// trailing entries are ignored.
func DecodeSidecar(data []byte, fileLen uint64) (chunkSizeLog uint32, coveredLength uint64, checksums []uint64, err error) {
	h, err := UnmarshalHeader(data)
	if err != nil {
		return 0, 0, nil, err
	}
	chunkSizeLog = uint32(h.ChunkSizeLog)
	coveredLength = min(h.CoveredLength, fileLen)

	n := ChunkCount(coveredLength, chunkSizeLog)
	need := uint64(HeaderSize) + n*ChecksumSize
	if uint64(len(data)) < need {
		return 0, 0, nil, fmt.Errorf("%w: %d bytes, need %d for %d checksums", ErrBadSidecar, len(data), need, n)
	}
	checksums = make([]uint64, n)
	for i := range checksums {
		off := HeaderSize + i*ChecksumSize
		checksums[i] = binary.LittleEndian.Uint64(data[off : off+ChecksumSize])
	}
	return chunkSizeLog, coveredLength, checksums, nil
}
