// Package frame defines the binary layout of a zxc stream and serializes and
// parses it.
//
// # Stream Structure
//
// All integers are little-endian.
//
//	┌──────────────────────────────────────────────────────────┐
//	│ Header (10 bytes, fixed)                                 │
//	│  - Magic (4 bytes): "ZXCF"                               │
//	│  - Version (1 byte): 1                                   │
//	│  - Flag (1 byte): checksum bit, reserved bits, codec     │
//	│  - BlockSize (4 bytes): upper bound of every block       │
//	├──────────────────────────────────────────────────────────┤
//	│ Record 0..N-1                                            │
//	│  - OriginalLen (4 bytes)                                 │
//	│  - EncodedLen (4 bytes)                                  │
//	│  - Checksum (4 bytes, only when the checksum bit is set) │
//	│  - Payload (EncodedLen bytes)                            │
//	├──────────────────────────────────────────────────────────┤
//	│ Terminal record: OriginalLen = 0, EncodedLen = 0         │
//	└──────────────────────────────────────────────────────────┘
//
// # Flag Layout
//
//	bit 0    checksum enabled
//	bits 1-3 reserved, must be zero
//	bits 4-7 codec family (0 LZ4, 1 S2, 2 Zstd, 3 None)
//
// # Record Invariants
//
// A record's encoding is implied by its lengths. EncodedLen == OriginalLen
// means the payload is the original block; EncodedLen < OriginalLen means it
// is compressed with the header's codec. EncodedLen > OriginalLen, a zero
// EncodedLen for a non-empty block, and OriginalLen above the header block
// size are malformed.
//
// The checksum covers the payload bytes as stored, so corruption is detected
// before any decoding happens.
package frame
