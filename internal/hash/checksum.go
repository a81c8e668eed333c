package hash

import "github.com/cespare/xxhash/v2"

// Size is the encoded size of a block checksum in bytes.
const Size = 4

// Checksum computes the 32-bit block checksum of data.
//
// It folds the xxHash64 digest into 32 bits so that every input bit still
// influences the result. The checksum is for integrity only; it offers no
// protection against deliberate tampering.
func Checksum(data []byte) uint32 {
	h := xxhash.Sum64(data)
	return uint32(h) ^ uint32(h>>32)
}

// Verify reports whether data matches the expected checksum.
func Verify(data []byte, expected uint32) bool {
	return Checksum(data) == expected
}
