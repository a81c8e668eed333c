package frame

import (
	"encoding/binary"
	"fmt"

	"github.com/arloliu/zxc/errs"
	"github.com/arloliu/zxc/format"
	"github.com/arloliu/zxc/internal/hash"
)

// Record is one block of a stream. Its sequence number is implied by its
// position in the stream.
//
// The encoding is implied by the lengths: a payload as long as the original
// block is stored verbatim, a shorter one is compressed. A record with both
// lengths zero terminates the stream.
type Record struct {
	OriginalLen uint32
	EncodedLen  uint32
	// Checksum of Payload; only present on the wire when the header enables it.
	Checksum uint32
	Payload  []byte
}

// NewRecord builds a record for an encoded block.
func NewRecord(originalLen int, payload []byte, checksum bool) Record {
	rec := Record{
		OriginalLen: uint32(originalLen),  //nolint: gosec
		EncodedLen:  uint32(len(payload)), //nolint: gosec
		Payload:     payload,
	}
	if checksum {
		rec.Checksum = hash.Checksum(payload)
	}

	return rec
}

// IsTerminal reports whether r is the end-of-stream marker.
func (r Record) IsTerminal() bool {
	return r.OriginalLen == 0 && r.EncodedLen == 0
}

// Encoding returns how the payload must be decoded.
func (r Record) Encoding() format.Encoding {
	if r.EncodedLen == r.OriginalLen {
		return format.EncodingStored
	}

	return format.EncodingCompressed
}

// VerifyChecksum compares the payload against the recorded checksum.
func (r Record) VerifyChecksum() error {
	if !hash.Verify(r.Payload, r.Checksum) {
		return fmt.Errorf("%w: stored 0x%08x, computed 0x%08x",
			errs.ErrChecksumMismatch, r.Checksum, hash.Checksum(r.Payload))
	}

	return nil
}

// validate checks the length invariants of a non-terminal record against
// the stream block size.
func (r Record) validate(blockSize uint32) error {
	switch {
	case r.OriginalLen == 0:
		return fmt.Errorf("%w: empty block with %d payload bytes", errs.ErrMalformedRecord, r.EncodedLen)
	case r.OriginalLen > blockSize:
		return fmt.Errorf("%w: block of %d bytes exceeds block size %d",
			errs.ErrMalformedRecord, r.OriginalLen, blockSize)
	case r.EncodedLen > r.OriginalLen:
		return fmt.Errorf("%w: payload of %d bytes for a %d byte block",
			errs.ErrMalformedRecord, r.EncodedLen, r.OriginalLen)
	case r.EncodedLen == 0:
		return fmt.Errorf("%w: empty payload for a %d byte block", errs.ErrMalformedRecord, r.OriginalLen)
	}

	return nil
}

// appendPrefix appends the record's length fields and, when enabled, its checksum.
func (r Record) appendPrefix(b []byte, checksum bool) []byte {
	b = binary.LittleEndian.AppendUint32(b, r.OriginalLen)
	b = binary.LittleEndian.AppendUint32(b, r.EncodedLen)
	if checksum {
		b = binary.LittleEndian.AppendUint32(b, r.Checksum)
	}

	return b
}
