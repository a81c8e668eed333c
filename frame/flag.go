package frame

import (
	"fmt"

	"github.com/arloliu/zxc/errs"
	"github.com/arloliu/zxc/format"
)

// Flag is the packed option byte of the stream header.
//
// Bit 0 is the checksum flag: when set, every record carries a checksum of
// its payload. Bits 1-3 are reserved and must be zero. Bits 4-7 hold the
// codec family used for compressed records.
type Flag uint8

// NewFlag creates a flag for the given codec family with checksums disabled.
func NewFlag(codec format.Codec) Flag {
	var f Flag
	f.WithCodec(codec)

	return f
}

// HasChecksum returns whether records carry checksums.
func (f Flag) HasChecksum() bool {
	return f&ChecksumMask != 0
}

// WithChecksum enables per-record checksums.
func (f *Flag) WithChecksum() {
	*f |= ChecksumMask
}

// WithoutChecksum disables per-record checksums.
func (f *Flag) WithoutChecksum() {
	*f &^= ChecksumMask
}

// Codec returns the codec family.
func (f Flag) Codec() format.Codec {
	return format.Codec((f & CodecMask) >> codecShift)
}

// WithCodec sets the codec family.
func (f *Flag) WithCodec(codec format.Codec) {
	*f = (*f &^ CodecMask) | Flag(codec<<codecShift)&CodecMask
}

// Validate checks the reserved bits and the codec family.
func (f Flag) Validate() error {
	if f&ReservedMask != 0 {
		return fmt.Errorf("%w: reserved flag bits set (0x%02x)", errs.ErrMalformedHeader, uint8(f))
	}
	if !f.Codec().IsValid() {
		return fmt.Errorf("%w: unknown codec family %d", errs.ErrMalformedHeader, f.Codec())
	}

	return nil
}
