package frame

import (
	"encoding/binary"
	"fmt"

	"github.com/arloliu/zxc/errs"
	"github.com/arloliu/zxc/format"
)

// Header is the fixed-size section at the start of every stream.
type Header struct {
	// Version is the container format version. byte offset 4
	Version uint8
	// Flag packs the checksum bit and codec family. byte offset 5
	Flag Flag
	// BlockSize bounds the original length of every record. byte offset 6-9
	BlockSize uint32
}

// NewHeader creates a header for a stream of blocks of at most blockSize bytes.
func NewHeader(codec format.Codec, blockSize int, checksum bool) Header {
	h := Header{
		Version:   Version,
		Flag:      NewFlag(codec),
		BlockSize: uint32(blockSize), //nolint: gosec
	}
	if checksum {
		h.Flag.WithChecksum()
	}

	return h
}

// HasChecksum returns whether records carry checksums.
func (h Header) HasChecksum() bool {
	return h.Flag.HasChecksum()
}

// Codec returns the codec family of compressed records.
func (h Header) Codec() format.Codec {
	return h.Flag.Codec()
}

// RecordPrefixSize returns the size of the fixed part of each record.
func (h Header) RecordPrefixSize() int {
	if h.HasChecksum() {
		return RecordHeaderSize + ChecksumSize
	}

	return RecordHeaderSize
}

// Validate checks the version, flags and block size.
//
// Returns:
//   - error: ErrUnsupportedVersion for an unknown version, ErrMalformedHeader otherwise
func (h Header) Validate() error {
	if h.Version != Version {
		return fmt.Errorf("%w: version %d", errs.ErrUnsupportedVersion, h.Version)
	}
	if err := h.Flag.Validate(); err != nil {
		return err
	}
	if h.BlockSize < MinBlockSize || h.BlockSize > MaxBlockSize {
		return fmt.Errorf("%w: block size %d outside [%d, %d]",
			errs.ErrMalformedHeader, h.BlockSize, MinBlockSize, MaxBlockSize)
	}

	return nil
}

// Parse parses the header from a byte slice.
//
// Parameters:
//   - data: Byte slice containing header (must be exactly HeaderSize bytes)
//
// Returns:
//   - error: ErrMalformedHeader for a short slice or bad magic, or validation errors
func (h *Header) Parse(data []byte) error {
	if len(data) != HeaderSize {
		return fmt.Errorf("%w: %d header bytes, expected %d", errs.ErrMalformedHeader, len(data), HeaderSize)
	}
	if string(data[:versionOffset]) != Magic {
		return fmt.Errorf("%w: bad magic %q", errs.ErrMalformedHeader, data[:versionOffset])
	}

	h.Version = data[versionOffset]
	h.Flag = Flag(data[flagOffset])
	h.BlockSize = binary.LittleEndian.Uint32(data[blockSizeOffset:HeaderSize])

	return h.Validate()
}

// Bytes serializes the header into a byte slice.
func (h Header) Bytes() []byte {
	return h.AppendTo(make([]byte, 0, HeaderSize))
}

// AppendTo appends the serialized header to b.
func (h Header) AppendTo(b []byte) []byte {
	b = append(b, Magic...)
	b = append(b, h.Version, uint8(h.Flag))

	return binary.LittleEndian.AppendUint32(b, h.BlockSize)
}

// ParseHeader parses a Header from the start of a byte slice.
//
// Parameters:
//   - data: Byte slice containing header (must be at least HeaderSize bytes)
//
// Returns:
//   - Header: Parsed header struct
//   - error: ErrMalformedHeader, ErrUnsupportedVersion
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("%w: truncated header (%d bytes)", errs.ErrMalformedHeader, len(data))
	}

	h := Header{}
	if err := h.Parse(data[:HeaderSize]); err != nil {
		return Header{}, err
	}

	return h, nil
}
