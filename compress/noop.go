package compress

import (
	"errors"

	"github.com/arloliu/zxc/format"
)

// NoOpCodec stores every block uncompressed.
//
// It is useful for already-compressed inputs, for benchmarking the framing
// and scheduling overhead in isolation, and as a baseline in tests.
type NoOpCodec struct{}

var _ Codec = NoOpCodec{}

// NewNoOpCodec creates a new codec that never compresses.
func NewNoOpCodec() NoOpCodec {
	return NoOpCodec{}
}

// Type returns format.CodecNone.
func (c NoOpCodec) Type() format.Codec {
	return format.CodecNone
}

// CompressBound returns n; the payload is always src itself.
func (c NoOpCodec) CompressBound(n int) int {
	return n
}

// CompressBlock returns src unchanged with stored encoding, without copying.
func (c NoOpCodec) CompressBlock(_, src []byte, _ format.Level) ([]byte, format.Encoding, error) {
	return src, format.EncodingStored, nil
}

// DecompressBlock always fails: a NoOpCodec stream never carries compressed
// payloads, so one appearing means the record is corrupt.
func (c NoOpCodec) DecompressBlock(_, _ []byte, _ int) ([]byte, error) {
	return nil, errors.New("none: compressed payload in an uncompressed stream")
}
