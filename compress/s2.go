package compress

import (
	"fmt"

	"github.com/klauspost/compress/s2"

	"github.com/arloliu/zxc/format"
)

type S2Codec struct{}

var _ Codec = S2Codec{}

// NewS2Codec creates a new S2 codec.
func NewS2Codec() S2Codec {
	return S2Codec{}
}

// Type returns format.CodecS2.
func (c S2Codec) Type() format.Codec {
	return format.CodecS2
}

// CompressBound returns the worst-case S2 output size for n input bytes.
func (c S2Codec) CompressBound(n int) int {
	return s2.MaxEncodedLen(n)
}

// CompressBlock compresses src with s2.Encode at levels 1-2, s2.EncodeBetter
// at levels 3-4 and s2.EncodeBest at level 5.
func (c S2Codec) CompressBlock(dst, src []byte, level format.Level) ([]byte, format.Encoding, error) {
	if len(src) == 0 {
		return src, format.EncodingStored, nil
	}

	bound := c.CompressBound(len(src))
	if bound < 0 {
		return nil, 0, fmt.Errorf("s2: block of %d bytes is too large", len(src))
	}
	dst = grow(dst, bound)

	var encoded []byte
	switch level {
	case format.LevelFastest, format.LevelFast:
		encoded = s2.Encode(dst, src)
	case format.LevelDefault, format.LevelBetter:
		encoded = s2.EncodeBetter(dst, src)
	case format.LevelBest:
		encoded = s2.EncodeBest(dst, src)
	default:
		return nil, 0, fmt.Errorf("s2: unsupported level %d", level)
	}

	payload, enc := stored(src, encoded)

	return payload, enc, nil
}

// DecompressBlock decodes an S2 block of exactly originalLen bytes.
func (c S2Codec) DecompressBlock(dst, payload []byte, originalLen int) ([]byte, error) {
	n, err := s2.DecodedLen(payload)
	if err != nil {
		return nil, fmt.Errorf("s2 decompress: %w", err)
	}
	if n != originalLen {
		return nil, fmt.Errorf("s2 decompress: block header says %d bytes, expected %d", n, originalLen)
	}

	out, err := s2.Decode(grow(dst, originalLen), payload)
	if err != nil {
		return nil, fmt.Errorf("s2 decompress: %w", err)
	}

	return out, nil
}
