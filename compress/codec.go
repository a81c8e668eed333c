package compress

import (
	"fmt"

	"github.com/arloliu/zxc/errs"
	"github.com/arloliu/zxc/format"
)

// BlockCompressor compresses a single, independently decodable block.
//
// Implementations are stateless from the caller's point of view and safe
// for concurrent use by multiple workers. For a given input and level the
// output bytes never depend on which goroutine or backend variant ran the call.
type BlockCompressor interface {
	// CompressBlock compresses src using dst as scratch space and returns the
	// payload together with its encoding.
	//
	// When the compressed form would not be smaller than src, the returned
	// payload is src itself and the encoding is format.EncodingStored.
	// The returned slice may alias dst or src.
	CompressBlock(dst, src []byte, level format.Level) ([]byte, format.Encoding, error)
}

// BlockDecompressor decodes a single block produced by the matching
// BlockCompressor.
//
// The format is size-blind: the caller must supply the exact original length,
// and a payload that does not decode to exactly originalLen bytes is an error.
type BlockDecompressor interface {
	// DecompressBlock decodes payload into dst, which is grown to originalLen
	// when needed. The returned slice aliases dst whenever dst is large enough.
	DecompressBlock(dst, payload []byte, originalLen int) ([]byte, error)
}

// Codec combines both block directions for one codec family.
type Codec interface {
	BlockCompressor
	BlockDecompressor

	// Type returns the codec family written into stream headers.
	Type() format.Codec
	// CompressBound returns the scratch size CompressBlock needs for n input bytes.
	CompressBound(n int) int
}

// Encode compresses src with c and wraps any codec error in errs.ErrCodecFailure.
func Encode(c BlockCompressor, dst, src []byte, level format.Level) ([]byte, format.Encoding, error) {
	if !level.IsValid() {
		return nil, 0, fmt.Errorf("%w: %d", errs.ErrInvalidLevel, level)
	}

	payload, enc, err := c.CompressBlock(dst, src, level)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", errs.ErrCodecFailure, err)
	}

	return payload, enc, nil
}

// Decode restores a block from payload. Stored payloads are copied into dst;
// compressed payloads go through c. The result always has exactly
// originalLen bytes or an error wrapping errs.ErrCodecFailure is returned.
func Decode(c BlockDecompressor, dst, payload []byte, enc format.Encoding, originalLen int) ([]byte, error) {
	switch enc {
	case format.EncodingStored:
		if len(payload) != originalLen {
			return nil, fmt.Errorf("%w: stored payload is %d bytes, expected %d",
				errs.ErrCodecFailure, len(payload), originalLen)
		}
		out := grow(dst, originalLen)
		copy(out, payload)

		return out, nil
	case format.EncodingCompressed:
		out, err := c.DecompressBlock(dst, payload, originalLen)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errs.ErrCodecFailure, err)
		}
		if len(out) != originalLen {
			return nil, fmt.Errorf("%w: decoded %d bytes, expected %d",
				errs.ErrCodecFailure, len(out), originalLen)
		}

		return out, nil
	default:
		return nil, fmt.Errorf("%w: unknown block encoding %d", errs.ErrCodecFailure, enc)
	}
}

// CompressionStats describes the outcome of a compression run.
type CompressionStats struct {
	// Algorithm identifies the codec family used
	Algorithm format.Codec

	// OriginalSize is the size of input data before compression
	OriginalSize int64

	// CompressedSize is the size of data after compression, including framing
	CompressedSize int64

	// Blocks is the number of blocks written
	Blocks int64

	// StoredBlocks is the number of blocks written uncompressed
	StoredBlocks int64
}

// CompressionRatio returns the compression ratio (compressed size / original size).
//
// Values less than 1.0 indicate successful compression.
// Returns 0.0 when the original size is zero.
func (s CompressionStats) CompressionRatio() float64 {
	if s.OriginalSize == 0 {
		return 0.0
	}

	return float64(s.CompressedSize) / float64(s.OriginalSize)
}

// SpaceSavings returns the space savings as a percentage.
func (s CompressionStats) SpaceSavings() float64 {
	return (1.0 - s.CompressionRatio()) * 100.0
}

// CreateCodec creates the default backend for a codec family.
//
// Parameters:
//   - codec: codec family (LZ4, S2, Zstd or None)
//
// Returns:
//   - Codec: backend instance for the family
//   - error: errs.ErrInvalidCodec for an unknown family
func CreateCodec(codec format.Codec) (Codec, error) {
	switch codec {
	case format.CodecLZ4:
		return NewLZ4Codec(), nil
	case format.CodecS2:
		return NewS2Codec(), nil
	case format.CodecZstd:
		return NewZstdCodec(), nil
	case format.CodecNone:
		return NewNoOpCodec(), nil
	default:
		return nil, fmt.Errorf("%w: %s", errs.ErrInvalidCodec, codec)
	}
}

// stored reports whether a payload should fall back to stored encoding.
func stored(src, payload []byte) ([]byte, format.Encoding) {
	if len(payload) == 0 || len(payload) >= len(src) {
		return src, format.EncodingStored
	}

	return payload, format.EncodingCompressed
}

// grow returns dst resized to n bytes, reallocating when the capacity is too small.
func grow(dst []byte, n int) []byte {
	if cap(dst) < n {
		return make([]byte, n)
	}

	return dst[:n]
}
