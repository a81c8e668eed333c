package compress

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/arloliu/zxc/format"
)

// zstdLevels maps levels 1-5 to encoder speeds.
var zstdLevels = [...]zstd.EncoderLevel{
	format.LevelFastest: zstd.SpeedFastest,
	format.LevelFast:    zstd.SpeedDefault,
	format.LevelDefault: zstd.SpeedDefault,
	format.LevelBetter:  zstd.SpeedBetterCompression,
	format.LevelBest:    zstd.SpeedBestCompression,
}

// zstdEncoderPools pools zstd encoders per level. EncodeAll is stateless
// between calls, so a warmed-up encoder can be shared across blocks.
var zstdEncoderPools [len(zstdLevels)]sync.Pool

// zstdDecoderPool pools zstd decoders for reuse to eliminate allocation overhead.
var zstdDecoderPool = sync.Pool{
	New: func() any {
		decoder, err := zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderLowmem(false),
			zstd.WithDecodeAllCapLimit(true), // never decode past the expected block size
		)
		if err != nil {
			// This should never happen with valid options
			panic(fmt.Sprintf("failed to create zstd decoder for pool: %v", err))
		}

		return decoder
	},
}

func init() {
	for level := format.LevelFastest; level <= format.LevelBest; level++ {
		speed := zstdLevels[level]
		zstdEncoderPools[level].New = func() any {
			encoder, err := zstd.NewWriter(nil,
				zstd.WithEncoderLevel(speed),
				zstd.WithEncoderConcurrency(1),
				zstd.WithEncoderCRC(false), // blocks carry their own checksum
			)
			if err != nil {
				// This should never happen with valid options
				panic(fmt.Sprintf("failed to create zstd encoder for pool: %v", err))
			}

			return encoder
		}
	}
}

// ZstdCodec provides Zstandard block compression.
//
// It gives the best ratio of the supported families at the cost of slower
// encoding, and suits archival streams that are decompressed rarely.
type ZstdCodec struct{}

var _ Codec = ZstdCodec{}

// NewZstdCodec creates a new Zstd codec.
func NewZstdCodec() ZstdCodec {
	return ZstdCodec{}
}

// Type returns format.CodecZstd.
func (c ZstdCodec) Type() format.Codec {
	return format.CodecZstd
}

// CompressBound returns a scratch size large enough for most zstd outputs.
// EncodeAll appends, so a larger result still succeeds with a reallocation.
func (c ZstdCodec) CompressBound(n int) int {
	return n + n/255 + 64
}

// CompressBlock compresses src into a single zstd frame.
func (c ZstdCodec) CompressBlock(dst, src []byte, level format.Level) ([]byte, format.Encoding, error) {
	if len(src) == 0 {
		return src, format.EncodingStored, nil
	}
	if !level.IsValid() {
		return nil, 0, fmt.Errorf("zstd: unsupported level %d", level)
	}

	encoder, _ := zstdEncoderPools[level].Get().(*zstd.Encoder)
	defer zstdEncoderPools[level].Put(encoder)

	encoded := encoder.EncodeAll(src, grow(dst, c.CompressBound(len(src)))[:0])
	payload, enc := stored(src, encoded)

	return payload, enc, nil
}

// DecompressBlock decodes a zstd frame of exactly originalLen bytes.
func (c ZstdCodec) DecompressBlock(dst, payload []byte, originalLen int) ([]byte, error) {
	decoder, _ := zstdDecoderPool.Get().(*zstd.Decoder)
	defer zstdDecoderPool.Put(decoder)

	// Even if this call fails, the decoder can be reused for the next call.
	out, err := decoder.DecodeAll(payload, grow(dst, originalLen)[:0:originalLen])
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	if len(out) != originalLen {
		return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(out), originalLen)
	}

	return out, nil
}
