// Package zxc provides a block compressor with a parallel, self-describing
// stream format.
//
// zxc is optimized for decompression speed. Large inputs are cut into
// independent blocks that are compressed and decompressed on all available
// cores, while the compressed bytes stay identical for any number of workers.
//
// # Core Features
//
//   - Parallel streaming compression and decompression with ordered output
//   - Self-describing container: no original size is needed to decompress
//   - Incompressible blocks are stored verbatim
//   - Optional per-block checksums (xxHash64 folded to 32 bits)
//   - Four codec families (LZ4, S2, Zstd, None) and five levels
//   - Codec backend chosen once per process from the running CPU
//
// # Basic Usage
//
// Streaming:
//
//	import "github.com/arloliu/zxc"
//
//	n, err := zxc.StreamCompress(src, dst, 0, format.LevelDefault, true)
//	...
//	n, err = zxc.StreamDecompress(src, dst, 0, true)
//
// One-shot, for data that fits in memory:
//
//	packed, _ := zxc.Compress(data, format.LevelDefault, true)
//	data, _ = zxc.Decompress(packed, len(data), true)
//
// The one-shot format is size-blind: the caller must remember the original
// length. Use the stream functions when it is not known.
//
// # Package Structure
//
// This package provides convenient top-level wrappers around the stream
// package. For contexts, custom block sizes, codec families or logging, use
// the stream package directly.
package zxc

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/arloliu/zxc/compress"
	"github.com/arloliu/zxc/dispatch"
	"github.com/arloliu/zxc/errs"
	"github.com/arloliu/zxc/format"
	"github.com/arloliu/zxc/frame"
	"github.com/arloliu/zxc/internal/hash"
	"github.com/arloliu/zxc/stream"
)

// One-shot block tag layout.
const (
	tagChecksum = 0x01 // bit 0: checksum follows the tag
	tagStored   = 0x02 // bit 1: payload is the original data
	tagReserved = 0x0C // bits 2-3: must be zero
	tagCodec    = 0xF0 // bits 4-7: codec family

	oneShotOverhead = 1 + hash.Size

	// MaxOneShotSize is the largest original length Decompress accepts.
	MaxOneShotSize = frame.MaxBlockSize
)

// CompressBound returns the largest possible Compress output for n input bytes.
func CompressBound(n int) int {
	return n + oneShotOverhead
}

// Compress compresses src as a single LZ4 block.
//
// Parameters:
//   - src: data to compress
//   - level: compression level (1-5)
//   - checksum: whether to store a checksum of the payload
//
// Returns:
//   - []byte: compressed block, at most CompressBound(len(src)) bytes
//   - error: errs.ErrInvalidLevel, errs.ErrCodecFailure
func Compress(src []byte, level format.Level, checksum bool) ([]byte, error) {
	return CompressCodec(src, format.CodecLZ4, level, checksum)
}

// CompressCodec compresses src as a single block of the given codec family.
func CompressCodec(src []byte, codecType format.Codec, level format.Level, checksum bool) ([]byte, error) {
	codec, err := dispatch.Select().Codec(codecType)
	if err != nil {
		return nil, err
	}

	scratch := make([]byte, codec.CompressBound(len(src)))
	payload, enc, err := compress.Encode(codec, scratch, src, level)
	if err != nil {
		return nil, err
	}

	tag := byte(codecType) << 4
	if enc == format.EncodingStored {
		tag |= tagStored
	}

	out := make([]byte, 0, CompressBound(len(src)))
	if checksum {
		out = append(out, tag|tagChecksum)
		out = binary.LittleEndian.AppendUint32(out, hash.Checksum(payload))
	} else {
		out = append(out, tag)
	}

	return append(out, payload...), nil
}

// Decompress restores a block produced by Compress. originalLen must be the
// exact length of the original data.
//
// Parameters:
//   - src: compressed block
//   - originalLen: length of the original data
//   - checksum: whether to verify the stored checksum, when there is one
//
// Returns:
//   - []byte: original data
//   - error: errs.ErrMalformedRecord, errs.ErrChecksumMismatch, errs.ErrCodecFailure,
//     errs.ErrResourceExhaustion when originalLen exceeds MaxOneShotSize
func Decompress(src []byte, originalLen int, checksum bool) ([]byte, error) {
	if originalLen < 0 {
		return nil, fmt.Errorf("%w: negative original length %d", errs.ErrMalformedRecord, originalLen)
	}
	if originalLen > MaxOneShotSize {
		return nil, fmt.Errorf("%w: original length %d exceeds %d", errs.ErrResourceExhaustion, originalLen, MaxOneShotSize)
	}
	if len(src) == 0 {
		return nil, fmt.Errorf("%w: empty block", errs.ErrMalformedRecord)
	}

	tag := src[0]
	if tag&tagReserved != 0 {
		return nil, fmt.Errorf("%w: reserved tag bits set (0x%02x)", errs.ErrMalformedRecord, tag)
	}
	codecType := format.Codec((tag & tagCodec) >> 4)
	codec, err := dispatch.Select().Codec(codecType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrMalformedRecord, err)
	}

	payload := src[1:]
	if tag&tagChecksum != 0 {
		if len(payload) < hash.Size {
			return nil, fmt.Errorf("%w: truncated checksum", errs.ErrMalformedRecord)
		}
		sum := binary.LittleEndian.Uint32(payload)
		payload = payload[hash.Size:]
		if checksum && !hash.Verify(payload, sum) {
			return nil, errs.ErrChecksumMismatch
		}
	}

	enc := format.EncodingCompressed
	if tag&tagStored != 0 {
		enc = format.EncodingStored
	}

	return compress.Decode(codec, make([]byte, originalLen), payload, enc, originalLen)
}

// StreamCompress compresses r into w as a zxc stream and returns the number
// of bytes written. threads of zero uses every available CPU. A nil w only
// counts the output.
func StreamCompress(r io.Reader, w io.Writer, threads int, level format.Level, checksum bool) (int64, error) {
	res, err := stream.Compress(context.Background(), r, w,
		stream.WithThreads(threads),
		stream.WithLevel(level),
		stream.WithChecksum(checksum),
	)

	return res.BytesWritten, err
}

// StreamDecompress decompresses one zxc stream from r into w and returns the
// number of bytes written. When checksum is true, blocks are verified if the
// stream carries checksums. A nil w only counts the output.
func StreamDecompress(r io.Reader, w io.Writer, threads int, checksum bool) (int64, error) {
	res, err := stream.Decompress(context.Background(), r, w,
		stream.WithThreads(threads),
		stream.WithChecksum(checksum),
	)

	return res.BytesWritten, err
}
