// Package compress provides the block codecs used by zxc streams.
//
// A stream is cut into independent blocks and every block is compressed on
// its own, so a codec here only ever sees one block at a time. The format is
// size-blind: payloads carry no length of their own, and the caller supplies
// the original block length when decoding.
//
// # Architecture
//
// The package defines three core interfaces:
//
//	type BlockCompressor interface {
//	    CompressBlock(dst, src []byte, level format.Level) ([]byte, format.Encoding, error)
//	}
//
//	type BlockDecompressor interface {
//	    DecompressBlock(dst, payload []byte, originalLen int) ([]byte, error)
//	}
//
//	type Codec interface {
//	    BlockCompressor
//	    BlockDecompressor
//	    Type() format.Codec
//	    CompressBound(n int) int
//	}
//
// Callers normally go through Encode and Decode, which validate the level,
// handle stored blocks and wrap every failure in errs.ErrCodecFailure.
//
// # Stored Blocks
//
// When a block does not shrink, CompressBlock returns the input itself with
// format.EncodingStored. The stream writes such a block verbatim, so random
// or already-compressed input costs only the record header.
//
// # Supported Algorithms
//
// **LZ4** (format.CodecLZ4)
//
//	codec := compress.NewLZ4Codec()
//	payload, enc, _ := compress.Encode(codec, nil, block, format.LevelDefault)
//	original, _ := compress.Decode(codec, nil, payload, enc, len(block))
//
// Level 1 uses the fast LZ4 compressor, levels 2-5 the high-compression
// compressor with increasing search depth. Decoding speed does not depend on
// the level. NewScalarLZ4Codec returns a variant with a portable Go decoder;
// both variants produce identical output and accept the same payloads.
//
// **S2** (format.CodecS2)
//
// Levels 1-2 use s2.Encode, 3-4 s2.EncodeBetter and 5 s2.EncodeBest.
//
// **Zstandard** (format.CodecZstd)
//
// Best ratio, slowest encoder. Each block is one zstd frame without the zstd
// content checksum; integrity is covered by the stream's block checksums.
//
// **None** (format.CodecNone)
//
// Every block is stored. Useful for already-compressed input and for
// measuring framing overhead.
//
// # Memory Management
//
// Encoders are pooled per level with sync.Pool. CompressBlock and
// DecompressBlock write into the caller's dst when it is large enough, so a
// worker that reuses its buffers allocates nothing in steady state.
//
// # Thread Safety
//
// All codec implementations are thread-safe and can be shared across goroutines.
package compress
