package compress

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pierrec/lz4/v4"

	"github.com/arloliu/zxc/format"
)

// lz4CompressorPool pools fast lz4.Compressor instances for level 1.
// lz4 zeroes its tables on every call, so reuse never changes the output.
var lz4CompressorPool = sync.Pool{
	New: func() any {
		return &lz4.Compressor{}
	},
}

// lz4HCLevels maps levels 2-5 to the high-compression search depth.
var lz4HCLevels = [...]lz4.CompressionLevel{
	format.LevelFast:    lz4.Level1,
	format.LevelDefault: lz4.Level4,
	format.LevelBetter:  lz4.Level7,
	format.LevelBest:    lz4.Level9,
}

// lz4HCPools holds one pool of lz4.CompressorHC per high-compression level.
var lz4HCPools [len(lz4HCLevels)]sync.Pool

func init() {
	for level := format.LevelFast; level <= format.LevelBest; level++ {
		depth := lz4HCLevels[level]
		lz4HCPools[level].New = func() any {
			return &lz4.CompressorHC{Level: depth}
		}
	}
}

// lz4DecodeFunc decodes an LZ4 block from src into dst and returns the
// number of bytes written.
type lz4DecodeFunc func(dst, src []byte) (int, error)

// LZ4Codec provides LZ4 block compression.
//
// Encoding always goes through pierrec/lz4, so every LZ4Codec produces the
// same bytes for the same input and level. Variants differ only in the block
// decoder they use: the accelerated variant calls the assembly decoder
// shipped with pierrec/lz4, the scalar variant a portable Go decoder.
type LZ4Codec struct {
	decode lz4DecodeFunc
	name   string
}

var _ Codec = LZ4Codec{}

// NewLZ4Codec creates an LZ4 codec using the library block decoder.
//
// Returns:
//   - LZ4Codec: New LZ4 codec instance
func NewLZ4Codec() LZ4Codec {
	return LZ4Codec{decode: decodeLZ4Library, name: "lz4"}
}

// NewScalarLZ4Codec creates an LZ4 codec using the portable Go block decoder.
func NewScalarLZ4Codec() LZ4Codec {
	return LZ4Codec{decode: decodeLZ4Scalar, name: "lz4-scalar"}
}

// Type returns format.CodecLZ4.
func (c LZ4Codec) Type() format.Codec {
	return format.CodecLZ4
}

// Name returns the variant name used in logs.
func (c LZ4Codec) Name() string {
	return c.name
}

// CompressBound returns the worst-case LZ4 output size for n input bytes.
func (c LZ4Codec) CompressBound(n int) int {
	return lz4.CompressBlockBound(n)
}

// CompressBlock compresses src with the fast compressor at level 1 and the
// high-compression compressor at levels 2-5.
//
// Parameters:
//   - dst: scratch buffer, grown to CompressBound(len(src)) when too small
//   - src: block to compress
//   - level: compression level (1-5)
//
// Returns:
//   - []byte: compressed payload, or src when stored
//   - format.Encoding: encoding of the payload
//   - error: compression error if any
func (c LZ4Codec) CompressBlock(dst, src []byte, level format.Level) ([]byte, format.Encoding, error) {
	if len(src) == 0 {
		return src, format.EncodingStored, nil
	}

	dst = grow(dst, c.CompressBound(len(src)))

	var (
		n   int
		err error
	)
	switch {
	case level == format.LevelFastest:
		lc, _ := lz4CompressorPool.Get().(*lz4.Compressor)
		n, err = lc.CompressBlock(src, dst)
		lz4CompressorPool.Put(lc)
	case level.IsValid():
		hc, _ := lz4HCPools[level].Get().(*lz4.CompressorHC)
		n, err = hc.CompressBlock(src, dst)
		lz4HCPools[level].Put(hc)
	default:
		return nil, 0, fmt.Errorf("lz4: unsupported level %d", level)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("lz4 compress: %w", err)
	}

	payload, enc := stored(src, dst[:n])

	return payload, enc, nil
}

// DecompressBlock decodes an LZ4 block of exactly originalLen bytes.
func (c LZ4Codec) DecompressBlock(dst, payload []byte, originalLen int) ([]byte, error) {
	if originalLen == 0 {
		if len(payload) != 0 {
			return nil, errors.New("lz4 decompress: payload for empty block")
		}

		return dst[:0], nil
	}

	dst = grow(dst, originalLen)
	n, err := c.decode(dst, payload)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	if n != originalLen {
		return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", n, originalLen)
	}

	return dst[:n], nil
}

func decodeLZ4Library(dst, src []byte) (int, error) {
	return lz4.UncompressBlock(src, dst)
}
