package compress

import (
	"bytes"
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/zxc/errs"
	"github.com/arloliu/zxc/format"
)

// getAllCodecs returns every backend, including both LZ4 decoder variants.
func getAllCodecs() map[string]Codec {
	return map[string]Codec{
		"lz4":        NewLZ4Codec(),
		"lz4-scalar": NewScalarLZ4Codec(),
		"s2":         NewS2Codec(),
		"zstd":       NewZstdCodec(),
		"none":       NewNoOpCodec(),
	}
}

func allLevels() []format.Level {
	return []format.Level{
		format.LevelFastest,
		format.LevelFast,
		format.LevelDefault,
		format.LevelBetter,
		format.LevelBest,
	}
}

func textData(size int) []byte {
	pattern := []byte("block 0042 of stream zxc: the quick brown fox jumps over the lazy dog. ")
	data := make([]byte, size)
	for i := range data {
		data[i] = pattern[i%len(pattern)]
	}

	return data
}

func randomData(size int, seed uint64) []byte {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(rng.Uint32())
	}

	return data
}

func TestCodecs_RoundTrip(t *testing.T) {
	inputs := map[string][]byte{
		"empty":   {},
		"single":  {0x7f},
		"text":    textData(64 * 1024),
		"zeros":   make([]byte, 100_000),
		"random":  randomData(32*1024, 1),
		"short":   []byte("abcabcabcabcabcabc"),
		"odd_len": textData(4097),
	}

	for name, codec := range getAllCodecs() {
		for _, level := range allLevels() {
			for inputName, input := range inputs {
				t.Run(fmt.Sprintf("%s/L%d/%s", name, level, inputName), func(t *testing.T) {
					payload, enc, err := Encode(codec, nil, input, level)
					require.NoError(t, err)
					if enc == format.EncodingStored {
						require.Equal(t, input, payload)
					} else {
						require.Less(t, len(payload), len(input))
					}

					out, err := Decode(codec, nil, payload, enc, len(input))
					require.NoError(t, err)
					require.Len(t, out, len(input))
					require.True(t, bytes.Equal(input, out))
				})
			}
		}
	}
}

func TestCodecs_CompressibleDataShrinks(t *testing.T) {
	input := textData(128 * 1024)

	for name, codec := range getAllCodecs() {
		if codec.Type() == format.CodecNone {
			continue
		}
		for _, level := range allLevels() {
			t.Run(fmt.Sprintf("%s/L%d", name, level), func(t *testing.T) {
				payload, enc, err := Encode(codec, nil, input, level)
				require.NoError(t, err)
				require.Equal(t, format.EncodingCompressed, enc)
				require.Less(t, len(payload), len(input)/4)
			})
		}
	}
}

func TestCodecs_IncompressibleDataIsStored(t *testing.T) {
	input := randomData(64*1024, 7)

	for name, codec := range getAllCodecs() {
		for _, level := range allLevels() {
			t.Run(fmt.Sprintf("%s/L%d", name, level), func(t *testing.T) {
				payload, enc, err := Encode(codec, nil, input, level)
				require.NoError(t, err)
				require.Equal(t, format.EncodingStored, enc)
				require.Equal(t, input, payload)
			})
		}
	}
}

func TestCodecs_Deterministic(t *testing.T) {
	input := textData(200 * 1024)

	for name, codec := range getAllCodecs() {
		for _, level := range allLevels() {
			t.Run(fmt.Sprintf("%s/L%d", name, level), func(t *testing.T) {
				first, enc1, err := Encode(codec, nil, input, level)
				require.NoError(t, err)
				first = bytes.Clone(first)

				// Reused, dirty scratch must not leak into the output.
				scratch := bytes.Repeat([]byte{0xAA}, codec.CompressBound(len(input)))
				second, enc2, err := Encode(codec, scratch, input, level)
				require.NoError(t, err)

				require.Equal(t, enc1, enc2)
				require.Equal(t, first, second)
			})
		}
	}
}

func TestCodecs_LevelsDiffer(t *testing.T) {
	input := randomTextData(256*1024, 3)

	lz4 := NewLZ4Codec()
	fast, _, err := Encode(lz4, nil, input, format.LevelFastest)
	require.NoError(t, err)
	best, _, err := Encode(lz4, nil, input, format.LevelBest)
	require.NoError(t, err)

	require.LessOrEqual(t, len(best), len(fast))
}

// randomTextData builds text from a small vocabulary, compressible but not trivially so.
func randomTextData(size int, seed uint64) []byte {
	words := []string{"stream", "block", "frame", "worker", "flush", "seq", "level", "codec", "header", "record"}
	rng := rand.New(rand.NewPCG(seed, seed+1))

	var buf bytes.Buffer
	for buf.Len() < size {
		buf.WriteString(words[rng.IntN(len(words))])
		buf.WriteByte(' ')
		if rng.IntN(12) == 0 {
			fmt.Fprintf(&buf, "%d\n", rng.IntN(100000))
		}
	}

	return buf.Bytes()[:size]
}

func TestLZ4_ScalarAndLibraryAgree(t *testing.T) {
	library := NewLZ4Codec()
	scalar := NewScalarLZ4Codec()

	inputs := [][]byte{
		textData(1),
		textData(13),
		textData(65),
		textData(70_000),
		randomTextData(300*1024, 11),
		make([]byte, 1<<20),
		append(randomData(1000, 5), textData(5000)...),
	}

	for i, input := range inputs {
		for _, level := range allLevels() {
			t.Run(fmt.Sprintf("input%d/L%d", i, level), func(t *testing.T) {
				libPayload, libEnc, err := Encode(library, nil, input, level)
				require.NoError(t, err)
				scalarPayload, scalarEnc, err := Encode(scalar, nil, input, level)
				require.NoError(t, err)

				// Both variants share the encoder.
				require.Equal(t, libEnc, scalarEnc)
				require.Equal(t, libPayload, scalarPayload)

				a, err := Decode(library, nil, libPayload, libEnc, len(input))
				require.NoError(t, err)
				b, err := Decode(scalar, nil, libPayload, libEnc, len(input))
				require.NoError(t, err)
				require.Equal(t, a, b)
				require.Equal(t, input, b)
			})
		}
	}
}

func TestLZ4Scalar_HandcraftedBlocks(t *testing.T) {
	tests := []struct {
		name string
		src  []byte
		want string
	}{
		{
			name: "literals only",
			src:  append([]byte{0x50}, "hello"...),
			want: "hello",
		},
		{
			name: "overlapping match",
			// "a", match offset 1 length 9, then final literal "b"
			src:  []byte{0x15, 'a', 0x01, 0x00, 0x10, 'b'},
			want: strings.Repeat("a", 10) + "b",
		},
		{
			name: "repeat",
			src:  []byte{0x40, 'w', 'x', 'y', 'z', 0x04, 0x00, 0x10, '!'},
			want: "wxyzwxyz!",
		},
		{
			name: "extended literal length",
			src:  append([]byte{0xF0, 0x05}, bytes.Repeat([]byte{'q'}, 20)...),
			want: string(bytes.Repeat([]byte{'q'}, 20)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := make([]byte, len(tt.want))
			n, err := decodeLZ4Scalar(dst, tt.src)
			require.NoError(t, err)
			require.Equal(t, tt.want, string(dst[:n]))
		})
	}
}

func TestLZ4Scalar_RejectsCorruptBlocks(t *testing.T) {
	tests := []struct {
		name   string
		src    []byte
		dstLen int
	}{
		{name: "empty", src: nil, dstLen: 8},
		{name: "literal past source", src: []byte{0x50, 'a', 'b'}, dstLen: 8},
		{name: "literal past destination", src: append([]byte{0x50}, "hello"...), dstLen: 3},
		{name: "match bits on last sequence", src: []byte{0x14, 'a'}, dstLen: 8},
		{name: "truncated offset", src: []byte{0x14, 'a', 0x01}, dstLen: 8},
		{name: "zero offset", src: []byte{0x14, 'a', 0x00, 0x00, 0x10, 'b'}, dstLen: 16},
		{name: "offset before start", src: []byte{0x14, 'a', 0x02, 0x00, 0x10, 'b'}, dstLen: 16},
		{name: "match past destination", src: []byte{0x1F, 'a', 0x01, 0x00, 0x40, 0x10, 'b'}, dstLen: 16},
		{name: "ends with match", src: []byte{0x14, 'a', 0x01, 0x00}, dstLen: 16},
		{name: "unterminated length", src: []byte{0xF0, 0xFF, 0xFF}, dstLen: 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeLZ4Scalar(make([]byte, tt.dstLen), tt.src)
			require.ErrorIs(t, err, errLZ4Corrupt)
		})
	}
}

func TestCodecs_RejectCorruptPayload(t *testing.T) {
	input := randomTextData(64*1024, 21)

	for name, codec := range getAllCodecs() {
		if codec.Type() == format.CodecNone {
			continue
		}
		payload, enc, err := Encode(codec, nil, input, format.LevelDefault)
		require.NoError(t, err)
		require.Equal(t, format.EncodingCompressed, enc)

		t.Run(name+"/truncated", func(t *testing.T) {
			_, err := Decode(codec, nil, payload[:len(payload)/2], enc, len(input))
			require.ErrorIs(t, err, errs.ErrCodecFailure)
		})

		t.Run(name+"/longer_original", func(t *testing.T) {
			_, err := Decode(codec, nil, payload, enc, len(input)+1)
			require.ErrorIs(t, err, errs.ErrCodecFailure)
		})

		t.Run(name+"/shorter_original", func(t *testing.T) {
			_, err := Decode(codec, nil, payload, enc, len(input)-1)
			require.ErrorIs(t, err, errs.ErrCodecFailure)
		})

		t.Run(name+"/garbage", func(t *testing.T) {
			_, err := Decode(codec, nil, randomData(len(payload), 99), enc, len(input))
			require.ErrorIs(t, err, errs.ErrCodecFailure)
		})
	}
}

func TestDecode_Stored(t *testing.T) {
	codec := NewNoOpCodec()
	payload := []byte("stored block payload")

	out, err := Decode(codec, nil, payload, format.EncodingStored, len(payload))
	require.NoError(t, err)
	require.Equal(t, payload, out)

	// The result is a copy, never an alias of the payload.
	out[0] = 'S'
	require.Equal(t, byte('s'), payload[0])

	_, err = Decode(codec, nil, payload, format.EncodingStored, len(payload)+1)
	require.ErrorIs(t, err, errs.ErrCodecFailure)

	_, err = Decode(codec, nil, payload, format.EncodingCompressed, len(payload))
	require.ErrorIs(t, err, errs.ErrCodecFailure)

	_, err = Decode(codec, nil, payload, format.Encoding(9), len(payload))
	require.ErrorIs(t, err, errs.ErrCodecFailure)
}

func TestDecode_ReusesDestination(t *testing.T) {
	codec := NewLZ4Codec()
	input := textData(10_000)

	payload, enc, err := Encode(codec, nil, input, format.LevelDefault)
	require.NoError(t, err)

	dst := make([]byte, 0, 16*1024)
	out, err := Decode(codec, dst, payload, enc, len(input))
	require.NoError(t, err)
	require.Equal(t, input, out)
	require.Same(t, &dst[:1][0], &out[0])
}

func TestEncode_InvalidLevel(t *testing.T) {
	for name, codec := range getAllCodecs() {
		t.Run(name, func(t *testing.T) {
			for _, level := range []format.Level{0, -1, 6, 100} {
				_, _, err := Encode(codec, nil, []byte("data"), level)
				require.ErrorIs(t, err, errs.ErrInvalidLevel)
			}
		})
	}
}

func TestCreateCodec(t *testing.T) {
	for _, c := range []format.Codec{format.CodecLZ4, format.CodecS2, format.CodecZstd, format.CodecNone} {
		codec, err := CreateCodec(c)
		require.NoError(t, err)
		require.Equal(t, c, codec.Type())
	}

	_, err := CreateCodec(format.Codec(0x0F))
	require.ErrorIs(t, err, errs.ErrInvalidCodec)
}

func TestCompressBound(t *testing.T) {
	for name, codec := range getAllCodecs() {
		t.Run(name, func(t *testing.T) {
			for _, n := range []int{0, 1, 1024, 256 * 1024} {
				require.GreaterOrEqual(t, codec.CompressBound(n), n)
			}
		})
	}
}

func TestCompressionStats(t *testing.T) {
	stats := CompressionStats{
		Algorithm:      format.CodecLZ4,
		OriginalSize:   1000,
		CompressedSize: 250,
		Blocks:         4,
		StoredBlocks:   1,
	}
	require.InDelta(t, 0.25, stats.CompressionRatio(), 1e-9)
	require.InDelta(t, 75.0, stats.SpaceSavings(), 1e-9)

	empty := CompressionStats{}
	require.Zero(t, empty.CompressionRatio())
	require.InDelta(t, 100.0, empty.SpaceSavings(), 1e-9)
}
