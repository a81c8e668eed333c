package stream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/zxc/dispatch"
	"github.com/arloliu/zxc/errs"
	"github.com/arloliu/zxc/format"
	"github.com/arloliu/zxc/frame"
)

const testBlockSize = 16 << 10

var allCodecs = []format.Codec{format.CodecLZ4, format.CodecS2, format.CodecZstd, format.CodecNone}

func randomBytes(size int, seed uint64) []byte {
	rng := rand.New(rand.NewPCG(seed, seed*31+7))
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(rng.Uint32())
	}

	return data
}

func logLines(size int) []byte {
	var buf bytes.Buffer
	for i := 0; buf.Len() < size; i++ {
		fmt.Fprintf(&buf, "ts=%d level=info worker=%d msg=\"block flushed\" bytes=%d\n", 1700000000+i, i%8, (i*977)%65536)
	}

	return buf.Bytes()[:size]
}

// mixed interleaves compressible and random stretches so some blocks are
// stored and others compressed.
func mixed(size int) []byte {
	data := make([]byte, 0, size)
	for i := 0; len(data) < size; i++ {
		if i%3 == 2 {
			data = append(data, randomBytes(testBlockSize, uint64(i))...)
		} else {
			data = append(data, logLines(testBlockSize)...)
		}
	}

	return data[:size]
}

func compressBytes(t *testing.T, input []byte, opts ...Option) []byte {
	t.Helper()

	var out bytes.Buffer
	res, err := Compress(context.Background(), bytes.NewReader(input), &out, opts...)
	require.NoError(t, err)
	require.Equal(t, int64(len(input)), res.BytesRead)
	require.Equal(t, int64(out.Len()), res.BytesWritten)

	return out.Bytes()
}

func decompressBytes(t *testing.T, stream []byte, opts ...Option) []byte {
	t.Helper()

	var out bytes.Buffer
	res, err := Decompress(context.Background(), bytes.NewReader(stream), &out, opts...)
	require.NoError(t, err)
	require.Equal(t, int64(len(stream)), res.BytesRead)
	require.Equal(t, int64(out.Len()), res.BytesWritten)

	return out.Bytes()
}

func TestRoundTrip(t *testing.T) {
	inputs := map[string][]byte{
		"empty":          {},
		"tiny":           []byte("zxc"),
		"compressible":   logLines(300_000),
		"random":         randomBytes(100_000, 1),
		"mixed":          mixed(200_000),
		"exact_multiple": logLines(4 * testBlockSize),
	}

	for _, codec := range allCodecs {
		for level := format.LevelFastest; level <= format.LevelBest; level++ {
			for _, checksum := range []bool{false, true} {
				for name, input := range inputs {
					t.Run(fmt.Sprintf("%s/L%d/checksum=%t/%s", codec, level, checksum, name), func(t *testing.T) {
						stream := compressBytes(t, input,
							WithCodec(codec),
							WithLevel(level),
							WithChecksum(checksum),
							WithBlockSize(testBlockSize),
							WithThreads(2),
						)
						out := decompressBytes(t, stream, WithChecksum(checksum), WithThreads(2))
						require.True(t, bytes.Equal(input, out))
					})
				}
			}
		}
	}
}

func TestRoundTrip_Workers(t *testing.T) {
	input := mixed(500_000)

	for _, workers := range []int{0, 1, 2, 8} {
		for _, backlog := range []int{0, 1, 5} {
			t.Run(fmt.Sprintf("workers=%d/backlog=%d", workers, backlog), func(t *testing.T) {
				stream := compressBytes(t, input,
					WithThreads(workers), WithBacklog(backlog),
					WithBlockSize(testBlockSize), WithChecksum(true))
				out := decompressBytes(t, stream,
					WithThreads(workers), WithBacklog(backlog), WithChecksum(true))
				require.Equal(t, input, out)
			})
		}
	}
}

func TestCompress_DeterministicAcrossWorkers(t *testing.T) {
	input := mixed(400_000)

	for _, codec := range allCodecs {
		t.Run(codec.String(), func(t *testing.T) {
			var reference []byte
			for _, workers := range []int{1, 0, 2, 8} {
				stream := compressBytes(t, input,
					WithCodec(codec), WithThreads(workers),
					WithBlockSize(testBlockSize), WithChecksum(true))
				if reference == nil {
					reference = stream
					continue
				}
				require.Equal(t, reference, stream, "workers=%d", workers)
			}
		})
	}
}

func TestCompress_IncompressibleBlockIsStored(t *testing.T) {
	input := randomBytes(testBlockSize, 42)

	for _, codec := range allCodecs {
		t.Run(codec.String(), func(t *testing.T) {
			stream := compressBytes(t, input, WithCodec(codec), WithBlockSize(testBlockSize))

			r := frame.NewReader(bytes.NewReader(stream), 0)
			_, err := r.ReadHeader()
			require.NoError(t, err)

			rec, err := r.ReadRecord()
			require.NoError(t, err)
			require.Equal(t, uint32(testBlockSize), rec.OriginalLen)
			require.Equal(t, rec.OriginalLen, rec.EncodedLen)
			require.Equal(t, format.EncodingStored, rec.Encoding())
			require.Equal(t, input, rec.Payload)

			_, err = r.ReadRecord()
			require.ErrorIs(t, err, io.EOF)
		})
	}
}

func TestCompress_EmptyInput(t *testing.T) {
	var out bytes.Buffer
	res, err := Compress(context.Background(), bytes.NewReader(nil), &out, WithChecksum(true))
	require.NoError(t, err)
	require.Zero(t, res.Stats.Blocks)
	require.Equal(t, frame.HeaderSize+frame.RecordHeaderSize, out.Len())

	header, err := frame.ParseHeader(out.Bytes())
	require.NoError(t, err)
	require.True(t, header.HasChecksum())
	require.Equal(t, make([]byte, frame.RecordHeaderSize), out.Bytes()[frame.HeaderSize:])

	decoded := decompressBytes(t, out.Bytes(), WithChecksum(true))
	require.Empty(t, decoded)
}

// recordOffsets returns the byte offset of each record payload in stream.
func recordOffsets(t *testing.T, stream []byte) []int {
	t.Helper()

	r := frame.NewReader(bytes.NewReader(stream), 0)
	header, err := r.ReadHeader()
	require.NoError(t, err)

	var offsets []int
	pos := frame.HeaderSize
	for {
		rec, err := r.ReadRecord()
		if errors.Is(err, io.EOF) {
			return offsets
		}
		require.NoError(t, err)
		pos += header.RecordPrefixSize()
		offsets = append(offsets, pos)
		pos += int(rec.EncodedLen)
	}
}

func TestDecompress_ChecksumDetection(t *testing.T) {
	const blockSize = frame.MinBlockSize
	input := mixed(6 * blockSize)

	for _, codec := range allCodecs {
		t.Run(codec.String(), func(t *testing.T) {
			stream := compressBytes(t, input, WithCodec(codec), WithBlockSize(blockSize), WithChecksum(true))
			offsets := recordOffsets(t, stream)
			require.Len(t, offsets, 6)

			const corruptSeq = 2
			start := offsets[corruptSeq]
			for _, bitPos := range []int{0, 1, 7, 8, 13, 64, 255} {
				corrupted := bytes.Clone(stream)
				corrupted[start+bitPos/8] ^= 1 << (bitPos % 8)

				for _, workers := range []int{1, 4} {
					var out bytes.Buffer
					_, err := Decompress(context.Background(), bytes.NewReader(corrupted), &out,
						WithChecksum(true), WithThreads(workers))
					require.ErrorIs(t, err, errs.ErrChecksumMismatch, "bit %d", bitPos)

					var se *errs.StreamError
					require.ErrorAs(t, err, &se)
					require.Equal(t, errs.OpDecompress, se.Op)
					require.Equal(t, uint64(corruptSeq), se.Seq)
					require.Equal(t, int64(corruptSeq*blockSize), se.Offset)

					// Only the blocks before the corrupted one are written.
					require.Equal(t, input[:corruptSeq*blockSize], out.Bytes())
				}
			}
		})
	}
}

func TestDecompress_ChecksumNotVerifiedWhenDisabled(t *testing.T) {
	input := logLines(4 * frame.MinBlockSize)
	stream := compressBytes(t, input, WithCodec(format.CodecNone), WithBlockSize(frame.MinBlockSize), WithChecksum(true))

	offsets := recordOffsets(t, stream)
	corrupted := bytes.Clone(stream)
	corrupted[offsets[1]] ^= 0x01

	// Stored blocks decode without the codec, so the flip goes through unnoticed.
	var out bytes.Buffer
	_, err := Decompress(context.Background(), bytes.NewReader(corrupted), &out, WithChecksum(false))
	require.NoError(t, err)
	require.NotEqual(t, input, out.Bytes())

	_, err = Decompress(context.Background(), bytes.NewReader(corrupted), io.Discard, WithChecksum(true))
	require.ErrorIs(t, err, errs.ErrChecksumMismatch)
}

func TestDecompress_Truncated(t *testing.T) {
	const blockSize = frame.MinBlockSize
	input := logLines(5 * blockSize)
	stream := compressBytes(t, input, WithBlockSize(blockSize), WithChecksum(true))
	offsets := recordOffsets(t, stream)

	tests := []struct {
		name    string
		cut     int
		records int
	}{
		{name: "inside payload 3", cut: offsets[3] + 2, records: 3},
		{name: "inside prefix 3", cut: offsets[3] - 5, records: 3},
		{name: "missing terminal", cut: len(stream) - frame.RecordHeaderSize, records: 5},
		{name: "partial terminal", cut: len(stream) - 3, records: 5},
		{name: "header only", cut: frame.HeaderSize, records: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, workers := range []int{1, 3} {
				var out bytes.Buffer
				res, err := Decompress(context.Background(), bytes.NewReader(stream[:tt.cut]), &out, WithThreads(workers))
				require.ErrorIs(t, err, errs.ErrMalformedRecord)

				var se *errs.StreamError
				require.ErrorAs(t, err, &se)
				require.Equal(t, uint64(tt.records), se.Seq)
				require.True(t, bytes.Equal(input[:tt.records*blockSize], out.Bytes()))
				require.Equal(t, int64(out.Len()), res.BytesWritten)
				require.Equal(t, int64(out.Len()), errs.Offset(err))
			}
		})
	}
}

func TestDecompress_HeaderErrors(t *testing.T) {
	valid := compressBytes(t, logLines(5000), WithBlockSize(1<<20), WithMaxBlockSize(1<<21))

	t.Run("empty input", func(t *testing.T) {
		_, err := Decompress(context.Background(), bytes.NewReader(nil), io.Discard)
		require.ErrorIs(t, err, errs.ErrMalformedHeader)
	})

	t.Run("bad magic", func(t *testing.T) {
		data := bytes.Clone(valid)
		data[0] = 'z'
		_, err := Decompress(context.Background(), bytes.NewReader(data), io.Discard)
		require.ErrorIs(t, err, errs.ErrMalformedHeader)
	})

	t.Run("unsupported version", func(t *testing.T) {
		data := bytes.Clone(valid)
		data[4] = 7
		_, err := Decompress(context.Background(), bytes.NewReader(data), io.Discard)
		require.ErrorIs(t, err, errs.ErrUnsupportedVersion)
	})

	t.Run("block size above limit", func(t *testing.T) {
		_, err := Decompress(context.Background(), bytes.NewReader(valid), io.Discard, WithMaxBlockSize(1<<19))
		require.ErrorIs(t, err, errs.ErrResourceExhaustion)

		var se *errs.StreamError
		require.ErrorAs(t, err, &se)
		require.Zero(t, se.Seq)
		require.Zero(t, se.Offset)
	})
}

func TestDecompress_LeavesTrailingBytes(t *testing.T) {
	first := logLines(50_000)
	second := randomBytes(20_000, 3)

	var concat bytes.Buffer
	concat.Write(compressBytes(t, first, WithBlockSize(testBlockSize)))
	concat.Write(compressBytes(t, second, WithBlockSize(testBlockSize), WithCodec(format.CodecZstd)))

	r := bytes.NewReader(concat.Bytes())

	var out bytes.Buffer
	_, err := Decompress(context.Background(), r, &out)
	require.NoError(t, err)
	require.Equal(t, first, out.Bytes())

	out.Reset()
	_, err = Decompress(context.Background(), r, &out)
	require.NoError(t, err)
	require.Equal(t, second, out.Bytes())
	require.Zero(t, r.Len())
}

func TestBackendEquivalence(t *testing.T) {
	input := mixed(300_000)

	for _, codec := range allCodecs {
		t.Run(codec.String(), func(t *testing.T) {
			var streams [][]byte
			for _, table := range dispatch.Candidates() {
				streams = append(streams, compressBytes(t, input,
					WithCodec(codec), WithBackend(table), WithBlockSize(testBlockSize)))
			}
			for i := 1; i < len(streams); i++ {
				require.Equal(t, streams[0], streams[i])
			}

			for _, table := range dispatch.Candidates() {
				out := decompressBytes(t, streams[0], WithBackend(table))
				require.Equal(t, input, out, "backend %s", table.Variant())
			}
		})
	}
}

func TestCompress_NilWriterCountsBytes(t *testing.T) {
	input := mixed(100_000)
	stream := compressBytes(t, input, WithBlockSize(testBlockSize))

	res, err := Compress(context.Background(), bytes.NewReader(input), nil, WithBlockSize(testBlockSize))
	require.NoError(t, err)
	require.Equal(t, int64(len(stream)), res.BytesWritten)

	res, err = Decompress(context.Background(), bytes.NewReader(stream), nil)
	require.NoError(t, err)
	require.Equal(t, int64(len(input)), res.BytesWritten)
}

// limitWriter accepts up to limit bytes and then fails.
type limitWriter struct {
	buf   bytes.Buffer
	limit int
}

var errDiskFull = errors.New("disk full")

func (l *limitWriter) Write(p []byte) (int, error) {
	room := l.limit - l.buf.Len()
	if room <= 0 {
		return 0, errDiskFull
	}
	if len(p) > room {
		l.buf.Write(p[:room])
		return room, errDiskFull
	}

	return l.buf.Write(p)
}

func TestCompress_WriteFailure(t *testing.T) {
	input := logLines(200_000)
	w := &limitWriter{limit: 5000}

	res, err := Compress(context.Background(), bytes.NewReader(input), w, WithBlockSize(frame.MinBlockSize))
	require.ErrorIs(t, err, errDiskFull)

	var se *errs.StreamError
	require.ErrorAs(t, err, &se)
	require.Equal(t, errs.OpCompress, se.Op)
	require.Equal(t, int64(w.buf.Len()), se.Offset)
	require.Equal(t, int64(w.buf.Len()), res.BytesWritten)
}

func TestDecompress_WriteFailure(t *testing.T) {
	const blockSize = frame.MinBlockSize
	input := logLines(10 * blockSize)
	stream := compressBytes(t, input, WithBlockSize(blockSize))

	w := &limitWriter{limit: 3*blockSize + 100}
	_, err := Decompress(context.Background(), bytes.NewReader(stream), w, WithThreads(4))
	require.ErrorIs(t, err, errDiskFull)

	var se *errs.StreamError
	require.ErrorAs(t, err, &se)
	require.Equal(t, uint64(3), se.Seq)
	require.Equal(t, int64(3*blockSize+100), se.Offset)
	require.Equal(t, input[:3*blockSize+100], w.buf.Bytes())
}

func TestCompress_ReadFailure(t *testing.T) {
	boom := errors.New("read failed")
	r := io.MultiReader(bytes.NewReader(logLines(3*frame.MinBlockSize)), iotest.ErrReader(boom))

	var out bytes.Buffer
	res, err := Compress(context.Background(), r, &out, WithBlockSize(frame.MinBlockSize))
	require.ErrorIs(t, err, boom)

	var se *errs.StreamError
	require.ErrorAs(t, err, &se)
	require.Equal(t, uint64(3), se.Seq)
	require.Equal(t, int64(out.Len()), se.Offset)
	require.Equal(t, int64(3), res.Stats.Blocks)
}

func TestCompress_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Compress(ctx, bytes.NewReader(logLines(100_000)), io.Discard, WithBlockSize(frame.MinBlockSize))
	require.ErrorIs(t, err, context.Canceled)
}

func TestOptions_Validation(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		wantErr error
	}{
		{name: "level too low", opts: []Option{WithLevel(0)}, wantErr: errs.ErrInvalidLevel},
		{name: "level too high", opts: []Option{WithLevel(6)}, wantErr: errs.ErrInvalidLevel},
		{name: "negative threads", opts: []Option{WithThreads(-1)}, wantErr: errs.ErrInvalidThreads},
		{name: "negative backlog", opts: []Option{WithBacklog(-3)}, wantErr: errs.ErrInvalidBacklog},
		{name: "block too small", opts: []Option{WithBlockSize(512)}, wantErr: errs.ErrInvalidBlockSize},
		{name: "block above limit", opts: []Option{WithBlockSize(128 << 20)}, wantErr: errs.ErrInvalidBlockSize},
		{name: "block above custom limit", opts: []Option{WithBlockSize(1 << 20), WithMaxBlockSize(1 << 19)}, wantErr: errs.ErrInvalidBlockSize},
		{name: "limit too small", opts: []Option{WithMaxBlockSize(10)}, wantErr: errs.ErrInvalidBlockSize},
		{name: "unknown codec", opts: []Option{WithCodec(format.Codec(12))}, wantErr: errs.ErrInvalidCodec},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compress(context.Background(), bytes.NewReader(nil), io.Discard, tt.opts...)
			require.ErrorIs(t, err, tt.wantErr)

			_, err = Decompress(context.Background(), bytes.NewReader(nil), io.Discard, tt.opts...)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestResult(t *testing.T) {
	input := mixed(10 * testBlockSize)

	var out bytes.Buffer
	res, err := Compress(context.Background(), bytes.NewReader(input), &out,
		WithBlockSize(testBlockSize), WithThreads(3), WithCodec(format.CodecS2))
	require.NoError(t, err)

	require.Equal(t, format.CodecS2, res.Stats.Algorithm)
	require.Equal(t, format.CodecS2, res.Header.Codec())
	require.Equal(t, int64(10), res.Stats.Blocks)
	require.Equal(t, int64(3), res.Stats.StoredBlocks) // every third block is random
	require.Equal(t, int64(len(input)), res.Stats.OriginalSize)
	require.Equal(t, int64(out.Len()), res.Stats.CompressedSize)
	require.Less(t, res.Stats.CompressionRatio(), 1.0)
	require.Equal(t, 3, res.Workers)
	require.Equal(t, dispatch.Select().Variant(), res.Backend)

	dres, err := Decompress(context.Background(), bytes.NewReader(out.Bytes()), io.Discard)
	require.NoError(t, err)
	require.Equal(t, res.Stats.Blocks, dres.Stats.Blocks)
	require.Equal(t, res.Stats.StoredBlocks, dres.Stats.StoredBlocks)
	require.Equal(t, res.Header, dres.Header)
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	stream := compressBytes(t, logLines(50_000), WithLogger(logger), WithBlockSize(testBlockSize))
	require.Contains(t, buf.String(), "compress stream done")
	require.Contains(t, buf.String(), "blocks=4")

	buf.Reset()
	decompressBytes(t, stream, WithLogger(logger))
	require.Contains(t, buf.String(), "decompress stream done")
}
