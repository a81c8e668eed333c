// Package stream compresses and decompresses zxc streams in parallel.
//
// Compress splits its input into fixed-size blocks, compresses them on a
// pool of workers and writes them in input order, so the output bytes are
// the same for any number of workers:
//
//	res, err := stream.Compress(ctx, src, dst,
//	    stream.WithLevel(format.LevelBest),
//	    stream.WithChecksum(true),
//	)
//
// Decompress reads the stream header, decodes blocks on the workers and
// writes them in order. The stream is self-describing: no original size is
// needed.
//
// On failure both directions stop dispatching new blocks, write every block
// before the failing one and return an *errs.StreamError. Output already
// written is left in place.
package stream

import (
	"context"
	"errors"
	"io"

	"github.com/arloliu/zxc/compress"
	"github.com/arloliu/zxc/dispatch"
	"github.com/arloliu/zxc/errs"
	"github.com/arloliu/zxc/format"
	"github.com/arloliu/zxc/frame"
	"github.com/arloliu/zxc/internal/pool"
	"github.com/arloliu/zxc/internal/scheduler"
	"github.com/arloliu/zxc/internal/segment"
)

// Result describes a finished stream operation.
type Result struct {
	// Stats holds sizes and block counts. OriginalSize is the uncompressed
	// side and CompressedSize the stream side, whichever the direction.
	Stats compress.CompressionStats
	// BytesRead is the number of bytes consumed from the reader.
	BytesRead int64
	// BytesWritten is the number of bytes accepted by the writer.
	BytesWritten int64
	// Header is the stream header written or read.
	Header frame.Header
	// Workers is the number of worker goroutines used.
	Workers int
	// Backend is the dispatch variant that ran the codec.
	Backend dispatch.Variant
}

// encodedBlock is a compressed block waiting to be written.
type encodedBlock struct {
	block  segment.Block
	out    *pool.ByteBuffer
	record frame.Record
	stored bool
}

// Compress reads r to the end and writes a zxc stream to w. A nil w
// discards the output and only counts bytes.
func Compress(ctx context.Context, r io.Reader, w io.Writer, opts ...Option) (Result, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return Result{}, err
	}

	codec, err := cfg.table.Codec(cfg.codec)
	if err != nil {
		return Result{}, err
	}

	fw := frame.NewWriter(w)
	header := frame.NewHeader(cfg.codec, cfg.blockSize, cfg.checksum)
	res := Result{
		Header:  header,
		Backend: cfg.table.Variant(),
		Stats:   compress.CompressionStats{Algorithm: cfg.codec},
	}
	if err := fw.WriteHeader(header); err != nil {
		res.BytesWritten = fw.Written()
		return res, &errs.StreamError{Op: errs.OpCompress, Offset: fw.Written(), Err: err}
	}

	seg := segment.New(r, cfg.blockSize)
	bound := codec.CompressBound(cfg.blockSize)
	outPool := pool.ForSize(bound)
	level := cfg.level
	checksum := cfg.checksum

	cfg.logger.Debug("compress stream",
		"codec", cfg.codec, "level", level, "block_size", cfg.blockSize,
		"checksum", checksum, "threads", cfg.threads, "backend", res.Backend)

	produce := func(_ context.Context, _ uint64) (segment.Block, error) {
		return seg.Next()
	}

	work := func(_ context.Context, _ uint64, b segment.Block) (encodedBlock, error) {
		out := outPool.Get()
		payload, enc, err := compress.Encode(codec, out.Resize(bound), b.Data, level)
		if err != nil {
			outPool.Put(out)
			seg.Release(b)

			return encodedBlock{}, err
		}

		return encodedBlock{
			block:  b,
			out:    out,
			record: frame.NewRecord(len(b.Data), payload, checksum),
			stored: enc == format.EncodingStored,
		}, nil
	}

	flush := func(_ uint64, eb encodedBlock) (int64, error) {
		defer func() {
			outPool.Put(eb.out)
			seg.Release(eb.block)
		}()

		before := fw.Written()
		err := fw.WriteRecord(eb.record)
		if eb.stored {
			res.Stats.StoredBlocks++
		}

		return fw.Written() - before, err
	}

	stats, err := scheduler.Run(ctx, scheduler.Config{
		Op:      errs.OpCompress,
		Workers: cfg.threads,
		Backlog: cfg.backlog,
	}, produce, work, flush)

	res.Workers = stats.Workers
	res.Stats.Blocks = int64(stats.Items) //nolint: gosec
	res.BytesRead = seg.Offset()

	if err == nil {
		if terr := fw.WriteTerminal(); terr != nil {
			err = &errs.StreamError{Op: errs.OpCompress, Seq: stats.Items, Err: terr}
		}
	}

	res.BytesWritten = fw.Written()
	res.Stats.OriginalSize = res.BytesRead
	res.Stats.CompressedSize = res.BytesWritten

	if err != nil {
		setOffset(err, res.BytesWritten)
		cfg.logger.Debug("compress stream failed", "error", err, "written", res.BytesWritten)

		return res, err
	}

	cfg.logger.Debug("compress stream done",
		"blocks", res.Stats.Blocks, "stored_blocks", res.Stats.StoredBlocks,
		"read", res.BytesRead, "written", res.BytesWritten,
		"ratio", res.Stats.CompressionRatio(), "workers", res.Workers)

	return res, nil
}

// decodedBlock is a decompressed block waiting to be written.
type decodedBlock struct {
	out *pool.ByteBuffer
	// data aliases out.B
	data   []byte
	stored bool
}

// Decompress reads one zxc stream from r and writes the original bytes to w.
// A nil w discards the output and only counts bytes. Bytes following the
// stream's terminal record are left unread in r.
func Decompress(ctx context.Context, r io.Reader, w io.Writer, opts ...Option) (Result, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return Result{}, err
	}
	if w == nil {
		w = io.Discard
	}

	fr := frame.NewReader(r, cfg.maxBlockSize)
	res := Result{Backend: cfg.table.Variant()}

	header, err := fr.ReadHeader()
	if err != nil {
		res.BytesRead = fr.Consumed()
		return res, &errs.StreamError{Op: errs.OpDecompress, Err: err}
	}
	res.Header = header
	res.Stats.Algorithm = header.Codec()

	codec, err := cfg.table.Codec(header.Codec())
	if err != nil {
		return res, &errs.StreamError{Op: errs.OpDecompress, Err: err}
	}

	blockPool := pool.ForSize(int(header.BlockSize))
	verify := cfg.checksum && header.HasChecksum()

	cfg.logger.Debug("decompress stream",
		"codec", header.Codec(), "block_size", header.BlockSize,
		"checksum", header.HasChecksum(), "verify", verify,
		"threads", cfg.threads, "backend", res.Backend)

	type encoded struct {
		in     *pool.ByteBuffer
		record frame.Record
	}

	produce := func(_ context.Context, _ uint64) (encoded, error) {
		in := blockPool.Get()
		rec, err := fr.ReadRecordInto(in.B[:0])
		if err != nil {
			blockPool.Put(in)
			return encoded{}, err
		}
		in.B = rec.Payload

		return encoded{in: in, record: rec}, nil
	}

	work := func(_ context.Context, _ uint64, e encoded) (decodedBlock, error) {
		defer blockPool.Put(e.in)

		if verify {
			if err := e.record.VerifyChecksum(); err != nil {
				return decodedBlock{}, err
			}
		}

		out := blockPool.Get()
		enc := e.record.Encoding()
		data, err := compress.Decode(codec, out.B, e.record.Payload, enc, int(e.record.OriginalLen))
		if err != nil {
			blockPool.Put(out)
			return decodedBlock{}, err
		}
		out.B = data

		return decodedBlock{out: out, data: data, stored: enc == format.EncodingStored}, nil
	}

	flush := func(_ uint64, db decodedBlock) (int64, error) {
		defer blockPool.Put(db.out)

		n, err := w.Write(db.data)
		if err == nil && n != len(db.data) {
			err = io.ErrShortWrite
		}
		if db.stored {
			res.Stats.StoredBlocks++
		}

		return int64(n), err
	}

	stats, err := scheduler.Run(ctx, scheduler.Config{
		Op:      errs.OpDecompress,
		Workers: cfg.threads,
		Backlog: cfg.backlog,
	}, produce, work, flush)

	res.Workers = stats.Workers
	res.Stats.Blocks = int64(stats.Items) //nolint: gosec
	res.BytesRead = fr.Consumed()
	res.BytesWritten = stats.Flushed
	res.Stats.OriginalSize = res.BytesWritten
	res.Stats.CompressedSize = res.BytesRead

	if err != nil {
		cfg.logger.Debug("decompress stream failed", "error", err, "written", res.BytesWritten)
		return res, err
	}

	cfg.logger.Debug("decompress stream done",
		"blocks", res.Stats.Blocks, "stored_blocks", res.Stats.StoredBlocks,
		"read", res.BytesRead, "written", res.BytesWritten, "workers", res.Workers)

	return res, nil
}

// setOffset replaces the offset of a stream error with the total number of
// bytes written, which for compression includes the header.
func setOffset(err error, written int64) {
	var se *errs.StreamError
	if errors.As(err, &se) {
		se.Offset = written
	}
}
