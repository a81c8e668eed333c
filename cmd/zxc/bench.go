package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/arloliu/zxc/dispatch"
	"github.com/arloliu/zxc/stream"
)

// bench loads path into memory and measures stream throughput without disk
// I/O. Output is discarded through a nil writer, which only counts bytes.
func (a *app) bench(ctx context.Context, opts *cliOptions, path string) error {
	f, err := openInput(path)
	if err != nil {
		return err
	}
	data, err := readAll(f)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return fmt.Errorf("benchmark input %q is empty", path)
	}

	size := int64(len(data))
	streamOpts := a.streamOptions(opts)

	fmt.Fprintf(a.stdout, "Input: %s (%s)\n", path, humanize.IBytes(uint64(size))) //nolint: gosec
	fmt.Fprintf(a.stdout, "Running %d iterations (threads: %d, backend: %s)...\n",
		opts.iterations, opts.threads, dispatch.Select().Variant())

	start := time.Now()
	for range opts.iterations {
		if _, err := stream.Compress(ctx, bytes.NewReader(data), nil, streamOpts...); err != nil {
			return fmt.Errorf("benchmark compress: %w", err)
		}
	}
	compressTime := time.Since(start)

	var packed bytes.Buffer
	res, err := stream.Compress(ctx, bytes.NewReader(data), &packed, streamOpts...)
	if err != nil {
		return fmt.Errorf("benchmark compress: %w", err)
	}

	start = time.Now()
	for range opts.iterations {
		if _, err := stream.Decompress(ctx, bytes.NewReader(packed.Bytes()), nil, streamOpts...); err != nil {
			return fmt.Errorf("benchmark decompress: %w", err)
		}
	}
	decompressTime := time.Since(start)

	total := size * int64(opts.iterations)
	fmt.Fprintf(a.stdout, "Compressed: %s (ratio %.3f, %d blocks, %d workers)\n",
		humanize.IBytes(uint64(res.BytesWritten)), float64(size)/float64(res.BytesWritten), //nolint: gosec
		res.Stats.Blocks, res.Workers)
	fmt.Fprintf(a.stdout, "Avg Compress  : %s\n", throughput(total, compressTime))
	fmt.Fprintf(a.stdout, "Avg Decompress: %s\n", throughput(total, decompressTime))

	return nil
}

func readAll(f *os.File) ([]byte, error) {
	defer f.Close()

	var buf bytes.Buffer
	if info, err := f.Stat(); err == nil {
		buf.Grow(int(info.Size()))
	}
	if _, err := buf.ReadFrom(f); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	return buf.Bytes(), nil
}
