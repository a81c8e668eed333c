// zxc compresses and decompresses files in the zxc stream format.
//
// Usage mirrors gzip-like tools:
//
//	zxc FILE            # writes FILE.xc, removes FILE
//	zxc -d FILE.xc      # writes FILE, removes FILE.xc
//	zxc -k -5 -C FILE   # best level, checksums, keep FILE
//	cat FILE | zxc > FILE.xc
//	zxc -b FILE 10      # in-memory benchmark, 10 iterations
//
// The codec backend is selected once per process from the CPU; set
// ZXC_BACKEND=scalar to force the portable implementation.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/term"

	"github.com/arloliu/zxc/dispatch"
	"github.com/arloliu/zxc/stream"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const ioBufferSize = 1 << 20

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := &app{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		stdoutIsTerminal: func() bool {
			return term.IsTerminal(int(os.Stdout.Fd())) //nolint: gosec
		},
	}

	if err := a.run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "zxc: %v\n", err)
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, "For help, type: zxc -h")
		}
		stop()
		os.Exit(1)
	}
}

type app struct {
	stdin            io.Reader
	stdout           io.Writer
	stderr           io.Writer
	stdoutIsTerminal func() bool
	logger           *slog.Logger
}

func (a *app) run(ctx context.Context, args []string) error {
	opts, err := parseArgs(args)
	if err != nil {
		return err
	}

	if opts.help {
		printHelp(a.stdout)
		return nil
	}
	if opts.version {
		printVersion(a.stdout)
		return nil
	}

	a.logger = newLogger(a.stderr, opts)

	if opts.mode == modeBench {
		if len(opts.args) == 0 {
			return fmt.Errorf("%w: benchmark requires an input file", errUsage)
		}

		return a.bench(ctx, opts, opts.args[0])
	}

	return a.process(ctx, opts)
}

func newLogger(w io.Writer, opts *cliOptions) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case opts.quiet:
		level = slog.LevelError
	case opts.verbose:
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "zxc %s\n", version)
	fmt.Fprintf(w, "(%s-%s, %s)\n", runtime.GOARCH, runtime.GOOS, runtime.Version())
	fmt.Fprintf(w, "backend: %s\n", dispatch.Select())
	for _, t := range dispatch.Candidates() {
		fmt.Fprintf(w, "  available: %s\n", t.Variant())
	}
}

func (a *app) streamOptions(opts *cliOptions) []stream.Option {
	return []stream.Option{
		stream.WithThreads(opts.threads),
		stream.WithLevel(opts.level),
		stream.WithChecksum(opts.checksum),
		stream.WithCodec(opts.codec),
		stream.WithBlockSize(opts.blockSize),
		stream.WithLogger(a.logger),
	}
}

// process runs a compress or decompress over files or stdio.
func (a *app) process(ctx context.Context, opts *cliOptions) (err error) {
	plan, err := planPaths(opts.mode, opts.args, opts.toStdout)
	if err != nil {
		return err
	}

	if plan.useStdout() && opts.mode == modeCompress && !opts.force && a.stdoutIsTerminal() {
		return errTerminal
	}

	var in io.Reader = a.stdin
	var out io.Writer = a.stdout
	var closers []io.Closer

	if !plan.useStdin() {
		f, err := openInput(plan.input)
		if err != nil {
			return err
		}
		closers = append(closers, f)
		in = f
	}
	if !plan.useStdout() {
		f, err := createOutput(plan.output, opts.force)
		if err != nil {
			_ = closeAll(closers)
			return err
		}
		closers = append(closers, f)
		out = f
	}

	a.logger.Info("starting", "mode", opts.mode, "level", int(opts.level), "checksum", opts.checksum,
		"codec", opts.codec, "backend", dispatch.Select().Variant())

	bw := bufio.NewWriterSize(out, ioBufferSize)
	br := bufio.NewReaderSize(in, ioBufferSize)

	start := time.Now()
	var res stream.Result
	if opts.mode == modeCompress {
		res, err = stream.Compress(ctx, br, bw, a.streamOptions(opts)...)
	} else {
		res, err = stream.Decompress(ctx, br, bw, a.streamOptions(opts)...)
	}
	elapsed := time.Since(start)

	// The prefix written before a failure is valid; keep it.
	if flushErr := bw.Flush(); flushErr != nil {
		err = multierror.Append(err, fmt.Errorf("flush output: %w", flushErr)).ErrorOrNil()
	}
	if closeErr := closeAll(closers); closeErr != nil {
		err = multierror.Append(err, closeErr).ErrorOrNil()
	}

	if err != nil {
		return fmt.Errorf("%s failed after %s written (%d bytes): %w",
			opts.mode, humanize.IBytes(uint64(res.BytesWritten)), res.BytesWritten, err) //nolint: gosec
	}

	a.logger.Info("done",
		"read", humanize.IBytes(uint64(res.BytesRead)),       //nolint: gosec
		"written", humanize.IBytes(uint64(res.BytesWritten)), //nolint: gosec
		"blocks", res.Stats.Blocks,
		"workers", res.Workers,
		"elapsed", elapsed.Round(time.Millisecond),
		"throughput", throughput(res.Stats.OriginalSize, elapsed),
	)

	if !plan.useStdin() && !plan.useStdout() && !opts.keep {
		if err := os.Remove(plan.input); err != nil {
			return fmt.Errorf("remove input: %w", err)
		}
	}

	return nil
}

func closeAll(closers []io.Closer) error {
	var result *multierror.Error
	for _, c := range closers {
		if err := c.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result.ErrorOrNil()
}

func throughput(n int64, elapsed time.Duration) string {
	if elapsed <= 0 {
		return "n/a"
	}

	return humanize.IBytes(uint64(float64(n)/elapsed.Seconds())) + "/s"
}
