package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/arloliu/zxc/format"
	"github.com/arloliu/zxc/frame"
)

type mode int

const (
	modeCompress mode = iota
	modeDecompress
	modeBench
)

func (m mode) String() string {
	switch m {
	case modeCompress:
		return "compress"
	case modeDecompress:
		return "decompress"
	case modeBench:
		return "bench"
	default:
		return "unknown"
	}
}

const defaultIterations = 5

var errUsage = errors.New("usage error")

// cliOptions is the parsed command line.
type cliOptions struct {
	mode       mode
	level      format.Level
	threads    int
	checksum   bool
	keep       bool
	force      bool
	toStdout   bool
	verbose    bool
	quiet      bool
	version    bool
	help       bool
	iterations int
	codec      format.Codec
	blockSize  int
	args       []string
}

func newFlagSet(opts *cliOptions, codecName, blockSize *string, checksum, noChecksum *bool) *pflag.FlagSet {
	flags := pflag.NewFlagSet("zxc", pflag.ContinueOnError)
	flags.SetOutput(io.Discard)
	flags.SortFlags = false

	flags.BoolP("compress", "z", false, "compress FILE (default)")
	flags.BoolP("decompress", "d", false, "decompress FILE (or stdin to stdout)")
	flags.IntVarP(&opts.iterations, "bench", "b", defaultIterations, "benchmark FILE in memory for N iterations")
	flags.Lookup("bench").NoOptDefVal = strconv.Itoa(defaultIterations)

	flags.IntVarP(&opts.threads, "threads", "T", 0, "number of worker threads (0 = all CPUs)")
	flags.BoolVarP(checksum, "checksum", "C", false, "store and verify block checksums")
	flags.BoolVarP(noChecksum, "no-checksum", "N", false, "disable block checksums")
	flags.BoolVarP(&opts.keep, "keep", "k", false, "keep the input file")
	flags.BoolVarP(&opts.force, "force", "f", false, "overwrite the output, allow writing to a terminal")
	flags.BoolVarP(&opts.toStdout, "stdout", "c", false, "write to standard output")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "verbose mode")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "quiet mode")
	flags.BoolVarP(&opts.version, "version", "V", false, "show version information")
	flags.BoolVarP(&opts.help, "help", "h", false, "show this help message")
	flags.StringVar(codecName, "codec", "lz4", "codec family: lz4, s2, zstd or none")
	flags.StringVar(blockSize, "block-size", humanize.IBytes(frame.DefaultBlockSize), "block size for compression (1KiB to 64MiB)")

	return flags
}

// parseArgs parses the command line. The level shorthands -1 to -5 are not
// expressible as pflag flags and are taken out before parsing; the last one
// wins.
func parseArgs(args []string) (*cliOptions, error) {
	opts := &cliOptions{
		mode:  modeCompress,
		level: format.LevelDefault,
	}

	rest := make([]string, 0, len(args))
	for i, arg := range args {
		if arg == "--" {
			rest = append(rest, args[i:]...)
			break
		}
		if level, ok := levelShorthand(arg); ok {
			opts.level = level
			continue
		}
		rest = append(rest, arg)
	}

	var codecName, blockSize string
	var checksum, noChecksum bool
	flags := newFlagSet(opts, &codecName, &blockSize, &checksum, &noChecksum)
	if err := flags.Parse(rest); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			opts.help = true
			return opts, nil
		}

		return nil, fmt.Errorf("%w: %w", errUsage, err)
	}

	// Mode flags: bench beats decompress beats compress.
	switch {
	case flags.Changed("bench"):
		opts.mode = modeBench
	case flags.Changed("decompress"):
		opts.mode = modeDecompress
	}

	opts.checksum = checksum && !noChecksum

	codec, err := format.ParseCodec(codecName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errUsage, err)
	}
	opts.codec = codec

	size, err := humanize.ParseBytes(blockSize)
	if err != nil {
		return nil, fmt.Errorf("%w: block size: %w", errUsage, err)
	}
	if size < frame.MinBlockSize || size > frame.DefaultMaxBlockSize {
		return nil, fmt.Errorf("%w: block size %s outside [%s, %s]", errUsage,
			humanize.IBytes(size), humanize.IBytes(frame.MinBlockSize), humanize.IBytes(frame.DefaultMaxBlockSize))
	}
	opts.blockSize = int(size) //nolint: gosec

	opts.args = flags.Args()
	if len(opts.args) > 0 && opts.mode != modeBench {
		switch opts.args[0] {
		case "z":
			opts.mode = modeCompress
			opts.args = opts.args[1:]
		case "d":
			opts.mode = modeDecompress
			opts.args = opts.args[1:]
		case "b":
			opts.mode = modeBench
			opts.args = opts.args[1:]
		}
	}

	if opts.mode == modeBench && len(opts.args) > 1 {
		n, err := strconv.Atoi(opts.args[1])
		if err != nil {
			return nil, fmt.Errorf("%w: iterations: %w", errUsage, err)
		}
		opts.iterations = n
	}
	if opts.mode == modeBench && opts.iterations <= 0 {
		return nil, fmt.Errorf("%w: iterations must be positive, got %d", errUsage, opts.iterations)
	}

	if opts.threads < 0 {
		return nil, fmt.Errorf("%w: threads must be >= 0, got %d", errUsage, opts.threads)
	}

	return opts, nil
}

func levelShorthand(arg string) (format.Level, bool) {
	if len(arg) != 2 || arg[0] != '-' || arg[1] < '1' || arg[1] > '5' {
		return 0, false
	}

	return format.Level(arg[1] - '0'), true
}

func printHelp(w io.Writer) {
	var codecName, blockSize string
	var checksum, noChecksum bool
	flags := newFlagSet(&cliOptions{}, &codecName, &blockSize, &checksum, &noChecksum)

	fmt.Fprintf(w, "Usage: zxc [<options>] [z|d|b] [INPUT [OUTPUT]]\n\n")
	fmt.Fprintf(w, "With no INPUT, or when INPUT is -, read standard input and write standard output.\n\n")
	fmt.Fprintf(w, "Options:\n")
	fmt.Fprintf(w, "      -1..-5                 compression level (default 3)\n")
	fmt.Fprint(w, flags.FlagUsages())
}
