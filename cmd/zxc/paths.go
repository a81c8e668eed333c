package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Extension is appended to compressed files.
const Extension = ".xc"

var (
	errSamePath     = errors.New("input and output paths are identical")
	errOutputExists = errors.New("output exists, use -f to overwrite")
	errNotRegular   = errors.New("not a regular file")
	errTerminal     = errors.New("refusing to write compressed data to a terminal, use -f to force")
)

// ioPlan is where a run reads from and writes to. Empty paths mean stdio.
type ioPlan struct {
	input  string
	output string
}

func (p ioPlan) useStdin() bool  { return p.input == "" }
func (p ioPlan) useStdout() bool { return p.output == "" }

// planPaths resolves input and output from the positional arguments.
//
// No input, or "-", reads stdin and writes stdout. Otherwise the output is
// the second argument, stdout with -c, or derived from the input name: INPUT.xc
// when compressing, INPUT without .xc when decompressing.
func planPaths(m mode, args []string, toStdout bool) (ioPlan, error) {
	if len(args) == 0 || args[0] == "-" {
		return ioPlan{}, nil
	}

	plan := ioPlan{input: args[0]}
	switch {
	case len(args) > 1:
		plan.output = args[1]
	case toStdout:
		return plan, nil
	case m == modeCompress:
		plan.output = plan.input + Extension
	default:
		plan.output = strings.TrimSuffix(plan.input, Extension)
	}

	if plan.output == "-" {
		plan.output = ""
		return plan, nil
	}
	if samePath(plan.input, plan.output) {
		return ioPlan{}, fmt.Errorf("%w: %s", errSamePath, plan.input)
	}

	return plan, nil
}

func samePath(a, b string) bool {
	if filepath.Clean(a) == filepath.Clean(b) {
		return true
	}

	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)

	return errA == nil && errB == nil && absA == absB
}

// openInput opens path for reading. It must be a regular file.
func openInput(path string) (*os.File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("invalid input file %q: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("invalid input file %q: %w", path, errNotRegular)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}

	return f, nil
}

// createOutput creates path with mode 0644. An existing file is truncated
// only when force is set.
func createOutput(path string, force bool) (*os.File, error) {
	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		return nil, fmt.Errorf("invalid output path %q: is a directory", path)
	case err == nil && !force:
		return nil, fmt.Errorf("%w: %s", errOutputExists, path)
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("invalid output path %q: %w", path, err)
	}

	flag := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if !force {
		flag |= os.O_EXCL
	}

	f, err := os.OpenFile(path, flag, 0o644) //nolint: gosec
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: %s", errOutputExists, path)
		}

		return nil, fmt.Errorf("create output: %w", err)
	}

	return f, nil
}
