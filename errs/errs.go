// Package errs defines the error values returned by zxc.
//
// Every failure surfaced by the stream driver wraps exactly one of the
// sentinel errors below, so callers classify failures with errors.Is:
//
//	_, err := stream.Decompress(ctx, r, w)
//	if errors.Is(err, errs.ErrChecksumMismatch) {
//	    // the stream is corrupted, the written prefix is still valid
//	}
//
// Stream failures are additionally wrapped in *StreamError, which records the
// sequence number of the failing block and how many output bytes were flushed
// before the failure.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedHeader is returned when the stream header has a bad magic,
	// reserved bits set, an invalid block size, or is truncated.
	ErrMalformedHeader = errors.New("malformed stream header")
	// ErrUnsupportedVersion is returned when the header format version is unknown.
	ErrUnsupportedVersion = fmt.Errorf("%w: unsupported format version", ErrMalformedHeader)
	// ErrMalformedRecord is returned when a block record violates the length
	// invariants or is truncated.
	ErrMalformedRecord = errors.New("malformed block record")
	// ErrChecksumMismatch is returned when a block payload does not match its checksum.
	ErrChecksumMismatch = errors.New("block checksum mismatch")
	// ErrCodecFailure is returned when the codec cannot encode or decode a block.
	ErrCodecFailure = errors.New("codec failure")
	// ErrResourceExhaustion is returned when a block buffer would exceed the
	// configured allocation limit.
	ErrResourceExhaustion = errors.New("block buffer exceeds allocation limit")

	ErrInvalidLevel     = errors.New("invalid compression level")
	ErrInvalidBlockSize = errors.New("invalid block size")
	ErrInvalidCodec     = errors.New("invalid codec")
	ErrInvalidThreads   = errors.New("invalid thread count")
	ErrInvalidBacklog   = errors.New("invalid backlog")
)

// Op identifies the stream direction in a StreamError.
type Op string

const (
	OpCompress   Op = "compress"
	OpDecompress Op = "decompress"
)

// StreamError is the terminal failure of a stream.
//
// Seq is the sequence number of the first block that could not be flushed.
// Offset is the number of bytes written to the destination before the failure;
// those bytes are left in place.
type StreamError struct {
	Op     Op
	Seq    uint64
	Offset int64
	Err    error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("zxc %s: block %d (after %d output bytes): %v", e.Op, e.Seq, e.Offset, e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// Offset returns the number of output bytes flushed before err, or -1 when
// err does not carry a StreamError.
func Offset(err error) int64 {
	var se *StreamError
	if errors.As(err, &se) {
		return se.Offset
	}

	return -1
}
