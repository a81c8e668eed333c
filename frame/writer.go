package frame

import (
	"errors"
	"fmt"
	"io"

	"github.com/arloliu/zxc/errs"
)

var (
	errHeaderWritten    = errors.New("frame: header already written")
	errHeaderNotWritten = errors.New("frame: header not written")
	errStreamClosed     = errors.New("frame: terminal record already written")
)

// Writer serializes a stream: one header, records in sequence order, then
// the terminal record.
//
// Writer does not buffer. Each record is passed to the underlying writer as
// a prefix write followed by a payload write, so the payload is never copied.
type Writer struct {
	w       io.Writer
	header  Header
	started bool
	closed  bool
	records uint64
	written int64
	prefix  [MaxRecordPrefix]byte
}

// NewWriter creates a Writer on w. A nil w discards the output and only
// counts bytes.
func NewWriter(w io.Writer) *Writer {
	if w == nil {
		w = io.Discard
	}

	return &Writer{w: w}
}

// WriteHeader validates and writes the stream header. It must be called
// exactly once, before any record.
func (w *Writer) WriteHeader(h Header) error {
	if w.started {
		return errHeaderWritten
	}
	if err := h.Validate(); err != nil {
		return err
	}

	var buf [HeaderSize]byte
	if err := w.write(h.AppendTo(buf[:0])); err != nil {
		return err
	}
	w.header = h
	w.started = true

	return nil
}

// WriteRecord writes one non-terminal record.
//
// The record must satisfy the stream invariants: a non-zero original length
// no larger than the header block size, and a payload of EncodedLen bytes no
// longer than the original block.
func (w *Writer) WriteRecord(rec Record) error {
	if !w.started {
		return errHeaderNotWritten
	}
	if w.closed {
		return errStreamClosed
	}
	if int(rec.EncodedLen) != len(rec.Payload) {
		return fmt.Errorf("%w: encoded length %d, payload has %d bytes",
			errs.ErrMalformedRecord, rec.EncodedLen, len(rec.Payload))
	}
	if err := rec.validate(w.header.BlockSize); err != nil {
		return err
	}

	if err := w.write(rec.appendPrefix(w.prefix[:0], w.header.HasChecksum())); err != nil {
		return err
	}
	if err := w.write(rec.Payload); err != nil {
		return err
	}
	w.records++

	return nil
}

// WriteTerminal writes the end-of-stream record. No record may follow it.
func (w *Writer) WriteTerminal() error {
	if !w.started {
		return errHeaderNotWritten
	}
	if w.closed {
		return errStreamClosed
	}

	// The terminal record never carries a checksum.
	if err := w.write(Record{}.appendPrefix(w.prefix[:0], false)); err != nil {
		return err
	}
	w.closed = true

	return nil
}

// Header returns the header written by WriteHeader.
func (w *Writer) Header() Header {
	return w.header
}

// Records returns the number of non-terminal records written.
func (w *Writer) Records() uint64 {
	return w.records
}

// Written returns the number of bytes accepted by the underlying writer.
func (w *Writer) Written() int64 {
	return w.written
}

func (w *Writer) write(p []byte) error {
	n, err := w.w.Write(p)
	w.written += int64(n)
	if err != nil {
		return err
	}
	if n != len(p) {
		return io.ErrShortWrite
	}

	return nil
}
