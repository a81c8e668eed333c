package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/arloliu/zxc/errs"
)

var (
	errHeaderRead    = errors.New("frame: header already read")
	errHeaderNotRead = errors.New("frame: header not read")
)

// Reader parses a stream produced by Writer.
//
// Reader consumes exactly the bytes of the stream: it never reads past the
// terminal record, so data following a stream stays in the underlying reader.
type Reader struct {
	r            io.Reader
	header       Header
	maxBlockSize uint32
	started      bool
	done         bool
	records      uint64
	consumed     int64
	prefix       [MaxRecordPrefix]byte
}

// NewReader creates a Reader on r that rejects streams whose block size
// exceeds maxBlockSize. A maxBlockSize of zero selects DefaultMaxBlockSize.
func NewReader(r io.Reader, maxBlockSize int) *Reader {
	if maxBlockSize <= 0 {
		maxBlockSize = DefaultMaxBlockSize
	}

	return &Reader{r: r, maxBlockSize: uint32(min(maxBlockSize, MaxBlockSize))} //nolint: gosec
}

// ReadHeader reads and validates the stream header. It must be called once,
// before any record.
//
// Returns:
//   - Header: parsed header
//   - error: ErrMalformedHeader (also for truncated input), ErrUnsupportedVersion,
//     ErrResourceExhaustion when the block size exceeds the configured limit
func (r *Reader) ReadHeader() (Header, error) {
	if r.started {
		return Header{}, errHeaderRead
	}

	var buf [HeaderSize]byte
	if err := r.readFull(buf[:]); err != nil {
		if isTruncated(err) {
			return Header{}, fmt.Errorf("%w: truncated header", errs.ErrMalformedHeader)
		}

		return Header{}, err
	}

	var h Header
	if err := h.Parse(buf[:]); err != nil {
		return Header{}, err
	}
	if h.BlockSize > r.maxBlockSize {
		return Header{}, fmt.Errorf("%w: block size %d exceeds limit %d",
			errs.ErrResourceExhaustion, h.BlockSize, r.maxBlockSize)
	}

	r.header = h
	r.started = true

	return h, nil
}

// ReadRecord reads the next record into a newly allocated payload buffer.
// It returns io.EOF once the terminal record has been read.
func (r *Reader) ReadRecord() (Record, error) {
	return r.ReadRecordInto(nil)
}

// ReadRecordInto reads the next record, reusing buf for the payload when it
// has enough capacity. It returns io.EOF once the terminal record has been read.
//
// Returns:
//   - Record: the record; Payload aliases buf when buf was large enough
//   - error: io.EOF after the terminal record, ErrMalformedRecord for a
//     truncated record or one violating the length invariants, or an I/O error
func (r *Reader) ReadRecordInto(buf []byte) (Record, error) {
	if !r.started {
		return Record{}, errHeaderNotRead
	}
	if r.done {
		return Record{}, io.EOF
	}

	prefix := r.prefix[:RecordHeaderSize]
	if err := r.readFull(prefix); err != nil {
		if isTruncated(err) {
			return Record{}, fmt.Errorf("%w: stream ends before record %d", errs.ErrMalformedRecord, r.records)
		}

		return Record{}, err
	}

	rec := Record{
		OriginalLen: binary.LittleEndian.Uint32(prefix[0:4]),
		EncodedLen:  binary.LittleEndian.Uint32(prefix[4:8]),
	}
	if rec.IsTerminal() {
		r.done = true
		return Record{}, io.EOF
	}
	if err := rec.validate(r.header.BlockSize); err != nil {
		return Record{}, err
	}

	if r.header.HasChecksum() {
		sum := r.prefix[RecordHeaderSize:MaxRecordPrefix]
		if err := r.readFull(sum); err != nil {
			return Record{}, r.truncatedRecord(err)
		}
		rec.Checksum = binary.LittleEndian.Uint32(sum)
	}

	n := int(rec.EncodedLen)
	if cap(buf) < n {
		buf = make([]byte, n)
	}
	rec.Payload = buf[:n]
	if err := r.readFull(rec.Payload); err != nil {
		return Record{}, r.truncatedRecord(err)
	}
	r.records++

	return rec, nil
}

// Header returns the header read by ReadHeader.
func (r *Reader) Header() Header {
	return r.header
}

// Records returns the number of non-terminal records read.
func (r *Reader) Records() uint64 {
	return r.records
}

// Consumed returns the number of bytes read from the underlying reader.
func (r *Reader) Consumed() int64 {
	return r.consumed
}

func (r *Reader) readFull(p []byte) error {
	n, err := io.ReadFull(r.r, p)
	r.consumed += int64(n)

	return err
}

func (r *Reader) truncatedRecord(err error) error {
	if isTruncated(err) {
		return fmt.Errorf("%w: record %d is truncated", errs.ErrMalformedRecord, r.records)
	}

	return err
}

func isTruncated(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
