// Package segment splits an input stream into fixed-size blocks.
package segment

import (
	"errors"
	"fmt"
	"io"

	"github.com/arloliu/zxc/internal/pool"
)

// Block is one segment of the input. Data is valid until the block is
// released back to its Segmenter.
type Block struct {
	Seq  uint64
	Data []byte

	buf *pool.ByteBuffer
}

// Segmenter reads blocks of exactly blockSize bytes from a reader; only the
// last block may be shorter. It is not safe for concurrent use.
type Segmenter struct {
	r         io.Reader
	blockSize int
	pool      *pool.ByteBufferPool
	seq       uint64
	offset    int64
	err       error
}

// New creates a Segmenter over r. blockSize must be positive.
func New(r io.Reader, blockSize int) *Segmenter {
	if blockSize <= 0 {
		panic(fmt.Sprintf("segment: invalid block size %d", blockSize))
	}

	return &Segmenter{
		r:         r,
		blockSize: blockSize,
		pool:      pool.ForSize(blockSize),
	}
}

// Next returns the next block. It returns io.EOF once the input is
// exhausted; a zero-length final read yields no block. Read errors other
// than end of input are returned as-is and are sticky.
func (s *Segmenter) Next() (Block, error) {
	if s.err != nil {
		return Block{}, s.err
	}

	buf := s.pool.Get()
	data := buf.Resize(s.blockSize)

	n, err := io.ReadFull(s.r, data)
	s.offset += int64(n)
	switch {
	case err == nil:
	case errors.Is(err, io.ErrUnexpectedEOF):
		// short final block
		s.err = io.EOF
	case errors.Is(err, io.EOF):
		s.err = io.EOF
		s.pool.Put(buf)

		return Block{}, io.EOF
	default:
		s.err = err
		s.pool.Put(buf)

		return Block{}, err
	}

	b := Block{Seq: s.seq, Data: data[:n], buf: buf}
	s.seq++

	return b, nil
}

// Release returns the block's buffer to the pool. The block must not be
// used afterwards.
func (s *Segmenter) Release(b Block) {
	if b.buf != nil {
		s.pool.Put(b.buf)
	}
}

// BlockSize returns the configured block size.
func (s *Segmenter) BlockSize() int {
	return s.blockSize
}

// Blocks returns the number of blocks produced so far.
func (s *Segmenter) Blocks() uint64 {
	return s.seq
}

// Offset returns the number of input bytes consumed so far.
func (s *Segmenter) Offset() int64 {
	return s.offset
}
