package pool

import (
	"io"
	"math/bits"
	"sync"
)

// Size class bounds for block buffers.
const (
	MinClassSize = 1024 * 4         // 4KiB
	MaxClassSize = 1024 * 1024 * 64 // 64MiB
)

type ByteBuffer struct {
	// B is the underlying byte slice.
	B []byte
}

// NewByteBuffer creates a new ByteBuffer with the specified capacity.
func NewByteBuffer(capacity int) *ByteBuffer {
	return &ByteBuffer{
		B: make([]byte, 0, capacity),
	}
}

// Bytes returns the underlying byte slice.
func (bb *ByteBuffer) Bytes() []byte {
	return bb.B
}

// Reset empties the buffer but retains the allocated memory for reuse.
func (bb *ByteBuffer) Reset() {
	bb.B = bb.B[:0]
}

// Len returns the length of the buffer.
func (bb *ByteBuffer) Len() int {
	return len(bb.B)
}

// Cap returns the capacity of the buffer.
func (bb *ByteBuffer) Cap() int {
	return cap(bb.B)
}

// Resize sets the buffer length to n, reallocating when the capacity is
// too small. The contents are unspecified after a reallocation.
func (bb *ByteBuffer) Resize(n int) []byte {
	if n < 0 {
		panic("Resize: negative length")
	}
	if cap(bb.B) < n {
		bb.B = make([]byte, n)
		return bb.B
	}
	bb.B = bb.B[:n]

	return bb.B
}

// Write appends the contents of data to the buffer, growing it as needed.
func (bb *ByteBuffer) Write(data []byte) (int, error) {
	bb.B = append(bb.B, data...)
	return len(data), nil
}

// WriteTo writes the contents of the buffer to w.
func (bb *ByteBuffer) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(bb.B)
	return int64(n), err
}

// ByteBufferPool is a pool of ByteBuffers to minimize allocations.
//
// It uses sync.Pool internally. Buffers that grew beyond maxThreshold are
// dropped on Put instead of being retained.
type ByteBufferPool struct {
	pool         sync.Pool
	maxThreshold int
}

// NewByteBufferPool creates a new ByteBufferPool with buffers of the specified default size.
func NewByteBufferPool(defaultSize int, maxThreshold int) *ByteBufferPool {
	return &ByteBufferPool{
		pool: sync.Pool{
			New: func() any {
				return NewByteBuffer(defaultSize)
			},
		},
		maxThreshold: maxThreshold,
	}
}

// Get retrieves a ByteBuffer from the pool.
func (bbp *ByteBufferPool) Get() *ByteBuffer {
	bb, _ := bbp.pool.Get().(*ByteBuffer)
	return bb
}

// Put returns a ByteBuffer to the pool for reuse.
func (bbp *ByteBufferPool) Put(bb *ByteBuffer) {
	if bb == nil {
		return
	}

	if bbp.maxThreshold > 0 && cap(bb.B) > bbp.maxThreshold {
		return
	}

	bb.Reset()
	bbp.pool.Put(bb)
}

// classPools holds one pool per power-of-two size class between
// MinClassSize and MaxClassSize, shared by every stream in the process.
var classPools [bits.UintSize]*ByteBufferPool

func init() {
	for class := classOf(MinClassSize); class <= classOf(MaxClassSize); class++ {
		classPools[class] = NewByteBufferPool(1<<class, 1<<class)
	}
}

// classOf returns the power-of-two size class index that holds size bytes.
func classOf(size int) int {
	if size < MinClassSize {
		size = MinClassSize
	}

	return bits.Len(uint(size - 1))
}

// ForSize returns the shared pool whose buffers hold at least size bytes.
// Sizes above MaxClassSize get a private pool.
func ForSize(size int) *ByteBufferPool {
	if size > MaxClassSize {
		return NewByteBufferPool(size, size)
	}

	return classPools[classOf(size)]
}
