package frame

import "github.com/arloliu/zxc/internal/hash"

const (
	// Magic identifies a zxc stream.
	Magic = "ZXCF"
	// Version is the only container format version this package reads and writes.
	Version = 1

	// Flag bit masks
	ChecksumMask = 0x01 // Mask for checksum bit (bit 0)
	ReservedMask = 0x0E // Mask for reserved bits (bits 1-3), must be zero
	CodecMask    = 0xF0 // Mask for codec family (bits 4-7)
	codecShift   = 4
)

// offsets and section sizes in the stream
const (
	HeaderSize       = 10                              // magic(4) | version(1) | flags(1) | blockSize(4)
	RecordHeaderSize = 8                               // originalLength(4) | encodedLength(4)
	ChecksumSize     = hash.Size                       // optional per-record checksum
	MaxRecordPrefix  = RecordHeaderSize + ChecksumSize // largest fixed record prefix
	versionOffset    = 4                               // byte offset of the version field
	flagOffset       = 5                               // byte offset of the flag field
	blockSizeOffset  = 6                               // byte offset of the block size field
)

// Block size limits
const (
	MinBlockSize     = 1 << 10   // smallest block size a header may declare
	MaxBlockSize     = 1 << 30   // largest block size a header may declare
	DefaultBlockSize = 256 << 10 // default block size for new streams
	// DefaultMaxBlockSize is the largest block size readers and writers
	// accept unless configured otherwise.
	DefaultMaxBlockSize = 64 << 20
)
