package format

import "fmt"

type (
	Codec    uint8
	Encoding uint8
	Level    int
)

const (
	CodecLZ4  Codec = 0x0 // CodecLZ4 represents LZ4 block compression.
	CodecS2   Codec = 0x1 // CodecS2 represents S2 block compression.
	CodecZstd Codec = 0x2 // CodecZstd represents Zstandard compression.
	CodecNone Codec = 0x3 // CodecNone stores every block uncompressed.

	EncodingCompressed Encoding = 0x0 // EncodingCompressed marks a payload produced by the codec.
	EncodingStored     Encoding = 0x1 // EncodingStored marks a payload copied verbatim from the input.
)

// Compression levels. Higher levels trade encode speed for ratio; decode
// speed stays roughly constant across levels.
const (
	LevelFastest Level = 1
	LevelFast    Level = 2
	LevelDefault Level = 3
	LevelBetter  Level = 4
	LevelBest    Level = 5
)

func (c Codec) String() string {
	switch c {
	case CodecLZ4:
		return "LZ4"
	case CodecS2:
		return "S2"
	case CodecZstd:
		return "Zstd"
	case CodecNone:
		return "None"
	default:
		return "Unknown"
	}
}

// IsValid reports whether c names a supported codec family.
func (c Codec) IsValid() bool {
	return c <= CodecNone
}

// ParseCodec parses a codec family from its lower-case name.
func ParseCodec(name string) (Codec, error) {
	switch name {
	case "lz4":
		return CodecLZ4, nil
	case "s2":
		return CodecS2, nil
	case "zstd":
		return CodecZstd, nil
	case "none":
		return CodecNone, nil
	default:
		return 0, fmt.Errorf("unknown codec: %q", name)
	}
}

func (e Encoding) String() string {
	switch e {
	case EncodingCompressed:
		return "Compressed"
	case EncodingStored:
		return "Stored"
	default:
		return "Unknown"
	}
}

// IsValid reports whether l is within [LevelFastest, LevelBest].
func (l Level) IsValid() bool {
	return l >= LevelFastest && l <= LevelBest
}
