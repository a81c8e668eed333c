package compress

import "errors"

// errLZ4Corrupt is returned by the scalar decoder for any malformed block.
var errLZ4Corrupt = errors.New("lz4: corrupt block")

const lz4MinMatch = 4

// decodeLZ4Scalar decodes one LZ4 block from src into dst.
//
// Every read and write is bounds checked; a block that references data before
// the start of dst, runs past either buffer, or ends in the middle of a
// sequence is rejected with errLZ4Corrupt. Blocks are independent, so no
// dictionary is consulted.
func decodeLZ4Scalar(dst, src []byte) (int, error) {
	var si, di int
	for {
		// A block never ends with a match, and an empty block is invalid.
		if si >= len(src) {
			return 0, errLZ4Corrupt
		}
		token := src[si]
		si++

		litLen := int(token >> 4)
		if litLen == 0xF {
			var ok bool
			if litLen, si, ok = readLZ4Length(src, si, litLen, len(src)); !ok {
				return 0, errLZ4Corrupt
			}
		}
		if litLen > len(src)-si || litLen > len(dst)-di {
			return 0, errLZ4Corrupt
		}
		di += copy(dst[di:], src[si:si+litLen])
		si += litLen

		// The last sequence carries literals only.
		if si == len(src) {
			if token&0xF != 0 {
				return 0, errLZ4Corrupt
			}

			return di, nil
		}

		if len(src)-si < 2 {
			return 0, errLZ4Corrupt
		}
		offset := int(src[si]) | int(src[si+1])<<8
		si += 2
		if offset == 0 || offset > di {
			return 0, errLZ4Corrupt
		}

		matchLen := int(token & 0xF)
		if matchLen == 0xF {
			var ok bool
			if matchLen, si, ok = readLZ4Length(src, si, matchLen, len(dst)); !ok {
				return 0, errLZ4Corrupt
			}
		}
		matchLen += lz4MinMatch
		if matchLen > len(dst)-di {
			return 0, errLZ4Corrupt
		}

		start := di - offset
		if offset >= matchLen {
			di += copy(dst[di:di+matchLen], dst[start:start+matchLen])
			continue
		}

		// Overlapping match: the copy must see bytes written earlier in the
		// same match, so it proceeds byte by byte.
		for i := range matchLen {
			dst[di+i] = dst[start+i]
		}
		di += matchLen
	}
}

// readLZ4Length reads the 255-continued extension bytes of a literal or match
// length starting at src[si]. Lengths above limit are rejected.
func readLZ4Length(src []byte, si, length, limit int) (int, int, bool) {
	for {
		if si >= len(src) {
			return 0, si, false
		}
		b := src[si]
		si++
		length += int(b)
		if length > limit {
			return 0, si, false
		}
		if b != 0xFF {
			return length, si, true
		}
	}
}
