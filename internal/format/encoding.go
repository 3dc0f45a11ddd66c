package format

import (
	"encoding/binary"
	"fmt"

	"github.com/joshuapare/pagekit/internal/buf"
)

// Multi-byte integers in cell and page headers are big-endian. The callers
// bounds-check before reaching these helpers, so they index directly.

// PutU32 writes a uint32 value to the buffer at the specified offset in big-endian format.
func PutU32(b []byte, off int, v uint32) {
	binary.BigEndian.PutUint32(b[off:off+4], v)
}

// ReadU32 reads a uint32 value from the buffer at the specified offset in big-endian format.
func ReadU32(b []byte, off int) uint32 {
	return binary.BigEndian.Uint32(b[off : off+4])
}

// ReadOptOffset decodes an optional offset at off. It returns NoOffset when
// the presence byte is zero. Any non-zero presence byte counts as present.
func ReadOptOffset(b []byte, off int) (int, error) {
	field, ok := buf.Slice(b, off, OptOffsetSize)
	if !ok {
		return NoOffset, fmt.Errorf("optional offset at %d: %w", off, ErrTruncated)
	}
	if field[0] == 0 {
		return NoOffset, nil
	}
	return int(buf.U32BE(field[1:])), nil
}

// PutOptOffset encodes v as an optional offset at off. NoOffset (or any
// negative value) is written as an absent offset with zeroed trailing bytes.
func PutOptOffset(b []byte, off int, v int) error {
	field, ok := buf.Slice(b, off, OptOffsetSize)
	if !ok {
		return fmt.Errorf("optional offset at %d: %w", off, ErrTruncated)
	}
	if v < 0 {
		field[0] = 0
		buf.PutU32BE(field, 1, 0)
		return nil
	}
	if uint64(v) > MaxOffset {
		return fmt.Errorf("optional offset %d: %w", v, ErrOffsetRange)
	}
	field[0] = 1
	buf.PutU32BE(field, 1, uint32(v))
	return nil
}
