// Package cell encodes and decodes the variable-length records ("cells")
// stored inside a page body.
//
// A cell is a fixed 13-byte header followed by the key bytes and then the
// payload bytes:
//
//	Offset  Size  Description
//	0x00    4     key_size (big-endian)
//	0x04    4     payload_size (big-endian)
//	0x08    1     has_next (0 | 1)
//	0x09    4     next_offset (big-endian, zero when has_next == 0)
//	0x0D    key_size      key bytes
//	...     payload_size  payload bytes
//
// The trailing next_offset bytes are reserved even when there is no next cell,
// so every header is exactly HeaderSize bytes and offset arithmetic never has
// to branch on the presence flag.
//
// Free and live cells share this encoding. A free cell stores its whole span in
// key_size with a zero payload_size; only Size() is meaningful for it. The
// codec itself never records which chain a cell belongs to.
//
// The codec holds no state and never allocates: Decode reads a header out of a
// caller-owned buffer, Encode writes one back, and Key/Payload return views
// into the same buffer so callers write record content in place.
package cell

import (
	"errors"
	"fmt"
	"math"

	"github.com/joshuapare/pagekit/internal/buf"
	"github.com/joshuapare/pagekit/internal/format"
)

// HeaderSize is the encoded size of a cell header.
const HeaderSize = format.CellHeaderSize

// NoNext marks the last cell of a chain.
const NoNext = format.NoOffset

// ErrSize indicates the buffer is too small to hold the claimed header or cell.
var ErrSize = errors.New("cell: buffer too small")

// ErrFieldRange indicates a size or offset that does not fit its 32-bit field.
var ErrFieldRange = errors.New("cell: field out of range")

// Cell is a decoded cell header. It is a transient view: the only durable
// identity of a cell is the (buffer, offset) pair it was decoded from.
type Cell struct {
	KeySize     int // Bytes in the key region
	PayloadSize int // Bytes in the payload region
	Next        int // Offset of the next cell in the same chain, or NoNext
}

// New returns a live cell header.
func New(keySize, payloadSize, next int) Cell {
	return Cell{KeySize: keySize, PayloadSize: payloadSize, Next: next}
}

// NewFree returns a free cell header spanning size bytes (header included).
// size must be at least HeaderSize.
func NewFree(size, next int) Cell {
	return Cell{KeySize: size - HeaderSize, PayloadSize: 0, Next: next}
}

// TotalSize returns the encoded size of a cell with the given key and payload lengths.
func TotalSize(keyLen, payloadLen int) int {
	return keyLen + payloadLen + HeaderSize
}

// Size returns the total encoded size of c, header included.
func (c Cell) Size() int {
	return TotalSize(c.KeySize, c.PayloadSize)
}

// HasNext reports whether c links to another cell.
func (c Cell) HasNext() bool {
	return c.Next >= 0
}

func (c Cell) String() string {
	if !c.HasNext() {
		return fmt.Sprintf("cell{key=%d payload=%d next=none}", c.KeySize, c.PayloadSize)
	}
	return fmt.Sprintf("cell{key=%d payload=%d next=%d}", c.KeySize, c.PayloadSize, c.Next)
}

// Decode parses the cell at off within b.
//
// The header is only trusted once off+HeaderSize fits in b, and the cell is
// only returned once off+Size() fits as well. Both failures wrap ErrSize, and
// Decode never reads past len(b).
func Decode(b []byte, off int) (Cell, error) {
	if _, err := buf.CheckRange(len(b), off, HeaderSize); err != nil {
		return Cell{}, fmt.Errorf("%w: header at %d: %w", ErrSize, off, err)
	}
	next, err := format.ReadOptOffset(b, off+format.CellNextOffset)
	if err != nil {
		return Cell{}, fmt.Errorf("%w: %w", ErrSize, err)
	}
	c := Cell{
		KeySize:     int(format.ReadU32(b, off+format.CellKeySizeOffset)),
		PayloadSize: int(format.ReadU32(b, off+format.CellPayloadSizeOffset)),
		Next:        next,
	}
	body, ok := buf.AddOverflowSafe(c.KeySize, c.PayloadSize)
	if !ok {
		return Cell{}, fmt.Errorf("%w: cell at %d: size overflow", ErrSize, off)
	}
	if _, err := buf.CheckRange(len(b), off, body+HeaderSize); err != nil {
		return Cell{}, fmt.Errorf("%w: cell at %d: %w", ErrSize, off, err)
	}
	return c, nil
}

// Encode writes the header of c at off within b. Key and payload content is
// not touched; write it through Key and Payload.
func (c Cell) Encode(b []byte, off int) error {
	if _, err := buf.CheckRange(len(b), off, HeaderSize); err != nil {
		return fmt.Errorf("%w: header at %d: %w", ErrSize, off, err)
	}
	if c.KeySize < 0 || uint64(c.KeySize) > math.MaxUint32 ||
		c.PayloadSize < 0 || uint64(c.PayloadSize) > math.MaxUint32 {
		return fmt.Errorf("%w: key=%d payload=%d", ErrFieldRange, c.KeySize, c.PayloadSize)
	}
	if err := format.PutOptOffset(b, off+format.CellNextOffset, c.Next); err != nil {
		return fmt.Errorf("%w: %w", ErrFieldRange, err)
	}
	format.PutU32(b, off+format.CellKeySizeOffset, uint32(c.KeySize))
	format.PutU32(b, off+format.CellPayloadSizeOffset, uint32(c.PayloadSize))
	return nil
}

// Key returns the key region of the cell at off as a mutable view into b.
// It returns nil when the region does not fit in b.
func (c Cell) Key(b []byte, off int) []byte {
	view, _ := buf.Slice(b, off+HeaderSize, c.KeySize)
	return view
}

// Payload returns the payload region of the cell at off as a mutable view into b.
// It returns nil when the region does not fit in b.
func (c Cell) Payload(b []byte, off int) []byte {
	view, _ := buf.Slice(b, off+HeaderSize+c.KeySize, c.PayloadSize)
	return view
}
