package tuple

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/joshuapare/pagekit/internal/buf"
)

// Encoding (little-endian):
//
//	u64 value count
//	per value: u32 tag, then
//	  uint/int/float  4 bytes
//	  double          8 bytes
//	  varchar         u64 length + UTF-8 bytes
//	  null            nothing

var (
	// ErrTruncated indicates encoded tuple bytes ended early.
	ErrTruncated = errors.New("tuple: truncated encoding")

	// ErrUnknownTag indicates an encoded value with an unknown tag.
	ErrUnknownTag = errors.New("tuple: unknown value tag")

	// ErrTrailing indicates bytes left over after the last value.
	ErrTrailing = errors.New("tuple: trailing bytes")
)

// Size returns the encoded size of t.
func Size(t Tuple) int {
	n := 8
	for _, v := range t {
		n += 4
		switch v := v.(type) {
		case Uint32, Int32, Float32:
			n += 4
		case Float64:
			n += 8
		case VarChar:
			n += 8 + len(v)
		}
	}
	return n
}

// Marshal encodes t.
func Marshal(t Tuple) []byte {
	return Append(make([]byte, 0, Size(t)), t)
}

// Append appends the encoding of t to dst.
func Append(dst []byte, t Tuple) []byte {
	dst = binary.LittleEndian.AppendUint64(dst, uint64(len(t)))
	for _, v := range t {
		dst = binary.LittleEndian.AppendUint32(dst, uint32(v.Tag()))
		switch v := v.(type) {
		case Uint32:
			dst = binary.LittleEndian.AppendUint32(dst, uint32(v))
		case Int32:
			dst = binary.LittleEndian.AppendUint32(dst, uint32(v))
		case Float32:
			dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(float32(v)))
		case Float64:
			dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(float64(v)))
		case VarChar:
			dst = binary.LittleEndian.AppendUint64(dst, uint64(len(v)))
			dst = append(dst, string(v)...)
		}
	}
	return dst
}

// Unmarshal decodes a tuple encoded by Marshal. The result does not alias b.
func Unmarshal(b []byte) (Tuple, error) {
	d := decoder{b: b}
	count, err := d.u64()
	if err != nil {
		return nil, err
	}
	// Each value takes at least its 4-byte tag.
	if count > uint64(len(b)-d.off)/4 {
		return nil, fmt.Errorf("%w: %d values in %d bytes", ErrTruncated, count, len(b))
	}
	t := make(Tuple, 0, int(count))
	for i := range int(count) {
		v, err := d.value()
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		t = append(t, v)
	}
	if d.off != len(b) {
		return nil, fmt.Errorf("%w: %d bytes", ErrTrailing, len(b)-d.off)
	}
	return t, nil
}

type decoder struct {
	b   []byte
	off int
}

func (d *decoder) take(n int) ([]byte, error) {
	field, ok := buf.Slice(d.b, d.off, n)
	if !ok {
		return nil, fmt.Errorf("%w: need %d bytes at %d", ErrTruncated, n, d.off)
	}
	d.off += n
	return field, nil
}

func (d *decoder) u32() (uint32, error) {
	field, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return buf.U32LE(field), nil
}

func (d *decoder) u64() (uint64, error) {
	field, err := d.take(8)
	if err != nil {
		return 0, err
	}
	return buf.U64LE(field), nil
}

func (d *decoder) value() (Value, error) {
	tag, err := d.u32()
	if err != nil {
		return nil, err
	}
	switch Tag(tag) {
	case TagUint32:
		n, err := d.u32()
		return Uint32(n), err
	case TagInt32:
		n, err := d.u32()
		return Int32(int32(n)), err
	case TagFloat32:
		n, err := d.u32()
		return Float32(math.Float32frombits(n)), err
	case TagFloat64:
		n, err := d.u64()
		return Float64(math.Float64frombits(n)), err
	case TagVarChar:
		n, err := d.u64()
		if err != nil {
			return nil, err
		}
		if n > uint64(len(d.b)-d.off) {
			return nil, fmt.Errorf("%w: varchar of %d bytes", ErrTruncated, n)
		}
		s, err := d.take(int(n))
		if err != nil {
			return nil, err
		}
		return VarChar(s), nil
	case TagNull:
		return Null{}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownTag, tag)
	}
}
