package format

import "errors"

var (
	// ErrTruncated indicates the buffer lacked the bytes required for a structure.
	ErrTruncated = errors.New("format: truncated buffer")
	// ErrOffsetRange indicates an offset that cannot be represented as a uint32.
	ErrOffsetRange = errors.New("format: offset out of range")
)
