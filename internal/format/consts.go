// Package format houses the byte-level layout shared by the cell codec and the
// page allocator. The goal is to keep offset arithmetic in one place so the
// higher-level packages never hard-code field positions.
package format

import "math"

const (
	// OptOffsetSize is the encoded size of an optional offset: one presence
	// byte followed by a big-endian uint32. The four offset bytes are always
	// reserved, and written as zero when the offset is absent.
	//
	//	0x00  1  has_offset (0 | 1)
	//	0x01  4  offset (big-endian)
	OptOffsetSize = 1 + 4

	// CellHeaderSize is the fixed size of every cell header (free or live).
	//
	// Cell header layout (big-endian):
	//
	//	Offset  Size  Description
	//	0x00    4     key_size
	//	0x04    4     payload_size
	//	0x08    1     has_next (0 | 1)
	//	0x09    4     next_offset (zero when has_next == 0)
	//	0x0D    ...   key bytes, then payload bytes
	CellHeaderSize = 4 + 4 + OptOffsetSize

	// CellKeySizeOffset is the offset of key_size within a cell header.
	CellKeySizeOffset = 0x00
	// CellPayloadSizeOffset is the offset of payload_size within a cell header.
	CellPayloadSizeOffset = 0x04
	// CellNextOffset is the offset of the optional next pointer within a cell header.
	CellNextOffset = 0x08

	// PageHeaderSize is the size of the page header preceding the page body.
	//
	// Page header layout:
	//
	//	0x00  5  first free cell (optional offset)
	//	0x05  5  first live cell (optional offset)
	//	0x0A  5  next page number (optional offset)
	PageHeaderSize = 3 * OptOffsetSize

	// PageFreeHeadOffset is the offset of the free-chain head in the page header.
	PageFreeHeadOffset = 0x00
	// PageLiveHeadOffset is the offset of the live-chain head in the page header.
	PageLiveHeadOffset = 0x05
	// PageNextPageOffset is the offset of the successor page number in the page header.
	PageNextPageOffset = 0x0A

	// DefaultPageSize is the size of the buffers handed out by the page pool.
	DefaultPageSize = 4096

	// MinPageSize is the smallest page that can hold its header and one free cell.
	MinPageSize = PageHeaderSize + CellHeaderSize

	// MaxPageSize is the largest page the pool hands out or accepts from a snapshot.
	MaxPageSize = 1 << 16

	// NoOffset marks an absent optional offset.
	NoOffset = -1

	// MaxOffset is the largest offset representable in an optional offset field.
	MaxOffset = math.MaxUint32
)
