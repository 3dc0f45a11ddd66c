package page

import (
	"fmt"

	"github.com/joshuapare/pagekit/internal/format"
	"github.com/joshuapare/pagekit/page/cell"
)

const (
	// HeaderSize is the size of the page header preceding the body.
	HeaderSize = format.PageHeaderSize

	// MinSize is the smallest page that can hold its header and one free cell.
	MinSize = format.MinPageSize

	// NoOffset marks an absent offset: an empty chain, a missing successor
	// page, or head insertion when passed to Insert.
	NoOffset = format.NoOffset
)

// Page is a fixed-capacity page backed by a single byte buffer. The header
// fields are cached on the struct and written back to the buffer after every
// mutation, so Bytes() is always a complete page image.
type Page struct {
	data []byte // header + body
	body []byte // data[HeaderSize:]

	freeHead int
	liveHead int
	nextPage int
}

// New allocates a page of capacity bytes and formats it.
func New(capacity int) (*Page, error) {
	if err := checkSize(capacity); err != nil {
		return nil, err
	}
	return Format(make([]byte, capacity))
}

// Format initializes b as an empty page in place: one free cell spanning the
// body, no live cells, no successor page. The page aliases b.
func Format(b []byte) (*Page, error) {
	if err := checkSize(len(b)); err != nil {
		return nil, err
	}
	p := &Page{
		data:     b,
		body:     b[HeaderSize:],
		freeHead: 0,
		liveHead: NoOffset,
		nextPage: NoOffset,
	}
	if err := cell.NewFree(len(p.body), cell.NoNext).Encode(p.body, 0); err != nil {
		return nil, err
	}
	if err := p.writeHeader(); err != nil {
		return nil, err
	}
	return p, nil
}

// Open wraps an existing page image in place, reading the chain heads from
// its header. Open checks that the heads point inside the body; call Validate
// for a full consistency check.
func Open(b []byte) (*Page, error) {
	if err := checkSize(len(b)); err != nil {
		return nil, err
	}
	p := &Page{data: b, body: b[HeaderSize:]}

	var err error
	if p.freeHead, err = format.ReadOptOffset(b, format.PageFreeHeadOffset); err != nil {
		return nil, fmt.Errorf("page header: %w", err)
	}
	if p.liveHead, err = format.ReadOptOffset(b, format.PageLiveHeadOffset); err != nil {
		return nil, fmt.Errorf("page header: %w", err)
	}
	if p.nextPage, err = format.ReadOptOffset(b, format.PageNextPageOffset); err != nil {
		return nil, fmt.Errorf("page header: %w", err)
	}
	for _, head := range []int{p.freeHead, p.liveHead} {
		if head != NoOffset && head+cell.HeaderSize > len(p.body) {
			return nil, fmt.Errorf("%w: chain head %d outside body of %d bytes", ErrCorrupt, head, len(p.body))
		}
	}
	return p, nil
}

func checkSize(n int) error {
	if n < MinSize {
		return fmt.Errorf("%w: %d < %d", ErrPageSize, n, MinSize)
	}
	if uint64(n) > format.MaxOffset {
		return fmt.Errorf("%w: %d exceeds offset range", ErrPageSize, n)
	}
	return nil
}

func (p *Page) writeHeader() error {
	if err := format.PutOptOffset(p.data, format.PageFreeHeadOffset, p.freeHead); err != nil {
		return err
	}
	if err := format.PutOptOffset(p.data, format.PageLiveHeadOffset, p.liveHead); err != nil {
		return err
	}
	return format.PutOptOffset(p.data, format.PageNextPageOffset, p.nextPage)
}

// Bytes returns the full page image (header and body). It aliases the page.
func (p *Page) Bytes() []byte { return p.data }

// Body returns the body region that cell offsets are relative to. It aliases the page.
func (p *Page) Body() []byte { return p.body }

// Size returns the total page size, header included.
func (p *Page) Size() int { return len(p.data) }

// StorageSize returns the size of the body available to cells.
func (p *Page) StorageSize() int { return len(p.body) }

// FreeHead returns the offset of the first free cell, or NoOffset.
func (p *Page) FreeHead() int { return p.freeHead }

// LiveHead returns the offset of the first live cell, or NoOffset.
func (p *Page) LiveHead() int { return p.liveHead }

// NextPage returns the successor page number, or NoOffset.
func (p *Page) NextPage() int { return p.nextPage }

// SetNextPage records the successor page number. Pass NoOffset to clear it.
func (p *Page) SetNextPage(n int) error {
	prev := p.nextPage
	p.nextPage = n
	if err := p.writeHeader(); err != nil {
		p.nextPage = prev
		return err
	}
	return nil
}

// Cell decodes the cell at off. It does not check which chain the cell is on.
func (p *Page) Cell(off int) (cell.Cell, error) {
	return cell.Decode(p.body, off)
}

// Key returns the key bytes of the live cell c at off. It aliases the page.
func (p *Page) Key(c cell.Cell, off int) []byte { return c.Key(p.body, off) }

// Payload returns the payload bytes of the live cell c at off. It aliases the page.
func (p *Page) Payload(c cell.Cell, off int) []byte { return c.Payload(p.body, off) }

// FreeSpace returns the sum of the sizes of all free cells.
func (p *Page) FreeSpace() int {
	total := 0
	for _, c := range p.FreeCells() {
		total += c.Size()
	}
	return total
}

// AllocatedSpace returns the sum of the sizes of all live cells.
func (p *Page) AllocatedSpace() int {
	total := 0
	for _, c := range p.Cells() {
		total += c.Size()
	}
	return total
}

// LargestFree returns the size of the largest free cell, which bounds the
// biggest allocation that can currently succeed.
func (p *Page) LargestFree() int {
	largest := 0
	for _, c := range p.FreeCells() {
		largest = max(largest, c.Size())
	}
	return largest
}

// HasSpaceFor reports whether the total free space could hold a cell with the
// given key and payload lengths. This is a sum check, not a contiguous one:
// it can be true while Insert still fails with ErrFragmented.
func (p *Page) HasSpaceFor(keyLen, payloadLen int) bool {
	return cell.TotalSize(keyLen, payloadLen) <= p.FreeSpace()
}

// Validate walks both chains and checks that free plus allocated space equals
// the body size. It returns the allocated and free byte counts it observed.
// It is a consistency self-check, not a hot-path call.
func (p *Page) Validate() (allocated, free int, err error) {
	allocated, err = p.sumChain(p.liveHead)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: live chain: %w", ErrCorrupt, err)
	}
	free, err = p.sumChain(p.freeHead)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: free chain: %w", ErrCorrupt, err)
	}
	if allocated+free != len(p.body) {
		return allocated, free, fmt.Errorf(
			"%w: allocated %d + free %d != body %d",
			ErrCorrupt, allocated, free, len(p.body),
		)
	}
	return allocated, free, nil
}

// sumChain walks a chain reporting decode failures and cycles, which the
// lazy iterators silently stop on.
func (p *Page) sumChain(head int) (int, error) {
	total := 0
	steps := 0
	for off := head; off != NoOffset; {
		if steps > p.maxChainLen() {
			return 0, fmt.Errorf("cycle detected at offset %d", off)
		}
		c, err := cell.Decode(p.body, off)
		if err != nil {
			return 0, err
		}
		total += c.Size()
		off = c.Next
		steps++
	}
	return total, nil
}

// maxChainLen bounds how many cells can fit in the body, so any longer walk
// must be looping.
func (p *Page) maxChainLen() int {
	return len(p.body) / cell.HeaderSize
}

// Stats summarizes chain usage for diagnostics.
type Stats struct {
	LiveCells      int
	FreeCells      int
	AllocatedBytes int
	FreeBytes      int
	LargestFree    int
	StorageSize    int
}

// Stats collects a Stats snapshot by walking both chains.
func (p *Page) Stats() Stats {
	s := Stats{StorageSize: len(p.body)}
	for _, c := range p.Cells() {
		s.LiveCells++
		s.AllocatedBytes += c.Size()
	}
	for _, c := range p.FreeCells() {
		s.FreeCells++
		s.FreeBytes += c.Size()
		s.LargestFree = max(s.LargestFree, c.Size())
	}
	return s
}
