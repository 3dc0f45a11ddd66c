package page

import (
	"fmt"
	"os"

	"github.com/joshuapare/pagekit/internal/logger"
	"github.com/joshuapare/pagekit/page/cell"
)

// Runtime debug flag for allocation logging - controlled by PAGEKIT_LOG_ALLOC env var.
var logAlloc = os.Getenv("PAGEKIT_LOG_ALLOC") != ""

// Allocate reserves required bytes (cell header included) from the free
// chain and returns the body offset of the reserved span.
//
// The first free cell in chain order with Size() >= required is unlinked. A
// remainder of at least one cell header becomes a new free cell at the front
// of the free chain; a smaller remainder is lost slack.
//
// The span is not a live cell until a header is written there and linked into
// the live chain; Insert does both. On error the page is unchanged.
func (p *Page) Allocate(required int) (int, error) {
	if required < cell.HeaderSize {
		return 0, fmt.Errorf("%w: %d", ErrNeedSmall, required)
	}
	if free := p.FreeSpace(); required > free {
		return 0, fmt.Errorf("%w: need %d, free %d", ErrOutOfSpace, required, free)
	}

	chosenOff, prevOff := NoOffset, NoOffset
	var chosen cell.Cell
	last := NoOffset
	for off, c := range p.FreeCells() {
		if c.Size() >= required {
			chosenOff, prevOff, chosen = off, last, c
			break
		}
		last = off
	}
	if chosenOff == NoOffset {
		return 0, fmt.Errorf("%w: need %d, largest free cell %d", ErrFragmented, required, p.LargestFree())
	}

	// Unlink the chosen cell.
	if prevOff == NoOffset {
		p.freeHead = chosen.Next
	} else {
		prev, err := cell.Decode(p.body, prevOff)
		if err != nil {
			return 0, fmt.Errorf("%w: free chain: %w", ErrCorrupt, err)
		}
		prev.Next = chosen.Next
		if err := prev.Encode(p.body, prevOff); err != nil {
			return 0, err
		}
	}

	extra := chosen.Size() - required
	switch {
	case extra >= cell.HeaderSize:
		remOff := chosenOff + required
		if err := cell.NewFree(extra, p.freeHead).Encode(p.body, remOff); err != nil {
			return 0, err
		}
		p.freeHead = remOff
		if logAlloc {
			logger.Debug("page: split free cell",
				"offset", chosenOff, "need", required, "remainder", extra, "remainder_offset", remOff)
		}
	case extra > 0:
		if logAlloc {
			logger.Debug("page: dropped unrecoverable slack",
				"offset", chosenOff, "need", required, "slack", extra)
		}
	}

	if err := p.writeHeader(); err != nil {
		return 0, err
	}
	return chosenOff, nil
}

// Insert stores key and payload as a new live cell and returns its offset.
//
// With after == NoOffset the cell becomes the new head of the live chain.
// Otherwise after must be the offset of a live cell; the new cell is spliced
// in directly behind it, taking over after's next pointer, and after is
// rewritten to point at the new cell.
//
// Allocation failures (ErrOutOfSpace, ErrFragmented) are returned unchanged
// and leave the page untouched, as does an after offset that is not on the
// live chain (ErrBadOffset).
func (p *Page) Insert(key, payload []byte, after int) (int, error) {
	var prev cell.Cell
	if after != NoOffset {
		c, ok := p.liveCell(after)
		if !ok {
			return 0, fmt.Errorf("%w: %d is not a live cell", ErrBadOffset, after)
		}
		prev = c
	}

	off, err := p.Allocate(cell.TotalSize(len(key), len(payload)))
	if err != nil {
		return 0, err
	}

	next := p.liveHead
	if after != NoOffset {
		next = prev.Next
	}

	c := cell.New(len(key), len(payload), next)
	copy(c.Key(p.body, off), key)
	copy(c.Payload(p.body, off), payload)
	if err := c.Encode(p.body, off); err != nil {
		return 0, err
	}

	if after == NoOffset {
		p.liveHead = off
	} else {
		prev.Next = off
		if err := prev.Encode(p.body, after); err != nil {
			return 0, err
		}
	}

	if err := p.writeHeader(); err != nil {
		return 0, err
	}
	return off, nil
}

// Get returns the key and payload of the live cell at off.
func (p *Page) Get(off int) (key, payload []byte, err error) {
	c, ok := p.liveCell(off)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %d is not a live cell", ErrBadOffset, off)
	}
	return c.Key(p.body, off), c.Payload(p.body, off), nil
}

// LastCell returns the offset of the final cell of the live chain, or NoOffset
// when the chain is empty.
func (p *Page) LastCell() int {
	last := NoOffset
	for off := range p.Cells() {
		last = off
	}
	return last
}

func (p *Page) liveCell(off int) (cell.Cell, bool) {
	for o, c := range p.Cells() {
		if o == off {
			return c, true
		}
	}
	return cell.Cell{}, false
}
