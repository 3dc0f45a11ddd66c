package page

import (
	"iter"

	"github.com/joshuapare/pagekit/page/cell"
)

// Cells iterates the live chain from its head, yielding (offset, cell) pairs.
// The sequence is lazy and can be ranged over again at any time; it never
// mutates the page. Iteration stops early at a cell that fails to decode.
func (p *Page) Cells() iter.Seq2[int, cell.Cell] {
	return p.chain(p.liveHead)
}

// FreeCells iterates the free chain from its head, yielding (offset, cell) pairs.
func (p *Page) FreeCells() iter.Seq2[int, cell.Cell] {
	return p.chain(p.freeHead)
}

func (p *Page) chain(head int) iter.Seq2[int, cell.Cell] {
	return func(yield func(int, cell.Cell) bool) {
		limit := p.maxChainLen()
		for off, n := head, 0; off != NoOffset && n <= limit; n++ {
			c, err := cell.Decode(p.body, off)
			if err != nil {
				return
			}
			if !yield(off, c) {
				return
			}
			off = c.Next
		}
	}
}
