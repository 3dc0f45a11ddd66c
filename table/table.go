// Package table stores tuples as rows in a chain of slotted pages.
//
// Each row is one live cell: the key is the 8-byte big-endian row id and the
// payload is the tuple encoding. Rows are appended behind the last live cell
// of the tail page, so a scan returns them in insertion order. When the tail
// page cannot take a row the table allocates a new pool page and links it
// through the page header's next-page pointer.
//
// Rows are never updated or deleted; the page allocator has no way to give
// space back.
package table

import (
	"encoding/binary"
	"errors"
	"fmt"
	"iter"
	"sync"

	"github.com/joshuapare/pagekit/internal/buf"
	"github.com/joshuapare/pagekit/internal/logger"
	"github.com/joshuapare/pagekit/page"
	"github.com/joshuapare/pagekit/page/cell"
	"github.com/joshuapare/pagekit/page/pool"
	"github.com/joshuapare/pagekit/tuple"
)

// KeySize is the size of the row id key stored in every cell.
const KeySize = 8

// RowID numbers rows in insertion order, starting at 0.
type RowID uint64

// Row is one decoded table row.
type Row struct {
	ID    RowID
	Tuple tuple.Tuple
}

var (
	// ErrRowTooLarge indicates a row that cannot fit even in an empty page.
	ErrRowTooLarge = errors.New("table: row too large for page")

	// ErrBadKey indicates a cell whose key is not a row id.
	ErrBadKey = errors.New("table: malformed row key")
)

// Table is a rowid-keyed table over a page pool. It is safe for concurrent use.
type Table struct {
	mu     sync.Mutex
	pool   *pool.Pool
	schema tuple.Schema

	pages  []pool.PageID // chain order, first page first
	nextID RowID
	rows   int
}

// New creates an empty table in p and allocates its first page.
func New(p *pool.Pool, schema tuple.Schema) (*Table, error) {
	t, err := newTable(p, schema)
	if err != nil {
		return nil, err
	}
	if _, err := t.addPage(); err != nil {
		return nil, err
	}
	return t, nil
}

func newTable(p *pool.Pool, schema tuple.Schema) (*Table, error) {
	if len(schema) == 0 {
		return nil, fmt.Errorf("%w: no column types provided", tuple.ErrSchema)
	}
	return &Table{pool: p, schema: schema}, nil
}

// Open reattaches a table whose first page is first, following the
// next-page chain and recovering the row count and next row id.
func Open(p *pool.Pool, schema tuple.Schema, first pool.PageID) (*Table, error) {
	t, err := newTable(p, schema)
	if err != nil {
		return nil, err
	}
	seen := make(map[pool.PageID]bool)
	for id, more := first, true; more; {
		if seen[id] {
			return nil, fmt.Errorf("%w: page chain loops at %d", page.ErrCorrupt, id)
		}
		seen[id] = true

		b, err := p.CheckoutReadOnly(id)
		if err != nil {
			return nil, err
		}
		pg, err := page.Open(b)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", id, err)
		}
		t.pages = append(t.pages, id)
		for off, c := range pg.Cells() {
			rowID, err := decodeKey(pg.Key(c, off))
			if err != nil {
				return nil, fmt.Errorf("page %d offset %d: %w", id, off, err)
			}
			t.rows++
			t.nextID = max(t.nextID, rowID+1)
		}
		next := pg.NextPage()
		id, more = pool.PageID(next), next != page.NoOffset
	}
	return t, nil
}

// Schema returns the column types of the table.
func (t *Table) Schema() tuple.Schema { return t.schema }

// FirstPage returns the first page of the chain, which identifies the table
// to Open.
func (t *Table) FirstPage() pool.PageID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pages[0]
}

// Pages returns the page chain in order.
func (t *Table) Pages() []pool.PageID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]pool.PageID(nil), t.pages...)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rows
}

// Insert appends tup as a new row and returns its id.
func (t *Table) Insert(tup tuple.Tuple) (RowID, error) {
	if err := t.schema.Check(tup); err != nil {
		return 0, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.nextID
	key := encodeKey(id)
	payload := tuple.Marshal(tup)

	required := cell.TotalSize(len(key), len(payload))
	if body := t.pool.PageSize() - page.HeaderSize; !fits(body, required) {
		return 0, fmt.Errorf("%w: %d bytes, page body holds %d", ErrRowTooLarge, required, body)
	}

	ok, err := t.appendTo(t.pages[len(t.pages)-1], key, payload)
	if err != nil {
		return 0, err
	}
	if !ok {
		pid, err := t.addPage()
		if err != nil {
			return 0, err
		}
		if ok, err = t.appendTo(pid, key, payload); err != nil {
			return 0, err
		}
		if !ok {
			return 0, fmt.Errorf("%w: %d bytes", ErrRowTooLarge, required)
		}
	}

	t.nextID++
	t.rows++
	return id, nil
}

// appendTo inserts the cell behind the last live cell of page id. It returns
// false, leaving the page untouched, when the page cannot take the cell
// without leaving an unrecoverable sliver of free space.
func (t *Table) appendTo(id pool.PageID, key, payload []byte) (ok bool, err error) {
	b, err := t.pool.Checkout(id)
	if err != nil {
		return false, err
	}
	defer func() {
		if rerr := t.pool.Return(id); rerr != nil && err == nil {
			ok, err = false, rerr
		}
	}()

	pg, err := page.Open(b)
	if err != nil {
		return false, fmt.Errorf("page %d: %w", id, err)
	}
	if !fits(pg.LargestFree(), cell.TotalSize(len(key), len(payload))) {
		return false, nil
	}

	_, err = pg.Insert(key, payload, pg.LastCell())
	switch {
	case errors.Is(err, page.ErrOutOfSpace), errors.Is(err, page.ErrFragmented):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("page %d: %w", id, err)
	}
	return true, nil
}

// fits reports whether a free cell of size free can hold required bytes with
// either nothing left over or a remainder large enough to stay a free cell.
func fits(free, required int) bool {
	extra := free - required
	return extra == 0 || extra >= cell.HeaderSize
}

// addPage allocates and formats a pool page and links it behind the current
// tail.
func (t *Table) addPage() (pool.PageID, error) {
	id := t.pool.AllocatePage()
	b, err := t.pool.Checkout(id)
	if err != nil {
		return 0, err
	}
	_, err = page.Format(b)
	if rerr := t.pool.Return(id); err == nil {
		err = rerr
	}
	if err != nil {
		return 0, err
	}

	if n := len(t.pages); n > 0 {
		tail := t.pages[n-1]
		b, err := t.pool.Checkout(tail)
		if err != nil {
			return 0, err
		}
		pg, err := page.Open(b)
		if err == nil {
			err = pg.SetNextPage(int(id))
		}
		if rerr := t.pool.Return(tail); err == nil {
			err = rerr
		}
		if err != nil {
			return 0, fmt.Errorf("link page %d -> %d: %w", tail, id, err)
		}
	}

	t.pages = append(t.pages, id)
	logger.Debug("table: added page", "page", id, "pages", len(t.pages))
	return id, nil
}

// Scan iterates the rows in insertion order. Pages are read through
// read-only checkouts, so a scan observes each page as of when it reaches it.
// A decode failure is yielded once as a non-nil error and ends the scan.
func (t *Table) Scan() iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		for _, id := range t.Pages() {
			b, err := t.pool.CheckoutReadOnly(id)
			if err != nil {
				yield(Row{}, err)
				return
			}
			pg, err := page.Open(b)
			if err != nil {
				yield(Row{}, fmt.Errorf("page %d: %w", id, err))
				return
			}
			for off, c := range pg.Cells() {
				row, err := decodeRow(pg.Key(c, off), pg.Payload(c, off))
				if err != nil {
					yield(Row{}, fmt.Errorf("page %d offset %d: %w", id, off, err))
					return
				}
				if !yield(row, nil) {
					return
				}
			}
		}
	}
}

// Rows collects every row in insertion order.
func (t *Table) Rows() ([]Row, error) {
	var rows []Row
	for row, err := range t.Scan() {
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Validate checks the allocation invariant of every page in the chain.
func (t *Table) Validate() error {
	for _, id := range t.Pages() {
		b, err := t.pool.CheckoutReadOnly(id)
		if err != nil {
			return err
		}
		pg, err := page.Open(b)
		if err != nil {
			return fmt.Errorf("page %d: %w", id, err)
		}
		if _, _, err := pg.Validate(); err != nil {
			return fmt.Errorf("page %d: %w", id, err)
		}
	}
	return nil
}

// Stats summarizes space usage across the page chain.
type Stats struct {
	Pages          int
	Rows           int
	AllocatedBytes int
	FreeBytes      int
}

// Stats walks every page and sums its chain usage.
func (t *Table) Stats() (Stats, error) {
	var s Stats
	for _, id := range t.Pages() {
		b, err := t.pool.CheckoutReadOnly(id)
		if err != nil {
			return Stats{}, err
		}
		pg, err := page.Open(b)
		if err != nil {
			return Stats{}, fmt.Errorf("page %d: %w", id, err)
		}
		ps := pg.Stats()
		s.Pages++
		s.Rows += ps.LiveCells
		s.AllocatedBytes += ps.AllocatedBytes
		s.FreeBytes += ps.FreeBytes
	}
	return s, nil
}

func encodeKey(id RowID) []byte {
	return binary.BigEndian.AppendUint64(make([]byte, 0, KeySize), uint64(id))
}

func decodeKey(key []byte) (RowID, error) {
	if len(key) != KeySize {
		return 0, fmt.Errorf("%w: %d bytes", ErrBadKey, len(key))
	}
	return RowID(buf.U64BE(key)), nil
}

func decodeRow(key, payload []byte) (Row, error) {
	id, err := decodeKey(key)
	if err != nil {
		return Row{}, err
	}
	tup, err := tuple.Unmarshal(payload)
	if err != nil {
		return Row{}, err
	}
	return Row{ID: id, Tuple: tup}, nil
}
