// Package pool hands out fixed-size page buffers by page number.
//
// A Pool is the in-memory page store that the table layer builds on. Pages are
// identified by a PageID and checked out exclusively for writing; read-only
// checkouts return a private copy. Every page buffer has the same size.
//
// Pools can be exported and re-imported as compressed, checksummed snapshots
// (see WriteSnapshot and SaveFile). A snapshot is an export of the whole pool,
// not a write-ahead log: pages are only durable once a snapshot is saved.
//
// Pool methods are safe for concurrent use. The byte slices they return are
// not; a writable checkout is owned by the caller until Return.
package pool

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/joshuapare/pagekit/internal/format"
	"github.com/joshuapare/pagekit/internal/logger"
)

// PageID is the number of a page within a pool.
type PageID uint32

var (
	// ErrNoPage indicates a page number that does not exist in the pool.
	ErrNoPage = errors.New("pool: no such page")

	// ErrCheckedOut indicates the page is already checked out for writing.
	ErrCheckedOut = errors.New("pool: page checked out")

	// ErrNotCheckedOut indicates Return was called for a page that was not checked out.
	ErrNotCheckedOut = errors.New("pool: page not checked out")

	// ErrPageSize indicates an unusable page size.
	ErrPageSize = errors.New("pool: invalid page size")
)

// Options configures a Pool.
type Options struct {
	// PageSize is the size of every page buffer in bytes, at most 64 KiB.
	// Default: 4096
	PageSize int
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{PageSize: format.DefaultPageSize}
}

// Pool is an in-memory collection of fixed-size pages.
type Pool struct {
	mu       sync.Mutex
	pageSize int
	pages    map[PageID][]byte
	out      map[PageID]bool
	dirty    map[PageID]struct{}
	nextID   PageID
}

// New creates an empty pool.
func New(opts Options) (*Pool, error) {
	if opts.PageSize == 0 {
		opts.PageSize = format.DefaultPageSize
	}
	if opts.PageSize < format.MinPageSize || opts.PageSize > format.MaxPageSize {
		return nil, fmt.Errorf("%w: %d", ErrPageSize, opts.PageSize)
	}
	return &Pool{
		pageSize: opts.PageSize,
		pages:    make(map[PageID][]byte),
		out:      make(map[PageID]bool),
		dirty:    make(map[PageID]struct{}),
	}, nil
}

// PageSize returns the size of every page buffer.
func (p *Pool) PageSize() int { return p.pageSize }

// NumPages returns the number of pages currently in the pool.
func (p *Pool) NumPages() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pages)
}

// IDs returns the page numbers in ascending order.
func (p *Pool) IDs() []PageID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Sorted(maps.Keys(p.pages))
}

// AllocatePage adds a zeroed page and returns its number. Page numbers are
// never reused, even after Delete.
func (p *Pool) AllocatePage() PageID {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	p.pages[id] = make([]byte, p.pageSize)
	p.dirty[id] = struct{}{}
	logger.Debug("pool: allocated page", "page", id, "size", p.pageSize)
	return id
}

// Checkout returns the buffer of page id for writing. The page stays checked
// out, and further Checkout or Delete calls fail, until Return.
func (p *Pool) Checkout(id PageID) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, ok := p.pages[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNoPage, id)
	}
	if p.out[id] {
		return nil, fmt.Errorf("%w: %d", ErrCheckedOut, id)
	}
	p.out[id] = true
	return b, nil
}

// CheckoutReadOnly returns a copy of page id. It does not block writers and
// the copy does not observe later writes.
func (p *Pool) CheckoutReadOnly(id PageID) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, ok := p.pages[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNoPage, id)
	}
	return slices.Clone(b), nil
}

// Return releases a writable checkout of page id and marks the page dirty.
func (p *Pool) Return(id PageID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.pages[id]; !ok {
		return fmt.Errorf("%w: %d", ErrNoPage, id)
	}
	if !p.out[id] {
		return fmt.Errorf("%w: %d", ErrNotCheckedOut, id)
	}
	delete(p.out, id)
	p.dirty[id] = struct{}{}
	return nil
}

// Delete removes page id from the pool.
func (p *Pool) Delete(id PageID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.pages[id]; !ok {
		return fmt.Errorf("%w: %d", ErrNoPage, id)
	}
	if p.out[id] {
		return fmt.Errorf("%w: %d", ErrCheckedOut, id)
	}
	delete(p.pages, id)
	delete(p.dirty, id)
	return nil
}

// Dirty returns the pages modified since the pool was created or last
// snapshotted, in ascending order.
func (p *Pool) Dirty() []PageID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Sorted(maps.Keys(p.dirty))
}
