package page

import "errors"

var (
	// ErrOutOfSpace indicates the total free space is smaller than the request.
	ErrOutOfSpace = errors.New("page: out of space")

	// ErrFragmented indicates enough total free space exists but no single
	// free cell is large enough to hold the request.
	ErrFragmented = errors.New("page: free space fragmented")

	// ErrBadOffset indicates an offset that does not name a live cell.
	ErrBadOffset = errors.New("page: bad cell offset")

	// ErrCorrupt indicates the chains violate the page invariants.
	ErrCorrupt = errors.New("page: corrupt")

	// ErrPageSize indicates a page buffer too small or too large to format.
	ErrPageSize = errors.New("page: invalid page size")

	// ErrNeedSmall indicates an allocation request smaller than a cell header.
	ErrNeedSmall = errors.New("page: request smaller than a cell header")
)
