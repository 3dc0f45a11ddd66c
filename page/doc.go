// Package page implements a fixed-capacity page that stores variable-length
// cells through an in-page free-list allocator.
//
// # Layout
//
// A page is one flat byte buffer: a 15-byte header followed by the body.
//
//	0x00  5  first free cell  (optional offset)
//	0x05  5  first live cell  (optional offset)
//	0x0A  5  next page number (optional offset)
//	0x0F  …  body
//
// Offsets stored in the header and in cell headers are relative to the start
// of the body. Two singly-linked chains of cells are threaded through the body
// using the cell codec from package cell: the free chain (unused space) and the
// live chain (stored records). A new page holds one free cell spanning the
// whole body and an empty live chain.
//
// # Allocation
//
// Allocate walks the free chain and takes the first cell that is large enough
// (first-fit in chain order). The chosen cell is unlinked; if the remainder
// can hold a cell header it becomes a new free cell pushed onto the front of
// the free chain. Remainders smaller than a header cannot be represented and
// are lost to the page (see Limitations).
//
// Insert allocates a cell, writes key and payload in place and links it into
// the live chain either at the head (after == NoOffset, so repeated head
// inserts read back newest first) or directly after an existing live cell.
//
// # Invariant
//
// For every page the sum of free cell sizes plus the sum of live cell sizes
// equals the body size. Validate recomputes it; tests call it after every
// mutation.
//
// # Limitations
//
//   - No compaction. HasSpaceFor compares against total free space, so it may
//     report room that no single free cell can provide. Allocate reports that
//     case as ErrFragmented.
//   - Unrecoverable slack. A split remainder of 1..12 bytes is neither
//     allocated nor tracked as free, and Validate reports the page as short by
//     exactly that many bytes.
//   - No deletion. Nothing returns live space to the free chain.
//
// # Thread Safety
//
// Page instances are not thread-safe. Callers must synchronize access
// externally, for example by holding a page pool checkout.
package page
