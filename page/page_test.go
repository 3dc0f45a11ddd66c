package page

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/pagekit/internal/format"
	"github.com/joshuapare/pagekit/page/cell"
)

func TestNewPage(t *testing.T) {
	p, err := New(1024)
	require.NoError(t, err)

	require.Equal(t, 1024-HeaderSize, p.StorageSize())
	require.Equal(t, 1024, p.Size())
	require.Equal(t, 0, p.AllocatedSpace())
	require.Equal(t, p.StorageSize(), p.FreeSpace())
	require.Equal(t, NoOffset, p.LiveHead())
	require.Equal(t, 0, p.FreeHead())
	require.Equal(t, NoOffset, p.NextPage())

	allocated, free, err := p.Validate()
	require.NoError(t, err)
	require.Equal(t, 0, allocated)
	require.Equal(t, p.StorageSize(), free)

	// One free cell spanning the body.
	n := 0
	for off, c := range p.FreeCells() {
		require.Equal(t, 0, off)
		require.Equal(t, 1024-HeaderSize-cell.HeaderSize, c.KeySize)
		require.Equal(t, 0, c.PayloadSize)
		require.False(t, c.HasNext())
		n++
	}
	require.Equal(t, 1, n)
}

func TestNewPageFreshCapacityProperty(t *testing.T) {
	for _, capacity := range []int{MinSize, 64, 1024, format.DefaultPageSize, 1 << 16} {
		p, err := New(capacity)
		require.NoError(t, err)
		require.Equal(t, capacity-HeaderSize, p.FreeSpace(), "capacity %d", capacity)
		require.Equal(t, 0, p.AllocatedSpace())
		// The largest record that fits leaves room for exactly one header.
		require.Equal(t, capacity-HeaderSize-cell.HeaderSize, p.LargestFree()-cell.HeaderSize)
	}
}

func TestNewPageRejectsBadSizes(t *testing.T) {
	_, err := New(MinSize - 1)
	require.ErrorIs(t, err, ErrPageSize)
	_, err = New(0)
	require.ErrorIs(t, err, ErrPageSize)
}

func TestPageHeaderImage(t *testing.T) {
	p, err := New(64)
	require.NoError(t, err)

	// free head = 0, live head = none, next page = none
	require.Equal(t,
		[]byte{1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
		p.Bytes()[:HeaderSize],
	)

	_, err = p.Insert([]byte{1}, []byte{2}, NoOffset)
	require.NoError(t, err)
	require.NoError(t, p.SetNextPage(7))

	// free head = 15 (after the 15-byte cell), live head = 0, next page = 7
	require.Equal(t,
		[]byte{1, 0, 0, 0, 15, 1, 0, 0, 0, 0, 1, 0, 0, 0, 7},
		p.Bytes()[:HeaderSize],
	)
}

func TestOpenRoundTrip(t *testing.T) {
	p, err := New(256)
	require.NoError(t, err)
	_, err = p.Insert([]byte("k1"), []byte("v1"), NoOffset)
	require.NoError(t, err)
	_, err = p.Insert([]byte("k2"), []byte("v2"), NoOffset)
	require.NoError(t, err)
	require.NoError(t, p.SetNextPage(3))

	image := append([]byte(nil), p.Bytes()...)
	q, err := Open(image)
	require.NoError(t, err)

	require.Equal(t, p.LiveHead(), q.LiveHead())
	require.Equal(t, p.FreeHead(), q.FreeHead())
	require.Equal(t, 3, q.NextPage())
	_, _, err = q.Validate()
	require.NoError(t, err)

	var keys []string
	for off, c := range q.Cells() {
		keys = append(keys, string(q.Key(c, off)))
	}
	require.Equal(t, []string{"k2", "k1"}, keys)
}

func TestOpenRejectsHeadOutsideBody(t *testing.T) {
	b := make([]byte, 64)
	require.NoError(t, format.PutOptOffset(b, format.PageFreeHeadOffset, 60))
	_, err := Open(b)
	require.ErrorIs(t, err, ErrCorrupt)

	_, err = Open(make([]byte, MinSize-1))
	require.ErrorIs(t, err, ErrPageSize)
}

func TestFormatAliasesBuffer(t *testing.T) {
	b := make([]byte, 128)
	p, err := Format(b)
	require.NoError(t, err)

	off, err := p.Insert([]byte("key"), []byte("value"), NoOffset)
	require.NoError(t, err)

	// The caller's buffer holds the page image.
	c, err := cell.Decode(b[HeaderSize:], off)
	require.NoError(t, err)
	require.Equal(t, "key", string(c.Key(b[HeaderSize:], off)))
}

func TestValidateDetectsCycle(t *testing.T) {
	p, err := New(128)
	require.NoError(t, err)
	off, err := p.Insert([]byte("a"), []byte("b"), NoOffset)
	require.NoError(t, err)

	// Point the live cell at itself.
	c, err := p.Cell(off)
	require.NoError(t, err)
	c.Next = off
	require.NoError(t, c.Encode(p.Body(), off))

	_, _, err = p.Validate()
	require.ErrorIs(t, err, ErrCorrupt)

	// Iteration terminates anyway.
	n := 0
	for range p.Cells() {
		n++
	}
	require.LessOrEqual(t, n, p.StorageSize()/cell.HeaderSize+1)
}

func TestValidateDetectsBrokenLink(t *testing.T) {
	p, err := New(128)
	require.NoError(t, err)
	off, err := p.Insert([]byte("a"), []byte("b"), NoOffset)
	require.NoError(t, err)

	c, err := p.Cell(off)
	require.NoError(t, err)
	c.Next = p.StorageSize() - 2
	require.NoError(t, c.Encode(p.Body(), off))

	_, _, err = p.Validate()
	require.ErrorIs(t, err, ErrCorrupt)
	require.ErrorIs(t, err, cell.ErrSize)
}

func TestStats(t *testing.T) {
	p, err := New(512)
	require.NoError(t, err)
	_, err = p.Insert([]byte("abc"), []byte("defg"), NoOffset)
	require.NoError(t, err)

	s := p.Stats()
	require.Equal(t, 1, s.LiveCells)
	require.Equal(t, 1, s.FreeCells)
	require.Equal(t, cell.TotalSize(3, 4), s.AllocatedBytes)
	require.Equal(t, p.StorageSize()-cell.TotalSize(3, 4), s.FreeBytes)
	require.Equal(t, s.FreeBytes, s.LargestFree)
	require.Equal(t, p.StorageSize(), s.StorageSize)
}

func TestIteratorIsRestartableAndStoppable(t *testing.T) {
	p, err := New(512)
	require.NoError(t, err)
	for i := range 5 {
		_, err := p.Insert([]byte{byte(i)}, []byte{byte(i)}, NoOffset)
		require.NoError(t, err)
	}

	seq := p.Cells()
	count := func() int {
		n := 0
		for range seq {
			n++
		}
		return n
	}
	require.Equal(t, 5, count())
	require.Equal(t, 5, count())

	seen := 0
	for range seq {
		seen++
		if seen == 2 {
			break
		}
	}
	require.Equal(t, 2, seen)
}
