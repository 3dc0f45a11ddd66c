package pool

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/joshuapare/pagekit/internal/format"
	"github.com/joshuapare/pagekit/internal/logger"
	"github.com/joshuapare/pagekit/internal/mmfile"
)

// Snapshot stream layout, zstd-compressed, big-endian:
//
//	header:  magic "PGKS" | version u32 | page_size u32 | next_id u32 | count u32
//	page:    id u32 | xxhash64(page bytes) u64 | page bytes (page_size)
const (
	snapshotVersion    = 1
	snapshotHeaderSize = 4 + 4 + 4 + 4 + 4
	pageRecordHeader   = 4 + 8
)

var snapshotMagic = []byte{'P', 'G', 'K', 'S'}

var (
	// ErrSnapshot indicates a snapshot stream with a bad header or truncated body.
	ErrSnapshot = errors.New("pool: invalid snapshot")

	// ErrChecksum indicates a page whose contents do not match its recorded checksum.
	ErrChecksum = errors.New("pool: page checksum mismatch")
)

// WriteSnapshot writes every page of the pool to w as a compressed snapshot
// and clears the dirty set. Pages that are checked out for writing are
// captured as they currently are.
func (p *Pool) WriteSnapshot(w io.Writer) error {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("failed to create ZSTD encoder: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ids := slices.Sorted(maps.Keys(p.pages))

	hdr := make([]byte, 0, snapshotHeaderSize)
	hdr = append(hdr, snapshotMagic...)
	hdr = binary.BigEndian.AppendUint32(hdr, snapshotVersion)
	hdr = binary.BigEndian.AppendUint32(hdr, uint32(p.pageSize))
	hdr = binary.BigEndian.AppendUint32(hdr, uint32(p.nextID))
	hdr = binary.BigEndian.AppendUint32(hdr, uint32(len(ids)))
	if _, err := enc.Write(hdr); err != nil {
		enc.Close()
		return err
	}

	rec := make([]byte, pageRecordHeader)
	for _, id := range ids {
		page := p.pages[id]
		binary.BigEndian.PutUint32(rec[0:4], uint32(id))
		binary.BigEndian.PutUint64(rec[4:12], xxhash.Sum64(page))
		if _, err := enc.Write(rec); err != nil {
			enc.Close()
			return err
		}
		if _, err := enc.Write(page); err != nil {
			enc.Close()
			return err
		}
	}
	if err := enc.Close(); err != nil {
		return err
	}

	clear(p.dirty)
	logger.Debug("pool: wrote snapshot", "pages", len(ids), "page_size", p.pageSize)
	return nil
}

// ReadSnapshot rebuilds a pool from a snapshot written by WriteSnapshot.
// Every page checksum is verified.
func ReadSnapshot(r io.Reader) (*Pool, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create ZSTD decoder: %w", err)
	}
	defer dec.Close()

	hdr := make([]byte, snapshotHeaderSize)
	if _, err := io.ReadFull(dec, hdr); err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrSnapshot, err)
	}
	if !bytes.Equal(hdr[0:4], snapshotMagic) {
		return nil, fmt.Errorf("%w: bad magic %q", ErrSnapshot, hdr[0:4])
	}
	if v := binary.BigEndian.Uint32(hdr[4:8]); v != snapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrSnapshot, v)
	}
	pageSize := int(binary.BigEndian.Uint32(hdr[8:12]))
	if pageSize < format.MinPageSize || pageSize > format.MaxPageSize {
		return nil, fmt.Errorf("%w: page size %d", ErrSnapshot, pageSize)
	}
	nextID := PageID(binary.BigEndian.Uint32(hdr[12:16]))
	count := int(binary.BigEndian.Uint32(hdr[16:20]))

	p, err := New(Options{PageSize: pageSize})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSnapshot, err)
	}
	p.nextID = nextID

	rec := make([]byte, pageRecordHeader)
	for i := range count {
		if _, err := io.ReadFull(dec, rec); err != nil {
			return nil, fmt.Errorf("%w: page record %d: %w", ErrSnapshot, i, err)
		}
		id := PageID(binary.BigEndian.Uint32(rec[0:4]))
		sum := binary.BigEndian.Uint64(rec[4:12])

		page := make([]byte, pageSize)
		if _, err := io.ReadFull(dec, page); err != nil {
			return nil, fmt.Errorf("%w: page %d: %w", ErrSnapshot, id, err)
		}
		if got := xxhash.Sum64(page); got != sum {
			return nil, fmt.Errorf("%w: page %d: got %016x want %016x", ErrChecksum, id, got, sum)
		}
		if id >= nextID {
			return nil, fmt.Errorf("%w: page %d beyond next id %d", ErrSnapshot, id, nextID)
		}
		if _, dup := p.pages[id]; dup {
			return nil, fmt.Errorf("%w: duplicate page %d", ErrSnapshot, id)
		}
		p.pages[id] = page
	}
	return p, nil
}

// SaveFile writes a snapshot to path. The data is written to a temporary file
// in the same directory, synced to stable storage and renamed over path.
func (p *Pool) SaveFile(path string) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), ".pagekit-snapshot-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	if err = p.WriteSnapshot(f); err != nil {
		return err
	}
	if err = syncFile(f); err != nil {
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// LoadFile reads a snapshot file written by SaveFile. The file is
// memory-mapped while it is decoded; the returned pool does not reference it.
func LoadFile(path string) (*Pool, error) {
	data, cleanup, err := mmfile.Map(path)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	return ReadSnapshot(bytes.NewReader(data))
}
