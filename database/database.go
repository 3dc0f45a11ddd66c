// Package database keeps a catalog of named tables over one page pool.
//
// The catalog is itself a table stored on page 0 of the pool, holding one
// (name, column types, first page) row per table. Creating a table under an
// existing name appends a new catalog row; the latest row wins and the
// replaced table's pages are dropped from the pool. A pool written out with
// SaveFile can therefore be reopened with Load.
package database

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"unicode"

	"github.com/joshuapare/pagekit/internal/logger"
	"github.com/joshuapare/pagekit/page/pool"
	"github.com/joshuapare/pagekit/table"
	"github.com/joshuapare/pagekit/tuple"
)

// CatalogPage is the first page of the catalog table.
const CatalogPage pool.PageID = 0

var catalogSchema = tuple.Schema{tuple.TagVarChar, tuple.TagVarChar, tuple.TagUint32}

var (
	// ErrNoTable indicates a table name that is not in the catalog.
	ErrNoTable = errors.New("database: no such table")

	// ErrName indicates an empty or whitespace-containing table name.
	ErrName = errors.New("database: invalid table name")

	// ErrCatalog indicates a catalog row that cannot be interpreted.
	ErrCatalog = errors.New("database: corrupt catalog")
)

// Options configures a Database.
type Options struct {
	// PageSize is the pool page size in bytes.
	// Default: 4096
	PageSize int
}

// Database is a set of named tables. It is safe for concurrent use.
//
// Operations on a table hold a read lock for their whole duration, so a
// Create that replaces the table waits for them before dropping its pages.
type Database struct {
	mu      sync.RWMutex
	pool    *pool.Pool
	catalog *table.Table
	tables  map[string]*table.Table
}

// New creates an empty database with a fresh pool.
func New(opts Options) (*Database, error) {
	p, err := pool.New(pool.Options{PageSize: opts.PageSize})
	if err != nil {
		return nil, err
	}
	catalog, err := table.New(p, catalogSchema)
	if err != nil {
		return nil, fmt.Errorf("create catalog: %w", err)
	}
	if first := catalog.FirstPage(); first != CatalogPage {
		return nil, fmt.Errorf("%w: catalog landed on page %d", ErrCatalog, first)
	}
	return &Database{
		pool:    p,
		catalog: catalog,
		tables:  make(map[string]*table.Table),
	}, nil
}

// Open rebuilds a database from a pool whose page 0 holds the catalog.
func Open(p *pool.Pool) (*Database, error) {
	catalog, err := table.Open(p, catalogSchema, CatalogPage)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	rows, err := catalog.Rows()
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	type entry struct {
		schema tuple.Schema
		first  pool.PageID
	}
	latest := make(map[string]entry)
	for _, row := range rows {
		name, schema, first, err := decodeEntry(row.Tuple)
		if err != nil {
			return nil, fmt.Errorf("catalog row %d: %w", row.ID, err)
		}
		latest[name] = entry{schema, first}
	}

	db := &Database{pool: p, catalog: catalog, tables: make(map[string]*table.Table, len(latest))}
	for name, e := range latest {
		t, err := table.Open(p, e.schema, e.first)
		if err != nil {
			return nil, fmt.Errorf("open table %q: %w", name, err)
		}
		db.tables[name] = t
	}
	logger.Debug("database: opened", "tables", len(db.tables), "pages", p.NumPages())
	return db, nil
}

// Load reads a snapshot file written by Save and opens it.
func Load(path string) (*Database, error) {
	p, err := pool.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return Open(p)
}

// Save writes the whole pool, catalog included, to path.
func (db *Database) Save(path string) error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.pool.SaveFile(path)
}

// Pool returns the page pool backing the database.
func (db *Database) Pool() *pool.Pool { return db.pool }

// Create makes an empty table called name, replacing any table of that name.
// It reports whether a table was replaced.
func (db *Database) Create(name string, schema tuple.Schema) (replaced bool, err error) {
	if name == "" || strings.ContainsFunc(name, unicode.IsSpace) {
		return false, fmt.Errorf("%w: %q", ErrName, name)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	t, err := table.New(db.pool, schema)
	if err != nil {
		return false, err
	}
	if _, err := db.catalog.Insert(encodeEntry(name, schema, t.FirstPage())); err != nil {
		db.dropPages(t)
		return false, fmt.Errorf("record table %q: %w", name, err)
	}

	old, replaced := db.tables[name]
	if replaced {
		db.dropPages(old)
	}
	db.tables[name] = t
	logger.Debug("database: created table", "name", name, "schema", schema.String(), "replaced", replaced)
	return replaced, nil
}

func (db *Database) dropPages(t *table.Table) {
	for _, id := range t.Pages() {
		if err := db.pool.Delete(id); err != nil {
			logger.Warn("database: failed to drop page", "page", id, "error", err)
		}
	}
}

// Get returns the table called name. A table obtained this way is not
// protected against a concurrent Create replacing it.
func (db *Database) Get(name string) (*table.Table, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	t, ok := db.tables[name]
	return t, ok
}

// lookup requires db.mu to be held.
func (db *Database) lookup(name string) (*table.Table, error) {
	t, ok := db.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoTable, name)
	}
	return t, nil
}

// Insert parses values against the table's column types and appends the row.
func (db *Database) Insert(name string, values []string) (table.RowID, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	t, err := db.lookup(name)
	if err != nil {
		return 0, err
	}
	tup, err := tuple.FromStringsWithSchema(values, t.Schema())
	if err != nil {
		return 0, err
	}
	return t.Insert(tup)
}

// Select returns every row of the table in text form, in insertion order.
func (db *Database) Select(name string) ([][]string, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	t, err := db.lookup(name)
	if err != nil {
		return nil, err
	}
	var out [][]string
	for row, err := range t.Scan() {
		if err != nil {
			return nil, fmt.Errorf("scan %q: %w", name, err)
		}
		out = append(out, row.Tuple.Strings())
	}
	return out, nil
}

// Names returns the table names in sorted order.
func (db *Database) Names() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.names()
}

func (db *Database) names() []string {
	return slices.Sorted(maps.Keys(db.tables))
}

// TableStats pairs a table name with its space usage.
type TableStats struct {
	Name   string
	Schema string
	table.Stats
}

// Stats returns per-table usage in name order.
func (db *Database) Stats() ([]TableStats, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var out []TableStats
	for _, name := range db.names() {
		t := db.tables[name]
		s, err := t.Stats()
		if err != nil {
			return nil, fmt.Errorf("table %q: %w", name, err)
		}
		out = append(out, TableStats{Name: name, Schema: schemaTokens(t.Schema()), Stats: s})
	}
	return out, nil
}

// Validate checks the catalog and every table.
func (db *Database) Validate() error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if err := db.catalog.Validate(); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	for _, name := range db.names() {
		if err := db.tables[name].Validate(); err != nil {
			return fmt.Errorf("table %q: %w", name, err)
		}
	}
	return nil
}

func encodeEntry(name string, schema tuple.Schema, first pool.PageID) tuple.Tuple {
	return tuple.Tuple{
		tuple.VarChar(name),
		tuple.VarChar(schemaTokens(schema)),
		tuple.Uint32(first),
	}
}

func decodeEntry(t tuple.Tuple) (string, tuple.Schema, pool.PageID, error) {
	if err := catalogSchema.Check(t); err != nil {
		return "", nil, 0, fmt.Errorf("%w: %w", ErrCatalog, err)
	}
	name, ok1 := t[0].(tuple.VarChar)
	types, ok2 := t[1].(tuple.VarChar)
	first, ok3 := t[2].(tuple.Uint32)
	if !ok1 || !ok2 || !ok3 {
		return "", nil, 0, fmt.Errorf("%w: null field", ErrCatalog)
	}
	schema, err := tuple.ParseSchema(strings.Fields(string(types)))
	if err != nil {
		return "", nil, 0, fmt.Errorf("%w: %w", ErrCatalog, err)
	}
	return string(name), schema, pool.PageID(first), nil
}

func schemaTokens(s tuple.Schema) string {
	tokens := make([]string, len(s))
	for i, tag := range s {
		tokens[i] = tag.String()
	}
	return strings.Join(tokens, " ")
}
