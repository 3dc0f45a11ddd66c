package database

import (
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/pagekit/page/pool"
	"github.com/joshuapare/pagekit/table"
	"github.com/joshuapare/pagekit/tuple"
)

func newDB(t *testing.T) *Database {
	t.Helper()
	db, err := New(Options{})
	require.NoError(t, err)
	return db
}

func mustSchema(t *testing.T, tokens ...string) tuple.Schema {
	t.Helper()
	s, err := tuple.ParseSchema(tokens)
	require.NoError(t, err)
	return s
}

func TestCreateInsertSelect(t *testing.T) {
	db := newDB(t)

	replaced, err := db.Create("people", mustSchema(t, "uint", "varchar", "double"))
	require.NoError(t, err)
	require.False(t, replaced)

	_, err = db.Insert("people", []string{"1", "ada", "36.5"})
	require.NoError(t, err)
	_, err = db.Insert("people", []string{"2", "NULL", "NULL"})
	require.NoError(t, err)

	rows, err := db.Select("people")
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"1", "ada", "36.5"},
		{"2", "NULL", "NULL"},
	}, rows)
	require.NoError(t, db.Validate())
}

func TestInsertErrors(t *testing.T) {
	db := newDB(t)
	_, err := db.Create("t", mustSchema(t, "int"))
	require.NoError(t, err)

	_, err = db.Insert("missing", []string{"1"})
	require.ErrorIs(t, err, ErrNoTable)

	_, err = db.Insert("t", []string{"1", "2"})
	require.ErrorIs(t, err, tuple.ErrArity)

	_, err = db.Insert("t", []string{"abc"})
	require.ErrorIs(t, err, tuple.ErrConvert)

	_, err = db.Select("missing")
	require.ErrorIs(t, err, ErrNoTable)
}

func TestCreateRejectsBadNames(t *testing.T) {
	db := newDB(t)
	for _, name := range []string{"", "two words", "tab\there"} {
		_, err := db.Create(name, mustSchema(t, "int"))
		assert.ErrorIs(t, err, ErrName, "name %q", name)
	}
	require.Empty(t, db.Names())
}

func TestCreateReplaces(t *testing.T) {
	db := newDB(t)
	_, err := db.Create("t", mustSchema(t, "int"))
	require.NoError(t, err)
	_, err = db.Insert("t", []string{"-4"})
	require.NoError(t, err)

	old, ok := db.Get("t")
	require.True(t, ok)
	oldPages := old.Pages()

	replaced, err := db.Create("t", mustSchema(t, "varchar"))
	require.NoError(t, err)
	require.True(t, replaced)

	rows, err := db.Select("t")
	require.NoError(t, err)
	require.Empty(t, rows)

	ids := db.Pool().IDs()
	for _, id := range oldPages {
		require.NotContains(t, ids, id)
	}

	_, err = db.Insert("t", []string{"now text"})
	require.NoError(t, err)
	require.Equal(t, []string{"t"}, db.Names())
}

func TestCreateLongNameDoesNotAddPages(t *testing.T) {
	// A 40-byte name makes a 104-byte catalog cell, leaving 9 bytes of a
	// 113-byte body that no header fits in.
	db, err := New(Options{PageSize: 128})
	require.NoError(t, err)

	name := strings.Repeat("n", 40)
	for range 3 {
		_, err := db.Create(name, mustSchema(t, "int"))
		require.ErrorIs(t, err, table.ErrRowTooLarge)
		require.Equal(t, 1, db.Pool().NumPages())
	}
	require.Empty(t, db.Names())

	_, err = db.Create("short", mustSchema(t, "int"))
	require.NoError(t, err)
	require.NoError(t, db.Validate())
}

func TestNamesSorted(t *testing.T) {
	db := newDB(t)
	for _, name := range []string{"zeta", "alpha", "mid"} {
		_, err := db.Create(name, mustSchema(t, "uint"))
		require.NoError(t, err)
	}
	require.Equal(t, []string{"alpha", "mid", "zeta"}, db.Names())
}

func TestSaveLoad(t *testing.T) {
	db := newDB(t)
	_, err := db.Create("a", mustSchema(t, "uint", "varchar"))
	require.NoError(t, err)
	_, err = db.Create("b", mustSchema(t, "float"))
	require.NoError(t, err)
	_, err = db.Create("a", mustSchema(t, "int", "varchar"))
	require.NoError(t, err)

	for i := range 50 {
		_, err := db.Insert("a", []string{"-1", "row"})
		require.NoError(t, err, "row %d", i)
	}
	_, err = db.Insert("b", []string{"0.5"})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "db.pgks")
	require.NoError(t, db.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, loaded.Names())
	require.NoError(t, loaded.Validate())

	want, err := db.Select("a")
	require.NoError(t, err)
	got, err := loaded.Select("a")
	require.NoError(t, err)
	require.Equal(t, want, got)

	tbl, ok := loaded.Get("a")
	require.True(t, ok)
	require.Equal(t, mustSchema(t, "int", "varchar"), tbl.Schema())

	id, err := loaded.Insert("a", []string{"7", "after load"})
	require.NoError(t, err)
	require.EqualValues(t, 50, id)
}

func TestOpenRequiresCatalog(t *testing.T) {
	p, err := pool.New(pool.DefaultOptions())
	require.NoError(t, err)
	_, err = Open(p)
	require.ErrorIs(t, err, pool.ErrNoPage)
}

func TestStats(t *testing.T) {
	db := newDB(t)
	_, err := db.Create("t", mustSchema(t, "uint"))
	require.NoError(t, err)
	for range 3 {
		_, err := db.Insert("t", []string{"9"})
		require.NoError(t, err)
	}

	stats, err := db.Stats()
	require.NoError(t, err)
	require.Len(t, stats, 1)
	require.Equal(t, "t", stats[0].Name)
	require.Equal(t, "uint", stats[0].Schema)
	require.Equal(t, 3, stats[0].Rows)
	require.Equal(t, 1, stats[0].Pages)
}

func TestReplaceWhileInserting(t *testing.T) {
	db := newDB(t)
	schema := mustSchema(t, "uint")
	_, err := db.Create("t", schema)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 4 {
		wg.Go(func() {
			for range 50 {
				_, err := db.Insert("t", []string{"1"})
				assert.NoError(t, err)
				_, err = db.Select("t")
				assert.NoError(t, err)
			}
		})
	}
	wg.Go(func() {
		for range 20 {
			_, err := db.Create("t", schema)
			assert.NoError(t, err)
		}
	})
	wg.Wait()

	require.NoError(t, db.Validate())
	_, err = db.Stats()
	require.NoError(t, err)
}

func TestConcurrentUse(t *testing.T) {
	db := newDB(t)
	_, err := db.Create("t", mustSchema(t, "uint"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			for range 20 {
				_, err := db.Insert("t", []string{"1"})
				assert.NoError(t, err)
			}
			_, err := db.Select("t")
			assert.NoError(t, err)
		})
	}
	wg.Wait()

	rows, err := db.Select("t")
	require.NoError(t, err)
	require.Len(t, rows, 160)
	require.NoError(t, db.Validate())
}
