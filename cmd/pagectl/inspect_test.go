package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInspectSnapshot(t *testing.T) {
	path := writeScriptSnapshot(t, 256,
		"create a uint varchar",
		"insert a 1 hello",
		"insert a 2 hello",
		"insert a 3 hello",
		"insert a 4 hello",
		"insert a 5 hello",
		"create b double",
	)

	report, err := inspectSnapshot(path)
	require.NoError(t, err)
	require.Equal(t, 256, report.PageSize)
	require.Zero(t, report.Invalid)
	require.Empty(t, report.CatalogError)
	require.Equal(t, []tableReport{
		{Name: "a", Schema: "uint varchar", Rows: 5, Pages: 2},
		{Name: "b", Schema: "double", Rows: 0, Pages: 1},
	}, report.Tables)
	// catalog + two pages for a + one for b
	require.Len(t, report.Pages, 4)

	var out bytes.Buffer
	require.NoError(t, writeInspect(&out, report))
	assertContains(t, out.String(), []string{"4 pages of 256 bytes", "2 tables", "5 rows, 2 pages"})
}

func TestInspectRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.pgks")
	require.NoError(t, os.WriteFile(path, []byte("not a snapshot"), 0o644))

	_, err := inspectSnapshot(path)
	require.Error(t, err)
}

func TestRunScriptStopsAtExit(t *testing.T) {
	path := writeScriptSnapshot(t, 4096,
		"create t int",
		".exit",
		"create u int",
	)
	report, err := inspectSnapshot(path)
	require.NoError(t, err)
	require.Len(t, report.Tables, 1)
	require.Equal(t, "t", report.Tables[0].Name)
}
