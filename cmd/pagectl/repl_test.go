package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T) (*session, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	s, err := newSession(&out, 4096)
	require.NoError(t, err)
	return s, &out
}

func run(t *testing.T, s *session, out *bytes.Buffer, line string) string {
	t.Helper()
	out.Reset()
	require.False(t, s.exec(line), "line %q asked to quit", line)
	return out.String()
}

func TestSessionCreateInsertSelect(t *testing.T) {
	s, out := newTestSession(t)

	require.Equal(t, "created table people (uint, varchar)\n",
		run(t, s, out, "create people uint varchar"))
	require.Equal(t, "inserted row 0\n", run(t, s, out, "insert people 1 ada"))
	require.Equal(t, "inserted row 1\n", run(t, s, out, "insert people 2 NULL"))
	require.Equal(t, "1 | ada\n2 | NULL\n(2 rows)\n", run(t, s, out, "select people"))
	require.Equal(t, "people (uint, varchar)\n", run(t, s, out, ".tables"))
	require.Equal(t, "ok\n", run(t, s, out, ".validate"))
}

func TestSessionOverwrite(t *testing.T) {
	s, out := newTestSession(t)

	run(t, s, out, "create t int")
	run(t, s, out, "insert t 5")
	require.Equal(t, "overwritten table t (varchar)\n", run(t, s, out, "create t varchar"))
	require.Equal(t, "(0 rows)\n", run(t, s, out, "select t"))
}

func TestSessionErrors(t *testing.T) {
	s, out := newTestSession(t)

	cases := map[string]string{
		"create t":              "Error: usage: create",
		"create t bool":         `unrecognised type "bool"`,
		"insert missing 1":      "no such table",
		"select missing":        "no such table",
		"drop table t":          `Error: unsupported input: "drop table t"`,
		".save":                 "expected a single file path",
		".load /does/not/exist": "Error:",
	}
	for line, want := range cases {
		require.Contains(t, run(t, s, out, line), want, "line %q", line)
	}

	run(t, s, out, "create t uint")
	require.Contains(t, run(t, s, out, "insert t -1"), "conversion failed")
	require.Contains(t, run(t, s, out, "insert t 1 2"), "wrong number of values")
}

func TestSessionBlankAndExit(t *testing.T) {
	s, out := newTestSession(t)
	require.Empty(t, run(t, s, out, "   "))
	require.True(t, s.exec(".exit"))
	require.True(t, s.exec(".QUIT"))
}

func TestSessionSaveLoad(t *testing.T) {
	s, out := newTestSession(t)
	path := filepath.Join(t.TempDir(), "db.pgks")

	run(t, s, out, "create t uint varchar")
	run(t, s, out, "insert t 1 one")
	require.Contains(t, run(t, s, out, ".save "+path), "saved 2 pages")

	other, otherOut := newTestSession(t)
	require.Equal(t, "loaded 1 tables from "+path+"\n", run(t, other, otherOut, ".load "+path))
	require.Equal(t, "1 | one\n(1 rows)\n", run(t, other, otherOut, "select t"))
	require.Equal(t, "inserted row 1\n", run(t, other, otherOut, "insert t 2 two"))
}

func TestSessionStats(t *testing.T) {
	s, out := newTestSession(t)
	run(t, s, out, "create t uint")
	run(t, s, out, "insert t 1")

	got := run(t, s, out, ".stats")
	assertContains(t, got, []string{"t: 1 rows, 1 pages", "pool: 2 pages of 4096 bytes"})
}
