package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// setJSON switches JSON output on for the duration of a test.
func setJSON(t *testing.T) {
	t.Helper()
	prev := jsonOut
	jsonOut = true
	t.Cleanup(func() { jsonOut = prev })
}

// writeScriptSnapshot runs script through the snapshot command path and
// returns the snapshot file.
func writeScriptSnapshot(t *testing.T, size int, script ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.pgks")
	in := strings.NewReader(strings.Join(script, "\n") + "\n")
	var out strings.Builder
	if err := runScript(in, &out, path, size); err != nil {
		t.Fatalf("runScript: %v\nOutput: %s", err, out.String())
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("snapshot not written: %v", err)
	}
	return path
}

// assertContains checks that output contains all expected strings
func assertContains(t *testing.T, output string, expected []string) {
	t.Helper()
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("output missing expected string %q\nGot: %s", want, output)
		}
	}
}
