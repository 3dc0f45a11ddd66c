//go:build windows

package mmfile

import (
	"os"
)

// Map reads the file at path into memory. Windows builds do not mmap
// snapshots; the cleanup func is a no-op.
func Map(path string) ([]byte, func() error, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, func() error { return nil }, err
	}
	return data, func() error { return nil }, nil
}
