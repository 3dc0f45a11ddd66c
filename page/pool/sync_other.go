//go:build !linux && !freebsd && !darwin

package pool

import "os"

// syncFile flushes file data to stable storage.
func syncFile(f *os.File) error {
	return f.Sync()
}
