//go:build darwin

package pool

import (
	"os"

	"golang.org/x/sys/unix"
)

// syncFile flushes file data to stable storage.
//
// On macOS, F_FULLFSYNC ensures data reaches the physical disk rather than the
// drive cache. Some filesystems reject it, in which case we fall back to fsync.
func syncFile(f *os.File) error {
	fd := int(f.Fd())
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_FULLFSYNC, 0); err == nil {
		return nil
	}
	return unix.Fsync(fd)
}
