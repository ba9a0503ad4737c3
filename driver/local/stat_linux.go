//go:build linux

package local

import (
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// extractBirthTime asks statx for the birth time. Older kernels and some
// filesystems do not report it.
func extractBirthTime(path string, _ *syscall.Stat_t) *time.Time {
	var sx unix.Statx_t
	if err := unix.Statx(unix.AT_FDCWD, path, 0, unix.STATX_BTIME, &sx); err != nil {
		return nil
	}
	if sx.Mask&unix.STATX_BTIME == 0 {
		return nil
	}
	t := time.Unix(sx.Btime.Sec, int64(sx.Btime.Nsec))
	return &t
}
