//go:build unix

package local

import (
	"os"
	"strconv"
	"syscall"
	"time"

	"github.com/gobeaver/syncfile"
)

// extractPlatformInfo extracts platform-specific file information on Unix systems.
func extractPlatformInfo(path string, info os.FileInfo) (owner *syncfile.FileOwner, createdAt *time.Time) {
	sys := info.Sys()
	if sys == nil {
		return nil, nil
	}

	stat, ok := sys.(*syscall.Stat_t)
	if !ok {
		return nil, nil
	}

	owner = &syncfile.FileOwner{
		ID: strconv.FormatUint(uint64(stat.Uid), 10),
	}

	createdAt = extractBirthTime(path, stat)

	return owner, createdAt
}
