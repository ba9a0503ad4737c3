//go:build windows

package local

import (
	"os"
	"syscall"
	"time"

	"github.com/gobeaver/syncfile"
)

// extractPlatformInfo extracts platform-specific file information on Windows.
func extractPlatformInfo(_ string, info os.FileInfo) (owner *syncfile.FileOwner, createdAt *time.Time) {
	sys := info.Sys()
	if sys == nil {
		return nil, nil
	}

	data, ok := sys.(*syscall.Win32FileAttributeData)
	if !ok {
		return nil, nil
	}

	t := time.Unix(0, data.CreationTime.Nanoseconds())
	if !t.IsZero() {
		createdAt = &t
	}

	// Owner lookup needs GetSecurityInfo; not reported.
	return nil, createdAt
}
