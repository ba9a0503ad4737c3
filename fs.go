package syncfile

import (
	"time"
)

// FileInfo represents file metadata reported by a Driver
type FileInfo struct {
	Name      string
	Path      string
	Size      int64
	ModTime   time.Time
	CreatedAt *time.Time
	Owner     *FileOwner
}

// FileOwner identifies the owner of a file where the backend exposes one
type FileOwner struct {
	ID string
}

// ============================================================================
// Optional Capability Interfaces
// ============================================================================
//
// Drivers may implement these. Check with a type assertion:
//
//	if s, ok := drv.(syncfile.CanStat); ok {
//	    info, err := s.Stat("data.bin")
//	}

// CanStat indicates the driver can report metadata without opening a file.
type CanStat interface {
	Stat(name string) (*FileInfo, error)
}

// CanRemove indicates the driver can delete files.
type CanRemove interface {
	Remove(name string) error
}

// CanList indicates the driver can enumerate the files it holds.
type CanList interface {
	List() ([]string, error)
}
