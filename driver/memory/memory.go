// Package memory provides a driver that keeps positional files in memory.
// It is useful for tests and for scratch data that never needs to reach
// disk.
package memory

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gobeaver/syncfile"
)

// memoryFile represents a file stored in memory
type memoryFile struct {
	buf     *syncfile.Buffer
	modTime time.Time
	removed bool
}

// Adapter provides an in-memory implementation of syncfile.Driver.
// Handles returned by Open and Create stay usable after Remove, like an
// unlinked OS file, but no longer count toward MaxSize.
type Adapter struct {
	mu      sync.RWMutex
	files   map[string]*memoryFile
	maxSize int64 // Maximum total storage size (0 = unlimited)
	size    int64 // Current total size
}

// Config holds configuration for the memory adapter
type Config struct {
	// MaxSize is the maximum total storage size in bytes (0 = unlimited)
	MaxSize int64
}

// New creates a new in-memory driver
func New(cfg ...Config) *Adapter {
	var maxSize int64
	if len(cfg) > 0 {
		maxSize = cfg[0].MaxSize
	}

	return &Adapter{
		files:   make(map[string]*memoryFile),
		maxSize: maxSize,
	}
}

// Open implements syncfile.Driver. Without write access in the flags set by
// syncfile.WithFlags the handle is read-only. os.O_CREATE and os.O_TRUNC
// behave as for os.OpenFile.
func (a *Adapter) Open(name string, options ...syncfile.Option) (syncfile.File, error) {
	name = normalizePath(name)
	if !isValidPath(name) {
		return nil, &syncfile.PathError{
			Op:   "open",
			Path: name,
			Err:  syncfile.ErrNotAllowed,
		}
	}
	opts := syncfile.ProcessOptions(options...)
	if opts.Flags&os.O_APPEND != 0 {
		return nil, &syncfile.PathError{
			Op:   "open",
			Path: name,
			Err:  syncfile.ErrNotSupported,
		}
	}

	a.mu.Lock()
	file, exists := a.files[name]
	switch {
	case !exists && opts.Flags&os.O_CREATE == 0:
		a.mu.Unlock()
		return nil, &syncfile.PathError{
			Op:   "open",
			Path: name,
			Err:  syncfile.ErrNotExist,
		}
	case !exists:
		file = a.newFileLocked(name)
	case opts.Flags&os.O_TRUNC != 0:
		a.truncateLocked(file)
	}
	a.mu.Unlock()

	var f syncfile.File = &handle{adapter: a, name: name, file: file}
	if opts.Flags&(os.O_WRONLY|os.O_RDWR) == 0 {
		f = syncfile.ReadOnlyFile(f, name)
	}
	return syncfile.Finish(f, name, opts), nil
}

// Create implements syncfile.Driver. An existing file is truncated in place,
// so handles that are already open observe the truncation.
func (a *Adapter) Create(name string, options ...syncfile.Option) (syncfile.File, error) {
	name = normalizePath(name)
	if !isValidPath(name) {
		return nil, &syncfile.PathError{
			Op:   "create",
			Path: name,
			Err:  syncfile.ErrNotAllowed,
		}
	}
	opts := syncfile.ProcessOptions(options...)

	a.mu.Lock()
	file, exists := a.files[name]
	if exists {
		a.truncateLocked(file)
	} else {
		file = a.newFileLocked(name)
	}
	a.mu.Unlock()

	return syncfile.Finish(&handle{adapter: a, name: name, file: file}, name, opts), nil
}

// Stat implements syncfile.CanStat
func (a *Adapter) Stat(name string) (*syncfile.FileInfo, error) {
	name = normalizePath(name)

	a.mu.RLock()
	defer a.mu.RUnlock()

	file, exists := a.files[name]
	if !exists {
		return nil, &syncfile.PathError{
			Op:   "stat",
			Path: name,
			Err:  syncfile.ErrNotExist,
		}
	}

	return &syncfile.FileInfo{
		Name:    filepath.Base(name),
		Path:    name,
		Size:    file.buf.Size(),
		ModTime: file.modTime,
	}, nil
}

// Remove implements syncfile.CanRemove
func (a *Adapter) Remove(name string) error {
	name = normalizePath(name)

	a.mu.Lock()
	defer a.mu.Unlock()

	file, exists := a.files[name]
	if !exists {
		return &syncfile.PathError{
			Op:   "remove",
			Path: name,
			Err:  syncfile.ErrNotExist,
		}
	}

	a.size -= file.buf.Size()
	file.removed = true
	delete(a.files, name)
	return nil
}

// List implements syncfile.CanList
func (a *Adapter) List() ([]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, 0, len(a.files))
	for name := range a.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Clear removes all files from the memory driver
// Useful for testing cleanup
func (a *Adapter) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, file := range a.files {
		file.removed = true
	}
	a.files = make(map[string]*memoryFile)
	a.size = 0
}

// Size returns the current total size of all stored files
func (a *Adapter) Size() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.size
}

// FileCount returns the number of files stored
func (a *Adapter) FileCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.files)
}

// Must be called with lock held
func (a *Adapter) newFileLocked(name string) *memoryFile {
	file := &memoryFile{buf: syncfile.NewBuffer(nil), modTime: time.Now()}
	a.files[name] = file
	return file
}

// Must be called with lock held
func (a *Adapter) truncateLocked(file *memoryFile) {
	if !file.removed {
		a.size -= file.buf.Size()
	}
	// Truncating to zero cannot fail.
	_ = file.buf.Truncate(0)
	file.modTime = time.Now()
}

// writeAt writes to file while enforcing maxSize.
func (a *Adapter) writeAt(name string, file *memoryFile, p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if off < 0 {
		return 0, &syncfile.PathError{Op: "writeat", Path: name, Err: syncfile.ErrInvalidOffset}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	before := file.buf.Size()
	if a.maxSize > 0 && !file.removed {
		end := off + int64(len(p))
		if end < off {
			return 0, &syncfile.PathError{Op: "writeat", Path: name, Err: syncfile.ErrInvalidOffset}
		}
		if growth := end - before; growth > 0 && a.size+growth > a.maxSize {
			return 0, &syncfile.PathError{Op: "writeat", Path: name, Err: syncfile.ErrNoSpace}
		}
	}

	n, err := file.buf.WriteAt(p, off)
	if !file.removed {
		a.size += file.buf.Size() - before
	}
	if n > 0 {
		file.modTime = time.Now()
	}
	return n, err
}

// handle is one open reference to a memoryFile
type handle struct {
	adapter *Adapter
	name    string
	file    *memoryFile
	closed  atomic.Bool
}

func (h *handle) ReadAt(p []byte, off int64) (int, error) {
	if h.closed.Load() {
		return 0, syncfile.ErrClosed
	}
	return h.file.buf.ReadAt(p, off)
}

func (h *handle) WriteAt(p []byte, off int64) (int, error) {
	if h.closed.Load() {
		return 0, syncfile.ErrClosed
	}
	return h.adapter.writeAt(h.name, h.file, p, off)
}

func (h *handle) Size() int64 {
	return h.file.buf.Size()
}

func (h *handle) Close() error {
	if h.closed.Swap(true) {
		return syncfile.ErrClosed
	}
	return nil
}

// normalizePath normalizes a file path
func normalizePath(path string) string {
	path = strings.TrimPrefix(filepath.ToSlash(path), "/")
	if path == "" || path == "." {
		return ""
	}
	return filepath.ToSlash(filepath.Clean(path))
}

// isValidPath checks if a path is valid (no directory traversal)
func isValidPath(path string) bool {
	if path == "" {
		return false
	}
	for _, part := range strings.Split(path, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}

var (
	_ syncfile.Driver    = (*Adapter)(nil)
	_ syncfile.CanStat   = (*Adapter)(nil)
	_ syncfile.CanRemove = (*Adapter)(nil)
	_ syncfile.CanList   = (*Adapter)(nil)
	_ syncfile.File      = (*handle)(nil)
)
