// Package mmap provides a driver that serves positional I/O from
// memory-mapped files via [mmapfile], falling back to a
// [syncfile.RandomAccessFile] when a mapping is unavailable or unsuitable.
//
// Mapped files have a fixed length: writes past the end are short, the same
// as for a [syncfile.FixedBuffer]. Creating a mapped file therefore needs a
// size, given with [syncfile.WithSize] or the SYNCFILE_MMAP_SIZE setting.
// Without one, Create uses the fallback.
package mmap

import (
	"os"
	"sync"

	"github.com/gobeaver/syncfile"
	"go.dw1.io/mmapfile"
	"go.uber.org/zap"
)

// File is a memory-mapped positional file. It is safe for concurrent use.
type File struct {
	mu     sync.RWMutex
	mm     *mmapfile.MmapFile
	closed bool
}

// Open maps the named file read-only.
func Open(name string) (*File, error) {
	mf, err := mmapfile.Open(name)
	if err != nil {
		return nil, err
	}
	return &File{mm: mf}, nil
}

// OpenFile maps the named file with the given flags. size is required when
// flag contains os.O_CREATE or os.O_TRUNC and becomes the file length.
func OpenFile(name string, flag int, perm os.FileMode, size int64) (*File, error) {
	if !canMmap(flag, size) {
		return nil, &syncfile.PathError{Op: "mmap", Path: name, Err: syncfile.ErrNotSupported}
	}
	mf, err := mmapfile.OpenFile(name, flag, perm, size)
	if err != nil {
		return nil, err
	}
	return &File{mm: mf}, nil
}

// ReadAt implements syncfile.ReaderAt.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return 0, syncfile.ErrClosed
	}
	return syncfile.Bytes(f.mm.Bytes()).ReadAt(p, off)
}

// ReadVectoredAt implements syncfile.VectoredReaderAt.
func (f *File) ReadVectoredAt(bufs [][]byte, off int64) (int, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return 0, syncfile.ErrClosed
	}
	return syncfile.Bytes(f.mm.Bytes()).ReadVectoredAt(bufs, off)
}

// WriteAt implements syncfile.WriterAt. Bytes that fall past the mapped
// length are not written.
func (f *File) WriteAt(p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, syncfile.ErrClosed
	}
	return syncfile.FixedBuffer(f.mm.Bytes()).WriteAt(p, off)
}

// Size returns the mapped length.
func (f *File) Size() int64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return 0
	}
	return int64(f.mm.Len())
}

// Bytes exposes the mapped region. The slice is invalid after Close.
func (f *File) Bytes() []byte {
	return f.mm.Bytes()
}

// Name returns the original file name.
func (f *File) Name() string {
	return f.mm.Name()
}

// Flush writes dirty pages back to the file.
func (f *File) Flush() error {
	return f.Sync()
}

// Sync writes dirty pages back to the file.
func (f *File) Sync() error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return syncfile.ErrClosed
	}
	return f.mm.Sync()
}

// Close unmaps and closes the file.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return syncfile.ErrClosed
	}
	f.closed = true
	return f.mm.Close()
}

// Adapter opens OS paths as mapped files.
type Adapter struct{}

// New creates a new mmap driver
func New() *Adapter {
	return &Adapter{}
}

// Open implements syncfile.Driver. Files opened without write access are
// mapped read-only and wrapped so that writes fail with ErrReadOnly instead
// of faulting.
func (a *Adapter) Open(name string, options ...syncfile.Option) (syncfile.File, error) {
	opts := syncfile.ProcessOptions(options...)
	writable := opts.Flags&(os.O_WRONLY|os.O_RDWR) != 0

	var f syncfile.File
	var err error
	if writable {
		f, err = a.open(name, opts.Flags, opts, options)
	} else {
		f, err = a.open(name, os.O_RDONLY, opts, options)
		if err == nil {
			f = syncfile.ReadOnlyFile(f, name)
		}
	}
	if err != nil {
		return nil, err
	}
	return syncfile.Finish(f, name, opts), nil
}

// Create implements syncfile.Driver. The file is truncated to the size set
// with syncfile.WithSize.
func (a *Adapter) Create(name string, options ...syncfile.Option) (syncfile.File, error) {
	opts := syncfile.ProcessOptions(options...)
	f, err := a.open(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, opts, options)
	if err != nil {
		return nil, err
	}
	return syncfile.Finish(f, name, opts), nil
}

func (a *Adapter) open(name string, flag int, opts *syncfile.Options, options []syncfile.Option) (syncfile.File, error) {
	if canMmap(flag, opts.Size) {
		var mf *mmapfile.MmapFile
		var err error
		if flag == os.O_RDONLY {
			mf, err = mmapfile.Open(name)
		} else {
			mf, err = mmapfile.OpenFile(name, flag, opts.Mode, opts.Size)
		}
		if err == nil {
			return &File{mm: mf}, nil
		}
		opts.Logger.Debug("mmap unavailable, using positional file",
			zap.String("path", name),
			zap.Error(err),
		)
	}

	f, err := syncfile.OpenFile(name, flag, opts.Mode, options...)
	if err != nil {
		return nil, err
	}
	if opts.Size > 0 && flag&(os.O_CREATE|os.O_TRUNC) != 0 {
		if err := f.Truncate(opts.Size); err != nil {
			f.Close()
			return nil, err
		}
	}
	return syncfile.NewSyncFile(f), nil
}

func canMmap(flag int, size int64) bool {
	if flag&os.O_APPEND != 0 {
		return false
	}
	if flag&(os.O_CREATE|os.O_TRUNC) != 0 && size <= 0 {
		return false
	}
	return true
}

var (
	_ syncfile.File             = (*File)(nil)
	_ syncfile.VectoredReaderAt = (*File)(nil)
	_ syncfile.Flusher          = (*File)(nil)
	_ syncfile.Driver           = (*Adapter)(nil)
)
