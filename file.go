package syncfile

import (
	"errors"
	"io/fs"
	"math"
	"os"
	"syscall"

	"go.uber.org/zap"
)

// RandomAccessFile is a file with positional I/O. It owns exactly one OS
// file and is safe for concurrent use by multiple goroutines.
//
// On platforms with native positional calls (pread/pwrite and the Windows
// overlapped equivalents) ReadAt and WriteAt never touch the OS cursor and
// take no lock. Elsewhere every call takes an internal lock around
// seek-then-transfer. The strategy is fixed at build time; building with the
// syncfile_fallback tag forces the locked strategy everywhere.
//
// Positional calls are atomic only individually. ReadFullAt spanning several
// calls may observe writes made in between.
type RandomAccessFile struct {
	file   *os.File
	io     strategy
	logger *zap.Logger
}

// Open opens the named file for reading.
func Open(name string, opts ...Option) (*RandomAccessFile, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	return wrapFile(f, processOptions(opts...))
}

// Create creates or truncates the named file for reading and writing.
// The file mode defaults to 0666 before umask and can be set with WithMode.
func Create(name string, opts ...Option) (*RandomAccessFile, error) {
	o := processOptions(opts...)
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, o.Mode)
	if err != nil {
		return nil, err
	}
	return wrapFile(f, o)
}

// OpenFile opens the named file with the given flags and permission, like
// os.OpenFile. Opening with os.O_APPEND is rejected because appends move the
// shared cursor.
func OpenFile(name string, flag int, perm os.FileMode, opts ...Option) (*RandomAccessFile, error) {
	if flag&os.O_APPEND != 0 {
		return nil, &PathError{Op: "open", Path: name, Err: ErrNotSupported}
	}
	f, err := os.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return wrapFile(f, processOptions(opts...))
}

// FromFile takes ownership of an already open file.
//
// The caller must not use f's own cursor (Read, Write, Seek) afterwards;
// on the locked strategy that would race with positional calls.
func FromFile(f *os.File, opts ...Option) (*RandomAccessFile, error) {
	if f == nil {
		return nil, &PathError{Op: "fromfile", Path: "", Err: fs.ErrInvalid}
	}
	return wrapFile(f, processOptions(opts...))
}

func wrapFile(f *os.File, o *Options) (*RandomAccessFile, error) {
	s, err := newStrategy(f, o.Logger)
	if err != nil {
		f.Close()
		return nil, &PathError{Op: "open", Path: f.Name(), Err: err}
	}
	return &RandomAccessFile{file: f, io: s, logger: o.Logger}, nil
}

// File returns the underlying OS file. The same cursor restrictions as for
// FromFile apply.
func (f *RandomAccessFile) File() *os.File {
	return f.file
}

// Name returns the name of the file as presented to Open.
func (f *RandomAccessFile) Name() string {
	return f.file.Name()
}

// ReadAt implements ReaderAt.
func (f *RandomAccessFile) ReadAt(p []byte, off int64) (int, error) {
	return f.io.readAt(p, off)
}

// WriteAt implements WriterAt.
func (f *RandomAccessFile) WriteAt(p []byte, off int64) (int, error) {
	return f.io.writeAt(p, off)
}

// ReadVectoredAt implements VectoredReaderAt.
func (f *RandomAccessFile) ReadVectoredAt(bufs [][]byte, off int64) (int, error) {
	return f.io.readVectoredAt(bufs, off)
}

// WriteVectoredAt implements VectoredWriterAt.
func (f *RandomAccessFile) WriteVectoredAt(bufs [][]byte, off int64) (int, error) {
	return f.io.writeVectoredAt(bufs, off)
}

// Flush is a no-op: writes to an OS file are not buffered by this package.
// Use Sync to persist them.
func (f *RandomAccessFile) Flush() error {
	return nil
}

// Size returns the current file length, or 0 if it cannot be determined.
func (f *RandomAccessFile) Size() int64 {
	info, err := f.Stat()
	if err != nil {
		return 0
	}
	return info.Size()
}

// Stat returns the file metadata.
func (f *RandomAccessFile) Stat() (info os.FileInfo, err error) {
	err = f.io.do(func() error {
		var serr error
		info, serr = f.file.Stat()
		return serr
	})
	return info, err
}

// Sync commits the file content and metadata to stable storage.
func (f *RandomAccessFile) Sync() error {
	return f.io.do(f.file.Sync)
}

// SyncData commits the file content to stable storage, skipping metadata
// where the platform allows it.
func (f *RandomAccessFile) SyncData() error {
	return f.io.do(func() error {
		return syncData(f.file)
	})
}

// Truncate changes the length of the file.
func (f *RandomAccessFile) Truncate(size int64) error {
	if size < 0 {
		return &PathError{Op: "truncate", Path: f.Name(), Err: ErrInvalidOffset}
	}
	return f.io.do(func() error {
		return f.file.Truncate(size)
	})
}

// Chmod changes the permission bits of the file.
func (f *RandomAccessFile) Chmod(mode os.FileMode) error {
	return f.io.do(func() error {
		return f.file.Chmod(mode)
	})
}

// Clone duplicates the OS handle into a new, independent RandomAccessFile
// that refers to the same open file description.
func (f *RandomAccessFile) Clone() (*RandomAccessFile, error) {
	var dup *os.File
	err := f.io.do(func() error {
		var derr error
		dup, derr = dupFile(f.file)
		return derr
	})
	if err != nil {
		return nil, &PathError{Op: "clone", Path: f.Name(), Err: err}
	}
	return wrapFile(dup, &Options{Logger: f.logger})
}

// Close closes the file.
func (f *RandomAccessFile) Close() error {
	err := f.file.Close()
	if errors.Is(err, os.ErrClosed) {
		return ErrClosed
	}
	return err
}

// seekEnd asks the OS for the position relative to the current end of file.
// A target before the start of the file, or past math.MaxInt64, fails with
// ErrInvalidOffset.
func (f *RandomAccessFile) seekEnd(off int64) (int64, error) {
	pos, err := f.io.seekEnd(off)
	if err == nil && pos >= 0 {
		return pos, nil
	}
	if err == nil || errors.Is(err, ErrInvalidOffset) || errors.Is(err, syscall.EINVAL) || f.outOfRange(off) {
		return 0, &PathError{Op: "seek", Path: f.Name(), Err: ErrInvalidOffset}
	}
	return 0, err
}

// outOfRange reports whether off from the current end lands outside
// [0, math.MaxInt64].
func (f *RandomAccessFile) outOfRange(off int64) bool {
	size := f.Size()
	if off < 0 {
		return size+off < 0
	}
	return size > math.MaxInt64-off
}

var (
	_ ReadWriterAt     = (*RandomAccessFile)(nil)
	_ VectoredReaderAt = (*RandomAccessFile)(nil)
	_ VectoredWriterAt = (*RandomAccessFile)(nil)
	_ Sizer            = (*RandomAccessFile)(nil)
	_ Flusher          = (*RandomAccessFile)(nil)
)
