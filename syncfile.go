package syncfile

import (
	"io"
	"os"
)

// SyncFile is a file handle that is safe to clone and use from several
// goroutines. Every clone shares one RandomAccessFile but keeps a private
// offset, so Read, Write and Seek on one clone never move another clone's
// position.
//
// A single SyncFile value must not be used by two goroutines at once; Clone
// it instead. Clones are cheap. The underlying file is closed when the last
// clone is closed.
//
// Example:
//
//	f, err := syncfile.OpenSync("data.bin")
//	if err != nil {
//	    return err
//	}
//	defer f.Close()
//
//	g := f.Clone()
//	go func() {
//	    defer g.Close()
//	    io.Copy(io.Discard, g) // does not move f
//	}()
type SyncFile struct {
	cursor *Adapter[*Shared[*RandomAccessFile]]
}

// OpenSync opens the named file for reading.
func OpenSync(name string, opts ...Option) (*SyncFile, error) {
	f, err := Open(name, opts...)
	if err != nil {
		return nil, err
	}
	return NewSyncFile(f), nil
}

// CreateSync creates or truncates the named file for reading and writing.
func CreateSync(name string, opts ...Option) (*SyncFile, error) {
	f, err := Create(name, opts...)
	if err != nil {
		return nil, err
	}
	return NewSyncFile(f), nil
}

// NewSyncFile takes ownership of f and returns a handle at offset 0.
func NewSyncFile(f *RandomAccessFile) *SyncFile {
	return &SyncFile{cursor: NewAdapter(NewShared(f))}
}

// Clone returns a new handle to the same file starting at the current offset
// of f. The two offsets are independent from then on.
func (f *SyncFile) Clone() *SyncFile {
	c := NewAdapter(f.cursor.Get().Clone())
	c.SetOffset(f.cursor.Offset())
	return &SyncFile{cursor: c}
}

// File returns the shared RandomAccessFile.
func (f *SyncFile) File() *RandomAccessFile {
	return f.cursor.Get().Get()
}

// Name returns the name of the file as presented to Open.
func (f *SyncFile) Name() string {
	return f.File().Name()
}

// Read implements io.Reader.
func (f *SyncFile) Read(p []byte) (int, error) {
	return f.cursor.Read(p)
}

// ReadFull fills p from the current offset, advancing only on success.
func (f *SyncFile) ReadFull(p []byte) error {
	return f.cursor.ReadFull(p)
}

// ReadVectored reads into bufs as one logical buffer at the current offset.
func (f *SyncFile) ReadVectored(bufs [][]byte) (int, error) {
	return f.cursor.ReadVectored(bufs)
}

// WriteVectored writes bufs as one logical buffer at the current offset.
func (f *SyncFile) WriteVectored(bufs [][]byte) (int, error) {
	return f.cursor.WriteVectored(bufs)
}

// Write implements io.Writer.
func (f *SyncFile) Write(p []byte) (int, error) {
	return f.cursor.Write(p)
}

// WriteFull writes all of p at the current offset, advancing only on
// success.
func (f *SyncFile) WriteFull(p []byte) error {
	return f.cursor.WriteFull(p)
}

// Seek implements io.Seeker.
//
// io.SeekStart and io.SeekCurrent are resolved locally. io.SeekEnd asks
// the OS, since only the platform knows the current length of the file; the
// result becomes this handle's offset. A failed seek leaves the offset
// unchanged.
func (f *SyncFile) Seek(offset int64, whence int) (int64, error) {
	if whence != io.SeekEnd {
		return f.cursor.Seek(offset, whence)
	}
	if err := f.checkOpen(); err != nil {
		return 0, err
	}
	pos, err := f.File().seekEnd(offset)
	if err != nil {
		return 0, err
	}
	if pos < 0 {
		return 0, ErrInvalidOffset
	}
	f.cursor.SetOffset(uint64(pos))
	return pos, nil
}

// Rewind resets the offset to 0.
func (f *SyncFile) Rewind() {
	f.cursor.Rewind()
}

// StreamPosition returns the current offset without a fallible call.
func (f *SyncFile) StreamPosition() uint64 {
	return f.cursor.Offset()
}

// ReadAt implements ReaderAt. It ignores and does not move the offset.
func (f *SyncFile) ReadAt(p []byte, off int64) (int, error) {
	return f.cursor.Get().ReadAt(p, off)
}

// WriteAt implements WriterAt. It ignores and does not move the offset.
func (f *SyncFile) WriteAt(p []byte, off int64) (int, error) {
	return f.cursor.Get().WriteAt(p, off)
}

// Flush forwards to the underlying file.
func (f *SyncFile) Flush() error {
	return f.cursor.Flush()
}

// Size returns the current file length.
func (f *SyncFile) Size() int64 {
	return f.File().Size()
}

// Stat returns the file metadata.
func (f *SyncFile) Stat() (os.FileInfo, error) {
	if err := f.checkOpen(); err != nil {
		return nil, err
	}
	return f.File().Stat()
}

// Sync commits the file content and metadata to stable storage.
func (f *SyncFile) Sync() error {
	if err := f.checkOpen(); err != nil {
		return err
	}
	return f.File().Sync()
}

// SyncData commits the file content to stable storage.
func (f *SyncFile) SyncData() error {
	if err := f.checkOpen(); err != nil {
		return err
	}
	return f.File().SyncData()
}

// Truncate changes the length of the file. Offsets of open clones are not
// adjusted.
func (f *SyncFile) Truncate(size int64) error {
	if err := f.checkOpen(); err != nil {
		return err
	}
	return f.File().Truncate(size)
}

// Chmod changes the permission bits of the file.
func (f *SyncFile) Chmod(mode os.FileMode) error {
	if err := f.checkOpen(); err != nil {
		return err
	}
	return f.File().Chmod(mode)
}

// Close releases this handle. The file is closed with the last clone.
func (f *SyncFile) Close() error {
	return f.cursor.Get().Close()
}

func (f *SyncFile) checkOpen() error {
	if f.cursor.Get().closed.Load() {
		return ErrClosed
	}
	return nil
}

var (
	_ io.ReadWriteSeeker = (*SyncFile)(nil)
	_ io.Closer          = (*SyncFile)(nil)
	_ ReadWriterAt       = (*SyncFile)(nil)
	_ Sizer              = (*SyncFile)(nil)
	_ Flusher            = (*SyncFile)(nil)
)
