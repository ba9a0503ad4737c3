package syncfile

import (
	"fmt"
	"io"
	"math"

	"go.dw1.io/safemath"
)

// Adapter turns a positional value into a sequential io.Reader, io.Writer
// and io.Seeker by keeping its own logical offset. The offset starts at 0
// and only changes through the Adapter's own methods.
//
// An Adapter is not safe for concurrent use; give each goroutine its own
// Adapter over a shared positional value instead.
type Adapter[T ReaderAt] struct {
	inner T
	pos   uint64
}

// NewAdapter wraps inner with an offset of 0.
func NewAdapter[T ReaderAt](inner T) *Adapter[T] {
	return &Adapter[T]{inner: inner}
}

// Get returns the wrapped value.
func (a *Adapter[T]) Get() T {
	return a.inner
}

// Offset returns the current logical offset. It never fails.
func (a *Adapter[T]) Offset() uint64 {
	return a.pos
}

// SetOffset moves the logical offset to pos unconditionally. Offsets beyond
// math.MaxInt64 can be recorded, but transfers from there fail with
// ErrInvalidOffset.
func (a *Adapter[T]) SetOffset(pos uint64) {
	a.pos = pos
}

// Rewind resets the offset to 0.
func (a *Adapter[T]) Rewind() {
	a.pos = 0
}

// Read reads at the current offset and advances it by the number of bytes
// read. A failed read leaves the offset where it was.
func (a *Adapter[T]) Read(p []byte) (int, error) {
	off, err := a.position()
	if err != nil {
		return 0, err
	}

	n, err := a.inner.ReadAt(p, off)
	if err != nil && err != io.EOF {
		return 0, err
	}
	a.pos += uint64(n)
	if n > 0 {
		return n, nil
	}
	if len(p) > 0 {
		return 0, io.EOF
	}
	return 0, nil
}

// ReadFull fills p from the current offset. The offset advances by len(p)
// only if the whole buffer was read.
func (a *Adapter[T]) ReadFull(p []byte) error {
	off, err := a.position()
	if err != nil {
		return err
	}
	if err := ReadFullAt(a.inner, p, off); err != nil {
		return err
	}
	a.pos += uint64(len(p))
	return nil
}

// ReadVectored reads into bufs as one logical buffer at the current offset
// and advances it like Read.
func (a *Adapter[T]) ReadVectored(bufs [][]byte) (int, error) {
	off, err := a.position()
	if err != nil {
		return 0, err
	}

	n, err := ReadVectoredAt(a.inner, bufs, off)
	if err != nil && err != io.EOF {
		return 0, err
	}
	a.pos += uint64(n)
	if n > 0 {
		return n, nil
	}
	if vectoredLen(bufs) > 0 {
		return 0, io.EOF
	}
	return 0, nil
}

// Write writes at the current offset and advances it by the number of
// bytes committed, even when the write then fails part way.
func (a *Adapter[T]) Write(p []byte) (int, error) {
	w, ok := any(a.inner).(WriterAt)
	if !ok {
		return 0, ErrNotSupported
	}
	off, err := a.position()
	if err != nil {
		return 0, err
	}

	n, err := w.WriteAt(p, off)
	a.pos += uint64(n)
	return n, err
}

// WriteVectored writes bufs as one logical buffer at the current offset
// and advances it like Write.
func (a *Adapter[T]) WriteVectored(bufs [][]byte) (int, error) {
	w, ok := any(a.inner).(WriterAt)
	if !ok {
		return 0, ErrNotSupported
	}
	off, err := a.position()
	if err != nil {
		return 0, err
	}

	n, err := WriteVectoredAt(w, bufs, off)
	a.pos += uint64(n)
	return n, err
}

// ReadAt forwards to the wrapped value. The offset is not used or moved.
func (a *Adapter[T]) ReadAt(p []byte, off int64) (int, error) {
	return a.inner.ReadAt(p, off)
}

// WriteAt forwards to the wrapped value if it is writable. The offset is not
// used or moved.
func (a *Adapter[T]) WriteAt(p []byte, off int64) (int, error) {
	w, ok := any(a.inner).(WriterAt)
	if !ok {
		return 0, ErrNotSupported
	}
	return w.WriteAt(p, off)
}

// WriteFull writes all of p at the current offset. The offset advances by
// len(p) only if the whole buffer was written.
func (a *Adapter[T]) WriteFull(p []byte) error {
	w, ok := any(a.inner).(WriterAt)
	if !ok {
		return ErrNotSupported
	}
	off, err := a.position()
	if err != nil {
		return err
	}
	if err := WriteFullAt(w, p, off); err != nil {
		return err
	}
	a.pos += uint64(len(p))
	return nil
}

// Seek implements io.Seeker.
//
// io.SeekStart sets the offset. io.SeekCurrent moves it by offset and fails
// with ErrInvalidOffset, leaving it unchanged, if the result would be
// negative or overflow. io.SeekEnd is not supported: the Adapter cannot know
// the length of its source.
func (a *Adapter[T]) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		if offset < 0 {
			return 0, ErrInvalidOffset
		}
		a.pos = uint64(offset)
		return offset, nil
	case io.SeekCurrent:
		pos, err := addOffset(a.pos, offset)
		if err != nil {
			return 0, err
		}
		ret, err := safemath.ConvertAny[int64](pos)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrInvalidOffset, err)
		}
		a.pos = pos
		return ret, nil
	case io.SeekEnd:
		return 0, ErrNotSupported
	default:
		return 0, ErrInvalidWhence
	}
}

// Flush flushes the wrapped value if it buffers writes.
func (a *Adapter[T]) Flush() error {
	return Flush(a.inner)
}

// position converts the logical offset to the int64 used by ReadAt and
// WriteAt.
func (a *Adapter[T]) position() (int64, error) {
	off, err := safemath.ConvertAny[int64](a.pos)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidOffset, err)
	}
	return off, nil
}

// addOffset applies a signed delta to pos without wrapping.
func addOffset(pos uint64, delta int64) (uint64, error) {
	if delta >= 0 {
		if pos > math.MaxUint64-uint64(delta) {
			return 0, ErrInvalidOffset
		}
		return pos + uint64(delta), nil
	}
	back := uint64(-(delta + 1)) + 1
	if back > pos {
		return 0, ErrInvalidOffset
	}
	return pos - back, nil
}

var (
	_ io.ReadWriteSeeker = (*Adapter[ReaderAt])(nil)
	_ ReadWriterAt       = (*Adapter[ReaderAt])(nil)
)
