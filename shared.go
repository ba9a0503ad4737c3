package syncfile

import (
	"io"
	"sync/atomic"
)

// Shared is a reference-counted handle to a positional value. Every clone
// forwards ReadAt, WriteAt, Size and Flush unchanged to the same value, and
// the value is closed (if it implements io.Closer) when the last handle is
// closed.
//
// A Shared handle itself carries no position, so clones can be used from
// different goroutines at the same time as long as the wrapped value allows
// it.
type Shared[T any] struct {
	ref    *sharedRef[T]
	closed atomic.Bool
}

type sharedRef[T any] struct {
	value T
	refs  atomic.Int64
}

// NewShared wraps v in a Shared handle with a reference count of one.
func NewShared[T any](v T) *Shared[T] {
	ref := &sharedRef[T]{value: v}
	ref.refs.Store(1)
	return &Shared[T]{ref: ref}
}

// Get returns the wrapped value.
func (s *Shared[T]) Get() T {
	return s.ref.value
}

// Clone returns a new handle to the same value. Cloning a closed handle
// returns another closed handle.
func (s *Shared[T]) Clone() *Shared[T] {
	c := &Shared[T]{ref: s.ref}
	if s.closed.Load() {
		c.closed.Store(true)
		return c
	}
	s.ref.refs.Add(1)
	return c
}

// Refs returns the number of open handles to the wrapped value.
func (s *Shared[T]) Refs() int64 {
	return s.ref.refs.Load()
}

// Close releases this handle. The wrapped value is closed when the last
// handle goes away. Closing a handle twice returns ErrClosed.
func (s *Shared[T]) Close() error {
	if s.closed.Swap(true) {
		return ErrClosed
	}
	if s.ref.refs.Add(-1) > 0 {
		return nil
	}
	if c, ok := any(s.ref.value).(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// ReadAt implements ReaderAt.
func (s *Shared[T]) ReadAt(p []byte, off int64) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	r, ok := any(s.ref.value).(ReaderAt)
	if !ok {
		return 0, ErrNotSupported
	}
	return r.ReadAt(p, off)
}

// ReadVectoredAt implements VectoredReaderAt.
func (s *Shared[T]) ReadVectoredAt(bufs [][]byte, off int64) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	r, ok := any(s.ref.value).(ReaderAt)
	if !ok {
		return 0, ErrNotSupported
	}
	return ReadVectoredAt(r, bufs, off)
}

// WriteAt implements WriterAt.
func (s *Shared[T]) WriteAt(p []byte, off int64) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	w, ok := any(s.ref.value).(WriterAt)
	if !ok {
		return 0, ErrNotSupported
	}
	return w.WriteAt(p, off)
}

// WriteVectoredAt implements VectoredWriterAt.
func (s *Shared[T]) WriteVectoredAt(bufs [][]byte, off int64) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	w, ok := any(s.ref.value).(WriterAt)
	if !ok {
		return 0, ErrNotSupported
	}
	return WriteVectoredAt(w, bufs, off)
}

// Size implements Sizer. It returns 0 when the value has no known size.
func (s *Shared[T]) Size() int64 {
	if sz, ok := any(s.ref.value).(Sizer); ok {
		return sz.Size()
	}
	return 0
}

// Flush implements Flusher.
func (s *Shared[T]) Flush() error {
	if s.closed.Load() {
		return ErrClosed
	}
	return Flush(s.ref.value)
}
