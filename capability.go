package syncfile

import (
	"bytes"
	"io"
	"strings"
)

// ============================================================================
// Core Interfaces (Interface Segregation)
// ============================================================================

// ReaderAt reads bytes at an explicit offset without touching any state
// visible to other callers.
//
// The method set is the same as io.ReaderAt, but the contract is relaxed:
// ReadAt may return n < len(p) with a nil error (a short read) before the end
// of the source. End of source is reported as 0, io.EOF for a non-empty p.
// An empty p always returns 0, nil. Use ReadFullAt when every byte is needed.
type ReaderAt interface {
	ReadAt(p []byte, off int64) (n int, err error)
}

// WriterAt writes bytes at an explicit offset. Like ReaderAt, it may accept
// fewer bytes than len(p) without an error. Use WriteFullAt to write all of p.
type WriterAt interface {
	WriteAt(p []byte, off int64) (n int, err error)
}

// ReadWriterAt groups ReaderAt and WriterAt.
type ReadWriterAt interface {
	ReaderAt
	WriterAt
}

// Sizer reports the total addressable length of a bounded source.
type Sizer interface {
	Size() int64
}

// SizeReaderAt is a bounded positional source.
type SizeReaderAt interface {
	ReaderAt
	Sizer
}

// ============================================================================
// Optional Capability Interfaces
// ============================================================================
// Sources may implement these to replace the default algorithms below.
// Use type assertion to check if a source supports a capability:
//
//	if v, ok := src.(VectoredReaderAt); ok {
//	    n, err = v.ReadVectoredAt(bufs, off)
//	}

// VectoredReaderAt reads into several buffers as if they were one contiguous
// buffer starting at off.
type VectoredReaderAt interface {
	ReadVectoredAt(bufs [][]byte, off int64) (n int, err error)
}

// VectoredWriterAt writes several buffers as if they were one contiguous
// buffer starting at off.
type VectoredWriterAt interface {
	WriteVectoredAt(bufs [][]byte, off int64) (n int, err error)
}

// Flusher is implemented by sinks that hold buffered state.
type Flusher interface {
	Flush() error
}

var (
	_ SizeReaderAt = (*bytes.Reader)(nil)
	_ SizeReaderAt = (*strings.Reader)(nil)
)

// ============================================================================
// Default Algorithms
// ============================================================================

// ReadFullAt reads exactly len(p) bytes from r starting at off.
//
// Interrupted calls are retried. If the source ends before p is full the
// error is io.ErrUnexpectedEOF. On any other error the contents of p beyond
// the bytes already read are unspecified.
func ReadFullAt(r ReaderAt, p []byte, off int64) error {
	for len(p) > 0 {
		n, err := r.ReadAt(p, off)
		if n > 0 {
			p = p[n:]
			off += int64(n)
		}
		switch {
		case err == nil:
			if n == 0 {
				return io.ErrUnexpectedEOF
			}
		case err == io.EOF:
			if len(p) > 0 {
				return io.ErrUnexpectedEOF
			}
		case IsInterrupted(err):
		default:
			return err
		}
	}
	return nil
}

// WriteFullAt writes all of p to w starting at off.
//
// Interrupted calls are retried. A call that makes no progress fails with
// ErrWriteZero. Any other error is returned as is.
func WriteFullAt(w WriterAt, p []byte, off int64) error {
	for len(p) > 0 {
		n, err := w.WriteAt(p, off)
		if n > 0 {
			p = p[n:]
			off += int64(n)
		}
		if err != nil {
			if IsInterrupted(err) {
				continue
			}
			return err
		}
		if n == 0 {
			return ErrWriteZero
		}
	}
	return nil
}

// ReadVectoredAt reads into bufs as one logical buffer starting at off.
//
// If r implements VectoredReaderAt the call is delegated. Otherwise a single
// ReadAt into the first non-empty buffer is performed, which is a valid short
// read.
func ReadVectoredAt(r ReaderAt, bufs [][]byte, off int64) (int, error) {
	if v, ok := r.(VectoredReaderAt); ok {
		return v.ReadVectoredAt(bufs, off)
	}
	for _, b := range bufs {
		if len(b) > 0 {
			return r.ReadAt(b, off)
		}
	}
	return 0, nil
}

// WriteVectoredAt writes bufs as one logical buffer starting at off.
//
// If w implements VectoredWriterAt the call is delegated. Otherwise only the
// first non-empty buffer is written.
func WriteVectoredAt(w WriterAt, bufs [][]byte, off int64) (int, error) {
	if v, ok := w.(VectoredWriterAt); ok {
		return v.WriteVectoredAt(bufs, off)
	}
	for _, b := range bufs {
		if len(b) > 0 {
			return w.WriteAt(b, off)
		}
	}
	return 0, nil
}

// Flush flushes w if it holds buffered state and is a no-op otherwise.
func Flush(w any) error {
	if f, ok := w.(Flusher); ok {
		return f.Flush()
	}
	return nil
}

// vectoredLen returns the combined length of bufs.
func vectoredLen(bufs [][]byte) int {
	n := 0
	for _, b := range bufs {
		n += len(b)
	}
	return n
}
