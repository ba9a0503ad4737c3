package syncfile

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"syscall"

	"go.uber.org/zap"
)

// strategy is the positional I/O policy of one platform file. Exactly one
// implementation is chosen per build target by newStrategy.
type strategy interface {
	readAt(p []byte, off int64) (int, error)
	writeAt(p []byte, off int64) (int, error)
	readVectoredAt(bufs [][]byte, off int64) (int, error)
	writeVectoredAt(bufs [][]byte, off int64) (int, error)

	// seekEnd moves the OS cursor relative to the end of the file and
	// returns the resulting absolute offset.
	seekEnd(off int64) (int64, error)

	// do runs fn under the same access discipline as the transfers.
	do(fn func() error) error
}

// cursorFile is a platform file that only offers a shared cursor.
type cursorFile interface {
	io.Reader
	io.Writer
	io.Seeker
}

// lockedIO emulates positional I/O on a cursor-only file. Every call holds
// the mutex across the reposition and the transfer, so each single call is
// atomic with respect to the others on the same file.
type lockedIO struct {
	mu       sync.Mutex
	f        cursorFile
	poisoned bool
	logger   *zap.Logger
}

func newLockedIO(f cursorFile, logger *zap.Logger) *lockedIO {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &lockedIO{f: f, logger: logger}
}

// guard runs fn with the lock held. A panic inside fn marks the lock as
// poisoned; the next caller logs the recovery and carries on with the file
// as it is.
func (l *lockedIO) guard(fn func() error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.poisoned {
		l.logger.Warn("recovered positional lock after an aborted operation")
		l.poisoned = false
	}

	completed := false
	defer func() {
		if !completed {
			l.poisoned = true
		}
	}()

	err := fn()
	completed = true
	return err
}

func (l *lockedIO) readAt(p []byte, off int64) (n int, err error) {
	if off < 0 {
		return 0, ErrInvalidOffset
	}
	if len(p) == 0 {
		return 0, nil
	}
	err = l.guard(func() error {
		if _, err := l.f.Seek(off, io.SeekStart); err != nil {
			return err
		}
		var rerr error
		n, rerr = l.f.Read(p)
		return rerr
	})
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}

func (l *lockedIO) writeAt(p []byte, off int64) (n int, err error) {
	if off < 0 {
		return 0, ErrInvalidOffset
	}
	if len(p) == 0 {
		return 0, nil
	}
	err = l.guard(func() error {
		if _, err := l.f.Seek(off, io.SeekStart); err != nil {
			return err
		}
		var werr error
		n, werr = l.f.Write(p)
		return werr
	})
	return n, err
}

func (l *lockedIO) readVectoredAt(bufs [][]byte, off int64) (int, error) {
	for _, b := range bufs {
		if len(b) > 0 {
			return l.readAt(b, off)
		}
	}
	return 0, nil
}

func (l *lockedIO) writeVectoredAt(bufs [][]byte, off int64) (int, error) {
	for _, b := range bufs {
		if len(b) > 0 {
			return l.writeAt(b, off)
		}
	}
	return 0, nil
}

func (l *lockedIO) seekEnd(off int64) (pos int64, err error) {
	err = l.guard(func() error {
		var serr error
		pos, serr = l.f.Seek(off, io.SeekEnd)
		return serr
	})
	if errors.Is(err, syscall.EINVAL) {
		return 0, fmt.Errorf("%w: %w", ErrInvalidOffset, err)
	}
	return pos, err
}

func (l *lockedIO) do(fn func() error) error {
	return l.guard(fn)
}

// ============================================================================
// SeekerAt
// ============================================================================

// SeekerAt gives positional access to any single-cursor handle, such as a
// file from a virtual filesystem, by serializing reposition-and-transfer
// pairs behind a mutex.
//
// Nothing else may drive the cursor of the wrapped handle while the SeekerAt
// is in use.
type SeekerAt struct {
	io  *lockedIO
	rws io.ReadWriteSeeker
}

// FromSeeker wraps rws. Only WithLogger is honoured among the options.
func FromSeeker(rws io.ReadWriteSeeker, opts ...Option) *SeekerAt {
	o := processOptions(opts...)
	return &SeekerAt{io: newLockedIO(rws, o.Logger), rws: rws}
}

// ReadAt implements ReaderAt.
func (s *SeekerAt) ReadAt(p []byte, off int64) (int, error) {
	return s.io.readAt(p, off)
}

// WriteAt implements WriterAt.
func (s *SeekerAt) WriteAt(p []byte, off int64) (int, error) {
	return s.io.writeAt(p, off)
}

// Size returns the current length of the handle, or 0 if it cannot be
// determined.
func (s *SeekerAt) Size() int64 {
	size, err := s.io.seekEnd(0)
	if err != nil {
		return 0
	}
	return size
}

// SeekEnd resolves an end-relative position against the handle.
func (s *SeekerAt) SeekEnd(off int64) (int64, error) {
	return s.io.seekEnd(off)
}

// Flush flushes the handle if it buffers writes.
func (s *SeekerAt) Flush() error {
	return s.io.do(func() error {
		return Flush(s.rws)
	})
}

// Close closes the handle if it is an io.Closer.
func (s *SeekerAt) Close() error {
	if c, ok := s.rws.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

var (
	_ ReadWriterAt = (*SeekerAt)(nil)
	_ Sizer        = (*SeekerAt)(nil)
	_ Flusher      = (*SeekerAt)(nil)
)
