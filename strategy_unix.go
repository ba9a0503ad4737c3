//go:build unix && !syncfile_fallback

package syncfile

import (
	"io"
	"os"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// nativeIO drives pread(2) and pwrite(2) directly. No lock is taken and the
// OS cursor is never touched by transfers. Control is used rather than the
// RawConn Read/Write hooks, which serialize callers on the descriptor.
type nativeIO struct {
	f    *os.File
	conn syscall.RawConn
}

func newStrategy(f *os.File, _ *zap.Logger) (strategy, error) {
	conn, err := f.SyscallConn()
	if err != nil {
		return nil, err
	}
	return &nativeIO{f: f, conn: conn}, nil
}

func (n *nativeIO) readAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrInvalidOffset
	}
	if len(p) == 0 {
		return 0, nil
	}

	var (
		nr    int
		errno error
	)
	err := n.conn.Control(func(fd uintptr) {
		nr, errno = unix.Pread(int(fd), p, off)
	})
	if err != nil {
		return 0, err
	}
	if errno != nil {
		return 0, os.NewSyscallError("pread", errno)
	}
	if nr == 0 {
		return 0, io.EOF
	}
	return nr, nil
}

func (n *nativeIO) writeAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrInvalidOffset
	}
	if len(p) == 0 {
		return 0, nil
	}

	var (
		nw    int
		errno error
	)
	err := n.conn.Control(func(fd uintptr) {
		nw, errno = unix.Pwrite(int(fd), p, off)
	})
	if err != nil {
		return 0, err
	}
	if errno != nil {
		return 0, os.NewSyscallError("pwrite", errno)
	}
	return nw, nil
}

func (n *nativeIO) seekEnd(off int64) (int64, error) {
	return n.f.Seek(off, io.SeekEnd)
}

func (n *nativeIO) do(fn func() error) error {
	return fn()
}
