//go:build linux && !syncfile_fallback

package syncfile

import (
	"io"
	"os"

	"golang.org/x/sys/unix"
)

func (n *nativeIO) readVectoredAt(bufs [][]byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrInvalidOffset
	}
	if vectoredLen(bufs) == 0 {
		return 0, nil
	}

	var (
		nr    int
		errno error
	)
	err := n.conn.Control(func(fd uintptr) {
		nr, errno = unix.Preadv(int(fd), bufs, off)
	})
	if err != nil {
		return 0, err
	}
	if errno != nil {
		return 0, os.NewSyscallError("preadv", errno)
	}
	if nr == 0 {
		return 0, io.EOF
	}
	return nr, nil
}

func (n *nativeIO) writeVectoredAt(bufs [][]byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrInvalidOffset
	}
	if vectoredLen(bufs) == 0 {
		return 0, nil
	}

	var (
		nw    int
		errno error
	)
	err := n.conn.Control(func(fd uintptr) {
		nw, errno = unix.Pwritev(int(fd), bufs, off)
	})
	if err != nil {
		return 0, err
	}
	if errno != nil {
		return 0, os.NewSyscallError("pwritev", errno)
	}
	return nw, nil
}
