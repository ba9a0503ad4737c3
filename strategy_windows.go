//go:build windows && !syncfile_fallback

package syncfile

import (
	"io"
	"os"

	"go.uber.org/zap"
)

// nativeIO uses the overlapped positional ReadFile/WriteFile calls behind
// (*os.File).ReadAt and WriteAt. Windows moves the handle cursor as a side
// effect, but no transfer depends on it.
type nativeIO struct {
	f *os.File
}

func newStrategy(f *os.File, _ *zap.Logger) (strategy, error) {
	return &nativeIO{f: f}, nil
}

func (n *nativeIO) readAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrInvalidOffset
	}
	if len(p) == 0 {
		return 0, nil
	}
	nr, err := n.f.ReadAt(p, off)
	if err == io.EOF && nr > 0 {
		err = nil
	}
	return nr, err
}

func (n *nativeIO) writeAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrInvalidOffset
	}
	return n.f.WriteAt(p, off)
}

func (n *nativeIO) readVectoredAt(bufs [][]byte, off int64) (int, error) {
	for _, b := range bufs {
		if len(b) > 0 {
			return n.readAt(b, off)
		}
	}
	return 0, nil
}

func (n *nativeIO) writeVectoredAt(bufs [][]byte, off int64) (int, error) {
	for _, b := range bufs {
		if len(b) > 0 {
			return n.writeAt(b, off)
		}
	}
	return 0, nil
}

func (n *nativeIO) seekEnd(off int64) (int64, error) {
	return n.f.Seek(off, io.SeekEnd)
}

func (n *nativeIO) do(fn func() error) error {
	return fn()
}
