//go:build unix

package syncfile

import (
	"errors"

	"golang.org/x/sys/unix"
)

func isSysInterrupted(err error) bool {
	return errors.Is(err, unix.EINTR)
}
