//go:build !unix && !windows

package syncfile

import "os"

func dupFile(*os.File) (*os.File, error) {
	return nil, ErrNotSupported
}
