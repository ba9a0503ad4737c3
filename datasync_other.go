//go:build !linux

package syncfile

import "os"

func syncData(f *os.File) error {
	return f.Sync()
}
