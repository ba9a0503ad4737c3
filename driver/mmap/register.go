package mmap

import "github.com/gobeaver/syncfile"

func init() {
	syncfile.RegisterDriver("mmap", func(cfg *syncfile.Config) (syncfile.Driver, error) {
		return New(), nil
	})
}
