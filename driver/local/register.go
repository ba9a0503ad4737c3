package local

import "github.com/gobeaver/syncfile"

func init() {
	syncfile.RegisterDriver("local", func(cfg *syncfile.Config) (syncfile.Driver, error) {
		return New(cfg.LocalBasePath)
	})
}
