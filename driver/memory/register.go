package memory

import "github.com/gobeaver/syncfile"

func init() {
	syncfile.RegisterDriver("memory", func(cfg *syncfile.Config) (syncfile.Driver, error) {
		return New(Config{MaxSize: cfg.MemoryMaxSize}), nil
	})
}
