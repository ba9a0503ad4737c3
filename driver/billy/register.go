package billy

import (
	"fmt"

	"github.com/gobeaver/syncfile"
)

func init() {
	syncfile.RegisterDriver("billy", func(cfg *syncfile.Config) (syncfile.Driver, error) {
		switch cfg.BillyBackend {
		case "", "memfs":
			return NewInMemory(), nil
		case "osfs":
			return NewOS(cfg.BillyRoot), nil
		default:
			return nil, fmt.Errorf("unknown billy backend: %s", cfg.BillyBackend)
		}
	})
}
