package syncfile

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gobeaver/beaver-kit/config"
)

// Global instance
var (
	defaultDriver Driver
	defaultOnce   sync.Once
	defaultErr    error
)

// Builder provides a way to create Driver instances with custom prefixes
type Builder struct {
	prefix string
}

// WithPrefix creates a new Builder with the specified prefix
func WithPrefix(prefix string) *Builder {
	return &Builder{prefix: prefix}
}

// Init initializes the global Driver instance using the builder's prefix
func (b *Builder) Init() error {
	cfg := &Config{}
	if err := config.Load(cfg, config.LoadOptions{Prefix: b.prefix}); err != nil {
		return err
	}
	return Init(cfg)
}

// New creates a new Driver instance using the builder's prefix
func (b *Builder) New(opts ...Option) (Driver, error) {
	cfg := &Config{}
	if err := config.Load(cfg, config.LoadOptions{Prefix: b.prefix}); err != nil {
		return nil, err
	}
	return New(cfg, opts...)
}

// Init initializes the global driver instance
func Init(configs ...*Config) error {
	defaultOnce.Do(func() {
		var cfg *Config
		if len(configs) > 0 {
			cfg = configs[0]
		} else {
			cfg, defaultErr = GetConfig()
			if defaultErr != nil {
				return
			}
		}

		defaultDriver, defaultErr = New(cfg)
	})

	return defaultErr
}

// New creates a new driver instance with given config. The options are
// applied to every Open and Create after the defaults taken from cfg.
func New(cfg *Config, opts ...Option) (Driver, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	driver, err := CreateDriver(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create driver: %w", err)
	}

	defaults, err := createDefaultOptions(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	defaults = append(defaults, opts...)

	if len(defaults) == 0 {
		return driver, nil
	}
	return &defaultOptionsDriver{driver: driver, options: defaults}, nil
}

// validateConfig checks configuration validity
func validateConfig(cfg *Config) error {
	if cfg.Driver == "" {
		return errors.New("driver is required")
	}

	switch cfg.Driver {
	case "file", "memory", "mmap":
	case "local":
		if cfg.LocalBasePath == "" {
			return errors.New("local base path is required for local driver")
		}
	case "billy":
		switch cfg.BillyBackend {
		case "", "memfs":
		case "osfs":
			if cfg.BillyRoot == "" {
				return errors.New("billy root is required for the osfs backend")
			}
		default:
			return fmt.Errorf("unknown billy backend: %s", cfg.BillyBackend)
		}
	case "s3":
		if cfg.S3Bucket == "" {
			return errors.New("S3 bucket is required for s3 driver")
		}
	case "sftp":
		if cfg.SFTPHost == "" {
			return errors.New("SFTP host is required for sftp driver")
		}
		if cfg.SFTPUsername == "" {
			return errors.New("SFTP username is required for sftp driver")
		}
	default:
		return fmt.Errorf("unknown driver: %s", cfg.Driver)
	}

	if _, err := cfg.FileMode(); err != nil {
		return err
	}
	if cfg.ChunkSize < 0 {
		return errors.New("chunk size must not be negative")
	}
	if cfg.Concurrency < 0 {
		return errors.New("concurrency must not be negative")
	}
	if cfg.ChecksumAlgorithm != "" {
		if _, err := NewHasher(ChecksumAlgorithm(cfg.ChecksumAlgorithm)); err != nil {
			return err
		}
	}

	return nil
}

// createDefaultOptions creates default options from config
func createDefaultOptions(cfg *Config) ([]Option, error) {
	var options []Option

	if cfg.CreateMode != "" {
		mode, err := cfg.FileMode()
		if err != nil {
			return nil, err
		}
		options = append(options, WithMode(mode))
	}

	if cfg.ReadOnly {
		options = append(options, WithReadOnly(true))
	}

	if cfg.MmapSize > 0 {
		options = append(options, WithSize(cfg.MmapSize))
	}

	return options, nil
}

// Default returns the global instance, initializing if needed with error handling
func Default() (Driver, error) {
	if defaultDriver == nil {
		if err := Init(); err != nil {
			return nil, err
		}
	}
	return defaultDriver, nil
}

// NewFromEnv creates instance from environment variables (convenience constructor)
func NewFromEnv(opts ...Option) (Driver, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, err
	}
	return New(cfg, opts...)
}

// Reset clears the global instance (for testing)
func Reset() {
	defaultDriver = nil
	defaultOnce = sync.Once{}
	defaultErr = nil
}

// defaultOptionsDriver wraps a Driver to apply default options
type defaultOptionsDriver struct {
	driver  Driver
	options []Option
}

func (d *defaultOptionsDriver) merge(options []Option) []Option {
	// Provided options take precedence over the defaults
	all := make([]Option, 0, len(d.options)+len(options))
	all = append(all, d.options...)
	return append(all, options...)
}

func (d *defaultOptionsDriver) Open(name string, options ...Option) (File, error) {
	return d.driver.Open(name, d.merge(options)...)
}

func (d *defaultOptionsDriver) Create(name string, options ...Option) (File, error) {
	return d.driver.Create(name, d.merge(options)...)
}

// Unwrap returns the driver created by the factory.
func (d *defaultOptionsDriver) Unwrap() Driver {
	return d.driver
}
