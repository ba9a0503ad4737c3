package syncfile

import (
	"os"

	"go.uber.org/zap"
)

// Option represents a configuration option
type Option func(*Options)

// Options contains all possible options for opening positional files
type Options struct {
	// Logger receives lock recovery warnings and driver diagnostics.
	// Defaults to a no-op logger.
	Logger *zap.Logger

	// Mode is the permission used when a file is created
	Mode os.FileMode

	// Flags overrides the os.OpenFile flags used by drivers
	Flags int

	// ReadOnly wraps opened files so that writes fail with ErrReadOnly
	ReadOnly bool

	// Size is the length used by fixed-size backends such as mmap
	Size int64
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithMode sets the permission bits for created files
func WithMode(mode os.FileMode) Option {
	return func(o *Options) {
		o.Mode = mode
	}
}

// WithFlags sets the os.OpenFile flags
func WithFlags(flags int) Option {
	return func(o *Options) {
		o.Flags = flags
	}
}

// WithReadOnly enables or disables the read-only wrapper
func WithReadOnly(readOnly bool) Option {
	return func(o *Options) {
		o.ReadOnly = readOnly
	}
}

// WithSize sets the size for fixed-size backends
func WithSize(size int64) Option {
	return func(o *Options) {
		o.Size = size
	}
}

// processOptions applies options over the defaults
func processOptions(options ...Option) *Options {
	opts := &Options{Mode: 0o666}
	for _, option := range options {
		option(opts)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return opts
}

// ProcessOptions applies options over the defaults. Drivers use it to read
// the options passed to Open and Create.
func ProcessOptions(options ...Option) *Options {
	return processOptions(options...)
}
