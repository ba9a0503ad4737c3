package syncfile

import (
	"io"
)

// File is a positional file opened by a Driver.
type File interface {
	ReadWriterAt
	Sizer
	io.Closer
}

// Driver opens positional files by name.
type Driver interface {
	// Open opens an existing file.
	Open(name string, opts ...Option) (File, error)

	// Create creates or truncates a file.
	Create(name string, opts ...Option) (File, error)
}

// readOnlyFile keeps the Close of a file hidden behind a ReadOnly view.
type readOnlyFile struct {
	*ReadOnly
	closer io.Closer
}

func (f *readOnlyFile) Close() error {
	return f.closer.Close()
}

// ReadOnlyFile returns a view of f whose writes fail with ErrReadOnly.
// Closing the view closes f.
func ReadOnlyFile(f File, name string) File {
	return &readOnlyFile{
		ReadOnly: NewReadOnly(f, WithReadOnlyName(name)),
		closer:   f,
	}
}

// Finish applies the ReadOnly option to a freshly opened file. Drivers call
// it before returning from Open and Create.
func Finish(f File, name string, o *Options) File {
	if o.ReadOnly {
		return ReadOnlyFile(f, name)
	}
	return f
}

// fileDriver opens plain OS paths as SyncFiles.
type fileDriver struct{}

func init() {
	RegisterDriver("file", func(cfg *Config) (Driver, error) {
		return fileDriver{}, nil
	})
}

func (fileDriver) Open(name string, opts ...Option) (File, error) {
	o := processOptions(opts...)
	// The zero Flags value is os.O_RDONLY.
	f, err := OpenFile(name, o.Flags, o.Mode, opts...)
	if err != nil {
		return nil, err
	}
	return Finish(NewSyncFile(f), name, o), nil
}

func (fileDriver) Create(name string, opts ...Option) (File, error) {
	o := processOptions(opts...)
	f, err := Create(name, opts...)
	if err != nil {
		return nil, err
	}
	return Finish(NewSyncFile(f), name, o), nil
}

var _ File = (*readOnlyFile)(nil)
