package syncfile

import (
	"errors"
)

// ============================================================================
// ReadOnly Decorator
// ============================================================================

// ReadOnly wraps a positional source to block every write.
// Reads, vectored reads and Size are forwarded unchanged.
//
// Example:
//
//	f, _ := syncfile.Open("/data/blob")
//	view := syncfile.NewReadOnly(f, syncfile.WithReadOnlyName("/data/blob"))
//
//	// Read operations work normally
//	n, _ := view.ReadAt(buf, 128)
//
//	// Write operations return ErrReadOnly
//	_, err := view.WriteAt(buf, 0)
//	// err wraps ErrReadOnly
type ReadOnly struct {
	src  ReaderAt
	opts ReadOnlyOptions
}

// ReadOnlyOptions configures the ReadOnly behavior.
type ReadOnlyOptions struct {
	// Name is reported in the PathError returned for blocked writes.
	Name string

	// OnWriteAttempt is called when a write is attempted.
	// If it returns nil and the source is writable, the write is allowed.
	OnWriteAttempt func(op, name string) error
}

// ReadOnlyOption is a functional option for configuring ReadOnly.
type ReadOnlyOption func(*ReadOnlyOptions)

// WithReadOnlyName sets the name used in errors.
func WithReadOnlyName(name string) ReadOnlyOption {
	return func(o *ReadOnlyOptions) {
		o.Name = name
	}
}

// WithWriteAttemptHandler sets a custom handler for write attempts.
func WithWriteAttemptHandler(handler func(op, name string) error) ReadOnlyOption {
	return func(o *ReadOnlyOptions) {
		o.OnWriteAttempt = handler
	}
}

// NewReadOnly creates a read-only wrapper around src.
func NewReadOnly(src ReaderAt, opts ...ReadOnlyOption) *ReadOnly {
	options := ReadOnlyOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	return &ReadOnly{
		src:  src,
		opts: options,
	}
}

// Unwrap returns the underlying source.
func (r *ReadOnly) Unwrap() ReaderAt {
	return r.src
}

// IsReadOnly returns true, indicating this is a read-only source.
func (r *ReadOnly) IsReadOnly() bool {
	return true
}

// readOnlyError creates an appropriate error for write operations.
func (r *ReadOnly) readOnlyError(op string) error {
	if r.opts.OnWriteAttempt != nil {
		if err := r.opts.OnWriteAttempt(op, r.opts.Name); err != nil {
			return &PathError{Op: op, Path: r.opts.Name, Err: err}
		}
		// Handler returned nil, allow the operation
		return nil
	}
	return &PathError{Op: op, Path: r.opts.Name, Err: ErrReadOnly}
}

// ReadAt delegates to the underlying source.
func (r *ReadOnly) ReadAt(p []byte, off int64) (int, error) {
	return r.src.ReadAt(p, off)
}

// ReadVectoredAt delegates to the underlying source.
func (r *ReadOnly) ReadVectoredAt(bufs [][]byte, off int64) (int, error) {
	return ReadVectoredAt(r.src, bufs, off)
}

// Size delegates to the underlying source, returning 0 if it is unbounded.
func (r *ReadOnly) Size() int64 {
	if s, ok := r.src.(Sizer); ok {
		return s.Size()
	}
	return 0
}

// WriteAt returns ErrReadOnly.
func (r *ReadOnly) WriteAt(p []byte, off int64) (int, error) {
	if err := r.readOnlyError("writeat"); err != nil {
		return 0, err
	}
	w, ok := r.src.(WriterAt)
	if !ok {
		return 0, &PathError{Op: "writeat", Path: r.opts.Name, Err: ErrNotSupported}
	}
	return w.WriteAt(p, off)
}

// Ensure ReadOnly implements the capability interfaces
var (
	_ ReadWriterAt     = (*ReadOnly)(nil)
	_ VectoredReaderAt = (*ReadOnly)(nil)
	_ Sizer            = (*ReadOnly)(nil)
)

// IsReadOnlyError checks if an error is due to read-only restrictions.
func IsReadOnlyError(err error) bool {
	return errors.Is(err, ErrReadOnly)
}
