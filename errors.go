package syncfile

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
)

// Common positional I/O errors
var (
	ErrClosed        = errors.New("file already closed")
	ErrInvalidOffset = errors.New("invalid offset")
	ErrInvalidWhence = errors.New("invalid whence")
	ErrNotSupported  = errors.New("operation not supported")
	ErrReadOnly      = errors.New("source is read-only")
	ErrInterrupted   = errors.New("operation interrupted")
	ErrNotExist      = errors.New("file does not exist")
	ErrNotAllowed    = errors.New("operation not allowed")
	ErrNoSpace       = errors.New("no space left")
	ErrPermission    = errors.New("permission denied")

	// ErrWriteZero is returned by WriteFullAt when a sink accepts no bytes
	// of a non-empty buffer, typically because it is full.
	ErrWriteZero = errors.New("failed to write whole buffer")
)

// PathError records an error and the operation and file path that caused it
type PathError struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface
func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error
func (e *PathError) Unwrap() error {
	return e.Err
}

// WrapPathErr wraps err with the operation and path that caused it.
// It returns nil if err is nil.
func WrapPathErr(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &PathError{Op: op, Path: path, Err: err}
}

// IsInterrupted reports whether err is a transient interruption that
// exact-transfer helpers retry transparently.
func IsInterrupted(err error) bool {
	return errors.Is(err, ErrInterrupted) || isSysInterrupted(err)
}

// IsInvalidOffset reports whether err was caused by a seek or positional
// call that would leave the representable offset range.
func IsInvalidOffset(err error) bool {
	return errors.Is(err, ErrInvalidOffset)
}

// IsNotExist reports whether err indicates a missing file
func IsNotExist(err error) bool {
	return errors.Is(err, ErrNotExist) || errors.Is(err, fs.ErrNotExist)
}

// IsNotSupported reports whether err indicates an unsupported operation
func IsNotSupported(err error) bool {
	return errors.Is(err, ErrNotSupported)
}

// IsUnexpectedEOF reports whether an exact read ran out of source.
func IsUnexpectedEOF(err error) bool {
	return errors.Is(err, io.ErrUnexpectedEOF)
}
