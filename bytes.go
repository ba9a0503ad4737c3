package syncfile

import (
	"io"
	"math"
	"sync"
)

var (
	_ SizeReaderAt     = Bytes(nil)
	_ VectoredReaderAt = Bytes(nil)
	_ ReadWriterAt     = FixedBuffer(nil)
	_ ReadWriterAt     = (*Buffer)(nil)
	_ VectoredWriterAt = (*Buffer)(nil)
	_ ReadWriterAt     = (*CowBuffer)(nil)
	_ SizeReaderAt     = Empty{}
	_ WriterAt         = Discard{}
)

// Bytes is a read-only positional view of a byte slice.
type Bytes []byte

// ReadAt implements ReaderAt.
func (b Bytes) ReadAt(p []byte, off int64) (int, error) {
	return readSlice(b, p, off)
}

// ReadVectoredAt implements VectoredReaderAt.
func (b Bytes) ReadVectoredAt(bufs [][]byte, off int64) (int, error) {
	return readSliceVectored(b, bufs, off)
}

// Size implements Sizer.
func (b Bytes) Size() int64 { return int64(len(b)) }

// FixedBuffer is a fixed-capacity positional sink over a byte slice.
// Writes past its end are truncated and never grow the slice.
type FixedBuffer []byte

// ReadAt implements ReaderAt.
func (b FixedBuffer) ReadAt(p []byte, off int64) (int, error) {
	return readSlice(b, p, off)
}

// WriteAt implements WriterAt. It returns 0, nil once off reaches the end
// of the buffer, which WriteFullAt reports as ErrWriteZero.
func (b FixedBuffer) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrInvalidOffset
	}
	if off >= int64(len(b)) {
		return 0, nil
	}
	return copy(b[off:], p), nil
}

// Size implements Sizer.
func (b FixedBuffer) Size() int64 { return int64(len(b)) }

// Buffer is a growable in-memory positional file. Writes past the end
// extend it, filling any gap with zero bytes. It is safe for concurrent use.
type Buffer struct {
	mu   sync.RWMutex
	data []byte
}

// NewBuffer creates a Buffer that takes ownership of data.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{data: data}
}

// ReadAt implements ReaderAt.
func (b *Buffer) ReadAt(p []byte, off int64) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return readSlice(b.data, p, off)
}

// ReadVectoredAt implements VectoredReaderAt.
func (b *Buffer) ReadVectoredAt(bufs [][]byte, off int64) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return readSliceVectored(b.data, bufs, off)
}

// WriteAt implements WriterAt.
func (b *Buffer) WriteAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := growSlice(b.data, off, len(p))
	if err != nil {
		return 0, err
	}
	b.data = data
	return copy(b.data[off:], p), nil
}

// WriteVectoredAt implements VectoredWriterAt.
func (b *Buffer) WriteVectoredAt(bufs [][]byte, off int64) (int, error) {
	if vectoredLen(bufs) == 0 {
		return 0, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := growSlice(b.data, off, vectoredLen(bufs))
	if err != nil {
		return 0, err
	}
	b.data = data

	n := 0
	for _, p := range bufs {
		n += copy(b.data[off+int64(n):], p)
	}
	return n, nil
}

// Size implements Sizer.
func (b *Buffer) Size() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return int64(len(b.data))
}

// Truncate changes the length of the buffer, zero-filling when it grows.
func (b *Buffer) Truncate(size int64) error {
	if size < 0 {
		return ErrInvalidOffset
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if size <= int64(len(b.data)) {
		b.data = b.data[:size]
		return nil
	}
	data, err := growSlice(b.data, size, 0)
	if err != nil {
		return err
	}
	b.data = data
	return nil
}

// Bytes returns a copy of the buffer contents.
func (b *Buffer) Bytes() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}

// CowBuffer is a copy-on-write positional file. It reads from a borrowed
// slice until the first write, which copies the data into a private,
// growable slice. The borrowed slice is never modified.
type CowBuffer struct {
	mu    sync.RWMutex
	data  []byte
	owned bool
}

// NewCowBuffer creates a CowBuffer borrowing data.
func NewCowBuffer(data []byte) *CowBuffer {
	return &CowBuffer{data: data}
}

// ReadAt implements ReaderAt.
func (c *CowBuffer) ReadAt(p []byte, off int64) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return readSlice(c.data, p, off)
}

// WriteAt implements WriterAt.
func (c *CowBuffer) WriteAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.owned {
		c.data = append([]byte(nil), c.data...)
		c.owned = true
	}

	data, err := growSlice(c.data, off, len(p))
	if err != nil {
		return 0, err
	}
	c.data = data
	return copy(c.data[off:], p), nil
}

// Size implements Sizer.
func (c *CowBuffer) Size() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return int64(len(c.data))
}

// Owned reports whether the buffer has copied its data.
func (c *CowBuffer) Owned() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.owned
}

// Empty is a source with no bytes.
type Empty struct{}

// ReadAt implements ReaderAt.
func (Empty) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrInvalidOffset
	}
	if len(p) == 0 {
		return 0, nil
	}
	return 0, io.EOF
}

// Size implements Sizer.
func (Empty) Size() int64 { return 0 }

// Discard is a sink that accepts and drops every write.
type Discard struct{}

// WriteAt implements WriterAt.
func (Discard) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrInvalidOffset
	}
	return len(p), nil
}

func readSlice(data, p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrInvalidOffset
	}
	if len(p) == 0 {
		return 0, nil
	}
	if off >= int64(len(data)) {
		return 0, io.EOF
	}
	return copy(p, data[off:]), nil
}

func readSliceVectored(data []byte, bufs [][]byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrInvalidOffset
	}
	if vectoredLen(bufs) == 0 {
		return 0, nil
	}
	if off >= int64(len(data)) {
		return 0, io.EOF
	}

	n := 0
	for _, p := range bufs {
		if off+int64(n) >= int64(len(data)) {
			break
		}
		n += copy(p, data[off+int64(n):])
	}
	return n, nil
}

// MaxBufferSize is the largest length a Buffer or CowBuffer grows to.
// Writes ending beyond it fail with ErrNoSpace.
const MaxBufferSize int64 = 1 << 32

// growSlice makes data at least off+n bytes long, zero-filling new bytes.
func growSlice(data []byte, off int64, n int) ([]byte, error) {
	if off < 0 || off > math.MaxInt-int64(n) {
		return data, ErrInvalidOffset
	}
	if off > MaxBufferSize-int64(n) {
		return data, ErrNoSpace
	}
	end := int(off) + n
	if end <= len(data) {
		return data, nil
	}
	if end <= cap(data) {
		tail := data[len(data):end]
		clear(tail)
		return data[:end], nil
	}
	grown := make([]byte, end, max(end, 2*cap(data)))
	copy(grown, data)
	return grown, nil
}
