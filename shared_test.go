package syncfile

import (
	"errors"
	"sync"
	"testing"
)

// closeCounter is a Buffer that records Close calls.
type closeCounter struct {
	*Buffer
	closes int
}

func (c *closeCounter) Close() error {
	c.closes++
	return nil
}

func TestSharedRefCounting(t *testing.T) {
	inner := &closeCounter{Buffer: NewBuffer([]byte("data"))}
	s := NewShared(inner)
	c := s.Clone()
	d := c.Clone()

	if s.Refs() != 3 {
		t.Fatalf("Refs() = %d, want 3", s.Refs())
	}

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("double Close() error = %v", err)
	}
	if _, err := s.ReadAt(make([]byte, 1), 0); !errors.Is(err, ErrClosed) {
		t.Errorf("ReadAt() on closed handle error = %v", err)
	}
	if _, err := s.WriteAt([]byte("x"), 0); !errors.Is(err, ErrClosed) {
		t.Errorf("WriteAt() on closed handle error = %v", err)
	}
	if err := s.Flush(); !errors.Is(err, ErrClosed) {
		t.Errorf("Flush() on closed handle error = %v", err)
	}

	closedClone := s.Clone()
	if _, err := closedClone.ReadAt(make([]byte, 1), 0); !errors.Is(err, ErrClosed) {
		t.Errorf("clone of closed handle should be closed, got %v", err)
	}
	if s.Refs() != 2 {
		t.Errorf("Refs() = %d, want 2", s.Refs())
	}

	p := make([]byte, 4)
	if err := ReadFullAt(d, p, 0); err != nil || string(p) != "data" {
		t.Errorf("ReadFullAt() via clone = %q, %v", p, err)
	}

	_ = c.Close()
	if inner.closes != 0 {
		t.Error("inner closed before the last handle")
	}
	_ = d.Close()
	if inner.closes != 1 {
		t.Errorf("inner closed %d times, want 1", inner.closes)
	}
}

func TestSharedForwarding(t *testing.T) {
	s := NewShared(NewBuffer(nil))
	defer s.Close()

	if err := WriteFullAt(s, []byte("abc"), 0); err != nil {
		t.Fatal(err)
	}
	n, err := s.WriteVectoredAt([][]byte{[]byte("de"), []byte("f")}, 3)
	if n != 3 || err != nil {
		t.Fatalf("WriteVectoredAt() = %d, %v", n, err)
	}
	if s.Size() != 6 {
		t.Errorf("Size() = %d", s.Size())
	}

	a, b := make([]byte, 3), make([]byte, 3)
	if n, err := s.ReadVectoredAt([][]byte{a, b}, 0); n != 6 || err != nil || string(a)+string(b) != "abcdef" {
		t.Errorf("ReadVectoredAt() = %d, %q%q, %v", n, a, b, err)
	}
	if s.Get().Size() != 6 {
		t.Error("Get() should return the wrapped value")
	}
}

func TestSharedUnsupported(t *testing.T) {
	s := NewShared(Bytes("ro"))
	if _, err := s.WriteAt([]byte("x"), 0); !errors.Is(err, ErrNotSupported) {
		t.Errorf("WriteAt() on read-only value error = %v", err)
	}

	w := NewShared(Discard{})
	if _, err := w.ReadAt(make([]byte, 1), 0); !errors.Is(err, ErrNotSupported) {
		t.Errorf("ReadAt() on write-only value error = %v", err)
	}
	if w.Size() != 0 {
		t.Error("Size() of unsized value should be 0")
	}
	// Close of a value without io.Closer succeeds.
	if err := w.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestSharedConcurrentClose(t *testing.T) {
	inner := &closeCounter{Buffer: NewBuffer(nil)}
	s := NewShared(inner)

	handles := []*Shared[*closeCounter]{s}
	for range 63 {
		handles = append(handles, s.Clone())
	}

	var wg sync.WaitGroup
	for _, h := range handles {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.Close()
		}()
	}
	wg.Wait()

	if inner.closes != 1 {
		t.Errorf("inner closed %d times, want 1", inner.closes)
	}
}
