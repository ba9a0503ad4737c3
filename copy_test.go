package syncfile

import (
	"bytes"
	"errors"
	"math/rand/v2"
	"path/filepath"
	"testing"
)

func TestCopyAt(t *testing.T) {
	data := make([]byte, 100_000)
	r := rand.New(rand.NewPCG(1, 2))
	for i := range data {
		data[i] = byte(r.IntN(256))
	}

	tests := []struct {
		name        string
		chunkSize   int
		concurrency int
	}{
		{"defaults", 0, 0},
		{"single worker", 4096, 1},
		{"parallel", 1000, 8},
		{"uneven chunks", 333, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := NewBuffer(nil)
			if err := CopyAt(dst, 10, Bytes(data), 5, int64(len(data)-5), tt.chunkSize, tt.concurrency); err != nil {
				t.Fatalf("CopyAt() error = %v", err)
			}
			got := dst.Bytes()
			if !bytes.Equal(got[10:], data[5:]) || !bytes.Equal(got[:10], make([]byte, 10)) {
				t.Error("copied content mismatch")
			}
		})
	}
}

func TestCopyAtFile(t *testing.T) {
	src, err := OpenSync(createTemp(t, "0123456789abcdef"))
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	dst, err := CreateSync(filepath.Join(t.TempDir(), "dst"))
	if err != nil {
		t.Fatal(err)
	}
	defer dst.Close()

	if err := CopyAt(dst, 0, src, 4, 8, 3, 2); err != nil {
		t.Fatalf("CopyAt() error = %v", err)
	}
	p := make([]byte, 8)
	if err := ReadFullAt(dst, p, 0); err != nil || string(p) != "456789ab" {
		t.Errorf("copied = %q, %v", p, err)
	}
}

func TestCopyAtErrors(t *testing.T) {
	if err := CopyAt(Discard{}, -1, Empty{}, 0, 0, 0, 0); !errors.Is(err, ErrInvalidOffset) {
		t.Errorf("negative dst offset error = %v", err)
	}
	if err := CopyAt(Discard{}, 0, Empty{}, 0, -1, 0, 0); !errors.Is(err, ErrInvalidOffset) {
		t.Errorf("negative length error = %v", err)
	}
	if err := CopyAt(Discard{}, 0, Empty{}, 0, 0, 0, 0); err != nil {
		t.Errorf("zero-length copy error = %v", err)
	}

	if err := CopyAt(Discard{}, 0, Bytes("short"), 0, 10, 4, 2); !IsUnexpectedEOF(err) {
		t.Errorf("copy past source end error = %v", err)
	}
	if err := CopyAt(FixedBuffer(make([]byte, 4)), 0, Bytes("too long"), 0, 8, 2, 1); !errors.Is(err, ErrWriteZero) {
		t.Errorf("copy into full sink error = %v", err)
	}
}

func TestCopyAtFlushes(t *testing.T) {
	dst := &countingFlusher{Buffer: NewBuffer(nil)}
	if err := CopyAt(dst, 0, Bytes("abc"), 0, 3, 0, 0); err != nil {
		t.Fatal(err)
	}
	if dst.flushes != 1 {
		t.Errorf("Flush called %d times, want 1", dst.flushes)
	}
}
