package syncfile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func benchmarkFile(b *testing.B, size int) *RandomAccessFile {
	b.Helper()
	name := filepath.Join(b.TempDir(), "bench.bin")
	if err := os.WriteFile(name, []byte(strings.Repeat("x", size)), 0o644); err != nil {
		b.Fatal(err)
	}
	f, err := OpenFile(name, os.O_RDWR, 0)
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { f.Close() })
	return f
}

func BenchmarkRandomAccessFile(b *testing.B) {
	const size = 1 << 20
	f := benchmarkFile(b, size)
	buf := make([]byte, 4096)

	b.Run("ReadAt", func(b *testing.B) {
		b.SetBytes(int64(len(buf)))
		for i := 0; i < b.N; i++ {
			off := int64(i*len(buf)) % (size - int64(len(buf)))
			if _, err := f.ReadAt(buf, off); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("WriteAt", func(b *testing.B) {
		b.SetBytes(int64(len(buf)))
		for i := 0; i < b.N; i++ {
			off := int64(i*len(buf)) % (size - int64(len(buf)))
			if _, err := f.WriteAt(buf, off); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("ReadAtParallel", func(b *testing.B) {
		b.SetBytes(int64(len(buf)))
		b.RunParallel(func(pb *testing.PB) {
			p := make([]byte, len(buf))
			var off int64
			for pb.Next() {
				if err := ReadFullAt(f, p, off); err != nil {
					b.Error(err)
					return
				}
				off = (off + int64(len(p))) % (size - int64(len(p)))
			}
		})
	})
}

func BenchmarkSyncFileClones(b *testing.B) {
	const size = 1 << 16
	sf := NewSyncFile(benchmarkFile(b, size))
	defer sf.Close()

	b.SetBytes(size)
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			c := sf.Clone()
			if _, err := io.Copy(io.Discard, c); err != nil {
				b.Error(err)
			}
			c.Close()
		}
	})
}

func BenchmarkBuffer(b *testing.B) {
	buf := NewBuffer(make([]byte, 1<<16))
	p := make([]byte, 512)

	b.Run("ReadAt", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			buf.ReadAt(p, int64(i%128)*512)
		}
	})

	b.Run("WriteAt", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			buf.WriteAt(p, int64(i%128)*512)
		}
	})
}

func BenchmarkChecksum(b *testing.B) {
	src := Bytes(strings.Repeat("checksum", 1<<14))
	for _, algo := range []ChecksumAlgorithm{ChecksumXXHash, ChecksumCRC32, ChecksumSHA256} {
		b.Run(string(algo), func(b *testing.B) {
			b.SetBytes(src.Size())
			for i := 0; i < b.N; i++ {
				if _, err := Checksum(src, algo); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkCopyAt(b *testing.B) {
	src := Bytes(strings.Repeat("0123456789abcdef", 1<<16))
	for _, concurrency := range []int{1, 4} {
		b.Run(fmt.Sprintf("concurrency=%d", concurrency), func(b *testing.B) {
			b.SetBytes(src.Size())
			for i := 0; i < b.N; i++ {
				dst := NewBuffer(nil)
				if err := CopyAt(dst, 0, src, 0, src.Size(), 64<<10, concurrency); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkConfigCreation(b *testing.B) {
	cfg := &Config{Driver: "file", CreateMode: "0644", ChecksumAlgorithm: "xxhash"}

	b.Run("New", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if _, err := New(cfg); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("validateConfig", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if err := validateConfig(cfg); err != nil {
				b.Fatal(err)
			}
		}
	})
}
