// Package syncfiletest provides conformance tests for positional sources and
// drivers.
//
// Driver packages run the suite against a fresh driver:
//
//	func TestConformance(t *testing.T) {
//	    syncfiletest.TestDriver(t, func(t *testing.T) syncfile.Driver {
//	        return memory.New()
//	    })
//	}
package syncfiletest

import (
	"bytes"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/gobeaver/syncfile"
)

// TestReaderAt checks MultiReadAt over the source returned by makeFile
// against bytes.Reader on the same data.
func TestReaderAt(t *testing.T, makeFile func([]byte) (syncfile.ReaderAt, func(), error)) {
	data := make([]byte, 1<<18)
	prng := rand.New(rand.NewSource(0))
	prng.Read(data)

	file, teardown, err := makeFile(data)
	if err != nil {
		t.Fatal(err)
	}
	defer teardown()

	const bufferSize = 8192
	ops := make([]syncfile.Op, 64)
	tmp := make([]byte, bufferSize)

	buffers := make([][]byte, len(ops))
	for i := range buffers {
		buffers[i] = make([]byte, bufferSize)
	}

	reader := bytes.NewReader(data)

	for n := 1; n < len(ops); n++ {
		t.Run(fmt.Sprintf("N=%d", n), func(t *testing.T) {
			for i := range ops[:n] {
				buffers[i] = buffers[i][:prng.Intn(bufferSize)]

				ops[i].Data = buffers[i]
				ops[i].Off = prng.Int63n(int64(len(data)))
				ops[i].Err = nil
			}

			syncfile.MultiReadAt(file, ops[:n])

			for i := range ops[:n] {
				op := &ops[i]
				offset := op.Off
				length := len(buffers[i])

				rn, _ := reader.ReadAt(tmp[:length], offset)
				var want error
				if rn < length {
					want = io.ErrUnexpectedEOF
				}
				switch {
				case op.Err != want:
					t.Fatalf("error mismatch for operation at index %d: want=%v got=%v (read=%d/%d offset=%d size=%d)", i, want, op.Err, len(op.Data), rn, offset, reader.Size())
				case rn != len(op.Data):
					t.Fatalf("length mismatch for operation at index %d: want=%d got=%d", i, rn, len(op.Data))
				case !bytes.Equal(tmp[:rn], op.Data):
					t.Fatalf("data mismatch for operation at index %d:\nwant = %q\ngot  = %q\n", i, tmp[:rn], op.Data)
				}
			}
		})
	}
}

// TestDriver runs the driver conformance tests. newDriver must return a
// driver with no files in it. Tests named in skip are skipped.
func TestDriver(t *testing.T, newDriver func(t *testing.T) syncfile.Driver, skip ...string) {
	tests := []struct {
		name string
		fn   func(t *testing.T, drv syncfile.Driver)
	}{
		{"CreateWriteRead", testCreateWriteRead},
		{"OpenMissing", testOpenMissing},
		{"OpenReadOnly", testOpenReadOnly},
		{"ReadOnlyOption", testReadOnlyOption},
		{"OpenCreate", testOpenCreate},
		{"Extend", testExtend},
		{"Truncate", testTruncate},
		{"ReadsAtEnd", testReadsAtEnd},
		{"ConcurrentWrites", testConcurrentWrites},
		{"Capabilities", testCapabilities},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if slices.Contains(skip, tt.name) {
				t.Skip("skipped by driver")
			}
			tt.fn(t, newDriver(t))
		})
	}
}

func writeFile(t *testing.T, drv syncfile.Driver, name string, data []byte) {
	t.Helper()
	f, err := drv.Create(name)
	if err != nil {
		t.Fatalf("Create(%q): %v", name, err)
	}
	if err := syncfile.WriteFullAt(f, data, 0); err != nil {
		f.Close()
		t.Fatalf("WriteFullAt(%q): %v", name, err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close(%q): %v", name, err)
	}
}

func readFile(t *testing.T, drv syncfile.Driver, name string) []byte {
	t.Helper()
	f, err := drv.Open(name)
	if err != nil {
		t.Fatalf("Open(%q): %v", name, err)
	}
	defer f.Close()

	data := make([]byte, f.Size())
	if err := syncfile.ReadFullAt(f, data, 0); err != nil {
		t.Fatalf("ReadFullAt(%q): %v", name, err)
	}
	return data
}

func testCreateWriteRead(t *testing.T, drv syncfile.Driver) {
	writeFile(t, drv, "hello.txt", []byte("Hello World!\n"))

	f, err := drv.Open("hello.txt")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if f.Size() != 13 {
		t.Errorf("Size() = %d, want 13", f.Size())
	}
	p := make([]byte, 5)
	if err := syncfile.ReadFullAt(f, p, 6); err != nil || string(p) != "World" {
		t.Errorf("ReadFullAt() = %q, %v", p, err)
	}
}

func testOpenMissing(t *testing.T, drv syncfile.Driver) {
	_, err := drv.Open("missing.bin")
	if !syncfile.IsNotExist(err) {
		t.Errorf("Open(missing) error = %v, want not exist", err)
	}
}

func testOpenReadOnly(t *testing.T, drv syncfile.Driver) {
	writeFile(t, drv, "ro.bin", []byte("keep"))

	f, err := drv.Open("ro.bin")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteAt([]byte("X"), 0); err == nil {
		t.Error("WriteAt() on a file opened without write flags should fail")
	}
	f.Close()

	if got := readFile(t, drv, "ro.bin"); string(got) != "keep" {
		t.Errorf("content = %q", got)
	}
}

func testReadOnlyOption(t *testing.T, drv syncfile.Driver) {
	writeFile(t, drv, "ro.bin", []byte("keep"))

	f, err := drv.Open("ro.bin", syncfile.WithFlags(os.O_RDWR), syncfile.WithReadOnly(true))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if _, err := f.WriteAt([]byte("X"), 0); !syncfile.IsReadOnlyError(err) {
		t.Errorf("WriteAt() error = %v, want ErrReadOnly", err)
	}
}

func testOpenCreate(t *testing.T, drv syncfile.Driver) {
	f, err := drv.Open("created.bin", syncfile.WithFlags(os.O_RDWR|os.O_CREATE))
	if err != nil {
		t.Fatal(err)
	}
	if err := syncfile.WriteFullAt(f, []byte("new"), 0); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	if got := readFile(t, drv, "created.bin"); string(got) != "new" {
		t.Errorf("content = %q", got)
	}
}

func testExtend(t *testing.T, drv syncfile.Driver) {
	writeFile(t, drv, "grow.txt", []byte("hello"))

	f, err := drv.Open("grow.txt", syncfile.WithFlags(os.O_RDWR))
	if err != nil {
		t.Fatal(err)
	}
	if err := syncfile.WriteFullAt(f, []byte(" world"), 5); err != nil {
		t.Fatal(err)
	}
	if f.Size() != 11 {
		t.Errorf("Size() = %d, want 11", f.Size())
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	if got := readFile(t, drv, "grow.txt"); string(got) != "hello world" {
		t.Errorf("content = %q", got)
	}
}

func testTruncate(t *testing.T, drv syncfile.Driver) {
	writeFile(t, drv, "trunc.txt", []byte("hello world"))

	f, err := drv.Open("trunc.txt", syncfile.WithFlags(os.O_RDWR|os.O_TRUNC))
	if err != nil {
		t.Fatal(err)
	}
	if f.Size() != 0 {
		t.Errorf("Size() after O_TRUNC = %d", f.Size())
	}
	if err := syncfile.WriteFullAt(f, []byte("hi"), 0); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	if got := readFile(t, drv, "trunc.txt"); string(got) != "hi" {
		t.Errorf("content = %q", got)
	}
}

func testReadsAtEnd(t *testing.T, drv syncfile.Driver) {
	writeFile(t, drv, "end.bin", []byte("abcd"))

	f, err := drv.Open("end.bin")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if n, err := f.ReadAt(make([]byte, 2), 4); n != 0 || err != io.EOF {
		t.Errorf("ReadAt(end) = %d, %v, want 0, EOF", n, err)
	}
	if n, err := f.ReadAt(nil, 2); n != 0 || err != nil {
		t.Errorf("empty ReadAt() = %d, %v, want 0, nil", n, err)
	}
	if err := syncfile.ReadFullAt(f, make([]byte, 4), 2); !syncfile.IsUnexpectedEOF(err) {
		t.Errorf("ReadFullAt() past end error = %v", err)
	}
}

func testConcurrentWrites(t *testing.T, drv syncfile.Driver) {
	const (
		workers = 8
		block   = 1024
	)

	f, err := drv.Create("blocks.bin")
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := bytes.Repeat([]byte{byte('A' + i)}, block)
			if err := syncfile.WriteFullAt(f, p, int64(i*block)); err != nil {
				t.Errorf("worker %d: %v", i, err)
			}
		}()
	}
	wg.Wait()
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	got := readFile(t, drv, "blocks.bin")
	if len(got) != workers*block {
		t.Fatalf("size = %d, want %d", len(got), workers*block)
	}
	for i := range workers {
		want := bytes.Repeat([]byte{byte('A' + i)}, block)
		if !bytes.Equal(got[i*block:(i+1)*block], want) {
			t.Errorf("block %d corrupted", i)
		}
	}
}

func testCapabilities(t *testing.T, drv syncfile.Driver) {
	writeFile(t, drv, "cap.bin", []byte("12345"))

	if s, ok := drv.(syncfile.CanStat); ok {
		info, err := s.Stat("cap.bin")
		if err != nil {
			t.Fatalf("Stat() error = %v", err)
		}
		if info.Size != 5 {
			t.Errorf("Stat().Size = %d, want 5", info.Size)
		}
		if _, err := s.Stat("missing.bin"); !syncfile.IsNotExist(err) {
			t.Errorf("Stat(missing) error = %v", err)
		}
	}

	if l, ok := drv.(syncfile.CanList); ok {
		names, err := l.List()
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if !slices.Contains(names, "cap.bin") {
			t.Errorf("List() = %v, missing cap.bin", names)
		}
	}

	if r, ok := drv.(syncfile.CanRemove); ok {
		if err := r.Remove("cap.bin"); err != nil {
			t.Fatalf("Remove() error = %v", err)
		}
		if _, err := drv.Open("cap.bin"); !syncfile.IsNotExist(err) {
			t.Errorf("Open() after Remove error = %v", err)
		}
	}
}

// Rooted returns a driver that joins every name to root before calling drv.
// It lets drivers that take raw OS paths run the suite inside a temporary
// directory.
func Rooted(drv syncfile.Driver, root string) syncfile.Driver {
	return rooted{drv: drv, root: root}
}

type rooted struct {
	drv  syncfile.Driver
	root string
}

func (r rooted) Open(name string, opts ...syncfile.Option) (syncfile.File, error) {
	return r.drv.Open(filepath.Join(r.root, name), opts...)
}

func (r rooted) Create(name string, opts ...syncfile.Option) (syncfile.File, error) {
	return r.drv.Create(filepath.Join(r.root, name), opts...)
}
