package memory

import (
	"errors"
	"io"
	"os"
	"testing"

	"github.com/gobeaver/syncfile"
	"github.com/gobeaver/syncfile/syncfiletest"
)

func TestNew(t *testing.T) {
	t.Run("creates adapter with default config", func(t *testing.T) {
		a := New()
		if a == nil {
			t.Fatal("expected adapter to be created")
		}
		if a.maxSize != 0 {
			t.Errorf("expected maxSize=0, got %d", a.maxSize)
		}
	})

	t.Run("creates adapter with max size", func(t *testing.T) {
		a := New(Config{MaxSize: 1024})
		if a.maxSize != 1024 {
			t.Errorf("expected maxSize=1024, got %d", a.maxSize)
		}
	})
}

func TestCreate(t *testing.T) {
	t.Run("writes and reads back", func(t *testing.T) {
		a := New()
		f, err := a.Create("test.txt")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer f.Close()

		if err := syncfile.WriteFullAt(f, []byte("hello world"), 0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		buf := make([]byte, 5)
		if err := syncfile.ReadFullAt(f, buf, 6); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(buf) != "world" {
			t.Errorf("expected %q, got %q", "world", buf)
		}

		if a.Size() != 11 {
			t.Errorf("expected size=11, got %d", a.Size())
		}
	})

	t.Run("truncates existing file in place", func(t *testing.T) {
		a := New()
		first, _ := a.Create("test.txt")
		defer first.Close()
		first.WriteAt([]byte("content"), 0)

		second, err := a.Create("test.txt")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer second.Close()

		if first.Size() != 0 {
			t.Errorf("expected open handle to see truncation, size=%d", first.Size())
		}
		if a.Size() != 0 {
			t.Errorf("expected total size=0, got %d", a.Size())
		}
	})

	t.Run("fails on path traversal", func(t *testing.T) {
		a := New()
		_, err := a.Create("../escape.txt")
		if !errors.Is(err, syncfile.ErrNotAllowed) {
			t.Errorf("expected ErrNotAllowed, got %v", err)
		}
	})

	t.Run("applies read-only option", func(t *testing.T) {
		a := New()
		f, err := a.Create("ro.txt", syncfile.WithReadOnly(true))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer f.Close()

		if _, err := f.WriteAt([]byte("x"), 0); !errors.Is(err, syncfile.ErrReadOnly) {
			t.Errorf("expected ErrReadOnly, got %v", err)
		}
	})
}

func TestOpen(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		a := New()
		_, err := a.Open("missing.txt")
		if !syncfile.IsNotExist(err) {
			t.Errorf("expected not exist error, got %v", err)
		}
	})

	t.Run("read-only by default", func(t *testing.T) {
		a := New()
		w, _ := a.Create("data.bin")
		w.WriteAt([]byte("abc"), 0)
		w.Close()

		r, err := a.Open("data.bin")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer r.Close()

		if _, err := r.WriteAt([]byte("x"), 0); !errors.Is(err, syncfile.ErrReadOnly) {
			t.Errorf("expected ErrReadOnly, got %v", err)
		}
		buf := make([]byte, 3)
		if err := syncfile.ReadFullAt(r, buf, 0); err != nil || string(buf) != "abc" {
			t.Errorf("expected abc, got %q (%v)", buf, err)
		}
	})

	t.Run("create flag", func(t *testing.T) {
		a := New()
		f, err := a.Open("new.bin", syncfile.WithFlags(os.O_RDWR|os.O_CREATE))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer f.Close()

		if _, err := f.WriteAt([]byte("x"), 3); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.Size() != 4 {
			t.Errorf("expected size=4, got %d", f.Size())
		}
	})

	t.Run("append rejected", func(t *testing.T) {
		a := New()
		_, err := a.Open("x", syncfile.WithFlags(os.O_RDWR|os.O_CREATE|os.O_APPEND))
		if !errors.Is(err, syncfile.ErrNotSupported) {
			t.Errorf("expected ErrNotSupported, got %v", err)
		}
	})
}

func TestMaxSize(t *testing.T) {
	a := New(Config{MaxSize: 10})
	f, _ := a.Create("a")
	defer f.Close()

	if _, err := f.WriteAt([]byte("12345678"), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Overwriting inside the file does not grow it.
	if _, err := f.WriteAt([]byte("abcd"), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := f.WriteAt([]byte("xyz"), 8); !errors.Is(err, syncfile.ErrNoSpace) {
		t.Errorf("expected ErrNoSpace, got %v", err)
	}
	if a.Size() != 8 {
		t.Errorf("expected size=8, got %d", a.Size())
	}

	if err := a.Remove("a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Size() != 0 {
		t.Errorf("expected size=0 after remove, got %d", a.Size())
	}

	// The removed file's handle still works and is no longer accounted.
	if _, err := f.WriteAt([]byte("0123456789ab"), 0); err != nil {
		t.Errorf("unexpected error writing to removed file: %v", err)
	}
	if a.Size() != 0 {
		t.Errorf("expected size=0, got %d", a.Size())
	}
}

func TestHandleClose(t *testing.T) {
	a := New()
	f, _ := a.Create("a")
	if err := f.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.Close(); !errors.Is(err, syncfile.ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if _, err := f.ReadAt(make([]byte, 1), 0); !errors.Is(err, syncfile.ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if a.FileCount() != 1 {
		t.Errorf("expected file to persist after close")
	}
}

func TestStatListClear(t *testing.T) {
	a := New()
	for _, name := range []string{"b.txt", "/a.txt", "dir/c.txt"} {
		f, err := a.Create(name)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		f.WriteAt([]byte(name), 0)
		f.Close()
	}

	names, err := a.List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"a.txt", "b.txt", "dir/c.txt"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("expected %v, got %v", want, names)
		}
	}

	info, err := a.Stat("dir/c.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Name != "c.txt" || info.Size != int64(len("dir/c.txt")) {
		t.Errorf("unexpected info: %+v", info)
	}

	a.Clear()
	if a.FileCount() != 0 || a.Size() != 0 {
		t.Errorf("expected empty adapter after Clear")
	}
	if _, err := a.Stat("a.txt"); !syncfile.IsNotExist(err) {
		t.Errorf("expected not exist, got %v", err)
	}
}

func TestSequentialAccess(t *testing.T) {
	a := New()
	f, _ := a.Create("seq")
	defer f.Close()
	f.WriteAt([]byte("Hello World!\n"), 0)

	r := syncfile.NewAdapter(f)
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "Hello World!\n" {
		t.Errorf("unexpected content %q", data)
	}
}

func TestConformance(t *testing.T) {
	syncfiletest.TestDriver(t, func(t *testing.T) syncfile.Driver { return New() })
}
