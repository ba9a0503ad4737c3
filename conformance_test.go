package syncfile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gobeaver/syncfile"
	"github.com/gobeaver/syncfile/syncfiletest"
)

func TestReaderAtConformance(t *testing.T) {
	t.Run("Bytes", func(t *testing.T) {
		syncfiletest.TestReaderAt(t, func(data []byte) (syncfile.ReaderAt, func(), error) {
			return syncfile.Bytes(data), func() {}, nil
		})
	})

	t.Run("Buffer", func(t *testing.T) {
		syncfiletest.TestReaderAt(t, func(data []byte) (syncfile.ReaderAt, func(), error) {
			return syncfile.NewBuffer(data), func() {}, nil
		})
	})

	t.Run("RandomAccessFile", func(t *testing.T) {
		syncfiletest.TestReaderAt(t, func(data []byte) (syncfile.ReaderAt, func(), error) {
			name := writeTemp(t, data)
			f, err := syncfile.Open(name)
			if err != nil {
				return nil, nil, err
			}
			return f, func() { f.Close() }, nil
		})
	})

	t.Run("SyncFile", func(t *testing.T) {
		syncfiletest.TestReaderAt(t, func(data []byte) (syncfile.ReaderAt, func(), error) {
			f, err := syncfile.OpenSync(writeTemp(t, data))
			if err != nil {
				return nil, nil, err
			}
			return f, func() { f.Close() }, nil
		})
	})

	t.Run("SeekerAt", func(t *testing.T) {
		syncfiletest.TestReaderAt(t, func(data []byte) (syncfile.ReaderAt, func(), error) {
			osf, err := os.Open(writeTemp(t, data))
			if err != nil {
				return nil, nil, err
			}
			f := syncfile.FromSeeker(osf)
			return f, func() { f.Close() }, nil
		})
	})
}

func TestFileDriverConformance(t *testing.T) {
	syncfiletest.TestDriver(t, func(t *testing.T) syncfile.Driver {
		drv, err := syncfile.New(&syncfile.Config{Driver: "file"})
		if err != nil {
			t.Fatal(err)
		}
		return syncfiletest.Rooted(drv, t.TempDir())
	})
}

func writeTemp(t *testing.T, data []byte) string {
	t.Helper()
	name := filepath.Join(t.TempDir(), "data.bin")
	if err := os.WriteFile(name, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return name
}
