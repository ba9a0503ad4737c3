package billy

import (
	"errors"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobeaver/syncfile"
	"github.com/gobeaver/syncfile/syncfiletest"
)

func testCreateWriteRead(t *testing.T, a *Adapter) {
	t.Helper()

	f, err := a.Create("dir/file.bin")
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, syncfile.WriteFullAt(f, []byte("world"), 6))
	require.NoError(t, syncfile.WriteFullAt(f, []byte("hello "), 0))
	assert.Equal(t, int64(11), f.Size())

	buf := make([]byte, 11)
	require.NoError(t, syncfile.ReadFullAt(f, buf, 0))
	assert.Equal(t, "hello world", string(buf))

	_, err = f.ReadAt(make([]byte, 1), 11)
	assert.ErrorIs(t, err, io.EOF)
}

func testOpenReadOnly(t *testing.T, a *Adapter) {
	t.Helper()

	w, err := a.Create("ro.bin")
	require.NoError(t, err)
	require.NoError(t, syncfile.WriteFullAt(w, []byte("abc"), 0))
	require.NoError(t, w.Close())

	r, err := a.Open("ro.bin")
	require.NoError(t, err)
	defer r.Close()

	_, err = r.WriteAt([]byte("x"), 0)
	assert.ErrorIs(t, err, syncfile.ErrReadOnly)

	got, err := io.ReadAll(syncfile.NewAdapter(r))
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func testConcurrentReads(t *testing.T, a *Adapter) {
	t.Helper()

	data := []byte("0123456789abcdefghijklmnopqrstuvwxyz")
	f, err := a.Create("concurrent.bin")
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, syncfile.WriteFullAt(f, data, 0))

	var wg sync.WaitGroup
	errs := make(chan error, len(data))
	for i := range data {
		wg.Add(1)
		go func(off int) {
			defer wg.Done()
			buf := make([]byte, 1)
			if err := syncfile.ReadFullAt(f, buf, int64(off)); err != nil {
				errs <- err
				return
			}
			if buf[0] != data[off] {
				errs <- errors.New("unexpected byte")
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func testStatListRemove(t *testing.T, a *Adapter) {
	t.Helper()

	for _, name := range []string{"b.bin", "a/c.bin"} {
		f, err := a.Create(name)
		require.NoError(t, err)
		require.NoError(t, syncfile.WriteFullAt(f, []byte("1234"), 0))
		require.NoError(t, f.Close())
	}

	info, err := a.Stat("a/c.bin")
	require.NoError(t, err)
	assert.Equal(t, "c.bin", info.Name)
	assert.Equal(t, int64(4), info.Size)

	_, err = a.Stat("a")
	assert.ErrorIs(t, err, syncfile.ErrNotSupported)

	names, err := a.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"a/c.bin", "b.bin"}, names)

	require.NoError(t, a.Remove("b.bin"))
	_, err = a.Stat("b.bin")
	assert.True(t, syncfile.IsNotExist(err), "got %v", err)
}

func testOpenMissing(t *testing.T, a *Adapter) {
	t.Helper()

	_, err := a.Open("missing.bin")
	assert.True(t, syncfile.IsNotExist(err), "got %v", err)

	_, err = a.Open("x.bin", syncfile.WithFlags(os.O_RDWR|os.O_CREATE|os.O_APPEND))
	assert.ErrorIs(t, err, syncfile.ErrNotSupported)
}

func runAll(t *testing.T, newAdapter func(t *testing.T) *Adapter) {
	t.Run("CreateWriteRead", func(t *testing.T) { testCreateWriteRead(t, newAdapter(t)) })
	t.Run("OpenReadOnly", func(t *testing.T) { testOpenReadOnly(t, newAdapter(t)) })
	t.Run("ConcurrentReads", func(t *testing.T) { testConcurrentReads(t, newAdapter(t)) })
	t.Run("StatListRemove", func(t *testing.T) { testStatListRemove(t, newAdapter(t)) })
	t.Run("OpenMissing", func(t *testing.T) { testOpenMissing(t, newAdapter(t)) })
	t.Run("Conformance", func(t *testing.T) {
		syncfiletest.TestDriver(t, func(t *testing.T) syncfile.Driver { return newAdapter(t) })
	})
}

func TestInMemory(t *testing.T) {
	runAll(t, func(t *testing.T) *Adapter { return NewInMemory() })
}

func TestOS(t *testing.T) {
	runAll(t, func(t *testing.T) *Adapter { return NewOS(t.TempDir()) })
}
