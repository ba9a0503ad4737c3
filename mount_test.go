package syncfile

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
)

// mockDriver is a simple in-memory driver for testing
type mockDriver struct {
	name  string
	mu    sync.Mutex
	files map[string]*Buffer
}

func newMockDriver(name string) *mockDriver {
	return &mockDriver{
		name:  name,
		files: make(map[string]*Buffer),
	}
}

type mockFile struct {
	*Buffer
}

func (mockFile) Close() error { return nil }

func (m *mockDriver) Open(name string, opts ...Option) (File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf, ok := m.files[name]
	if !ok {
		return nil, &PathError{Op: "open", Path: name, Err: ErrNotExist}
	}
	return mockFile{buf}, nil
}

func (m *mockDriver) Create(name string, opts ...Option) (File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf := NewBuffer(nil)
	m.files[name] = buf
	return mockFile{buf}, nil
}

func (m *mockDriver) Stat(name string) (*FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf, ok := m.files[name]
	if !ok {
		return nil, &PathError{Op: "stat", Path: name, Err: ErrNotExist}
	}
	return &FileInfo{Name: name, Path: name, Size: buf.Size()}, nil
}

func (m *mockDriver) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[name]; !ok {
		return &PathError{Op: "remove", Path: name, Err: ErrNotExist}
	}
	delete(m.files, name)
	return nil
}

func (m *mockDriver) List() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.files))
	for name := range m.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *mockDriver) put(name, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = NewBuffer([]byte(content))
}

func (m *mockDriver) content(name string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf, ok := m.files[name]
	if !ok {
		return "", false
	}
	return string(buf.Bytes()), true
}

// openOnlyDriver has no optional capabilities
type openOnlyDriver struct {
	inner *mockDriver
}

func (d openOnlyDriver) Open(name string, opts ...Option) (File, error) {
	return d.inner.Open(name, opts...)
}

func (d openOnlyDriver) Create(name string, opts ...Option) (File, error) {
	return d.inner.Create(name, opts...)
}

func TestNewMountManager(t *testing.T) {
	mm := NewMountManager()
	if mm == nil {
		t.Fatal("expected non-nil MountManager")
	}
	if mm.mounts == nil {
		t.Fatal("expected non-nil mounts map")
	}
}

func TestMount(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		drv       Driver
		wantErr   error
		setupFunc func(*MountManager)
	}{
		{
			name:    "valid mount",
			path:    "/local",
			drv:     newMockDriver("local"),
			wantErr: nil,
		},
		{
			name:    "mount without leading slash",
			path:    "cloud",
			drv:     newMockDriver("cloud"),
			wantErr: nil,
		},
		{
			name:    "nil driver",
			path:    "/test",
			drv:     nil,
			wantErr: ErrNilDriver,
		},
		{
			name:    "empty path",
			path:    "",
			drv:     newMockDriver("test"),
			wantErr: ErrEmptyMountPath,
		},
		{
			name:    "duplicate mount",
			path:    "/local",
			drv:     newMockDriver("local2"),
			wantErr: ErrMountExists,
			setupFunc: func(mm *MountManager) {
				_ = mm.Mount("/local", newMockDriver("local"))
			},
		},
		{
			name:    "nested mount allowed",
			path:    "/cloud/archive",
			drv:     newMockDriver("archive"),
			wantErr: nil,
			setupFunc: func(mm *MountManager) {
				_ = mm.Mount("/cloud", newMockDriver("cloud"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mm := NewMountManager()
			if tt.setupFunc != nil {
				tt.setupFunc(mm)
			}

			err := mm.Mount(tt.path, tt.drv)
			if tt.wantErr != nil {
				if err == nil {
					t.Errorf("expected error %v, got nil", tt.wantErr)
				} else if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestUnmount(t *testing.T) {
	mm := NewMountManager()
	if err := mm.Mount("/local", newMockDriver("local")); err != nil {
		t.Fatalf("mount failed: %v", err)
	}

	if err := mm.Unmount("/local"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	err := mm.Unmount("/local")
	if !errors.Is(err, ErrMountNotFound) {
		t.Errorf("expected ErrMountNotFound, got %v", err)
	}
}

func TestMounts(t *testing.T) {
	mm := NewMountManager()
	local := newMockDriver("local")
	cloud := newMockDriver("cloud")

	if err := mm.Mount("/local", local); err != nil {
		t.Fatalf("mount /local failed: %v", err)
	}
	if err := mm.Mount("/cloud", cloud); err != nil {
		t.Fatalf("mount /cloud failed: %v", err)
	}

	mounts := mm.Mounts()
	if len(mounts) != 2 {
		t.Errorf("expected 2 mounts, got %d", len(mounts))
	}
	if mounts["/local"] != Driver(local) {
		t.Error("expected /local mount")
	}
	if mounts["/cloud"] != Driver(cloud) {
		t.Error("expected /cloud mount")
	}

	got, err := mm.GetMount("cloud/")
	if err != nil || got != Driver(cloud) {
		t.Errorf("GetMount(cloud/) = %v, %v", got, err)
	}
}

func TestMountPaths(t *testing.T) {
	mm := NewMountManager()
	for _, p := range []string{"/a", "/ab", "/abc"} {
		if err := mm.Mount(p, newMockDriver(p)); err != nil {
			t.Fatalf("mount %s failed: %v", p, err)
		}
	}

	paths := mm.MountPaths()
	if len(paths) != 3 {
		t.Errorf("expected 3 paths, got %d", len(paths))
	}
	// Should be sorted longest first
	if paths[0] != "/abc" {
		t.Errorf("expected /abc first, got %s", paths[0])
	}
}

func TestOpenCreateRouting(t *testing.T) {
	mm := NewMountManager()
	local := newMockDriver("local")
	if err := mm.Mount("/local", local); err != nil {
		t.Fatalf("mount failed: %v", err)
	}

	f, err := mm.Create("/local/dir/file.txt")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := WriteFullAt(f, []byte("content"), 0); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	f.Close()

	if got, ok := local.content("dir/file.txt"); !ok || got != "content" {
		t.Errorf("expected content in local driver, got %q (%v)", got, ok)
	}

	r, err := mm.Open("/local/dir/file.txt")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	buf := make([]byte, 4)
	if err := ReadFullAt(r, buf, 3); err != nil || string(buf) != "tent" {
		t.Errorf("expected tent, got %q (%v)", buf, err)
	}
}

func TestNestedMounts(t *testing.T) {
	mm := NewMountManager()
	cloud := newMockDriver("cloud")
	archive := newMockDriver("archive")
	if err := mm.Mount("/cloud", cloud); err != nil {
		t.Fatalf("mount failed: %v", err)
	}
	if err := mm.Mount("/cloud/archive", archive); err != nil {
		t.Fatalf("mount failed: %v", err)
	}

	if _, err := mm.Create("/cloud/archive/old.txt"); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := mm.Create("/cloud/new.txt"); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, ok := archive.content("old.txt"); !ok {
		t.Error("expected file in archive driver")
	}
	if _, ok := cloud.content("new.txt"); !ok {
		t.Error("expected file in cloud driver")
	}
	if _, ok := cloud.content("archive/old.txt"); ok {
		t.Error("file should not be in cloud driver")
	}
}

func TestRootMount(t *testing.T) {
	mm := NewMountManager()
	root := newMockDriver("root")
	if err := mm.Mount("/", root); err != nil {
		t.Fatalf("mount failed: %v", err)
	}

	if _, err := mm.Create("/any/file.txt"); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, ok := root.content("any/file.txt"); !ok {
		t.Error("expected file in root driver")
	}
}

func TestStatRemove(t *testing.T) {
	mm := NewMountManager()
	local := newMockDriver("local")
	local.put("file.txt", "hello")
	if err := mm.Mount("/local", local); err != nil {
		t.Fatalf("mount failed: %v", err)
	}
	if err := mm.Mount("/plain", openOnlyDriver{newMockDriver("plain")}); err != nil {
		t.Fatalf("mount failed: %v", err)
	}

	info, err := mm.Stat("/local/file.txt")
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Size != 5 || info.Path != "/local/file.txt" {
		t.Errorf("unexpected info %+v", info)
	}

	if _, err := mm.Stat("/plain/file.txt"); !errors.Is(err, ErrNotSupported) {
		t.Errorf("expected ErrNotSupported, got %v", err)
	}
	if err := mm.Remove("/plain/file.txt"); !errors.Is(err, ErrNotSupported) {
		t.Errorf("expected ErrNotSupported, got %v", err)
	}

	if err := mm.Remove("/local/file.txt"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if _, err := mm.Stat("/local/file.txt"); !IsNotExist(err) {
		t.Errorf("expected not exist, got %v", err)
	}
}

func TestList(t *testing.T) {
	mm := NewMountManager()
	cloud := newMockDriver("cloud")
	cloud.put("a.txt", "a")
	cloud.put("archive/hidden.txt", "shadowed by nested mount")
	archive := newMockDriver("archive")
	archive.put("b.txt", "b")

	_ = mm.Mount("/cloud", cloud)
	_ = mm.Mount("/cloud/archive", archive)
	_ = mm.Mount("/plain", openOnlyDriver{newMockDriver("plain")})

	names, err := mm.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	want := []string{"/cloud/a.txt", "/cloud/archive/b.txt"}
	if fmt.Sprint(names) != fmt.Sprint(want) {
		t.Errorf("expected %v, got %v", want, names)
	}
}

func TestCopyCrossMount(t *testing.T) {
	mm := NewMountManager()
	src := newMockDriver("src")
	dst := newMockDriver("dst")
	src.put("file.txt", "cross mount content")
	_ = mm.Mount("/src", src)
	_ = mm.Mount("/dst", dst)

	if err := mm.Copy("/src/file.txt", "/dst/copy.txt"); err != nil {
		t.Fatalf("copy failed: %v", err)
	}
	if got, _ := dst.content("copy.txt"); got != "cross mount content" {
		t.Errorf("unexpected copy content %q", got)
	}

	if err := mm.Copy("/src/missing.txt", "/dst/x.txt"); !IsNotExist(err) {
		t.Errorf("expected not exist, got %v", err)
	}
}

func TestResolveErrors(t *testing.T) {
	mm := NewMountManager()
	if err := mm.Mount("/local", newMockDriver("local")); err != nil {
		t.Fatalf("mount failed: %v", err)
	}

	_, err := mm.Open("/unknown/file.txt")
	if !errors.Is(err, ErrMountNotFound) {
		t.Errorf("expected ErrMountNotFound, got %v", err)
	}

	// A sibling with a common prefix is not a child of the mount.
	_, err = mm.Open("/localx/file.txt")
	if !errors.Is(err, ErrMountNotFound) {
		t.Errorf("expected ErrMountNotFound, got %v", err)
	}
}

func TestNormalizeMountPath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"/", "/"},
		{"/local", "/local"},
		{"local", "/local"},
		{"/local/", "/local"},
		{"/local//subdir", "/local/subdir"},
		{"//local", "/local"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := normalizeMountPath(tt.input)
			if result != tt.expected {
				t.Errorf("normalizeMountPath(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestConcurrency(t *testing.T) {
	mm := NewMountManager()
	if err := mm.Mount("/local", newMockDriver("local")); err != nil {
		t.Fatalf("mount failed: %v", err)
	}

	done := make(chan bool)

	for i := 0; i < 10; i++ {
		go func(i int) {
			f, err := mm.Create(fmt.Sprintf("/local/file%d.txt", i))
			if err == nil {
				_ = WriteFullAt(f, []byte("content"), 0)
			}
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		go func() {
			mm.Mounts()
			mm.MountPaths()
			done <- true
		}()
	}

	for i := 0; i < 20; i++ {
		<-done
	}
}
