// Package billy provides a driver over a go-billy filesystem. Billy files
// only have a single cursor, so positional calls are serialized through
// [syncfile.SeekerAt].
package billy

import (
	"fmt"
	"os"
	"path"
	"sort"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/gobeaver/syncfile"
)

// Adapter opens files of a billy.Filesystem as positional files.
type Adapter struct {
	fs billy.Filesystem
}

// New creates a driver over fsys.
func New(fsys billy.Filesystem) *Adapter {
	return &Adapter{fs: fsys}
}

// NewInMemory creates a driver over a fresh memfs.
func NewInMemory() *Adapter {
	return New(memfs.New())
}

// NewOS creates a driver over the OS filesystem rooted at root.
func NewOS(root string) *Adapter {
	return New(osfs.New(root))
}

// Raw returns the wrapped filesystem.
//
//nolint:ireturn // exposes the adapter target.
func (a *Adapter) Raw() billy.Filesystem {
	return a.fs
}

// Open implements syncfile.Driver. Without write access in the flags set by
// syncfile.WithFlags the handle is read-only.
func (a *Adapter) Open(name string, options ...syncfile.Option) (syncfile.File, error) {
	opts := syncfile.ProcessOptions(options...)
	if opts.Flags&os.O_APPEND != 0 {
		return nil, &syncfile.PathError{Op: "open", Path: name, Err: syncfile.ErrNotSupported}
	}

	f, err := a.fs.OpenFile(name, opts.Flags, opts.Mode)
	if err != nil {
		return nil, fmt.Errorf("billy: open %q: %w", name, err)
	}

	var file syncfile.File = syncfile.FromSeeker(f, options...)
	if opts.Flags&(os.O_WRONLY|os.O_RDWR) == 0 {
		file = syncfile.ReadOnlyFile(file, name)
	}
	return syncfile.Finish(file, name, opts), nil
}

// Create implements syncfile.Driver. Missing parent directories are created.
func (a *Adapter) Create(name string, options ...syncfile.Option) (syncfile.File, error) {
	opts := syncfile.ProcessOptions(options...)

	if dir := path.Dir(name); dir != "." && dir != "/" {
		if err := a.fs.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("billy: mkdirall %q: %w", dir, err)
		}
	}

	f, err := a.fs.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, opts.Mode)
	if err != nil {
		return nil, fmt.Errorf("billy: create %q: %w", name, err)
	}
	return syncfile.Finish(syncfile.FromSeeker(f, options...), name, opts), nil
}

// Stat implements syncfile.CanStat
func (a *Adapter) Stat(name string) (*syncfile.FileInfo, error) {
	info, err := a.fs.Stat(name)
	if err != nil {
		return nil, fmt.Errorf("billy: stat %q: %w", name, err)
	}
	if info.IsDir() {
		return nil, &syncfile.PathError{Op: "stat", Path: name, Err: syncfile.ErrNotSupported}
	}
	return &syncfile.FileInfo{
		Name:    info.Name(),
		Path:    name,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Remove implements syncfile.CanRemove
func (a *Adapter) Remove(name string) error {
	if err := a.fs.Remove(name); err != nil {
		return fmt.Errorf("billy: remove %q: %w", name, err)
	}
	return nil
}

// List implements syncfile.CanList
func (a *Adapter) List() ([]string, error) {
	var names []string
	if err := a.walk("", &names); err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

func (a *Adapter) walk(dir string, names *[]string) error {
	entries, err := a.fs.ReadDir(dirOrRoot(dir))
	if err != nil {
		return fmt.Errorf("billy: readdir %q: %w", dir, err)
	}
	for _, entry := range entries {
		name := path.Join(dir, entry.Name())
		if entry.IsDir() {
			if err := a.walk(name, names); err != nil {
				return err
			}
			continue
		}
		*names = append(*names, name)
	}
	return nil
}

func dirOrRoot(dir string) string {
	if dir == "" {
		return "/"
	}
	return dir
}

var (
	_ syncfile.Driver    = (*Adapter)(nil)
	_ syncfile.CanStat   = (*Adapter)(nil)
	_ syncfile.CanRemove = (*Adapter)(nil)
	_ syncfile.CanList   = (*Adapter)(nil)
)
