// Package local provides a driver that opens positional files below a root
// directory on the local filesystem.
package local

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobeaver/syncfile"
	"go.uber.org/zap"
)

// Adapter opens files under root as *syncfile.SyncFile handles. Names are
// relative to root; names that resolve outside of it are rejected with
// syncfile.ErrNotAllowed.
type Adapter struct {
	root string
}

// New creates a new local driver rooted at root, creating the directory if
// needed.
func New(root string) (*Adapter, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	// Ensure the root directory exists
	if err := os.MkdirAll(absRoot, 0755); err != nil {
		return nil, err
	}

	return &Adapter{
		root: absRoot,
	}, nil
}

// Root returns the absolute root directory.
func (a *Adapter) Root() string {
	return a.root
}

// Open implements syncfile.Driver. The file is opened with the flags from
// syncfile.WithFlags, read-only by default.
func (a *Adapter) Open(name string, options ...syncfile.Option) (syncfile.File, error) {
	fullPath, err := a.resolve("open", name)
	if err != nil {
		return nil, err
	}

	opts := syncfile.ProcessOptions(options...)
	f, err := syncfile.OpenFile(fullPath, opts.Flags, opts.Mode, options...)
	if err != nil {
		return nil, translateError("open", name, err)
	}

	opts.Logger.Debug("opened local file", zap.String("path", name))
	return syncfile.Finish(syncfile.NewSyncFile(f), name, opts), nil
}

// Create implements syncfile.Driver. Missing parent directories are created.
func (a *Adapter) Create(name string, options ...syncfile.Option) (syncfile.File, error) {
	fullPath, err := a.resolve("create", name)
	if err != nil {
		return nil, err
	}

	// Ensure the directory exists
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, &syncfile.PathError{
			Op:   "create",
			Path: name,
			Err:  err,
		}
	}

	opts := syncfile.ProcessOptions(options...)
	f, err := syncfile.Create(fullPath, options...)
	if err != nil {
		return nil, translateError("create", name, err)
	}

	opts.Logger.Debug("created local file", zap.String("path", name))
	return syncfile.Finish(syncfile.NewSyncFile(f), name, opts), nil
}

// Stat implements syncfile.CanStat
func (a *Adapter) Stat(name string) (*syncfile.FileInfo, error) {
	fullPath, err := a.resolve("stat", name)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, translateError("stat", name, err)
	}
	if info.IsDir() {
		return nil, &syncfile.PathError{
			Op:   "stat",
			Path: name,
			Err:  syncfile.ErrNotSupported,
		}
	}

	owner, createdAt := extractPlatformInfo(fullPath, info)

	return &syncfile.FileInfo{
		Name:      filepath.Base(name),
		Path:      name,
		Size:      info.Size(),
		ModTime:   info.ModTime(),
		CreatedAt: createdAt,
		Owner:     owner,
	}, nil
}

// Remove implements syncfile.CanRemove. Directories left empty by the
// removal are deleted up to the root.
func (a *Adapter) Remove(name string) error {
	fullPath, err := a.resolve("remove", name)
	if err != nil {
		return err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		return translateError("remove", name, err)
	}
	if info.IsDir() {
		return &syncfile.PathError{
			Op:   "remove",
			Path: name,
			Err:  syncfile.ErrNotSupported,
		}
	}

	if err := os.Remove(fullPath); err != nil {
		return translateError("remove", name, err)
	}
	a.pruneEmptyDirs(filepath.Dir(fullPath))
	return nil
}

// pruneEmptyDirs removes dir and its parents while they are empty, stopping
// at the root.
func (a *Adapter) pruneEmptyDirs(dir string) {
	for dir != a.root && isPathUnderRoot(a.root, dir) {
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

// List implements syncfile.CanList. Names use forward slashes and are
// sorted.
func (a *Adapter) List() ([]string, error) {
	var names []string
	err := filepath.WalkDir(a.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(a.root, path)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, &syncfile.PathError{Op: "list", Path: a.root, Err: err}
	}

	sort.Strings(names)
	return names, nil
}

// resolve joins name to the root and checks that it stays below it.
func (a *Adapter) resolve(op, name string) (string, error) {
	fullPath := filepath.Join(a.root, filepath.Clean(filepath.FromSlash(name)))

	// Check if the path is under the root
	if fullPath == a.root || !isPathUnderRoot(a.root, fullPath) {
		return "", &syncfile.PathError{
			Op:   op,
			Path: name,
			Err:  syncfile.ErrNotAllowed,
		}
	}
	return fullPath, nil
}

// isPathUnderRoot checks if a path is under a given root directory
func isPathUnderRoot(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}

	return !filepath.IsAbs(rel) && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func translateError(op, name string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return &syncfile.PathError{Op: op, Path: name, Err: syncfile.ErrNotExist}
	}
	var pe *syncfile.PathError
	if errors.As(err, &pe) {
		return &syncfile.PathError{Op: op, Path: name, Err: pe.Err}
	}
	var ope *fs.PathError
	if errors.As(err, &ope) {
		return &syncfile.PathError{Op: op, Path: name, Err: ope.Err}
	}
	return &syncfile.PathError{Op: op, Path: name, Err: err}
}

var (
	_ syncfile.Driver    = (*Adapter)(nil)
	_ syncfile.CanStat   = (*Adapter)(nil)
	_ syncfile.CanRemove = (*Adapter)(nil)
	_ syncfile.CanList   = (*Adapter)(nil)
)
