package syncfile

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrMountNotFound is returned when no mount point matches the path
	ErrMountNotFound = errors.New("no mount point found for path")
	// ErrMountExists is returned when trying to mount at an existing path
	ErrMountExists = errors.New("mount point already exists")
	// ErrEmptyMountPath is returned when the mount path is empty
	ErrEmptyMountPath = errors.New("mount path cannot be empty")
	// ErrNilDriver is returned when trying to mount a nil driver
	ErrNilDriver = errors.New("driver cannot be nil")
)

// MountManager routes names to drivers mounted under virtual paths. It is
// itself a Driver, so a mix of local, in-memory and remote files can be
// opened through one value.
type MountManager struct {
	mu     sync.RWMutex
	mounts map[string]Driver
	// sorted mount paths for longest-prefix matching
	sortedPaths []string
}

// NewMountManager creates a new mount manager instance.
func NewMountManager() *MountManager {
	return &MountManager{
		mounts: make(map[string]Driver),
	}
}

// Mount attaches a driver at the specified virtual path.
//
// Example:
//
//	mounts.Mount("/scratch", memory.New())
//	mounts.Mount("/data", localDriver)
//	mounts.Mount("/data/archive", s3Driver) // nested mounts supported
func (m *MountManager) Mount(mountPath string, drv Driver) error {
	if drv == nil {
		return ErrNilDriver
	}

	mountPath = normalizeMountPath(mountPath)
	if mountPath == "" {
		return ErrEmptyMountPath
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.mounts[mountPath]; exists {
		return fmt.Errorf("%w: %s", ErrMountExists, mountPath)
	}

	m.mounts[mountPath] = drv
	m.updateSortedPaths()

	return nil
}

// Unmount removes the driver at the specified path. Files already opened
// through it stay open.
func (m *MountManager) Unmount(mountPath string) error {
	mountPath = normalizeMountPath(mountPath)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.mounts[mountPath]; !exists {
		return fmt.Errorf("%w: %s", ErrMountNotFound, mountPath)
	}

	delete(m.mounts, mountPath)
	m.updateSortedPaths()

	return nil
}

// Mounts returns a copy of all current mount points and their drivers.
func (m *MountManager) Mounts() map[string]Driver {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]Driver, len(m.mounts))
	for k, v := range m.mounts {
		result[k] = v
	}
	return result
}

// MountPaths returns all mount paths in sorted order (longest first).
func (m *MountManager) MountPaths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]string, len(m.sortedPaths))
	copy(result, m.sortedPaths)
	return result
}

// GetMount returns the driver mounted at the exact path.
func (m *MountManager) GetMount(mountPath string) (Driver, error) {
	mountPath = normalizeMountPath(mountPath)

	m.mu.RLock()
	defer m.mu.RUnlock()

	drv, exists := m.mounts[mountPath]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrMountNotFound, mountPath)
	}
	return drv, nil
}

// resolve finds the correct mount and relative path for an absolute path.
// Uses longest-prefix matching to support nested mounts.
func (m *MountManager) resolve(absPath string) (Driver, string, error) {
	absPath = normalizeMountPath(absPath)
	if absPath == "" {
		return nil, "", ErrEmptyMountPath
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, mountPath := range m.sortedPaths {
		if mountPath == "/" || absPath == mountPath || strings.HasPrefix(absPath, mountPath+"/") {
			drv := m.mounts[mountPath]
			relativePath := strings.TrimPrefix(absPath, mountPath)
			relativePath = strings.TrimPrefix(relativePath, "/")
			return drv, relativePath, nil
		}
	}

	return nil, "", fmt.Errorf("%w: %s", ErrMountNotFound, absPath)
}

// updateSortedPaths updates the sorted paths slice for longest-prefix matching.
// Must be called with lock held.
func (m *MountManager) updateSortedPaths() {
	paths := make([]string, 0, len(m.mounts))
	for p := range m.mounts {
		paths = append(paths, p)
	}
	// Sort by length descending for longest-prefix matching
	sort.Slice(paths, func(i, j int) bool {
		if len(paths[i]) != len(paths[j]) {
			return len(paths[i]) > len(paths[j])
		}
		return paths[i] < paths[j]
	})
	m.sortedPaths = paths
}

// normalizeMountPath ensures the path starts with "/" and has no trailing slash.
func normalizeMountPath(p string) string {
	if p == "" {
		return ""
	}
	// Ensure leading slash
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	// Clean the path; this also removes any trailing slash except for root
	return path.Clean(p)
}

// ============================================================================
// Driver Interface Implementation
// ============================================================================

// Open opens name on the driver whose mount point is its longest prefix.
func (m *MountManager) Open(name string, opts ...Option) (File, error) {
	drv, relativePath, err := m.resolve(name)
	if err != nil {
		return nil, &PathError{Op: "open", Path: name, Err: err}
	}
	return drv.Open(relativePath, opts...)
}

// Create creates name on the driver whose mount point is its longest prefix.
func (m *MountManager) Create(name string, opts ...Option) (File, error) {
	drv, relativePath, err := m.resolve(name)
	if err != nil {
		return nil, &PathError{Op: "create", Path: name, Err: err}
	}
	return drv.Create(relativePath, opts...)
}

// Stat implements CanStat for mounted drivers that support it.
func (m *MountManager) Stat(name string) (*FileInfo, error) {
	drv, relativePath, err := m.resolve(name)
	if err != nil {
		return nil, &PathError{Op: "stat", Path: name, Err: err}
	}
	stater, ok := drv.(CanStat)
	if !ok {
		return nil, &PathError{Op: "stat", Path: name, Err: ErrNotSupported}
	}
	info, err := stater.Stat(relativePath)
	if err != nil {
		return nil, err
	}
	info.Path = normalizeMountPath(name)
	return info, nil
}

// Remove implements CanRemove for mounted drivers that support it.
func (m *MountManager) Remove(name string) error {
	drv, relativePath, err := m.resolve(name)
	if err != nil {
		return &PathError{Op: "remove", Path: name, Err: err}
	}
	remover, ok := drv.(CanRemove)
	if !ok {
		return &PathError{Op: "remove", Path: name, Err: ErrNotSupported}
	}
	return remover.Remove(relativePath)
}

// List returns the absolute names of files on every mounted driver that
// implements CanList. Files hidden by a nested mount are left out.
func (m *MountManager) List() ([]string, error) {
	mounts := m.Mounts()

	var names []string
	for mountPath, drv := range mounts {
		lister, ok := drv.(CanList)
		if !ok {
			continue
		}
		files, err := lister.List()
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", mountPath, err)
		}
		for _, file := range files {
			name := path.Join(mountPath, file)
			// Only report files that resolve back to this mount.
			if owner, _, err := m.resolve(name); err == nil && owner == drv {
				names = append(names, name)
			}
		}
	}

	sort.Strings(names)
	return names, nil
}

// ============================================================================
// Cross-Mount Operations
// ============================================================================

// Copy copies srcPath to dstPath, which may live on different mounts. The
// content is transferred with CopyAt in DefaultChunkSize pieces.
func (m *MountManager) Copy(srcPath, dstPath string, opts ...Option) error {
	src, err := m.Open(srcPath, opts...)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	dst, err := m.Create(dstPath, opts...)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}

	if err := CopyAt(dst, 0, src, 0, src.Size(), DefaultChunkSize, 1); err != nil {
		dst.Close()
		return fmt.Errorf("copy %s to %s: %w", srcPath, dstPath, err)
	}

	if err := dst.Close(); err != nil {
		return fmt.Errorf("close destination: %w", err)
	}
	return nil
}

var (
	_ Driver    = (*MountManager)(nil)
	_ CanStat   = (*MountManager)(nil)
	_ CanRemove = (*MountManager)(nil)
	_ CanList   = (*MountManager)(nil)
)
