// Package sftp provides a driver over an SFTP server. Remote files support
// positional reads and writes natively, so handles are safe for concurrent
// use without local locking.
package sftp

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/pkg/sftp"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/gobeaver/syncfile"
)

// Adapter provides an SFTP implementation of syncfile.Driver
type Adapter struct {
	mu       sync.Mutex
	client   *sftp.Client
	sshConn  *ssh.Client
	basePath string
	config   Config
	logger   *zap.Logger
}

// Config holds SFTP connection configuration
type Config struct {
	Host       string
	Port       int
	Username   string
	Password   string
	PrivateKey []byte // PEM encoded private key
	BasePath   string

	// KnownHostsFile verifies the server key. When empty, any host key is
	// accepted and a warning is logged on connect.
	KnownHostsFile string
}

// AdapterOption is a function that configures SFTP Adapter
type AdapterOption func(*Adapter)

// WithBasePath sets the base path for SFTP operations
func WithBasePath(basePath string) AdapterOption {
	return func(a *Adapter) {
		a.basePath = basePath
	}
}

// WithLogger sets the logger for connection events
func WithLogger(logger *zap.Logger) AdapterOption {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// New creates a new SFTP driver and connects to the server
func New(cfg Config, options ...AdapterOption) (*Adapter, error) {
	adapter := &Adapter{
		config:   cfg,
		basePath: cfg.BasePath,
		logger:   zap.NewNop(),
	}

	// Apply options
	for _, option := range options {
		option(adapter)
	}

	// Establish connection
	if err := adapter.connect(); err != nil {
		return nil, err
	}

	return adapter, nil
}

// NewWithClient creates a driver over an established SFTP client. The
// driver never reconnects it; Close closes it.
func NewWithClient(client *sftp.Client, options ...AdapterOption) *Adapter {
	adapter := &Adapter{
		client: client,
		logger: zap.NewNop(),
	}
	for _, option := range options {
		option(adapter)
	}
	return adapter
}

// connect establishes SSH and SFTP connections. Must be called with a.mu
// held or before the adapter is shared.
func (a *Adapter) connect() error {
	sshConfig := &ssh.ClientConfig{
		User: a.config.Username,
	}

	if a.config.KnownHostsFile != "" {
		callback, err := knownhosts.New(a.config.KnownHostsFile)
		if err != nil {
			return fmt.Errorf("failed to load known hosts: %w", err)
		}
		sshConfig.HostKeyCallback = callback
	} else {
		a.logger.Warn("SFTP host key verification disabled",
			zap.String("host", a.config.Host),
		)
		sshConfig.HostKeyCallback = ssh.InsecureIgnoreHostKey()
	}

	// Add authentication method
	if len(a.config.PrivateKey) > 0 {
		signer, err := ssh.ParsePrivateKey(a.config.PrivateKey)
		if err != nil {
			return fmt.Errorf("failed to parse private key: %w", err)
		}
		sshConfig.Auth = append(sshConfig.Auth, ssh.PublicKeys(signer))
	}

	if a.config.Password != "" {
		sshConfig.Auth = append(sshConfig.Auth, ssh.Password(a.config.Password))
	}

	if len(sshConfig.Auth) == 0 {
		return fmt.Errorf("no authentication method provided")
	}

	port := a.config.Port
	if port == 0 {
		port = 22
	}

	addr := fmt.Sprintf("%s:%d", a.config.Host, port)
	sshConn, err := ssh.Dial("tcp", addr, sshConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to SSH: %w", err)
	}

	sftpClient, err := sftp.NewClient(sshConn)
	if err != nil {
		sshConn.Close()
		return fmt.Errorf("failed to create SFTP client: %w", err)
	}

	a.sshConn = sshConn
	a.client = sftpClient
	a.logger.Debug("connected to SFTP server", zap.String("addr", addr))

	return nil
}

// Close closes the SFTP and SSH connections. Files that are still open
// fail afterwards.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error

	if a.client != nil {
		if err := a.client.Close(); err != nil {
			errs = append(errs, err)
		}
		a.client = nil
	}

	if a.sshConn != nil {
		if err := a.sshConn.Close(); err != nil {
			errs = append(errs, err)
		}
		a.sshConn = nil
	}

	return errors.Join(errs...)
}

// ensureConnected returns a live client, reconnecting if the connection was
// lost.
func (a *Adapter) ensureConnected() (*sftp.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client != nil {
		// Test connection with a simple operation
		if _, err := a.client.Getwd(); err == nil {
			return a.client, nil
		}
		if a.config.Host == "" {
			return nil, errors.New("SFTP connection lost")
		}
		a.logger.Warn("SFTP connection lost, reconnecting", zap.String("host", a.config.Host))
		a.client.Close()
		if a.sshConn != nil {
			a.sshConn.Close()
		}
		a.client, a.sshConn = nil, nil
	}

	if a.config.Host == "" {
		return nil, errors.New("SFTP client is closed")
	}
	if err := a.connect(); err != nil {
		return nil, err
	}
	return a.client, nil
}

// fullPath returns the full path combining base path and relative path
func (a *Adapter) fullPath(relativePath string) string {
	cleanPath := path.Clean(relativePath)
	if a.basePath == "" {
		return cleanPath
	}
	return path.Join(a.basePath, cleanPath)
}

// isPathSafe checks if the path is safe (doesn't escape base path)
func (a *Adapter) isPathSafe(relativePath string) bool {
	fullPath := a.fullPath(relativePath)
	if a.basePath == "" {
		return fullPath != ".." && !strings.HasPrefix(fullPath, "../")
	}
	base := path.Clean(a.basePath)
	return fullPath == base || strings.HasPrefix(fullPath, strings.TrimSuffix(base, "/")+"/")
}

// prepare validates name and returns a client and the remote path.
func (a *Adapter) prepare(op, name string) (*sftp.Client, string, error) {
	if !a.isPathSafe(name) {
		return nil, "", &syncfile.PathError{
			Op:   op,
			Path: name,
			Err:  syncfile.ErrNotAllowed,
		}
	}

	client, err := a.ensureConnected()
	if err != nil {
		return nil, "", &syncfile.PathError{
			Op:   op,
			Path: name,
			Err:  err,
		}
	}
	return client, a.fullPath(name), nil
}

// Open implements syncfile.Driver. The flags set with syncfile.WithFlags
// are passed to the server; the default is read-only.
func (a *Adapter) Open(name string, options ...syncfile.Option) (syncfile.File, error) {
	opts := syncfile.ProcessOptions(options...)
	if opts.Flags&os.O_APPEND != 0 {
		return nil, &syncfile.PathError{Op: "open", Path: name, Err: syncfile.ErrNotSupported}
	}

	client, fullPath, err := a.prepare("open", name)
	if err != nil {
		return nil, err
	}

	f, err := client.OpenFile(fullPath, opts.Flags)
	if err != nil {
		return nil, mapSFTPError("open", name, err)
	}

	var file syncfile.File = &File{file: f, name: name}
	if opts.Flags&(os.O_WRONLY|os.O_RDWR) == 0 {
		file = syncfile.ReadOnlyFile(file, name)
	}
	return syncfile.Finish(file, name, opts), nil
}

// Create implements syncfile.Driver. Missing parent directories are created
// and the file mode is applied after creation.
func (a *Adapter) Create(name string, options ...syncfile.Option) (syncfile.File, error) {
	opts := syncfile.ProcessOptions(options...)

	client, fullPath, err := a.prepare("create", name)
	if err != nil {
		return nil, err
	}

	// Ensure parent directory exists
	if dir := path.Dir(fullPath); dir != "." && dir != "/" {
		if err := client.MkdirAll(dir); err != nil {
			return nil, mapSFTPError("create", name, err)
		}
	}

	f, err := client.OpenFile(fullPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return nil, mapSFTPError("create", name, err)
	}

	if err := f.Chmod(opts.Mode); err != nil {
		// Some servers refuse setstat; the file is still usable.
		opts.Logger.Debug("failed to set SFTP file mode",
			zap.String("path", name),
			zap.Error(err),
		)
	}

	return syncfile.Finish(&File{file: f, name: name}, name, opts), nil
}

// Stat implements syncfile.CanStat
func (a *Adapter) Stat(name string) (*syncfile.FileInfo, error) {
	client, fullPath, err := a.prepare("stat", name)
	if err != nil {
		return nil, err
	}

	info, err := client.Stat(fullPath)
	if err != nil {
		return nil, mapSFTPError("stat", name, err)
	}
	if info.IsDir() {
		return nil, &syncfile.PathError{Op: "stat", Path: name, Err: syncfile.ErrNotSupported}
	}

	var owner *syncfile.FileOwner
	if stat, ok := info.Sys().(*sftp.FileStat); ok {
		owner = &syncfile.FileOwner{ID: fmt.Sprint(stat.UID)}
	}

	return &syncfile.FileInfo{
		Name:    path.Base(name),
		Path:    name,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Owner:   owner,
	}, nil
}

// Remove implements syncfile.CanRemove
func (a *Adapter) Remove(name string) error {
	client, fullPath, err := a.prepare("remove", name)
	if err != nil {
		return err
	}

	if err := client.Remove(fullPath); err != nil {
		return mapSFTPError("remove", name, err)
	}
	return nil
}

// List implements syncfile.CanList
func (a *Adapter) List() ([]string, error) {
	client, err := a.ensureConnected()
	if err != nil {
		return nil, &syncfile.PathError{Op: "list", Path: a.basePath, Err: err}
	}

	root := a.basePath
	if root == "" {
		root = "."
	}

	var names []string
	walker := client.Walk(root)
	for walker.Step() {
		if err := walker.Err(); err != nil {
			return nil, mapSFTPError("list", walker.Path(), err)
		}
		if walker.Stat().IsDir() {
			continue
		}
		rel := strings.TrimPrefix(walker.Path(), strings.TrimSuffix(root, "/")+"/")
		names = append(names, rel)
	}

	sort.Strings(names)
	return names, nil
}

// File is a remote file opened over SFTP.
type File struct {
	file   *sftp.File
	name   string
	closed atomic.Bool
}

// ReadAt implements syncfile.ReaderAt.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	if f.closed.Load() {
		return 0, syncfile.ErrClosed
	}
	if off < 0 {
		return 0, syncfile.ErrInvalidOffset
	}
	n, err := f.file.ReadAt(p, off)
	if err == io.EOF && n > 0 {
		err = nil
	}
	if err != nil && err != io.EOF {
		return n, mapSFTPError("readat", f.name, err)
	}
	return n, err
}

// WriteAt implements syncfile.WriterAt.
func (f *File) WriteAt(p []byte, off int64) (int, error) {
	if f.closed.Load() {
		return 0, syncfile.ErrClosed
	}
	if off < 0 {
		return 0, syncfile.ErrInvalidOffset
	}
	n, err := f.file.WriteAt(p, off)
	if err != nil {
		return n, mapSFTPError("writeat", f.name, err)
	}
	return n, nil
}

// Size returns the remote file length, or 0 if it cannot be determined.
func (f *File) Size() int64 {
	info, err := f.file.Stat()
	if err != nil {
		return 0
	}
	return info.Size()
}

// Name returns the name the file was opened with.
func (f *File) Name() string {
	return f.name
}

// Sync asks the server to commit the file to stable storage. Servers
// without the fsync extension return an error.
func (f *File) Sync() error {
	if f.closed.Load() {
		return syncfile.ErrClosed
	}
	return f.file.Sync()
}

// Close closes the remote handle.
func (f *File) Close() error {
	if f.closed.Swap(true) {
		return syncfile.ErrClosed
	}
	return f.file.Close()
}

// mapSFTPError maps SFTP errors to syncfile errors
func mapSFTPError(op, path string, err error) error {
	if os.IsNotExist(err) {
		return &syncfile.PathError{
			Op:   op,
			Path: path,
			Err:  syncfile.ErrNotExist,
		}
	}

	if os.IsPermission(err) {
		return &syncfile.PathError{
			Op:   op,
			Path: path,
			Err:  syncfile.ErrPermission,
		}
	}

	var pathErr *os.PathError
	if errors.As(err, &pathErr) && os.IsNotExist(pathErr.Err) {
		return &syncfile.PathError{
			Op:   op,
			Path: path,
			Err:  syncfile.ErrNotExist,
		}
	}

	return &syncfile.PathError{
		Op:   op,
		Path: path,
		Err:  err,
	}
}

var (
	_ syncfile.Driver    = (*Adapter)(nil)
	_ syncfile.CanStat   = (*Adapter)(nil)
	_ syncfile.CanRemove = (*Adapter)(nil)
	_ syncfile.CanList   = (*Adapter)(nil)
	_ syncfile.File      = (*File)(nil)
)
