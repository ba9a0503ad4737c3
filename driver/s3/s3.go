// Package s3 provides a driver over Amazon S3 and S3-compatible object
// stores.
//
// Objects opened read-only are served with ranged GET requests, so only the
// bytes asked for are transferred. Objects opened for writing are staged in
// memory and uploaded by Flush and Close, since S3 objects cannot be
// modified in place.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/gobeaver/syncfile"
)

// ErrObjectChanged is returned by reads from an object that was overwritten
// after it was opened.
var ErrObjectChanged = errors.New("s3: object changed since open")

// Client is the subset of *s3.Client used by the driver.
type Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Adapter provides an S3 implementation of syncfile.Driver
type Adapter struct {
	client  Client
	bucket  string
	prefix  string
	timeout time.Duration
}

// AdapterOption is a function that configures Adapter
type AdapterOption func(*Adapter)

// WithPrefix sets the prefix for S3 objects
func WithPrefix(prefix string) AdapterOption {
	return func(a *Adapter) {
		// Ensure prefix ends with a slash if it's not empty
		if prefix != "" && !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		a.prefix = prefix
	}
}

// WithTimeout bounds every request made by the driver. Zero means no limit.
func WithTimeout(d time.Duration) AdapterOption {
	return func(a *Adapter) {
		a.timeout = d
	}
}

// New creates a new S3 driver
func New(client Client, bucket string, options ...AdapterOption) *Adapter {
	adapter := &Adapter{
		client: client,
		bucket: bucket,
	}

	// Apply options
	for _, option := range options {
		option(adapter)
	}

	return adapter
}

// Open implements syncfile.Driver. Without write access in the flags set by
// syncfile.WithFlags the object is read with ranged requests. With write
// access its current content is downloaded into a staging buffer; os.O_CREATE
// allows the object to be missing and os.O_TRUNC skips the download.
func (a *Adapter) Open(name string, options ...syncfile.Option) (syncfile.File, error) {
	opts := syncfile.ProcessOptions(options...)
	if opts.Flags&os.O_APPEND != 0 {
		return nil, &syncfile.PathError{Op: "open", Path: name, Err: syncfile.ErrNotSupported}
	}

	key := a.key(name)

	if opts.Flags&(os.O_WRONLY|os.O_RDWR) == 0 {
		ctx, cancel := a.context()
		defer cancel()

		resp, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(a.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, mapS3Error("open", name, err)
		}

		obj := &Object{
			adapter: a,
			name:    name,
			key:     key,
			size:    aws.ToInt64(resp.ContentLength),
			etag:    aws.ToString(resp.ETag),
		}
		return syncfile.Finish(syncfile.ReadOnlyFile(obj, name), name, opts), nil
	}

	w := a.newWritable(name, key, opts.Logger)
	if opts.Flags&os.O_TRUNC == 0 {
		err := a.download(name, key, w.buf)
		switch {
		case err == nil:
		case syncfile.IsNotExist(err) && opts.Flags&os.O_CREATE != 0:
			w.dirty.Store(true)
		default:
			return nil, err
		}
	} else {
		w.dirty.Store(true)
	}
	return syncfile.Finish(w, name, opts), nil
}

// Create implements syncfile.Driver. The object is written by the first
// Flush or by Close, even if nothing was written to it.
func (a *Adapter) Create(name string, options ...syncfile.Option) (syncfile.File, error) {
	opts := syncfile.ProcessOptions(options...)
	w := a.newWritable(name, a.key(name), opts.Logger)
	w.dirty.Store(true)
	return syncfile.Finish(w, name, opts), nil
}

// Stat implements syncfile.CanStat
func (a *Adapter) Stat(name string) (*syncfile.FileInfo, error) {
	ctx, cancel := a.context()
	defer cancel()

	resp, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key(name)),
	})
	if err != nil {
		return nil, mapS3Error("stat", name, err)
	}

	return &syncfile.FileInfo{
		Name:    path.Base(name),
		Path:    name,
		Size:    aws.ToInt64(resp.ContentLength),
		ModTime: aws.ToTime(resp.LastModified),
	}, nil
}

// Remove implements syncfile.CanRemove
func (a *Adapter) Remove(name string) error {
	ctx, cancel := a.context()
	defer cancel()

	_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key(name)),
	})
	if err != nil {
		return mapS3Error("remove", name, err)
	}
	return nil
}

// List implements syncfile.CanList. Directory markers are skipped.
func (a *Adapter) List() ([]string, error) {
	ctx, cancel := a.context()
	defer cancel()

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
	}
	if a.prefix != "" {
		input.Prefix = aws.String(a.prefix)
	}

	var names []string
	paginator := s3.NewListObjectsV2Paginator(a.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, mapS3Error("list", a.prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, "/") {
				continue
			}
			names = append(names, strings.TrimPrefix(key, a.prefix))
		}
	}

	sort.Strings(names)
	return names, nil
}

func (a *Adapter) key(name string) string {
	return path.Join(a.prefix, strings.TrimPrefix(name, "/"))
}

func (a *Adapter) context() (context.Context, context.CancelFunc) {
	if a.timeout > 0 {
		return context.WithTimeout(context.Background(), a.timeout)
	}
	return context.WithCancel(context.Background())
}

func (a *Adapter) newWritable(name, key string, logger *zap.Logger) *writableObject {
	return &writableObject{
		adapter: a,
		name:    name,
		key:     key,
		buf:     syncfile.NewBuffer(nil),
		logger:  logger,
	}
}

// download copies the whole object into buf.
func (a *Adapter) download(name, key string, buf *syncfile.Buffer) error {
	ctx, cancel := a.context()
	defer cancel()

	resp, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return mapS3Error("open", name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return syncfile.WrapPathErr("open", name, err)
	}
	_, err = buf.WriteAt(data, 0)
	return err
}

// Object is a read-only view of an S3 object. Every ReadAt is a ranged GET
// pinned to the ETag seen at open time, so a concurrent overwrite of the
// object surfaces as an error instead of mixed content.
type Object struct {
	adapter *Adapter
	name    string
	key     string
	size    int64
	etag    string
	closed  atomic.Bool
}

// ReadAt implements syncfile.ReaderAt.
func (o *Object) ReadAt(p []byte, off int64) (int, error) {
	if o.closed.Load() {
		return 0, syncfile.ErrClosed
	}
	if off < 0 {
		return 0, syncfile.ErrInvalidOffset
	}
	if len(p) == 0 {
		return 0, nil
	}
	if off >= o.size {
		return 0, io.EOF
	}

	n := int64(len(p))
	if remaining := o.size - off; n > remaining {
		n = remaining
	}

	ctx, cancel := o.adapter.context()
	defer cancel()

	input := &s3.GetObjectInput{
		Bucket: aws.String(o.adapter.bucket),
		Key:    aws.String(o.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", off, off+n-1)),
	}
	if o.etag != "" {
		input.IfMatch = aws.String(o.etag)
	}

	resp, err := o.adapter.client.GetObject(ctx, input)
	if err != nil {
		return 0, mapS3Error("readat", o.name, err)
	}
	defer resp.Body.Close()

	read, err := io.ReadFull(resp.Body, p[:n])
	if err != nil && read == 0 {
		return 0, syncfile.WrapPathErr("readat", o.name, err)
	}
	return read, nil
}

// WriteAt implements syncfile.WriterAt. Objects opened read-only cannot be
// written.
func (o *Object) WriteAt(p []byte, off int64) (int, error) {
	return 0, syncfile.WrapPathErr("writeat", o.name, syncfile.ErrReadOnly)
}

// Size returns the object length seen at open time.
func (o *Object) Size() int64 {
	return o.size
}

// Close releases the view. No request is made.
func (o *Object) Close() error {
	if o.closed.Swap(true) {
		return syncfile.ErrClosed
	}
	return nil
}

// writableObject stages an object in memory and uploads it on Flush.
type writableObject struct {
	adapter *Adapter
	name    string
	key     string
	buf     *syncfile.Buffer
	logger  *zap.Logger
	dirty   atomic.Bool
	closed  atomic.Bool
}

func (w *writableObject) ReadAt(p []byte, off int64) (int, error) {
	if w.closed.Load() {
		return 0, syncfile.ErrClosed
	}
	return w.buf.ReadAt(p, off)
}

func (w *writableObject) WriteAt(p []byte, off int64) (int, error) {
	if w.closed.Load() {
		return 0, syncfile.ErrClosed
	}
	n, err := w.buf.WriteAt(p, off)
	if n > 0 {
		w.dirty.Store(true)
	}
	return n, err
}

func (w *writableObject) Size() int64 {
	return w.buf.Size()
}

// Flush uploads the staged content if it changed since the last upload.
func (w *writableObject) Flush() error {
	if w.closed.Load() {
		return syncfile.ErrClosed
	}
	return w.flush()
}

func (w *writableObject) flush() error {
	if !w.dirty.Swap(false) {
		return nil
	}
	data := w.buf.Bytes()

	ctx, cancel := w.adapter.context()
	defer cancel()

	_, err := w.adapter.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:            aws.String(w.adapter.bucket),
		Key:               aws.String(w.key),
		Body:              bytes.NewReader(data),
		ContentLength:     aws.Int64(int64(len(data))),
		ChecksumAlgorithm: types.ChecksumAlgorithmSha256,
	})
	if err != nil {
		w.dirty.Store(true)
		return mapS3Error("flush", w.name, err)
	}

	w.logger.Debug("uploaded object",
		zap.String("bucket", w.adapter.bucket),
		zap.String("key", w.key),
		zap.Int("size", len(data)),
	)
	return nil
}

// Close uploads pending changes and releases the handle.
func (w *writableObject) Close() error {
	if w.closed.Swap(true) {
		return syncfile.ErrClosed
	}
	return w.flush()
}

// mapS3Error maps S3 errors to syncfile errors
func mapS3Error(op, name string, err error) error {
	var nsk *types.NoSuchKey
	var notFound *types.NotFound

	if errors.As(err, &nsk) || errors.As(err, &notFound) {
		return syncfile.WrapPathErr(op, name, syncfile.ErrNotExist)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return syncfile.WrapPathErr(op, name, syncfile.ErrNotExist)
		case "PreconditionFailed":
			return syncfile.WrapPathErr(op, name, ErrObjectChanged)
		case "AccessDenied", "Forbidden":
			return syncfile.WrapPathErr(op, name, fmt.Errorf("%w: %w", syncfile.ErrPermission, err))
		}
	}

	return syncfile.WrapPathErr(op, name, err)
}

var (
	_ syncfile.Driver    = (*Adapter)(nil)
	_ syncfile.CanStat   = (*Adapter)(nil)
	_ syncfile.CanRemove = (*Adapter)(nil)
	_ syncfile.CanList   = (*Adapter)(nil)
	_ syncfile.File      = (*Object)(nil)
	_ syncfile.File      = (*writableObject)(nil)
	_ syncfile.Flusher   = (*writableObject)(nil)
	_ Client             = (*s3.Client)(nil)
)
