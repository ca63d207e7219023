package directory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/segread/blobstore"
	"github.com/hupe1980/segread/internal/resource"
)

// BlobDirectory maps a directory onto one key prefix of a blobstore.BlobStore.
// File names are the keys below the prefix; nested keys are not listed.
type BlobDirectory struct {
	baseDirectory

	store  blobstore.BlobStore
	prefix string
	rc     *resource.Controller
	native LockFactory

	mu      sync.Mutex
	pending map[string]struct{}
}

// BlobOption configures a BlobDirectory.
type BlobOption func(*BlobDirectory)

// WithResourceController throttles reads and writes through rc's IO limiter.
func WithResourceController(rc *resource.Controller) BlobOption {
	return func(d *BlobDirectory) {
		d.rc = rc
	}
}

// WithNativeLockFactory sets the backend lock used for LockNative, e.g. a
// DynamoDB lock factory for S3 directories.
func WithNativeLockFactory(lf LockFactory) BlobOption {
	return func(d *BlobDirectory) {
		d.native = lf
	}
}

// NewBlobDirectory creates a directory over the keys below prefix. The
// default lock factory writes lock blobs into the directory itself.
func NewBlobDirectory(store blobstore.BlobStore, prefix string, opts ...BlobOption) *BlobDirectory {
	d := &BlobDirectory{
		store:   store,
		prefix:  strings.Trim(prefix, "/"),
		pending: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.lf = NewSimpleLockFactory(d)
	return d
}

// Prefix returns the key prefix without slashes at either end.
func (d *BlobDirectory) Prefix() string { return d.prefix }

// NativeLockFactory implements LockProvider. It returns nil when no backend
// lock was configured.
func (d *BlobDirectory) NativeLockFactory() LockFactory { return d.native }

func (d *BlobDirectory) key(name string) string {
	if d.prefix == "" {
		return name
	}
	return d.prefix + "/" + name
}

func (d *BlobDirectory) listPrefix() string {
	if d.prefix == "" {
		return ""
	}
	return d.prefix + "/"
}

func (d *BlobDirectory) ListAll(ctx context.Context) ([]string, error) {
	if err := d.ensureOpen(); err != nil {
		return nil, err
	}
	p := d.listPrefix()
	keys, err := d.store.List(ctx, p)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		name := strings.TrimPrefix(k, p)
		if name == "" || strings.Contains(name, "/") {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

func (d *BlobDirectory) FileLength(ctx context.Context, name string) (int64, error) {
	if err := d.ensureOpen(); err != nil {
		return 0, err
	}
	b, err := d.store.Open(ctx, d.key(name))
	if err != nil {
		return 0, d.translate(name, err)
	}
	defer func() { _ = b.Close() }()
	return b.Size(), nil
}

func (d *BlobDirectory) DeleteFile(ctx context.Context, name string) error {
	if _, err := d.FileLength(ctx, name); err != nil {
		return err
	}
	return d.store.Delete(ctx, d.key(name))
}

func (d *BlobDirectory) OpenInput(ctx context.Context, name string) (Input, error) {
	if err := d.ensureOpen(); err != nil {
		return nil, err
	}
	b, err := d.store.Open(ctx, d.key(name))
	if err != nil {
		return nil, d.translate(name, err)
	}
	return &blobInput{ctx: ctx, name: name, blob: b, rc: d.rc}, nil
}

func (d *BlobDirectory) CreateOutput(ctx context.Context, name string) (Output, error) {
	if err := d.ensureOpen(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	if _, ok := d.pending[name]; ok {
		d.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrFileExists, name)
	}
	d.pending[name] = struct{}{}
	d.mu.Unlock()

	done := func() {
		d.mu.Lock()
		delete(d.pending, name)
		d.mu.Unlock()
	}

	if _, err := d.FileLength(ctx, name); err == nil {
		done()
		return nil, fmt.Errorf("%w: %s", ErrFileExists, name)
	} else if !errors.Is(err, ErrFileNotFound) {
		done()
		return nil, err
	}

	wb, err := d.store.Create(ctx, d.key(name))
	if err != nil {
		done()
		return nil, err
	}
	return &blobOutput{
		name: name,
		wb:   wb,
		w:    resource.NewRateLimitedWriter(ctx, wb, d.rc),
		done: done,
	}, nil
}

// Close marks the directory closed. Blobs in the store are kept.
func (d *BlobDirectory) Close() error {
	d.markClosed()
	return nil
}

func (d *BlobDirectory) translate(name string, err error) error {
	if errors.Is(err, blobstore.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}
	return err
}

type blobInput struct {
	ctx    context.Context
	name   string
	blob   blobstore.Blob
	rc     *resource.Controller
	closed atomic.Bool
}

func (in *blobInput) ReadAt(p []byte, off int64) (int, error) {
	if in.closed.Load() {
		return 0, ErrAlreadyClosed
	}
	if in.rc == nil {
		return in.blob.ReadAt(in.ctx, p, off)
	}
	sr := io.NewSectionReader(ctxReaderAt{ctx: in.ctx, b: in.blob}, off, int64(len(p)))
	n, err := io.ReadFull(resource.NewRateLimitedReader(in.ctx, sr, in.rc), p)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}
	return n, err
}

func (in *blobInput) Close() error {
	if in.closed.Swap(true) {
		return nil
	}
	return in.blob.Close()
}

func (in *blobInput) Length() int64 { return in.blob.Size() }
func (in *blobInput) Name() string  { return in.name }

type ctxReaderAt struct {
	ctx context.Context
	b   blobstore.Blob
}

func (r ctxReaderAt) ReadAt(p []byte, off int64) (int, error) {
	return r.b.ReadAt(r.ctx, p, off)
}

type blobOutput struct {
	name   string
	wb     blobstore.WritableBlob
	w      io.Writer
	done   func()
	failed error
	closed bool
}

func (o *blobOutput) Write(p []byte) (int, error) {
	if o.closed {
		return 0, io.ErrClosedPipe
	}
	n, err := o.w.Write(p)
	if err != nil && o.failed == nil {
		o.failed = err
	}
	return n, err
}

func (o *blobOutput) Sync() error {
	err := o.wb.Sync()
	if err != nil && o.failed == nil {
		o.failed = err
	}
	return err
}

func (o *blobOutput) Name() string { return o.name }

// Close publishes the blob. After a failed write or sync the blob is
// aborted instead when the store supports it.
func (o *blobOutput) Close() error {
	if o.closed {
		return nil
	}
	o.closed = true
	defer o.done()

	if o.failed != nil {
		if a, ok := o.wb.(blobstore.Aborter); ok {
			_ = a.Abort()
			return o.failed
		}
	}
	return o.wb.Close()
}
