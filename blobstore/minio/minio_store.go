package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/hupe1980/segread/blobstore"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config describes a MinIO endpoint.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	Secure    bool
	Bucket    string
	Prefix    string
}

// Store implements blobstore.BlobStore for MinIO and S3-compatible storage.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

// New connects to the endpoint in cfg with static credentials.
func New(cfg Config) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio: connect %s: %w", cfg.Endpoint, err)
	}
	return NewStore(client, cfg.Bucket, cfg.Prefix), nil
}

// NewStore wraps an existing client. rootPrefix is prepended to all keys.
func NewStore(client *minio.Client, bucket, rootPrefix string) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		prefix: normalizePrefix(rootPrefix),
	}
}

func normalizePrefix(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	return p + "/"
}

func (s *Store) key(name string) string {
	return s.prefix + name
}

func isNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return true
	}
	return false
}

// Open stats the object for its size and ETag. Reads are conditional on
// that ETag and fail with blobstore.ErrModified once the object changes.
func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	key := s.key(name)
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", blobstore.ErrNotFound, name)
		}
		return nil, err
	}
	return &minioBlob{store: s, key: key, etag: info.ETag, size: info.Size}, nil
}

// Put writes a blob atomically.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.key(name), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	return err
}

// Create streams writes into an upload that completes on Close. Abort on
// the returned blob discards it.
func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	key := s.key(name)
	return blobstore.NewPipeUpload(ctx, func(ctx context.Context, r io.Reader) error {
		_, err := s.client.PutObject(ctx, s.bucket, key, r, -1, minio.PutObjectOptions{})
		return err
	}), nil
}

// Delete removes a blob. Missing blobs are not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	err := s.client.RemoveObject(ctx, s.bucket, s.key(name), minio.RemoveObjectOptions{})
	if err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

// List returns all blob names with the given prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    s.key(prefix),
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		if name := strings.TrimPrefix(obj.Key, s.prefix); name != "" {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

type minioBlob struct {
	store *Store
	key   string
	etag  string
	size  int64
}

func (b *minioBlob) Size() int64  { return b.size }
func (b *minioBlob) Close() error { return nil }

// get opens [first, last]. minio-go defers the request to the first Read,
// so a failed precondition can also surface there.
func (b *minioBlob) get(ctx context.Context, first, last int64) (io.ReadCloser, error) {
	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(first, last); err != nil {
		return nil, err
	}
	if b.etag != "" {
		if err := opts.SetMatchETag(b.etag); err != nil {
			return nil, err
		}
	}
	obj, err := b.store.client.GetObject(ctx, b.store.bucket, b.key, opts)
	if err != nil {
		return nil, b.translate(err)
	}
	return &objectReader{obj: obj, blob: b}, nil
}

func (b *minioBlob) translate(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "PreconditionFailed":
		return fmt.Errorf("%w: %s", blobstore.ErrModified, b.key)
	case "NoSuchKey", "NotFound":
		return fmt.Errorf("%w: %s", blobstore.ErrNotFound, b.key)
	}
	return err
}

func (b *minioBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	return blobstore.ReadAtRange(ctx, b.get, b.size, p, off)
}

func (b *minioBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	return blobstore.OpenRange(ctx, b.get, b.size, off, length)
}

type objectReader struct {
	obj  *minio.Object
	blob *minioBlob
}

func (r *objectReader) Read(p []byte) (int, error) {
	n, err := r.obj.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		err = r.blob.translate(err)
	}
	return n, err
}

func (r *objectReader) Close() error { return r.obj.Close() }
