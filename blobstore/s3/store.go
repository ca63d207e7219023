package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/hupe1980/segread/blobstore"
)

// ErrConflict is returned by PutIfNotExists when the key already exists.
var ErrConflict = errors.New("s3: object already exists")

type options struct {
	prefix   string
	region   string
	endpoint string
	client   Client
	upload   UploadConfig
}

// Option configures a Store.
type Option func(*options)

// WithPrefix prepends prefix to every key, e.g. "cores/".
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithRegion overrides the region from the default AWS configuration.
func WithRegion(region string) Option {
	return func(o *options) { o.region = region }
}

// WithEndpoint points the client at an S3-compatible endpoint and enables
// path-style addressing.
func WithEndpoint(endpoint string) Option {
	return func(o *options) { o.endpoint = endpoint }
}

// WithClient uses client instead of building one from the AWS configuration.
func WithClient(client Client) Option {
	return func(o *options) { o.client = client }
}

// WithUploadConfig tunes multipart uploads.
func WithUploadConfig(cfg UploadConfig) Option {
	return func(o *options) { o.upload = cfg }
}

// Store implements blobstore.BlobStore on an S3 bucket.
type Store struct {
	client Client
	bucket string
	prefix string
	upload UploadConfig
}

// New creates a store, loading credentials and region from the default AWS
// configuration chain unless WithClient is given.
func New(ctx context.Context, bucket string, optFns ...Option) (*Store, error) {
	o := options{upload: DefaultUploadConfig()}
	for _, fn := range optFns {
		fn(&o)
	}

	if o.client == nil {
		var loadOpts []func(*config.LoadOptions) error
		if o.region != "" {
			loadOpts = append(loadOpts, config.WithRegion(o.region))
		}
		cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("s3: load aws config: %w", err)
		}
		o.client = s3.NewFromConfig(cfg, func(so *s3.Options) {
			if o.endpoint != "" {
				so.BaseEndpoint = aws.String(o.endpoint)
				so.UsePathStyle = true
			}
		})
	}

	return &Store{
		client: o.client,
		bucket: bucket,
		prefix: normalizePrefix(o.prefix),
		upload: o.upload,
	}, nil
}

// NewStore wraps an existing client.
func NewStore(client Client, bucket, rootPrefix string) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		prefix: normalizePrefix(rootPrefix),
		upload: DefaultUploadConfig(),
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

// Open issues a HEAD request for the size and ETag. Later reads are
// conditional on that ETag and fail with blobstore.ErrModified once the
// object is replaced.
func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	key := s.key(name)
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", blobstore.ErrNotFound, name)
		}
		return nil, err
	}
	return &blob{
		client: s.client,
		bucket: s.bucket,
		key:    key,
		etag:   aws.ToString(head.ETag),
		size:   aws.ToInt64(head.ContentLength),
	}, nil
}

// Create streams writes into a multipart upload that completes on Close.
func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	return newStreamingUpload(ctx, newUploader(s.client, s.upload), s.bucket, s.key(name), s.upload.EnableChecksum), nil
}

// Put uploads data in a single request.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	return putWithChecksum(ctx, s.client, s.bucket, s.key(name), data, s.upload.EnableChecksum, false)
}

// PutIfNotExists uploads data only when the key is absent. It returns
// ErrConflict otherwise.
func (s *Store) PutIfNotExists(ctx context.Context, name string, data []byte) error {
	err := putWithChecksum(ctx, s.client, s.bucket, s.key(name), data, s.upload.EnableChecksum, true)
	if err == nil {
		return nil
	}
	var apiErr smithy.APIError
	if isPreconditionFailed(err) || errors.As(err, &apiErr) && apiErr.ErrorCode() == "ConditionalRequestConflict" {
		return fmt.Errorf("%w: %s", ErrConflict, name)
	}
	return err
}

func (s *Store) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	return err
}

// List pages through ListObjectsV2 and returns keys relative to the store prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.key(prefix)),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			keys = append(keys, strings.TrimPrefix(aws.ToString(obj.Key), s.prefix))
		}
	}
	slices.Sort(keys)
	return keys, nil
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	return errors.As(err, &nsk)
}

func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "PreconditionFailed"
}

// blob reads byte ranges with GetObject.
type blob struct {
	client Client
	bucket string
	key    string
	etag   string
	size   int64
}

func (b *blob) Close() error { return nil }
func (b *blob) Size() int64  { return b.size }

func (b *blob) get(ctx context.Context, first, last int64) (io.ReadCloser, error) {
	in := &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", first, last)),
	}
	if b.etag != "" {
		in.IfMatch = aws.String(b.etag)
	}
	resp, err := b.client.GetObject(ctx, in)
	switch {
	case err == nil:
		return resp.Body, nil
	case isNotFound(err):
		return nil, fmt.Errorf("%w: %s", blobstore.ErrNotFound, b.key)
	case isPreconditionFailed(err):
		return nil, fmt.Errorf("%w: %s", blobstore.ErrModified, b.key)
	}
	return nil, err
}

func (b *blob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	return blobstore.ReadAtRange(ctx, b.get, b.size, p, off)
}

func (b *blob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	return blobstore.OpenRange(ctx, b.get, b.size, off, length)
}
