package s3

import (
	"bytes"
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hupe1980/segread/blobstore"
	"github.com/hupe1980/segread/internal/hash"
)

// UploadConfig configures multipart uploads.
type UploadConfig struct {
	// PartSize is the minimum part size. Default: 8MB.
	PartSize int64
	// Concurrency is the number of concurrent part uploads. Default: 5.
	Concurrency int
	// EnableChecksum sends CRC32C checksums with every upload. Default: true.
	EnableChecksum bool
	// LeavePartsOnError keeps uploaded parts when an upload fails.
	LeavePartsOnError bool
}

// DefaultUploadConfig returns the default upload settings.
func DefaultUploadConfig() UploadConfig {
	return UploadConfig{
		PartSize:       8 * 1024 * 1024,
		Concurrency:    5,
		EnableChecksum: true,
	}
}

func newUploader(client Client, cfg UploadConfig) *manager.Uploader {
	return manager.NewUploader(client, func(u *manager.Uploader) {
		if cfg.PartSize > 0 {
			u.PartSize = cfg.PartSize
		}
		if cfg.Concurrency > 0 {
			u.Concurrency = cfg.Concurrency
		}
		u.LeavePartsOnError = cfg.LeavePartsOnError
	})
}

// newStreamingUpload feeds writes into a multipart upload through the
// manager, which buffers them into parts.
func newStreamingUpload(ctx context.Context, uploader *manager.Uploader, bucket, key string, checksum bool) *blobstore.PipeUpload {
	return blobstore.NewPipeUpload(ctx, func(ctx context.Context, r io.Reader) error {
		input := &s3.PutObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
			Body:   r,
		}
		if checksum {
			input.ChecksumAlgorithm = types.ChecksumAlgorithmCrc32c
		}
		_, err := uploader.Upload(ctx, input)
		return err
	})
}

func putWithChecksum(ctx context.Context, client Client, bucket, key string, data []byte, checksum, ifNoneMatch bool) error {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if checksum {
		input.ChecksumCRC32C = aws.String(hash.S3Checksum(data))
	}
	if ifNoneMatch {
		input.IfNoneMatch = aws.String("*")
	}
	_, err := client.PutObject(ctx, input)
	return err
}
