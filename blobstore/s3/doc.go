// Package s3 provides an S3 implementation of blobstore.BlobStore and a
// DynamoDB lock factory for directories stored in S3.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("cores/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	dir := directory.NewBlobDirectory(store, "core1",
//	    directory.WithNativeLockFactory(s3.NewDDBLockFactory(ddb, "segread-locks", "my-bucket/cores/core1")),
//	)
//
// # Features
//
//   - Range reads for partial fetches
//   - Streaming multipart uploads with CRC32C checksums
//   - Conditional create (If-None-Match) via PutIfNotExists
//   - Automatic pagination for listing
package s3
