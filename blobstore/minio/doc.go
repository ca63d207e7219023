// Package minio serves index directories from MinIO or another
// S3-compatible server (Ceph, Garage, SeaweedFS) through the MinIO client.
// It needs no AWS SDK configuration, which suits air-gapped clusters.
//
//	store, err := minio.New(minio.Config{
//	    Endpoint: "localhost:9000", AccessKey: "minioadmin", SecretKey: "minioadmin",
//	    Bucket: "search-data", Prefix: "cores/",
//	})
//	dir := directory.NewBlobDirectory(store, "core1")
//
// NewStore wraps an existing *minio.Client instead. Large index files are
// streamed on upload, and every key is resolved under Prefix.
package minio
