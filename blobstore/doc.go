// Package blobstore is the content store the labeling pipeline reads its
// manifests, prediction outputs and images from, and writes its artifacts to.
//
// BlobStore is the per-bucket interface. Implementations must be safe for
// concurrent use.
//
// # Built-in Implementations
//
//   - MemoryStore: in-process map, used by tests
//   - LocalStore: local filesystem with mmap reads
//   - s3.Store: Amazon S3 with paginated listing and multipart uploads
//   - minio.Store: MinIO and other S3-compatible services
//
// # Addressing
//
// The pipeline addresses objects by URI (`s3://bucket/key`, `file:///path`).
// Router maps the scheme and bucket of a URI onto a BlobStore, created on
// first use through a registered Opener:
//
//	router := blobstore.NewRouter()
//	router.Register("s3", func(ctx context.Context, bucket string) (blobstore.BlobStore, error) {
//	    return s3.NewStore(client, bucket, ""), nil
//	})
//	data, err := router.Fetch(ctx, "s3://bucket/unlabeled.manifest")
//
// Objects whose key ends in `.zst` or `.lz4` are decompressed on Fetch and
// compressed on Put.
package blobstore
