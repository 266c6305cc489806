// Package s3 serves s3:// URIs from Amazon S3 with the AWS SDK.
//
// Reads are range requests so an image probe only transfers the header.
// Writes carry a CRC32C checksum and a content type derived from the key;
// artifacts larger than the configured part size use multipart uploads.
//
//	store, err := s3.New(ctx, "my-bucket", s3.WithRegion("us-east-1"))
//	if err != nil { ... }
//	router := blobstore.NewRouter()
//	router.Mount("s3", "my-bucket", store)
package s3
