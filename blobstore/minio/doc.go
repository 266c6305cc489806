// Package minio serves s3:// URIs from MinIO or another S3-compatible
// endpoint through the MinIO client.
//
// The autolabel command selects it with storage.backend: minio, in which
// case every bucket is opened lazily:
//
//	client, err := minio.Connect(minio.Config{
//	    Endpoint:  "localhost:9000",
//	    AccessKey: "minioadmin",
//	    SecretKey: "minioadmin",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	router.Register("s3", minio.Opener(client))
package minio
