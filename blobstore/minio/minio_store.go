package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hupe1980/autolabel/blobstore"
)

// Config holds connection settings for a MinIO endpoint.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	Secure    bool
}

// Connect creates a MinIO client from cfg.
func Connect(cfg Config) (*minio.Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("minio: endpoint is required")
	}
	return minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
}

// Opener returns a blobstore.Opener serving every bucket through client.
// The bucket must exist; a missing bucket fails with blobstore.ErrNotFound
// when it is first used.
func Opener(client *minio.Client) blobstore.Opener {
	return func(ctx context.Context, bucket string) (blobstore.BlobStore, error) {
		ok, err := client.BucketExists(ctx, bucket)
		if err != nil {
			return nil, translateError(err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: bucket %q", blobstore.ErrNotFound, bucket)
		}
		return NewStore(client, bucket, ""), nil
	}
}

// Store serves one bucket of a MinIO or other S3-compatible endpoint.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewStore creates a Store for bucket. rootPrefix is prepended to all keys.
func NewStore(client *minio.Client, bucket, rootPrefix string) *Store {
	if rootPrefix != "" && !strings.HasSuffix(rootPrefix, "/") {
		rootPrefix += "/"
	}
	return &Store{client: client, bucket: bucket, prefix: rootPrefix}
}

func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	key := s.prefix + name
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, translateError(err)
	}
	return &object{store: s, key: key, size: info.Size, etag: info.ETag}, nil
}

// Put uploads data in a single request; S3 makes it visible atomically.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.prefix+name,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: blobstore.ContentType(name)},
	)
	return translateError(err)
}

func (s *Store) Delete(ctx context.Context, name string) error {
	err := translateError(s.client.RemoveObject(ctx, s.bucket, s.prefix+name, minio.RemoveObjectOptions{}))
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil
	}
	return err
}

// List returns the names under prefix. Folder markers (keys ending in a
// slash) are skipped.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	opts := minio.ListObjectsOptions{Prefix: s.prefix + prefix, Recursive: true}

	var names []string
	for info := range s.client.ListObjects(ctx, s.bucket, opts) {
		if info.Err != nil {
			return nil, translateError(info.Err)
		}
		name := strings.TrimPrefix(info.Key, s.prefix)
		if name == "" || strings.HasSuffix(name, "/") {
			continue
		}
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

func translateError(err error) error {
	if err == nil {
		return nil
	}
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound", "NoSuchBucket":
		return errors.Join(blobstore.ErrNotFound, err)
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return errors.Join(blobstore.ErrAccessDenied, err)
	default:
		return err
	}
}

// object is a stat'ed handle. Range reads are pinned to the ETag seen by
// Open so a concurrent overwrite fails instead of mixing versions.
type object struct {
	store *Store
	key   string
	size  int64
	etag  string
}

func (o *object) Size() int64  { return o.size }
func (o *object) Close() error { return nil }

func (o *object) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	if off >= o.size || length <= 0 {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}

	var opts minio.GetObjectOptions
	if err := opts.SetRange(off, min(off+length, o.size)-1); err != nil {
		return nil, err
	}
	if o.etag != "" {
		if err := opts.SetMatchETag(o.etag); err != nil {
			return nil, err
		}
	}

	obj, err := o.store.client.GetObject(ctx, o.store.bucket, o.key, opts)
	if err != nil {
		return nil, translateError(err)
	}
	return obj, nil
}
