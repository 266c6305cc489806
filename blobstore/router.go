package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/hupe1980/autolabel/codec"
	"github.com/hupe1980/autolabel/internal/resource"
)

// Opener creates the store serving one bucket of a scheme.
type Opener func(ctx context.Context, bucket string) (BlobStore, error)

// Router resolves URIs to stores and bounds concurrent backend access.
type Router struct {
	mu      sync.Mutex
	openers map[string]Opener
	stores  map[string]BlobStore
	ctrl    *resource.Controller
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithController bounds in-flight requests and their rate.
func WithController(c *resource.Controller) RouterOption {
	return func(r *Router) {
		r.ctrl = c
	}
}

// NewRouter creates a Router that serves the "file" scheme from the local
// filesystem. Other schemes must be registered.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{
		openers: map[string]Opener{
			"file": func(_ context.Context, bucket string) (BlobStore, error) {
				return NewLocalStore(bucket), nil
			},
		},
		stores: make(map[string]BlobStore),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register sets the opener for a scheme.
func (r *Router) Register(scheme string, o Opener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.openers[scheme] = o
}

// Mount binds a fixed store to one bucket, bypassing the scheme's opener.
func (r *Router) Mount(scheme, bucket string, s BlobStore) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores[scheme+"://"+bucket] = s
}

// Store returns the store serving u's bucket.
func (r *Router) Store(ctx context.Context, u URI) (BlobStore, error) {
	key := u.Scheme + "://" + u.Bucket

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.stores[key]; ok {
		return s, nil
	}
	open, ok := r.openers[u.Scheme]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURI, u.Scheme)
	}
	s, err := open(ctx, u.Bucket)
	if err != nil {
		return nil, err
	}
	r.stores[key] = s
	return s, nil
}

// Fetch reads the whole object, decompressing it when the key carries a
// compression extension.
func (r *Router) Fetch(ctx context.Context, u URI) ([]byte, error) {
	release, err := r.ctrl.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	s, err := r.Store(ctx, u)
	if err != nil {
		return nil, err
	}

	b, err := s.Open(ctx, u.Key)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", u, err)
	}
	defer b.Close()

	data, err := ReadAll(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", u, err)
	}

	data, err = codec.Decompress(data, codec.CompressionFor(u.Key))
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", u, err)
	}
	return data, nil
}

// Open streams the object at u without buffering it. The controller slot is
// held until the returned reader is closed. Compressed objects are returned
// as stored.
func (r *Router) Open(ctx context.Context, u URI) (io.ReadCloser, error) {
	release, err := r.ctrl.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	s, err := r.Store(ctx, u)
	if err != nil {
		release()
		return nil, err
	}

	b, err := s.Open(ctx, u.Key)
	if err != nil {
		release()
		return nil, fmt.Errorf("open %s: %w", u, err)
	}

	rc, err := b.ReadRange(ctx, 0, b.Size())
	if err != nil {
		_ = b.Close()
		release()
		return nil, fmt.Errorf("read %s: %w", u, err)
	}
	return &streamReader{ReadCloser: rc, blob: b, release: release}, nil
}

type streamReader struct {
	io.ReadCloser
	blob    Blob
	release func()
}

func (s *streamReader) Close() error {
	defer s.release()
	return errors.Join(s.ReadCloser.Close(), s.blob.Close())
}

// Put writes data to u, compressing it when the key carries a compression
// extension.
func (r *Router) Put(ctx context.Context, u URI, data []byte) error {
	release, err := r.ctrl.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	s, err := r.Store(ctx, u)
	if err != nil {
		return err
	}

	data, err = codec.Compress(data, codec.CompressionFor(u.Key))
	if err != nil {
		return fmt.Errorf("compress %s: %w", u, err)
	}
	if err := s.Put(ctx, u.Key, data); err != nil {
		return fmt.Errorf("put %s: %w", u, err)
	}
	return nil
}

// List returns the URIs of all objects whose key starts with prefix.Key.
func (r *Router) List(ctx context.Context, prefix URI) ([]URI, error) {
	release, err := r.ctrl.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	s, err := r.Store(ctx, prefix)
	if err != nil {
		return nil, err
	}
	names, err := s.List(ctx, prefix.Key)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}

	out := make([]URI, len(names))
	for i, name := range names {
		out[i] = prefix.WithKey(name)
	}
	return out, nil
}
