package blobstore

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// ErrInvalidURI is returned when a location cannot be parsed.
var ErrInvalidURI = errors.New("blobstore: invalid uri")

// URI identifies an object as scheme, bucket and key.
//
// Local paths use the "file" scheme. Absolute paths have bucket "/" and
// relative paths have bucket ".", so a LocalStore rooted at the bucket can
// serve them.
type URI struct {
	Scheme string
	Bucket string
	Key    string
}

// ParseURI parses `s3://bucket/key`, `file:///abs/path` or a plain path.
func ParseURI(raw string) (URI, error) {
	if raw == "" {
		return URI{}, fmt.Errorf("%w: empty", ErrInvalidURI)
	}

	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return localURI(raw), nil
	}

	scheme = strings.ToLower(scheme)
	if scheme == "file" {
		if !strings.HasPrefix(rest, "/") {
			return URI{}, fmt.Errorf("%w: %q: file uri must be absolute", ErrInvalidURI, raw)
		}
		return localURI(rest), nil
	}

	bucket, key, _ := strings.Cut(rest, "/")
	if scheme == "" || bucket == "" {
		return URI{}, fmt.Errorf("%w: %q", ErrInvalidURI, raw)
	}
	return URI{Scheme: scheme, Bucket: bucket, Key: key}, nil
}

// MustParseURI is like ParseURI but panics on error.
func MustParseURI(raw string) URI {
	u, err := ParseURI(raw)
	if err != nil {
		panic(err)
	}
	return u
}

func localURI(p string) URI {
	p = filepath.ToSlash(p)
	if strings.HasPrefix(p, "/") {
		return URI{Scheme: "file", Bucket: "/", Key: strings.TrimLeft(p, "/")}
	}
	return URI{Scheme: "file", Bucket: ".", Key: strings.TrimPrefix(p, "./")}
}

func (u URI) String() string {
	if u.Scheme == "file" {
		if u.Bucket == "/" {
			return "file:///" + u.Key
		}
		return u.Key
	}
	return u.Scheme + "://" + u.Bucket + "/" + u.Key
}

// Base returns the last element of the key.
func (u URI) Base() string {
	return path.Base(u.Key)
}

// Dir returns the URI of the key's parent "directory". The bucket root has
// an empty key.
func (u URI) Dir() URI {
	i := strings.LastIndex(u.Key, "/")
	if i < 0 {
		u.Key = ""
	} else {
		u.Key = u.Key[:i]
	}
	return u
}

// Join appends elements to the key.
func (u URI) Join(elem ...string) URI {
	u.Key = strings.TrimPrefix(path.Join(append([]string{u.Key}, elem...)...), "/")
	return u
}

// WithKey returns a URI in the same bucket.
func (u URI) WithKey(key string) URI {
	u.Key = key
	return u
}

// AsPrefix returns the key with a trailing slash so that listing does not
// match sibling keys sharing the same leading characters.
func (u URI) AsPrefix() string {
	if u.Key == "" || strings.HasSuffix(u.Key, "/") {
		return u.Key
	}
	return u.Key + "/"
}
