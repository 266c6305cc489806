package blobstore

import (
	"mime"
	"path"
	"strings"
)

// ContentType returns the MIME type stored with an object. Manifests and
// prediction outputs are JSON Lines; a compression suffix takes precedence.
func ContentType(name string) string {
	switch ext := strings.ToLower(path.Ext(name)); ext {
	case ".zst", ".zstd":
		return "application/zstd"
	case ".lz4":
		return "application/x-lz4"
	case ".manifest", ".out", ".jsonl":
		return "application/jsonlines"
	case ".json":
		return "application/json"
	default:
		if t := mime.TypeByExtension(ext); t != "" {
			return t
		}
		return "application/octet-stream"
	}
}
