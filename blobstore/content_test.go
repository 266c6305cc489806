package blobstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"job/selection.manifest":         "application/jsonlines",
		"job/out/a.jpg.out":              "application/jsonlines",
		"job/labels.json":                "application/json",
		"job/autoannotated.manifest.zst": "application/zstd",
		"job/selection.manifest.LZ4":     "application/x-lz4",
		"images/a.png":                   "image/png",
		"images/a.jpg":                   "image/jpeg",
		"job/_SUCCESS":                   "application/octet-stream",
	}
	for name, want := range tests {
		assert.Equal(t, want, ContentType(name), name)
	}
}
