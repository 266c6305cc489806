package blobstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		raw  string
		want URI
	}{
		{"s3://bucket/labeling-job/unlabeled.manifest", URI{"s3", "bucket", "labeling-job/unlabeled.manifest"}},
		{"S3://bucket", URI{"s3", "bucket", ""}},
		{"minio://b/k", URI{"minio", "b", "k"}},
		{"file:///tmp/job/a.manifest", URI{"file", "/", "tmp/job/a.manifest"}},
		{"/tmp/job/a.manifest", URI{"file", "/", "tmp/job/a.manifest"}},
		{"./data/a.manifest", URI{"file", ".", "data/a.manifest"}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseURI(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseURI_Invalid(t *testing.T) {
	for _, raw := range []string{"", "s3://", "s3:///key", "://x/y", "file://relative"} {
		_, err := ParseURI(raw)
		assert.ErrorIs(t, err, ErrInvalidURI, raw)
	}
}

func TestURI_Navigation(t *testing.T) {
	u := MustParseURI("s3://bucket/labeling-job/unlabeled.manifest")

	assert.Equal(t, "unlabeled.manifest", u.Base())
	assert.Equal(t, "s3://bucket/labeling-job", u.Dir().String())
	assert.Equal(t, "s3://bucket/labeling-job/autoannotated.manifest", u.Dir().Join("autoannotated.manifest").String())
	assert.Equal(t, "labeling-job/", u.Dir().AsPrefix())

	root := MustParseURI("s3://bucket/unlabeled.manifest").Dir()
	assert.Equal(t, "", root.Key)
	assert.Equal(t, "selection.manifest", root.Join("selection.manifest").Key)
	assert.Equal(t, "", root.AsPrefix())

	assert.Equal(t, "file:///tmp/x", MustParseURI("/tmp/x").String())
}
