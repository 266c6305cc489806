package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	c, err := Lookup("json")
	require.NoError(t, err)
	assert.Equal(t, StdJSON{}, c)

	c, err = Lookup("GO-JSON")
	require.NoError(t, err)
	assert.Equal(t, GoJSON{}, c)

	c, err = Lookup("")
	require.NoError(t, err)
	assert.Equal(t, Default, c)

	_, err = Lookup("msgpack")
	assert.ErrorContains(t, err, "known: go-json, json")
}

func TestCodecs_AgreeOnManifestLine(t *testing.T) {
	line := []byte(`{"source-ref":"s3://bucket/images/0001.jpg","id":"0001"}`)

	for _, c := range []Codec{StdJSON{}, GoJSON{}} {
		t.Run(c.Name(), func(t *testing.T) {
			var rec map[string]string
			require.NoError(t, c.Unmarshal(line, &rec))
			assert.Equal(t, "0001", rec["id"])
			assert.Equal(t, "s3://bucket/images/0001.jpg", rec["source-ref"])
		})
	}
}

func TestCodecs_NoHTMLEscape(t *testing.T) {
	rec := map[string]any{"source": "a < b & c > d", "id": 7}

	for _, c := range []Codec{StdJSON{}, GoJSON{}} {
		t.Run(c.Name(), func(t *testing.T) {
			b, err := c.Marshal(rec)
			require.NoError(t, err)
			assert.Equal(t, `{"id":7,"source":"a < b & c > d"}`, string(b))
		})
	}
}

func TestCompressionFor(t *testing.T) {
	assert.Equal(t, CompressionNone, CompressionFor("autoannotated.manifest"))
	assert.Equal(t, CompressionZSTD, CompressionFor("autoannotated.manifest.zst"))
	assert.Equal(t, CompressionZSTD, CompressionFor("x.ZSTD"))
	assert.Equal(t, CompressionLZ4, CompressionFor("s3://b/k/selection.manifest.lz4"))
}

func TestCompress_RoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte(`{"id":"a","source-ref":"s3://b/a.jpg"}`+"\n"), 200)

	for _, c := range []Compression{CompressionNone, CompressionZSTD, CompressionLZ4} {
		t.Run(c.String(), func(t *testing.T) {
			packed, err := Compress(data, c)
			require.NoError(t, err)
			if c != CompressionNone {
				assert.Less(t, len(packed), len(data))
			}

			unpacked, err := Decompress(packed, c)
			require.NoError(t, err)
			assert.Equal(t, data, unpacked)
		})
	}
}

func TestDecompress_Corrupt(t *testing.T) {
	_, err := Decompress([]byte("not a frame"), CompressionZSTD)
	assert.Error(t, err)
}
