package manifest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSources(t *testing.T) {
	data := []byte(`{"source-ref":"s3://bucket/B.jpg","id":"b"}

{"source-ref":"s3://bucket/a.jpg","id":7,"label":{"annotations":[]},"label-metadata":{"human-annotated":"yes"}}
`)

	recs, err := ReadSources(data)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "b", recs[0].ID)
	assert.Equal(t, "s3://bucket/B.jpg", recs[0].Ref())
	assert.Equal(t, 1, recs[0].Line)
	assert.False(t, recs[0].HasAttribute("label"))

	assert.Equal(t, "7", recs[1].ID)
	assert.Equal(t, `7`, string(recs[1].RawID()))
	assert.Equal(t, 3, recs[1].Line)
	assert.True(t, recs[1].HasAttribute("label"))
	assert.True(t, recs[1].HumanAnnotated("label"))
	assert.False(t, recs[1].HumanAnnotated("other"))
}

func TestParseSource_TextManifest(t *testing.T) {
	rec, err := ParseSource(1, []byte(`{"source":"great product","id":"r1"}`))
	require.NoError(t, err)
	assert.Equal(t, "great product", rec.Ref())
	assert.Equal(t, FieldSource, rec.RefField())
}

func TestParseSource_Malformed(t *testing.T) {
	tests := map[string]string{
		"not json":   `{"id":`,
		"array":      `[1,2]`,
		"missing id": `{"source-ref":"s3://b/a.jpg"}`,
		"object id":  `{"id":{},"source-ref":"s3://b/a.jpg"}`,
		"no ref":     `{"id":"a"}`,
		"ref number": `{"id":"a","source-ref":3}`,
	}
	for name, line := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSource(4, []byte(line))
			require.ErrorIs(t, err, ErrMalformed)

			var re *RecordError
			require.True(t, errors.As(err, &re))
			assert.Equal(t, 4, re.Line)
		})
	}
}

func TestSourceRecord_MarshalKeepsRaw(t *testing.T) {
	line := `{"source-ref":"s3://bucket/a.jpg","id":0,"extra":{"z":1,"a":2}}`
	rec, err := ParseSource(1, []byte(line))
	require.NoError(t, err)

	enc := NewEncoder(nil)
	require.NoError(t, enc.Encode(rec))
	assert.Equal(t, line+"\n", string(enc.Bytes()))
	assert.Equal(t, 1, enc.Len())
}

func TestSourceRecord_With(t *testing.T) {
	rec, err := ParseSource(1, []byte(`{"source":"txt","id":"a","meta":{"x":1}}`))
	require.NoError(t, err)

	withK, err := rec.With("k", 1000000)
	require.NoError(t, err)
	b, err := withK.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"source":"txt","id":"a","meta":{"x":1},"k":1000000}`, string(b))
	assert.True(t, withK.HasAttribute("k"))
	assert.False(t, rec.HasAttribute("k"), "With must not mutate the receiver")

	replaced, err := withK.With("k", 5)
	require.NoError(t, err)
	b, err = replaced.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"source":"txt","id":"a","meta":{"x":1},"k":5}`, string(b))
}

func TestParseClassification(t *testing.T) {
	p, err := ParseClassification(1, []byte(`{"id":"r1","SageMakerOutput":{"prob":[0.2,0.75,0.05],"label":["__label__0","__label__1","__label__2"]}}`))
	require.NoError(t, err)
	assert.Equal(t, "r1", p.ID)
	assert.Equal(t, []float64{0.2, 0.75, 0.05}, p.Probabilities)
	assert.Equal(t, []string{"__label__0", "__label__1", "__label__2"}, p.Labels)

	p, err = ParseClassification(2, []byte(`{"id":3,"prob":[1],"label":["__label__0"]}`))
	require.NoError(t, err)
	assert.Equal(t, "3", p.ID)
}

func TestParseClassification_Malformed(t *testing.T) {
	for name, line := range map[string]string{
		"nested not object": `{"id":"a","SageMakerOutput":[1]}`,
		"missing prob":      `{"id":"a","label":["x"]}`,
		"missing label":     `{"id":"a","prob":[1]}`,
		"empty":             `{"id":"a","prob":[],"label":[]}`,
		"length mismatch":   `{"id":"a","prob":[0.5,0.5],"label":["x"]}`,
		"missing id":        `{"prob":[1],"label":["x"]}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseClassification(1, []byte(line))
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestReadClassifications_KeyInError(t *testing.T) {
	_, err := ReadClassifications("out/unlabeled.manifest.out", []byte("{\"id\":\"a\",\"prob\":[1],\"label\":[\"x\"]}\n{\"id\":\"b\"}\n"))
	require.ErrorIs(t, err, ErrMalformed)
	assert.Contains(t, err.Error(), "out/unlabeled.manifest.out:2")
}

func TestParseDetection(t *testing.T) {
	p, err := ParseDetection("out/a.jpg.out", []byte(`{"prediction":[[1,0.9,0.1,0.2,0.5,0.6]]}`))
	require.NoError(t, err)
	assert.Equal(t, "out/a.jpg.out", p.Key)
	assert.Equal(t, []Detection{{ClassID: 1, Score: 0.9, XMin: 0.1, YMin: 0.2, XMax: 0.5, YMax: 0.6}}, p.Detections)

	p, err = ParseDetection("out/c.jpg.out", []byte(`{"prediction":[]}`))
	require.NoError(t, err)
	assert.Empty(t, p.Detections)

	for _, payload := range []string{`{}`, `{"prediction":null}`, `{"prediction":[[1,2,3]]}`, `nope`} {
		_, err := ParseDetection("k", []byte(payload))
		assert.ErrorIs(t, err, ErrMalformed, payload)
	}
}

func TestLabelCategoryConfig(t *testing.T) {
	cfg, err := ParseLabelCategoryConfig([]byte(`{"document-version":"2018-11-28","class-map":{"0":"bird","1":"cat"},"labels":[{"label":"positive"},{"label":"negative"}]}`))
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"0": "bird", "1": "cat"}, cfg.ClassMap)
	assert.Equal(t, []string{"positive", "negative"}, cfg.LabelNames())
	assert.NoError(t, cfg.RequireClassMap())

	bare, err := ParseLabelCategoryConfig([]byte(`{"labels":[{"label":"positive"}]}`))
	require.NoError(t, err)
	assert.ErrorIs(t, bare.RequireClassMap(), ErrMalformed)

	empty, err := ParseLabelCategoryConfig([]byte(`{"class-map":{}}`))
	require.NoError(t, err)
	assert.NoError(t, empty.RequireClassMap())

	name, err := cfg.ClassName("__label__1")
	require.NoError(t, err)
	assert.Equal(t, "negative", name)

	_, err = cfg.ClassName("__label__9")
	assert.ErrorIs(t, err, ErrMalformed)

	idx, err := LabelIndex("__label__12")
	require.NoError(t, err)
	assert.Equal(t, 12, idx)

	_, err = LabelIndex("__label__x")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestReadLines_LongLine(t *testing.T) {
	big := make([]byte, MaxLineSize+10)
	for i := range big {
		big[i] = 'a'
	}
	err := ReadLines(big, func(int, []byte) error { return nil })
	assert.ErrorIs(t, err, ErrMalformed)
}
