package autolabel

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var datasetManifest = strings.Join([]string{
	`{"source-ref":"s3://bucket/images/1.png","id":"1","bbox":{"annotations":[]},"bbox-metadata":{"human-annotated":"yes"}}`,
	`{"source-ref":"s3://bucket/images/2.png","id":"2"}`,
	`{"source-ref":"s3://bucket/images/3.png","id":"3","bbox":{"annotations":[]},"bbox-metadata":{"human-annotated":"no"}}`,
	`{"source-ref":"s3://bucket/images/4.png","id":"4","bbox":{"annotations":[]},"bbox-metadata":{"human-annotated":"yes"}}`,
	`{"source-ref":"s3://bucket/images/5.png","id":"5"}`,
}, "\n") + "\n"

func TestPrepareInference(t *testing.T) {
	f := newFixture(t)
	f.put(t, "data/dataset.manifest", datasetManifest)
	f.put(t, "images/2.png", "two")
	f.put(t, "images/5.png", "five")

	res, err := New(f.router).PrepareInference(context.Background(), PrepareRequest{
		ManifestURI:    "s3://bucket/data/dataset.manifest",
		OutputURI:      "s3://bucket/round-1/",
		LabelAttribute: "bbox",
		CopyImages:     true,
	})
	require.NoError(t, err)

	assert.Equal(t, &PrepareResult{
		UnlabeledManifestURI: "s3://bucket/round-1/unlabeled.manifest",
		UnlabeledPrefixURI:   "s3://bucket/round-1/labeled_by_active_learning",
		Unlabeled:            2,
	}, res)

	assert.Equal(t,
		`{"source-ref":"s3://bucket/images/2.png","id":"2","k":1000000}`+"\n"+
			`{"source-ref":"s3://bucket/images/5.png","id":"5","k":1000000}`+"\n",
		f.get(t, "round-1/unlabeled.manifest"))
	assert.Equal(t, "two", f.get(t, "round-1/labeled_by_active_learning/2.png"))
	assert.Equal(t, "five", f.get(t, "round-1/labeled_by_active_learning/5.png"))
}

func TestPrepareInference_NoTopK(t *testing.T) {
	f := newFixture(t)
	f.put(t, "data/dataset.manifest", datasetManifest)

	res, err := New(f.router).PrepareInference(context.Background(), PrepareRequest{
		ManifestURI:    "s3://bucket/data/dataset.manifest",
		OutputURI:      "s3://bucket/round-1",
		LabelAttribute: "bbox",
		TopK:           -1,
	})
	require.NoError(t, err)
	assert.Empty(t, res.UnlabeledPrefixURI)
	assert.Equal(t,
		`{"source-ref":"s3://bucket/images/2.png","id":"2"}`+"\n"+
			`{"source-ref":"s3://bucket/images/5.png","id":"5"}`+"\n",
		f.get(t, "round-1/unlabeled.manifest"))
}

func TestPrepareInference_MissingImage(t *testing.T) {
	f := newFixture(t)
	f.put(t, "data/dataset.manifest", datasetManifest)
	f.put(t, "images/2.png", "two")

	_, err := New(f.router).PrepareInference(context.Background(), PrepareRequest{
		ManifestURI:    "s3://bucket/data/dataset.manifest",
		OutputURI:      "s3://bucket/round-1",
		LabelAttribute: "bbox",
		CopyImages:     true,
	})

	var se *StepError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StepPrepare, se.Step)
	assert.ErrorIs(t, err, ErrFetchFailure)
}

func TestCreateValidationSet(t *testing.T) {
	f := newFixture(t)
	f.put(t, "data/dataset.manifest", datasetManifest)

	res, err := New(f.router).CreateValidationSet(context.Background(), ValidationRequest{
		ManifestURI:    "s3://bucket/data/dataset.manifest",
		LabelAttribute: "bbox",
		InputTotal:     15,
	})
	require.NoError(t, err)
	assert.Equal(t, &ValidationResult{ValidationURI: "s3://bucket/data/validation_input.manifest", Validation: 1}, res)
	assert.Equal(t, strings.SplitAfter(datasetManifest, "\n")[0], f.get(t, "data/validation_input.manifest"))
}

func TestPrepareTraining(t *testing.T) {
	f := newFixture(t)
	f.put(t, "data/dataset.manifest", datasetManifest)
	f.put(t, "data/validation_input.manifest", strings.SplitAfter(datasetManifest, "\n")[0])

	p := New(f.router)

	t.Run("all human labels", func(t *testing.T) {
		res, err := p.PrepareTraining(context.Background(), TrainingRequest{
			ManifestURI:           "s3://bucket/data/dataset.manifest",
			LabelAttribute:        "bbox",
			JobNamePrefix:         "birds",
			IntermediateFolderURI: "s3://bucket/intermediate",
		})
		require.NoError(t, err)
		assert.Regexp(t, `^birds-[0-9a-f]{8}$`, res.TrainingJobName)
		assert.Equal(t, "s3://bucket/intermediate/"+res.TrainingJobName+"/", res.OutputURI)
		assert.Equal(t, "s3://bucket/intermediate/"+res.TrainingJobName+"/training_input.manifest", res.TrainingInputURI)
		assert.Equal(t, 2, res.Training)
		assert.Equal(t, 2, strings.Count(f.get(t, "intermediate/"+res.TrainingJobName+"/training_input.manifest"), "\n"))
	})

	t.Run("excluding validation", func(t *testing.T) {
		res, err := p.PrepareTraining(context.Background(), TrainingRequest{
			ManifestURI:           "s3://bucket/data/dataset.manifest",
			LabelAttribute:        "bbox",
			JobNamePrefix:         "birds",
			IntermediateFolderURI: "s3://bucket/intermediate",
			ValidationURI:         "s3://bucket/data/validation_input.manifest",
		})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Training)
		assert.Equal(t, strings.SplitAfter(datasetManifest, "\n")[3], f.get(t, "intermediate/"+res.TrainingJobName+"/training_input.manifest"))
	})

	t.Run("invalid request", func(t *testing.T) {
		_, err := p.PrepareTraining(context.Background(), TrainingRequest{ManifestURI: "s3://bucket/data/dataset.manifest", LabelAttribute: "bbox"})
		assert.ErrorIs(t, err, ErrInvalidRequest)
	})
}
