package annotate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hupe1980/autolabel/align"
	"github.com/hupe1980/autolabel/imagemeta"
	"github.com/hupe1980/autolabel/manifest"
	"github.com/hupe1980/autolabel/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var fixedNow = func() time.Time {
	return time.Date(2024, 3, 5, 7, 9, 11, 123456000, time.FixedZone("CET", 3600))
}

type fakeProber struct {
	mu     sync.Mutex
	dims   map[string]imagemeta.Dimensions
	errs   map[string]error
	calls  map[string]int
	delay  func() time.Duration
	active atomic.Int32
	peak   atomic.Int32
}

func newFakeProber() *fakeProber {
	return &fakeProber{
		dims:  make(map[string]imagemeta.Dimensions),
		errs:  make(map[string]error),
		calls: make(map[string]int),
	}
}

func (f *fakeProber) Probe(ctx context.Context, ref string) (imagemeta.Dimensions, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls[ref]++
	d, ok := f.dims[ref]
	err := f.errs[ref]
	f.mu.Unlock()

	if f.delay != nil {
		select {
		case <-time.After(f.delay()):
		case <-ctx.Done():
			return imagemeta.Dimensions{}, ctx.Err()
		}
	}
	if err != nil {
		return imagemeta.Dimensions{}, err
	}
	if !ok {
		return imagemeta.Dimensions{}, fmt.Errorf("no image %s", ref)
	}
	return d, nil
}

func (f *fakeProber) Calls(ref string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[ref]
}

func source(t *testing.T, id, ref string) manifest.SourceRecord {
	t.Helper()
	rec, err := manifest.ParseSource(1, []byte(fmt.Sprintf(`{"source-ref":%q,"id":%q}`, ref, id)))
	require.NoError(t, err)
	return rec
}

func detection(score float64) manifest.Detection {
	return manifest.Detection{ClassID: 1, Score: score, XMin: 0.125, YMin: 0.25, XMax: 0.625, YMax: 0.75}
}

func detectionStrategy(p DimensionProber) *DetectionStrategy {
	return &DetectionStrategy{
		Config: Config{
			JobName:        "labeling-job/birds",
			LabelAttribute: "bbox",
			Scorer:         scoring.Default(),
			Now:            fixedNow,
		},
		ClassMap: map[string]string{"0": "bird", "1": "cat"},
		Prober:   p,
	}
}

func TestAnnotate_EndToEndScenario(t *testing.T) {
	prober := newFakeProber()
	prober.dims["s3://b/A.jpg"] = imagemeta.Dimensions{Width: 200, Height: 100, Depth: 3}
	prober.dims["s3://b/B.jpg"] = imagemeta.Dimensions{Width: 200, Height: 100, Depth: 3}
	prober.dims["s3://b/C.jpg"] = imagemeta.Dimensions{Width: 640, Height: 480, Depth: 3}

	pairs := []align.Pair{
		{Source: source(t, "A", "s3://b/A.jpg"), Prediction: manifest.Prediction{Detections: []manifest.Detection{detection(0.9)}}},
		{Source: source(t, "B", "s3://b/B.jpg"), Prediction: manifest.Prediction{Detections: []manifest.Detection{detection(0.9), detection(0.3)}}},
		{Source: source(t, "C", "s3://b/C.jpg"), Prediction: manifest.Prediction{Detections: []manifest.Detection{}}},
	}

	var decisions []bool
	a := New(detectionStrategy(prober), WithDecisionHook(func(d Decision) { decisions = append(decisions, d.Accept) }))

	records, err := a.Annotate(context.Background(), pairs)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "A", records[0].ID)
	assert.Equal(t, "C", records[1].ID)
	assert.Equal(t, []bool{true, false, true}, decisions)

	assert.Equal(t, 0, prober.Calls("s3://b/B.jpg"), "rejected records are never fetched")

	b, err := json.Marshal(records[0])
	require.NoError(t, err)
	assert.Equal(t,
		`{"source-ref":"s3://b/A.jpg","id":"A",`+
			`"bbox":{"annotations":[{"class_id":1,"top":25,"left":25,"width":100,"height":50,"score":0.9}],"image_size":{"width":200,"height":100,"depth":3}},`+
			`"bbox-metadata":{"objects":[{"confidence":0.9}],"job-name":"labeling-job/birds","class-map":{"0":"bird","1":"cat"},`+
			`"human-annotated":"no","creation-date":"2024-03-05T06:09:11.123456","type":"groundtruth/object-detection"}}`,
		string(b))

	b, err = json.Marshal(records[1])
	require.NoError(t, err)
	var c map[string]any
	require.NoError(t, json.Unmarshal(b, &c))
	assert.Equal(t, []any{}, c["bbox"].(map[string]any)["annotations"])
	assert.Equal(t, []any{}, c["bbox-metadata"].(map[string]any)["objects"])
}

func TestDenormalize(t *testing.T) {
	dims := imagemeta.Dimensions{Width: 640, Height: 480}

	r := rand.New(rand.NewPCG(1, 1))
	for range 1000 {
		b := Box{ClassID: 2.7, Top: r.Float64(), Left: r.Float64(), Width: r.Float64(), Height: r.Float64()}
		got := Denormalize(b, dims)
		assert.Equal(t, AnnotationEntry{
			ClassID: 2,
			Top:     int(b.Top * 480),
			Left:    int(b.Left * 640),
			Width:   int(b.Width * 640),
			Height:  int(b.Height * 480),
		}, got)
	}

	// truncation, not rounding
	got := Denormalize(Box{Top: 0.9995, Left: 0.5, Width: 0.0015, Height: 0.25}, imagemeta.Dimensions{Width: 1000, Height: 1000})
	assert.Equal(t, AnnotationEntry{Top: 999, Left: 500, Width: 1, Height: 250}, got)
}

func TestAnnotate_PreservesOrderUnderConcurrency(t *testing.T) {
	prober := newFakeProber()
	r := rand.New(rand.NewPCG(3, 3))
	var mu sync.Mutex
	prober.delay = func() time.Duration {
		mu.Lock()
		defer mu.Unlock()
		return time.Duration(r.IntN(3)) * time.Millisecond
	}

	var pairs []align.Pair
	for i := range 64 {
		ref := fmt.Sprintf("s3://b/%03d.jpg", i)
		prober.dims[ref] = imagemeta.Dimensions{Width: 10, Height: 10, Depth: 3}
		pairs = append(pairs, align.Pair{
			Source:     source(t, fmt.Sprint(i), ref),
			Prediction: manifest.Prediction{Detections: []manifest.Detection{detection(0.95)}},
		})
	}

	records, err := New(detectionStrategy(prober), WithWorkers(4)).Annotate(context.Background(), pairs)
	require.NoError(t, err)
	require.Len(t, records, 64)
	for i, rec := range records {
		assert.Equal(t, fmt.Sprint(i), rec.ID)
	}
	assert.LessOrEqual(t, prober.peak.Load(), int32(4))
}

func TestAnnotate_FetchFailureAborts(t *testing.T) {
	prober := newFakeProber()
	prober.delay = func() time.Duration { return time.Millisecond }
	boom := errors.New("access denied")

	var pairs []align.Pair
	for i := range 20 {
		ref := fmt.Sprintf("s3://b/%02d.jpg", i)
		prober.dims[ref] = imagemeta.Dimensions{Width: 10, Height: 10, Depth: 3}
		pairs = append(pairs, align.Pair{
			Source:     source(t, fmt.Sprint(i), ref),
			Prediction: manifest.Prediction{Detections: []manifest.Detection{detection(0.95)}},
		})
	}
	prober.errs["s3://b/05.jpg"] = boom

	records, err := New(detectionStrategy(prober), WithWorkers(3)).Annotate(context.Background(), pairs)
	require.ErrorIs(t, err, boom)
	assert.Nil(t, records)

	var pe *PairError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "5", pe.ID)
	assert.Equal(t, 5, pe.Index)
	assert.Equal(t, "s3://b/05.jpg", pe.Ref)
}

func TestAnnotate_DetectionRequiresClassMap(t *testing.T) {
	prober := newFakeProber()
	prober.dims["s3://b/A.jpg"] = imagemeta.Dimensions{Width: 200, Height: 100, Depth: 3}
	strategy := detectionStrategy(prober)
	strategy.ClassMap = nil

	pairs := []align.Pair{{
		Source:     source(t, "A", "s3://b/A.jpg"),
		Prediction: manifest.Prediction{Detections: []manifest.Detection{detection(0.95)}},
	}}
	_, err := New(strategy).Annotate(context.Background(), pairs)
	require.ErrorIs(t, err, manifest.ErrMalformed)

	var re *manifest.RecordError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, manifest.FieldClassMap, re.Field)

	strategy.ClassMap = map[string]string{}
	records, err := New(strategy).Annotate(context.Background(), pairs)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestAnnotate_Classification(t *testing.T) {
	labels, err := manifest.ParseLabelCategoryConfig([]byte(`{"labels":[{"label":"negative"},{"label":"positive"},{"label":"neutral"}]}`))
	require.NoError(t, err)

	s := &ClassificationStrategy{
		Config: Config{
			JobName:        "labeling-job/reviews",
			LabelAttribute: "sentiment",
			Scorer:         scoring.Default(),
			Now:            fixedNow,
		},
		Labels: labels,
	}

	text, err := manifest.ParseSource(1, []byte(`{"source":"great stuff","id":3}`))
	require.NoError(t, err)
	unsure, err := manifest.ParseSource(2, []byte(`{"source":"meh","id":4}`))
	require.NoError(t, err)

	lbl := []string{"__label__0", "__label__1", "__label__2"}
	pairs := []align.Pair{
		{Source: text, Prediction: manifest.Prediction{ID: "3", Probabilities: []float64{0.2, 0.75, 0.05}, Labels: lbl}},
		{Source: unsure, Prediction: manifest.Prediction{ID: "4", Probabilities: []float64{0.4, 0.5, 0.1}, Labels: lbl}},
	}

	records, err := New(s).Annotate(context.Background(), pairs)
	require.NoError(t, err)
	require.Len(t, records, 1)

	b, err := json.Marshal(records[0])
	require.NoError(t, err)
	assert.Equal(t,
		`{"source":"great stuff","id":3,"sentiment":"__label__1",`+
			`"sentiment-metadata":{"confidence":0.55,"job-name":"labeling-job/reviews","class-name":"positive",`+
			`"human-annotated":"no","creation-date":"2024-03-05T06:09:11.123456","type":"groundtruth/text-classification"}}`,
		string(b))
}

func TestAnnotate_DecideErrorIsFatal(t *testing.T) {
	s := &ClassificationStrategy{Config: Config{Scorer: scoring.Default()}}
	text, err := manifest.ParseSource(1, []byte(`{"source":"x","id":"a"}`))
	require.NoError(t, err)

	_, err = New(s).Annotate(context.Background(), []align.Pair{{Source: text, Prediction: manifest.Prediction{}}})
	assert.ErrorIs(t, err, scoring.ErrEmptyDistribution)
}

func TestAnnotate_CanceledContext(t *testing.T) {
	prober := newFakeProber()
	prober.dims["s3://b/a.jpg"] = imagemeta.Dimensions{Width: 1, Height: 1, Depth: 1}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(detectionStrategy(prober)).Annotate(ctx, []align.Pair{{
		Source:     source(t, "a", "s3://b/a.jpg"),
		Prediction: manifest.Prediction{Detections: []manifest.Detection{detection(0.9)}},
	}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVariant(t *testing.T) {
	for _, v := range []Variant{Detection, Classification} {
		got, err := ParseVariant(v.String())
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
	_, err := ParseVariant("segmentation")
	assert.Error(t, err)
}
