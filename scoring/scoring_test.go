package scoring

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/hupe1980/autolabel/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func labelsFor(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "__label__" + string(rune('0'+i))
	}
	return out
}

func TestComputeMargin(t *testing.T) {
	tests := []struct {
		name      string
		probs     []float64
		wantValue float64
		wantIndex int
	}{
		{"Classification scenario", []float64{0.2, 0.75, 0.05}, 0.55, 1},
		{"Single class", []float64{0.8}, 0.8, 0},
		{"Tie at max", []float64{0.4, 0.4, 0.2}, 0, 0},
		{"Max last", []float64{0.1, 0.2, 0.7}, 0.5, 2},
		{"Negative runner-up", []float64{0.5, -0.25}, 0.75, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			labels := labelsFor(len(tt.probs))
			m, err := ComputeMargin(tt.probs, labels)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantValue, m.Value, 1e-9)
			assert.Equal(t, tt.wantIndex, m.Index)
			assert.Equal(t, labels[tt.wantIndex], m.Label)
		})
	}
}

func TestComputeMargin_Errors(t *testing.T) {
	_, err := ComputeMargin(nil, nil)
	assert.ErrorIs(t, err, ErrEmptyDistribution)

	_, err = ComputeMargin([]float64{0.5, 0.5}, []string{"a"})
	assert.ErrorIs(t, err, ErrLengthMismatch)

	_, err = ComputeMargin([]float64{0.5, math.NaN()}, []string{"a", "b"})
	assert.ErrorIs(t, err, ErrInvalidProbability)
}

func TestComputeMargin_Properties(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for range 1000 {
		n := 2 + r.IntN(8)
		probs := make([]float64, n)
		for i := range probs {
			probs[i] = r.Float64()
		}
		if r.IntN(4) == 0 {
			// force a tie at the maximum
			maxIdx := 0
			for i, p := range probs {
				if p > probs[maxIdx] {
					maxIdx = i
				}
			}
			probs[(maxIdx+1)%n] = probs[maxIdx]
		}

		m, err := ComputeMargin(probs, labelsFor(n))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, m.Value, 0.0)

		ties := 0
		for _, p := range probs {
			if p == probs[m.Index] {
				ties++
			}
		}
		assert.Equal(t, ties > 1, m.Value == 0, "zero margin iff tied maximum: %v", probs)
	}
}

func TestScorer_AcceptMargin(t *testing.T) {
	s := Default()
	assert.True(t, s.AcceptMargin(0.55))
	assert.False(t, s.AcceptMargin(0.50), "margin equal to threshold is rejected")
	assert.False(t, s.AcceptMargin(0.1))

	m, ok, err := s.Classify(manifest.Prediction{
		Probabilities: []float64{0.2, 0.75, 0.05},
		Labels:        []string{"__label__0", "__label__1", "__label__2"},
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "__label__1", m.Label)
	assert.InDelta(t, 0.55, m.Value, 1e-9)
}

func TestScorer_Detect(t *testing.T) {
	s := Default()
	det := func(score float64) manifest.Detection { return manifest.Detection{Score: score} }

	tests := []struct {
		name   string
		scores []float64
		want   Verdict
	}{
		{"Single confident", []float64{0.9}, Verdict{Accept: true, Veto: -1}},
		{"One low vetoes", []float64{0.9, 0.3}, Verdict{Accept: false, Veto: 1}},
		{"Low first", []float64{0.3, 0.9}, Verdict{Accept: false, Veto: 0}},
		{"Empty accepted", nil, Verdict{Accept: true, Veto: -1}},
		{"Threshold inclusive", []float64{0.5}, Verdict{Accept: true, Veto: -1}},
		{"NaN vetoes", []float64{math.NaN()}, Verdict{Accept: false, Veto: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dets := make([]manifest.Detection, len(tt.scores))
			for i, sc := range tt.scores {
				dets[i] = det(sc)
			}
			assert.Equal(t, tt.want, s.Detect(dets))
		})
	}
}

func TestScorer_DetectProperty(t *testing.T) {
	s := Default()
	r := rand.New(rand.NewPCG(3, 4))
	for range 500 {
		dets := make([]manifest.Detection, r.IntN(6))
		allHigh := true
		for i := range dets {
			dets[i].Score = r.Float64()
			if dets[i].Score < AutoAnnotationThreshold {
				allHigh = false
			}
		}
		assert.Equal(t, allHigh, s.Detect(dets).Accept)
	}
}
