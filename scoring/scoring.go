package scoring

import (
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/autolabel/manifest"
)

// AutoAnnotationThreshold is the default acceptance threshold.
const AutoAnnotationThreshold = 0.50

var (
	// ErrEmptyDistribution is returned for a prediction without probabilities.
	ErrEmptyDistribution = errors.New("scoring: empty probability distribution")
	// ErrLengthMismatch is returned when probabilities and labels differ in length.
	ErrLengthMismatch = errors.New("scoring: probabilities and labels differ in length")
	// ErrInvalidProbability is returned for NaN probabilities.
	ErrInvalidProbability = errors.New("scoring: invalid probability")
)

// Margin is the confidence of a classification prediction.
type Margin struct {
	// Value is max(p) minus the largest remaining probability.
	Value float64
	// Index is the position of the first maximum.
	Index int
	// Label is the label at Index.
	Label string
}

// ComputeMargin returns the margin between the best and the second best
// probability. The second best excludes only the first occurrence of the
// maximum, so tied maxima yield a zero margin. A single probability has a
// runner-up of 0.
func ComputeMargin(probabilities []float64, labels []string) (Margin, error) {
	if len(probabilities) == 0 {
		return Margin{}, ErrEmptyDistribution
	}
	if len(probabilities) != len(labels) {
		return Margin{}, fmt.Errorf("%w: %d != %d", ErrLengthMismatch, len(probabilities), len(labels))
	}

	best := 0
	for i, p := range probabilities {
		if math.IsNaN(p) {
			return Margin{}, fmt.Errorf("%w at index %d", ErrInvalidProbability, i)
		}
		if p > probabilities[best] {
			best = i
		}
	}

	second := 0.0
	seen := false
	for i, p := range probabilities {
		if i == best {
			continue
		}
		if !seen || p > second {
			second = p
			seen = true
		}
	}

	return Margin{
		Value: probabilities[best] - second,
		Index: best,
		Label: labels[best],
	}, nil
}

// Verdict is the aggregate decision for the detections of one item.
type Verdict struct {
	Accept bool
	// Veto is the index of the first detection below the threshold, or -1.
	Veto int
}

// Scorer applies a threshold to predictions.
type Scorer struct {
	Threshold float64
}

// New returns a Scorer using threshold.
func New(threshold float64) Scorer {
	return Scorer{Threshold: threshold}
}

// Default returns a Scorer using AutoAnnotationThreshold.
func Default() Scorer {
	return New(AutoAnnotationThreshold)
}

// AcceptMargin reports whether margin is strictly greater than the threshold.
func (s Scorer) AcceptMargin(margin float64) bool {
	return margin > s.Threshold
}

// Classify computes the margin of p and whether it is accepted.
func (s Scorer) Classify(p manifest.Prediction) (Margin, bool, error) {
	m, err := ComputeMargin(p.Probabilities, p.Labels)
	if err != nil {
		return Margin{}, false, err
	}
	return m, s.AcceptMargin(m.Value), nil
}

// Detect accepts detections when no score is below the threshold. An empty
// list is accepted. NaN scores veto.
func (s Scorer) Detect(detections []manifest.Detection) Verdict {
	for i, d := range detections {
		if !(d.Score >= s.Threshold) {
			return Verdict{Accept: false, Veto: i}
		}
	}
	return Verdict{Accept: true, Veto: -1}
}
