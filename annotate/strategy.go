package annotate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/hupe1980/autolabel/imagemeta"
	"github.com/hupe1980/autolabel/manifest"
	"github.com/hupe1980/autolabel/scoring"
)

var (
	errMissingRef      = errors.New("missing image reference")
	errMissingClassMap = errors.New("missing class map")
)

// Variant names a label schema.
type Variant int

const (
	// Detection labels images with bounding boxes.
	Detection Variant = iota
	// Classification labels records with a single class.
	Classification
)

func (v Variant) String() string {
	switch v {
	case Detection:
		return "detection"
	case Classification:
		return "classification"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// ParseVariant parses the String form of a Variant.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(s) {
	case "detection", "object-detection", "":
		return Detection, nil
	case "classification", "text-classification":
		return Classification, nil
	default:
		return 0, fmt.Errorf("annotate: unknown variant %q", s)
	}
}

// Box is a detection in normalized coordinates.
type Box struct {
	ClassID float64
	Top     float64
	Left    float64
	Width   float64
	Height  float64
	Score   float64
}

// Decision is the outcome of scoring one prediction.
type Decision struct {
	Accept bool
	// Margin is set by ClassificationStrategy.
	Margin scoring.Margin
	// Boxes is set by DetectionStrategy for accepted predictions.
	Boxes []Box
	// Veto is the index of the detection that vetoed the prediction, or -1.
	Veto int
}

// Strategy scores predictions and builds records for one label schema.
type Strategy interface {
	Variant() Variant
	// Decide scores a prediction. It does no I/O.
	Decide(p manifest.Prediction) (Decision, error)
	// Build creates the record for an accepted decision.
	Build(ctx context.Context, src manifest.SourceRecord, d Decision) (Record, error)
}

// Config is shared by the strategies.
type Config struct {
	// JobName is written to the job-name metadata field.
	JobName string
	// LabelAttribute is the manifest field the label is written to.
	LabelAttribute string
	Scorer         scoring.Scorer
	// Type overrides the job type metadata field.
	Type string
	// Now defaults to time.Now.
	Now func() time.Time
}

func (c Config) creationDate() string {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return now().UTC().Format(CreationDateLayout)
}

func (c Config) jobType(def string) string {
	if c.Type != "" {
		return c.Type
	}
	return def
}

// ClassificationStrategy labels records with the class of highest
// probability when its margin exceeds the threshold.
type ClassificationStrategy struct {
	Config
	Labels manifest.LabelCategoryConfig
}

// Variant implements Strategy.
func (s *ClassificationStrategy) Variant() Variant { return Classification }

// Decide implements Strategy.
func (s *ClassificationStrategy) Decide(p manifest.Prediction) (Decision, error) {
	m, ok, err := s.Scorer.Classify(p)
	if err != nil {
		return Decision{}, err
	}
	return Decision{Accept: ok, Margin: m, Veto: -1}, nil
}

// Build implements Strategy.
func (s *ClassificationStrategy) Build(_ context.Context, src manifest.SourceRecord, d Decision) (Record, error) {
	className, err := s.Labels.ClassName(d.Margin.Label)
	if err != nil {
		return Record{}, err
	}

	rec := Record{ID: src.ID}
	refField := src.RefField()
	ref, _ := src.Field(refField)
	rec.set(refField, ref)
	rec.set(manifest.FieldID, src.RawID())
	rec.set(s.LabelAttribute, d.Margin.Label)
	rec.set(s.LabelAttribute+manifest.MetadataSuffix, ClassificationMetadata{
		Confidence:     math.Round(d.Margin.Value*100) / 100,
		JobName:        s.JobName,
		ClassName:      className,
		HumanAnnotated: manifest.HumanAnnotatedNo,
		CreationDate:   s.creationDate(),
		Type:           s.jobType(ClassificationJobType),
	})
	return rec, nil
}

// DimensionProber reads image dimensions.
type DimensionProber interface {
	Probe(ctx context.Context, ref string) (imagemeta.Dimensions, error)
}

// DetectionStrategy labels images whose detections all score at least the
// threshold.
type DetectionStrategy struct {
	Config
	ClassMap map[string]string
	Prober   DimensionProber
}

// Variant implements Strategy.
func (s *DetectionStrategy) Variant() Variant { return Detection }

// Decide implements Strategy. Boxes are converted from corner coordinates to
// top/left/width/height.
func (s *DetectionStrategy) Decide(p manifest.Prediction) (Decision, error) {
	v := s.Scorer.Detect(p.Detections)
	if !v.Accept {
		return Decision{Accept: false, Veto: v.Veto}, nil
	}

	boxes := make([]Box, len(p.Detections))
	for i, det := range p.Detections {
		boxes[i] = Box{
			ClassID: det.ClassID,
			Top:     det.YMin,
			Left:    det.XMin,
			Width:   det.XMax - det.XMin,
			Height:  det.YMax - det.YMin,
			Score:   det.Score,
		}
	}
	return Decision{Accept: true, Boxes: boxes, Veto: -1}, nil
}

// Build implements Strategy. It fetches the image to resolve pixel
// coordinates.
func (s *DetectionStrategy) Build(ctx context.Context, src manifest.SourceRecord, d Decision) (Record, error) {
	if src.SourceRef == "" {
		return Record{}, &manifest.RecordError{Line: src.Line, Field: manifest.FieldSourceRef, Err: errMissingRef}
	}
	if s.ClassMap == nil {
		return Record{}, &manifest.RecordError{Field: manifest.FieldClassMap, Err: errMissingClassMap}
	}

	dims, err := s.Prober.Probe(ctx, src.SourceRef)
	if err != nil {
		return Record{}, err
	}

	entries := make([]AnnotationEntry, len(d.Boxes))
	objects := make([]ObjectConfidence, len(d.Boxes))
	for i, b := range d.Boxes {
		entries[i] = Denormalize(b, dims)
		objects[i] = ObjectConfidence{Confidence: b.Score}
	}

	rec := Record{ID: src.ID}
	rec.set(manifest.FieldSourceRef, src.SourceRef)
	rec.set(manifest.FieldID, src.RawID())
	rec.set(s.LabelAttribute, DetectionLabel{Annotations: entries, ImageSize: dims})
	rec.set(s.LabelAttribute+manifest.MetadataSuffix, DetectionMetadata{
		Objects:        objects,
		JobName:        s.JobName,
		ClassMap:       s.ClassMap,
		HumanAnnotated: manifest.HumanAnnotatedNo,
		CreationDate:   s.creationDate(),
		Type:           s.jobType(DetectionJobType),
	})
	return rec, nil
}

// Denormalize converts a normalized box to pixels. Values are truncated
// toward zero.
func Denormalize(b Box, dims imagemeta.Dimensions) AnnotationEntry {
	return AnnotationEntry{
		ClassID: int(b.ClassID),
		Top:     int(b.Top * float64(dims.Height)),
		Left:    int(b.Left * float64(dims.Width)),
		Width:   int(b.Width * float64(dims.Width)),
		Height:  int(b.Height * float64(dims.Height)),
		Score:   b.Score,
	}
}
