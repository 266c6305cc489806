package annotate

import (
	"bytes"
	"encoding/json"

	"github.com/hupe1980/autolabel/codec"
	"github.com/hupe1980/autolabel/imagemeta"
)

// Job types written to label metadata.
const (
	DetectionJobType      = "groundtruth/object-detection"
	ClassificationJobType = "groundtruth/text-classification"
)

// CreationDateLayout formats the creation-date metadata field (UTC).
const CreationDateLayout = "2006-01-02T15:04:05.000000"

// AnnotationEntry is one bounding box in pixel coordinates.
type AnnotationEntry struct {
	ClassID int     `json:"class_id"`
	Top     int     `json:"top"`
	Left    int     `json:"left"`
	Width   int     `json:"width"`
	Height  int     `json:"height"`
	Score   float64 `json:"score"`
}

// DetectionLabel is the label payload of an image record.
type DetectionLabel struct {
	Annotations []AnnotationEntry    `json:"annotations"`
	ImageSize   imagemeta.Dimensions `json:"image_size"`
}

// ObjectConfidence is the per-box confidence in detection metadata.
type ObjectConfidence struct {
	Confidence float64 `json:"confidence"`
}

// DetectionMetadata is the metadata block of an image record.
type DetectionMetadata struct {
	Objects        []ObjectConfidence `json:"objects"`
	JobName        string             `json:"job-name"`
	ClassMap       map[string]string  `json:"class-map"`
	HumanAnnotated string             `json:"human-annotated"`
	CreationDate   string             `json:"creation-date"`
	Type           string             `json:"type"`
}

// ClassificationMetadata is the metadata block of a text record.
type ClassificationMetadata struct {
	Confidence     float64 `json:"confidence"`
	JobName        string  `json:"job-name"`
	ClassName      string  `json:"class-name"`
	HumanAnnotated string  `json:"human-annotated"`
	CreationDate   string  `json:"creation-date"`
	Type           string  `json:"type"`
}

type field struct {
	key   string
	value any
}

// Record is one auto-annotation. It encodes as a JSON object whose keys keep
// the order they were added in.
type Record struct {
	ID     string
	fields []field
}

func (r *Record) set(key string, value any) {
	r.fields = append(r.fields, field{key: key, value: value})
}

// Field returns the value stored under key.
func (r Record) Field(key string) (any, bool) {
	for _, f := range r.fields {
		if f.key == key {
			return f.value, true
		}
	}
	return nil, false
}

// MarshalJSON implements json.Marshaler.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := codec.Default.Marshal(f.key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')

		if raw, ok := f.value.(json.RawMessage); ok {
			if len(raw) == 0 {
				raw = json.RawMessage("null")
			}
			buf.Write(raw)
			continue
		}
		v, err := codec.Default.Marshal(f.value)
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
