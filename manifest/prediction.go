package manifest

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hupe1980/autolabel/codec"
)

// Prediction fields.
const (
	FieldProbabilities = "prob"
	FieldLabels        = "label"
	FieldDetections    = "prediction"

	// FieldModelOutput is the nested object some model containers wrap
	// their output in. Its fields are lifted to the top level.
	FieldModelOutput = "SageMakerOutput"
)

// Detection is one raw object detection with coordinates normalized to
// [0,1] relative to the image.
type Detection struct {
	ClassID float64
	Score   float64
	XMin    float64
	YMin    float64
	XMax    float64
	YMax    float64
}

// Prediction is one model output.
type Prediction struct {
	// ID is set for classification outputs, which carry the id of their
	// source record.
	ID string
	// Key is the output file the prediction was read from.
	Key  string
	Line int

	// Probabilities and Labels are index aligned.
	Probabilities []float64
	Labels        []string

	Detections []Detection
}

// ParseClassification parses one line of a classification output.
func ParseClassification(line int, b []byte) (Prediction, error) {
	var top map[string]json.RawMessage
	if err := codec.Default.Unmarshal(b, &top); err != nil {
		return Prediction{}, &RecordError{Line: line, Err: err}
	}

	fields := make(map[string]json.RawMessage, len(top))
	for k, v := range top {
		if k != FieldModelOutput {
			fields[k] = v
		}
	}
	if nested, ok := top[FieldModelOutput]; ok {
		var inner map[string]json.RawMessage
		if err := codec.Default.Unmarshal(nested, &inner); err != nil || inner == nil {
			return Prediction{}, &RecordError{Line: line, Field: FieldModelOutput, Err: fmt.Errorf("%w: expected object", errType)}
		}
		for k, v := range inner {
			fields[k] = v
		}
	}

	id, err := parseID(fields)
	if err != nil {
		return Prediction{}, &RecordError{Line: line, Field: FieldID, Err: err}
	}
	p := Prediction{ID: id, Line: line}

	raw, ok := fields[FieldProbabilities]
	if !ok {
		return Prediction{}, &RecordError{Line: line, Field: FieldProbabilities, Err: errMissing}
	}
	if err := codec.Default.Unmarshal(raw, &p.Probabilities); err != nil {
		return Prediction{}, &RecordError{Line: line, Field: FieldProbabilities, Err: err}
	}

	raw, ok = fields[FieldLabels]
	if !ok {
		return Prediction{}, &RecordError{Line: line, Field: FieldLabels, Err: errMissing}
	}
	if err := codec.Default.Unmarshal(raw, &p.Labels); err != nil {
		return Prediction{}, &RecordError{Line: line, Field: FieldLabels, Err: err}
	}

	if len(p.Probabilities) == 0 {
		return Prediction{}, &RecordError{Line: line, Field: FieldProbabilities, Err: errMissing}
	}
	if len(p.Probabilities) != len(p.Labels) {
		return Prediction{}, &RecordError{
			Line:  line,
			Field: FieldLabels,
			Err:   fmt.Errorf("%d labels for %d probabilities", len(p.Labels), len(p.Probabilities)),
		}
	}
	return p, nil
}

// ReadClassifications parses a classification output file.
func ReadClassifications(key string, data []byte) ([]Prediction, error) {
	var out []Prediction
	err := ReadLines(data, func(line int, b []byte) error {
		p, err := ParseClassification(line, b)
		if err != nil {
			var re *RecordError
			if errors.As(err, &re) {
				re.Key = key
			}
			return err
		}
		p.Key = key
		out = append(out, p)
		return nil
	})
	return out, err
}

// ParseDetection parses a detection output file. The whole object is one
// prediction whose "prediction" field lists
// [classId, score, xmin, ymin, xmax, ymax] tuples.
func ParseDetection(key string, payload []byte) (Prediction, error) {
	var doc struct {
		Prediction *[][]float64 `json:"prediction"`
	}
	if err := codec.Default.Unmarshal(payload, &doc); err != nil {
		return Prediction{}, &RecordError{Key: key, Field: FieldDetections, Err: err}
	}
	if doc.Prediction == nil {
		return Prediction{}, &RecordError{Key: key, Field: FieldDetections, Err: errMissing}
	}

	p := Prediction{Key: key, Detections: make([]Detection, 0, len(*doc.Prediction))}
	for i, t := range *doc.Prediction {
		if len(t) != 6 {
			return Prediction{}, &RecordError{
				Key:   key,
				Field: FieldDetections,
				Err:   fmt.Errorf("detection %d: expected 6 values, got %d", i, len(t)),
			}
		}
		p.Detections = append(p.Detections, Detection{
			ClassID: t[0],
			Score:   t[1],
			XMin:    t[2],
			YMin:    t[3],
			XMax:    t[4],
			YMax:    t[5],
		})
	}
	return p, nil
}
