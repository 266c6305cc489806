package manifest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hupe1980/autolabel/codec"
)

// FieldClassMap is the class id to name mapping of detection jobs.
const FieldClassMap = "class-map"

// LabelCategoryConfig is the label configuration of a labeling job.
type LabelCategoryConfig struct {
	// ClassMap maps class ids, as decimal strings, to class names.
	ClassMap map[string]string `json:"class-map,omitempty"`
	Labels   []struct {
		Label string `json:"label"`
	} `json:"labels,omitempty"`
}

// ParseLabelCategoryConfig parses a label category configuration document.
func ParseLabelCategoryConfig(data []byte) (LabelCategoryConfig, error) {
	var cfg LabelCategoryConfig
	if err := codec.Default.Unmarshal(data, &cfg); err != nil {
		return LabelCategoryConfig{}, &RecordError{Key: "label category config", Err: err}
	}
	return cfg, nil
}

// RequireClassMap reports a RecordError when the configuration has no
// class map. An empty map is accepted.
func (c LabelCategoryConfig) RequireClassMap() error {
	if c.ClassMap == nil {
		return &RecordError{Key: "label category config", Field: FieldClassMap, Err: errMissing}
	}
	return nil
}

// LabelNames returns the configured label names in order.
func (c LabelCategoryConfig) LabelNames() []string {
	names := make([]string, len(c.Labels))
	for i, l := range c.Labels {
		names[i] = l.Label
	}
	return names
}

// LabelIndex returns the numeric suffix of a model label such as
// "__label__3".
func LabelIndex(label string) (int, error) {
	s := label
	if i := strings.LastIndexByte(label, '_'); i >= 0 {
		s = label[i+1:]
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, &RecordError{Field: FieldLabels, Err: fmt.Errorf("label %q has no class index", label)}
	}
	return n, nil
}

// ClassName resolves a model label to its configured name.
func (c LabelCategoryConfig) ClassName(label string) (string, error) {
	idx, err := LabelIndex(label)
	if err != nil {
		return "", err
	}
	if idx >= len(c.Labels) {
		return "", &RecordError{Field: FieldLabels, Err: fmt.Errorf("label %q: index %d out of range (%d labels)", label, idx, len(c.Labels))}
	}
	return c.Labels[idx].Label, nil
}
