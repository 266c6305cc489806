package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/autolabel/codec"
)

// Well-known manifest fields.
const (
	FieldID        = "id"
	FieldSourceRef = "source-ref"
	FieldSource    = "source"

	// MetadataSuffix turns a label attribute into its metadata field.
	MetadataSuffix = "-metadata"
	// FieldHumanAnnotated is the metadata field separating human labels
	// from machine labels.
	FieldHumanAnnotated = "human-annotated"

	HumanAnnotatedYes = "yes"
	HumanAnnotatedNo  = "no"
)

// SourceRecord is one item of a labeling manifest.
type SourceRecord struct {
	// ID is the literal text of the id field; numeric ids keep their
	// decimal spelling.
	ID string
	// SourceRef is the "source-ref" field (image manifests).
	SourceRef string
	// Source is the inline "source" field (text manifests).
	Source string
	// Line is the 1-based line the record was read from.
	Line int

	fields map[string]json.RawMessage
	raw    []byte
}

// ParseSource parses one manifest line.
func ParseSource(line int, b []byte) (SourceRecord, error) {
	var fields map[string]json.RawMessage
	if err := codec.Default.Unmarshal(b, &fields); err != nil {
		return SourceRecord{}, &RecordError{Line: line, Err: err}
	}
	if fields == nil {
		return SourceRecord{}, &RecordError{Line: line, Err: fmt.Errorf("%w: expected object", errType)}
	}

	id, err := parseID(fields)
	if err != nil {
		return SourceRecord{}, &RecordError{Line: line, Field: FieldID, Err: err}
	}

	rec := SourceRecord{
		ID:     id,
		Line:   line,
		fields: fields,
		raw:    append([]byte(nil), b...),
	}

	if raw, ok := fields[FieldSourceRef]; ok {
		if err := codec.Default.Unmarshal(raw, &rec.SourceRef); err != nil {
			return SourceRecord{}, &RecordError{Line: line, Field: FieldSourceRef, Err: errType}
		}
	}
	if raw, ok := fields[FieldSource]; ok {
		// Text sources may be arbitrary JSON; only strings are kept.
		_ = codec.Default.Unmarshal(raw, &rec.Source)
	}
	if _, hasRef := fields[FieldSourceRef]; !hasRef {
		if _, hasSource := fields[FieldSource]; !hasSource {
			return SourceRecord{}, &RecordError{Line: line, Field: FieldSourceRef, Err: errMissing}
		}
	}
	return rec, nil
}

// ReadSources parses a whole manifest.
func ReadSources(data []byte) ([]SourceRecord, error) {
	var out []SourceRecord
	err := ReadLines(data, func(line int, b []byte) error {
		rec, err := ParseSource(line, b)
		if err != nil {
			return err
		}
		out = append(out, rec)
		return nil
	})
	return out, err
}

func parseID(fields map[string]json.RawMessage) (string, error) {
	raw, ok := fields[FieldID]
	if !ok {
		return "", errMissing
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", errMissing
	}
	switch raw[0] {
	case '"':
		var s string
		if err := codec.Default.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return string(raw), nil
	default:
		return "", fmt.Errorf("%w: %s", errType, raw)
	}
}

// Ref returns the field the record is addressed by: source-ref when present,
// source otherwise.
func (r SourceRecord) Ref() string {
	if r.SourceRef != "" {
		return r.SourceRef
	}
	return r.Source
}

// RefField returns the name of the field Ref reads.
func (r SourceRecord) RefField() string {
	if _, ok := r.fields[FieldSourceRef]; ok {
		return FieldSourceRef
	}
	return FieldSource
}

// Field returns the raw value of a field.
func (r SourceRecord) Field(name string) (json.RawMessage, bool) {
	v, ok := r.fields[name]
	return v, ok
}

// RawID returns the id exactly as written in the manifest.
func (r SourceRecord) RawID() json.RawMessage {
	return r.fields[FieldID]
}

// HasAttribute reports whether the record carries a label under attr.
func (r SourceRecord) HasAttribute(attr string) bool {
	_, ok := r.fields[attr]
	return ok
}

// HumanAnnotated reports whether the label under attr was produced by a
// human worker.
func (r SourceRecord) HumanAnnotated(attr string) bool {
	raw, ok := r.fields[attr+MetadataSuffix]
	if !ok {
		return false
	}
	var meta struct {
		HumanAnnotated string `json:"human-annotated"`
	}
	if err := codec.Default.Unmarshal(raw, &meta); err != nil {
		return false
	}
	return strings.EqualFold(meta.HumanAnnotated, HumanAnnotatedYes)
}

// With returns a copy of the record with field set to value.
func (r SourceRecord) With(field string, value any) (SourceRecord, error) {
	b, err := codec.Default.Marshal(value)
	if err != nil {
		return SourceRecord{}, err
	}

	fields := make(map[string]json.RawMessage, len(r.fields)+1)
	for k, v := range r.fields {
		fields[k] = v
	}
	_, existed := fields[field]
	fields[field] = b

	out := r
	out.fields = fields
	if existed || len(r.raw) == 0 {
		out.raw, err = codec.Default.Marshal(fields)
		if err != nil {
			return SourceRecord{}, err
		}
		return out, nil
	}

	// Append the new field in place so the existing key order survives.
	key, err := codec.Default.Marshal(field)
	if err != nil {
		return SourceRecord{}, err
	}
	raw := bytes.TrimSpace(r.raw)
	raw = raw[:len(raw)-1]
	buf := make([]byte, 0, len(raw)+len(key)+len(b)+3)
	buf = append(buf, raw...)
	if len(r.fields) > 0 {
		buf = append(buf, ',')
	}
	buf = append(buf, key...)
	buf = append(buf, ':')
	buf = append(buf, b...)
	buf = append(buf, '}')
	out.raw = buf
	return out, nil
}

// MarshalJSON returns the record as it was read, plus any fields set with
// With.
func (r SourceRecord) MarshalJSON() ([]byte, error) {
	if len(r.raw) > 0 {
		return r.raw, nil
	}
	return codec.Default.Marshal(r.fields)
}
