// Package align pairs source records with the predictions made for them.
//
// Batch inference writes one output file per input object, named after the
// input. Sorting the sources by their reference and the outputs by their key,
// both case-insensitively, lines the two lists up so they can be zipped.
// Classification outputs carry the id of their source and are joined by id
// instead.
package align

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/hupe1980/autolabel/manifest"
)

var (
	// ErrLengthMismatch is returned when the two sides differ in length.
	ErrLengthMismatch = errors.New("align: source and prediction counts differ")
	// ErrUnmatchedID is returned when a prediction names an unknown source.
	ErrUnmatchedID = errors.New("align: prediction has no matching source")
	// ErrDuplicateID is returned when two sources, or two predictions,
	// share an id.
	ErrDuplicateID = errors.New("align: duplicate id")
)

// Pair is a source record and its prediction.
type Pair struct {
	Source     manifest.SourceRecord
	Prediction manifest.Prediction
}

// Mode selects how sources and predictions are paired.
type Mode int

const (
	// ByFilename sorts both sides by lowercase name and zips them.
	ByFilename Mode = iota
	// ByID joins predictions to sources on the record id.
	ByID
)

func (m Mode) String() string {
	switch m {
	case ByFilename:
		return "filename"
	case ByID:
		return "id"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses the String form of a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "filename", "":
		return ByFilename, nil
	case "id":
		return ByID, nil
	default:
		return 0, fmt.Errorf("align: unknown mode %q", s)
	}
}

// Align pairs sources and predictions using m.
func (m Mode) Align(sources []manifest.SourceRecord, predictions []manifest.Prediction) ([]Pair, error) {
	switch m {
	case ByFilename:
		return Filenames(sources, predictions)
	case ByID:
		return IDs(sources, predictions)
	default:
		return nil, fmt.Errorf("align: unknown mode %d", int(m))
	}
}

type keyed[T any] struct {
	key  string
	orig string
	v    T
}

func sortedBy[T any](in []T, key func(T) string) []T {
	tmp := make([]keyed[T], len(in))
	for i, v := range in {
		k := key(v)
		tmp[i] = keyed[T]{key: strings.ToLower(k), orig: k, v: v}
	}
	// Names that differ only in case fall back to their original spelling.
	slices.SortStableFunc(tmp, func(a, b keyed[T]) int {
		return cmp.Or(strings.Compare(a.key, b.key), strings.Compare(a.orig, b.orig))
	})

	out := make([]T, len(in))
	for i, k := range tmp {
		out[i] = k.v
	}
	return out
}

// Filenames sorts sources by lowercase reference and predictions by
// lowercase output key, then pairs them by position. The pairing does not
// depend on the input order of either side. Whether the names actually
// correspond is not checked.
func Filenames(sources []manifest.SourceRecord, predictions []manifest.Prediction) ([]Pair, error) {
	if len(sources) != len(predictions) {
		return nil, fmt.Errorf("%w: %d sources, %d predictions", ErrLengthMismatch, len(sources), len(predictions))
	}

	s := sortedBy(sources, manifest.SourceRecord.Ref)
	p := sortedBy(predictions, func(p manifest.Prediction) string { return p.Key })

	pairs := make([]Pair, len(s))
	for i := range s {
		pairs[i] = Pair{Source: s[i], Prediction: p[i]}
	}
	return pairs, nil
}

// IDs pairs every prediction with the source of the same id, in prediction
// order. Each source is claimed by exactly one prediction.
func IDs(sources []manifest.SourceRecord, predictions []manifest.Prediction) ([]Pair, error) {
	if len(sources) != len(predictions) {
		return nil, fmt.Errorf("%w: %d sources, %d predictions", ErrLengthMismatch, len(sources), len(predictions))
	}

	byID := make(map[string]int, len(sources))
	for i, s := range sources {
		if _, dup := byID[s.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateID, s.ID)
		}
		byID[s.ID] = i
	}

	claimed := make([]bool, len(sources))
	pairs := make([]Pair, len(predictions))
	for i, p := range predictions {
		j, ok := byID[p.ID]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnmatchedID, p.ID)
		}
		if claimed[j] {
			return nil, fmt.Errorf("%w: prediction %q", ErrDuplicateID, p.ID)
		}
		claimed[j] = true
		pairs[i] = Pair{Source: sources[j], Prediction: p}
	}
	return pairs, nil
}
