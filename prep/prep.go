package prep

import (
	"github.com/hupe1980/autolabel/manifest"
	"github.com/hupe1980/autolabel/selection"
)

const (
	// FieldTopK is added to inference records so text classifiers return a
	// probability for every class.
	FieldTopK = "k"

	// DefaultTopK exceeds any realistic number of classes.
	DefaultTopK = 1000000

	// ValidationDivisor sets the validation share of the input to 1/10.
	ValidationDivisor = 10
)

// Unlabeled returns the records without a label under attr. If k is
// positive every returned record carries it as FieldTopK.
func Unlabeled(records []manifest.SourceRecord, attr string, k int) ([]manifest.SourceRecord, error) {
	var out []manifest.SourceRecord
	for _, r := range records {
		if r.HasAttribute(attr) {
			continue
		}
		if k > 0 {
			var err error
			if r, err = r.With(FieldTopK, k); err != nil {
				return nil, err
			}
		}
		out = append(out, r)
	}
	return out, nil
}

// HumanLabeled returns the records labeled by a human under attr.
func HumanLabeled(records []manifest.SourceRecord, attr string) []manifest.SourceRecord {
	var out []manifest.SourceRecord
	for _, r := range records {
		if r.HumanAnnotated(attr) {
			out = append(out, r)
		}
	}
	return out
}

// ValidationSize is the number of validation records for an input of
// inputTotal records.
func ValidationSize(inputTotal int) int {
	return max(inputTotal, 0) / ValidationDivisor
}

// Validation returns the first ValidationSize(inputTotal) human labeled
// records.
func Validation(records []manifest.SourceRecord, attr string, inputTotal int) []manifest.SourceRecord {
	human := HumanLabeled(records, attr)
	if n := ValidationSize(inputTotal); len(human) > n {
		human = human[:n]
	}
	return human
}

// Training returns the human labeled records whose id is not in exclude.
// A nil exclude keeps all of them.
func Training(records []manifest.SourceRecord, attr string, exclude []manifest.SourceRecord) []manifest.SourceRecord {
	human := HumanLabeled(records, attr)
	if len(exclude) == 0 {
		return human
	}

	ids := make([]string, len(human))
	for i, r := range human {
		ids[i] = r.ID
	}
	excluded := make([]string, len(exclude))
	for i, r := range exclude {
		excluded[i] = r.ID
	}

	u := selection.NewUniverse(ids)
	return selection.Filter(human, u.All().Difference(u.Set(excluded...)))
}
