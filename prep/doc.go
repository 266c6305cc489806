// Package prep derives the manifests that surround an active learning round:
// the unlabeled subset sent to batch inference, the validation subset and the
// training subset.
//
// The functions operate on parsed records and keep them unchanged apart from
// the fields they add, so the derived manifests re-emit the input lines.
package prep
