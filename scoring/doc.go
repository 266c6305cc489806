// Package scoring decides whether a model prediction is confident enough to
// be used as a label without a human.
//
// Classification predictions are scored by their margin: the gap between the
// most likely class and the runner-up. A prediction is accepted when the
// margin is strictly greater than the threshold.
//
// Detection predictions are accepted only if every detection scores at least
// the threshold. A single detection below it vetoes the whole item.
package scoring
