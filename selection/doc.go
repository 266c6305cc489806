// Package selection picks the records that go to human labelers next.
//
// Ids are interned to dense ordinals so that set algebra over a batch runs
// on roaring bitmaps. The draw is uniform without replacement and uses a
// caller-supplied random source, so a fixed seed reproduces a selection.
package selection
