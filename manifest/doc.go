// Package manifest is the data model of the labeling pipeline: the source
// records of a labeling manifest, the model predictions produced for them,
// and the label category configuration of a job.
//
// Manifests and prediction outputs are JSON lines. Parsing keeps the raw
// bytes of every source record so that records can be written back out
// unchanged.
package manifest
