// Package annotate turns confident predictions into machine labels.
//
// A Strategy implements one label schema. ClassificationStrategy labels
// text records with the most likely class; DetectionStrategy labels images
// with bounding boxes converted from normalized to pixel coordinates, which
// needs the dimensions of every accepted image.
//
// Annotator runs a strategy over aligned pairs. Decisions are made in input
// order; building the records of accepted pairs runs on a bounded worker
// pool and the output keeps the input order.
package annotate
