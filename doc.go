// Package autolabel runs active learning rounds for labeling jobs.
//
// A round reads the manifest a model ran batch inference on together with
// the model's predictions, labels the records the model is confident about
// and picks a bounded random sample of the remaining records for human
// labeling:
//
//   - Collect: read the unlabeled manifest, the predictions and the label
//     category configuration from the content store
//   - Align: pair every source record with its prediction (by file name for
//     detection, by id for classification)
//   - Annotate: score every prediction and build machine labels for the
//     accepted ones, fetching image dimensions for detection boxes
//   - Select: draw up to MaxSelections of the records that were not
//     auto-annotated
//   - Emit: write autoannotated.manifest and selection.manifest next to the
//     unlabeled manifest
//
// Any failure aborts the round with a *StepError; no artifact is written
// before every record has been built.
//
// # Quick Start
//
//	router := blobstore.NewRouter()
//	router.Register("s3", func(ctx context.Context, bucket string) (blobstore.BlobStore, error) {
//	    return s3.New(ctx, bucket)
//	})
//
//	p := autolabel.New(router,
//	    autolabel.WithLogger(autolabel.NewJSONLogger(slog.LevelInfo)),
//	)
//	res, err := p.Run(ctx, autolabel.Request{
//	    UnlabeledManifestURI:   "s3://bucket/job/unlabeled.manifest",
//	    PredictionsURI:         "s3://bucket/job/inference/",
//	    LabelCategoryConfigURI: "s3://bucket/job/labels.json",
//	    JobNamePrefix:          "cars",
//	    LabelAttribute:         "bbox",
//	    IntermediateFolderURI:  "s3://bucket/job/intermediate/",
//	})
//	if err != nil {
//	    var se *autolabel.StepError
//	    if errors.As(err, &se) {
//	        log.Printf("step %s failed on %q", se.Step, se.Record)
//	    }
//	    return err
//	}
//	fmt.Println(res.AutoAnnotated, res.Selected, res.NextJobName)
//
// # Classification
//
// Text classification rounds read "unlabeled.manifest.out" and accept a
// prediction when the margin between its two most probable classes exceeds
// the threshold:
//
//	p := autolabel.New(router, autolabel.WithVariant(annotate.Classification))
//
// # Preparation
//
// PrepareInference, CreateValidationSet and PrepareTraining derive the
// manifests that surround a round from the full dataset manifest.
package autolabel
