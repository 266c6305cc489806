package autolabel

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/autolabel/blobstore"
	"github.com/hupe1980/autolabel/manifest"
	"github.com/hupe1980/autolabel/prep"
)

const (
	// UnlabeledName is the inference input written by PrepareInference.
	UnlabeledName = "unlabeled.manifest"
	// UnlabeledImagesPrefix holds the copies of unlabeled images.
	UnlabeledImagesPrefix = "labeled_by_active_learning"
	// ValidationName is the validation manifest, next to its input.
	ValidationName = "validation_input.manifest"
	// TrainingName is the training manifest in the training job folder.
	TrainingName = "training_input.manifest"
)

// PrepareRequest describes the inference input of a round.
type PrepareRequest struct {
	// ManifestURI is the full manifest of the dataset.
	ManifestURI string
	// OutputURI is the folder the inference input is written to.
	OutputURI      string
	LabelAttribute string
	// TopK is added to every record. 0 selects prep.DefaultTopK, a
	// negative value adds nothing.
	TopK int
	// CopyImages copies the images of unlabeled records below
	// UnlabeledImagesPrefix.
	CopyImages bool
}

// PrepareResult locates the inference input.
type PrepareResult struct {
	UnlabeledManifestURI string `json:"UnlabeledManifestS3Uri"`
	UnlabeledPrefixURI   string `json:"UnlabeledPrefixS3Uri,omitempty"`
	Unlabeled            int    `json:"unlabeled"`
}

// PrepareInference writes the records that have no label yet.
func (p *Pipeline) PrepareInference(ctx context.Context, req PrepareRequest) (*PrepareResult, error) {
	if req.LabelAttribute == "" {
		return nil, translateError(StepPrepare, fmt.Errorf("%w: missing label attribute", ErrInvalidRequest))
	}
	src, err := parseRequestURI("manifest", req.ManifestURI)
	if err != nil {
		return nil, translateError(StepPrepare, err)
	}
	out, err := parseRequestURI("output", req.OutputURI)
	if err != nil {
		return nil, translateError(StepPrepare, err)
	}

	k := req.TopK
	if k == 0 {
		k = prep.DefaultTopK
	}

	res := &PrepareResult{UnlabeledManifestURI: out.Join(UnlabeledName).String()}

	err = p.prepareStep(ctx, "prepare inference", func() error {
		records, err := p.readSources(ctx, src)
		if err != nil {
			return err
		}
		unlabeled, err := prep.Unlabeled(records, req.LabelAttribute, k)
		if err != nil {
			return err
		}
		res.Unlabeled = len(unlabeled)

		if err := p.writeSources(ctx, out.Join(UnlabeledName), unlabeled); err != nil {
			return err
		}
		if !req.CopyImages {
			return nil
		}

		dir := out.Join(UnlabeledImagesPrefix)
		res.UnlabeledPrefixURI = dir.String()
		return p.copyImages(ctx, unlabeled, dir)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ValidationRequest describes the validation subset of a dataset.
type ValidationRequest struct {
	ManifestURI    string
	LabelAttribute string
	InputTotal     int
}

// ValidationResult locates the validation manifest.
type ValidationResult struct {
	ValidationURI string `json:"ValidationS3Uri"`
	Validation    int    `json:"validation"`
}

// CreateValidationSet writes a tenth of InputTotal human labeled records
// next to the manifest.
func (p *Pipeline) CreateValidationSet(ctx context.Context, req ValidationRequest) (*ValidationResult, error) {
	if req.LabelAttribute == "" {
		return nil, translateError(StepPrepare, fmt.Errorf("%w: missing label attribute", ErrInvalidRequest))
	}
	src, err := parseRequestURI("manifest", req.ManifestURI)
	if err != nil {
		return nil, translateError(StepPrepare, err)
	}

	dst := src.Dir().Join(ValidationName)
	res := &ValidationResult{ValidationURI: dst.String()}

	err = p.prepareStep(ctx, "create validation set", func() error {
		records, err := p.readSources(ctx, src)
		if err != nil {
			return err
		}
		validation := prep.Validation(records, req.LabelAttribute, req.InputTotal)
		res.Validation = len(validation)
		return p.writeSources(ctx, dst, validation)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// TrainingRequest describes the training input of a round.
type TrainingRequest struct {
	ManifestURI           string
	LabelAttribute        string
	JobNamePrefix         string
	IntermediateFolderURI string
	// ValidationURI, if set, names records excluded from training.
	ValidationURI string
}

// TrainingResult names the training job and locates its input.
type TrainingResult struct {
	TrainingJobName  string `json:"TrainingJobName"`
	TrainingInputURI string `json:"trainS3Uri"`
	OutputURI        string `json:"S3OutputPath"`
	Training         int    `json:"training"`
}

// PrepareTraining writes the human labeled records to a new training job
// folder.
func (p *Pipeline) PrepareTraining(ctx context.Context, req TrainingRequest) (*TrainingResult, error) {
	switch {
	case req.LabelAttribute == "":
		return nil, translateError(StepPrepare, fmt.Errorf("%w: missing label attribute", ErrInvalidRequest))
	case req.JobNamePrefix == "":
		return nil, translateError(StepPrepare, fmt.Errorf("%w: missing job name prefix", ErrInvalidRequest))
	}
	src, err := parseRequestURI("manifest", req.ManifestURI)
	if err != nil {
		return nil, translateError(StepPrepare, err)
	}
	folder, err := parseRequestURI("intermediate folder", req.IntermediateFolderURI)
	if err != nil {
		return nil, translateError(StepPrepare, err)
	}

	res := &TrainingResult{}
	res.TrainingJobName, res.OutputURI = nextJob(req.JobNamePrefix, folder)
	dst := folder.Join(res.TrainingJobName, TrainingName)
	res.TrainingInputURI = dst.String()

	err = p.prepareStep(ctx, "prepare training", func() error {
		records, err := p.readSources(ctx, src)
		if err != nil {
			return err
		}

		var exclude []manifest.SourceRecord
		if req.ValidationURI != "" {
			v, err := parseRequestURI("validation", req.ValidationURI)
			if err != nil {
				return err
			}
			if exclude, err = p.readSources(ctx, v); err != nil {
				return err
			}
			exclude = prep.HumanLabeled(exclude, req.LabelAttribute)
		}

		training := prep.Training(records, req.LabelAttribute, exclude)
		res.Training = len(training)
		return p.writeSources(ctx, dst, training)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (p *Pipeline) prepareStep(ctx context.Context, op string, fn func() error) error {
	log := p.opts.logger.WithStep(StepPrepare)
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	p.opts.metricsCollector.RecordStep(StepPrepare, elapsed, err)
	log.LogStep(ctx, StepPrepare, elapsed, err, "op", op)
	return translateError(StepPrepare, err)
}

func (p *Pipeline) readSources(ctx context.Context, u blobstore.URI) ([]manifest.SourceRecord, error) {
	data, err := p.router.Fetch(ctx, u)
	if err != nil {
		return nil, err
	}
	records, err := manifest.ReadSources(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", u, err)
	}
	return records, nil
}

func (p *Pipeline) writeSources(ctx context.Context, u blobstore.URI, records []manifest.SourceRecord) error {
	enc := manifest.NewEncoder(p.opts.codec)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode %q: %w", r.ID, err)
		}
	}
	return p.router.Put(ctx, u, enc.Bytes())
}

// copyImages copies the referenced image of every record into dir, keeping
// the base name.
func (p *Pipeline) copyImages(ctx context.Context, records []manifest.SourceRecord, dir blobstore.URI) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.fetchWorkers)

	for _, r := range records {
		if r.SourceRef == "" {
			continue
		}
		g.Go(func() error {
			src, err := blobstore.ParseURI(r.SourceRef)
			if err != nil {
				return fmt.Errorf("record %q: %w", r.ID, err)
			}
			data, err := p.router.Fetch(gctx, src)
			if err != nil {
				return err
			}
			return p.router.Put(gctx, dir.Join(src.Base()), data)
		})
	}
	return g.Wait()
}

func parseRequestURI(name, raw string) (blobstore.URI, error) {
	if raw == "" {
		return blobstore.URI{}, fmt.Errorf("%w: missing %s uri", ErrInvalidRequest, name)
	}
	u, err := blobstore.ParseURI(raw)
	if err != nil {
		return blobstore.URI{}, fmt.Errorf("%w: %s uri: %w", ErrInvalidRequest, name, err)
	}
	return u, nil
}
