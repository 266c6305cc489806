package autolabel

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/autolabel/align"
	"github.com/hupe1980/autolabel/annotate"
	"github.com/hupe1980/autolabel/blobstore"
	"github.com/hupe1980/autolabel/codec"
	"github.com/hupe1980/autolabel/imagemeta"
	"github.com/hupe1980/autolabel/ledger"
	"github.com/hupe1980/autolabel/manifest"
	"github.com/hupe1980/autolabel/scoring"
	"github.com/hupe1980/autolabel/selection"
)

const (
	// AutoAnnotationsName is the artifact of machine labeled records.
	AutoAnnotationsName = "autoannotated.manifest"
	// SelectionsName is the artifact of records routed to humans.
	SelectionsName = "selection.manifest"
	// ClassificationOutputName is the batch inference output of text
	// classification runs.
	ClassificationOutputName = "unlabeled.manifest.out"
	// PredictionOutputExt marks the per-image outputs of detection runs.
	PredictionOutputExt = ".out"
)

// Request describes one active learning round. Its JSON keys are the flat
// form of the labeling state machine event; UnmarshalJSON also reads the
// nested event.
type Request struct {
	// UnlabeledManifestURI is the manifest inference ran on. The artifacts
	// are written next to it.
	UnlabeledManifestURI string `json:"UnlabeledManifestS3Uri"`
	// PredictionsURI is the inference output location. Detection runs list
	// the "*.out" objects under it. Classification runs read
	// ClassificationOutputName in it, or the object itself if it names a
	// ".out" object.
	PredictionsURI string `json:"S3OutputPath"`
	// LabelCategoryConfigURI is the label category configuration.
	LabelCategoryConfigURI string `json:"LabelCategoryConfigS3Uri"`
	JobNamePrefix          string `json:"LabelingJobNamePrefix"`
	LabelAttribute         string `json:"LabelAttributeName"`
	// IntermediateFolderURI holds the outputs of later jobs.
	IntermediateFolderURI string `json:"IntermediateFolderUri"`
	// InputTotal is the size of the whole dataset. If 0 the number of
	// unlabeled records is used.
	InputTotal int `json:"input_total"`
	// MaxSelections bounds the selection. If 0
	// selection.DefaultMaxSelections is used.
	MaxSelections int `json:"max_selections"`
}

// JobName is the labeling job name written into label metadata.
func (r Request) JobName() string {
	return "labeling-job/" + r.JobNamePrefix
}

func (r Request) maxSelections() int {
	if r.MaxSelections == 0 {
		return selection.DefaultMaxSelections
	}
	return r.MaxSelections
}

type requestURIs struct {
	manifest     blobstore.URI
	predictions  blobstore.URI
	labels       blobstore.URI
	intermediate blobstore.URI
}

func (r Request) parse() (requestURIs, error) {
	var u requestURIs

	switch {
	case r.JobNamePrefix == "":
		return u, fmt.Errorf("%w: missing job name prefix", ErrInvalidRequest)
	case r.LabelAttribute == "":
		return u, fmt.Errorf("%w: missing label attribute", ErrInvalidRequest)
	case r.MaxSelections < 0:
		return u, fmt.Errorf("%w: negative max selections %d", ErrInvalidRequest, r.MaxSelections)
	case r.InputTotal < 0:
		return u, fmt.Errorf("%w: negative input total %d", ErrInvalidRequest, r.InputTotal)
	}

	for _, f := range []struct {
		name string
		raw  string
		dst  *blobstore.URI
	}{
		{"unlabeled manifest", r.UnlabeledManifestURI, &u.manifest},
		{"predictions", r.PredictionsURI, &u.predictions},
		{"label category config", r.LabelCategoryConfigURI, &u.labels},
		{"intermediate folder", r.IntermediateFolderURI, &u.intermediate},
	} {
		v, err := parseRequestURI(f.name, f.raw)
		if err != nil {
			return u, err
		}
		*f.dst = v
	}
	return u, nil
}

// Counts are the batch counters of a round.
type Counts struct {
	InputTotal    int `json:"input_total"`
	AutoAnnotated int `json:"autoannotated"`
	Selected      int `json:"selected"`
}

// Result is the outcome of a successful round.
type Result struct {
	Counts `json:"counts"`

	JobName            string   `json:"job_name"`
	AutoAnnotationsURI string   `json:"autoannotations"`
	SelectionsURI      string   `json:"selections_s3_uri"`
	SelectedIDs        []string `json:"selected_ids"`
	NextJobName        string   `json:"selected_job_name"`
	NextJobOutputURI   string   `json:"selected_job_output_uri"`
	// Version is the ledger version of the round, 0 without a ledger.
	Version uint64 `json:"version,omitempty"`
}

// Pipeline runs active learning rounds against a content store.
//
// A Pipeline is safe for concurrent use unless WithRand is given.
type Pipeline struct {
	router *blobstore.Router
	opts   options
}

// New creates a Pipeline reading and writing through router.
func New(router *blobstore.Router, optFns ...Option) *Pipeline {
	if router == nil {
		router = blobstore.NewRouter()
	}
	return &Pipeline{router: router, opts: applyOptions(optFns)}
}

type batch struct {
	sources     []manifest.SourceRecord
	predictions []manifest.Prediction
	labels      manifest.LabelCategoryConfig
}

// Run performs one round: collect, align, annotate, select and emit. Any
// failure aborts the round and is returned as a *StepError. Artifacts are
// only written once every record has been built.
func (p *Pipeline) Run(ctx context.Context, req Request) (res *Result, err error) {
	start := time.Now()
	log := p.opts.logger.WithRun(req.JobName())

	defer func() {
		p.opts.metricsCollector.RecordRun(p.opts.variant.String(), time.Since(start), err)
		log.LogRun(ctx, res, err)
	}()

	uris, err := req.parse()
	if err != nil {
		return nil, translateError(StepCollect, err)
	}

	var b *batch
	if err := p.step(ctx, log, StepCollect, func() error {
		var err error
		b, err = p.collect(ctx, uris)
		return err
	}); err != nil {
		return nil, err
	}
	log.InfoContext(ctx, "collected inputs",
		"sources", len(b.sources),
		"predictions", len(b.predictions),
	)

	strategy := p.strategy(req, b.labels)

	var pairs []align.Pair
	if err := p.step(ctx, log, StepAlign, func() error {
		var err error
		pairs, err = p.opts.alignmentMode().Align(b.sources, b.predictions)
		return err
	}); err != nil {
		return nil, err
	}

	var records []annotate.Record
	if err := p.step(ctx, log, StepAnnotate, func() error {
		ann := annotate.New(strategy,
			annotate.WithWorkers(p.opts.fetchWorkers),
			annotate.WithLogger(log.Logger),
			annotate.WithDecisionHook(func(d annotate.Decision) {
				p.opts.metricsCollector.RecordDecision(strategy.Variant().String(), d.Accept)
			}),
		)
		var err error
		records, err = ann.Annotate(ctx, pairs)
		return err
	}); err != nil {
		return nil, err
	}

	var selected *selection.IDSet
	if err := p.step(ctx, log, StepSelect, func() error {
		all := make([]string, len(b.sources))
		for i, s := range b.sources {
			all[i] = s.ID
		}
		auto := make([]string, len(records))
		for i, r := range records {
			auto[i] = r.ID
		}

		u := selection.NewUniverse(all)
		policy := selection.Policy{Max: req.maxSelections(), Rand: p.opts.rand}

		var err error
		selected, err = policy.Select(u.All(), u.Set(auto...))
		return err
	}); err != nil {
		return nil, err
	}
	log.DebugContext(ctx, "selected for labeling", "ids", selected.IDs())

	res = &Result{
		Counts: Counts{
			InputTotal:    req.InputTotal,
			AutoAnnotated: len(records),
			Selected:      selected.Len(),
		},
		JobName:            req.JobName(),
		AutoAnnotationsURI: uris.manifest.Dir().Join(AutoAnnotationsName).String(),
		SelectionsURI:      uris.manifest.Dir().Join(SelectionsName).String(),
		SelectedIDs:        selected.IDs(),
	}
	if res.InputTotal == 0 {
		res.InputTotal = len(b.sources)
	}
	res.NextJobName, res.NextJobOutputURI = nextJob(req.JobNamePrefix, uris.intermediate)

	if err := p.step(ctx, log, StepEmit, func() error {
		return p.emit(ctx, uris.manifest.Dir(), records, selection.Filter(b.sources, selected))
	}); err != nil {
		return nil, err
	}

	if p.opts.ledger != nil {
		if err := p.step(ctx, log, StepRecord, func() error {
			rec, err := p.opts.ledger.Append(ctx, ledger.RunRecord{
				Job:                req.JobNamePrefix,
				InputTotal:         res.InputTotal,
				AutoAnnotated:      res.AutoAnnotated,
				Selected:           res.Selected,
				AutoAnnotationsURI: res.AutoAnnotationsURI,
				SelectionsURI:      res.SelectionsURI,
				NextJobName:        res.NextJobName,
				NextJobOutputURI:   res.NextJobOutputURI,
				CreatedAt:          p.opts.now().UTC(),
			})
			if err != nil {
				return err
			}
			res.Version = rec.Version
			return nil
		}); err != nil {
			return nil, err
		}
	}

	p.opts.metricsCollector.RecordCounts(res.AutoAnnotated, res.Selected)
	return res, nil
}

// step runs fn as step s and classifies its error.
func (p *Pipeline) step(ctx context.Context, log *Logger, s Step, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	p.opts.metricsCollector.RecordStep(s, elapsed, err)
	log.LogStep(ctx, s, elapsed, err)
	return translateError(s, err)
}

func (p *Pipeline) strategy(req Request, labels manifest.LabelCategoryConfig) annotate.Strategy {
	cfg := annotate.Config{
		JobName:        req.JobName(),
		LabelAttribute: req.LabelAttribute,
		Scorer:         scoring.New(p.opts.threshold),
		Type:           p.opts.jobType,
		Now:            p.opts.now,
	}

	if p.opts.variant == annotate.Classification {
		return &annotate.ClassificationStrategy{Config: cfg, Labels: labels}
	}
	return &annotate.DetectionStrategy{
		Config:   cfg,
		ClassMap: labels.ClassMap,
		Prober: &measuredProber{
			prober:  imagemeta.NewProber(p.router),
			metrics: p.opts.metricsCollector,
		},
	}
}

func (p *Pipeline) collect(ctx context.Context, u requestURIs) (*batch, error) {
	var b batch

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		data, err := p.router.Fetch(gctx, u.manifest)
		if err != nil {
			return err
		}
		b.sources, err = manifest.ReadSources(data)
		if err != nil {
			return fmt.Errorf("%s: %w", u.manifest, err)
		}
		return nil
	})

	g.Go(func() error {
		data, err := p.router.Fetch(gctx, u.labels)
		if err != nil {
			return err
		}
		b.labels, err = manifest.ParseLabelCategoryConfig(data)
		if err == nil && p.opts.variant == annotate.Detection {
			err = b.labels.RequireClassMap()
		}
		if err != nil {
			return fmt.Errorf("%s: %w", u.labels, err)
		}
		return nil
	})

	g.Go(func() error {
		var err error
		if p.opts.variant == annotate.Classification {
			b.predictions, err = p.collectClassifications(gctx, u.predictions)
		} else {
			b.predictions, err = p.collectDetections(gctx, u.predictions)
		}
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &b, nil
}

func (p *Pipeline) collectClassifications(ctx context.Context, u blobstore.URI) ([]manifest.Prediction, error) {
	if !isPredictionOutput(u.Key) {
		u = u.Join(ClassificationOutputName)
	}
	data, err := p.router.Fetch(ctx, u)
	if err != nil {
		return nil, err
	}
	return manifest.ReadClassifications(u.String(), data)
}

// collectDetections reads every "*.out" object under prefix. The result is
// in listing order.
func (p *Pipeline) collectDetections(ctx context.Context, prefix blobstore.URI) ([]manifest.Prediction, error) {
	listed, err := p.router.List(ctx, prefix.WithKey(prefix.AsPrefix()))
	if err != nil {
		return nil, err
	}

	var outputs []blobstore.URI
	for _, u := range listed {
		if isPredictionOutput(u.Key) {
			outputs = append(outputs, u)
		}
	}

	preds := make([]manifest.Prediction, len(outputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.fetchWorkers)

	for i, u := range outputs {
		g.Go(func() error {
			data, err := p.router.Fetch(gctx, u)
			if err != nil {
				return err
			}
			preds[i], err = manifest.ParseDetection(u.Key, data)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return preds, nil
}

// emit encodes both artifacts before writing either.
func (p *Pipeline) emit(ctx context.Context, dir blobstore.URI, records []annotate.Record, selected []manifest.SourceRecord) error {
	auto := manifest.NewEncoder(p.opts.codec)
	for _, r := range records {
		if err := auto.Encode(r); err != nil {
			return fmt.Errorf("encode %q: %w", r.ID, err)
		}
	}

	sel := manifest.NewEncoder(p.opts.codec)
	for _, r := range selected {
		if err := sel.Encode(r); err != nil {
			return fmt.Errorf("encode %q: %w", r.ID, err)
		}
	}

	if err := p.router.Put(ctx, dir.Join(AutoAnnotationsName), auto.Bytes()); err != nil {
		return err
	}
	return p.router.Put(ctx, dir.Join(SelectionsName), sel.Bytes())
}

// isPredictionOutput reports whether key names an inference output,
// ignoring a compression extension.
func isPredictionOutput(key string) bool {
	if codec.CompressionFor(key) != codec.CompressionNone {
		key = strings.TrimSuffix(key, path.Ext(key))
	}
	return path.Ext(key) == PredictionOutputExt
}

// nextJob names the next labeling job and its output folder.
func nextJob(prefix string, intermediate blobstore.URI) (string, string) {
	name := prefix + "-" + uuid.New().String()[:8]
	out := intermediate.Join(name)
	return name, out.WithKey(out.AsPrefix()).String()
}

type measuredProber struct {
	prober  annotate.DimensionProber
	metrics MetricsCollector
}

func (m *measuredProber) Probe(ctx context.Context, ref string) (imagemeta.Dimensions, error) {
	start := time.Now()
	d, err := m.prober.Probe(ctx, ref)
	m.metrics.RecordFetch(time.Since(start), err)
	return d, err
}
