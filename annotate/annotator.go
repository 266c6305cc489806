package annotate

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/autolabel/align"
)

// DefaultWorkers bounds concurrent record builds.
const DefaultWorkers = 8

// PairError reports the pair an annotation failed on.
type PairError struct {
	Index int
	ID    string
	Ref   string
	Err   error
}

func (e *PairError) Error() string {
	return fmt.Sprintf("annotate: record %q (%s): %v", e.ID, e.Ref, e.Err)
}

func (e *PairError) Unwrap() error { return e.Err }

// Annotator applies a Strategy to aligned pairs.
type Annotator struct {
	strategy Strategy
	workers  int
	logger   *slog.Logger
	onDecide func(Decision)
}

// Option configures an Annotator.
type Option func(*Annotator)

// WithWorkers bounds concurrent record builds. Values below 1 select 1.
func WithWorkers(n int) Option {
	return func(a *Annotator) {
		a.workers = max(n, 1)
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Annotator) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithDecisionHook calls fn for every decision.
func WithDecisionHook(fn func(Decision)) Option {
	return func(a *Annotator) {
		a.onDecide = fn
	}
}

// New creates an Annotator.
func New(s Strategy, opts ...Option) *Annotator {
	a := &Annotator{
		strategy: s,
		workers:  DefaultWorkers,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Annotate returns the records of all accepted pairs in input order. The
// first failure cancels outstanding builds and no records are returned.
func (a *Annotator) Annotate(ctx context.Context, pairs []align.Pair) ([]Record, error) {
	decisions := make([]Decision, len(pairs))
	var accepted []int

	for i, p := range pairs {
		d, err := a.strategy.Decide(p.Prediction)
		if err != nil {
			return nil, a.pairError(i, p, err)
		}
		if a.onDecide != nil {
			a.onDecide(d)
		}
		decisions[i] = d
		if d.Accept {
			accepted = append(accepted, i)
		} else {
			a.logger.DebugContext(ctx, "prediction rejected", "id", p.Source.ID, "veto", d.Veto)
		}
	}

	a.logger.InfoContext(ctx, "scored predictions",
		"variant", a.strategy.Variant().String(),
		"threshold", thresholdOf(a.strategy),
		"accepted", len(accepted),
		"total", len(pairs),
	)

	records := make([]Record, len(accepted))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)

	for slot, idx := range accepted {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, err := a.strategy.Build(gctx, pairs[idx].Source, decisions[idx])
			if err != nil {
				return a.pairError(idx, pairs[idx], err)
			}
			records[slot] = rec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

func (a *Annotator) pairError(i int, p align.Pair, err error) error {
	return &PairError{Index: i, ID: p.Source.ID, Ref: p.Source.Ref(), Err: err}
}

func thresholdOf(s Strategy) float64 {
	switch st := s.(type) {
	case *ClassificationStrategy:
		return st.Scorer.Threshold
	case *DetectionStrategy:
		return st.Scorer.Threshold
	default:
		return 0
	}
}
