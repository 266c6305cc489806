package autolabel

import (
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/hupe1980/autolabel/align"
	"github.com/hupe1980/autolabel/annotate"
	"github.com/hupe1980/autolabel/codec"
	"github.com/hupe1980/autolabel/ledger"
	"github.com/hupe1980/autolabel/scoring"
)

type options struct {
	codec            codec.Codec
	metricsCollector MetricsCollector
	logger           *Logger
	rand             *rand.Rand
	fetchWorkers     int
	threshold        float64
	variant          annotate.Variant
	alignment        *align.Mode
	ledger           ledger.Ledger
	now              func() time.Time
	jobType          string
}

// Option configures a Pipeline.
type Option func(*options)

// WithCodec configures the codec used to encode output records.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithMetricsCollector configures a metrics collector for monitoring runs.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &autolabel.BasicMetricsCollector{}
//	p := autolabel.New(router, autolabel.WithMetricsCollector(metrics))
//	// ... run ...
//	stats := metrics.GetStats()
//	fmt.Printf("Accepted: %d, Rejected: %d\n", stats.Accepted, stats.Rejected)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for runs.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := autolabel.NewJSONLogger(slog.LevelInfo)
//	p := autolabel.New(router, autolabel.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithRand sets the random source of the selection draw. Runs sharing a
// Pipeline share the source, so concurrent Run calls must not be given one.
// By default every run draws from a freshly seeded source.
func WithRand(r *rand.Rand) Option {
	return func(o *options) {
		o.rand = r
	}
}

// WithFetchWorkers bounds the number of concurrent prediction and image
// fetches.
func WithFetchWorkers(n int) Option {
	return func(o *options) {
		o.fetchWorkers = max(n, 1)
	}
}

// WithThreshold overrides the auto-annotation threshold.
func WithThreshold(t float64) Option {
	return func(o *options) {
		o.threshold = t
	}
}

// WithVariant selects the label schema. The default is annotate.Detection.
func WithVariant(v annotate.Variant) Option {
	return func(o *options) {
		o.variant = v
	}
}

// WithAlignment sets how sources are paired with predictions. Detection
// runs default to align.ByFilename, classification runs to align.ByID.
func WithAlignment(m align.Mode) Option {
	return func(o *options) {
		o.alignment = &m
	}
}

// WithLedger records every successful run.
func WithLedger(l ledger.Ledger) Option {
	return func(o *options) {
		o.ledger = l
	}
}

// WithClock sets the time source for creation dates and run records.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithJobType overrides the type field of the label metadata.
func WithJobType(t string) Option {
	return func(o *options) {
		o.jobType = t
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		codec:            codec.Default,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		fetchWorkers:     annotate.DefaultWorkers,
		threshold:        scoring.AutoAnnotationThreshold,
		variant:          annotate.Detection,
		now:              time.Now,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

func (o options) alignmentMode() align.Mode {
	if o.alignment != nil {
		return *o.alignment
	}
	if o.variant == annotate.Classification {
		return align.ByID
	}
	return align.ByFilename
}
