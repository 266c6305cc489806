package autolabel

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus (see the observability package).
type MetricsCollector interface {
	// RecordRun is called after each pipeline run.
	RecordRun(variant string, duration time.Duration, err error)

	// RecordStep is called after each pipeline step.
	RecordStep(step Step, duration time.Duration, err error)

	// RecordDecision is called for every scored prediction.
	RecordDecision(variant string, accepted bool)

	// RecordFetch is called after each image dimension fetch.
	RecordFetch(duration time.Duration, err error)

	// RecordCounts is called with the counters of a successful run.
	RecordCounts(autoAnnotated, selected int)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordRun(string, time.Duration, error) {}
func (NoopMetricsCollector) RecordStep(Step, time.Duration, error)  {}
func (NoopMetricsCollector) RecordDecision(string, bool)            {}
func (NoopMetricsCollector) RecordFetch(time.Duration, error)       {}
func (NoopMetricsCollector) RecordCounts(int, int)                  {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	RunCount        atomic.Int64
	RunErrors       atomic.Int64
	RunTotalNanos   atomic.Int64
	StepErrors      atomic.Int64
	Accepted        atomic.Int64
	Rejected        atomic.Int64
	FetchCount      atomic.Int64
	FetchErrors     atomic.Int64
	FetchTotalNanos atomic.Int64
	AutoAnnotated   atomic.Int64
	Selected        atomic.Int64
}

// RecordRun implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRun(_ string, duration time.Duration, err error) {
	b.RunCount.Add(1)
	b.RunTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.RunErrors.Add(1)
	}
}

// RecordStep implements MetricsCollector.
func (b *BasicMetricsCollector) RecordStep(_ Step, _ time.Duration, err error) {
	if err != nil {
		b.StepErrors.Add(1)
	}
}

// RecordDecision implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDecision(_ string, accepted bool) {
	if accepted {
		b.Accepted.Add(1)
	} else {
		b.Rejected.Add(1)
	}
}

// RecordFetch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFetch(duration time.Duration, err error) {
	b.FetchCount.Add(1)
	b.FetchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.FetchErrors.Add(1)
	}
}

// RecordCounts implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCounts(autoAnnotated, selected int) {
	b.AutoAnnotated.Add(int64(autoAnnotated))
	b.Selected.Add(int64(selected))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		RunCount:      b.RunCount.Load(),
		RunErrors:     b.RunErrors.Load(),
		RunAvgNanos:   avg(b.RunTotalNanos.Load(), b.RunCount.Load()),
		StepErrors:    b.StepErrors.Load(),
		Accepted:      b.Accepted.Load(),
		Rejected:      b.Rejected.Load(),
		FetchCount:    b.FetchCount.Load(),
		FetchErrors:   b.FetchErrors.Load(),
		FetchAvgNanos: avg(b.FetchTotalNanos.Load(), b.FetchCount.Load()),
		AutoAnnotated: b.AutoAnnotated.Load(),
		Selected:      b.Selected.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	RunCount      int64
	RunErrors     int64
	RunAvgNanos   int64
	StepErrors    int64
	Accepted      int64
	Rejected      int64
	FetchCount    int64
	FetchErrors   int64
	FetchAvgNanos int64
	AutoAnnotated int64
	Selected      int64
}
