// Package observability exports pipeline metrics to Prometheus.
package observability

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/hupe1980/autolabel"
)

const namespace = "autolabel"

// PrometheusCollector implements autolabel.MetricsCollector.
type PrometheusCollector struct {
	runLatency    *prometheus.HistogramVec
	stepLatency   *prometheus.HistogramVec
	fetchLatency  *prometheus.HistogramVec
	decisions     *prometheus.CounterVec
	autoAnnotated prometheus.Counter
	selected      prometheus.Counter
	lastRun       *prometheus.GaugeVec
}

var _ autolabel.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheusCollector creates the collector and registers its metrics
// with reg. A nil reg registers with prometheus.DefaultRegisterer.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &PrometheusCollector{
		runLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of active learning rounds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"variant", "status"}),
		stepLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of pipeline steps",
			Buckets:   prometheus.DefBuckets,
		}, []string{"step", "status"}),
		fetchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "image_fetch_duration_seconds",
			Help:      "Latency of image dimension fetches",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Scored predictions by outcome",
		}, []string{"variant", "outcome"}),
		autoAnnotated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "autoannotated_records_total",
			Help:      "Records labeled by the model",
		}),
		selected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selected_records_total",
			Help:      "Records routed to human labeling",
		}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_records",
			Help:      "Record counts of the last successful round",
		}, []string{"kind"}),
	}

	for _, m := range []prometheus.Collector{
		c.runLatency,
		c.stepLatency,
		c.fetchLatency,
		c.decisions,
		c.autoAnnotated,
		c.selected,
		c.lastRun,
	} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordRun implements autolabel.MetricsCollector.
func (c *PrometheusCollector) RecordRun(variant string, d time.Duration, err error) {
	c.runLatency.WithLabelValues(variant, status(err)).Observe(d.Seconds())
}

// RecordStep implements autolabel.MetricsCollector.
func (c *PrometheusCollector) RecordStep(step autolabel.Step, d time.Duration, err error) {
	c.stepLatency.WithLabelValues(step.String(), status(err)).Observe(d.Seconds())
}

// RecordDecision implements autolabel.MetricsCollector.
func (c *PrometheusCollector) RecordDecision(variant string, accepted bool) {
	outcome := "rejected"
	if accepted {
		outcome = "accepted"
	}
	c.decisions.WithLabelValues(variant, outcome).Inc()
}

// RecordFetch implements autolabel.MetricsCollector.
func (c *PrometheusCollector) RecordFetch(d time.Duration, err error) {
	c.fetchLatency.WithLabelValues(status(err)).Observe(d.Seconds())
}

// RecordCounts implements autolabel.MetricsCollector.
func (c *PrometheusCollector) RecordCounts(autoAnnotated, selected int) {
	c.autoAnnotated.Add(float64(autoAnnotated))
	c.selected.Add(float64(selected))
	c.lastRun.WithLabelValues("autoannotated").Set(float64(autoAnnotated))
	c.lastRun.WithLabelValues("selected").Set(float64(selected))
}

// Export hands the metrics of a finished batch run to the monitoring
// system. Rounds are short lived, so there is no endpoint to scrape: the
// metrics are pushed to a Pushgateway at pushURL and written to the node
// exporter textfile at textfile. Empty destinations are skipped.
func Export(g prometheus.Gatherer, job, pushURL, textfile string) error {
	var errs []error
	if pushURL != "" {
		if err := push.New(pushURL, job).Gatherer(g).Push(); err != nil {
			errs = append(errs, err)
		}
	}
	if textfile != "" {
		if err := prometheus.WriteToTextfile(textfile, g); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
