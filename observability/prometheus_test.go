package observability

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/autolabel"
)

func TestPrometheusCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewPrometheusCollector(reg)
	require.NoError(t, err)

	c.RecordDecision("detection", true)
	c.RecordDecision("detection", true)
	c.RecordDecision("detection", false)
	c.RecordCounts(2, 1)
	c.RecordCounts(3, 0)
	c.RecordStep(autolabel.StepAnnotate, time.Millisecond, nil)
	c.RecordStep(autolabel.StepCollect, time.Millisecond, errors.New("boom"))
	c.RecordFetch(time.Millisecond, nil)
	c.RecordRun("detection", time.Second, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.decisions.WithLabelValues("detection", "accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.decisions.WithLabelValues("detection", "rejected")))
	assert.Equal(t, 5.0, testutil.ToFloat64(c.autoAnnotated))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.selected))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.lastRun.WithLabelValues("autoannotated")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.lastRun.WithLabelValues("selected")))
	assert.Equal(t, 2, testutil.CollectAndCount(c.stepLatency))
	assert.Equal(t, 1, testutil.CollectAndCount(c.runLatency))
}

func TestNewPrometheusCollector_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheusCollector(reg)
	require.NoError(t, err)

	_, err = NewPrometheusCollector(reg)
	require.Error(t, err)
}

func TestExport_Textfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewPrometheusCollector(reg)
	require.NoError(t, err)
	c.RecordCounts(4, 2)

	path := filepath.Join(t.TempDir(), "autolabel.prom")
	require.NoError(t, Export(reg, "autolabel", "", path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "autolabel_autoannotated_records_total 4"))

	assert.NoError(t, Export(reg, "autolabel", "", ""))
}
