package autolabel

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLogLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var lines []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var m map[string]any
		require.NoError(t, json.Unmarshal(line, &m))
		lines = append(lines, m)
	}
	return lines
}

func TestLogger_LogStep(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriterLogger(&buf, LogJSON, slog.LevelDebug).WithRun("labeling-job/birds")

	log.LogStep(context.Background(), StepAlign, time.Millisecond, nil, "pairs", 3)
	log.LogStep(context.Background(), StepEmit, time.Millisecond, errors.New("denied"))

	lines := decodeLogLines(t, &buf)
	require.Len(t, lines, 2)

	assert.Equal(t, "DEBUG", lines[0]["level"])
	assert.Equal(t, "align", lines[0]["step"])
	assert.Equal(t, "labeling-job/birds", lines[0]["job"])
	assert.InDelta(t, 3, lines[0]["pairs"], 0)

	assert.Equal(t, "ERROR", lines[1]["level"])
	assert.Equal(t, "step failed", lines[1]["msg"])
	assert.Equal(t, "denied", lines[1]["error"])
}

func TestLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriterLogger(&buf, LogText, slog.LevelInfo)

	log.LogStep(context.Background(), StepSelect, time.Millisecond, nil)
	assert.Empty(t, buf.String())

	log.LogRun(context.Background(), &Result{Counts: Counts{InputTotal: 3, AutoAnnotated: 2, Selected: 1}}, nil)
	assert.Contains(t, buf.String(), "autoannotated=2")
	assert.Contains(t, buf.String(), "selected=1")
}

func TestParseLogFormat(t *testing.T) {
	f, err := ParseLogFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, LogJSON, f)

	f, err = ParseLogFormat("")
	require.NoError(t, err)
	assert.Equal(t, LogText, f)

	_, err = ParseLogFormat("xml")
	assert.Error(t, err)
}
