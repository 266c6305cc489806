package autolabel

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// LogFormat selects the slog handler of a Logger.
type LogFormat int

const (
	LogText LogFormat = iota
	LogJSON
)

// ParseLogFormat parses "text" or "json".
func ParseLogFormat(s string) (LogFormat, error) {
	switch strings.ToLower(s) {
	case "", "text":
		return LogText, nil
	case "json":
		return LogJSON, nil
	default:
		return 0, fmt.Errorf("unknown log format %q", s)
	}
}

// Logger wraps slog.Logger with labeling-specific context.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler.
// If handler is nil, text logs at info level go to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		return NewWriterLogger(os.Stderr, LogText, slog.LevelInfo)
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewWriterLogger creates a Logger writing to w in the given format.
func NewWriterLogger(w io.Writer, format LogFormat, level slog.Level) *Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == LogJSON {
		return NewLogger(slog.NewJSONHandler(w, opts))
	}
	return NewLogger(slog.NewTextHandler(w, opts))
}

// NewJSONLogger creates a Logger that writes JSON logs to stderr.
func NewJSONLogger(level slog.Level) *Logger {
	return NewWriterLogger(os.Stderr, LogJSON, level)
}

// NewTextLogger creates a Logger that writes text logs to stderr.
func NewTextLogger(level slog.Level) *Logger {
	return NewWriterLogger(os.Stderr, LogText, level)
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithRun adds the labeling job to the logger.
func (l *Logger) WithRun(job string) *Logger {
	return &Logger{Logger: l.Logger.With("job", job)}
}

// WithStep adds a step field to the logger.
func (l *Logger) WithStep(step Step) *Logger {
	return &Logger{Logger: l.Logger.With("step", step.String())}
}

// LogStep logs the end of a pipeline step. Failures log at error level,
// completions at debug.
func (l *Logger) LogStep(ctx context.Context, step Step, elapsed time.Duration, err error, attrs ...any) {
	level, msg := slog.LevelDebug, "step completed"
	args := []any{"step", step.String(), "elapsed", elapsed}
	if err != nil {
		level, msg = slog.LevelError, "step failed"
		args = append(args, "error", err)
	}
	l.Log(ctx, level, msg, append(args, attrs...)...)
}

// LogRun logs the outcome of a run.
func (l *Logger) LogRun(ctx context.Context, res *Result, err error) {
	if err != nil {
		l.ErrorContext(ctx, "active learning run failed", "error", err)
		return
	}
	l.InfoContext(ctx, "active learning run completed",
		"input_total", res.InputTotal,
		"autoannotated", res.AutoAnnotated,
		"selected", res.Selected,
		"autoannotations", res.AutoAnnotationsURI,
		"selections", res.SelectionsURI,
		"next_job", res.NextJobName,
	)
}
