package autolabel

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/autolabel/align"
	"github.com/hupe1980/autolabel/annotate"
	"github.com/hupe1980/autolabel/blobstore"
	"github.com/hupe1980/autolabel/imagemeta"
	"github.com/hupe1980/autolabel/manifest"
	"github.com/hupe1980/autolabel/scoring"
	"github.com/hupe1980/autolabel/selection"
)

var (
	// ErrMalformedRecord is returned when a manifest, prediction or label
	// configuration record cannot be parsed or lacks a required field.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrAlignmentMismatch is returned when sources and predictions cannot
	// be paired one to one.
	ErrAlignmentMismatch = errors.New("alignment mismatch")

	// ErrFetchFailure is returned when the content store cannot return an
	// object, a listing or an image.
	ErrFetchFailure = errors.New("fetch failure")

	// ErrEmitFailure is returned when an artifact cannot be written.
	ErrEmitFailure = errors.New("emit failure")

	// ErrInvalidRequest is returned for an incomplete or inconsistent Request.
	ErrInvalidRequest = errors.New("invalid request")
)

// Step is a stage of a pipeline run.
type Step int

const (
	StepCollect Step = iota
	StepAlign
	StepAnnotate
	StepSelect
	StepEmit
	StepRecord
	StepPrepare
)

func (s Step) String() string {
	switch s {
	case StepCollect:
		return "collect"
	case StepAlign:
		return "align"
	case StepAnnotate:
		return "annotate"
	case StepSelect:
		return "select"
	case StepEmit:
		return "emit"
	case StepRecord:
		return "record"
	case StepPrepare:
		return "prepare"
	default:
		return fmt.Sprintf("Step(%d)", int(s))
	}
}

// StepError is the terminal error of a run. It names the step and, where
// known, the record that failed.
//
// The classified cause can be matched with errors.Is against the sentinel
// errors of this package; the original error is still in the chain.
type StepError struct {
	Step   Step
	Record string
	Err    error
}

func (e *StepError) Error() string {
	if e.Record != "" {
		return fmt.Sprintf("autolabel: %s: record %q: %v", e.Step, e.Record, e.Err)
	}
	return fmt.Sprintf("autolabel: %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// translateError classifies err and wraps it in a StepError.
func translateError(step Step, err error) error {
	if err == nil {
		return nil
	}

	var se *StepError
	if errors.As(err, &se) {
		return err
	}

	out := &StepError{Step: step, Err: err}

	var pe *annotate.PairError
	if errors.As(err, &pe) {
		out.Record = pe.ID
	}
	var re *manifest.RecordError
	if out.Record == "" && errors.As(err, &re) && re.Key != "" {
		out.Record = re.Key
	}

	if kind := classify(step, err); kind != nil {
		out.Err = fmt.Errorf("%w: %w", kind, err)
	}
	return out
}

func classify(step Step, err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil
	case errors.Is(err, ErrInvalidRequest):
		return nil
	case errors.Is(err, manifest.ErrMalformed),
		errors.Is(err, scoring.ErrEmptyDistribution),
		errors.Is(err, scoring.ErrLengthMismatch),
		errors.Is(err, scoring.ErrInvalidProbability):
		return ErrMalformedRecord
	case errors.Is(err, align.ErrLengthMismatch),
		errors.Is(err, align.ErrUnmatchedID),
		errors.Is(err, align.ErrDuplicateID):
		return ErrAlignmentMismatch
	case errors.Is(err, selection.ErrNegativeMax):
		return ErrInvalidRequest
	case step == StepEmit, step == StepRecord:
		return ErrEmitFailure
	case errors.Is(err, blobstore.ErrNotFound),
		errors.Is(err, blobstore.ErrAccessDenied),
		errors.Is(err, blobstore.ErrInvalidURI),
		errors.Is(err, imagemeta.ErrUndecodable):
		return ErrFetchFailure
	case step == StepCollect, step == StepAnnotate:
		// Transient I/O from the content store.
		return ErrFetchFailure
	default:
		return nil
	}
}
