package manifest

import (
	"errors"
	"fmt"
)

// ErrMalformed is matched by every parse failure in this package.
var ErrMalformed = errors.New("manifest: malformed record")

// RecordError describes which record and field failed to parse.
type RecordError struct {
	// Line is the 1-based line number, 0 when the record is a whole object.
	Line int
	// Key identifies the object the record came from, if any.
	Key   string
	Field string
	Err   error
}

func (e *RecordError) Error() string {
	loc := "record"
	switch {
	case e.Key != "" && e.Line > 0:
		loc = fmt.Sprintf("%s:%d", e.Key, e.Line)
	case e.Key != "":
		loc = e.Key
	case e.Line > 0:
		loc = fmt.Sprintf("line %d", e.Line)
	}
	if e.Field != "" {
		return fmt.Sprintf("manifest: %s: field %q: %v", loc, e.Field, e.Err)
	}
	return fmt.Sprintf("manifest: %s: %v", loc, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// Is reports ErrMalformed for every RecordError.
func (e *RecordError) Is(target error) bool { return target == ErrMalformed }

var (
	errMissing = errors.New("missing")
	errType    = errors.New("unexpected type")
)
