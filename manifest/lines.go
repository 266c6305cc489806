package manifest

import (
	"bufio"
	"bytes"

	"github.com/hupe1980/autolabel/codec"
)

// MaxLineSize bounds a single JSON line.
const MaxLineSize = 16 << 20

// ReadLines calls fn for every non-blank line of data with its 1-based line
// number. Iteration stops at the first error.
func ReadLines(data []byte, fn func(line int, b []byte) error) error {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), MaxLineSize)

	n := 0
	for sc.Scan() {
		n++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		if err := fn(n, b); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return &RecordError{Line: n + 1, Err: err}
	}
	return nil
}

// Encoder accumulates JSON lines in memory.
type Encoder struct {
	codec codec.Codec
	buf   bytes.Buffer
	n     int
}

// NewEncoder returns an Encoder using c, or codec.Default when c is nil.
func NewEncoder(c codec.Codec) *Encoder {
	if c == nil {
		c = codec.Default
	}
	return &Encoder{codec: c}
}

// Encode appends v as one line.
func (e *Encoder) Encode(v any) error {
	b, err := e.codec.Marshal(v)
	if err != nil {
		return err
	}
	e.WriteLine(b)
	return nil
}

// WriteLine appends an already encoded line.
func (e *Encoder) WriteLine(b []byte) {
	e.buf.Write(bytes.TrimRight(b, "\r\n"))
	e.buf.WriteByte('\n')
	e.n++
}

// Bytes returns the encoded lines.
func (e *Encoder) Bytes() []byte { return e.buf.Bytes() }

// Len returns the number of lines written.
func (e *Encoder) Len() int { return e.n }
