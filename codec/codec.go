// Package codec centralizes record encoding and artifact compression.
//
// Manifests and prediction outputs are line-delimited JSON. The codec used to
// encode a single line is pluggable; compression is chosen per artifact from
// its file extension so that `autoannotated.manifest.zst` round-trips through
// the same code path as a plain manifest.
//
// Codecs never HTML-escape: text sources such as `a < b & c` are written as
// is, matching manifests produced by labeling services.
package codec

import (
	"fmt"
	"sort"
	"strings"
)

// Codec encodes one manifest line. Implementations must be safe for
// concurrent use and must not emit a trailing newline.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// Default is the codec used for manifest lines when none is configured.
var Default Codec = GoJSON{}

var registry = map[string]Codec{
	StdJSON{}.Name(): StdJSON{},
	GoJSON{}.Name():  GoJSON{},
}

// Lookup returns a built-in codec by name. The empty name selects Default.
func Lookup(name string) (Codec, error) {
	if name == "" {
		return Default, nil
	}
	if c, ok := registry[strings.ToLower(name)]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("codec: unknown codec %q (known: %s)", name, strings.Join(Names(), ", "))
}

// Names lists the built-in codec names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
