package selection

import (
	"errors"
	"math/rand/v2"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/autolabel/manifest"
)

// DefaultMaxSelections is the number of records sent to humans per round.
const DefaultMaxSelections = 16

// ErrNegativeMax is returned for a negative selection budget.
var ErrNegativeMax = errors.New("selection: negative max selections")

// Policy draws up to Max ids uniformly at random without replacement from
// the ids that were not auto-annotated.
type Policy struct {
	Max int
	// Rand is the random source of the draw. A nil Rand draws from a
	// randomly seeded source.
	Rand *rand.Rand
}

// Select returns min(Max, |all - auto|) ids of all that are not in auto.
// When fewer than Max remain, all of them are returned.
func (p Policy) Select(all, auto *IDSet) (*IDSet, error) {
	if p.Max < 0 {
		return nil, ErrNegativeMax
	}

	remaining := all.Difference(auto)
	if remaining.Len() <= p.Max {
		return remaining, nil
	}

	r := p.Rand
	if r == nil {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	// Partial Fisher-Yates over the remaining ordinals.
	ords := remaining.ordinals()
	for i := 0; i < p.Max; i++ {
		j := i + r.IntN(len(ords)-i)
		ords[i], ords[j] = ords[j], ords[i]
	}

	return &IDSet{u: all.u, bm: roaring.BitmapOf(ords[:p.Max]...)}, nil
}

// SelectIDs is Select over plain id lists.
func (p Policy) SelectIDs(all, auto []string) ([]string, error) {
	u := NewUniverse(all)
	s, err := p.Select(u.All(), u.Set(auto...))
	if err != nil {
		return nil, err
	}
	return s.IDs(), nil
}

// Filter keeps the records whose id is in selected, in their original order.
func Filter(records []manifest.SourceRecord, selected *IDSet) []manifest.SourceRecord {
	var out []manifest.SourceRecord
	for _, r := range records {
		if selected.Contains(r.ID) {
			out = append(out, r)
		}
	}
	return out
}
