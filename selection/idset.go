package selection

import (
	"github.com/RoaringBitmap/roaring/v2"
)

// Universe interns the ids of one batch.
type Universe struct {
	ids []string
	ord map[string]uint32
}

// NewUniverse interns ids in first-seen order. Duplicates collapse.
func NewUniverse(ids []string) *Universe {
	u := &Universe{ord: make(map[string]uint32, len(ids))}
	for _, id := range ids {
		if _, ok := u.ord[id]; ok {
			continue
		}
		u.ord[id] = uint32(len(u.ids))
		u.ids = append(u.ids, id)
	}
	return u
}

// Len returns the number of distinct ids.
func (u *Universe) Len() int { return len(u.ids) }

// All returns the set of every id in the universe.
func (u *Universe) All() *IDSet {
	bm := roaring.New()
	if n := len(u.ids); n > 0 {
		bm.AddRange(0, uint64(n))
	}
	return &IDSet{u: u, bm: bm}
}

// Set returns the set of the given ids. Ids outside the universe are
// ignored.
func (u *Universe) Set(ids ...string) *IDSet {
	bm := roaring.New()
	for _, id := range ids {
		if o, ok := u.ord[id]; ok {
			bm.Add(o)
		}
	}
	return &IDSet{u: u, bm: bm}
}

// IDSet is a set of ids of one Universe.
type IDSet struct {
	u  *Universe
	bm *roaring.Bitmap
}

// Len returns the cardinality.
func (s *IDSet) Len() int {
	if s == nil {
		return 0
	}
	return int(s.bm.GetCardinality())
}

// Contains reports whether id is in the set.
func (s *IDSet) Contains(id string) bool {
	if s == nil {
		return false
	}
	o, ok := s.u.ord[id]
	return ok && s.bm.Contains(o)
}

// Difference returns the ids of s not in o.
func (s *IDSet) Difference(o *IDSet) *IDSet {
	if o == nil {
		return &IDSet{u: s.u, bm: s.bm.Clone()}
	}
	return &IDSet{u: s.u, bm: roaring.AndNot(s.bm, o.bm)}
}

// Intersects reports whether s and o share an id.
func (s *IDSet) Intersects(o *IDSet) bool {
	if s == nil || o == nil {
		return false
	}
	return s.bm.Intersects(o.bm)
}

// IDs returns the members in first-seen order of the universe.
func (s *IDSet) IDs() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, s.Len())
	it := s.bm.Iterator()
	for it.HasNext() {
		out = append(out, s.u.ids[it.Next()])
	}
	return out
}

func (s *IDSet) ordinals() []uint32 {
	return s.bm.ToArray()
}
