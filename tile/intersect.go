package tile

import (
	cuckoo "github.com/seiflotfy/cuckoofilter"
)

// IntersectMetrics reports observability counters for one
// ExplodeAndIntersect call.
type IntersectMetrics struct {
	ToiSize   int
	Candidate int
	Hits      int
	Misses    int
}

// toiFilter wraps a TOI Set with a cuckoo-filter pre-check: a miss in
// the filter proves non-membership without touching the exact set, a
// hit still falls through to the exact set since the filter can
// false-positive (never false-negative). If any insert fails (a full
// filter may drop an earlier entry), the filter is discarded and every
// lookup goes to the exact set.
type toiFilter struct {
	set Set
	cf  *cuckoo.Filter
}

func newToiFilter(toi Set) *toiFilter {
	cf := cuckoo.NewFilter(uint(nextPow2(len(toi) + 1)))
	for c := range toi {
		b := coordBytes(c)
		if cf.Lookup(b) {
			continue
		}
		if !cf.Insert(b) {
			return &toiFilter{set: toi}
		}
	}
	return &toiFilter{set: toi, cf: cf}
}

func (f *toiFilter) has(c Coord) bool {
	if f.cf != nil && !f.cf.Lookup(coordBytes(c)) {
		return false
	}
	return f.set.Has(c)
}

func coordBytes(c Coord) []byte {
	b := make([]byte, 8)
	v := uint64(c)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	if p < 1024 {
		p = 1024
	}
	return p
}

// ExplodeAndIntersect: given expired coords E and a tiles-of-interest
// set T, yield every coord that is a member of T and is either in E or
// an ancestor (at zoom >= untilZoom) of some member of E. Each
// candidate is tested against T at most once per round; termination is
// bounded by (max zoom - untilZoom + 1) rounds.
func ExplodeAndIntersect(expired Set, toi Set, untilZoom uint32) (<-chan Coord, *IntersectMetrics) {
	metrics := &IntersectMetrics{ToiSize: len(toi)}
	out := make(chan Coord)
	filter := newToiFilter(toi)

	go func() {
		defer close(out)
		seen := make(Set, len(expired))
		current := make(Set, len(expired))
		for c := range expired {
			current[c] = struct{}{}
		}

		for len(current) > 0 {
			next := make(Set)
			for c := range current {
				metrics.Candidate++
				if filter.has(c) {
					metrics.Hits++
					if _, dup := seen[c]; !dup {
						seen[c] = struct{}{}
						out <- c
					}
				} else {
					metrics.Misses++
				}
				if c.Zoom() > untilZoom {
					p := c.Parent()
					next[p] = struct{}{}
				}
			}
			current = next
		}
	}()

	return out, metrics
}
