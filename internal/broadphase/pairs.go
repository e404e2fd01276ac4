package broadphase

import "sort"

// Pair is an unordered candidate pair of caller keys, stored with A < B so
// the same pair is never emitted twice.
type Pair struct {
	A, B int
}

// Pairs re-queries the tree for every proxy that moved since the last call
// and returns the candidate pairs whose fat bounds overlap, sorted by
// (A, B). The sorted order keeps downstream floating-point accumulation
// reproducible regardless of tree shape.
//
// A pair between two moved proxies would be found from both sides; the
// moved flag on the partner suppresses the duplicate cheaply and the final
// sort-compact pass removes any that remain.
func (t *Tree) Pairs(moved []int32) []Pair {
	var pairs []Pair
	for _, id := range moved {
		self := id
		t.Query(t.nodes[id].box, func(other int32) {
			if other == self {
				return
			}
			// The partner will (or did) report this pair itself.
			if t.nodes[other].moved && other < self {
				return
			}
			a, b := t.nodes[self].data, t.nodes[other].data
			if a > b {
				a, b = b, a
			}
			pairs = append(pairs, Pair{A: a, B: b})
		})
	}
	for _, id := range moved {
		t.nodes[id].moved = false
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].A != pairs[j].A {
			return pairs[i].A < pairs[j].A
		}
		return pairs[i].B < pairs[j].B
	})
	// Compact duplicates in place.
	out := pairs[:0]
	for i, p := range pairs {
		if i == 0 || p != pairs[i-1] {
			out = append(out, p)
		}
	}
	return out
}
