package scoring

import "github.com/latticeforge/fpengine/pkg/fingerprint"

// Breakdown is the full per-view score vector attached to a result, keyed
// by ViewID rather than a fixed-size array so callers that only
// populate a subset of views (profiles that exclude some, or degraded
// views) don't need to zero-fill entries they never computed.
type Breakdown map[fingerprint.ViewID]float64

// Ordered returns the breakdown's values walked in fingerprint.ViewTable's
// fixed order, with 0 for any view not present — the positionally stable
// order required of anything serialized.
func (b Breakdown) Ordered() []float64 {
	out := make([]float64, len(fingerprint.ViewTable))
	for i, v := range fingerprint.ViewTable {
		out[i] = b[v.ID]
	}
	return out
}

// Dominant returns the view with the highest score in the breakdown, and
// whether the breakdown was non-empty.
func (b Breakdown) Dominant() (fingerprint.ViewID, bool) {
	var best fingerprint.ViewID
	bestScore := -1.0
	found := false
	for _, v := range fingerprint.ViewTable {
		s, ok := b[v.ID]
		if !ok {
			continue
		}
		if !found || s > bestScore {
			best, bestScore, found = v.ID, s, true
		}
	}
	return best, found
}
