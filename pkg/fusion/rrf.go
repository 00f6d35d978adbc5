// Package fusion combines per-view rankings into one fused ranking via
// weighted reciprocal rank fusion. Ranks, not similarity
// magnitudes, drive the result — the formula is scale-invariant, so a view
// whose raw similarities run low (e.g. BM25 versus cosine) still
// contributes on equal footing once weighted by rank.
package fusion

import (
	"sort"

	"github.com/google/uuid"

	"github.com/latticeforge/fpengine/pkg/fingerprint"
)

// K is the RRF rank-dampening constant.
const K = 60

// varianceEpsilon is the "small epsilon" of its degenerate-weight
// suppression: a view whose returned similarities are this close to
// constant is providing no discriminating signal for this query, so its
// effective weight is demoted rather than trusted at full strength.
const varianceEpsilon = 1e-6

// Ranked is one (id, similarity) entry in a per-view ranking, ordered by
// descending similarity — the shape every dense/sparse/token index search
// returns.
type Ranked struct {
	ID         uuid.UUID
	Similarity float64
}

// Input is the set of per-view rankings to fuse, keyed by view. A view
// absent from Input (failed index, or excluded by the profile) simply
// contributes nothing to every document — it is not treated as present
// with zero candidates, and its weight is neither redistributed nor does it
// shrink any denominator (""Keep views with zero contribution *in*
// the ranking formula with rank = infinity... Do not shrink the
// denominator").
type Input map[fingerprint.ViewID][]Ranked

// Scored is one document's fused score. It carries no per-view breakdown;
// callers needing provenance compute one themselves (pkg/pipeline does so
// from each candidate's fetched fingerprint).
type Scored struct {
	ID    uuid.UUID
	Score float64
}

// Fuse runs weighted reciprocal rank fusion over input using the given
// per-view weights, applying degenerate-weight suppression first. Returns
// documents ordered by descending fused score.
//
// The raw RRF sum (weight/(K+rank+1) per contributing view) is capped at a
// few hundredths by construction — K=60 dominates the denominator at any
// plausible rank — which would satisfy the [0,1] score-range invariant
// while making the number meaningless on its own (a clearly-dominant match
// should read back at a similarity comparable to a single-view top hit).
// Dividing by the score a document would get if it ranked first in every
// weighted view in the profile rescales the same ordering onto a scale
// where 1.0 means exactly that, without changing which document wins. The
// denominator is the full profile weight total, not just the weight of
// views actually present in input: a degraded, absent, or excluded view
// must shrink the numerator (it contributes no rank-1 term to any
// document) without also shrinking the denominator, or every remaining
// document's score inflates merely because a view dropped out.
func Fuse(input Input, weights map[fingerprint.ViewID]float64) []Scored {
	effective := effectiveWeights(input, weights)

	var totalWeight float64
	for _, w := range effective {
		if w != 0 {
			totalWeight += w
		}
	}
	cap := totalWeight / float64(K+1)
	if cap <= 0 {
		cap = 1
	}

	totals := make(map[uuid.UUID]float64)
	for view, ranking := range input {
		w := effective[view]
		if w == 0 {
			continue
		}
		for rank, r := range ranking {
			totals[r.ID] += w / float64(K+rank+1)
		}
	}

	out := make([]Scored, 0, len(totals))
	for id, score := range totals {
		out = append(out, Scored{ID: id, Score: score / cap})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return lessID(out[i].ID, out[j].ID) // stable tie-break, not insertion order
	})
	return out
}

// effectiveWeights applies its degenerate-weight suppression: a
// view whose per-query similarity distribution has near-zero sample
// variance has its weight multiplied by 0.25 before fusion.
func effectiveWeights(input Input, weights map[fingerprint.ViewID]float64) map[fingerprint.ViewID]float64 {
	out := make(map[fingerprint.ViewID]float64, len(weights))
	for view, w := range weights {
		ranking, ok := input[view]
		if !ok || w == 0 {
			out[view] = w
			continue
		}
		if len(ranking) < 2 {
			// sampleVariance is undefined below two samples; a single
			// candidate is never degenerate, it's just unopposed.
			out[view] = w
			continue
		}
		scores := make([]float64, len(ranking))
		for i, r := range ranking {
			scores[i] = r.Similarity
		}
		if sampleVariance(scores) < varianceEpsilon {
			out[view] = w * 0.25
		} else {
			out[view] = w
		}
	}
	return out
}

func lessID(a, b uuid.UUID) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
