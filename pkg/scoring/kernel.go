// Package scoring is the single place per-view similarities are computed,
// clamped into [0,1], and where asymmetric direction boosts are applied
//. Pipeline rerank, provenance breakdowns and typed-edge derivation all
// call through Plain, Causal, Graph and Intent so they can never disagree
// on what a view's similarity means; per-view recall searches rank by the
// dense indexes' own raw cosine scores instead.
package scoring

import (
	"github.com/latticeforge/fpengine/pkg/fingerprint"
	"github.com/latticeforge/fpengine/pkg/index/dense"
)

// Direction selects which half of an asymmetric view a query compares
// against.
type Direction string

const (
	DirectionAuto   Direction = "auto"
	DirectionCause  Direction = "cause"
	DirectionEffect Direction = "effect"
	DirectionSource Direction = "source"
	DirectionTarget Direction = "target"
)

// Boost multipliers for asymmetric views (""multiply by 1.2" /
// "multiply by 0.8").
const (
	causeBoost  = 1.2
	effectBoost = 0.8
)

// clampUnit clamps a raw similarity into [0,1], the single point in this
// package where this happens.
func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// cosineUnit converts raw cosine similarity ([-1,1]) into the [0,1]
// convention every scorer in this package shares (""(raw+1)/2"); the
// dense indexes themselves report raw cosine.
func cosineUnit(a, b []float32) float64 {
	raw := dense.Cosine(a, b)
	return clampUnit((raw + 1) / 2)
}

// Plain scores a symmetric dense view (e1, e2, e3, e4, e7, e9, e11) with
// ordinary normalized cosine.
func Plain(query, doc []float32) float64 {
	return cosineUnit(query, doc)
}

// Causal scores e5: a query asking for causes matches against a document's
// effect half (the document's effect names something like the query, and
// the document itself is the candidate cause), while a query asking for
// effects matches against the document's cause half, symmetrically; auto
// computes both and takes the max. queryE5 is the query's own (symmetric)
// e5 vector — the query has no cause/effect split of its own, only the
// stored fingerprint does.
func Causal(queryE5 []float32, doc *fingerprint.Fingerprint, direction Direction) float64 {
	switch direction {
	case DirectionEffect:
		return clampUnit(cosineUnit(queryE5, doc.E5AsCause) * effectBoost)
	case DirectionCause:
		return clampUnit(cosineUnit(queryE5, doc.E5AsEffect) * causeBoost)
	default:
		cause := clampUnit(cosineUnit(queryE5, doc.E5AsEffect) * causeBoost)
		effect := clampUnit(cosineUnit(queryE5, doc.E5AsCause) * effectBoost)
		if cause > effect {
			return cause
		}
		return effect
	}
}

// Graph scores e8, analogous to Causal with source/target
// halves and the same 1.2/0.8 multipliers: a query asking for a relation's
// source matches against the document's target half, and vice versa.
func Graph(queryE8 []float32, doc *fingerprint.Fingerprint, direction Direction) float64 {
	switch direction {
	case DirectionTarget:
		return clampUnit(cosineUnit(queryE8, doc.E8AsSource) * effectBoost)
	case DirectionSource:
		return clampUnit(cosineUnit(queryE8, doc.E8AsTarget) * causeBoost)
	default:
		source := clampUnit(cosineUnit(queryE8, doc.E8AsTarget) * causeBoost)
		target := clampUnit(cosineUnit(queryE8, doc.E8AsSource) * effectBoost)
		if source > target {
			return source
		}
		return target
	}
}
