package pipeline

import (
	"github.com/google/uuid"

	"github.com/latticeforge/fpengine/pkg/fingerprint"
	"github.com/latticeforge/fpengine/pkg/index/token"
	"github.com/latticeforge/fpengine/pkg/scoring"
)

// breakdown computes the authoritative 13-entry per-view score vector for
// one candidate fingerprint against query. The Scoring Kernel is the
// single place this happens, so every result can carry the full
// 13-entry per-view score vector.
func breakdown(query Query, doc *fingerprint.Fingerprint) (scoring.Breakdown, scoring.IntentResult) {
	b := make(scoring.Breakdown, len(fingerprint.ViewTable))
	for _, spec := range fingerprint.ViewTable {
		qv, ok := query.DenseVectors[spec.ID]
		switch spec.ID {
		case fingerprint.E5:
			if ok {
				b[spec.ID] = scoring.Causal(qv, doc, query.Direction)
			}
		case fingerprint.E8:
			if ok {
				b[spec.ID] = scoring.Graph(qv, doc, query.Direction)
			}
		case fingerprint.E6, fingerprint.E13:
			// Sparse views are scored by BM25 during recall, not cosine;
			// the breakdown entry is filled in by the caller from the
			// recall-stage Ranked.Similarity for any view actually
			// queried, since this function only sees dense query vectors.
		case fingerprint.E12:
			if len(query.Tokens) > 0 && len(doc.E12) > 0 {
				b[spec.ID] = token.MaxSim(query.Tokens, doc.E12)
			}
		default:
			if ok {
				dv := doc.Dense(spec.ID, "")
				if len(dv) > 0 {
					b[spec.ID] = scoring.Plain(qv, dv)
				}
			}
		}
	}

	var intent scoring.IntentResult
	if qe1, ok := query.DenseVectors[fingerprint.E1]; ok {
		if qe10, ok10 := query.DenseVectors[fingerprint.E10]; ok10 {
			intent = scoring.Intent(qe1, doc.E1, qe10, doc.E10)
			if intent.BoostFired {
				// The e10 breakdown slot carries the post-boost e1 value
				// too, since typed-edge derivation's intent_aligned check
				// reads scores[E10], not e1's slot. Fusion still ranks e10
				// on its own similarity; this map never feeds it.
				b[fingerprint.E1] = intent.Boosted
				b[fingerprint.E10] = intent.Boosted
			}
		}
	}
	return b, intent
}

// withSparseScores folds BM25 recall scores (computed per-candidate during
// the sparse recall stage, since breakdown has no access to the inverted
// index) into an already-computed breakdown, squashing the unbounded BM25
// scale into [0,1] via bm25/(bm25+1) so it reports on the same convention
// as every cosine-based entry.
func withSparseScores(b scoring.Breakdown, view fingerprint.ViewID, bm25Score float64, present bool) {
	if !present {
		return
	}
	b[view] = bm25Score / (bm25Score + 1)
}

// scoringSingleView builds a one-entry breakdown, used by Strategy A where
// no other view was ever queried — there is nothing to report a dominant
// view *over*, but the shape stays uniform with Strategy B/C's results.
func scoringSingleView(view fingerprint.ViewID, score float64) scoring.Breakdown {
	return scoring.Breakdown{view: score}
}

// assemble turns a fused score plus breakdown into the caller-facing Result.
func assemble(id uuid.UUID, score float64, b scoring.Breakdown, intent scoring.IntentResult) Result {
	dominant, _ := b.Dominant()
	r := Result{
		ID:            id,
		Similarity:    score,
		DominantView:  dominant,
		PerViewScores: b,
	}
	if intent.BoostFired {
		r.IntentBoostFired = true
		r.PreBoostE1 = intent.E1Raw
		r.PostBoostE1 = intent.Boosted
	}
	return r
}
