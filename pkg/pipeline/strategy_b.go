package pipeline

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/latticeforge/fpengine/pkg/fingerprint"
	"github.com/latticeforge/fpengine/pkg/fusion"
	"github.com/latticeforge/fpengine/pkg/scoring"
)

// StrategyB is its default: query every enabled view's index one after
// another (sequentially, in ViewTable order) with breadth k·10, apply per-view direction rules via the
// Scoring Kernel, feed all rankings to the Fusion Engine with the active
// profile, and return top-k.
func StrategyB(ctx context.Context, idx Indexes, q Query) (Response, error) {
	breadth := q.TopK * breadthMultiplier
	if breadth <= 0 {
		breadth = breadthMultiplier
	}
	degraded := degradedSet()
	input := fusion.Input{}
	liveDocs := int64(0)
	if idx.LiveDocs != nil {
		liveDocs = idx.LiveDocs()
	}

	// Walk ViewTable's fixed order rather than ranging over q.Weights
	// directly: map iteration order is randomized per run, and the
	// token-sequence case below reads whatever candidate ids other views
	// have already contributed to input, so an unordered walk would make
	// identical queries restrict the token search to a different (or
	// empty) candidate set from call to call.
	for _, spec := range fingerprint.ViewTable {
		view := spec.ID
		weight, ok := q.Weights[view]
		if !ok || weight == 0 {
			continue
		}
		switch spec.Kind {
		case fingerprint.KindDense:
			if vec, ok := q.DenseVectors[view]; ok {
				ranking := denseRanking(ctx, view, idx.Dense[view], vec, breadth, degraded)
				input[view] = directionalRanking(ctx, idx, view, vec, q.Direction, ranking)
			}
		case fingerprint.KindSparse:
			if terms, ok := q.SparseTerms[view]; ok {
				input[view] = sparseRanking(ctx, view, idx.Sparse[view], terms, breadth, liveDocs, q.Excluded, degraded)
			}
		case fingerprint.KindTokenSequence:
			if len(q.Tokens) > 0 && idx.Token != nil {
				ids := candidateIDs(input)
				results, err := idx.Token.Search(ctx, q.Tokens, ids, breadth)
				if err != nil {
					degraded[view] = struct{}{}
					continue
				}
				ranking := make([]fusion.Ranked, 0, len(results))
				for _, r := range results {
					ranking = append(ranking, fusion.Ranked{ID: r.ID, Similarity: r.Score})
				}
				input[view] = ranking
			} else {
				degraded[view] = struct{}{}
			}
		}
	}

	fused := fusion.Fuse(input, q.Weights)
	results, err := rescoreAndAssemble(ctx, idx, q, fused, input)
	if err != nil {
		return Response{}, err
	}
	return Response{Results: topK(results, q.TopK), DegradedViews: sortedDegraded(degraded)}, nil
}

// directionalRanking corrects an asymmetric view's recall-stage ranking
// before it reaches fusion. e5/e8 are indexed by their cause/source half
// only (Indexes' doc comment), so the raw NSW neighbor order always
// reflects a cause/source-half comparison regardless of which direction the
// caller asked for; left alone, direction would only ever change the
// displayed breakdown entry and never the fused rank or score, which would
// make search_causes and search_effects return identically-ordered results
// whenever the query's own cause and effect text coincide. Refetching each
// recalled candidate and rescoring it through the same direction-aware
// kernel strategy_c.go's stage 3 already uses keeps the cause/source index
// as a recall aid while letting direction actually drive the order.
func directionalRanking(ctx context.Context, idx Indexes, view fingerprint.ViewID, queryVec []float32, direction scoring.Direction, raw []fusion.Ranked) []fusion.Ranked {
	if (view != fingerprint.E5 && view != fingerprint.E8) || idx.Fetch == nil || len(raw) == 0 {
		return raw
	}
	out := make([]fusion.Ranked, 0, len(raw))
	for _, r := range raw {
		doc, err := idx.Fetch(ctx, r.ID)
		if err != nil {
			continue
		}
		var score float64
		if view == fingerprint.E5 {
			score = scoring.Causal(queryVec, doc, direction)
		} else {
			score = scoring.Graph(queryVec, doc, direction)
		}
		out = append(out, fusion.Ranked{ID: r.ID, Similarity: score})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	return out
}

// sparseScoreLookup indexes a per-view ranking by id so rescoreAndAssemble
// can fold e6/e13's BM25 scores (unavailable from breakdown, which only
// sees dense query vectors) back into each candidate's breakdown.
func sparseScoreLookup(ranking []fusion.Ranked) map[uuid.UUID]float64 {
	out := make(map[uuid.UUID]float64, len(ranking))
	for _, r := range ranking {
		out[r.ID] = r.Similarity
	}
	return out
}

// rescoreAndAssemble fetches the full fingerprint for each fused candidate
// and computes its authoritative per-view breakdown, since asymmetric views
// and the intent boost both need more than the single recall vector a dense
// index search returns.
func rescoreAndAssemble(ctx context.Context, idx Indexes, q Query, fused []fusion.Scored, input fusion.Input) ([]Result, error) {
	if idx.Fetch == nil {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(fused))
	for _, f := range fused {
		ids = append(ids, f.ID)
	}
	docs, err := fetchCandidates(ctx, idx.Fetch, ids)
	if err != nil {
		return nil, err
	}
	e6Scores := sparseScoreLookup(input[fingerprint.E6])
	e13Scores := sparseScoreLookup(input[fingerprint.E13])

	out := make([]Result, 0, len(fused))
	for _, f := range fused {
		doc, ok := docs[f.ID]
		if !ok {
			continue
		}
		b, intent := breakdown(q, doc)
		if s, ok := e6Scores[f.ID]; ok {
			withSparseScores(b, fingerprint.E6, s, true)
		}
		if s, ok := e13Scores[f.ID]; ok {
			withSparseScores(b, fingerprint.E13, s, true)
		}
		out = append(out, assemble(f.ID, f.Score, b, intent))
	}
	return out, nil
}
