package pipeline

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/latticeforge/fpengine/pkg/fingerprint"
	"github.com/latticeforge/fpengine/pkg/fusion"
	"github.com/latticeforge/fpengine/pkg/scoring"
)

// intentFilterThreshold is stage 4's "optional intent-alignment filter": a
// candidate whose e10 alignment against the query falls below this is
// dropped rather than merely down-weighted, since stage 4 is explicitly a
// filter, not another scoring pass.
const intentFilterThreshold = 0.2

// survivorScore caches a filtered candidate's breakdown and fused score
// between stage 3/4 and stage 5, so the final token rerank doesn't need to
// recompute the other twelve views' scores.
type survivorScore struct {
	breakdown scoring.Breakdown
	intent    scoring.IntentResult
	fused     float64
}

// StrategyC is its five-stage pipeline: BM25 recall over e13, a
// cheap matryoshka-e1 dense filter, full multi-view fusion rerank, an
// optional intent-alignment filter, and a final token-level MaxSim rerank.
func StrategyC(ctx context.Context, idx Indexes, q Query, enableIntentFilter bool) (Response, error) {
	degraded := degradedSet()
	liveDocs := int64(0)
	if idx.LiveDocs != nil {
		liveDocs = idx.LiveDocs()
	}

	// Stage 1: recall.
	recallTerms := q.SparseTerms[fingerprint.E13]
	recallRanking := sparseRanking(ctx, fingerprint.E13, idx.Sparse[fingerprint.E13], recallTerms, recallSize, liveDocs, q.Excluded, degraded)
	if len(recallRanking) == 0 {
		return Response{DegradedViews: sortedDegraded(degraded)}, nil
	}
	recallSet := make(map[uuid.UUID]struct{}, len(recallRanking))
	recallScores := make(map[uuid.UUID]float64, len(recallRanking))
	for _, r := range recallRanking {
		recallSet[r.ID] = struct{}{}
		recallScores[r.ID] = r.Similarity
	}

	// Stage 2: matryoshka filter, intersected with stage 1's recall set.
	var filtered []uuid.UUID
	if idx.Matryoshka != nil {
		if qe1, ok := q.DenseVectors[fingerprint.E1]; ok {
			neighbors, err := idx.Matryoshka.Candidates(ctx, qe1, recallSize)
			if err != nil {
				degraded[fingerprint.E1] = struct{}{}
			} else {
				for _, n := range neighbors {
					if _, ok := recallSet[n.ID]; ok {
						filtered = append(filtered, n.ID)
						if len(filtered) >= filterSize {
							break
						}
					}
				}
			}
		}
	}
	if len(filtered) == 0 {
		// Matryoshka unavailable or nothing intersected: fall back to the
		// raw recall order, still capped at filterSize.
		for _, r := range recallRanking {
			filtered = append(filtered, r.ID)
			if len(filtered) >= filterSize {
				break
			}
		}
	}

	// Stage 3: multi-view fusion rerank over the filtered candidates.
	docs, err := fetchCandidates(ctx, idx.Fetch, filtered)
	if err != nil {
		return Response{}, err
	}
	input := fusion.Input{}
	for view, weight := range q.Weights {
		if weight == 0 {
			continue
		}
		if view == fingerprint.E13 {
			input[view] = filteredRecallRanking(filtered, recallRanking)
			continue
		}
		input[view] = rankByComputedScore(view, q, docs, filtered)
	}
	fused := fusion.Fuse(input, q.Weights)
	if len(fused) > rerankSize {
		fused = fused[:rerankSize]
	}

	// Stage 4: optional intent-alignment filter.
	survivors := make([]uuid.UUID, 0, len(fused))
	scores := make(map[uuid.UUID]survivorScore, len(fused))
	for _, f := range fused {
		doc, ok := docs[f.ID]
		if !ok {
			continue
		}
		b, intent := breakdown(q, doc)
		if score, ok := recallScores[f.ID]; ok {
			withSparseScores(b, fingerprint.E13, score, true)
		}
		if enableIntentFilter && intent.E10Raw > 0 && intent.E10Raw < intentFilterThreshold {
			continue
		}
		survivors = append(survivors, f.ID)
		scores[f.ID] = survivorScore{breakdown: b, intent: intent, fused: f.Score}
	}

	// Stage 5: final token-level MaxSim rerank.
	var results []Result
	if len(q.Tokens) > 0 && idx.Token != nil {
		tokenResults, terr := idx.Token.Search(ctx, q.Tokens, survivors, q.TopK)
		if terr != nil {
			degraded[fingerprint.E12] = struct{}{}
			results = assembleSurvivors(survivors, scores)
		} else {
			for _, tr := range tokenResults {
				sc := scores[tr.ID]
				sc.breakdown[fingerprint.E12] = tr.Score
				results = append(results, assemble(tr.ID, tr.Score, sc.breakdown, sc.intent))
			}
		}
	} else {
		degraded[fingerprint.E12] = struct{}{}
		results = assembleSurvivors(survivors, scores)
	}

	return Response{Results: topK(results, q.TopK), DegradedViews: sortedDegraded(degraded)}, nil
}

// rankByComputedScore scores every filtered candidate against view directly
// (rather than via an ANN search) since stage 3 already works over a small,
// known candidate set — exact scoring is cheap at this size and avoids a
// second round of approximate search.
func rankByComputedScore(view fingerprint.ViewID, q Query, docs map[uuid.UUID]*fingerprint.Fingerprint, ids []uuid.UUID) []fusion.Ranked {
	out := make([]fusion.Ranked, 0, len(ids))
	for _, id := range ids {
		doc, ok := docs[id]
		if !ok {
			continue
		}
		score := scoreOneView(view, q, doc)
		out = append(out, fusion.Ranked{ID: id, Similarity: score})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	return out
}

// filteredRecallRanking restricts stage 1's e13 recall ranking (already
// sorted by BM25 score) down to the stage-2 survivors, preserving order —
// stage 3 reuses it directly instead of rescoring e13 a second time.
func filteredRecallRanking(filtered []uuid.UUID, recallRanking []fusion.Ranked) []fusion.Ranked {
	keep := make(map[uuid.UUID]struct{}, len(filtered))
	for _, id := range filtered {
		keep[id] = struct{}{}
	}
	out := make([]fusion.Ranked, 0, len(filtered))
	for _, r := range recallRanking {
		if _, ok := keep[r.ID]; ok {
			out = append(out, r)
		}
	}
	return out
}

func scoreOneView(view fingerprint.ViewID, q Query, doc *fingerprint.Fingerprint) float64 {
	switch view {
	case fingerprint.E5:
		if qv, ok := q.DenseVectors[view]; ok {
			return scoring.Causal(qv, doc, q.Direction)
		}
	case fingerprint.E8:
		if qv, ok := q.DenseVectors[view]; ok {
			return scoring.Graph(qv, doc, q.Direction)
		}
	case fingerprint.E6, fingerprint.E13:
		return 0 // sparse views drive recall, not stage-3 rescoring
	case fingerprint.E12:
		if len(q.Tokens) > 0 {
			return 0 // scored exclusively in stage 5
		}
	default:
		if qv, ok := q.DenseVectors[view]; ok {
			dv := doc.Dense(view, "")
			if len(dv) > 0 {
				return scoring.Plain(qv, dv)
			}
		}
	}
	return 0
}

func assembleSurvivors(ids []uuid.UUID, scores map[uuid.UUID]survivorScore) []Result {
	out := make([]Result, 0, len(ids))
	for _, id := range ids {
		sc, ok := scores[id]
		if !ok {
			continue
		}
		out = append(out, assemble(id, sc.fused, sc.breakdown, sc.intent))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	return out
}
