package pipeline

import (
	"context"

	"github.com/latticeforge/fpengine/pkg/fingerprint"
)

// StrategyA is its "foundation only" minimum-latency path: search
// the e1 index with the query e1 vector and return top-k, skipping every
// other view entirely (no fusion, no fetch-and-rescroll).
func StrategyA(ctx context.Context, idx Indexes, q Query) (Response, error) {
	degraded := degradedSet()
	ranking := denseRanking(ctx, fingerprint.E1, idx.Dense[fingerprint.E1], q.DenseVectors[fingerprint.E1], q.TopK, degraded)

	results := make([]Result, 0, len(ranking))
	for _, r := range ranking {
		b := scoringSingleView(fingerprint.E1, r.Similarity)
		results = append(results, Result{
			ID:            r.ID,
			Similarity:    r.Similarity,
			DominantView:  fingerprint.E1,
			PerViewScores: b,
		})
	}
	return Response{Results: topK(results, q.TopK), DegradedViews: sortedDegraded(degraded)}, nil
}
