// Package pipeline implements the three retrieval strategies:
// foundation-only, multi-view fusion, and the five-stage recall/filter/
// rerank pipeline. All three share one output contract (ranked results with
// a per-view score breakdown; Strategy A's holds e1 only) and one failure
// posture: a view whose
// index is unavailable is recorded in DegradedViews rather than silently
// dropped from the ranking math.
package pipeline

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/latticeforge/fpengine/pkg/fingerprint"
	"github.com/latticeforge/fpengine/pkg/fpengine"
	"github.com/latticeforge/fpengine/pkg/fusion"
	"github.com/latticeforge/fpengine/pkg/index/dense"
	"github.com/latticeforge/fpengine/pkg/index/sparse"
	"github.com/latticeforge/fpengine/pkg/index/token"
	"github.com/latticeforge/fpengine/pkg/scoring"
)

// breadthMultiplier is Strategy B's "breadth k·10".
const breadthMultiplier = 10

// recallSize/filterSize/rerankSize are Strategy C's five-stage breadths
// (""~10 000 candidates", "~1 000", "~100").
const (
	recallSize = 10000
	filterSize = 1000
	rerankSize = 100
)

// DenseSearcher is the capability pkg/index/dense.NSWIndex and
// PostgresMirror both satisfy.
type DenseSearcher interface {
	Search(ctx context.Context, query []float32, k int) ([]dense.Neighbor, error)
}

// SparseSearcher is the capability pkg/index/sparse.Index satisfies.
type SparseSearcher interface {
	Search(ctx context.Context, query []fingerprint.SparsePair, k int, liveDocs int64, excluded map[uuid.UUID]struct{}) ([]sparse.Result, error)
}

// TokenSearcher is the capability pkg/index/token.Index satisfies.
type TokenSearcher interface {
	Search(ctx context.Context, queryTokens [][]float32, ids []uuid.UUID, k int) ([]token.Result, error)
}

// MatryoshkaSearcher is the capability pkg/index/dense.MatryoshkaIndex
// satisfies — Strategy C's stage-2 cheap dense filter.
type MatryoshkaSearcher interface {
	Candidates(ctx context.Context, queryE1 []float32, k int) ([]dense.Neighbor, error)
}

// FetchFn loads a candidate's full fingerprint so the pipeline can compute
// an authoritative 13-entry breakdown against it (asymmetric views need
// both stored halves, which no single-vector ANN index carries).
type FetchFn func(ctx context.Context, id uuid.UUID) (*fingerprint.Fingerprint, error)

// Indexes bundles every per-view index the pipeline can query. A view
// missing from Dense/Sparse, or a nil Token, is treated as unavailable for
// this call and reported via DegradedViews rather than failing the whole
// search (its failure mode). For the two asymmetric views (e5, e8),
// Dense is keyed by the "cause"/"source" half only — the half most callers
// recall against by default — and the authoritative score for both halves
// is always recomputed from the fetched fingerprint afterward, so indexing
// only one half per asymmetric view costs recall breadth, not correctness.
type Indexes struct {
	Dense      map[fingerprint.ViewID]DenseSearcher
	Sparse     map[fingerprint.ViewID]SparseSearcher
	Token      TokenSearcher
	Matryoshka MatryoshkaSearcher
	Fetch      FetchFn
	LiveDocs   func() int64
}

// Query is one search request's view vectors plus ranking parameters.
type Query struct {
	DenseVectors map[fingerprint.ViewID][]float32
	SparseTerms  map[fingerprint.ViewID][]fingerprint.SparsePair
	Tokens       [][]float32
	TopK         int
	Direction    scoring.Direction
	Weights      map[fingerprint.ViewID]float64
	Excluded     map[uuid.UUID]struct{}
}

// Result is one ranked hit, carrying full per-result provenance: the
// fused similarity, the dominant contributing view, the per-view
// breakdown (e1 only under Strategy A), and (when it fired) the pre/post multiplicative
// intent boost on e1.
type Result struct {
	ID               uuid.UUID
	Similarity       float64
	DominantView     fingerprint.ViewID
	PerViewScores    scoring.Breakdown
	IntentBoostFired bool
	PreBoostE1       float64
	PostBoostE1      float64
}

// Response is the shared output contract of all three strategies.
type Response struct {
	Results       []Result
	DegradedViews []fingerprint.ViewID
}

func degradedSet(views ...fingerprint.ViewID) map[fingerprint.ViewID]struct{} {
	out := make(map[fingerprint.ViewID]struct{}, len(views))
	for _, v := range views {
		out[v] = struct{}{}
	}
	return out
}

func sortedDegraded(m map[fingerprint.ViewID]struct{}) []fingerprint.ViewID {
	out := make([]fingerprint.ViewID, 0, len(m))
	for v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// denseRanking runs a dense search for one view, recording the view as
// degraded (rather than failing the call) on error or a missing searcher.
func denseRanking(ctx context.Context, view fingerprint.ViewID, searcher DenseSearcher, query []float32, k int, degraded map[fingerprint.ViewID]struct{}) []fusion.Ranked {
	if searcher == nil || len(query) == 0 {
		degraded[view] = struct{}{}
		return nil
	}
	neighbors, err := searcher.Search(ctx, query, k)
	if err != nil {
		degraded[view] = struct{}{}
		return nil
	}
	out := make([]fusion.Ranked, 0, len(neighbors))
	for _, n := range neighbors {
		out = append(out, fusion.Ranked{ID: n.ID, Similarity: n.Score})
	}
	return out
}

func sparseRanking(ctx context.Context, view fingerprint.ViewID, searcher SparseSearcher, terms []fingerprint.SparsePair, k int, liveDocs int64, excluded map[uuid.UUID]struct{}, degraded map[fingerprint.ViewID]struct{}) []fusion.Ranked {
	if searcher == nil || len(terms) == 0 {
		degraded[view] = struct{}{}
		return nil
	}
	results, err := searcher.Search(ctx, terms, k, liveDocs, excluded)
	if err != nil {
		degraded[view] = struct{}{}
		return nil
	}
	out := make([]fusion.Ranked, 0, len(results))
	for _, r := range results {
		out = append(out, fusion.Ranked{ID: r.ID, Similarity: r.Score})
	}
	return out
}

// candidateIDs collects the union of ids appearing across every per-view
// ranking, used once the pipeline needs to fetch full fingerprints for
// breakdown computation.
func candidateIDs(input fusion.Input) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	var out []uuid.UUID
	for _, ranking := range input {
		for _, r := range ranking {
			if _, ok := seen[r.ID]; !ok {
				seen[r.ID] = struct{}{}
				out = append(out, r.ID)
			}
		}
	}
	return out
}

// fetchCandidates loads fingerprints for ids, skipping (not failing on) ids
// the fetch can't resolve — a candidate surfaced by an index but since
// deleted from the store, which the store layer's own consistency
// invariants otherwise prevent from persisting for long.
func fetchCandidates(ctx context.Context, fetch FetchFn, ids []uuid.UUID) (map[uuid.UUID]*fingerprint.Fingerprint, error) {
	out := make(map[uuid.UUID]*fingerprint.Fingerprint, len(ids))
	for _, id := range ids {
		fp, err := fetch(ctx, id)
		if err != nil {
			if fpengine.KindOf(err) == fpengine.KindNotFound {
				continue
			}
			return nil, err
		}
		out[id] = fp
	}
	return out, nil
}

// topK trims results to the top k by descending similarity. k=0 yields an
// empty slice, not the whole set (""top_k = 0 -> empty result, not
// an error"); a negative k (shouldn't occur once validated upstream) is
// treated as unbounded.
func topK(results []Result, k int) []Result {
	sort.Slice(results, func(i, j int) bool { return results[i].Similarity > results[j].Similarity })
	if k < 0 {
		return results
	}
	if len(results) > k {
		results = results[:k]
	}
	return results
}
