// Package token stores per-memory ordered token vectors (e12) and answers
// MaxSim late-interaction queries. Grounded the same way as
// pkg/index/dense and pkg/index/sparse: no late-interaction / ColBERT-style
// library appears anywhere in the retrieval pack, so the index is a plain
// in-memory map guarded by a RWMutex, consistent with the rest of the index
// family's hand-written posture.
package token

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/latticeforge/fpengine/pkg/fpengine"
)

// Index stores each memory's ordered per-token vectors and computes MaxSim
// against a query's own token sequence.
type Index struct {
	mu     sync.RWMutex
	tokens map[uuid.UUID][][]float32
	broken bool
}

// NewIndex constructs an empty token index.
func NewIndex() *Index {
	return &Index{tokens: make(map[uuid.UUID][][]float32)}
}

// Add stores id's ordered token sequence, replacing any prior entry.
func (idx *Index) Add(_ context.Context, id uuid.UUID, tokens [][]float32) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.broken {
		return fpengine.New(fpengine.KindIndexUnavailable, "token index is in a broken state and must be rebuilt")
	}
	cp := make([][]float32, len(tokens))
	copy(cp, tokens)
	idx.tokens[id] = cp
	return nil
}

// Remove deletes id's token sequence.
func (idx *Index) Remove(_ context.Context, id uuid.UUID) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.tokens, id)
	return nil
}

// Result is one scored candidate from a MaxSim query.
type Result struct {
	ID    uuid.UUID
	Score float64
}

// Search computes MaxSim(queryTokens, doc) for every candidate id in ids
// (Strategy C calls this over the survivors of its fusion rerank stage, at
// most ~100; Strategy B over the union of ids its other views recalled;
// neither passes the whole corpus) and returns the top k.
func (idx *Index) Search(_ context.Context, queryTokens [][]float32, ids []uuid.UUID, k int) ([]Result, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.broken {
		return nil, fpengine.New(fpengine.KindIndexUnavailable, "token index is in a broken state and must be rebuilt")
	}
	out := make([]Result, 0, len(ids))
	for _, id := range ids {
		doc, ok := idx.tokens[id]
		if !ok {
			continue
		}
		out = append(out, Result{ID: id, Score: MaxSim(queryTokens, doc)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// MaxSim computes Σ_i max_j (q_i · d_j) over unit-norm token vectors,
// normalized to [0,1]: each query token's best dot-product
// match is summed, then the sum is divided by the query token count so the
// result doesn't grow unbounded with query length, and clamped into
// [0,1] since per-token dot products can individually exceed 1 for
// near-duplicate non-unit vectors produced by the embedder.
func MaxSim(query, doc [][]float32) float64 {
	if len(query) == 0 || len(doc) == 0 {
		return 0
	}
	var total float64
	for _, q := range query {
		best := -1.0
		for _, d := range doc {
			if s := dot(q, d); s > best {
				best = s
			}
		}
		if best < 0 {
			best = 0
		}
		total += best
	}
	score := total / float64(len(query))
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
