package dense

import (
	"context"

	"github.com/google/uuid"
)

// MatryoshkaIndex is a cheap first-pass filter over a truncated prefix of
// e1 (its strategy-C pipeline: "matryoshka filter" stage), trading
// accuracy for speed before the full-width fusion rerank. It embeds a
// smaller NSWIndex over the truncated vectors rather than duplicating the
// graph logic.
type MatryoshkaIndex struct {
	prefixDim int
	inner     *NSWIndex
}

// NewMatryoshkaIndex builds a filter index over the first prefixDim
// components of an e1-shaped vector.
func NewMatryoshkaIndex(prefixDim, m, ef int) *MatryoshkaIndex {
	return &MatryoshkaIndex{prefixDim: prefixDim, inner: NewNSWIndex(prefixDim, m, ef)}
}

func (idx *MatryoshkaIndex) truncate(vec []float32) []float32 {
	if len(vec) <= idx.prefixDim {
		return vec
	}
	return vec[:idx.prefixDim]
}

// Add inserts the truncated prefix of a full e1 vector.
func (idx *MatryoshkaIndex) Add(ctx context.Context, id uuid.UUID, e1 []float32) error {
	return idx.inner.Add(ctx, id, idx.truncate(e1))
}

// Remove deletes id from the filter index.
func (idx *MatryoshkaIndex) Remove(ctx context.Context, id uuid.UUID) error {
	return idx.inner.Remove(ctx, id)
}

// Candidates returns up to k candidate ids using only the truncated prefix,
// meant to be widened well beyond the pipeline's final result count since
// it is a recall-oriented filter, not the final ranking.
func (idx *MatryoshkaIndex) Candidates(ctx context.Context, queryE1 []float32, k int) ([]Neighbor, error) {
	return idx.inner.Search(ctx, idx.truncate(queryE1), k)
}
