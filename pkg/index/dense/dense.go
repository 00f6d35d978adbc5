// Package dense implements approximate nearest-neighbor search over the
// dense (non-sparse, non-token-sequence) views: e1, e2, e3, e4, e5, e7, e8,
// e9, e10, e11.
//
// No ANN library appears anywhere in the retrieval pack — pkg/memory talks
// to pgvector over SQL (_seed_postgres_store.go's "ORDER BY embedding <-> $1")
// rather than running an in-process graph, and no other example repo
// vendors an ANN implementation either. DESIGN.md records this: NSWIndex is
// hand-written against the standard library because nothing in the corpus
// gave a library to ground it on; the pgvector query pattern is kept as the
// PostgresMirror alternate backend below, which is grounded.
package dense

import "math"

// Cosine computes cosine similarity between two equal-length vectors,
// adapted from pkg/memory/model.CosineSimilarity
// (pkg/memory/model/similarity.go, seeded at pkg/scoring/_seed_similarity.go)
// generalized to operate directly on []float32 without a MemoryRecord
// wrapper, since fpengine's scoring kernel calls it across thirteen
// different views rather than one fixed embedding field.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
