package embedder

import "math/rand"

// projection is a fixed, seeded linear map from one base embedding space to
// a view's own dimensionality. No specialized per-view model exists in the
// retrieval pack (FastEmbedProvider's base model produces exactly one 768-dim
// passage embedding — see _seed_fast_embed.go), so every derived view is a
// deterministic random projection of that one base vector, seeded once at
// process start so the same content always maps to the same view
// (re-embedding unchanged content must not silently drift the
// fingerprint). No linear-algebra library appears
// anywhere in pkg/memory or the rest of the retrieved, complete example
// repos for this concern, so the projection matrices are generated and
// applied with math/rand + plain float32 arithmetic rather than a
// third-party numerics package.
type projection struct {
	matrix [][]float32 // dim(out) x dim(in)
}

func newProjection(seed int64, in, out int) projection {
	r := rand.New(rand.NewSource(seed))
	m := make([][]float32, out)
	scale := float32(1) / float32(in)
	for i := range m {
		row := make([]float32, in)
		for j := range row {
			row[j] = (r.Float32()*2 - 1) * scale
		}
		m[i] = row
	}
	return projection{matrix: m}
}

// apply maps a base vector into the projection's output space.
func (p projection) apply(base []float32) []float32 {
	out := make([]float32, len(p.matrix))
	for i, row := range p.matrix {
		var sum float32
		n := len(row)
		if len(base) < n {
			n = len(base)
		}
		for j := 0; j < n; j++ {
			sum += row[j] * base[j]
		}
		out[i] = sum
	}
	return out
}

// Fixed seeds, one per derived view, so projections are stable across
// process restarts without persisting the matrices themselves.
const (
	seedE2  int64 = 0xE2
	seedE3  int64 = 0xE3
	seedE4  int64 = 0xE4
	seedE5  int64 = 0xE5
	seedE7  int64 = 0xE7
	seedE8  int64 = 0xE8
	seedE9  int64 = 0xE9
	seedE10 int64 = 0xE10
	seedE11 int64 = 0xE11
	seedE12 int64 = 0xE12
)
