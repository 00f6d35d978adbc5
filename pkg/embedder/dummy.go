package embedder

import (
	"context"
	"hash/fnv"

	"github.com/latticeforge/fpengine/pkg/fingerprint"
)

// DummyProvider derives a deterministic pseudo-embedding from the content's
// hash instead of calling a real model, adapted from pkg/memory/embed's
// DummyEmbedding (_seed_embed_test.go) so tests and local development don't
// need a model download. Same content always yields the same vectors.
type DummyProvider struct{}

func (DummyProvider) Close() error { return nil }

func (p DummyProvider) Embed(_ context.Context, content string) (fingerprint.Views, error) {
	base := DummyEmbedding(content)
	tokens := tokenize(content)

	cause, effect := resolveCauseEffect(p, content)
	source, target := splitSourceTarget(content)

	projE2 := newProjection(seedE2, len(base), 512)
	projE3 := newProjection(seedE3, len(base), 512)
	projE4 := newProjection(seedE4, len(base), 512)
	projE5 := newProjection(seedE5, len(base), 768)
	projE7 := newProjection(seedE7, len(base), 1536)
	projE8 := newProjection(seedE8, len(base), 384)
	projE9 := newProjection(seedE9, len(base), 1024)
	projE10 := newProjection(seedE10, len(base), 768)
	projE11 := newProjection(seedE11, len(base), 768)
	projTok := newProjection(seedE12, len(base), 128)

	return fingerprint.Views{
		E1:         toE1(base),
		E2:         projE2.apply(base),
		E3:         projE3.apply(base),
		E4:         projE4.apply(base),
		E5AsCause:  projE5.apply(DummyEmbedding(cause)),
		E5AsEffect: projE5.apply(DummyEmbedding(effect)),
		E6:         sparseVector(tokens),
		E7:         projE7.apply(base),
		E8AsSource: projE8.apply(DummyEmbedding(source)),
		E8AsTarget: projE8.apply(DummyEmbedding(target)),
		E9:         projE9.apply(base),
		E10:        projE10.apply(base),
		E11:        projE11.apply(base),
		E12:        tokenSequence(projTok, base, tokens),
		E13:        expandedSparseVector(tokens),
	}, nil
}

// DummyEmbedding produces a deterministic 768-dim vector from content,
// matching pkg/memory/embed's convention of a fixed-width dummy embedding
// (_seed_embed_test.go: "expected dummy embedding to be length 768").
func DummyEmbedding(content string) []float32 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(content))
	seed := int64(h.Sum64())
	r := newProjection(seed, 1, 768)
	out := make([]float32, 768)
	for i := range out {
		out[i] = r.matrix[i][0]
	}
	return out
}
