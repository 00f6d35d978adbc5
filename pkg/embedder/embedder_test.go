package embedder

import (
	"context"
	"testing"
	"time"

	"github.com/latticeforge/fpengine/pkg/fingerprint"
)

func TestDummyProviderProducesValidFingerprint(t *testing.T) {
	p := DummyProvider{}
	views, err := p.Embed(context.Background(), "the build failed because the disk was full")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if _, err := fingerprint.Build("the build failed because the disk was full", views, 0.5, time.Now()); err != nil {
		t.Fatalf("Build from dummy views: %v", err)
	}
}

func TestDummyEmbeddingDeterministic(t *testing.T) {
	a := DummyEmbedding("same content")
	b := DummyEmbedding("same content")
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("expected deterministic embedding, differed at index %d", i)
		}
	}
}

func TestDummyEmbeddingDiffersByContent(t *testing.T) {
	a := DummyEmbedding("alpha")
	b := DummyEmbedding("beta")
	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("expected different content to produce different embeddings")
	}
}

func TestSplitCauseEffectFallsBackToWholeContent(t *testing.T) {
	cause, effect := splitCauseEffect("no connective here")
	if cause != "no connective here" || effect != "no connective here" {
		t.Fatal("expected fallback to whole content when no connective present")
	}
}

func TestSplitCauseEffectHonorsBecause(t *testing.T) {
	cause, effect := splitCauseEffect("the service crashed because memory ran out")
	if cause == effect {
		t.Fatal("expected distinct cause/effect spans")
	}
}

func TestTokenSequenceRespectsMaxTokens(t *testing.T) {
	tokens := make([]string, 100)
	for i := range tokens {
		tokens[i] = "word"
	}
	proj := newProjection(seedE12, 768, 128)
	seq := tokenSequence(proj, DummyEmbedding("x"), tokens)
	if len(seq) != 64 {
		t.Fatalf("expected token sequence capped at 64, got %d", len(seq))
	}
}
