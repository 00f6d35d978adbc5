// Package embedder turns text into the thirteen-view payload fpengine
// stores for every memory. Provider is the seam: a FastEmbed-backed default
// derives all thirteen views from one base embedding pass, and a
// deterministic Dummy implementation backs tests without a model download.
package embedder

import (
	"context"

	"github.com/latticeforge/fpengine/pkg/fingerprint"
)

// Provider produces a full fingerprint.Views from one piece of text. A
// Provider never returns a partial Views — fingerprint.Build rejects those
// anyway, but callers should not have to discover that at validation time.
type Provider interface {
	Embed(ctx context.Context, content string) (fingerprint.Views, error)
	Close() error
}

// CauseEffectSplitter optionally gives a provider access to the two halves
// of an asymmetric view's source text (e.g. a "because" clause split into
// cause and effect spans) instead of deriving both halves from the same
// base embedding. Providers that don't implement it fall back to the
// connective-based heuristic in split.go (see resolveCauseEffect).
type CauseEffectSplitter interface {
	SplitCauseEffect(content string) (cause, effect string)
}

// resolveCauseEffect prefers p's own CauseEffectSplitter when it implements
// one, falling back to the connective-based heuristic in split.go.
func resolveCauseEffect(p any, content string) (cause, effect string) {
	if s, ok := p.(CauseEffectSplitter); ok {
		return s.SplitCauseEffect(content)
	}
	return splitCauseEffect(content)
}
