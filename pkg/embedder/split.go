package embedder

import "strings"

// forwardCausalConnectives join "X <connective> Y" where X is the cause and
// Y is the effect ("disk filling triggers write failures").
var forwardCausalConnectives = []string{
	" so that ", " therefore ", " so ", " hence ", " thus ",
	" triggers ", " causes ", " cause ", " leads to ", " results in ",
}

// backwardCausalConnectives join "Y <connective> X" where X, following the
// connective, is the cause and Y is the effect ("write failures because
// disk filling").
var backwardCausalConnectives = []string{" because "}

// splitCauseEffect looks for an explicit causal connective and splits the
// content into its cause and effect spans; absent one, it returns the whole
// content for both sides, so the asymmetric halves still validate (both
// halves of an asymmetric pair must be present) while only carrying a real
// directional signal when the text states one.
func splitCauseEffect(content string) (cause, effect string) {
	lower := strings.ToLower(content)
	for _, sep := range backwardCausalConnectives {
		if idx := strings.Index(lower, sep); idx >= 0 {
			return content[idx+len(sep):], content[:idx]
		}
	}
	for _, sep := range forwardCausalConnectives {
		if idx := strings.Index(lower, sep); idx >= 0 {
			return content[:idx], content[idx+len(sep):]
		}
	}
	return content, content
}

// splitSourceTarget looks for an explicit relational connective ("X relates
// to Y", "X -> Y", "X depends on Y") splitting source and target spans for
// e8's graph-edge view; same fallback rule as splitCauseEffect.
func splitSourceTarget(content string) (source, target string) {
	for _, sep := range []string{" -> ", " depends on ", " relates to ", " links to ", " calls ", " references "} {
		if idx := strings.Index(strings.ToLower(content), sep); idx >= 0 {
			return content[:idx], content[idx+len(sep):]
		}
	}
	return content, content
}

// tokenSequence builds e12's per-token vector sequence. Each token's vector
// blends a shared passage-level projection with a token-specific seeded
// projection of the same base embedding, so MaxSim late-interaction scoring
// (pkg/scoring) sees distinct-but-related vectors per token rather than the
// same vector repeated, while still deriving everything from the one base
// embedding fastembed actually produces.
func tokenSequence(proj projection, base []float32, tokens []string) [][]float32 {
	if len(tokens) == 0 {
		tokens = []string{""}
	}
	const maxTokens = 64
	if len(tokens) > maxTokens {
		tokens = tokens[:maxTokens]
	}
	out := make([][]float32, len(tokens))
	shared := proj.apply(base)
	for i, tok := range tokens {
		tp := newProjection(int64(termID(tok))+1, len(base), len(shared))
		perTok := tp.apply(base)
		vec := make([]float32, len(shared))
		for j := range vec {
			vec[j] = 0.5*shared[j] + 0.5*perTok[j]
		}
		out[i] = vec
	}
	return out
}
