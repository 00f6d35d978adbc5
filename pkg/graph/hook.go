package graph

import (
	"context"

	"github.com/google/uuid"
)

// DiscoveryHook is the seam for external causal/graph discovery: the
// engine exposes hooks for it but never calls an LLM itself. An external
// integration layer (out of scope here) can implement DiscoveryHook to
// propose causal_chain or graph_connected edges it inferred from an LLM
// read of two memories' content, and hand them back through Propose for
// the engine to validate and persist via the ordinary TypedStore path —
// the engine never originates the inference itself.
type DiscoveryHook interface {
	// Discover is called with a candidate pair the engine has already
	// found semantically related (e.g. via semantic_similar); it returns
	// zero or more proposed edges, or an error if discovery is
	// unavailable. The engine treats a returned edge as a proposal, not a
	// fact — Propose still runs it through the same threshold checks as
	// any other Derive output.
	Discover(ctx context.Context, source, target uuid.UUID) ([]Edge, error)
}

// NoopDiscovery is the zero-value DiscoveryHook: an engine with no
// external discovery layer configured simply proposes nothing, rather than
// requiring every caller to nil-check the hook before use.
type NoopDiscovery struct{}

func (NoopDiscovery) Discover(context.Context, uuid.UUID, uuid.UUID) ([]Edge, error) {
	return nil, nil
}

// Propose validates hook-proposed edges against the same kind/threshold
// vocabulary Derive uses (only directed causal_chain / graph_connected
// edges are accepted from a hook, since those are the two relations an
// LLM-driven discovery layer would plausibly infer) and persists the
// ones that pass.
func Propose(ctx context.Context, store *TypedStore, hook DiscoveryHook, source, target uuid.UUID) ([]Edge, error) {
	proposed, err := hook.Discover(ctx, source, target)
	if err != nil {
		return nil, err
	}
	var accepted []Edge
	for _, e := range proposed {
		if e.Kind != KindCausalChain && e.Kind != KindGraphConnected {
			continue
		}
		threshold := causalChainThreshold
		if e.Kind == KindGraphConnected {
			threshold = graphConnectedThreshold
		}
		if e.Score <= threshold || e.Score > 1 {
			continue
		}
		if err := store.Put(ctx, e); err != nil {
			return accepted, err
		}
		accepted = append(accepted, e)
	}
	return accepted, nil
}
