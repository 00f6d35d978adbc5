package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/latticeforge/fpengine/pkg/graph"
	"github.com/latticeforge/fpengine/pkg/profile"
	"github.com/latticeforge/fpengine/pkg/scoring"
)

// SearchCauses runs a Strategy-B search with the causal_reasoning profile
// and direction=cause.
func (e *Engine) SearchCauses(ctx context.Context, query string, topK int) (SearchResponse, error) {
	return e.Search(ctx, SearchRequest{
		Query: query, TopK: topK, Strategy: StrategyMultiView,
		ProfileName: profile.CausalReasoning, CausalDirection: string(scoring.DirectionCause),
	})
}

// SearchEffects runs a Strategy-B search with the causal_reasoning profile
// and direction=effect.
func (e *Engine) SearchEffects(ctx context.Context, query string, topK int) (SearchResponse, error) {
	return e.Search(ctx, SearchRequest{
		Query: query, TopK: topK, Strategy: StrategyMultiView,
		ProfileName: profile.CausalReasoning, CausalDirection: string(scoring.DirectionEffect),
	})
}

// GetCausalChain walks causal_chain typed edges from anchor, attenuating
// the score by 0.9 per hop up to a maximum of 5 hops.
func (e *Engine) GetCausalChain(ctx context.Context, anchor uuid.UUID, maxHops int, minSimilarity float64) ([]graph.CausalChainNode, error) {
	return graph.CausalChain(ctx, e.typed, anchor, maxHops, minSimilarity)
}
