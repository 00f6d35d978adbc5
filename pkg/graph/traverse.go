package graph

import (
	"context"

	"github.com/google/uuid"
)

// DefaultMaxDepth is its traversal default ("up to configurable
// depth (default 5)").
const DefaultMaxDepth = 5

// Node is one entry of a traversal tree, annotated with depth and the edge
// kind that reached it (""emits a tree annotated with depth and
// edge-kind").
type Node struct {
	ID    uuid.UUID
	Depth int
	Kind  Kind
}

// Traverse walks the typed-edge graph breadth-first from start up to
// maxHops, optionally filtered to one relation kind, never revisiting a
// node (so a cycle in the typed-edge graph can't loop traversal forever).
func Traverse(ctx context.Context, store Store, start uuid.UUID, maxHops int, kind Kind) ([]Node, error) {
	if maxHops <= 0 {
		maxHops = DefaultMaxDepth
	}
	visited := map[uuid.UUID]struct{}{start: {}}
	frontier := []uuid.UUID{start}
	var out []Node

	for depth := 1; depth <= maxHops && len(frontier) > 0; depth++ {
		var next []uuid.UUID
		for _, id := range frontier {
			edges, err := store.Get(ctx, id, kind, AllKinds)
			if err != nil {
				return out, err
			}
			for _, e := range edges {
				if _, seen := visited[e.Target]; seen {
					continue
				}
				visited[e.Target] = struct{}{}
				out = append(out, Node{ID: e.Target, Depth: depth, Kind: e.Kind})
				next = append(next, e.Target)
			}
		}
		frontier = next
	}
	return out, nil
}

// CausalChainHopAttenuation is the causal-chain traversal attenuation
// factor applied once per hop.
const CausalChainHopAttenuation = 0.9

// MaxCausalHops is the ceiling on causal chain traversal (""hop
// attenuation factor 0.9 per hop, maximum 5 hops").
const MaxCausalHops = 5

// CausalChainNode is one hop of a causal chain, carrying the attenuated
// score so callers can apply a min_similarity cutoff.
type CausalChainNode struct {
	Node
	AttenuatedScore float64
}

// CausalChain walks causal_chain edges from anchor, scoring each node as
// the product of the stored edge scores along its path times
// CausalChainHopAttenuation^depth, and stopping once
// the attenuated score falls below minSimilarity. This implementation
// terminates a branch, not the whole walk, the moment its own attenuated
// score drops below the floor, since a short strong chain
// and a long weak one can coexist from the same anchor).
func CausalChain(ctx context.Context, store Store, anchor uuid.UUID, maxHops int, minSimilarity float64) ([]CausalChainNode, error) {
	if maxHops <= 0 || maxHops > MaxCausalHops {
		maxHops = MaxCausalHops
	}
	visited := map[uuid.UUID]struct{}{anchor: {}}
	type frontierNode struct {
		id    uuid.UUID
		score float64
	}
	frontier := []frontierNode{{id: anchor, score: 1.0}}
	var out []CausalChainNode

	for depth := 1; depth <= maxHops && len(frontier) > 0; depth++ {
		var next []frontierNode
		for _, fn := range frontier {
			edges, err := store.Get(ctx, fn.id, KindCausalChain, nil)
			if err != nil {
				return out, err
			}
			for _, e := range edges {
				if _, seen := visited[e.Target]; seen {
					continue
				}
				attenuated := fn.score * e.Score * CausalChainHopAttenuation
				if attenuated < minSimilarity {
					continue
				}
				visited[e.Target] = struct{}{}
				out = append(out, CausalChainNode{
					Node:            Node{ID: e.Target, Depth: depth, Kind: KindCausalChain},
					AttenuatedScore: attenuated,
				})
				next = append(next, frontierNode{id: e.Target, score: attenuated})
			}
		}
		frontier = next
	}
	return out, nil
}
