// Package graph implements its typed-edge layer atop the store:
// per-view K-NN adjacency maintained incrementally as memories are
// written, cross-view threshold-derived typed edges, and bounded-depth
// traversal.
package graph

import (
	"time"

	"github.com/google/uuid"

	"github.com/latticeforge/fpengine/pkg/fingerprint"
)

// Kind names a typed-edge relation (its table).
type Kind string

const (
	KindSemanticSimilar Kind = "semantic_similar"
	KindCodeRelated     Kind = "code_related"
	KindEntityShared    Kind = "entity_shared"
	KindCausalChain     Kind = "causal_chain" // directed
	KindGraphConnected  Kind = "graph_connected" // directed
	KindIntentAligned   Kind = "intent_aligned"
	KindKeywordOverlap  Kind = "keyword_overlap"
	KindMultiAgreement  Kind = "multi_agreement"
)

// directedKinds is the set of relation kinds that carry a direction.
var directedKinds = map[Kind]bool{
	KindCausalChain:    true,
	KindGraphConnected: true,
}

// IsDirected reports whether a relation kind is directional.
func IsDirected(k Kind) bool { return directedKinds[k] }

// Edge is one typed edge between two memories: source, target,
// kind, the score of the view that qualified it (the BM25 score for
// keyword_overlap, 1.0 for multi_agreement), and the full per-view
// similarity snapshot that
// produced it, so callers can see why the edge exists.
type Edge struct {
	Source     uuid.UUID                         `json:"source"`
	Target     uuid.UUID                         `json:"target"`
	Kind       Kind                               `json:"kind"`
	Score      float64                            `json:"score"`
	ViewScores map[fingerprint.ViewID]float64     `json:"view_scores"`
	CreatedAt  time.Time                          `json:"created_at"`
}

// KNNEdge is one entry of a per-view K-NN adjacency list: for each view
// in {e1, e7, e11}, fpengine maintains a k-nearest-neighbor adjacency.
type KNNEdge struct {
	View       fingerprint.ViewID `json:"view"`
	Target     uuid.UUID          `json:"target"`
	Similarity float64            `json:"similarity"`
}

// KNNViews is the configurable set of views that get K-NN adjacency.
var KNNViews = []fingerprint.ViewID{fingerprint.E1, fingerprint.E7, fingerprint.E11}

// DefaultKNNSize is the approximate k ("k ≈ 20").
const DefaultKNNSize = 20
