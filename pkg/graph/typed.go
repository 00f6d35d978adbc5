package graph

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/latticeforge/fpengine/pkg/fingerprint"
	"github.com/latticeforge/fpengine/pkg/fpengine"
	"github.com/latticeforge/fpengine/pkg/scoring"
)

// Thresholds for cross-view typed-edge derivation (its table).
// keywordOverlapThreshold has no numeric value given upstream; 4.0 is the
// chosen constant (a BM25 score
// high enough to indicate more than incidental term overlap, calibrated
// against the same corpus-independent scale BM25 produces for short
// memory-sized documents).
const (
	semanticSimilarThreshold = 0.7
	codeRelatedThreshold     = 0.6
	entitySharedThreshold    = 0.8
	causalChainThreshold     = 0.5
	graphConnectedThreshold  = 0.5
	intentAlignedThreshold   = 0.6
	keywordOverlapThreshold  = 4.0
	multiAgreementMinViews   = 3
)

// Store is the typed-edge persistence/query surface pkg/engine and
// Traverse/CausalChain depend on. TypedStore (bbolt-backed, the default)
// and Neo4jEdgeStore both implement it, so an engine can be built against
// either without any call site downstream of the Engine.typed field
// changing.
type Store interface {
	Put(ctx context.Context, e Edge) error
	Get(ctx context.Context, id uuid.UUID, kind Kind, allKinds []Kind) ([]Edge, error)
}

// TypedStore persists and serves typed edges (its edges_typed
// namespace, keyed by (src_id, kind)).
type TypedStore struct {
	store persister
}

// NewTypedStore constructs a TypedStore backed by store.
func NewTypedStore(store persister) *TypedStore {
	return &TypedStore{store: store}
}

func typedKey(src uuid.UUID, kind Kind) string {
	return src.String() + ":" + string(kind)
}

// Derive computes every typed edge that a source/target pair qualifies for
// given their per-view similarity breakdown (its threshold
// table), including multi_agreement when at least multiAgreementMinViews
// individual thresholds are exceeded.
func Derive(source, target uuid.UUID, scores scoring.Breakdown, bm25Score float64, now time.Time) []Edge {
	var kinds []Kind
	agreementCount := 0

	check := func(k Kind, view fingerprint.ViewID, threshold float64) {
		if v, ok := scores[view]; ok && v > threshold {
			kinds = append(kinds, k)
			agreementCount++
		}
	}
	check(KindSemanticSimilar, fingerprint.E1, semanticSimilarThreshold)
	check(KindCodeRelated, fingerprint.E7, codeRelatedThreshold)
	check(KindEntityShared, fingerprint.E11, entitySharedThreshold)
	check(KindCausalChain, fingerprint.E5, causalChainThreshold)
	check(KindGraphConnected, fingerprint.E8, graphConnectedThreshold)
	check(KindIntentAligned, fingerprint.E10, intentAlignedThreshold)
	if bm25Score > keywordOverlapThreshold {
		kinds = append(kinds, KindKeywordOverlap)
		agreementCount++
	}
	if agreementCount >= multiAgreementMinViews {
		kinds = append(kinds, KindMultiAgreement)
	}

	edges := make([]Edge, 0, len(kinds))
	for _, k := range kinds {
		edges = append(edges, Edge{
			Source:     source,
			Target:     target,
			Kind:       k,
			Score:      dominantScoreFor(k, scores, bm25Score),
			ViewScores: scores,
			CreatedAt:  now,
		})
	}
	return edges
}

func dominantScoreFor(k Kind, scores scoring.Breakdown, bm25Score float64) float64 {
	switch k {
	case KindSemanticSimilar:
		return scores[fingerprint.E1]
	case KindCodeRelated:
		return scores[fingerprint.E7]
	case KindEntityShared:
		return scores[fingerprint.E11]
	case KindCausalChain:
		return scores[fingerprint.E5]
	case KindGraphConnected:
		return scores[fingerprint.E8]
	case KindIntentAligned:
		return scores[fingerprint.E10]
	case KindKeywordOverlap:
		return bm25Score
	default:
		return 1.0
	}
}

// Put persists (appends) a typed edge under its source/kind key.
func (s *TypedStore) Put(ctx context.Context, e Edge) error {
	if s.store == nil {
		return nil
	}
	var existing []Edge
	_, _ = s.store.GetJSON(ctx, nsTyped, typedKey(e.Source, e.Kind), &existing)
	existing = upsertEdge(existing, e)
	if err := s.store.PutJSON(ctx, nsTyped, typedKey(e.Source, e.Kind), existing); err != nil {
		return fpengine.Wrap(fpengine.KindStorageError, err, "persist typed edge %s->%s (%s)", e.Source, e.Target, e.Kind)
	}
	return nil
}

func upsertEdge(existing []Edge, e Edge) []Edge {
	for i, old := range existing {
		if old.Target == e.Target {
			existing[i] = e
			return existing
		}
	}
	return append(existing, e)
}

// Get returns every edge of kind (or, if kind is "", every kind) sourced
// from id.
func (s *TypedStore) Get(ctx context.Context, id uuid.UUID, kind Kind, allKinds []Kind) ([]Edge, error) {
	if s.store == nil {
		return nil, nil
	}
	kinds := allKinds
	if kind != "" {
		kinds = []Kind{kind}
	}
	var out []Edge
	for _, k := range kinds {
		var edges []Edge
		found, err := s.store.GetJSON(ctx, nsTyped, typedKey(id, k), &edges)
		if err != nil {
			return nil, err
		}
		if found {
			out = append(out, edges...)
		}
	}
	return out, nil
}

// AllKinds is the full closed set of typed-edge kinds, used when Get is
// asked for "every kind" via an empty Kind.
var AllKinds = []Kind{
	KindSemanticSimilar, KindCodeRelated, KindEntityShared,
	KindCausalChain, KindGraphConnected, KindIntentAligned,
	KindKeywordOverlap, KindMultiAgreement,
}
