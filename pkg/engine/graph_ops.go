package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/latticeforge/fpengine/pkg/fingerprint"
	"github.com/latticeforge/fpengine/pkg/graph"
	"github.com/latticeforge/fpengine/pkg/index/token"
	"github.com/latticeforge/fpengine/pkg/scoring"
)

// typedEdgeLookupBreadth bounds the e13 search used to approximate a
// pairwise BM25 score for keyword_overlap typed-edge derivation — BM25 is
// inherently query-scoped, so this reuses the e13 index's own Search to
// look up, among a source memory's top typedEdgeLookupBreadth keyword matches,
// whether a specific candidate target appears and at what score.
const typedEdgeLookupBreadth = 50

// deriveTypedEdges computes and persists every typed edge that qualifies
// between f and its e1 K-NN neighbors, freshly written so a new
// memory's relations to the rest of the corpus exist immediately rather
// than waiting for a later rebuild.
func (e *Engine) deriveTypedEdges(ctx context.Context, f *fingerprint.Fingerprint, now time.Time) {
	neighbors, err := e.knn.Neighbors(ctx, f.ID, string(fingerprint.E1))
	if err != nil {
		e.logger.Warn().Err(err).Str("memory_id", f.ID.String()).Msg("typed edge derivation: knn lookup failed")
		return
	}
	for _, n := range neighbors {
		target, err := e.store.Get(ctx, n.Target)
		if err != nil || target.IsDeleted() {
			continue
		}
		breakdown := pairwiseBreakdown(f, target)
		bm25 := e.bm25Between(ctx, f, target)
		for _, edge := range graph.Derive(f.ID, target.ID, breakdown, bm25, now) {
			if err := e.typed.Put(ctx, edge); err != nil {
				e.logger.Warn().Err(err).Str("memory_id", f.ID.String()).Msg("typed edge persist failed")
			}
		}
	}
}

// pairwiseBreakdown computes the per-view score vector between two stored
// fingerprints, mirroring pkg/pipeline's breakdown() but over two
// fingerprints instead of a query plus a fetched candidate — typed-edge
// derivation compares memories to each other, not a query to a memory.
func pairwiseBreakdown(source, target *fingerprint.Fingerprint) scoring.Breakdown {
	b := make(scoring.Breakdown, len(fingerprint.ViewTable))
	for _, spec := range fingerprint.ViewTable {
		switch spec.ID {
		case fingerprint.E5:
			if len(source.E5AsCause) > 0 {
				b[spec.ID] = scoring.Causal(source.E5AsCause, target, scoring.DirectionAuto)
			}
		case fingerprint.E8:
			if len(source.E8AsSource) > 0 {
				b[spec.ID] = scoring.Graph(source.E8AsSource, target, scoring.DirectionAuto)
			}
		case fingerprint.E6, fingerprint.E13:
			// left unset: BM25 isn't a symmetric per-vector comparison
			// like the dense views, so the caller passes bm25Between's
			// score to graph.Derive separately.
		case fingerprint.E12:
			if len(source.E12) > 0 && len(target.E12) > 0 {
				b[spec.ID] = token.MaxSim(source.E12, target.E12)
			}
		default:
			sv, tv := source.Dense(spec.ID, ""), target.Dense(spec.ID, "")
			if len(sv) > 0 && len(tv) > 0 {
				b[spec.ID] = scoring.Plain(sv, tv)
			}
		}
	}
	if len(source.E1) > 0 && len(target.E1) > 0 && len(source.E10) > 0 && len(target.E10) > 0 {
		intent := scoring.Intent(source.E1, target.E1, source.E10, target.E10)
		if intent.BoostFired {
			// See pipeline/provenance.go's breakdown(): e10's slot carries
			// the post-boost value too, since intent_aligned derivation
			// keys off scores[E10].
			b[fingerprint.E1] = intent.Boosted
			b[fingerprint.E10] = intent.Boosted
		}
	}
	return b
}

func (e *Engine) bm25Between(ctx context.Context, source, target *fingerprint.Fingerprint) float64 {
	if len(source.E13) == 0 {
		return 0
	}
	results, err := e.sparse[fingerprint.E13].Search(ctx, source.E13, typedEdgeLookupBreadth, e.liveDocs(), nil)
	if err != nil {
		return 0
	}
	for _, r := range results {
		if r.ID == target.ID {
			return r.Score
		}
	}
	return 0
}

// GetMemoryNeighbors returns id's persisted K-NN adjacency under one view.
func (e *Engine) GetMemoryNeighbors(ctx context.Context, id uuid.UUID, view fingerprint.ViewID) ([]graph.KNNEdge, error) {
	return e.knn.Neighbors(ctx, id, string(view))
}

// GetTypedEdges returns every typed edge sourced from id, optionally
// restricted to one kind.
func (e *Engine) GetTypedEdges(ctx context.Context, id uuid.UUID, kind graph.Kind) ([]graph.Edge, error) {
	return e.typed.Get(ctx, id, kind, graph.AllKinds)
}

// TraverseGraph walks the typed-edge graph breadth-first from start.
func (e *Engine) TraverseGraph(ctx context.Context, start uuid.UUID, maxHops int, kind graph.Kind) ([]graph.Node, error) {
	return graph.Traverse(ctx, e.typed, start, maxHops, kind)
}
