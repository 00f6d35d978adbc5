package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/latticeforge/fpengine/pkg/audit"
	"github.com/latticeforge/fpengine/pkg/fingerprint"
	"github.com/latticeforge/fpengine/pkg/fpengine"
	"github.com/latticeforge/fpengine/pkg/graph"
)

// StoreResult is store_memory's response.
type StoreResult struct {
	ID             uuid.UUID
	ViewDimensions [13]int
	LatencyMS      int64
	AuditStatus    audit.Status
}

// StoreMemory embeds content into all thirteen views, persists the
// resulting fingerprint, and fans it out to every index, the K-NN edge
// set, and freshly-derived typed edges against its nearest e1 neighbors
// (its write contract).
func (e *Engine) StoreMemory(ctx context.Context, content string, importance float64, rationale, sessionID, operatorID string) (StoreResult, error) {
	if err := e.acquireWriteSlot(); err != nil {
		return StoreResult{}, err
	}
	defer e.releaseWriteSlot()

	start := e.clock()
	views, err := e.embedder.Embed(ctx, content)
	if err != nil {
		return StoreResult{}, fpengine.Wrap(fpengine.KindEmbedderUnavailable, err, "embed content for store_memory")
	}
	f, err := fingerprint.Build(content, views, importance, start)
	if err != nil {
		return StoreResult{}, err
	}

	result, err := e.persistAndIndex(ctx, f, start)
	if err != nil {
		return StoreResult{}, err
	}

	status := e.appendAudit(ctx, audit.Record{
		Operation:  audit.OpStore,
		TargetIDs:  []uuid.UUID{f.ID},
		OperatorID: operatorID,
		Timestamp:  start,
		Rationale:  rationale,
	})
	result.AuditStatus = status
	_ = sessionID // session partitioning is not modeled at the index layer
	return result, nil
}

// persistAndIndex runs its write contract: commit the fingerprint,
// then fan out to every index and the K-NN/typed-edge graph, compensating
// (removing the just-written fingerprint) if index fan-out fails outright.
func (e *Engine) persistAndIndex(ctx context.Context, f *fingerprint.Fingerprint, now time.Time) (StoreResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.store.Put(ctx, f); err != nil {
		return StoreResult{}, err
	}

	if err := e.addToIndexesOrCompensate(ctx, f, now); err != nil {
		return StoreResult{}, err
	}

	return StoreResult{
		ID:             f.ID,
		ViewDimensions: viewDimensions(f),
		LatencyMS:      e.clock().Sub(now).Milliseconds(),
	}, nil
}

// addToIndexesOrCompensate adds f to every in-process index and rebuilds
// its K-NN adjacency / derives typed edges against its e1 neighbors. A hard
// index failure (broken NSW index, not a transient search miss) compensates
// by removing any partial index entries already added and hard-deleting the
// fingerprint outright: the write never finished, so there is nothing to
// recover, and leaving a soft-deleted tombstone behind would let
// RecoverMemory resurrect a "live" fingerprint with no index entries at all.
func (e *Engine) addToIndexesOrCompensate(ctx context.Context, f *fingerprint.Fingerprint, now time.Time) error {
	var addErr error
	for view, idx := range e.dense {
		vec := f.Dense(view, "")
		if len(vec) == 0 {
			continue
		}
		if err := idx.Add(ctx, f.ID, vec); err != nil {
			addErr = err
			break
		}
	}
	if addErr == nil && len(f.E1) > 0 {
		addErr = e.matryoshka.Add(ctx, f.ID, f.E1)
	}
	if addErr == nil {
		addErr = e.sparse[fingerprint.E6].Add(ctx, f.ID, f.E6)
	}
	if addErr == nil {
		addErr = e.sparse[fingerprint.E13].Add(ctx, f.ID, f.E13)
	}
	if addErr == nil && len(f.E12) > 0 {
		addErr = e.token.Add(ctx, f.ID, f.E12)
	}
	if addErr != nil {
		e.removeFromIndexes(ctx, f)
		_ = e.store.HardDelete(ctx, f.ID)
		return fpengine.Wrap(fpengine.KindStorageError, addErr, "index fan-out failed for %s, compensated", f.ID)
	}

	degraded, err := e.knn.Rebuild(ctx, f.ID, knnVectors(f), e.knnSearchers())
	if err != nil {
		e.logger.Warn().Err(err).Str("memory_id", f.ID.String()).Msg("knn rebuild failed")
	}
	for _, view := range degraded {
		e.logger.Warn().Str("memory_id", f.ID.String()).Str("view", view).Msg("knn rebuild: view degraded")
	}
	e.deriveTypedEdges(ctx, f, now)
	e.mirrorToDense(ctx, f)

	e.metrics.IncStored()
	return nil
}

// mirrorToDense best-effort upserts f's vector into every registered
// pgvector mirror; an unreachable mirror degrades that view's mirror
// only, never the write itself.
func (e *Engine) mirrorToDense(ctx context.Context, f *fingerprint.Fingerprint) {
	for view, mirror := range e.denseMirrors {
		vec := f.Dense(view, "")
		if len(vec) == 0 {
			continue
		}
		if err := mirror.Upsert(ctx, f.ID, vec); err != nil {
			e.logger.Warn().Err(err).Str("memory_id", f.ID.String()).Str("view", string(view)).Msg("dense postgres mirror upsert failed")
		}
	}
}

func knnVectors(f *fingerprint.Fingerprint) map[string][]float32 {
	out := make(map[string][]float32, len(graph.KNNViews))
	for _, view := range graph.KNNViews {
		if vec := f.Dense(view, ""); len(vec) > 0 {
			out[string(view)] = vec
		}
	}
	return out
}

func viewDimensions(f *fingerprint.Fingerprint) [13]int {
	var out [13]int
	for i, spec := range fingerprint.ViewTable {
		switch spec.Kind {
		case fingerprint.KindDense:
			out[i] = len(f.Dense(spec.ID, ""))
		case fingerprint.KindSparse:
			out[i] = len(f.Sparse(spec.ID))
		case fingerprint.KindTokenSequence:
			out[i] = len(f.E12)
		}
	}
	return out
}
