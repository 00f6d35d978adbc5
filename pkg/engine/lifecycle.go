package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/latticeforge/fpengine/pkg/audit"
	"github.com/latticeforge/fpengine/pkg/fingerprint"
	"github.com/latticeforge/fpengine/pkg/fpengine"
)

// StoreImport is store_memory's bulk-load variant: identical write
// contract, a distinct entry point only so a caller's audit rationale and
// call site read differently for a migration/import job versus an
// interactive store_memory call.
func (e *Engine) StoreImport(ctx context.Context, content string, importance float64, rationale, sessionID, operatorID string) (StoreResult, error) {
	return e.StoreMemory(ctx, content, importance, rationale, sessionID, operatorID)
}

// UpdateMemory re-embeds content for an existing memory id, replacing its
// fingerprint in place: old index entries and sparse postings are removed
// before the new ones are added (its update contract), and the id
// itself is preserved so K-NN/typed edges and the audit trail keep
// pointing at the same memory.
func (e *Engine) UpdateMemory(ctx context.Context, id uuid.UUID, content string, importance float64, rationale, operatorID string) (StoreResult, error) {
	if err := e.acquireWriteSlot(); err != nil {
		return StoreResult{}, err
	}
	defer e.releaseWriteSlot()

	e.mu.Lock()
	defer e.mu.Unlock()

	old, err := e.store.Get(ctx, id)
	if err != nil {
		return StoreResult{}, err
	}
	views, err := e.embedder.Embed(ctx, content)
	if err != nil {
		return StoreResult{}, fpengine.Wrap(fpengine.KindEmbedderUnavailable, err, "embed content for update")
	}
	now := e.clock()
	updated := &fingerprint.Fingerprint{
		ID:          id,
		ContentHash: fingerprint.ContentHash(content),
		CreatedAt:   old.CreatedAt,
		LastUpdated: now,
		Importance:  importance,
		E1:          views.E1, E2: views.E2, E3: views.E3, E4: views.E4,
		E5AsCause: views.E5AsCause, E5AsEffect: views.E5AsEffect,
		E6: views.E6, E7: views.E7,
		E8AsSource: views.E8AsSource, E8AsTarget: views.E8AsTarget,
		E9: views.E9, E10: views.E10, E11: views.E11, E12: views.E12, E13: views.E13,
	}
	updated.ClampImportance()
	if err := fingerprint.Validate(updated); err != nil {
		return StoreResult{}, err
	}

	e.removeFromIndexes(ctx, old)
	if err := e.store.Put(ctx, updated); err != nil {
		return StoreResult{}, err
	}
	if err := e.addToIndexesOrCompensate(ctx, updated, now); err != nil {
		return StoreResult{}, err
	}

	before, _ := json.Marshal(old)
	after, _ := json.Marshal(updated)
	status := e.appendAudit(ctx, audit.Record{
		Operation: audit.OpUpdate, TargetIDs: []uuid.UUID{id}, OperatorID: operatorID,
		Timestamp: now, Rationale: rationale, Before: before, After: after,
	})
	return StoreResult{ID: id, ViewDimensions: viewDimensions(updated), LatencyMS: e.clock().Sub(now).Milliseconds(), AuditStatus: status}, nil
}

// SoftDeleteMemory hides id from search while keeping it recoverable for
// 30 days, removing it from every in-process index so it
// cannot be recalled before that recovery window elapses.
func (e *Engine) SoftDeleteMemory(ctx context.Context, id uuid.UUID, rationale, operatorID string) (audit.Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	f, err := e.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	now := e.clock()
	if err := e.store.SoftDelete(ctx, id, now); err != nil {
		return "", err
	}
	e.removeFromIndexes(ctx, f)
	e.metrics.IncSoftDeleted()
	status := e.appendAudit(ctx, audit.Record{
		Operation: audit.OpSoftDelete, TargetIDs: []uuid.UUID{id}, OperatorID: operatorID,
		Timestamp: now, Rationale: rationale,
	})
	return status, nil
}

// RecoverMemory restores a soft-deleted memory within its recovery window,
// re-indexing it so it is immediately searchable again.
func (e *Engine) RecoverMemory(ctx context.Context, id uuid.UUID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock()
	if err := e.store.Recover(ctx, id, now); err != nil {
		return err
	}
	f, err := e.store.Get(ctx, id)
	if err != nil {
		return err
	}
	e.indexFingerprint(ctx, f)
	e.metrics.IncRecovered()
	return nil
}

// BoostImportance adjusts a memory's importance by delta, clamped to
// [0,1] (its importance invariant).
func (e *Engine) BoostImportance(ctx context.Context, id uuid.UUID, delta float64, rationale, operatorID string) (audit.Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	f, err := e.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	before := f.Importance
	f.Importance += delta
	f.ClampImportance()
	now := e.clock()
	f.LastUpdated = now
	if err := e.store.Put(ctx, f); err != nil {
		return "", err
	}
	e.metrics.IncBoosted()
	status := e.appendAudit(ctx, audit.Record{
		Operation: audit.OpImportanceBoost, TargetIDs: []uuid.UUID{id}, OperatorID: operatorID,
		Timestamp: now, Rationale: fmt.Sprintf("%s (importance %.3f -> %.3f)", rationale, before, f.Importance),
	})
	return status, nil
}

// MergeMemories folds several memories into one: dense views are averaged
// (weighted by each source's importance), sparse views are unioned with
// weights summed, and token sequences are concatenated (capped). The
// sources are soft-deleted and the merge recorded so get_provenance_chain
// can reconstruct the lineage (its "for a merge, the other
// memory ids folded into this one").
func (e *Engine) MergeMemories(ctx context.Context, ids []uuid.UUID, rationale, operatorID string) (uuid.UUID, audit.Status, error) {
	if len(ids) < 2 {
		return uuid.Nil, "", fpengine.New(fpengine.KindInvalidArgument, "merge_memories requires at least two ids")
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	sources := make([]*fingerprint.Fingerprint, 0, len(ids))
	for _, id := range ids {
		f, err := e.store.Get(ctx, id)
		if err != nil {
			return uuid.Nil, "", err
		}
		sources = append(sources, f)
	}

	now := e.clock()
	merged := mergeFingerprints(sources, now)
	if err := fingerprint.Validate(merged); err != nil {
		return uuid.Nil, "", err
	}
	if err := e.store.Put(ctx, merged); err != nil {
		return uuid.Nil, "", err
	}
	if err := e.addToIndexesOrCompensate(ctx, merged, now); err != nil {
		return uuid.Nil, "", err
	}
	for _, f := range sources {
		e.removeFromIndexes(ctx, f)
		_ = e.store.SoftDelete(ctx, f.ID, now)
	}

	allIDs := append([]uuid.UUID{merged.ID}, ids...)
	e.metrics.IncMerged()
	status := e.appendAudit(ctx, audit.Record{
		Operation: audit.OpMerge, TargetIDs: allIDs, OperatorID: operatorID,
		Timestamp: now, Rationale: rationale,
	})
	return merged.ID, status, nil
}

// mergedTokenCap bounds the concatenated e12 sequence of a merge so a fold
// of many long memories still produces something the token index can hold
// in one Search candidate list (the rerank stage operates on the survivors
// of fusion, not on unbounded per-memory sequences).
const mergedTokenCap = 64

// mergeFingerprints builds a new fingerprint from sources, weighting each
// source's dense and sparse views by its own importance (a source the
// caller considered more important pulls the merged vector toward itself)
// so the fold isn't a naive unweighted average.
func mergeFingerprints(sources []*fingerprint.Fingerprint, now time.Time) *fingerprint.Fingerprint {
	weights := make([]float64, len(sources))
	for i, f := range sources {
		weights[i] = f.Importance + 0.01 // an all-zero-importance merge must not collapse to a zero vector
	}

	dense := func(pick func(*fingerprint.Fingerprint) []float32) []float32 {
		vecs := make([][]float32, len(sources))
		for i, f := range sources {
			vecs[i] = pick(f)
		}
		return weightedAverage(vecs, weights)
	}
	sparse := func(pick func(*fingerprint.Fingerprint) []fingerprint.SparsePair) []fingerprint.SparsePair {
		pairs := make([][]fingerprint.SparsePair, len(sources))
		for i, f := range sources {
			pairs[i] = pick(f)
		}
		return unionSparse(pairs, weights)
	}

	var maxImportance float64
	for _, f := range sources {
		if f.Importance > maxImportance {
			maxImportance = f.Importance
		}
	}

	merged := &fingerprint.Fingerprint{
		ID:          uuid.New(),
		ContentHash: mergedContentHash(sources),
		CreatedAt:   now,
		LastUpdated: now,
		Importance:  maxImportance,

		E1: dense(func(f *fingerprint.Fingerprint) []float32 { return f.E1 }),
		E2: dense(func(f *fingerprint.Fingerprint) []float32 { return f.E2 }),
		E3: dense(func(f *fingerprint.Fingerprint) []float32 { return f.E3 }),
		E4: dense(func(f *fingerprint.Fingerprint) []float32 { return f.E4 }),

		E5AsCause:  dense(func(f *fingerprint.Fingerprint) []float32 { return f.E5AsCause }),
		E5AsEffect: dense(func(f *fingerprint.Fingerprint) []float32 { return f.E5AsEffect }),

		E6: sparse(func(f *fingerprint.Fingerprint) []fingerprint.SparsePair { return f.E6 }),

		E7: dense(func(f *fingerprint.Fingerprint) []float32 { return f.E7 }),

		E8AsSource: dense(func(f *fingerprint.Fingerprint) []float32 { return f.E8AsSource }),
		E8AsTarget: dense(func(f *fingerprint.Fingerprint) []float32 { return f.E8AsTarget }),

		E9:  dense(func(f *fingerprint.Fingerprint) []float32 { return f.E9 }),
		E10: dense(func(f *fingerprint.Fingerprint) []float32 { return f.E10 }),
		E11: dense(func(f *fingerprint.Fingerprint) []float32 { return f.E11 }),
		E12: mergeTokenSequences(sources),
		E13: sparse(func(f *fingerprint.Fingerprint) []fingerprint.SparsePair { return f.E13 }),
	}
	merged.ClampImportance()
	return merged
}

// weightedAverage combines same-dimension vectors elementwise by weight.
// Every source fingerprint already passed Validate, so all vectors for a
// given view share the same dimension; an empty vecs entry (should not
// happen for a validated fingerprint) is simply skipped.
func weightedAverage(vecs [][]float32, weights []float64) []float32 {
	dim := 0
	for _, v := range vecs {
		if len(v) > dim {
			dim = len(v)
		}
	}
	if dim == 0 {
		return nil
	}
	out := make([]float64, dim)
	var total float64
	for i, v := range vecs {
		if len(v) != dim {
			continue
		}
		for j, x := range v {
			out[j] += weights[i] * float64(x)
		}
		total += weights[i]
	}
	if total == 0 {
		total = 1
	}
	result := make([]float32, dim)
	for j, x := range out {
		result[j] = float32(x / total)
	}
	return result
}

// unionSparse combines each source's postings by term id, summing
// weight-scaled contributions so a term present in several sources
// accumulates rather than being overwritten.
func unionSparse(pairs [][]fingerprint.SparsePair, weights []float64) []fingerprint.SparsePair {
	acc := make(map[uint16]float64)
	for i, ps := range pairs {
		for _, p := range ps {
			acc[p.TermID] += weights[i] * float64(p.Weight)
		}
	}
	out := make([]fingerprint.SparsePair, 0, len(acc))
	for term, w := range acc {
		out = append(out, fingerprint.SparsePair{TermID: term, Weight: float32(w)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TermID < out[j].TermID })
	return out
}

// mergeTokenSequences concatenates each source's e12 tokens in source
// order, capped at mergedTokenCap so the merge stays a reasonable MaxSim
// candidate.
func mergeTokenSequences(sources []*fingerprint.Fingerprint) [][]float32 {
	var out [][]float32
	for _, f := range sources {
		for _, tok := range f.E12 {
			if len(out) >= mergedTokenCap {
				return out
			}
			out = append(out, tok)
		}
	}
	return out
}

// mergedContentHash stands in for a merge's missing source text: the
// fingerprint has no persisted content (only a content hash is required,
// not a content store), so a merge hashes its sources' own ids in
// sorted order rather than the unrecoverable original text.
func mergedContentHash(sources []*fingerprint.Fingerprint) [32]byte {
	ids := make([]string, len(sources))
	for i, f := range sources {
		ids[i] = f.ID.String()
	}
	sort.Strings(ids)
	return fingerprint.ContentHash("merge:" + strings.Join(ids, "+"))
}
