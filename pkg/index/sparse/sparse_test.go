package sparse

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/latticeforge/fpengine/pkg/fingerprint"
)

func TestIDFDecreasesWithDocFrequency(t *testing.T) {
	rare := IDF(1000, 1)
	common := IDF(1000, 500)
	require.Greater(t, rare, common, "a rarer term must carry a higher IDF")
}

func TestBM25TermZeroForAbsentTerm(t *testing.T) {
	require.Equal(t, 0.0, BM25Term(1.5, 0, 10, 10))
}

func TestIndexSearchRanksExactMatchFirst(t *testing.T) {
	ctx := context.Background()
	idx := NewIndex()
	exact := uuid.New()
	partial := uuid.New()

	require.NoError(t, idx.Add(ctx, exact, []fingerprint.SparsePair{{TermID: 1, Weight: 2}, {TermID: 2, Weight: 1}}))
	require.NoError(t, idx.Add(ctx, partial, []fingerprint.SparsePair{{TermID: 1, Weight: 2}}))

	results, err := idx.Search(ctx, []fingerprint.SparsePair{{TermID: 1, Weight: 1}, {TermID: 2, Weight: 1}}, 10, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, exact, results[0].ID)
}

func TestIndexSearchExcludesSoftDeleted(t *testing.T) {
	ctx := context.Background()
	idx := NewIndex()
	id := uuid.New()
	require.NoError(t, idx.Add(ctx, id, []fingerprint.SparsePair{{TermID: 5, Weight: 1}}))

	results, err := idx.Search(ctx, []fingerprint.SparsePair{{TermID: 5, Weight: 1}}, 10, 1, map[uuid.UUID]struct{}{id: {}})
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestIndexRemoveDropsPostings(t *testing.T) {
	ctx := context.Background()
	idx := NewIndex()
	id := uuid.New()
	pairs := []fingerprint.SparsePair{{TermID: 7, Weight: 1}}
	require.NoError(t, idx.Add(ctx, id, pairs))
	require.NoError(t, idx.Remove(ctx, id, pairs))

	results, err := idx.Search(ctx, pairs, 10, 1, nil)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestIndexSearchAfterBreakFails(t *testing.T) {
	ctx := context.Background()
	idx := NewIndex()
	idx.broken = true
	_, err := idx.Search(ctx, []fingerprint.SparsePair{{TermID: 1, Weight: 1}}, 10, 1, nil)
	require.Error(t, err)
}
