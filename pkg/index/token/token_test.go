package token

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestMaxSimIdenticalSequences(t *testing.T) {
	seq := [][]float32{{1, 0}, {0, 1}}
	got := MaxSim(seq, seq)
	require.InDelta(t, 1.0, got, 1e-6)
}

func TestMaxSimEmptyYieldsZero(t *testing.T) {
	require.Equal(t, 0.0, MaxSim(nil, [][]float32{{1, 0}}))
}

func TestIndexSearchRanksBestMatch(t *testing.T) {
	ctx := context.Background()
	idx := NewIndex()
	best, worst := uuid.New(), uuid.New()
	require.NoError(t, idx.Add(ctx, best, [][]float32{{1, 0}}))
	require.NoError(t, idx.Add(ctx, worst, [][]float32{{0, 1}}))

	results, err := idx.Search(ctx, [][]float32{{1, 0}}, []uuid.UUID{best, worst}, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, best, results[0].ID)
}

func TestIndexRemoveDropsSequence(t *testing.T) {
	ctx := context.Background()
	idx := NewIndex()
	id := uuid.New()
	require.NoError(t, idx.Add(ctx, id, [][]float32{{1, 0}}))
	require.NoError(t, idx.Remove(ctx, id))

	results, err := idx.Search(ctx, [][]float32{{1, 0}}, []uuid.UUID{id}, 10)
	require.NoError(t, err)
	require.Empty(t, results)
}
