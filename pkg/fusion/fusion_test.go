package fusion

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/latticeforge/fpengine/pkg/fingerprint"
)

func TestFuseFavorsTopRankAcrossViews(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	input := Input{
		fingerprint.E1: {{ID: a, Similarity: 0.9}, {ID: b, Similarity: 0.8}},
		fingerprint.E7: {{ID: a, Similarity: 0.7}, {ID: b, Similarity: 0.95}},
	}
	weights := map[fingerprint.ViewID]float64{fingerprint.E1: 0.5, fingerprint.E7: 0.5}
	out := Fuse(input, weights)
	require.Len(t, out, 2)
	require.Equal(t, a, out[0].ID, "a ranks first in both views' top position contributions combined")
}

func TestFuseIgnoresZeroWeightView(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	input := Input{
		fingerprint.E1: {{ID: a, Similarity: 0.9}, {ID: b, Similarity: 0.1}},
	}
	weights := map[fingerprint.ViewID]float64{fingerprint.E1: 0}
	out := Fuse(input, weights)
	require.Empty(t, out)
}

func TestFuseDegenerateViewSuppressed(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	flat := Input{
		// every candidate scores identically under e2 (degenerate signal)
		fingerprint.E2: {{ID: a, Similarity: 0.5}, {ID: b, Similarity: 0.5}, {ID: c, Similarity: 0.5}},
		fingerprint.E1: {{ID: b, Similarity: 0.9}, {ID: a, Similarity: 0.5}, {ID: c, Similarity: 0.1}},
	}
	weights := map[fingerprint.ViewID]float64{fingerprint.E2: 0.5, fingerprint.E1: 0.5}
	out := Fuse(flat, weights)
	require.Equal(t, b, out[0].ID, "e1's real ranking should dominate once e2's flat signal is demoted")
}

func TestFuseStableTieBreakByID(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	input := Input{fingerprint.E1: {{ID: a, Similarity: 0.5}, {ID: b, Similarity: 0.5}}}
	weights := map[fingerprint.ViewID]float64{fingerprint.E1: 1.0}
	out1 := Fuse(input, weights)
	out2 := Fuse(input, weights)
	require.Equal(t, out1, out2, "tie-break must be deterministic across calls")
}

func TestSampleVarianceUndefinedBelowTwoSamples(t *testing.T) {
	require.Equal(t, 0.0, sampleVariance([]float64{0.5}))
}
