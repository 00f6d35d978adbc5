package scoring

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticeforge/fpengine/pkg/fingerprint"
)

func TestPlainIdenticalVectorsScoresOne(t *testing.T) {
	v := []float32{1, 2, 3}
	require.InDelta(t, 1.0, Plain(v, v), 1e-6)
}

func TestCausalAutoPicksHigherHalf(t *testing.T) {
	doc := &fingerprint.Fingerprint{
		E5AsCause:  []float32{0, 1},
		E5AsEffect: []float32{1, 0},
	}
	query := []float32{1, 0}
	got := Causal(query, doc, DirectionAuto)
	require.InDelta(t, clampUnit(1.0*causeBoost), got, 1e-6)
}

func TestCausalDirectionEffectAppliesEffectBoost(t *testing.T) {
	doc := &fingerprint.Fingerprint{
		E5AsCause:  []float32{1, 0},
		E5AsEffect: []float32{1, 0},
	}
	got := Causal([]float32{1, 0}, doc, DirectionEffect)
	require.InDelta(t, clampUnit(1.0*effectBoost), got, 1e-6)
}

func TestGraphDirectionSourceAppliesCauseBoost(t *testing.T) {
	doc := &fingerprint.Fingerprint{
		E8AsSource: []float32{0, 1},
		E8AsTarget: []float32{1, 0},
	}
	got := Graph([]float32{1, 0}, doc, DirectionSource)
	require.InDelta(t, clampUnit(1.0*causeBoost), got, 1e-6)
}

func TestIntentZeroE1YieldsNoBoost(t *testing.T) {
	// Anti-parallel e1 vectors give e1_raw = 0 under the (raw+1)/2
	// convention; a zero vector would give 0.5.
	opposite := []float32{-1, 0}
	result := Intent(opposite, []float32{1, 0}, []float32{1, 0}, []float32{1, 0})
	require.False(t, result.BoostFired)
	require.Equal(t, 0.0, result.Boosted)
}

func TestIntentBoostStrongerWhenFoundationWeak(t *testing.T) {
	weak := IntentBoost(0.2, 1.0)
	strong := IntentBoost(0.9, 1.0)
	require.Greater(t, weak, strong, "a weaker foundation match should receive a larger boost percentage")
}

func TestIntentBoostClampedToRange(t *testing.T) {
	require.GreaterOrEqual(t, IntentBoost(0.1, 1.0), 0.8)
	require.LessOrEqual(t, IntentBoost(0.1, 1.0), 1.2)
}

func TestBreakdownDominantPicksHighestScore(t *testing.T) {
	b := Breakdown{fingerprint.E1: 0.4, fingerprint.E7: 0.9, fingerprint.E11: 0.2}
	dom, ok := b.Dominant()
	require.True(t, ok)
	require.Equal(t, fingerprint.E7, dom)
}

func TestBreakdownOrderedMatchesViewTableLength(t *testing.T) {
	b := Breakdown{fingerprint.E1: 0.5}
	require.Len(t, b.Ordered(), len(fingerprint.ViewTable))
}

func TestBreakdownDominantEmptyReturnsFalse(t *testing.T) {
	_, ok := Breakdown{}.Dominant()
	require.False(t, ok)
}
