// Package profile carries named bundles of per-view fusion weights,
// validated against the engine's weight invariants before they can
// ever reach the Fusion Engine.
//
// pkg/memory/engine's own Options/DefaultOptions/withDefaults pattern
// (pkg/memory/engine's ScoreWeights, seeded at
// pkg/profile/_seed_options.go) is a single fixed five-component weighting
// (similarity/keywords/importance/recency/source) with partial-default
// filling; it does not generalize to a full 13-view weighting with
// closed-set named profiles and load-time validation, so that file was
// adapted only for its *shape* — a package-level registry of named
// defaults plus a withDefaults-style normalization step — not its content.
// See DESIGN.md.
package profile

import (
	"math"

	"github.com/latticeforge/fpengine/pkg/fingerprint"
	"github.com/latticeforge/fpengine/pkg/fpengine"
)

// sumTolerance is its "Weights sum to 1.0 (±1e-3)".
const sumTolerance = 1e-3

// Profile is a named full weighting over the thirteen views.
type Profile struct {
	Name    string
	Weights map[fingerprint.ViewID]float64

	// Temporal marks a profile exempt from the "temporal views are 0"
	// invariant — only temporal_navigation, sequence_navigation and
	// conversation_history set this.
	Temporal bool

	// Pipeline marks a profile meant to run the five-stage pipeline
	// (strategy C), exempting it from the rule that e12 and e13 stay 0.0
	// in profiles not meant to run the pipeline.
	Pipeline bool
}

// Validate checks a profile against every invariant, returning
// an *fpengine.Error{Kind: InvalidArgument} for the first violation found.
func Validate(p Profile) error {
	if p.Name == "" {
		return fpengine.New(fpengine.KindInvalidArgument, "profile name is required")
	}
	var sum float64
	for _, v := range fingerprint.ViewTable {
		sum += p.Weights[v.ID]
	}
	if math.Abs(sum-1.0) > sumTolerance {
		return fpengine.New(fpengine.KindInvalidArgument, "profile %s: weights sum to %.6f, want 1.0 +/- %.0e", p.Name, sum, sumTolerance).WithContext("argument", "weights")
	}
	if !p.Temporal {
		for _, id := range []fingerprint.ViewID{fingerprint.E2, fingerprint.E3, fingerprint.E4} {
			if p.Weights[id] != 0 {
				return fpengine.New(fpengine.KindInvalidArgument, "profile %s: temporal view %s must be 0.0 in a semantic profile", p.Name, id).WithContext("argument", "weights")
			}
		}
	}
	if !p.Pipeline {
		for _, id := range []fingerprint.ViewID{fingerprint.E12, fingerprint.E13} {
			if p.Weights[id] != 0 {
				return fpengine.New(fpengine.KindInvalidArgument, "profile %s: view %s must be 0.0 in a profile not meant to run the pipeline", p.Name, id).WithContext("argument", "weights")
			}
		}
	}
	if p.Weights[fingerprint.E1] < 0 {
		return fpengine.New(fpengine.KindInvalidArgument, "profile %s: e1 weight cannot be negative", p.Name)
	}
	for id, w := range p.Weights {
		if w < 0 {
			return fpengine.New(fpengine.KindInvalidArgument, "profile %s: negative weight for %s", p.Name, id).WithContext("argument", "weights")
		}
	}
	return nil
}
