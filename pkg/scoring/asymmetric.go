package scoring

// IntentBoost implements e10's multiplicative boost on e1: the
// Open Question's observed piecewise function (SPEC_FULL/DESIGN decision) —
// +15% when e1_raw < 0.4, +10% when 0.4 <= e1_raw < 0.8, +5% when e1_raw >=
// 0.8 — adaptively stronger when the foundation match is weak, clamped to
// [0.8, 1.2]. e1Raw and e10Raw are both already-clamped [0,1] similarities
// (cosineUnit outputs), not raw cosine.
func IntentBoost(e1Raw, e10Raw float64) float64 {
	if e1Raw <= 0 {
		return 0 // e10's contribution is defined as 0 when e1_raw is 0.
	}
	var pct float64
	switch {
	case e1Raw < 0.4:
		pct = 0.15
	case e1Raw < 0.8:
		pct = 0.10
	default:
		pct = 0.05
	}
	// e10Raw scales how much of the available boost actually applies: a
	// weak intent match (low e10Raw) pulls the boost toward 1.0 instead of
	// granting the full adaptive percentage regardless of e10's own signal.
	boost := 1 + pct*e10Raw
	if boost < 0.8 {
		boost = 0.8
	}
	if boost > 1.2 {
		boost = 1.2
	}
	return boost
}

// IntentResult carries both the pre- and post-boost e1 value, since
// per-result provenance must surface both when the boost
// fires.
type IntentResult struct {
	E1Raw     float64
	E10Raw    float64
	Boost     float64
	Boosted   float64
	BoostFired bool
}

// Intent computes e10's multiplicative boost on e1 end to end.
func Intent(queryE1, docE1, queryE10, docE10 []float32) IntentResult {
	e1Raw := cosineUnit(queryE1, docE1)
	e10Raw := cosineUnit(queryE10, docE10)
	if e1Raw == 0 {
		return IntentResult{E1Raw: 0, E10Raw: e10Raw, Boost: 1, Boosted: 0}
	}
	boost := IntentBoost(e1Raw, e10Raw)
	return IntentResult{
		E1Raw:      e1Raw,
		E10Raw:     e10Raw,
		Boost:      boost,
		Boosted:    clampUnit(e1Raw * boost),
		BoostFired: true,
	}
}
