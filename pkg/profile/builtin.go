package profile

import "github.com/latticeforge/fpengine/pkg/fingerprint"

// Recognized builtin profile names — a closed set, resolved here as the
// full set of named profiles the engine recognizes at load time.
const (
	SemanticSearch        = "semantic_search"
	CausalReasoning       = "causal_reasoning"
	CodeSearch            = "code_search"
	FactChecking          = "fact_checking"
	GraphReasoning        = "graph_reasoning"
	TemporalNavigation    = "temporal_navigation"
	SequenceNavigation    = "sequence_navigation"
	ConversationHistory   = "conversation_history"
	TypoTolerant          = "typo_tolerant"
	PipelineStage1Recall  = "pipeline_stage1_recall"
	PipelineStage2Scoring = "pipeline_stage2_scoring"
	PipelineFull          = "pipeline_full"
	Balanced              = "balanced"
)

// w is a terse constructor to keep the weight tables below legible as a
// single literal per profile instead of thirteen repeated assignments.
func w(e1, e2, e3, e4, e5, e6, e7, e8, e9, e10, e11, e12, e13 float64) map[fingerprint.ViewID]float64 {
	return map[fingerprint.ViewID]float64{
		fingerprint.E1: e1, fingerprint.E2: e2, fingerprint.E3: e3, fingerprint.E4: e4,
		fingerprint.E5: e5, fingerprint.E6: e6, fingerprint.E7: e7, fingerprint.E8: e8,
		fingerprint.E9: e9, fingerprint.E10: e10, fingerprint.E11: e11,
		fingerprint.E12: e12, fingerprint.E13: e13,
	}
}

// Builtins returns the closed set of recognized named profiles, freshly
// constructed each call so a caller holding one can't mutate the package
// default.
func Builtins() []Profile {
	return []Profile{
		{Name: SemanticSearch, Weights: w(0.45, 0, 0, 0, 0.05, 0.15, 0.10, 0.05, 0.05, 0.10, 0.05, 0, 0)},
		{Name: CausalReasoning, Weights: w(0.20, 0, 0, 0, 0.50, 0.05, 0.05, 0.05, 0.05, 0.05, 0.05, 0, 0)},
		{Name: CodeSearch, Weights: w(0.20, 0, 0, 0, 0.02, 0.08, 0.55, 0.03, 0.07, 0.03, 0.02, 0, 0)},
		{Name: FactChecking, Weights: w(0.25, 0, 0, 0, 0.05, 0.45, 0.05, 0.05, 0.05, 0.05, 0.05, 0, 0)},
		{Name: GraphReasoning, Weights: w(0.15, 0, 0, 0, 0.10, 0.05, 0.05, 0.40, 0.05, 0.05, 0.15, 0, 0)},
		{Name: TemporalNavigation, Weights: w(0.20, 0.45, 0.10, 0.05, 0, 0.05, 0.05, 0, 0, 0, 0.10, 0, 0), Temporal: true},
		{Name: SequenceNavigation, Weights: w(0.20, 0.10, 0.10, 0.45, 0, 0.05, 0.05, 0, 0, 0, 0.05, 0, 0), Temporal: true},
		{Name: ConversationHistory, Weights: w(0.30, 0.35, 0.05, 0.05, 0, 0.05, 0.05, 0, 0, 0, 0.15, 0, 0), Temporal: true},
		{Name: TypoTolerant, Weights: w(0.20, 0, 0, 0, 0, 0.25, 0.05, 0.05, 0.05, 0.05, 0.05, 0, 0.30), Pipeline: true},
		{Name: PipelineStage1Recall, Weights: w(0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1.0), Pipeline: true},
		{Name: PipelineStage2Scoring, Weights: w(0.30, 0, 0, 0, 0.10, 0.10, 0.15, 0.10, 0.05, 0.10, 0.10, 0, 0), Pipeline: true},
		{Name: PipelineFull, Weights: w(0.25, 0, 0, 0, 0.08, 0.10, 0.12, 0.08, 0.05, 0.08, 0.09, 0.10, 0.05), Pipeline: true},
		{Name: Balanced, Weights: w(0.20, 0, 0, 0, 0.10, 0.10, 0.15, 0.10, 0.10, 0.10, 0.15, 0, 0)},
	}
}
