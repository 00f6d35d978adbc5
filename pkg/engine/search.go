package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/latticeforge/fpengine/pkg/fingerprint"
	"github.com/latticeforge/fpengine/pkg/fpengine"
	"github.com/latticeforge/fpengine/pkg/pipeline"
	"github.com/latticeforge/fpengine/pkg/profile"
	"github.com/latticeforge/fpengine/pkg/scoring"
)

// Strategy names its search `strategy` parameter.
const (
	StrategyFoundation = "foundation"
	StrategyMultiView  = "multi_view"
	StrategyPipeline   = "pipeline"
)

// SearchRequest is search's full parameter set.
type SearchRequest struct {
	Query             string
	TopK              int
	MinSimilarity     float64
	Strategy          string
	ProfileName       string
	CustomWeights     map[fingerprint.ViewID]float64
	ExcludeViews      []fingerprint.ViewID
	IncludeBreakdown  bool
	IncludeProvenance bool
	EnableRerank      bool
	CausalDirection   string
	TemporalWeight    float64
	SessionScope      string
}

// SearchResult extends the pipeline's per-result provenance with the
// post-retrieval-only temporal badge (""e2, e3, e4 may be
// applied as a badge on results... never used for ranking").
type SearchResult struct {
	pipeline.Result
	TemporalBadge float64
}

// SearchResponse is search's response envelope.
type SearchResponse struct {
	Results       []SearchResult
	DegradedViews []fingerprint.ViewID
}

func parseDirection(s string) scoring.Direction {
	switch scoring.Direction(s) {
	case scoring.DirectionCause, scoring.DirectionEffect, scoring.DirectionSource, scoring.DirectionTarget:
		return scoring.Direction(s)
	default:
		return scoring.DirectionAuto
	}
}

// resolveWeights picks exactly one of profile_name/custom_weights
// (specifying both fails with InvalidArgument), validates a custom
// weighting against the profile invariants, and applies exclude_views.
func (e *Engine) resolveWeights(req SearchRequest) (map[fingerprint.ViewID]float64, error) {
	namedProfile := req.ProfileName != ""
	customProfile := req.CustomWeights != nil
	if namedProfile == customProfile {
		return nil, fpengine.New(fpengine.KindInvalidArgument, "exactly one of profile_name or custom_weights is required")
	}

	var weights map[fingerprint.ViewID]float64
	if namedProfile {
		p, ok := e.profiles.Get(req.ProfileName)
		if !ok {
			return nil, fpengine.New(fpengine.KindInvalidArgument, "unknown profile %s", req.ProfileName).WithContext("argument", "profile_name")
		}
		weights = cloneWeights(p.Weights)
	} else {
		p := profile.Profile{Name: "custom", Weights: req.CustomWeights, Pipeline: req.Strategy == StrategyPipeline}
		if err := profile.Validate(p); err != nil {
			return nil, err
		}
		weights = cloneWeights(req.CustomWeights)
	}

	for _, view := range req.ExcludeViews {
		if view == fingerprint.E1 {
			return nil, fpengine.New(fpengine.KindInvalidArgument, "cannot exclude the foundation view e1").WithContext("argument", "exclude_views")
		}
		weights[view] = 0
	}
	return weights, nil
}

func cloneWeights(in map[fingerprint.ViewID]float64) map[fingerprint.ViewID]float64 {
	out := make(map[fingerprint.ViewID]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// buildQuery embeds req.Query and assembles the pipeline.Query every
// strategy shares.
func (e *Engine) buildQuery(ctx context.Context, req SearchRequest, weights map[fingerprint.ViewID]float64) (pipeline.Query, error) {
	views, err := e.embedder.Embed(ctx, req.Query)
	if err != nil {
		return pipeline.Query{}, fpengine.Wrap(fpengine.KindEmbedderUnavailable, err, "embed query for search")
	}
	// top_k=0 is a literal request for an empty result, not "unspecified";
	// only a negative value falls back to the documented default of 10,
	// since the RPC wrapper that would normally fill in an omitted default
	// is out of scope here.
	topK := req.TopK
	if topK < 0 {
		topK = 10
	}
	return pipeline.Query{
		DenseVectors: map[fingerprint.ViewID][]float32{
			fingerprint.E1:  views.E1,
			fingerprint.E2:  views.E2,
			fingerprint.E3:  views.E3,
			fingerprint.E4:  views.E4,
			fingerprint.E5:  views.E5AsCause,
			fingerprint.E7:  views.E7,
			fingerprint.E8:  views.E8AsSource,
			fingerprint.E9:  views.E9,
			fingerprint.E10: views.E10,
			fingerprint.E11: views.E11,
		},
		SparseTerms: map[fingerprint.ViewID][]fingerprint.SparsePair{
			fingerprint.E6:  views.E6,
			fingerprint.E13: views.E13,
		},
		Tokens:    views.E12,
		TopK:      topK,
		Direction: parseDirection(req.CausalDirection),
		Weights:   weights,
		Excluded:  map[uuid.UUID]struct{}{},
	}, nil
}

// Search dispatches to the requested retrieval strategy.
func (e *Engine) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	if req.Query == "" {
		return SearchResponse{}, fpengine.New(fpengine.KindInvalidArgument, "query is required").WithContext("argument", "query")
	}
	weights, err := e.resolveWeights(req)
	if err != nil {
		return SearchResponse{}, err
	}
	q, err := e.buildQuery(ctx, req, weights)
	if err != nil {
		return SearchResponse{}, err
	}

	e.mu.RLock()
	idx := e.pipelineIndexes()
	e.mu.RUnlock()

	var resp pipeline.Response
	switch req.Strategy {
	case StrategyFoundation:
		resp, err = pipeline.StrategyA(ctx, idx, q)
	case StrategyPipeline:
		resp, err = pipeline.StrategyC(ctx, idx, q, req.EnableRerank)
	default:
		resp, err = pipeline.StrategyB(ctx, idx, q)
	}
	if err != nil {
		return SearchResponse{}, err
	}

	out := SearchResponse{DegradedViews: resp.DegradedViews}
	for _, r := range resp.Results {
		if r.Similarity < req.MinSimilarity {
			continue
		}
		sr := SearchResult{Result: r}
		if req.TemporalWeight > 0 {
			sr.TemporalBadge = e.temporalBadge(ctx, q, r.ID, req.TemporalWeight)
		}
		out.Results = append(out.Results, sr)
	}

	e.metrics.IncSearched(len(out.Results))
	if len(resp.DegradedViews) > 0 {
		e.metrics.IncDegradedQueries()
	}
	return out, nil
}

// temporalBadge computes the post-retrieval-only recency/periodicity badge
//: never fed into fusion, purely an additional signal attached
// to an already-ranked result.
func (e *Engine) temporalBadge(ctx context.Context, q pipeline.Query, id uuid.UUID, weight float64) float64 {
	doc, err := e.store.Get(ctx, id)
	if err != nil || len(doc.E2) == 0 || len(q.DenseVectors[fingerprint.E2]) == 0 {
		return 0
	}
	return weight * scoring.Plain(q.DenseVectors[fingerprint.E2], doc.E2)
}
