package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/latticeforge/fpengine/pkg/fingerprint"
	"github.com/latticeforge/fpengine/pkg/profile"
	"github.com/latticeforge/fpengine/pkg/topic"
)

// DetectTopics runs density clustering over every live memory's dense
// non-temporal views (e5 and e8 through their cause/source halves; the
// sparse e6/e13 and token-sequence e12 views are not clustered) and caches
// the resulting portfolio. force
// re-runs detection even if it was run very recently;
// without force, a caller that calls detect_topics in a tight loop gets the
// cached portfolio back instead of re-clustering the whole corpus each time.
func (e *Engine) DetectTopics(ctx context.Context, force bool) ([]topic.Topic, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !force && e.topics != nil {
		return e.topics, nil
	}

	vectors := make(topic.Vectors, len(fingerprint.ViewTable))
	for _, view := range fingerprint.ViewTable {
		if view.Category == fingerprint.CategoryTemporal {
			continue
		}
		vectors[view.ID] = make(map[uuid.UUID][]float32)
	}
	err := e.store.ForEach(ctx, func(f *fingerprint.Fingerprint) error {
		if f.IsDeleted() {
			return nil
		}
		for _, view := range fingerprint.ViewTable {
			if view.Category == fingerprint.CategoryTemporal {
				continue
			}
			if vec := f.Dense(view.ID, ""); len(vec) > 0 {
				vectors[view.ID][f.ID] = vec
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	now := e.clock()
	detected := e.topicDetector.Detect(vectors, now, e.topics)
	e.topics = detected
	e.topicVectors = vectors
	e.metrics.IncTopicsDetected(len(detected))
	return detected, nil
}

// GetTopicPortfolio returns the cached topic portfolio, detecting it first
// if detect_topics has never run.
func (e *Engine) GetTopicPortfolio(ctx context.Context) ([]topic.Topic, error) {
	e.mu.RLock()
	cached := e.topics
	e.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}
	return e.DetectTopics(ctx, true)
}

// GetTopicStability reports, for each topic in the current portfolio, how
// long it has held its current phase — a simple proxy for "stability"
// given the engine does not persist a per-topic phase-history log.
type TopicStability struct {
	TopicID    uuid.UUID
	Phase      topic.Phase
	Age        time.Duration
	MemberSize int
}

func (e *Engine) GetTopicStability(ctx context.Context) ([]TopicStability, error) {
	topics, err := e.GetTopicPortfolio(ctx)
	if err != nil {
		return nil, err
	}
	now := e.clock()
	out := make([]TopicStability, 0, len(topics))
	for _, t := range topics {
		out = append(out, TopicStability{
			TopicID:    t.ID,
			Phase:      t.Phase,
			Age:        now.Sub(t.CreatedAt),
			MemberSize: len(t.Members),
		})
	}
	return out, nil
}

// GetDivergenceAlerts scans memories created within lookback against the
// current topic portfolio's centroids, flagging anything that fits no
// topic's semantic profile.
func (e *Engine) GetDivergenceAlerts(ctx context.Context, lookback time.Duration) ([]topic.Alert, error) {
	e.mu.RLock()
	portfolio := e.topics
	e.mu.RUnlock()
	if len(portfolio) == 0 {
		return nil, nil
	}

	semanticViews := fingerprint.SemanticViews()
	dims := make(map[fingerprint.ViewID]int, len(semanticViews))
	for _, v := range semanticViews {
		spec, _ := fingerprint.Spec(v)
		dims[v] = spec.Dim
	}

	centroids := make(map[uuid.UUID]map[fingerprint.ViewID][]float32, len(portfolio))
	e.mu.RLock()
	vectors := e.topicVectors
	e.mu.RUnlock()
	for _, t := range portfolio {
		centroids[t.ID] = topic.Centroid(t.Members, vectors, semanticViews, dims)
	}

	now := e.clock()
	cutoff := now.Add(-lookback)
	recent := make(map[uuid.UUID]map[fingerprint.ViewID][]float32)
	err := e.store.ForEach(ctx, func(f *fingerprint.Fingerprint) error {
		if f.IsDeleted() || f.CreatedAt.Before(cutoff) {
			return nil
		}
		views := make(map[fingerprint.ViewID][]float32, len(semanticViews))
		for _, v := range semanticViews {
			if vec := f.Dense(v, ""); len(vec) > 0 {
				views[v] = vec
			}
		}
		recent[f.ID] = views
		return nil
	})
	if err != nil {
		return nil, err
	}

	return topic.Divergence(recent, portfolio, centroids, now), nil
}

// CreateWeightProfile registers a custom named weight profile.
func (e *Engine) CreateWeightProfile(ctx context.Context, p profile.Profile) error {
	return e.profiles.Create(ctx, p)
}
