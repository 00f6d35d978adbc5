package topic

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/latticeforge/fpengine/pkg/fingerprint"
)

// WeightedAgreementThreshold is the topicality cutoff: a cluster only
// becomes a topic once its weighted_agreement reaches this.
const WeightedAgreementThreshold = 2.5

// defaultEps/defaultMinPts are the density-clusterer parameters, a
// calibrated judgment call (tight enough that two
// dissimilar topics stay separate — e.g. "RocksDB LSM trees" vs "cache
// eviction policies" — loose enough that paraphrases of the same topic
// still cluster together).
const (
	defaultEps    = 0.35
	defaultMinPts = 2
	// overlapThreshold is how much of a candidate cluster (anchored on e1)
	// must reappear in another view's own clustering for that view to count
	// as "agreeing" in the weighted_agreement sum.
	overlapThreshold = 0.6
)

// Phase is a topic's lifecycle stage.
type Phase string

const (
	PhaseEmerging  Phase = "emerging"
	PhaseStable    Phase = "stable"
	PhaseDeclining Phase = "declining"
	PhaseMerging   Phase = "merging"
)

// Topic is its topic profile.
type Topic struct {
	ID               uuid.UUID
	Name             string
	Members          []uuid.UUID
	Strengths        map[fingerprint.ViewID]float64
	WeightedAgreement float64
	Phase            Phase
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// clusteringViews is the 10 non-temporal views topic detection checks:
// the seven semantic views (weighted at 1.0) plus the two relational and
// one structural view (weighted at 0.5, never driving cluster formation
// alone). Only views present in Vectors are clustered; Vectors carries
// dense vectors only, so the sparse e6/e13 and token-sequence e12 views
// are never clustered and add nothing to weighted_agreement.
func clusteringViews() []fingerprint.ViewID {
	var out []fingerprint.ViewID
	for _, v := range fingerprint.ViewTable {
		if v.Category == fingerprint.CategoryTemporal {
			continue
		}
		out = append(out, v.ID)
	}
	return out
}

// anchorView is the view whose clustering proposes candidate topics; every
// other non-temporal view is then checked for agreement against those
// candidates. e1 (foundation semantic) is the natural anchor since it is
// the view every memory is guaranteed to carry a well-formed embedding for.
const anchorView = fingerprint.E1

// Detector runs density-based clustering across semantic/relational/
// structural views and assembles the cross-view intersections into topics.
type Detector struct {
	eps              float64
	minPts           int
	overlapThreshold float64
	idFn             func() uuid.UUID
}

// NewDetector constructs a Detector with the default clustering parameters.
func NewDetector() *Detector {
	return &Detector{eps: defaultEps, minPts: defaultMinPts, overlapThreshold: overlapThreshold, idFn: uuid.New}
}

// Vectors is the per-view, per-memory vector set a Detect call clusters
// over; callers assemble it from the store (one read per live, non-deleted
// fingerprint).
type Vectors map[fingerprint.ViewID]map[uuid.UUID][]float32

// Detect runs the full algorithm over vectors, comparing
// against previous (the last detection's topic portfolio, possibly nil) to
// derive each surviving or new topic's phase.
func (d *Detector) Detect(vectors Vectors, now time.Time, previous []Topic) []Topic {
	anchorVectors := vectors[anchorView]
	if len(anchorVectors) == 0 {
		return nil
	}
	anchorLabels := densityCluster(anchorVectors, d.eps, d.minPts)
	anchorClusters := membersByLabel(anchorLabels)

	perViewClusters := make(map[fingerprint.ViewID]map[int][]uuid.UUID, len(clusteringViews()))
	for _, view := range clusteringViews() {
		vecs := vectors[view]
		if len(vecs) == 0 {
			continue
		}
		perViewClusters[view] = membersByLabel(densityCluster(vecs, d.eps, d.minPts))
	}

	var topics []Topic
	labelIDs := make([]int, 0, len(anchorClusters))
	for label := range anchorClusters {
		labelIDs = append(labelIDs, label)
	}
	sort.Ints(labelIDs)

	for _, label := range labelIDs {
		members := anchorClusters[label]
		if len(members) < d.minPts {
			continue
		}
		strengths, weightedAgreement := d.crossViewAgreement(members, perViewClusters, vectors)
		if weightedAgreement < WeightedAgreementThreshold {
			continue
		}
		t := Topic{
			ID:                d.idFn(),
			Members:           members,
			Strengths:         strengths,
			WeightedAgreement: weightedAgreement,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		t.Phase = derivePhase(t, previous, now)
		if prior, ok := matchPrevious(t, previous); ok {
			t.ID = prior.ID
			t.Name = prior.Name
			t.CreatedAt = prior.CreatedAt
		}
		topics = append(topics, t)
	}
	return topics
}

// crossViewAgreement computes, for the anchor-clustered member set, the
// membership ratio in every non-temporal view (the topic's strengths
// vector) and the weighted_agreement sum: a view "agrees" when at least
// overlapThreshold of members also co-cluster under that view.
func (d *Detector) crossViewAgreement(members []uuid.UUID, perViewClusters map[fingerprint.ViewID]map[int][]uuid.UUID, vectors Vectors) (map[fingerprint.ViewID]float64, float64) {
	memberSet := toSet(members)
	strengths := make(map[fingerprint.ViewID]float64, len(fingerprint.ViewTable))
	var weightedAgreement float64

	for _, spec := range fingerprint.ViewTable {
		clusters, ok := perViewClusters[spec.ID]
		if !ok {
			strengths[spec.ID] = 0
			continue
		}
		best := bestMatchingCluster(members, clusters)
		ratio := overlapRatio(members, toSet(best))
		strengths[spec.ID] = ratio
		if ratio >= d.overlapThreshold {
			weightedAgreement += fingerprint.CategoryWeight(spec.Category)
		}
	}
	_ = memberSet
	return strengths, weightedAgreement
}

// bestMatchingCluster returns the cluster (under one view's own clustering)
// with the highest membership overlap against members.
func bestMatchingCluster(members []uuid.UUID, clusters map[int][]uuid.UUID) []uuid.UUID {
	var best []uuid.UUID
	bestRatio := -1.0
	for _, candidate := range clusters {
		ratio := overlapRatio(members, toSet(candidate))
		if ratio > bestRatio {
			bestRatio = ratio
			best = candidate
		}
	}
	return best
}

// matchPrevious finds the previous-generation topic with the highest member
// overlap against t, so a re-detected topic keeps its identity and name
// instead of being treated as brand new every run.
func matchPrevious(t Topic, previous []Topic) (Topic, bool) {
	memberSet := toSet(t.Members)
	var best Topic
	bestRatio := 0.0
	found := false
	for _, p := range previous {
		ratio := overlapRatio(p.Members, memberSet)
		if ratio > bestRatio {
			bestRatio = ratio
			best = p
			found = true
		}
	}
	if !found || bestRatio < overlapThreshold {
		return Topic{}, false
	}
	return best, true
}

// derivePhase assigns a lifecycle phase from membership churn against the
// previous portfolio: no match is emerging, two or more matches merging,
// growth emerging, shrinkage declining, an unchanged size stable. The
// matched topic's age does not change the result.
func derivePhase(t Topic, previous []Topic, now time.Time) Phase {
	memberSet := toSet(t.Members)
	matches := 0
	var matched Topic
	for _, p := range previous {
		if overlapRatio(p.Members, memberSet) >= overlapThreshold || overlapRatio(t.Members, toSet(p.Members)) >= overlapThreshold {
			matches++
			matched = p
		}
	}
	switch {
	case matches == 0:
		return PhaseEmerging
	case matches >= 2:
		return PhaseMerging
	case len(t.Members) > len(matched.Members):
		return PhaseEmerging
	case len(t.Members) < len(matched.Members):
		return PhaseDeclining
	case now.Sub(matched.CreatedAt) > 24*time.Hour:
		return PhaseStable
	default:
		return PhaseStable
	}
}
