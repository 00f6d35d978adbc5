package topic

import (
	"time"

	"github.com/google/uuid"

	"github.com/latticeforge/fpengine/pkg/fingerprint"
	"github.com/latticeforge/fpengine/pkg/index/dense"
)

// DivergenceThreshold is a low-threshold cutoff left numerically
// unspecified upstream; 0.3 is a calibrated judgment call
// (a memory averaging below 0.3 cosine-similarity-as-[0,1] against every
// current topic, across every semantic view, reads as genuinely off-topic
// rather than merely a weak match).
const DivergenceThreshold = 0.3

// Alert is a divergence alert: a recent memory that does not fit any
// current topic's semantic profile.
type Alert struct {
	MemoryID  uuid.UUID
	BestTopic uuid.UUID
	BestScore float64
	CreatedAt time.Time
}

// Divergence checks recent (memory id -> per-semantic-view vector) against
// portfolio, emitting one Alert per memory whose best semantic-view
// agreement against every topic falls below DivergenceThreshold. Only
// semantic views participate — never temporal.
func Divergence(recent map[uuid.UUID]map[fingerprint.ViewID][]float32, portfolio []Topic, topicCentroids map[uuid.UUID]map[fingerprint.ViewID][]float32, now time.Time) []Alert {
	if len(portfolio) == 0 {
		return nil
	}
	semanticViews := fingerprint.SemanticViews()
	var alerts []Alert

	for memID, views := range recent {
		bestScore := -1.0
		var bestTopic uuid.UUID
		for _, topic := range portfolio {
			centroid, ok := topicCentroids[topic.ID]
			if !ok {
				continue
			}
			score := semanticAgreement(views, centroid, semanticViews)
			if score > bestScore {
				bestScore = score
				bestTopic = topic.ID
			}
		}
		if bestScore < 0 {
			continue
		}
		if bestScore < DivergenceThreshold {
			alerts = append(alerts, Alert{MemoryID: memID, BestTopic: bestTopic, BestScore: bestScore, CreatedAt: now})
		}
	}
	return alerts
}

// semanticAgreement averages cosine similarity (rescaled to [0,1]) across
// every semantic view both sides carry a vector for.
func semanticAgreement(a, b map[fingerprint.ViewID][]float32, views []fingerprint.ViewID) float64 {
	var sum float64
	var n int
	for _, v := range views {
		av, aok := a[v]
		bv, bok := b[v]
		if !aok || !bok {
			continue
		}
		sum += (dense.Cosine(av, bv) + 1) / 2
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Centroid computes the per-view mean vector across a topic's members,
// used by Divergence as the topic's representative point. dims gives each
// view's vector length so a topic with zero surviving members of a view
// still yields a well-formed (if meaningless) zero vector rather than a nil
// one.
func Centroid(members []uuid.UUID, vectors Vectors, views []fingerprint.ViewID, dims map[fingerprint.ViewID]int) map[fingerprint.ViewID][]float32 {
	out := make(map[fingerprint.ViewID][]float32, len(views))
	for _, v := range views {
		dim := dims[v]
		sum := make([]float64, dim)
		count := 0
		for _, id := range members {
			vec, ok := vectors[v][id]
			if !ok || len(vec) != dim {
				continue
			}
			for i, f := range vec {
				sum[i] += float64(f)
			}
			count++
		}
		centroid := make([]float32, dim)
		if count > 0 {
			for i := range sum {
				centroid[i] = float32(sum[i] / float64(count))
			}
		}
		out[v] = centroid
	}
	return out
}
