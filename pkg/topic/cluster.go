// Package topic discovers clusters of mutually-similar memories across
// semantic views and tracks their lifecycle.
//
// No clustering library appears anywhere in the retrieval pack — the
// pkg/memory and the rest of the corpus only ever call out to vector stores
// and embedding SDKs, never a clustering package — so densityCluster below
// is hand-written against the standard library (DESIGN.md records this the
// same way it records pkg/index/dense.NSWIndex). It follows the shape of a
// textbook DBSCAN: a point is a cluster core if at least minPts neighbors
// fall within eps cosine-distance of it, and cores within eps of each other
// share a cluster; everything else is noise.
package topic

import (
	"github.com/google/uuid"

	"github.com/latticeforge/fpengine/pkg/index/dense"
)

// noiseLabel marks a point that densityCluster could not assign to any
// cluster.
const noiseLabel = -1

// densityCluster partitions vectors into clusters by cosine distance,
// returning a label per id (noiseLabel for unclustered points). Cosine
// distance is 1 - cosine similarity, so eps is a distance in [0, 2].
func densityCluster(vectors map[uuid.UUID][]float32, eps float64, minPts int) map[uuid.UUID]int {
	labels := make(map[uuid.UUID]int, len(vectors))
	ids := make([]uuid.UUID, 0, len(vectors))
	for id := range vectors {
		labels[id] = noiseLabel
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return labels
	}

	neighborsOf := func(id uuid.UUID) []uuid.UUID {
		var out []uuid.UUID
		for _, other := range ids {
			if other == id {
				continue
			}
			if 1-dense.Cosine(vectors[id], vectors[other]) <= eps {
				out = append(out, other)
			}
		}
		return out
	}

	visited := make(map[uuid.UUID]bool, len(ids))
	nextLabel := 0

	for _, id := range ids {
		if visited[id] {
			continue
		}
		visited[id] = true
		neighbors := neighborsOf(id)
		if len(neighbors) < minPts {
			continue // stays noise
		}
		label := nextLabel
		nextLabel++
		labels[id] = label

		queue := append([]uuid.UUID{}, neighbors...)
		for len(queue) > 0 {
			cand := queue[0]
			queue = queue[1:]
			if !visited[cand] {
				visited[cand] = true
				candNeighbors := neighborsOf(cand)
				if len(candNeighbors) >= minPts {
					queue = append(queue, candNeighbors...)
				}
			}
			if labels[cand] == noiseLabel {
				labels[cand] = label
			}
		}
	}
	return labels
}

// membersByLabel groups ids by their cluster label, dropping noise.
func membersByLabel(labels map[uuid.UUID]int) map[int][]uuid.UUID {
	out := make(map[int][]uuid.UUID)
	for id, label := range labels {
		if label == noiseLabel {
			continue
		}
		out[label] = append(out[label], id)
	}
	return out
}

// overlapRatio is |a ∩ b| / |a|, the fraction of candidate set a that also
// falls inside comparison set b — used to decide whether a cluster formed
// in one view is "the same" cluster seen in another view.
func overlapRatio(a []uuid.UUID, b map[uuid.UUID]struct{}) float64 {
	if len(a) == 0 {
		return 0
	}
	hit := 0
	for _, id := range a {
		if _, ok := b[id]; ok {
			hit++
		}
	}
	return float64(hit) / float64(len(a))
}

func toSet(ids []uuid.UUID) map[uuid.UUID]struct{} {
	out := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}
