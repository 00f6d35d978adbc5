package dense

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/latticeforge/fpengine/pkg/fpengine"
)

// NSWIndex is a small-world-graph approximate nearest-neighbor index: every
// inserted vector links to its M nearest already-inserted neighbors, and
// search does greedy best-first traversal from up to ef entry points (the
// earliest-inserted ids). It
// trades exactness for sublinear-ish search without a library, since none
// exists in the corpus for this concern (see dense.go's package doc).
type NSWIndex struct {
	mu   sync.RWMutex
	dim  int
	m    int // neighbors per node at insert time
	ef   int // search breadth
	ids  []uuid.UUID
	vecs map[uuid.UUID][]float32
	adj  map[uuid.UUID]map[uuid.UUID]struct{}

	broken bool // set once a dimension mismatch or corruption is detected
}

// NewNSWIndex creates an empty index for vectors of the given dimension. m
// is the number of neighbor links kept per inserted node (16 is a
// conventional small-world default); ef is the candidate list size used
// during search (defaults to 4*m when <= 0).
func NewNSWIndex(dim, m, ef int) *NSWIndex {
	if m <= 0 {
		m = 16
	}
	if ef <= 0 {
		ef = 4 * m
	}
	return &NSWIndex{
		dim:  dim,
		m:    m,
		ef:   ef,
		vecs: make(map[uuid.UUID][]float32),
		adj:  make(map[uuid.UUID]map[uuid.UUID]struct{}),
	}
}

// Add inserts or replaces a vector under id.
func (idx *NSWIndex) Add(_ context.Context, id uuid.UUID, vec []float32) error {
	if len(vec) != idx.dim {
		idx.mu.Lock()
		idx.broken = true
		idx.mu.Unlock()
		return fpengine.New(fpengine.KindIndexUnavailable, "nsw index: vector dim %d != index dim %d", len(vec), idx.dim)
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.broken {
		return fpengine.New(fpengine.KindIndexUnavailable, "nsw index is in a broken state and must be rebuilt")
	}
	if _, exists := idx.vecs[id]; !exists {
		idx.ids = append(idx.ids, id)
	}
	idx.vecs[id] = vec
	idx.linkNeighbors(id, vec)
	return nil
}

// linkNeighbors must be called with idx.mu held.
func (idx *NSWIndex) linkNeighbors(id uuid.UUID, vec []float32) {
	type cand struct {
		id  uuid.UUID
		sim float64
	}
	cands := make([]cand, 0, len(idx.ids))
	for _, other := range idx.ids {
		if other == id {
			continue
		}
		cands = append(cands, cand{id: other, sim: Cosine(vec, idx.vecs[other])})
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].sim > cands[j].sim })
	if len(cands) > idx.m {
		cands = cands[:idx.m]
	}
	if idx.adj[id] == nil {
		idx.adj[id] = make(map[uuid.UUID]struct{})
	}
	for _, c := range cands {
		idx.adj[id][c.id] = struct{}{}
		if idx.adj[c.id] == nil {
			idx.adj[c.id] = make(map[uuid.UUID]struct{})
		}
		idx.adj[c.id][id] = struct{}{}
	}
}

// Remove deletes id and its edges from the graph.
func (idx *NSWIndex) Remove(_ context.Context, id uuid.UUID) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.vecs, id)
	for neighbor := range idx.adj[id] {
		delete(idx.adj[neighbor], id)
	}
	delete(idx.adj, id)
	for i, existing := range idx.ids {
		if existing == id {
			idx.ids = append(idx.ids[:i], idx.ids[i+1:]...)
			break
		}
	}
	return nil
}

// Neighbor is one scored search result.
type Neighbor struct {
	ID    uuid.UUID
	Score float64
}

// Search returns up to k nearest neighbors to query by greedy best-first
// walk of the graph, seeded from a handful of entry points so a single bad
// entry point doesn't strand the walk in a local optimum.
func (idx *NSWIndex) Search(_ context.Context, query []float32, k int) ([]Neighbor, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.broken {
		return nil, fpengine.New(fpengine.KindIndexUnavailable, "nsw index is in a broken state and must be rebuilt")
	}
	if len(idx.ids) == 0 {
		return nil, nil
	}
	visited := make(map[uuid.UUID]struct{})
	best := make(map[uuid.UUID]float64)

	entryPoints := idx.ids
	if len(entryPoints) > idx.ef {
		entryPoints = entryPoints[:idx.ef]
	}
	for _, entry := range entryPoints {
		idx.greedyWalk(query, entry, visited, best)
	}

	results := make([]Neighbor, 0, len(best))
	for id, score := range best {
		results = append(results, Neighbor{ID: id, Score: score})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (idx *NSWIndex) greedyWalk(query []float32, start uuid.UUID, visited map[uuid.UUID]struct{}, best map[uuid.UUID]float64) {
	current := start
	for steps := 0; steps < idx.ef; steps++ {
		if _, seen := visited[current]; seen {
			return
		}
		visited[current] = struct{}{}
		score := Cosine(query, idx.vecs[current])
		best[current] = score

		var next uuid.UUID
		nextScore := score
		found := false
		for neighbor := range idx.adj[current] {
			if _, seen := visited[neighbor]; seen {
				continue
			}
			s := Cosine(query, idx.vecs[neighbor])
			if !found || s > nextScore {
				next, nextScore, found = neighbor, s, true
			}
		}
		if !found || nextScore <= score {
			return
		}
		current = next
	}
}

// Len reports how many vectors are currently indexed.
func (idx *NSWIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.ids)
}
