package graph

import (
	"context"

	"github.com/google/uuid"

	"github.com/latticeforge/fpengine/pkg/fpengine"
)

// persister is the narrow slice of pkg/store.BoltStore's namespaced JSON
// API the graph layer needs, mirroring pkg/profile's persister interface so
// both packages stay testable without a real bbolt database.
type persister interface {
	PutJSON(ctx context.Context, bucket, key string, value any) error
	GetJSON(ctx context.Context, bucket, key string, out any) (bool, error)
	DeleteJSON(ctx context.Context, bucket, key string) error
}

const (
	nsKNN   = "edges_knn"
	nsTyped = "edges_typed"
)

// Searcher is the capability the K-NN store needs from a dense index: a
// per-view similarity search. pkg/engine's denseSearcherAdapter wraps a
// pkg/index/dense.NSWIndex to satisfy it, passing the index's raw cosine
// scores through unchanged.
type Searcher interface {
	Search(ctx context.Context, query []float32, k int) ([]Neighbor, error)
}

// Neighbor mirrors pkg/index/dense.Neighbor without importing that package
// here, keeping pkg/graph's only dependency on the index family an
// interface rather than a concrete type — pkg/engine is the wiring layer
// that supplies concrete dense indexes.
type Neighbor struct {
	ID    uuid.UUID
	Score float64
}

// KNNStore persists and serves per-view K-NN adjacency in the store's
// edges_knn namespace.
type KNNStore struct {
	store persister
	k     int
}

// NewKNNStore constructs a KNNStore backed by store, using k neighbors per
// view (DefaultKNNSize when k <= 0).
func NewKNNStore(store persister, k int) *KNNStore {
	if k <= 0 {
		k = DefaultKNNSize
	}
	return &KNNStore{store: store, k: k}
}

// knnKey composes the (view, src_id) compound key of its edges_knn
// namespace into a single bucket key.
func knnKey(view string, id uuid.UUID) string {
	return view + ":" + id.String()
}

// Rebuild runs one top-k search per configured view against searchers and
// persists the resulting adjacency list for id (""Edges are
// added when a memory is written (one top-k search per participating
// view)"). Missing searchers (a view whose index failed) are skipped and
// recorded in the returned degraded slice rather than failing the whole
// call, matching the engine-wide IndexUnavailable posture.
func (s *KNNStore) Rebuild(ctx context.Context, id uuid.UUID, vectors map[string][]float32, searchers map[string]Searcher) (degraded []string, err error) {
	for view, vec := range vectors {
		searcher, ok := searchers[view]
		if !ok {
			degraded = append(degraded, view)
			continue
		}
		neighbors, serr := searcher.Search(ctx, vec, s.k+1) // +1: query is typically already indexed
		if serr != nil {
			degraded = append(degraded, view)
			continue
		}
		edges := make([]KNNEdge, 0, s.k)
		for _, n := range neighbors {
			if n.ID == id {
				continue
			}
			edges = append(edges, KNNEdge{Similarity: n.Score, Target: n.ID})
			if len(edges) >= s.k {
				break
			}
		}
		if s.store != nil {
			if perr := s.store.PutJSON(ctx, nsKNN, knnKey(view, id), edges); perr != nil {
				return degraded, fpengine.Wrap(fpengine.KindStorageError, perr, "persist knn edges for %s view %s", id, view)
			}
		}
	}
	return degraded, nil
}

// Neighbors returns the persisted K-NN adjacency for id under one view.
func (s *KNNStore) Neighbors(ctx context.Context, id uuid.UUID, view string) ([]KNNEdge, error) {
	var edges []KNNEdge
	if s.store == nil {
		return nil, nil
	}
	found, err := s.store.GetJSON(ctx, nsKNN, knnKey(view, id), &edges)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return edges, nil
}

// Remove deletes id's K-NN adjacency across every configured view.
func (s *KNNStore) Remove(ctx context.Context, id uuid.UUID, views []string) error {
	if s.store == nil {
		return nil
	}
	for _, view := range views {
		if err := s.store.DeleteJSON(ctx, nsKNN, knnKey(view, id)); err != nil {
			return err
		}
	}
	return nil
}
