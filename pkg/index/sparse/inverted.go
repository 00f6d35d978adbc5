// Package sparse implements inverted-list retrieval for the two sparse
// views, e6 (keyword) and e13 (expanded). Both indexes share this package;
// they differ only in which SparsePair slice upstream fed them (raw term
// frequency vs. term-plus-bigram expansion), exactly as fpengine's
// embedder derives them (pkg/embedder/sparse.go).
//
// No inverted-index library appears anywhere in the retrieval pack — the
// pkg/memory/model/metadata.go's keyword handling is a plain Go map, and no
// other example repo vendors a BM25 implementation — so this index is
// hand-written against the standard library, matching the posture already
// recorded for pkg/index/dense's NSWIndex.
package sparse

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/latticeforge/fpengine/pkg/fingerprint"
	"github.com/latticeforge/fpengine/pkg/fpengine"
)

// posting is one entry of a term's inverted list (""(id, weight,
// doc_length)" where doc_length is the L1-norm of that memory's sparse
// vector).
type posting struct {
	id        uuid.UUID
	weight    float32
	docLength float32
}

// Index is the inverted-list index for one sparse view.
type Index struct {
	mu       sync.RWMutex
	postings map[uint16][]posting
	docLens  map[uuid.UUID]float32 // doc_length per id, independent of any one term
	broken   bool
}

// NewIndex constructs an empty inverted index.
func NewIndex() *Index {
	return &Index{
		postings: make(map[uint16][]posting),
		docLens:  make(map[uuid.UUID]float32),
	}
}

// Add inserts a memory's sparse vector into every term's posting list.
func (idx *Index) Add(_ context.Context, id uuid.UUID, pairs []fingerprint.SparsePair) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.broken {
		return fpengine.New(fpengine.KindIndexUnavailable, "sparse index is in a broken state and must be rebuilt")
	}
	docLen := l1Norm(pairs)
	idx.docLens[id] = docLen
	for _, p := range pairs {
		idx.postings[p.TermID] = append(idx.postings[p.TermID], posting{id: id, weight: p.Weight, docLength: docLen})
	}
	return nil
}

// Remove deletes id's posting from each term listed in pairs (postings
// under terms not listed are left in place) and drops its doc_length,
// matching the
// store's update contract: old sparse postings are removed before the
// new ones are inserted.
func (idx *Index) Remove(_ context.Context, id uuid.UUID, pairs []fingerprint.SparsePair) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.docLens, id)
	for _, p := range pairs {
		list := idx.postings[p.TermID]
		for i, entry := range list {
			if entry.id == id {
				idx.postings[p.TermID] = append(list[:i], list[i+1:]...)
				break
			}
		}
	}
	return nil
}

// DocCount returns the number of postings for term, i.e. n_t in the BM25
// IDF formula.
func (idx *Index) DocCount(term uint16) int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.postings[term])
}

// AverageDocLength returns L_avg over every indexed document's L1-norm
// (live and soft-deleted alike — the caller, pkg/index/sparse.Search, is
// handed the live total_docs count separately and excludes soft-deleted ids
// from scoring, not from this average, since recomputing it per soft-delete
// would require the caller to pass the full live set on every call).
func (idx *Index) AverageDocLength() float32 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if len(idx.docLens) == 0 {
		return 0
	}
	var sum float32
	for _, l := range idx.docLens {
		sum += l
	}
	return sum / float32(len(idx.docLens))
}

// Result is one scored candidate from a BM25 search.
type Result struct {
	ID    uuid.UUID
	Score float64
}

// Search runs BM25 over the query's sparse terms, given the
// live document count N (the store's total_docs counter — soft-deleted ids
// must never inflate N or a term's IDF). excluded lets the caller drop
// soft-deleted ids that still have postings pending physical removal.
func (idx *Index) Search(_ context.Context, query []fingerprint.SparsePair, k int, liveDocs int64, excluded map[uuid.UUID]struct{}) ([]Result, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.broken {
		return nil, fpengine.New(fpengine.KindIndexUnavailable, "sparse index is in a broken state and must be rebuilt")
	}
	avgdl := idx.averageDocLengthLocked()
	scores := make(map[uuid.UUID]float64)
	for _, qp := range query {
		list := idx.postings[qp.TermID]
		nt := len(list)
		if nt == 0 {
			continue
		}
		idf := IDF(liveDocs, int64(nt))
		for _, p := range list {
			if _, skip := excluded[p.id]; skip {
				continue
			}
			scores[p.id] += BM25Term(idf, float64(p.weight), float64(p.docLength), float64(avgdl))
		}
	}
	out := make([]Result, 0, len(scores))
	for id, s := range scores {
		out = append(out, Result{ID: id, Score: s})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (idx *Index) averageDocLengthLocked() float32 {
	if len(idx.docLens) == 0 {
		return 0
	}
	var sum float32
	for _, l := range idx.docLens {
		sum += l
	}
	return sum / float32(len(idx.docLens))
}

func l1Norm(pairs []fingerprint.SparsePair) float32 {
	var sum float32
	for _, p := range pairs {
		if p.Weight < 0 {
			sum -= p.Weight
		} else {
			sum += p.Weight
		}
	}
	return sum
}
