package engine

import (
	"container/heap"
	"context"
	"time"

	"github.com/latticeforge/fpengine/pkg/fingerprint"
)

// pruneItem is one eviction candidate's score, kept in a min-heap so the
// prune pass can track the `overflow` highest-scoring (least valuable)
// candidates without sorting the whole live corpus.
type pruneItem struct {
	f     *fingerprint.Fingerprint
	score float64
}

type pruneHeap []pruneItem

func (h pruneHeap) Len() int            { return len(h) }
func (h pruneHeap) Less(i, j int) bool  { return h[i].score < h[j].score }
func (h pruneHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *pruneHeap) Push(x any)         { *h = append(*h, x.(pruneItem)) }
func (h *pruneHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Prune soft-deletes the least valuable live memories once the corpus
// exceeds maxSize, scoring each candidate by (age_hours + 1) * (1 - importance)
// so older, lower-importance memories are evicted first. It keeps the K
// highest-scoring candidates in a bounded min-heap rather than sorting the
// full corpus, the same technique pkg/memory/engine's size-based eviction pass
// used. Eviction goes through the ordinary soft-delete path (recoverable
// for 30 days), never a hard delete, so a prune pass can never destroy data
// outright.
func (e *Engine) Prune(ctx context.Context, maxSize int) (int, error) {
	if maxSize <= 0 {
		return 0, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	var live []*fingerprint.Fingerprint
	err := e.store.ForEach(ctx, func(f *fingerprint.Fingerprint) error {
		if !f.IsDeleted() {
			live = append(live, f)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(live) <= maxSize {
		return 0, nil
	}

	overflow := len(live) - maxSize
	now := e.clock()
	h := make(pruneHeap, 0, overflow)
	heap.Init(&h)
	for _, f := range live {
		ageHours := now.Sub(f.CreatedAt).Hours() + 1 // +1 avoids a zero bias for brand-new memories
		score := ageHours * (1 - f.Importance)
		if len(h) < overflow {
			heap.Push(&h, pruneItem{f: f, score: score})
		} else if score > h[0].score {
			h[0] = pruneItem{f: f, score: score}
			heap.Fix(&h, 0)
		}
	}

	evicted := 0
	for _, it := range h {
		if err := e.store.SoftDelete(ctx, it.f.ID, now); err != nil {
			continue
		}
		e.removeFromIndexes(ctx, it.f)
		e.metrics.IncSoftDeleted()
		evicted++
	}
	return evicted, nil
}

// RunPruneLoop runs Prune on interval until ctx is cancelled, for a caller
// that wants background size-bounded retention rather than calling Prune
// from its own scheduler.
func (e *Engine) RunPruneLoop(ctx context.Context, maxSize int, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := e.Prune(ctx, maxSize); err != nil {
				e.logger.Warn().Err(err).Msg("background prune failed")
			}
		}
	}
}
