package store

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/google/uuid"

	"github.com/latticeforge/fpengine/pkg/fingerprint"
)

// hotCache is the in-memory front tier for fingerprint reads, mirroring the
// allaspectsdev-tokenman/internal/cache's CacheMiddleware: a
// bounded LRU in front of the durable backend, invalidated on every write.
type hotCache struct {
	entries *lru.Cache[uuid.UUID, *fingerprint.Fingerprint]
}

func newHotCache(size int) (*hotCache, error) {
	if size <= 0 {
		size = 4096
	}
	c, err := lru.New[uuid.UUID, *fingerprint.Fingerprint](size)
	if err != nil {
		return nil, err
	}
	return &hotCache{entries: c}, nil
}

func (h *hotCache) get(id uuid.UUID) (*fingerprint.Fingerprint, bool) {
	return h.entries.Get(id)
}

func (h *hotCache) put(f *fingerprint.Fingerprint) {
	h.entries.Add(f.ID, f)
}

func (h *hotCache) invalidate(id uuid.UUID) {
	h.entries.Remove(id)
}
