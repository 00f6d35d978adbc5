// Package store is fpengine's durable persistence layer: a bbolt-backed
// namespaced key/value store (one bucket per namespace) fronted by an
// in-memory LRU, adapted from allaspectsdev-tokenman's two-tier cache pattern
// (allaspectsdev-tokenman's internal/cache.CacheMiddleware) and its
// InMemoryStore/PostgresStore pairing (pkg/memory/store).
//
// bbolt gives fpengine the one property the batch-persistence invariant
// needs for free — a batch write across multiple namespaces is atomic; a
// crash mid-batch leaves either all namespaces updated or none — because
// every bbolt.Update call is one ACID transaction spanning every bucket
// in the database, so a batch write is just one Update call that touches
// several buckets.
package store

import (
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/latticeforge/fpengine/internal/logging"
	"github.com/latticeforge/fpengine/pkg/fpengine"
)

// Bucket names, one per namespace (its namespace list).
var (
	bucketFingerprints  = []byte("fingerprints")
	bucketEdgesKNN      = []byte("edges_knn")
	bucketEdgesTyped    = []byte("edges_typed")
	bucketTopicProfiles = []byte("topic_profiles")
	bucketAudit         = []byte("audit")
	bucketSystem        = []byte("system")
	bucketProfiles      = []byte("weight_profiles")
)

var allBuckets = [][]byte{
	bucketFingerprints, bucketEdgesKNN, bucketEdgesTyped,
	bucketTopicProfiles, bucketAudit, bucketSystem, bucketProfiles,
}

// keyTotalDocs is the system-bucket counter key tracking live (non-deleted)
// fingerprint count (its counter-accuracy invariant).
var keyTotalDocs = []byte("total_docs")

// BoltStore is fpengine's default Store implementation.
type BoltStore struct {
	db    *bbolt.DB
	cache *hotCache
}

// Open opens (creating if absent) a bbolt database at path and ensures every
// namespace bucket exists.
func Open(path string, cacheSize int) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fpengine.Wrap(fpengine.KindStorageError, err, "open bbolt database at %s", path)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fpengine.Wrap(fpengine.KindStorageError, err, "initialize namespace buckets")
	}
	cache, err := newHotCache(cacheSize)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init hot cache: %w", err)
	}
	logging.Logger.Info().Str("path", path).Int("cache_size", cacheSize).Msg("store opened")
	return &BoltStore{db: db, cache: cache}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
