package store

import (
	"context"
	"encoding/json"

	"go.etcd.io/bbolt"

	"github.com/latticeforge/fpengine/pkg/fingerprint"
	"github.com/latticeforge/fpengine/pkg/fpengine"
)

// Batch collects writes across several namespaces and commits them in one
// bbolt transaction, giving fpengine atomic multi-namespace batch
// persistence: storing a memory's fingerprint together with its freshly
// computed KNN edges either both land or neither does, even across a
// crash mid-write.
type Batch struct {
	store *BoltStore
	ops   []func(tx *bbolt.Tx) error
	ids   []fingerprintCacheEntry
}

type fingerprintCacheEntry struct {
	f *fingerprint.Fingerprint
}

// NewBatch starts a new atomic batch against this store.
func (s *BoltStore) NewBatch() *Batch {
	return &Batch{store: s}
}

// PutFingerprint stages a fingerprint write, including the total_docs
// counter adjustment if it's a new id.
func (b *Batch) PutFingerprint(f *fingerprint.Fingerprint) *Batch {
	b.ops = append(b.ops, func(tx *bbolt.Tx) error {
		if err := fingerprint.Validate(f); err != nil {
			return err
		}
		data, err := fingerprint.Encode(f)
		if err != nil {
			return err
		}
		fp := tx.Bucket(bucketFingerprints)
		existing := fp.Get(f.ID[:])
		if err := fp.Put(f.ID[:], data); err != nil {
			return err
		}
		if existing == nil && !f.IsDeleted() {
			return bumpCounter(tx, keyTotalDocs, 1)
		}
		return nil
	})
	b.ids = append(b.ids, fingerprintCacheEntry{f: f})
	return b
}

// PutJSON stages a namespaced JSON write.
func (b *Batch) PutJSON(bucket, key string, value any) *Batch {
	b.ops = append(b.ops, func(tx *bbolt.Tx) error {
		bk, ok := namespaceBucket(bucket)
		if !ok {
			return fpengine.New(fpengine.KindInvalidArgument, "unknown namespace %s", bucket)
		}
		data, err := json.Marshal(value)
		if err != nil {
			return err
		}
		return tx.Bucket(bk).Put([]byte(key), data)
	})
	return b
}

// Commit executes every staged operation inside a single bbolt transaction.
// On failure, bbolt rolls the entire transaction back — none of the
// staged writes are visible, so all namespaces land updated or none do.
func (b *Batch) Commit(_ context.Context) error {
	err := b.store.db.Update(func(tx *bbolt.Tx) error {
		for _, op := range b.ops {
			if err := op(tx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fpengine.Wrap(fpengine.KindStorageError, err, "commit batch")
	}
	for _, e := range b.ids {
		b.store.cache.put(e.f)
	}
	return nil
}
