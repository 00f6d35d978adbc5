package store

import (
	"context"
	"time"

	"go.etcd.io/bbolt"

	"github.com/google/uuid"

	"github.com/latticeforge/fpengine/pkg/fingerprint"
	"github.com/latticeforge/fpengine/pkg/fpengine"
)

// Put writes a fingerprint and, in the same transaction, adjusts the
// total_docs counter if this is a newly-created id (the counter-accuracy
// invariant: total_docs excludes soft-deleted ids, and must never drift
// from the actual live set).
func (s *BoltStore) Put(_ context.Context, f *fingerprint.Fingerprint) error {
	if err := fingerprint.Validate(f); err != nil {
		return err
	}
	data, err := fingerprint.Encode(f)
	if err != nil {
		return fpengine.Wrap(fpengine.KindStorageError, err, "encode fingerprint %s", f.ID)
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
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
	if err != nil {
		return fpengine.Wrap(fpengine.KindStorageError, err, "put fingerprint %s", f.ID)
	}
	s.cache.put(f)
	return nil
}

// Get fetches a fingerprint, consulting the hot cache first.
func (s *BoltStore) Get(_ context.Context, id uuid.UUID) (*fingerprint.Fingerprint, error) {
	if f, ok := s.cache.get(id); ok {
		return f, nil
	}
	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketFingerprints).Get(id[:])
		if v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fpengine.Wrap(fpengine.KindStorageError, err, "get fingerprint %s", id)
	}
	if data == nil {
		return nil, fpengine.New(fpengine.KindNotFound, "fingerprint %s not found", id)
	}
	f, _, err := fingerprint.Decode(data)
	if err != nil {
		return nil, fpengine.Wrap(fpengine.KindStorageError, err, "decode fingerprint %s", id)
	}
	s.cache.put(f)
	return f, nil
}

// SoftDelete marks a fingerprint deleted and decrements total_docs, all in
// one transaction.
func (s *BoltStore) SoftDelete(ctx context.Context, id uuid.UUID, now time.Time) error {
	return s.mutate(ctx, id, func(f *fingerprint.Fingerprint) (changed bool, counterDelta int64, err error) {
		if f.IsDeleted() {
			return false, 0, nil
		}
		f.SoftDelete(now)
		return true, -1, nil
	})
}

// Recover clears the soft-delete markers and re-increments total_docs,
// refusing once the 30-day recovery window has elapsed.
func (s *BoltStore) Recover(ctx context.Context, id uuid.UUID, now time.Time) error {
	return s.mutate(ctx, id, func(f *fingerprint.Fingerprint) (changed bool, counterDelta int64, err error) {
		if !f.IsDeleted() {
			return false, 0, nil
		}
		if !f.IsRecoverable(now) {
			return false, 0, fpengine.New(fpengine.KindInvalidArgument, "fingerprint %s is past its recovery deadline", id)
		}
		f.Recover(now)
		return true, 1, nil
	})
}

// HardDelete permanently removes a fingerprint's bucket entry, decrementing
// total_docs if it was still live. Unlike SoftDelete this leaves no
// recoverable tombstone: RecoverMemory can never bring the id back. Used
// only to compensate a write whose index fan-out failed outright, where a
// soft-deleted fingerprint would otherwise sit in the store with no index
// entries and come back "live" but permanently unsearchable if recovered.
func (s *BoltStore) HardDelete(_ context.Context, id uuid.UUID) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		fp := tx.Bucket(bucketFingerprints)
		raw := fp.Get(id[:])
		if raw == nil {
			return nil
		}
		f, _, err := fingerprint.Decode(raw)
		if err != nil {
			return err
		}
		if err := fp.Delete(id[:]); err != nil {
			return err
		}
		if !f.IsDeleted() {
			return bumpCounter(tx, keyTotalDocs, -1)
		}
		return nil
	})
	if err != nil {
		return fpengine.Wrap(fpengine.KindStorageError, err, "hard delete fingerprint %s", id)
	}
	s.cache.invalidate(id)
	return nil
}

func (s *BoltStore) mutate(_ context.Context, id uuid.UUID, fn func(*fingerprint.Fingerprint) (changed bool, counterDelta int64, err error)) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		fp := tx.Bucket(bucketFingerprints)
		raw := fp.Get(id[:])
		if raw == nil {
			return fpengine.New(fpengine.KindNotFound, "fingerprint %s not found", id)
		}
		f, _, err := fingerprint.Decode(raw)
		if err != nil {
			return err
		}
		changed, delta, err := fn(f)
		if err != nil {
			return err
		}
		if delta != 0 {
			if err := bumpCounter(tx, keyTotalDocs, delta); err != nil {
				return err
			}
		}
		if !changed {
			return nil
		}
		data, err := fingerprint.Encode(f)
		if err != nil {
			return err
		}
		return fp.Put(id[:], data)
	})
	if err != nil {
		return err
	}
	s.cache.invalidate(id)
	return nil
}

// ForEach iterates every stored fingerprint, including soft-deleted ones;
// callers that need only live fingerprints must check IsDeleted themselves.
// Used by index rebuild and topic detection, both of which walk the whole
// corpus.
func (s *BoltStore) ForEach(_ context.Context, fn func(*fingerprint.Fingerprint) error) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketFingerprints).ForEach(func(_, v []byte) error {
			f, _, err := fingerprint.Decode(v)
			if err != nil {
				return err
			}
			return fn(f)
		})
	})
}

// TotalDocs returns the live (non-soft-deleted) document count maintained by
// the transactional counter, independent of a full table scan.
func (s *BoltStore) TotalDocs(_ context.Context) (int64, error) {
	var n int64
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = readCounter(tx, keyTotalDocs)
		return nil
	})
	return n, err
}
