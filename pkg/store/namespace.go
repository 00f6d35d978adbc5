package store

import (
	"context"
	"encoding/json"

	"go.etcd.io/bbolt"

	"github.com/latticeforge/fpengine/pkg/fpengine"
)

// PutJSON writes an arbitrary JSON-encodable value into a namespace bucket,
// for the namespaces (edges_knn, edges_typed, topic_profiles, weight_profiles,
// audit) that don't need the fingerprint's positional-stability guarantee —
// there is no versioning requirement on graph edges or topic profiles, which
// are always fully rebuilt rather than incrementally migrated.
func (s *BoltStore) PutJSON(_ context.Context, bucket string, key string, value any) error {
	b, ok := namespaceBucket(bucket)
	if !ok {
		return fpengine.New(fpengine.KindInvalidArgument, "unknown namespace %s", bucket)
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fpengine.Wrap(fpengine.KindStorageError, err, "marshal value for namespace %s key %s", bucket, key)
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(b).Put([]byte(key), data)
	})
	if err != nil {
		return fpengine.Wrap(fpengine.KindStorageError, err, "put namespace %s key %s", bucket, key)
	}
	return nil
}

// GetJSON reads back a value written by PutJSON.
func (s *BoltStore) GetJSON(_ context.Context, bucket string, key string, out any) (bool, error) {
	b, ok := namespaceBucket(bucket)
	if !ok {
		return false, fpengine.New(fpengine.KindInvalidArgument, "unknown namespace %s", bucket)
	}
	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(b).Get([]byte(key))
		if v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return false, fpengine.Wrap(fpengine.KindStorageError, err, "get namespace %s key %s", bucket, key)
	}
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fpengine.Wrap(fpengine.KindStorageError, err, "unmarshal namespace %s key %s", bucket, key)
	}
	return true, nil
}

// ForEachJSON walks every key/value pair in a namespace bucket. fn receives
// the raw key and the still-encoded value; callers unmarshal themselves so
// ForEachJSON stays type-agnostic across namespaces.
func (s *BoltStore) ForEachJSON(_ context.Context, bucket string, fn func(key string, raw []byte) error) error {
	b, ok := namespaceBucket(bucket)
	if !ok {
		return fpengine.New(fpengine.KindInvalidArgument, "unknown namespace %s", bucket)
	}
	return s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(b).ForEach(func(k, v []byte) error {
			return fn(string(k), v)
		})
	})
}

// DeleteJSON removes a key from a namespace bucket.
func (s *BoltStore) DeleteJSON(_ context.Context, bucket string, key string) error {
	b, ok := namespaceBucket(bucket)
	if !ok {
		return fpengine.New(fpengine.KindInvalidArgument, "unknown namespace %s", bucket)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(b).Delete([]byte(key))
	})
}

// Namespace name constants, mirrored against the bucket variables so callers
// outside this package (pkg/graph, pkg/topic, pkg/profile, pkg/audit) don't
// need to import bbolt themselves.
const (
	NamespaceEdgesKNN      = "edges_knn"
	NamespaceEdgesTyped    = "edges_typed"
	NamespaceTopicProfiles = "topic_profiles"
	NamespaceWeightProfiles = "weight_profiles"
	NamespaceAudit         = "audit"
)

func namespaceBucket(name string) ([]byte, bool) {
	switch name {
	case NamespaceEdgesKNN:
		return bucketEdgesKNN, true
	case NamespaceEdgesTyped:
		return bucketEdgesTyped, true
	case NamespaceTopicProfiles:
		return bucketTopicProfiles, true
	case NamespaceWeightProfiles:
		return bucketProfiles, true
	case NamespaceAudit:
		return bucketAudit, true
	default:
		return nil, false
	}
}
