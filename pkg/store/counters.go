package store

import (
	"encoding/binary"

	"go.etcd.io/bbolt"
)

func readCounter(tx *bbolt.Tx, key []byte) int64 {
	v := tx.Bucket(bucketSystem).Get(key)
	if len(v) != 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(v))
}

// bumpCounter applies delta to the named counter within the caller's
// transaction, so counter updates share atomicity with whatever fingerprint
// mutation triggered them (its counter-accuracy invariant).
func bumpCounter(tx *bbolt.Tx, key []byte, delta int64) error {
	cur := readCounter(tx, key)
	next := cur + delta
	if next < 0 {
		next = 0
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(next))
	return tx.Bucket(bucketSystem).Put(key, buf)
}
