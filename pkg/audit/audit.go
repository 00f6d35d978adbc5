// Package audit implements the append-only operation log: every write,
// update, merge, soft-delete and importance boost appends a record, and
// provenance queries reconstruct a memory's lineage from them.
//
// Grounded on cuemby-warren/pkg/storage's bucket-per-namespace bbolt persistence
// (pkg/memory/store/bolt_store.go) the same way pkg/store/namespace.go is:
// records are serialized JSON values under a timestamp-ordered key, so a
// bbolt cursor range scan (store.ForEachJSON walking a sorted bucket) is
// enough to answer "since/until" queries without a secondary time index.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/latticeforge/fpengine/pkg/fpengine"
	"github.com/latticeforge/fpengine/pkg/store"
)

// Operation names the kind of mutation an audit record describes.
type Operation string

const (
	OpStore           Operation = "store"
	OpUpdate          Operation = "update"
	OpMerge           Operation = "merge"
	OpSoftDelete      Operation = "soft_delete"
	OpImportanceBoost Operation = "importance_boost"
	OpMigration       Operation = "migration"
)

// Record is its append-only audit record.
type Record struct {
	Operation  Operation       `json:"operation"`
	TargetIDs  []uuid.UUID     `json:"target_ids"`
	OperatorID string          `json:"operator_id,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	Rationale  string          `json:"rationale,omitempty"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
}

// Status is the caller-visible audit_status enum its "Caller-visible
// consistency" invariant requires on every operation response.
type Status string

const (
	StatusRecorded Status = "recorded"
	StatusFailed   Status = "failed"
)

// persister is the narrow slice of pkg/store.BoltStore the audit log needs;
// kept as an interface (matching pkg/graph and pkg/profile's pattern) so
// tests can substitute an in-memory fake instead of a real bbolt file.
type persister interface {
	PutJSON(ctx context.Context, bucket, key string, value any) error
	ForEachJSON(ctx context.Context, bucket string, fn func(key string, raw []byte) error) error
}

// Log appends audit records and serves lineage queries. Its writes are
// intentionally non-blocking with respect to the operation that triggered
// them: a caller records into the log after its own mutation has already
// committed, and treats a logging failure as degraded provenance rather
// than a failed operation (""Audit writes MUST NOT be silently
// dropped... the failure MUST be surfaced in the operation's response
// envelope").
type Log struct {
	store persister
	nowFn func() time.Time
}

// NewLog constructs a Log backed by store.
func NewLog(s persister) *Log {
	return &Log{store: s, nowFn: time.Now}
}

// key composes a lexicographically-sortable, timestamp-prefixed bucket key
// so ForEachJSON's natural bbolt cursor order is chronological; the target
// id is appended to keep keys unique when two records land in the same
// nanosecond.
func key(ts time.Time, targetSeed uuid.UUID) string {
	return fmt.Sprintf("%020d:%s", ts.UnixNano(), targetSeed.String())
}

// Append writes one audit record, returning the Status a caller should fold
// into its response envelope alongside the record's own error (which the
// caller MAY choose to swallow — the write that triggered this record
// should not fail just because its audit trail did).
func (l *Log) Append(ctx context.Context, rec Record) (Status, error) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = l.nowFn()
	}
	seed := uuid.Nil
	if len(rec.TargetIDs) > 0 {
		seed = rec.TargetIDs[0]
	}
	if err := l.store.PutJSON(ctx, store.NamespaceAudit, key(rec.Timestamp, seed), rec); err != nil {
		return StatusFailed, fpengine.Wrap(fpengine.KindStorageError, err, "append audit record for operation %s", rec.Operation)
	}
	return StatusRecorded, nil
}

// Trail returns every audit record touching target (by target id) within
// [since, until), in chronological order. A zero since/until leaves that
// bound open.
func (l *Log) Trail(ctx context.Context, target uuid.UUID, since, until time.Time) ([]Record, error) {
	var out []Record
	err := l.store.ForEachJSON(ctx, store.NamespaceAudit, func(_ string, raw []byte) error {
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil // tolerate a malformed legacy record rather than failing the whole scan
		}
		if !since.IsZero() && rec.Timestamp.Before(since) {
			return nil
		}
		if !until.IsZero() && !rec.Timestamp.Before(until) {
			return nil
		}
		for _, id := range rec.TargetIDs {
			if id == target {
				out = append(out, rec)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fpengine.Wrap(fpengine.KindStorageError, err, "scan audit trail for %s", target)
	}
	return out, nil
}
