package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// LineageEntry is one step of a reconstructed provenance chain: the audit
// record plus, for a merge, the other memory ids folded into this one.
type LineageEntry struct {
	Record      Record
	MergedFrom  []uuid.UUID
	EmbeddingAt time.Time
}

// Chain reconstructs a memory's full lineage — every audit record that
// named it as a target, oldest first — per its "Provenance
// queries reconstruct a memory's lineage from these records". When
// includeEmbeddingVersions is true, migration records contribute their
// timestamp as the embedding's effective-as-of date, letting callers
// correlate a result's scores back to the embedding model version that
// produced them.
func (l *Log) Chain(ctx context.Context, id uuid.UUID, includeEmbeddingVersions bool) ([]LineageEntry, error) {
	records, err := l.Trail(ctx, id, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	out := make([]LineageEntry, 0, len(records))
	for _, rec := range records {
		entry := LineageEntry{Record: rec}
		if rec.Operation == OpMerge {
			for _, other := range rec.TargetIDs {
				if other != id {
					entry.MergedFrom = append(entry.MergedFrom, other)
				}
			}
		}
		if includeEmbeddingVersions && rec.Operation == OpMigration {
			entry.EmbeddingAt = rec.Timestamp
		}
		out = append(out, entry)
	}
	return out, nil
}
