package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/latticeforge/fpengine/pkg/audit"
)

// GetAuditTrail returns every audit record touching target within
// [since, until).
func (e *Engine) GetAuditTrail(ctx context.Context, target uuid.UUID, since, until time.Time) ([]audit.Record, error) {
	return e.auditLog.Trail(ctx, target, since, until)
}

// GetProvenanceChain reconstructs id's full lineage, oldest first.
func (e *Engine) GetProvenanceChain(ctx context.Context, id uuid.UUID, includeEmbeddingVersions bool) ([]audit.LineageEntry, error) {
	return e.auditLog.Chain(ctx, id, includeEmbeddingVersions)
}
