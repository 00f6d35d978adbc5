package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// neo4jDriver/neo4jSession/neo4jTransaction/neo4jResult/neo4jRecord mirror
// src/memory/store/neo4j_store.go's capability interfaces
// almost verbatim: a narrow abstraction over the subset of
// github.com/neo4j/neo4j-go-driver/v5 the store actually calls, so
// Neo4jEdgeStore stays unit-testable with a fake driver instead of a live
// server, exactly as neo4j_store_test.go does for its own
// store.
type neo4jDriver interface {
	NewSession(ctx context.Context, accessMode string) (neo4jSession, error)
	Close(ctx context.Context) error
}

type neo4jSession interface {
	Run(ctx context.Context, query string, params map[string]any) (neo4jResult, error)
	Close(ctx context.Context) error
}

type neo4jResult interface {
	Next(ctx context.Context) bool
	Record() neo4jRecord
	Err() error
}

type neo4jRecord interface {
	Get(key string) (any, bool)
}

// Neo4jEdgeStore is an alternate typed-edge/traversal backend to
// TypedStore/bbolt, persisting edges as graph relationships instead of
// bucket-keyed JSON blobs — useful when an operator wants Cypher-level
// traversal queries over the memory graph directly. It implements the same
// shape TypedStore exposes (Put/Get) so pkg/engine can swap backends
// without touching call sites, the way neo4j_store.go's Neo4jStore composes
// behind the same VectorStore/GraphStore interfaces as its Postgres-backed
// sibling.
type Neo4jEdgeStore struct {
	driver neo4jDriver
	nowFn  func() time.Time
}

// NewNeo4jEdgeStore constructs a store using driver for all graph
// operations.
func NewNeo4jEdgeStore(driver neo4jDriver) (*Neo4jEdgeStore, error) {
	if driver == nil {
		return nil, fmt.Errorf("neo4j driver is nil")
	}
	return &Neo4jEdgeStore{driver: driver, nowFn: time.Now}, nil
}

const (
	accessModeWrite = "write"
	accessModeRead  = "read"
)

const upsertEdgeCypher = `
MERGE (s:Memory {id: $source})
MERGE (t:Memory {id: $target})
MERGE (s)-[r:RELATES {kind: $kind}]->(t)
SET r.score = $score, r.created_at = $created_at
`

// Put writes e as a Cypher MERGE so repeated discovery of the same
// (source, target, kind) edge updates its score instead of duplicating the
// relationship.
func (s *Neo4jEdgeStore) Put(ctx context.Context, e Edge) error {
	session, err := s.driver.NewSession(ctx, accessModeWrite)
	if err != nil {
		return fmt.Errorf("neo4j new session: %w", err)
	}
	defer session.Close(ctx)
	params := map[string]any{
		"source":     e.Source.String(),
		"target":     e.Target.String(),
		"kind":       string(e.Kind),
		"score":      e.Score,
		"created_at": e.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	res, err := session.Run(ctx, upsertEdgeCypher, params)
	if err != nil {
		return fmt.Errorf("neo4j upsert edge: %w", err)
	}
	for res.Next(ctx) {
	}
	return res.Err()
}

const neighborsCypher = `
MATCH (s:Memory {id: $source})-[r:RELATES]->(t:Memory)
WHERE $kind = "" OR r.kind = $kind
RETURN t.id AS target, r.kind AS kind, r.score AS score
`

// Get returns edges sourced from id, optionally filtered to one kind.
// allKinds is accepted only to satisfy Store's signature alongside
// TypedStore — the Cypher query already expresses "every kind" as
// kind == "" without needing the explicit kind list bbolt's per-kind
// bucket keys require.
func (s *Neo4jEdgeStore) Get(ctx context.Context, id uuid.UUID, kind Kind, allKinds []Kind) ([]Edge, error) {
	session, err := s.driver.NewSession(ctx, accessModeRead)
	if err != nil {
		return nil, fmt.Errorf("neo4j new session: %w", err)
	}
	defer session.Close(ctx)
	res, err := session.Run(ctx, neighborsCypher, map[string]any{"source": id.String(), "kind": string(kind)})
	if err != nil {
		return nil, fmt.Errorf("neo4j neighbors query: %w", err)
	}
	var out []Edge
	for res.Next(ctx) {
		rec := res.Record()
		edge := Edge{Source: id}
		if v, ok := rec.Get("target"); ok {
			if parsed, perr := uuid.Parse(fmt.Sprintf("%v", v)); perr == nil {
				edge.Target = parsed
			}
		}
		if v, ok := rec.Get("kind"); ok {
			edge.Kind = Kind(fmt.Sprintf("%v", v))
		}
		if v, ok := rec.Get("score"); ok {
			if f, ok := v.(float64); ok {
				edge.Score = f
			}
		}
		out = append(out, edge)
	}
	return out, res.Err()
}

func (s *Neo4jEdgeStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}
