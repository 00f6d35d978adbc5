package dense

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/google/uuid"
)

// PostgresMirror is an optional mirror of one dense view's vectors, kept
// in Postgres + pgvector alongside the in-process NSWIndex. Grounded on the
// pkg/memory/store/postgres_store.go's PostgresStore: same
// pgxpool connection pattern and the same "ORDER BY embedding <-> $1::vector"
// ANN query, generalized from one fixed "embedding" column to an index
// keyed by view name so the same table shape could, in principle, mirror
// any dense view, not only the one postgres_store.go hardcoded.
//
// fpengine treats this as a mirror, not the primary index: writes go to it
// best-effort alongside the primary NSWIndex, so an unreachable Postgres
// instance only fails the mirror write (the engine logs a warning) rather
// than blocking every write. The engine's search path never queries the
// mirror.
type PostgresMirror struct {
	db   *pgxpool.Pool
	view string
}

// NewPostgresMirror connects to Postgres and assumes a table named
// "fp_<view>" with columns (id uuid primary key, embedding vector(dim))
// already exists — migrations are out of scope (spec's config/schema
// non-goal), matching postgres_store.go's own assumption that memory_bank
// pre-exists.
func NewPostgresMirror(ctx context.Context, connStr, view string) (*PostgresMirror, error) {
	db, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres mirror for view %s: %w", view, err)
	}
	return &PostgresMirror{db: db, view: view}, nil
}

func (m *PostgresMirror) table() string { return "fp_" + m.view }

// Upsert writes or replaces the vector for id.
func (m *PostgresMirror) Upsert(ctx context.Context, id uuid.UUID, vec []float32) error {
	query := fmt.Sprintf(`
                INSERT INTO %s (id, embedding) VALUES ($1, $2::vector)
                ON CONFLICT (id) DO UPDATE SET embedding = EXCLUDED.embedding;
        `, m.table())
	_, err := m.db.Exec(ctx, query, id, vectorLiteral(vec))
	if err != nil {
		return fmt.Errorf("upsert %s mirror row %s: %w", m.view, id, err)
	}
	return nil
}

// Delete removes id's row.
func (m *PostgresMirror) Delete(ctx context.Context, id uuid.UUID) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1;`, m.table())
	_, err := m.db.Exec(ctx, query, id)
	return err
}

// Search runs the same pgvector ANN query pattern as postgres_store.go's
// SearchMemory, returning ids ordered by ascending pgvector `<->`
// (Euclidean) distance, each with Score = 1 - distance.
func (m *PostgresMirror) Search(ctx context.Context, query []float32, k int) ([]Neighbor, error) {
	q := fmt.Sprintf(`
                SELECT id, (embedding <-> $1::vector) AS distance
                FROM %s
                ORDER BY embedding <-> $1::vector
                LIMIT $2;
        `, m.table())
	rows, err := m.db.Query(ctx, q, vectorLiteral(query), k)
	if err != nil {
		return nil, fmt.Errorf("search %s mirror: %w", m.view, err)
	}
	defer rows.Close()

	var out []Neighbor
	for rows.Next() {
		var id uuid.UUID
		var distance float64
		if err := rows.Scan(&id, &distance); err != nil {
			return nil, err
		}
		out = append(out, Neighbor{ID: id, Score: 1 - distance})
	}
	return out, rows.Err()
}

func (m *PostgresMirror) Close() {
	m.db.Close()
}

// vectorLiteral renders a []float32 as pgvector's "[v1,v2,...]" literal,
// mirroring postgres_store.go's vectorFromJSON/parseVector round trip
// (postgres_store.go) but against the literal syntax directly instead of a
// JSON intermediate, since pgvector accepts its own bracketed format.
func vectorLiteral(vec []float32) string {
	parts := make([]string, len(vec))
	for i, v := range vec {
		parts[i] = strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
