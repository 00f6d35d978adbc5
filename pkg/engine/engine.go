// Package engine wires every other package of fpengine — store, the dense/
// sparse/token indexes, the scoring kernel, fusion, weight profiles, the
// graph layer, topic detection, and audit — into the operation surface a
// caller drives the memory engine through. It follows pkg/memory/engine's
// Engine shape (pkg/memory/engine's NewEngine/With*/Options/clock/mutex,
// generalized from pkg/memory/engine.Engine's one fixed
// similarity+recency+importance+source score to the full 13-view pipeline.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/latticeforge/fpengine/internal/logging"
	"github.com/latticeforge/fpengine/pkg/audit"
	"github.com/latticeforge/fpengine/pkg/embedder"
	"github.com/latticeforge/fpengine/pkg/fingerprint"
	"github.com/latticeforge/fpengine/pkg/fpengine"
	"github.com/latticeforge/fpengine/pkg/graph"
	"github.com/latticeforge/fpengine/pkg/index/dense"
	"github.com/latticeforge/fpengine/pkg/index/sparse"
	"github.com/latticeforge/fpengine/pkg/index/token"
	"github.com/latticeforge/fpengine/pkg/metrics"
	"github.com/latticeforge/fpengine/pkg/pipeline"
	"github.com/latticeforge/fpengine/pkg/profile"
	"github.com/latticeforge/fpengine/pkg/topic"

	"github.com/rs/zerolog"
)

// nswM/foundationM/matryoshkaDim are the construction parameters
// for the in-process ANN indexes (""breadth parameter... at
// least 16 for general views, higher for the foundation view").
const (
	nswM          = 16
	foundationM   = 32
	matryoshkaDim = 128
)

// writeQueueCapacity bounds in-flight StoreMemory/Update calls: once the
// write queue exceeds this threshold, new writes are rejected as Overloaded
// rather than queued indefinitely behind the embedder and index fan-out.
// DESIGN.md records this as a calibrated default sized for a
// single-process embedded deployment, not a clustered one.
const writeQueueCapacity = 256

// memStore is the narrow slice of *store.BoltStore the engine depends on,
// kept as an interface so tests can substitute an in-memory fake.
type memStore interface {
	Put(ctx context.Context, f *fingerprint.Fingerprint) error
	Get(ctx context.Context, id uuid.UUID) (*fingerprint.Fingerprint, error)
	SoftDelete(ctx context.Context, id uuid.UUID, now time.Time) error
	HardDelete(ctx context.Context, id uuid.UUID) error
	Recover(ctx context.Context, id uuid.UUID, now time.Time) error
	ForEach(ctx context.Context, fn func(*fingerprint.Fingerprint) error) error
	TotalDocs(ctx context.Context) (int64, error)
	PutJSON(ctx context.Context, bucket, key string, value any) error
	GetJSON(ctx context.Context, bucket, key string, out any) (bool, error)
	ForEachJSON(ctx context.Context, bucket string, fn func(key string, raw []byte) error) error
	DeleteJSON(ctx context.Context, bucket, key string) error
}

// Engine is fpengine's top-level API surface, wiring the store, every
// per-view index, the graph and topic layers, weight profiles and the
// audit log into the operation contracts
type Engine struct {
	mu sync.RWMutex

	store    memStore
	embedder embedder.Provider

	dense      map[fingerprint.ViewID]*dense.NSWIndex
	matryoshka *dense.MatryoshkaIndex
	sparse     map[fingerprint.ViewID]*sparse.Index
	token      *token.Index

	knn   *graph.KNNStore
	typed graph.Store
	hook  graph.DiscoveryHook

	profiles      *profile.Registry
	topicDetector *topic.Detector
	topics        []topic.Topic
	topicVectors  topic.Vectors

	auditLog     *audit.Log
	archiveSinks []archiveSink

	denseMirrors map[fingerprint.ViewID]*dense.PostgresMirror

	metrics *metrics.Metrics
	logger  zerolog.Logger
	clock   func() time.Time

	writeSlots chan struct{}
}

// archiveSink mirrors an appended audit record somewhere outside the
// engine's own store (e.g. *audit.MongoArchiveSink).
type archiveSink interface {
	Archive(ctx context.Context, rec audit.Record) error
}

// Option configures a new Engine.
type Option func(*Engine)

// WithLogger overrides the engine's logger (mirrors pkg/memory/engine's WithLogger).
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics attaches a *metrics.Metrics instance; omit to get an
// unregistered, purely in-process counter set.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithDiscoveryHook attaches an external LLM-backed edge-discovery hook
// (its "the engine exposes hooks for it").
func WithDiscoveryHook(h graph.DiscoveryHook) Option {
	return func(e *Engine) { e.hook = h }
}

// WithArchiveSink registers an additional audit archive mirror.
func WithArchiveSink(s archiveSink) Option {
	return func(e *Engine) { e.archiveSinks = append(e.archiveSinks, s) }
}

// WithMongoArchiveSink connects to a MongoDB collection and registers it as
// an audit archive mirror, the same way WithArchiveSink would if the
// caller had constructed the sink itself. Connection failure is returned
// immediately rather than deferred to the first Archive call.
func WithMongoArchiveSink(ctx context.Context, uri, database, collection string) (Option, error) {
	sink, err := audit.NewMongoArchiveSink(ctx, uri, database, collection)
	if err != nil {
		return nil, err
	}
	return WithArchiveSink(sink), nil
}

// WithTypedStore overrides the typed-edge backend, e.g. swapping the
// default bbolt-backed TypedStore for a *graph.Neo4jEdgeStore so typed
// edges live as graph relationships an operator can run Cypher traversals
// over directly.
func WithTypedStore(ts graph.Store) Option {
	return func(e *Engine) { e.typed = ts }
}

// WithDensePostgresMirror registers a pgvector-backed mirror for a dense
// view alongside its primary in-process NSWIndex: writes fan out to both,
// best-effort, so an unreachable Postgres instance degrades only that
// mirror rather than the write itself.
func WithDensePostgresMirror(view fingerprint.ViewID, mirror *dense.PostgresMirror) Option {
	return func(e *Engine) {
		if e.denseMirrors == nil {
			e.denseMirrors = make(map[fingerprint.ViewID]*dense.PostgresMirror)
		}
		e.denseMirrors[view] = mirror
	}
}

// WithClock overrides the engine's time source, for deterministic tests.
func WithClock(fn func() time.Time) Option {
	return func(e *Engine) { e.clock = fn }
}

// NewEngine constructs an Engine over st and emb, building every in-process
// index fresh and loading the weight-profile registry from st.
func NewEngine(ctx context.Context, st memStore, emb embedder.Provider, opts ...Option) (*Engine, error) {
	registry, err := profile.NewRegistry(ctx, st)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		store:         st,
		embedder:      emb,
		dense:         newDenseIndexes(),
		matryoshka:    dense.NewMatryoshkaIndex(matryoshkaDim, nswM, 0),
		sparse:        map[fingerprint.ViewID]*sparse.Index{fingerprint.E6: sparse.NewIndex(), fingerprint.E13: sparse.NewIndex()},
		token:         token.NewIndex(),
		knn:           graph.NewKNNStore(st, graph.DefaultKNNSize),
		typed:         graph.NewTypedStore(st),
		hook:          graph.NoopDiscovery{},
		profiles:      registry,
		topicDetector: topic.NewDetector(),
		auditLog:      audit.NewLog(st),
		metrics:       metrics.New(),
		logger:        logging.WithComponent("engine"),
		clock:         time.Now,
		writeSlots:    make(chan struct{}, writeQueueCapacity),
	}
	for i := 0; i < writeQueueCapacity; i++ {
		e.writeSlots <- struct{}{}
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.rebuildIndexesFromStore(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

// newDenseIndexes constructs one NSWIndex per dense view: the
// foundation view e1 gets a wider breadth parameter, every other dense view
// (including the cause/source halves of the two asymmetric views) the
// general default. The complementary effect/target halves are not indexed
// separately — Strategy B/C always recompute the authoritative asymmetric
// score from the fetched fingerprint, so indexing one half per view costs
// only recall breadth on that half, never correctness (see pkg/pipeline's
// Indexes doc comment).
func newDenseIndexes() map[fingerprint.ViewID]*dense.NSWIndex {
	out := make(map[fingerprint.ViewID]*dense.NSWIndex, 10)
	for _, spec := range fingerprint.ViewTable {
		if spec.Kind != fingerprint.KindDense {
			continue
		}
		m := nswM
		if spec.ID == fingerprint.E1 {
			m = foundationM
		}
		out[spec.ID] = dense.NewNSWIndex(spec.Dim, m, 0)
	}
	return out
}

// rebuildIndexesFromStore walks every live fingerprint in st and adds it to
// every in-process index, since bbolt persists only the fingerprints
// themselves — indexes are rebuildable, never a second source of truth
//.
func (e *Engine) rebuildIndexesFromStore(ctx context.Context) error {
	return e.store.ForEach(ctx, func(f *fingerprint.Fingerprint) error {
		if f.IsDeleted() {
			return nil
		}
		e.indexFingerprint(ctx, f)
		return nil
	})
}

// indexFingerprint adds f to every dense/sparse/token/matryoshka index,
// logging (rather than failing) a per-view add error as IndexUnavailable —
// the write path's own compensating-delete logic is what enforces strict
// store/index consistency for a single StoreMemory call; a rebuild from an
// already-durable store degrades gracefully instead.
func (e *Engine) indexFingerprint(ctx context.Context, f *fingerprint.Fingerprint) {
	for view, idx := range e.dense {
		vec := f.Dense(view, "")
		if len(vec) == 0 {
			continue
		}
		if err := idx.Add(ctx, f.ID, vec); err != nil {
			e.logger.Warn().Err(err).Str("view", string(view)).Str("memory_id", f.ID.String()).Msg("dense index add failed")
		}
	}
	if len(f.E1) > 0 {
		if err := e.matryoshka.Add(ctx, f.ID, f.E1); err != nil {
			e.logger.Warn().Err(err).Str("memory_id", f.ID.String()).Msg("matryoshka index add failed")
		}
	}
	if err := e.sparse[fingerprint.E6].Add(ctx, f.ID, f.E6); err != nil {
		e.logger.Warn().Err(err).Str("memory_id", f.ID.String()).Msg("e6 index add failed")
	}
	if err := e.sparse[fingerprint.E13].Add(ctx, f.ID, f.E13); err != nil {
		e.logger.Warn().Err(err).Str("memory_id", f.ID.String()).Msg("e13 index add failed")
	}
	if len(f.E12) > 0 {
		if err := e.token.Add(ctx, f.ID, f.E12); err != nil {
			e.logger.Warn().Err(err).Str("memory_id", f.ID.String()).Msg("token index add failed")
		}
	}
}

// removeFromIndexes reverses indexFingerprint, used by soft-delete and
// update so a stale entry never lingers in an ANN graph or posting list.
func (e *Engine) removeFromIndexes(ctx context.Context, f *fingerprint.Fingerprint) {
	for _, idx := range e.dense {
		_ = idx.Remove(ctx, f.ID)
	}
	_ = e.matryoshka.Remove(ctx, f.ID)
	_ = e.sparse[fingerprint.E6].Remove(ctx, f.ID, f.E6)
	_ = e.sparse[fingerprint.E13].Remove(ctx, f.ID, f.E13)
	_ = e.token.Remove(ctx, f.ID)
	_ = e.knn.Remove(ctx, f.ID, stringViews(graph.KNNViews))
	for view, mirror := range e.denseMirrors {
		if err := mirror.Delete(ctx, f.ID); err != nil {
			e.logger.Warn().Err(err).Str("memory_id", f.ID.String()).Str("view", string(view)).Msg("dense postgres mirror delete failed")
		}
	}
}

func stringViews(views []fingerprint.ViewID) []string {
	out := make([]string, len(views))
	for i, v := range views {
		out[i] = string(v)
	}
	return out
}

// MetricsSnapshot exposes the engine's counters for a health/status
// endpoint.
func (e *Engine) MetricsSnapshot() metrics.Snapshot {
	return e.metrics.Snapshot()
}

// acquireWriteSlot implements its write backpressure: a non-blocking
// attempt to take one of writeQueueCapacity slots, failing fast with
// Overloaded instead of queuing indefinitely behind the embedder and index
// fan-out.
func (e *Engine) acquireWriteSlot() error {
	select {
	case <-e.writeSlots:
		return nil
	default:
		e.metrics.IncOverloaded()
		return fpengine.New(fpengine.KindOverloaded, "write queue is at capacity")
	}
}

func (e *Engine) releaseWriteSlot() {
	select {
	case e.writeSlots <- struct{}{}:
	default:
	}
}

// denseSearcherAdapter lets a *dense.NSWIndex satisfy graph.Searcher, whose
// Neighbor type is a local mirror rather than an import of pkg/index/dense
// (pkg/graph's doc comment explains why: it keeps the graph layer's only
// dependency on the index family an interface, with pkg/engine as the
// wiring layer that bridges the two concrete types).
type denseSearcherAdapter struct {
	idx *dense.NSWIndex
}

func (a denseSearcherAdapter) Search(ctx context.Context, query []float32, k int) ([]graph.Neighbor, error) {
	neighbors, err := a.idx.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	out := make([]graph.Neighbor, len(neighbors))
	for i, n := range neighbors {
		out[i] = graph.Neighbor{ID: n.ID, Score: n.Score}
	}
	return out, nil
}

// knnSearchers builds the view->Searcher map Rebuild needs from the
// engine's own dense indexes, restricted to the K-NN-bearing views.
func (e *Engine) knnSearchers() map[string]graph.Searcher {
	out := make(map[string]graph.Searcher, len(graph.KNNViews))
	for _, view := range graph.KNNViews {
		if idx, ok := e.dense[view]; ok {
			out[string(view)] = denseSearcherAdapter{idx: idx}
		}
	}
	return out
}

// pipelineIndexes assembles a pipeline.Indexes snapshot. Every searcher
// here satisfies the pipeline package's capability interfaces directly —
// no adapter needed, since pipeline.DenseSearcher/SparseSearcher/
// TokenSearcher/MatryoshkaSearcher were each shaped to match the
// corresponding index type's own Search/Candidates signature.
func (e *Engine) pipelineIndexes() pipeline.Indexes {
	denseSearchers := make(map[fingerprint.ViewID]pipeline.DenseSearcher, len(e.dense))
	for view, idx := range e.dense {
		denseSearchers[view] = idx
	}
	sparseSearchers := make(map[fingerprint.ViewID]pipeline.SparseSearcher, len(e.sparse))
	for view, idx := range e.sparse {
		sparseSearchers[view] = idx
	}
	return pipeline.Indexes{
		Dense:      denseSearchers,
		Sparse:     sparseSearchers,
		Token:      e.token,
		Matryoshka: e.matryoshka,
		Fetch:      e.store.Get,
		LiveDocs:   e.liveDocs,
	}
}

func (e *Engine) liveDocs() int64 {
	n, err := e.store.TotalDocs(context.Background())
	if err != nil {
		return 0
	}
	return n
}

// appendAudit records an operation, logging (but not failing the caller's
// operation on) a storage failure, per its non-blocking rule.
func (e *Engine) appendAudit(ctx context.Context, rec audit.Record) audit.Status {
	status, err := e.auditLog.Append(ctx, rec)
	if err != nil {
		e.metrics.IncAuditFailed()
		e.logger.Error().Err(err).Str("operation", string(rec.Operation)).Msg("audit append failed")
	}
	for _, sink := range e.archiveSinks {
		go func(s archiveSink) {
			if aerr := s.Archive(context.Background(), rec); aerr != nil {
				e.logger.Warn().Err(aerr).Msg("audit archive sink failed")
			}
		}(sink)
	}
	return status
}
