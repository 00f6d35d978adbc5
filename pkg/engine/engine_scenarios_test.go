package engine

import (
	"context"
	"hash/fnv"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/latticeforge/fpengine/pkg/fingerprint"
	"github.com/latticeforge/fpengine/pkg/profile"
	"github.com/latticeforge/fpengine/pkg/store"
)

// scenarioEmbedder is a deterministic, model-free Provider for the
// end-to-end scenario tests below: every view is a bag-of-{words,trigrams}
// vector hashed into a fixed dimension, so two contents sharing vocabulary
// always score above two contents that don't, without a network call or a
// model download (the same rationale as DummyProvider, sized for
// relevance-ordering assertions rather than round-trip determinism checks).
//
// e7 hashes character trigrams instead of whole words. A code identifier
// like "compute_cosine_similarity" never word-matches a query like "cosine
// similarity function" once the query is lowercased and split on
// non-alnum runs, but their trigrams overlap heavily ("cos", "osi", "sin",
// "sim", "ila", "rit", ...) — the same subword-overlap intuition code
// search embeddings rely on in practice, and it gives e7 a genuinely
// distinct signal from the word-level views instead of just repeating
// them under another seed.
type scenarioEmbedder struct{}

func (scenarioEmbedder) Close() error { return nil }

func scenarioWordTokens(content string) []string {
	tokens := strings.FieldsFunc(strings.ToLower(content), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	if len(tokens) == 0 {
		tokens = []string{""}
	}
	return tokens
}

func scenarioTrigrams(content string) []string {
	var letters []rune
	for _, r := range strings.ToLower(content) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			letters = append(letters, r)
		}
	}
	if len(letters) < 3 {
		return []string{string(letters)}
	}
	out := make([]string, 0, len(letters)-2)
	for i := 0; i+3 <= len(letters); i++ {
		out = append(out, string(letters[i:i+3]))
	}
	return out
}

func scenarioHashBucket(token string, buckets int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	return int(h.Sum32() % uint32(buckets))
}

func scenarioBagOfWords(tokens []string, dim int) []float32 {
	out := make([]float32, dim)
	for _, t := range tokens {
		out[scenarioHashBucket(t, dim)] += 1
	}
	return out
}

func scenarioBagOfTrigrams(content string, dim int) []float32 {
	return scenarioBagOfWords(scenarioTrigrams(content), dim)
}

func scenarioTermID(token string) uint16 {
	return uint16(scenarioHashBucket(token, int(fingerprint.VocabularySize)))
}

func scenarioSparsePairs(tokens []string) []fingerprint.SparsePair {
	counts := map[uint16]float32{}
	for _, t := range tokens {
		counts[scenarioTermID(t)] += 1
	}
	out := make([]fingerprint.SparsePair, 0, len(counts))
	for id, w := range counts {
		out = append(out, fingerprint.SparsePair{TermID: id, Weight: w})
	}
	return out
}

// scenarioForwardConnectives/scenarioBackwardConnectives mirror the
// production connective lists in pkg/embedder/split.go closely enough to
// exercise the same forward/backward causal split this test package can't
// import directly (split.go's lists are unexported).
var scenarioForwardConnectives = []string{" triggers ", " causes ", " cause ", " leads to ", " results in "}
var scenarioBackwardConnectives = []string{" because "}

func (scenarioEmbedder) SplitCauseEffect(content string) (cause, effect string) {
	lower := strings.ToLower(content)
	for _, sep := range scenarioBackwardConnectives {
		if idx := strings.Index(lower, sep); idx >= 0 {
			return content[idx+len(sep):], content[:idx]
		}
	}
	for _, sep := range scenarioForwardConnectives {
		if idx := strings.Index(lower, sep); idx >= 0 {
			return content[:idx], content[idx+len(sep):]
		}
	}
	return content, content
}

func (p scenarioEmbedder) Embed(_ context.Context, content string) (fingerprint.Views, error) {
	tokens := scenarioWordTokens(content)
	cause, effect := p.SplitCauseEffect(content)

	tokVecs := make([][]float32, len(tokens))
	for i, t := range tokens {
		tokVecs[i] = scenarioBagOfWords([]string{t}, 128)
	}

	return fingerprint.Views{
		E1:         scenarioBagOfWords(tokens, 1024),
		E2:         scenarioBagOfWords(tokens, 512),
		E3:         scenarioBagOfWords(tokens, 512),
		E4:         scenarioBagOfWords(tokens, 512),
		E5AsCause:  scenarioBagOfWords(scenarioWordTokens(cause), 768),
		E5AsEffect: scenarioBagOfWords(scenarioWordTokens(effect), 768),
		E6:         scenarioSparsePairs(tokens),
		E7:         scenarioBagOfTrigrams(content, 1536),
		E8AsSource: scenarioBagOfWords(tokens, 384),
		E8AsTarget: scenarioBagOfWords(tokens, 384),
		E9:         scenarioBagOfWords(tokens, 1024),
		E10:        scenarioBagOfWords(tokens, 768),
		E11:        scenarioBagOfWords(tokens, 768),
		E12:        tokVecs,
		E13:        scenarioSparsePairs(tokens),
	}, nil
}

func openScenarioEngine(t *testing.T) *Engine {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fpengine.db")
	st, err := store.Open(path, 16)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	e, err := NewEngine(context.Background(), st, scenarioEmbedder{})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func mustStore(t *testing.T, e *Engine, content string) uuid.UUID {
	t.Helper()
	res, err := e.StoreMemory(context.Background(), content, 0.5, "scenario fixture", "session-1", "operator-1")
	if err != nil {
		t.Fatalf("StoreMemory(%q): %v", content, err)
	}
	return res.ID
}

func containsID(ids []SearchResult, id uuid.UUID) bool {
	for _, r := range ids {
		if r.ID == id {
			return true
		}
	}
	return false
}

// TestScenarioBasicRecall is spec scenario 1: three unrelated memories, a
// query clearly about one of them, expecting that one ranked first with a
// dominant similarity and the other two present at lower scores.
func TestScenarioBasicRecall(t *testing.T) {
	ctx := context.Background()
	e := openScenarioEngine(t)

	rustID := mustStore(t, e, "Rust ownership moves")
	goID := mustStore(t, e, "Go garbage collection")
	tsID := mustStore(t, e, "TypeScript narrowing")

	resp, err := e.Search(ctx, SearchRequest{
		Query: "How does ownership work in Rust?", TopK: 3,
		Strategy: StrategyMultiView, ProfileName: profile.SemanticSearch,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Results) != 3 {
		t.Fatalf("expected all 3 memories present, got %d", len(resp.Results))
	}
	if resp.Results[0].ID != rustID {
		t.Fatalf("expected Rust memory ranked first, got %s", resp.Results[0].ID)
	}
	if resp.Results[0].Similarity < 0.60 {
		t.Fatalf("expected dominant similarity >= 0.60, got %f", resp.Results[0].Similarity)
	}
	if !containsID(resp.Results, goID) || !containsID(resp.Results, tsID) {
		t.Fatalf("expected both other memories present in results")
	}
	for _, r := range resp.Results[1:] {
		if r.Similarity >= resp.Results[0].Similarity {
			t.Fatalf("expected non-matching memories to score lower than the dominant match")
		}
	}
}

// TestScenarioCausalAsymmetry is scenario 2: direction must change
// which memory search_causes/search_effects ranks first whenever the two
// stored halves of e5 differ. Searching for causes of "write failures"
// should surface memory A ("disk filling triggers write failures"), whose
// effect half literally names the query — A is a candidate cause of it.
// Searching for effects of "write failures" should surface memory B
// ("write failures cause customer complaints"), whose cause half literally
// names the query — B is a candidate effect chain from it.
func TestScenarioCausalAsymmetry(t *testing.T) {
	ctx := context.Background()
	e := openScenarioEngine(t)

	idA := mustStore(t, e, "disk filling triggers write failures")
	idB := mustStore(t, e, "write failures cause customer complaints")

	causes, err := e.SearchCauses(ctx, "write failures", 2)
	if err != nil {
		t.Fatalf("SearchCauses: %v", err)
	}
	effects, err := e.SearchEffects(ctx, "write failures", 2)
	if err != nil {
		t.Fatalf("SearchEffects: %v", err)
	}
	if len(causes.Results) == 0 || len(effects.Results) == 0 {
		t.Fatalf("expected non-empty results from both directions")
	}
	if causes.Results[0].ID == effects.Results[0].ID {
		t.Fatalf("expected direction to change the top result: both directions returned %s first", causes.Results[0].ID)
	}
	if causes.Results[0].ID != idA {
		t.Fatalf("expected search_causes to rank the memory whose effect half literally matches the query (%s) first, got %s", idA, causes.Results[0].ID)
	}
	if effects.Results[0].ID != idB {
		t.Fatalf("expected search_effects to rank the memory whose cause half literally matches the query (%s) first, got %s", idB, effects.Results[0].ID)
	}
}

// TestScenarioPipelinePrecision checks that an exact code snippet wins a
// pipeline-strategy search over a pile of unrelated decoys.
// The corpus here is scaled down from a production-sized 1 000 memories —
// NSW insertion cost grows with corpus size and a unit test has no need for
// the full scale to exercise the same five-stage code path — while still
// giving the recall/filter/rerank stages a real, non-trivial candidate
// pool to narrow down.
func TestScenarioPipelinePrecision(t *testing.T) {
	ctx := context.Background()
	e := openScenarioEngine(t)

	decoys := []string{
		"the weather in Lisbon was mild this week",
		"quarterly revenue grew by twelve percent",
		"the cat slept on the windowsill all afternoon",
		"negotiations over the trade agreement stalled",
		"a new species of beetle was discovered in Peru",
		"the marathon route passes through five boroughs",
		"inflation expectations eased after the report",
		"the museum opened a new wing for modern art",
		"rainfall broke records across the valley",
		"the committee postponed its vote until spring",
	}
	for i, d := range decoys {
		for j := 0; j < 6; j++ {
			mustStore(t, e, d+" "+strings.Repeat("x", i+j))
		}
	}
	codeID := mustStore(t, e, "fn compute_cosine_similarity(a,b) -> f32")

	resp, err := e.Search(ctx, SearchRequest{
		Query: "cosine similarity function", TopK: 5,
		Strategy: StrategyPipeline, ProfileName: profile.CodeSearch, EnableRerank: true,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Results) == 0 {
		t.Fatalf("expected at least one result")
	}
	if resp.Results[0].ID != codeID {
		t.Fatalf("expected the exact code memory ranked first, got %s", resp.Results[0].ID)
	}
	if resp.Results[0].PerViewScores[fingerprint.E7] <= 0 {
		t.Fatalf("expected e7 to carry a real score for the winning result")
	}
}

// TestScenarioDegradedViewReporting is spec scenario 4: an index failing
// at query time must surface in DegradedViews, not fail the whole search
// or silently drop the view's weight from the fusion denominator.
func TestScenarioDegradedViewReporting(t *testing.T) {
	ctx := context.Background()
	e := openScenarioEngine(t)

	mustStore(t, e, "graph reasoning over typed edges")
	mustStore(t, e, "structural relationships between services")

	// Corrupt e11's dense index the same way a real dimension mismatch
	// would: NSWIndex.Add trips its broken flag permanently on a bad
	// insert, after which every Search on it returns IndexUnavailable.
	e.mu.Lock()
	_ = e.dense[fingerprint.E11].Add(ctx, uuid.New(), []float32{1, 2, 3})
	e.mu.Unlock()

	resp, err := e.Search(ctx, SearchRequest{
		Query: "graph reasoning", TopK: 5,
		Strategy: StrategyMultiView, ProfileName: profile.GraphReasoning,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	found := false
	for _, v := range resp.DegradedViews {
		if v == fingerprint.E11 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected e11 in degraded_views, got %v", resp.DegradedViews)
	}
	if len(resp.Results) == 0 {
		t.Fatalf("expected fusion over the remaining views to still return results")
	}
}

// TestScenarioSoftDeleteInvisibilityAndRecovery is spec scenario 5:
// soft-deleting a memory must hide it from search and decrement
// total_docs; recovering it within the window restores both.
func TestScenarioSoftDeleteInvisibilityAndRecovery(t *testing.T) {
	ctx := context.Background()
	e := openScenarioEngine(t)

	content := "the deployment pipeline needs a rollback button"
	id := mustStore(t, e, content)

	before, err := e.store.TotalDocs(ctx)
	if err != nil {
		t.Fatalf("TotalDocs: %v", err)
	}

	search := func() SearchResponse {
		resp, err := e.Search(ctx, SearchRequest{
			Query: content, TopK: 5,
			Strategy: StrategyFoundation, ProfileName: profile.SemanticSearch,
		})
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		return resp
	}

	if resp := search(); !containsID(resp.Results, id) {
		t.Fatalf("expected memory visible before delete")
	}

	if _, err := e.SoftDeleteMemory(ctx, id, "no longer needed", "operator-1"); err != nil {
		t.Fatalf("SoftDeleteMemory: %v", err)
	}

	if resp := search(); containsID(resp.Results, id) {
		t.Fatalf("expected memory invisible after soft-delete")
	}

	after, err := e.store.TotalDocs(ctx)
	if err != nil {
		t.Fatalf("TotalDocs: %v", err)
	}
	if after != before-1 {
		t.Fatalf("expected total_docs to drop by 1, got %d -> %d", before, after)
	}

	if err := e.RecoverMemory(ctx, id); err != nil {
		t.Fatalf("RecoverMemory: %v", err)
	}

	if resp := search(); !containsID(resp.Results, id) {
		t.Fatalf("expected memory visible again after recovery")
	}

	recovered, err := e.store.TotalDocs(ctx)
	if err != nil {
		t.Fatalf("TotalDocs: %v", err)
	}
	if recovered != before {
		t.Fatalf("expected total_docs restored to %d, got %d", before, recovered)
	}
}

// TestScenarioTopicThreshold is spec scenario 6: two well-separated topics
// of three memories each should both clear the weighted_agreement
// threshold, with no cross-topic mixing.
func TestScenarioTopicThreshold(t *testing.T) {
	ctx := context.Background()
	e := openScenarioEngine(t)

	// Each trio shares a six-word core (so every pairwise cosine similarity
	// within a trio sits comfortably above the clusterer's threshold) plus
	// two sentence-specific words (so the trio isn't three copies of one
	// sentence); the two trios share no vocabulary at all, so cross-trio
	// similarity stays at zero.
	rocksDB := []uuid.UUID{
		mustStore(t, e, "rocksdb lsm trees sorted levels compaction background writes"),
		mustStore(t, e, "rocksdb lsm trees sorted levels compaction read amplification"),
		mustStore(t, e, "rocksdb lsm trees sorted levels compaction batch sequential"),
	}
	cacheEviction := []uuid.UUID{
		mustStore(t, e, "cache eviction policy hit rate memory lru workload"),
		mustStore(t, e, "cache eviction policy hit rate memory ttl latency"),
		mustStore(t, e, "cache eviction policy hit rate memory arc throughput"),
	}

	topics, err := e.DetectTopics(ctx, true)
	if err != nil {
		t.Fatalf("DetectTopics: %v", err)
	}
	if len(topics) != 2 {
		t.Fatalf("expected exactly 2 topics, got %d", len(topics))
	}

	rocksSet := make(map[uuid.UUID]struct{}, len(rocksDB))
	for _, id := range rocksDB {
		rocksSet[id] = struct{}{}
	}
	cacheSet := make(map[uuid.UUID]struct{}, len(cacheEviction))
	for _, id := range cacheEviction {
		cacheSet[id] = struct{}{}
	}

	for _, tp := range topics {
		if tp.WeightedAgreement < 2.5 {
			t.Fatalf("topic %s below the weighted_agreement threshold: %f", tp.ID, tp.WeightedAgreement)
		}
		inRocks, inCache := 0, 0
		for _, m := range tp.Members {
			if _, ok := rocksSet[m]; ok {
				inRocks++
			}
			if _, ok := cacheSet[m]; ok {
				inCache++
			}
		}
		if inRocks > 0 && inCache > 0 {
			t.Fatalf("topic %s mixes both source groups: %d RocksDB + %d cache members", tp.ID, inRocks, inCache)
		}
		if inRocks != 3 && inCache != 3 {
			t.Fatalf("topic %s does not cleanly cover one three-member group (rocks=%d cache=%d)", tp.ID, inRocks, inCache)
		}
	}
}
