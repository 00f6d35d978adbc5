package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/latticeforge/fpengine/pkg/fingerprint"
	"github.com/latticeforge/fpengine/pkg/fpengine"
)

func openTestStore(t *testing.T) *BoltStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fpengine.db")
	s, err := Open(path, 16)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func denseVec(n int) []float32 {
	v := make([]float32, n)
	for i := range v {
		v[i] = float32(i) / float32(n)
	}
	return v
}

func testViews() fingerprint.Views {
	return fingerprint.Views{
		E1: denseVec(1024),
		E2: denseVec(512), E3: denseVec(512), E4: denseVec(512),
		E5AsCause: denseVec(768), E5AsEffect: denseVec(768),
		E6: []fingerprint.SparsePair{{TermID: 1, Weight: 1}},
		E7: denseVec(1536),
		E8AsSource: denseVec(384), E8AsTarget: denseVec(384),
		E9:  denseVec(1024),
		E10: denseVec(768),
		E11: denseVec(768),
		E12: [][]float32{denseVec(128)},
		E13: []fingerprint.SparsePair{{TermID: 2, Weight: 1}},
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	f, err := fingerprint.Build("content", testViews(), 0.5, time.Now())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := s.Put(ctx, f); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get(ctx, f.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != f.ID {
		t.Fatal("round trip lost identity")
	}
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get(context.Background(), [16]byte{})
	if fpengine.KindOf(err) != fpengine.KindNotFound {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestTotalDocsExcludesSoftDeleted(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	f1, _ := fingerprint.Build("a", testViews(), 0.5, now)
	f2, _ := fingerprint.Build("b", testViews(), 0.5, now)
	if err := s.Put(ctx, f1); err != nil {
		t.Fatalf("Put f1: %v", err)
	}
	if err := s.Put(ctx, f2); err != nil {
		t.Fatalf("Put f2: %v", err)
	}

	n, err := s.TotalDocs(ctx)
	if err != nil || n != 2 {
		t.Fatalf("expected total_docs=2, got %d err=%v", n, err)
	}

	if err := s.SoftDelete(ctx, f1.ID, now); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	n, err = s.TotalDocs(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected total_docs=1 after soft delete, got %d err=%v", n, err)
	}

	if err := s.Recover(ctx, f1.ID, now.Add(time.Hour)); err != nil {
		t.Fatalf("Recover: %v", err)
	}
	n, err = s.TotalDocs(ctx)
	if err != nil || n != 2 {
		t.Fatalf("expected total_docs=2 after recover, got %d err=%v", n, err)
	}
}

func TestRecoverPastDeadlineFails(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()
	f, _ := fingerprint.Build("a", testViews(), 0.5, now)
	if err := s.Put(ctx, f); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.SoftDelete(ctx, f.ID, now); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	if err := s.Recover(ctx, f.ID, now.Add(31*24*time.Hour)); err == nil {
		t.Fatal("expected recovery past the 30 day deadline to fail")
	}
}

func TestBatchCommitIsAtomic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	f, _ := fingerprint.Build("batched", testViews(), 0.5, time.Now())

	type edge struct {
		To     string  `json:"to"`
		Weight float64 `json:"weight"`
	}
	err := s.NewBatch().
		PutFingerprint(f).
		PutJSON(NamespaceEdgesKNN, f.ID.String(), []edge{{To: "other", Weight: 0.9}}).
		Commit(ctx)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if _, err := s.Get(ctx, f.ID); err != nil {
		t.Fatalf("expected fingerprint committed: %v", err)
	}
	var got []edge
	ok, err := s.GetJSON(ctx, NamespaceEdgesKNN, f.ID.String(), &got)
	if err != nil || !ok || len(got) != 1 {
		t.Fatalf("expected committed edge, got %v ok=%v err=%v", got, ok, err)
	}
}
