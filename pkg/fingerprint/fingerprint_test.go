package fingerprint

import (
	"testing"
	"time"
)

func makeViews() Views {
	dense := func(n int) []float32 {
		v := make([]float32, n)
		for i := range v {
			v[i] = float32(i%7) / 7
		}
		return v
	}
	return Views{
		E1: dense(1024),
		E2: dense(512), E3: dense(512), E4: dense(512),
		E5AsCause: dense(768), E5AsEffect: dense(768),
		E6: []SparsePair{{TermID: 3, Weight: 0.5}, {TermID: 9, Weight: 1.2}},
		E7: dense(1536),
		E8AsSource: dense(384), E8AsTarget: dense(384),
		E9:  dense(1024),
		E10: dense(768),
		E11: dense(768),
		E12: [][]float32{dense(128), dense(128), dense(128)},
		E13: []SparsePair{{TermID: 42, Weight: 0.9}},
	}
}

func TestBuildValidFingerprint(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f, err := Build("some memory content", makeViews(), 0.7, now)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if f.ID.String() == "" {
		t.Fatal("expected a populated uuid")
	}
	if f.ContentHash != ContentHash("some memory content") {
		t.Fatal("content hash must be derived from content, not vectors")
	}
	if f.IsDeleted() {
		t.Fatal("freshly built fingerprint must not be deleted")
	}
}

func TestBuildClampsImportance(t *testing.T) {
	now := time.Now()
	f, err := Build("x", makeViews(), 1.5, now)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if f.Importance != 1 {
		t.Fatalf("importance not clamped: got %v", f.Importance)
	}
}

func TestBuildRejectsWrongDimension(t *testing.T) {
	views := makeViews()
	views.E1 = views.E1[:100]
	if _, err := Build("x", views, 0.5, time.Now()); err == nil {
		t.Fatal("expected validation error for wrong e1 dimension")
	}
}

func TestBuildRejectsIncompleteAsymmetricPair(t *testing.T) {
	views := makeViews()
	views.E5AsEffect = nil
	if _, err := Build("x", views, 0.5, time.Now()); err == nil {
		t.Fatal("expected validation error for incomplete asymmetric pair")
	}
}

func TestBuildRejectsEmptyTokenSequence(t *testing.T) {
	views := makeViews()
	views.E12 = nil
	if _, err := Build("x", views, 0.5, time.Now()); err == nil {
		t.Fatal("expected validation error for empty e12 token sequence")
	}
}

func TestBuildRejectsOutOfVocabTermID(t *testing.T) {
	views := makeViews()
	views.E13 = []SparsePair{{TermID: VocabularySize, Weight: 1}}
	if _, err := Build("x", views, 0.5, time.Now()); err == nil {
		t.Fatal("expected validation error for term_id >= vocabulary size")
	}
}

func TestSoftDeleteAndRecover(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f, err := Build("x", makeViews(), 0.5, now)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	f.SoftDelete(now)
	if !f.IsDeleted() {
		t.Fatal("expected deleted")
	}
	if !f.IsRecoverable(now.Add(29 * 24 * time.Hour)) {
		t.Fatal("expected recoverable within 30 day window")
	}
	if f.IsRecoverable(now.Add(31 * 24 * time.Hour)) {
		t.Fatal("expected not recoverable past 30 day window")
	}
	f.Recover(now.Add(time.Hour))
	if f.IsDeleted() {
		t.Fatal("expected not deleted after recover")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	orig, err := Build("round trip content", makeViews(), 0.42, now)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	data, err := Encode(orig)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, version, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if version != CurrentVersion {
		t.Fatalf("version: got %d want %d", version, CurrentVersion)
	}
	if got.ID != orig.ID || got.ContentHash != orig.ContentHash {
		t.Fatal("round trip lost identity fields")
	}
	if len(got.E1) != len(orig.E1) || len(got.E12) != len(orig.E12) {
		t.Fatal("round trip lost view dimensions")
	}
}

func TestDecodeRejectsTruncatedRecord(t *testing.T) {
	if _, _, err := Decode([]byte{0x01}); err == nil {
		t.Fatal("expected error decoding a truncated record")
	}
}

func TestDenseAccessorAsymmetricHalves(t *testing.T) {
	f, err := Build("x", makeViews(), 0.5, time.Now())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	cause := f.Dense(E5, "cause")
	effect := f.Dense(E5, "effect")
	if len(cause) != 768 || len(effect) != 768 {
		t.Fatal("expected both halves of e5 at dim 768")
	}
}
