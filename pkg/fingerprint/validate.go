package fingerprint

import (
	"math"

	"github.com/latticeforge/fpengine/pkg/fpengine"
)

// VocabularySize bounds sparse term ids for e6/e13 (""term_id <
// vocabulary size"). It is a package variable rather than a constant so
// callers with a differently-sized vocabulary can override it at process
// start, before any Validate call.
var VocabularySize uint16 = 1 << 15

// Validate checks a fingerprint against every field invariant and returns
// a *fpengine.Error{Kind: InvalidFingerprint} identifying the first
// violation found, or nil.
func Validate(f *Fingerprint) error {
	if f == nil {
		return fpengine.New(fpengine.KindInvalidFingerprint, "fingerprint is nil")
	}
	if f.LastUpdated.Before(f.CreatedAt) {
		return fpengine.New(fpengine.KindInvalidFingerprint, "last_updated precedes created_at")
	}
	if f.Importance < 0 || f.Importance > 1 {
		return fpengine.New(fpengine.KindInvalidFingerprint, "importance %.3f out of [0,1]", f.Importance)
	}

	if err := checkDense(E1, f.E1, 1024); err != nil {
		return err
	}
	if err := checkDense(E2, f.E2, 512); err != nil {
		return err
	}
	if err := checkDense(E3, f.E3, 512); err != nil {
		return err
	}
	if err := checkDense(E4, f.E4, 512); err != nil {
		return err
	}
	if err := checkAsymmetricPair(E5, f.E5AsCause, f.E5AsEffect, 768); err != nil {
		return err
	}
	if err := checkSparse(E6, f.E6); err != nil {
		return err
	}
	if err := checkDense(E7, f.E7, 1536); err != nil {
		return err
	}
	if err := checkAsymmetricPair(E8, f.E8AsSource, f.E8AsTarget, 384); err != nil {
		return err
	}
	if err := checkDense(E9, f.E9, 1024); err != nil {
		return err
	}
	if err := checkDense(E10, f.E10, 768); err != nil {
		return err
	}
	if err := checkDense(E11, f.E11, 768); err != nil {
		return err
	}
	if err := checkTokens(f.E12, 128); err != nil {
		return err
	}
	if err := checkSparse(E13, f.E13); err != nil {
		return err
	}
	return nil
}

func checkDense(id ViewID, vec []float32, dim int) error {
	if len(vec) != dim {
		return fpengine.New(fpengine.KindInvalidFingerprint, "%s: wrong dimension: got %d want %d", id, len(vec), dim).WithContext("view", id)
	}
	for _, v := range vec {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return fpengine.New(fpengine.KindInvalidFingerprint, "%s: non-finite value", id).WithContext("view", id)
		}
	}
	return nil
}

func checkAsymmetricPair(id ViewID, a, b []float32, dim int) error {
	aPresent, bPresent := len(a) > 0, len(b) > 0
	if aPresent != bPresent {
		return fpengine.New(fpengine.KindInvalidFingerprint, "%s: asymmetric pair incomplete (only one side present)", id).WithContext("view", id)
	}
	if err := checkDense(id, a, dim); err != nil {
		return err
	}
	if err := checkDense(id, b, dim); err != nil {
		return err
	}
	return nil
}

func checkSparse(id ViewID, pairs []SparsePair) error {
	for _, p := range pairs {
		if p.TermID >= VocabularySize {
			return fpengine.New(fpengine.KindInvalidFingerprint, "%s: term_id %d >= vocabulary size %d", id, p.TermID, VocabularySize).WithContext("view", id)
		}
		if p.Weight < 0 || math.IsNaN(float64(p.Weight)) || math.IsInf(float64(p.Weight), 0) {
			return fpengine.New(fpengine.KindInvalidFingerprint, "%s: non-finite or negative weight", id).WithContext("view", id)
		}
	}
	return nil
}

func checkTokens(tokens [][]float32, dim int) error {
	if len(tokens) == 0 {
		return fpengine.New(fpengine.KindInvalidFingerprint, "e12: empty token sequence").WithContext("view", E12)
	}
	for _, tok := range tokens {
		if err := checkDense(E12, tok, dim); err != nil {
			return err
		}
	}
	return nil
}
