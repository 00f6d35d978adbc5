package fingerprint

import (
	"crypto/sha256"
	"time"

	"github.com/google/uuid"
)

// ContentHash computes the SHA-256 digest of the UTF-8 source text. It is
// never re-derived from vectors: the hash authenticates the text
// that produced the views, independent of which embedder produced them.
func ContentHash(content string) [32]byte {
	return sha256.Sum256([]byte(content))
}

// Views is the thirteen-view payload an embedder provider returns for one
// piece of text (""embedder provider producing 13 vectors from
// text"). Build refuses to construct a Fingerprint from a partial Views.
type Views struct {
	E1                     []float32
	E2, E3, E4             []float32
	E5AsCause, E5AsEffect  []float32
	E6                     []SparsePair
	E7                     []float32
	E8AsSource, E8AsTarget []float32
	E9                     []float32
	E10                    []float32
	E11                    []float32
	E12                    [][]float32
	E13                    []SparsePair
}

// Build assembles a new Fingerprint from freshly embedded views and
// validates it before returning, so construction and validation can never
// drift apart. A partial Views (any required field missing) fails
// validation and Build returns the error instead of a half-built value —
// there is no partial fingerprint.
func Build(content string, views Views, importance float64, now time.Time) (*Fingerprint, error) {
	f := &Fingerprint{
		ID:          uuid.New(),
		ContentHash: ContentHash(content),
		CreatedAt:   now,
		LastUpdated: now,
		Importance:  importance,

		E1: views.E1,
		E2: views.E2, E3: views.E3, E4: views.E4,
		E5AsCause: views.E5AsCause, E5AsEffect: views.E5AsEffect,
		E6: views.E6,
		E7: views.E7,
		E8AsSource: views.E8AsSource, E8AsTarget: views.E8AsTarget,
		E9:  views.E9,
		E10: views.E10,
		E11: views.E11,
		E12: views.E12,
		E13: views.E13,
	}
	f.ClampImportance()
	if err := Validate(f); err != nil {
		return nil, err
	}
	return f, nil
}
