package fingerprint

import (
	"time"

	"github.com/google/uuid"
)

// SparsePair is one (term, weight) entry of a sparse view (e6, e13).
type SparsePair struct {
	TermID uint16  `json:"term_id"`
	Weight float32 `json:"weight"`
}

// Fingerprint is the atomic 13-view record for one memory. Every
// write produces all 13 views or fails — there is no exported constructor
// that returns a partial value; see Build in hash.go.
type Fingerprint struct {
	ID       uuid.UUID `json:"id"`
	ContentHash [32]byte `json:"content_hash"`

	CreatedAt     time.Time  `json:"created_at"`
	LastUpdated   time.Time  `json:"last_updated"`
	Importance    float64    `json:"importance"`
	AccessCount   uint64     `json:"access_count"`
	DeletedAt     *time.Time `json:"deleted_at"`
	RecoveryDeadline *time.Time `json:"recovery_deadline"`

	E1 []float32 `json:"e1"`

	E2 []float32 `json:"e2"`
	E3 []float32 `json:"e3"`
	E4 []float32 `json:"e4"`

	E5AsCause  []float32 `json:"e5_as_cause"`
	E5AsEffect []float32 `json:"e5_as_effect"`

	E6 []SparsePair `json:"e6"`

	E7 []float32 `json:"e7"`

	E8AsSource []float32 `json:"e8_as_source"`
	E8AsTarget []float32 `json:"e8_as_target"`

	E9 []float32 `json:"e9"`

	E10 []float32 `json:"e10"`

	E11 []float32 `json:"e11"`

	E12 [][]float32 `json:"e12"`

	E13 []SparsePair `json:"e13"`
}

// RecoveryWindow is the soft-delete recovery window.
const RecoveryWindow = 30 * 24 * time.Hour

// IsDeleted reports whether the fingerprint is currently soft-deleted and
// must be hidden from search (its visibility invariant).
func (f *Fingerprint) IsDeleted() bool {
	return f != nil && f.DeletedAt != nil
}

// IsRecoverable reports whether a soft-deleted fingerprint is still inside
// its 30-day recovery window.
func (f *Fingerprint) IsRecoverable(now time.Time) bool {
	if f == nil || f.RecoveryDeadline == nil {
		return false
	}
	return now.Before(*f.RecoveryDeadline)
}

// SoftDelete marks the fingerprint deleted as of now, computing the 30-day
// recovery deadline (recovery_deadline = deleted_at + 30 days).
func (f *Fingerprint) SoftDelete(now time.Time) {
	deletedAt := now
	deadline := now.Add(RecoveryWindow)
	f.DeletedAt = &deletedAt
	f.RecoveryDeadline = &deadline
	f.LastUpdated = now
}

// Recover clears the soft-delete markers, restoring full visibility.
func (f *Fingerprint) Recover(now time.Time) {
	f.DeletedAt = nil
	f.RecoveryDeadline = nil
	f.LastUpdated = now
}

// ClampImportance enforces the [0,1] invariant on any update.
func (f *Fingerprint) ClampImportance() {
	if f.Importance < 0 {
		f.Importance = 0
	}
	if f.Importance > 1 {
		f.Importance = 1
	}
}

// Dense returns the dense vector for a (possibly asymmetric-half) view id,
// used by code that walks ViewTable generically (index fan-out, scoring).
// For asymmetric views, half selects which side; "" is invalid for those.
func (f *Fingerprint) Dense(id ViewID, half string) []float32 {
	switch id {
	case E1:
		return f.E1
	case E2:
		return f.E2
	case E3:
		return f.E3
	case E4:
		return f.E4
	case E5:
		if half == "effect" {
			return f.E5AsEffect
		}
		return f.E5AsCause
	case E7:
		return f.E7
	case E8:
		if half == "target" {
			return f.E8AsTarget
		}
		return f.E8AsSource
	case E9:
		return f.E9
	case E10:
		return f.E10
	case E11:
		return f.E11
	default:
		return nil
	}
}

// Sparse returns the sparse pairs for e6/e13.
func (f *Fingerprint) Sparse(id ViewID) []SparsePair {
	switch id {
	case E6:
		return f.E6
	case E13:
		return f.E13
	default:
		return nil
	}
}
