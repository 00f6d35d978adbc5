// Package fingerprint defines the Fingerprint record — the atomic 13-view
// bundle stored for every memory — plus its validation, content hashing and
// positionally-stable serialization.
//
// The thirteen views are enumerated exactly once, in ViewTable, and every
// other package (store, index, scoring, fusion, topic) walks that table
// instead of hand-listing "e1, e2, e3, ..." again.
package fingerprint

// ViewID names one of the thirteen per-memory representations.
type ViewID string

const (
	E1  ViewID = "e1"  // foundation semantic
	E2  ViewID = "e2"  // temporal: recency
	E3  ViewID = "e3"  // temporal: periodicity
	E4  ViewID = "e4"  // temporal: sequence position
	E5  ViewID = "e5"  // causal, asymmetric (cause/effect)
	E6  ViewID = "e6"  // sparse keyword
	E7  ViewID = "e7"  // code/structural-semantic
	E8  ViewID = "e8"  // graph, asymmetric (source/target)
	E9  ViewID = "e9"  // structural
	E10 ViewID = "e10" // intent, asymmetric boost on e1
	E11 ViewID = "e11" // entity/relational
	E12 ViewID = "e12" // token sequence, late interaction
	E13 ViewID = "e13" // sparse expanded
)

// Category groups views for topic-detection weighted agreement
// and for the post-retrieval-only badge rule.
type Category string

const (
	CategorySemantic  Category = "semantic"
	CategoryRelational Category = "relational"
	CategoryStructural Category = "structural"
	CategoryTemporal  Category = "temporal"
)

// Kind distinguishes the storage/index shape a view needs.
type Kind int

const (
	KindDense Kind = iota
	KindSparse
	KindTokenSequence
)

// ViewSpec is the single authoritative description of one view.
type ViewSpec struct {
	ID         ViewID
	Kind       Kind
	Dim        int // for KindDense and the per-token dim of KindTokenSequence
	Asymmetric bool
	Category   Category
}

// ViewTable is the ordered, authoritative list of all thirteen views. Order
// matters: it is the fixed iteration order for serialization, per-view score
// vectors, and fusion input — callers must not reorder it across releases,
// since that would violate the "positionally stable" contract for anything
// that walks ViewTable into a fixed-size array.
var ViewTable = []ViewSpec{
	{ID: E1, Kind: KindDense, Dim: 1024, Category: CategorySemantic},
	{ID: E2, Kind: KindDense, Dim: 512, Category: CategoryTemporal},
	{ID: E3, Kind: KindDense, Dim: 512, Category: CategoryTemporal},
	{ID: E4, Kind: KindDense, Dim: 512, Category: CategoryTemporal},
	{ID: E5, Kind: KindDense, Dim: 768, Asymmetric: true, Category: CategorySemantic},
	{ID: E6, Kind: KindSparse, Category: CategorySemantic},
	{ID: E7, Kind: KindDense, Dim: 1536, Category: CategorySemantic},
	{ID: E8, Kind: KindDense, Dim: 384, Asymmetric: true, Category: CategoryRelational},
	{ID: E9, Kind: KindDense, Dim: 1024, Category: CategoryStructural},
	{ID: E10, Kind: KindDense, Dim: 768, Asymmetric: true, Category: CategorySemantic},
	{ID: E11, Kind: KindDense, Dim: 768, Category: CategoryRelational},
	{ID: E12, Kind: KindTokenSequence, Dim: 128, Category: CategorySemantic},
	{ID: E13, Kind: KindSparse, Category: CategorySemantic},
}

// CategoryWeight is the topic-detection weighted-agreement multiplier for a
// category. The maximum achievable weighted_agreement is
// 7*1.0 + 2*0.5 + 1*0.5 = 8.5, matching the seven semantic, two relational
// and one structural view.
func CategoryWeight(c Category) float64 {
	switch c {
	case CategorySemantic:
		return 1.0
	case CategoryRelational, CategoryStructural:
		return 0.5
	default:
		return 0.0
	}
}

// SemanticViews returns the views topic detection clusters over: the
// seven semantic views only, never temporal.
func SemanticViews() []ViewID {
	out := make([]ViewID, 0, 7)
	for _, v := range ViewTable {
		if v.Category == CategorySemantic {
			out = append(out, v.ID)
		}
	}
	return out
}

// Spec looks up a view's ViewSpec by id.
func Spec(id ViewID) (ViewSpec, bool) {
	for _, v := range ViewTable {
		if v.ID == id {
			return v, true
		}
	}
	return ViewSpec{}, false
}
