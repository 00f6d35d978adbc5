package embedder

import (
	"hash/fnv"
	"sort"
	"strings"

	"github.com/latticeforge/fpengine/pkg/fingerprint"
)

// tokenize lowercases and splits on anything that isn't a letter or digit,
// mirroring pkg/memory/model's own NormalizeMetadata keyword handling
// (model/metadata.go) rather than pulling in a tokenizer library for what
// is, for e6/e13, just a term-frequency vocabulary.
func tokenize(content string) []string {
	return strings.FieldsFunc(strings.ToLower(content), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}

// termID hashes a token into the fixed vocabulary space validated by
// fingerprint.VocabularySize.
func termID(token string) uint16 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	return uint16(h.Sum32() % uint32(fingerprint.VocabularySize))
}

// sparseVector builds term-frequency pairs for e6 (raw keyword overlap). e13
// additionally folds in bigrams, approximating a query/term-expansion index
// without a real expansion model.
func sparseVector(tokens []string) []fingerprint.SparsePair {
	counts := map[uint16]float32{}
	for _, t := range tokens {
		counts[termID(t)] += 1
	}
	return sortedPairs(counts)
}

func expandedSparseVector(tokens []string) []fingerprint.SparsePair {
	counts := map[uint16]float32{}
	for _, t := range tokens {
		counts[termID(t)] += 1
	}
	for i := 0; i+1 < len(tokens); i++ {
		bigram := tokens[i] + "_" + tokens[i+1]
		counts[termID(bigram)] += 0.5
	}
	return sortedPairs(counts)
}

func sortedPairs(counts map[uint16]float32) []fingerprint.SparsePair {
	pairs := make([]fingerprint.SparsePair, 0, len(counts))
	for id, w := range counts {
		pairs = append(pairs, fingerprint.SparsePair{TermID: id, Weight: w})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].TermID < pairs[j].TermID })
	return pairs
}
