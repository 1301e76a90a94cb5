package store

import (
	"math"
)

// BM25Index scores every document in a fixed corpus against a tokenized
// query using the Okapi BM25 ranking function. Document numbering is
// positional: document i is the i-th text passed to NewBM25Index, and
// GetScores returns one score per position in that same order.
//
// The index is immutable once built; a corpus change means a full rebuild.
type BM25Index struct {
	config BM25Config

	// termFreqs[i] maps token -> occurrences in document i.
	termFreqs []map[string]int

	// docFreqs maps token -> number of documents containing it.
	docFreqs map[string]int

	docLens   []int
	avgDocLen float64
}

// NewBM25Index builds a BM25 index over texts. The input ordering defines
// the positional numbering and must match the corpus ordering used by the
// caller for position -> document resolution. An empty input is valid and
// yields an index whose GetScores returns an empty slice.
func NewBM25Index(texts []string, config BM25Config) *BM25Index {
	if config.K1 <= 0 {
		config.K1 = DefaultBM25Config().K1
	}
	if config.B <= 0 {
		config.B = DefaultBM25Config().B
	}
	if config.MinTokenLength <= 0 {
		config.MinTokenLength = DefaultBM25Config().MinTokenLength
	}

	idx := &BM25Index{
		config:    config,
		termFreqs: make([]map[string]int, len(texts)),
		docFreqs:  make(map[string]int),
		docLens:   make([]int, len(texts)),
	}

	var totalLen int
	for i, text := range texts {
		tokens := Tokenize(text, config.MinTokenLength)
		tf := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
		}
		idx.termFreqs[i] = tf
		idx.docLens[i] = len(tokens)
		totalLen += len(tokens)
		for tok := range tf {
			idx.docFreqs[tok]++
		}
	}

	if len(texts) > 0 {
		idx.avgDocLen = float64(totalLen) / float64(len(texts))
	}

	return idx
}

// Len returns the number of documents in the index.
func (idx *BM25Index) Len() int { return len(idx.termFreqs) }

// GetScores returns one BM25 score per corpus document, positionally aligned
// with the build-time ordering. Documents with no term overlap score exactly
// 0.0 rather than being omitted; callers rely on dense output. An empty
// token list yields all zeros; an empty corpus yields an empty slice.
func (idx *BM25Index) GetScores(tokens []string) []float64 {
	scores := make([]float64, len(idx.termFreqs))
	if len(idx.termFreqs) == 0 || len(tokens) == 0 {
		return scores
	}

	n := float64(len(idx.termFreqs))
	for _, tok := range tokens {
		df, ok := idx.docFreqs[tok]
		if !ok {
			continue
		}
		// Non-negative IDF variant: stays positive even when a term appears
		// in most documents of a small corpus.
		idf := math.Log(1 + (n-float64(df)+0.5)/(float64(df)+0.5))

		for i, tf := range idx.termFreqs {
			freq := float64(tf[tok])
			if freq == 0 {
				continue
			}
			norm := 1 - idx.config.B + idx.config.B*float64(idx.docLens[i])/idx.avgDocLen
			scores[i] += idf * (freq * (idx.config.K1 + 1)) / (freq + idx.config.K1*norm)
		}
	}

	return scores
}
