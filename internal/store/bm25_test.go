package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fireCorpus = []string{
	"Forest fire damage assessment report",
	"Wildfire burn area boundaries",
	"Timber sale records 2023",
	"Tree harvest data for national forests",
}

func TestBM25_ExactTermMatchRanksFirst(t *testing.T) {
	idx := NewBM25Index(fireCorpus, DefaultBM25Config())

	scores := idx.GetScores(Tokenize("forest fire", 2))
	require.Len(t, scores, 4)

	// Document 0 matches both query terms exactly; no other document
	// matches either ("wildfire" and "forests" are distinct tokens).
	assert.Greater(t, scores[0], 0.0)
	assert.Equal(t, 0.0, scores[1])
	assert.Equal(t, 0.0, scores[2])
	assert.Equal(t, 0.0, scores[3])
}

func TestBM25_DenseOutput(t *testing.T) {
	idx := NewBM25Index(fireCorpus, DefaultBM25Config())

	// One score per corpus position, even when nothing matches.
	scores := idx.GetScores(Tokenize("completely unrelated query", 2))
	require.Len(t, scores, 4)
	for i, s := range scores {
		assert.Equal(t, 0.0, s, "position %d", i)
	}
}

func TestBM25_EmptyCorpus(t *testing.T) {
	idx := NewBM25Index(nil, DefaultBM25Config())

	assert.Equal(t, 0, idx.Len())
	assert.Empty(t, idx.GetScores([]string{"forest"}))
}

func TestBM25_EmptyQuery(t *testing.T) {
	idx := NewBM25Index(fireCorpus, DefaultBM25Config())

	scores := idx.GetScores(nil)
	require.Len(t, scores, 4)
	for _, s := range scores {
		assert.Equal(t, 0.0, s)
	}
}

func TestBM25_IdenticalDocumentsScoreIdentically(t *testing.T) {
	texts := []string{
		"Watershed boundary dataset",
		"Watershed boundary dataset",
		"Watershed boundary dataset",
	}
	idx := NewBM25Index(texts, DefaultBM25Config())

	scores := idx.GetScores(Tokenize("watershed boundary", 2))
	require.Len(t, scores, 3)
	assert.Equal(t, scores[0], scores[1])
	assert.Equal(t, scores[1], scores[2])
	assert.Greater(t, scores[0], 0.0)
}

func TestBM25_NonNegativeIDF(t *testing.T) {
	// A term present in every document must not go negative, which the
	// classic Robertson IDF would do on a small corpus.
	texts := []string{
		"forest inventory one",
		"forest inventory two",
		"forest survey three",
	}
	idx := NewBM25Index(texts, DefaultBM25Config())

	scores := idx.GetScores([]string{"forest"})
	for i, s := range scores {
		assert.Greater(t, s, 0.0, "position %d", i)
	}
}

func TestBM25_Deterministic(t *testing.T) {
	idx := NewBM25Index(fireCorpus, DefaultBM25Config())
	tokens := Tokenize("forest fire damage", 2)

	first := idx.GetScores(tokens)
	second := idx.GetScores(tokens)
	assert.Equal(t, first, second)
}
