package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rangerlabs/geocat/internal/catalog"
	"github.com/rangerlabs/geocat/internal/store"
)

// stubEmbedder returns a fixed vector, or fails when err is set.
type stubEmbedder struct {
	vec []float32
	err error
}

func (s *stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.vec, nil
}

func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = s.vec
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int { return len(s.vec) }

func (s *stubEmbedder) ModelName() string { return "stub" }

func (s *stubEmbedder) Available(_ context.Context) bool { return true }

func (s *stubEmbedder) Close() error { return nil }

// stubVectorStore serves canned results, or fails when err is set.
type stubVectorStore struct {
	results []store.VectorResult
	err     error
}

func (s *stubVectorStore) Add(_ context.Context, _ []catalog.DocumentID, _ [][]float32) error {
	return nil
}

func (s *stubVectorStore) Search(_ context.Context, _ []float32, k int) ([]store.VectorResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(s.results) > k {
		return s.results[:k], nil
	}
	return s.results, nil
}

func (s *stubVectorStore) Count() int { return len(s.results) }

func (s *stubVectorStore) Save(string) error { return nil }

func (s *stubVectorStore) Load(string) error { return nil }

func (s *stubVectorStore) Close() error { return nil }

func testSnapshot(t *testing.T, vectors store.VectorStore) *Snapshot {
	t.Helper()
	corpus := fireCorpus()
	bm25 := store.NewBM25Index(corpus.Texts(), store.DefaultBM25Config())
	return &Snapshot{Corpus: corpus, BM25: bm25, Vectors: vectors}
}

func defaultOpts() Options {
	return Options{Alpha: -1}
}

func TestEngine_NoSnapshotReturnsEmpty(t *testing.T) {
	e := NewEngine(nil, nil, DefaultEngineConfig())

	results, err := e.Search(context.Background(), "fire", defaultOpts())
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEngine_EmptyCorpusDegradesToVectorOnly(t *testing.T) {
	vectors := &stubVectorStore{results: []store.VectorResult{{ID: "doc-9", Distance: 0.1}}}
	resolver := partialResolver{docs: map[catalog.DocumentID]catalog.Document{
		"doc-9": {ID: "doc-9", Title: "Invasive plant survey"},
	}}
	e := NewEngine(&stubEmbedder{vec: []float32{1, 0}}, resolver, DefaultEngineConfig())
	e.SetSnapshot(&Snapshot{
		Corpus:  catalog.NewCorpus(nil),
		BM25:    store.NewBM25Index(nil, store.DefaultBM25Config()),
		Vectors: vectors,
	})

	results, err := e.Search(context.Background(), "fire", defaultOpts())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, catalog.DocumentID("doc-9"), results[0].Document.ID)
	assert.Equal(t, 1, results[0].VecRank)
	assert.Zero(t, results[0].LexRank)
}

func TestEngine_EmptyCorpusWithoutVectorsReturnsEmpty(t *testing.T) {
	e := NewEngine(nil, nil, DefaultEngineConfig())
	e.SetSnapshot(&Snapshot{
		Corpus: catalog.NewCorpus(nil),
		BM25:   store.NewBM25Index(nil, store.DefaultBM25Config()),
	})

	results, err := e.Search(context.Background(), "fire", defaultOpts())
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEngine_LexicalOnlyWithoutEmbedder(t *testing.T) {
	e := NewEngine(nil, nil, DefaultEngineConfig())
	e.SetSnapshot(testSnapshot(t, nil))

	results, err := e.Search(context.Background(), "fire damage", defaultOpts())
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.Equal(t, catalog.DocumentID("doc-0"), results[0].Document.ID)
	for _, r := range results {
		assert.Zero(t, r.VecRank)
		assert.False(t, r.InBoth)
	}
}

func TestEngine_HybridMerge(t *testing.T) {
	vectors := &stubVectorStore{results: []store.VectorResult{
		{ID: "doc-1", Distance: 0.1},
		{ID: "doc-2", Distance: 0.5},
	}}
	e := NewEngine(&stubEmbedder{vec: []float32{1, 0}}, nil, DefaultEngineConfig())
	e.SetSnapshot(testSnapshot(t, vectors))

	results, err := e.Search(context.Background(), "fire damage", Options{Alpha: 0.5, Limit: 4})
	require.NoError(t, err)

	ids := make([]catalog.DocumentID, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.Document.ID)
	}
	assert.Contains(t, ids, catalog.DocumentID("doc-0"))
	assert.Contains(t, ids, catalog.DocumentID("doc-1"))
}

func TestEngine_VectorFailureDegradesToLexical(t *testing.T) {
	vectors := &stubVectorStore{err: errors.New("index corrupted")}
	e := NewEngine(&stubEmbedder{vec: []float32{1, 0}}, nil, DefaultEngineConfig())
	e.SetSnapshot(testSnapshot(t, vectors))

	results, err := e.Search(context.Background(), "watershed hydrology", defaultOpts())
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, catalog.DocumentID("doc-2"), results[0].Document.ID)
}

func TestEngine_EmbedderFailureDegradesToLexical(t *testing.T) {
	vectors := &stubVectorStore{results: []store.VectorResult{{ID: "doc-3", Distance: 0.1}}}
	e := NewEngine(&stubEmbedder{err: errors.New("connection refused")}, nil, DefaultEngineConfig())
	e.SetSnapshot(testSnapshot(t, vectors))

	results, err := e.Search(context.Background(), "timber harvest", defaultOpts())
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.Zero(t, r.VecRank)
	}
}

func TestEngine_LexicalOnlyOptionSkipsVectors(t *testing.T) {
	vectors := &stubVectorStore{results: []store.VectorResult{{ID: "doc-2", Distance: 0.1}}}
	e := NewEngine(&stubEmbedder{vec: []float32{1, 0}}, nil, DefaultEngineConfig())
	e.SetSnapshot(testSnapshot(t, vectors))

	results, err := e.Search(context.Background(), "fire", Options{Alpha: -1, LexicalOnly: true})
	require.NoError(t, err)
	for _, r := range results {
		assert.Zero(t, r.VecRank)
	}
}

func TestEngine_EmptyQueryIsNotAnError(t *testing.T) {
	e := NewEngine(nil, nil, DefaultEngineConfig())
	e.SetSnapshot(testSnapshot(t, nil))

	results, err := e.Search(context.Background(), "   ", defaultOpts())
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEngine_LimitCapped(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.MaxLimit = 2
	e := NewEngine(nil, nil, cfg)
	e.SetSnapshot(testSnapshot(t, nil))

	results, err := e.Search(context.Background(), "forest fire watershed timber", Options{Alpha: -1, Limit: 50})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(results), 2)
}

// failingResolver simulates a broken document store.
type failingResolver struct{}

func (failingResolver) GetBatch(_ context.Context, _ []catalog.DocumentID) ([]catalog.Document, error) {
	return nil, errors.New("database is locked")
}

func TestEngine_ResolverFailureIsAnError(t *testing.T) {
	e := NewEngine(nil, failingResolver{}, DefaultEngineConfig())
	e.SetSnapshot(testSnapshot(t, nil))

	_, err := e.Search(context.Background(), "fire", defaultOpts())
	assert.Error(t, err)
}

// partialResolver returns only a subset of the requested documents.
type partialResolver struct {
	docs map[catalog.DocumentID]catalog.Document
}

func (r partialResolver) GetBatch(_ context.Context, ids []catalog.DocumentID) ([]catalog.Document, error) {
	out := make([]catalog.Document, 0, len(ids))
	for _, id := range ids {
		if d, ok := r.docs[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func TestEngine_UnresolvableResultsSkipped(t *testing.T) {
	resolver := partialResolver{docs: map[catalog.DocumentID]catalog.Document{
		"doc-0": {ID: "doc-0", Title: "Forest fire damage assessment report"},
	}}
	e := NewEngine(nil, resolver, DefaultEngineConfig())
	e.SetSnapshot(testSnapshot(t, nil))

	// "watershed" matches doc-2, which the resolver cannot return.
	results, err := e.Search(context.Background(), "forest fire watershed", defaultOpts())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, catalog.DocumentID("doc-0"), results[0].Document.ID)
}

func TestEngine_SnapshotSwapIsVisible(t *testing.T) {
	e := NewEngine(nil, nil, DefaultEngineConfig())
	assert.Nil(t, e.Snapshot())

	snap := testSnapshot(t, nil)
	e.SetSnapshot(snap)
	assert.Same(t, snap, e.Snapshot())
}
