package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rangerlabs/geocat/internal/catalog"
)

func newTestDocStore(t *testing.T) *DocumentStore {
	t.Helper()
	s, err := NewDocumentStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleDocs() []catalog.Document {
	return []catalog.Document{
		{
			ID:       "a",
			Title:    "Fire perimeters",
			Source:   "FSGeodata",
			Keywords: []string{"fire", "wildfire"},
		},
		{
			ID:       "b",
			Title:    "Timber sales",
			Source:   "GDD",
			Keywords: []string{"timber", "fire"},
		},
		{
			ID:       "c",
			Title:    "Fire perimeters",
			Source:   "RDA",
			Keywords: []string{"fire"},
		},
	}
}

func TestDocumentStore_ReplaceAllAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestDocStore(t)

	require.NoError(t, s.ReplaceAll(ctx, sampleDocs()))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	doc, err := s.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "Timber sales", doc.Title)
	assert.Equal(t, []string{"timber", "fire"}, doc.Keywords)

	_, err = s.Get(ctx, "missing")
	assert.Error(t, err)
}

func TestDocumentStore_ReplaceAllIsWholesale(t *testing.T) {
	ctx := context.Background()
	s := newTestDocStore(t)

	require.NoError(t, s.ReplaceAll(ctx, sampleDocs()))
	require.NoError(t, s.ReplaceAll(ctx, sampleDocs()[:1]))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = s.Get(ctx, "b")
	assert.Error(t, err)
}

func TestDocumentStore_GetBatchPreservesOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestDocStore(t)
	require.NoError(t, s.ReplaceAll(ctx, sampleDocs()))

	docs, err := s.GetBatch(ctx, []catalog.DocumentID{"c", "missing", "a"})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, catalog.DocumentID("c"), docs[0].ID)
	assert.Equal(t, catalog.DocumentID("a"), docs[1].ID)
}

func TestDocumentStore_AllInPositionOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestDocStore(t)
	require.NoError(t, s.ReplaceAll(ctx, sampleDocs()))

	docs, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, catalog.DocumentID("a"), docs[0].ID)
	assert.Equal(t, catalog.DocumentID("b"), docs[1].ID)
	assert.Equal(t, catalog.DocumentID("c"), docs[2].ID)
}

func TestDocumentStore_Sources(t *testing.T) {
	ctx := context.Background()
	s := newTestDocStore(t)
	require.NoError(t, s.ReplaceAll(ctx, sampleDocs()))

	sources, err := s.Sources(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"FSGeodata", "GDD", "RDA"}, sources)
}

func TestDocumentStore_KeywordFrequencies(t *testing.T) {
	ctx := context.Background()
	s := newTestDocStore(t)
	require.NoError(t, s.ReplaceAll(ctx, sampleDocs()))

	freqs, err := s.KeywordFrequencies(ctx, 10, "")
	require.NoError(t, err)
	require.NotEmpty(t, freqs)
	assert.Equal(t, "fire", freqs[0].Keyword)
	assert.Equal(t, 3, freqs[0].Frequency)

	// Restricted to one source.
	freqs, err = s.KeywordFrequencies(ctx, 10, "GDD")
	require.NoError(t, err)
	require.Len(t, freqs, 2)
	for _, kf := range freqs {
		assert.Equal(t, 1, kf.Frequency)
	}
}

func TestDocumentStore_DuplicateTitles(t *testing.T) {
	ctx := context.Background()
	s := newTestDocStore(t)
	require.NoError(t, s.ReplaceAll(ctx, sampleDocs()))

	dups, err := s.DuplicateTitles(ctx, 2)
	require.NoError(t, err)
	require.Len(t, dups, 1)
	assert.Equal(t, "Fire perimeters", dups[0].Title)
	assert.Equal(t, 2, dups[0].Count)
	assert.ElementsMatch(t,
		[]catalog.DocumentID{"a", "c"}, dups[0].DocIDs)
}

func TestDocumentStore_StateRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestDocStore(t)

	// Missing key is empty, not an error.
	val, err := s.GetState(ctx, StateKeyIndexDimension)
	require.NoError(t, err)
	assert.Equal(t, "", val)

	require.NoError(t, s.SetState(ctx, StateKeyIndexDimension, "384"))
	require.NoError(t, s.SetState(ctx, StateKeyIndexDimension, "256")) // upsert

	val, err = s.GetState(ctx, StateKeyIndexDimension)
	require.NoError(t, err)
	assert.Equal(t, "256", val)
}

func TestDocumentStore_PersistsToDisk(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalog.db")

	s, err := NewDocumentStore(path)
	require.NoError(t, err)
	require.NoError(t, s.ReplaceAll(ctx, sampleDocs()))
	require.NoError(t, s.Close())

	reopened, err := NewDocumentStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	count, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestDocumentStore_ClosedErrors(t *testing.T) {
	ctx := context.Background()
	s, err := NewDocumentStore("")
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close()) // idempotent

	assert.Error(t, s.ReplaceAll(ctx, sampleDocs()))
	_, err = s.Count(ctx)
	assert.Error(t, err)
}
