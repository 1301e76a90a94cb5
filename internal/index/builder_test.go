package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rangerlabs/geocat/internal/embed"
	"github.com/rangerlabs/geocat/internal/store"
)

const testCatalog = `[
  {"id": "fire-2021", "title": "Forest fire damage assessment report", "source": "fsgeodata", "keywords": ["fire", "damage"]},
  {"id": "wildfire-risk", "title": "Wildfire risk map for national forests", "source": "fsgeodata"},
  {"id": "hydro-ws", "title": "Hydrology dataset for watershed analysis", "source": "rda"},
  {"id": "timber-2020", "title": "Timber harvest records 2020", "source": "gdd"}
]`

func writeCatalog(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(testCatalog), 0o644))
	return path
}

func newTestBuilder(t *testing.T) (*Builder, *store.DocumentStore, string) {
	t.Helper()
	dir := t.TempDir()

	docs, err := store.NewDocumentStore(filepath.Join(dir, "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = docs.Close() })

	b, err := NewBuilder(embed.NewStaticEmbedder(), docs, BuilderConfig{
		CatalogPath: writeCatalog(t, dir),
		DataDir:     dir,
		BatchSize:   2,
	})
	require.NoError(t, err)
	return b, docs, dir
}

func TestNewBuilder_Validation(t *testing.T) {
	docs, err := store.NewDocumentStore("")
	require.NoError(t, err)
	defer docs.Close()

	_, err = NewBuilder(nil, docs, BuilderConfig{CatalogPath: "x.json"})
	assert.Error(t, err)

	_, err = NewBuilder(embed.NewStaticEmbedder(), nil, BuilderConfig{CatalogPath: "x.json"})
	assert.Error(t, err)

	_, err = NewBuilder(embed.NewStaticEmbedder(), docs, BuilderConfig{})
	assert.Error(t, err)
}

func TestBuilder_Build(t *testing.T) {
	ctx := context.Background()
	b, docs, _ := newTestBuilder(t)

	snap, err := b.Build(ctx)
	require.NoError(t, err)
	defer snap.Vectors.Close()

	assert.Equal(t, 4, snap.Corpus.Len())
	assert.Equal(t, 4, snap.BM25.Len())
	assert.Equal(t, 4, snap.Vectors.Count())

	// Documents landed in the store.
	count, err := docs.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	// Vector index landed on disk.
	_, err = os.Stat(b.VectorIndexPath())
	assert.NoError(t, err)

	// Index metadata recorded for later dimension checks.
	dims, err := docs.GetState(ctx, store.StateKeyIndexDimension)
	require.NoError(t, err)
	assert.Equal(t, "256", dims)

	model, err := docs.GetState(ctx, store.StateKeyIndexModel)
	require.NoError(t, err)
	assert.Equal(t, "static", model)
}

func TestBuilder_RebuildIsIdempotent(t *testing.T) {
	ctx := context.Background()
	b, docs, _ := newTestBuilder(t)

	first, err := b.Build(ctx)
	require.NoError(t, err)
	first.Vectors.Close()

	second, err := b.Build(ctx)
	require.NoError(t, err)
	defer second.Vectors.Close()

	count, err := docs.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.Equal(t, 4, second.Vectors.Count())
}

func TestBuilder_HeldLockFailsFast(t *testing.T) {
	b, _, dir := newTestBuilder(t)

	other := flock.New(filepath.Join(dir, lockFile))
	locked, err := other.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer other.Unlock()

	_, err = b.Build(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rebuild is in progress")
}

func TestLoadSnapshot_RoundTrip(t *testing.T) {
	ctx := context.Background()
	b, docs, dir := newTestBuilder(t)

	built, err := b.Build(ctx)
	require.NoError(t, err)
	built.Vectors.Close()

	loaded, err := LoadSnapshot(ctx, docs, embed.NewStaticEmbedder(), dir)
	require.NoError(t, err)
	defer loaded.Vectors.Close()

	assert.Equal(t, built.Corpus.Len(), loaded.Corpus.Len())
	assert.Equal(t, built.Corpus.IDs(), loaded.Corpus.IDs())
	assert.Equal(t, 4, loaded.Vectors.Count())
	require.NotNil(t, loaded.BM25)
}

func TestLoadSnapshot_NoDocuments(t *testing.T) {
	docs, err := store.NewDocumentStore("")
	require.NoError(t, err)
	defer docs.Close()

	_, err = LoadSnapshot(context.Background(), docs, nil, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "geocat index")
}

func TestLoadSnapshot_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	b, docs, dir := newTestBuilder(t)

	built, err := b.Build(ctx)
	require.NoError(t, err)
	built.Vectors.Close()

	require.NoError(t, docs.SetState(ctx, store.StateKeyIndexDimension, "384"))

	_, err = LoadSnapshot(ctx, docs, embed.NewStaticEmbedder(), dir)
	require.Error(t, err)

	var mismatch store.ErrDimensionMismatch
	assert.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 384, mismatch.Expected)
}

func TestLoadSnapshot_MissingVectorIndexDegrades(t *testing.T) {
	ctx := context.Background()
	b, docs, dir := newTestBuilder(t)

	built, err := b.Build(ctx)
	require.NoError(t, err)
	built.Vectors.Close()

	require.NoError(t, os.Remove(b.VectorIndexPath()))

	loaded, err := LoadSnapshot(ctx, docs, embed.NewStaticEmbedder(), dir)
	require.NoError(t, err)
	assert.Nil(t, loaded.Vectors)
	assert.Equal(t, 4, loaded.Corpus.Len())
}

func TestLoadSnapshot_NeverVectorIndexed(t *testing.T) {
	ctx := context.Background()
	docs, err := store.NewDocumentStore("")
	require.NoError(t, err)
	defer docs.Close()

	b, _, _ := newTestBuilder(t)
	built, err := b.Build(ctx)
	require.NoError(t, err)
	built.Vectors.Close()

	// Copy the documents without any index state: lexical-only snapshot.
	require.NoError(t, docs.ReplaceAll(ctx, built.Corpus.Documents()))

	loaded, err := LoadSnapshot(ctx, docs, nil, t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, loaded.Vectors)
	require.NotNil(t, loaded.BM25)
}
