// Package index builds and reloads the search snapshot: corpus, BM25
// index, and vector index, persisted under the data directory.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofrs/flock"

	"github.com/rangerlabs/geocat/internal/catalog"
	"github.com/rangerlabs/geocat/internal/embed"
	"github.com/rangerlabs/geocat/internal/search"
	"github.com/rangerlabs/geocat/internal/store"
)

const (
	// VectorIndexFile is the HNSW graph filename inside the data directory.
	VectorIndexFile = "vectors.hnsw"

	// lockFile guards rebuilds against concurrent geocat processes.
	lockFile = ".rebuild.lock"

	// DefaultBatchSize is the embedding batch size during a build.
	DefaultBatchSize = 32
)

// BuilderConfig carries the build inputs.
type BuilderConfig struct {
	CatalogPath string
	DataDir     string
	BatchSize   int
}

// Builder constructs a search snapshot from a catalog file and persists
// its durable parts (documents in SQLite, vectors on disk). BM25 is cheap
// enough to rebuild in memory on every load and is never persisted.
type Builder struct {
	embedder embed.Embedder
	docs     *store.DocumentStore
	config   BuilderConfig
}

// NewBuilder creates a builder.
func NewBuilder(embedder embed.Embedder, docs *store.DocumentStore, cfg BuilderConfig) (*Builder, error) {
	if embedder == nil {
		return nil, fmt.Errorf("builder requires an embedder")
	}
	if docs == nil {
		return nil, fmt.Errorf("builder requires a document store")
	}
	if cfg.CatalogPath == "" {
		return nil, fmt.Errorf("builder requires a catalog path")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Builder{embedder: embedder, docs: docs, config: cfg}, nil
}

// Build loads the catalog, embeds it, and constructs a complete snapshot.
// The rebuild is exclusive across processes via a file lock; a held lock
// is an immediate error rather than a silent queue.
func (b *Builder) Build(ctx context.Context) (*search.Snapshot, error) {
	lock, err := b.acquireLock()
	if err != nil {
		return nil, err
	}
	defer func() { _ = lock.Unlock() }()

	start := time.Now()

	docs, err := catalog.LoadCatalog(b.config.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	corpus := catalog.NewCorpus(docs)

	bm25 := store.NewBM25Index(corpus.Texts(), store.DefaultBM25Config())

	vectors, err := b.buildVectors(ctx, corpus)
	if err != nil {
		return nil, err
	}

	if err := b.persist(ctx, corpus, vectors); err != nil {
		_ = vectors.Close()
		return nil, err
	}

	slog.Info("index_built",
		"documents", corpus.Len(),
		"model", b.embedder.ModelName(),
		"dimensions", b.embedder.Dimensions(),
		"duration", time.Since(start).Round(time.Millisecond))

	return &search.Snapshot{Corpus: corpus, BM25: bm25, Vectors: vectors}, nil
}

func (b *Builder) acquireLock() (*flock.Flock, error) {
	if err := os.MkdirAll(b.config.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	lock := flock.New(filepath.Join(b.config.DataDir, lockFile))
	acquired, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire rebuild lock: %w", err)
	}
	if !acquired {
		return nil, fmt.Errorf("another rebuild is in progress (lock held at %s)", lock.Path())
	}
	return lock, nil
}

// buildVectors embeds the corpus in batches and loads an HNSW index.
func (b *Builder) buildVectors(ctx context.Context, corpus *catalog.Corpus) (*store.HNSWStore, error) {
	vectors, err := store.NewHNSWStore(store.DefaultVectorStoreConfig(b.embedder.Dimensions()))
	if err != nil {
		return nil, fmt.Errorf("create vector store: %w", err)
	}

	texts := corpus.Texts()
	ids := corpus.IDs()

	for batchStart := 0; batchStart < len(texts); batchStart += b.config.BatchSize {
		end := batchStart + b.config.BatchSize
		if end > len(texts) {
			end = len(texts)
		}

		embeddings, err := b.embedder.EmbedBatch(ctx, texts[batchStart:end])
		if err != nil {
			_ = vectors.Close()
			return nil, fmt.Errorf("embed documents [%d:%d]: %w", batchStart, end, err)
		}
		if err := vectors.Add(ctx, ids[batchStart:end], embeddings); err != nil {
			_ = vectors.Close()
			return nil, fmt.Errorf("index embeddings [%d:%d]: %w", batchStart, end, err)
		}

		slog.Debug("embedding_progress", "completed", end, "total", len(texts))
	}

	return vectors, nil
}

// persist writes the durable snapshot parts: documents into SQLite, the
// vector index to disk, and the index metadata into the state table.
func (b *Builder) persist(ctx context.Context, corpus *catalog.Corpus, vectors *store.HNSWStore) error {
	if err := b.docs.ReplaceAll(ctx, corpus.Documents()); err != nil {
		return fmt.Errorf("persist documents: %w", err)
	}

	if err := vectors.Save(b.VectorIndexPath()); err != nil {
		return fmt.Errorf("persist vector index: %w", err)
	}

	dims := strconv.Itoa(b.embedder.Dimensions())
	if err := b.docs.SetState(ctx, store.StateKeyIndexDimension, dims); err != nil {
		return fmt.Errorf("record index dimension: %w", err)
	}
	if err := b.docs.SetState(ctx, store.StateKeyIndexModel, b.embedder.ModelName()); err != nil {
		return fmt.Errorf("record index model: %w", err)
	}
	return nil
}

// VectorIndexPath returns where the HNSW graph is persisted.
func (b *Builder) VectorIndexPath() string {
	return filepath.Join(b.config.DataDir, VectorIndexFile)
}

// LoadSnapshot reconstructs a snapshot from previously persisted state:
// documents from the store, BM25 rebuilt in memory, vectors loaded from
// disk. A dimension mismatch between the stored index and the configured
// embedder is detected from the state table and reported as an error.
func LoadSnapshot(ctx context.Context, docs *store.DocumentStore, embedder embed.Embedder, dataDir string) (*search.Snapshot, error) {
	records, err := docs.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no indexed documents found; run 'geocat index' first")
	}
	corpus := catalog.NewCorpus(records)

	bm25 := store.NewBM25Index(corpus.Texts(), store.DefaultBM25Config())

	dims, err := storedDimensions(ctx, docs)
	if err != nil {
		return nil, err
	}
	if embedder != nil && embedder.Dimensions() > 0 && dims > 0 && embedder.Dimensions() != dims {
		return nil, store.ErrDimensionMismatch{Expected: dims, Got: embedder.Dimensions()}
	}
	if dims <= 0 {
		// Never indexed with vectors; serve lexical-only.
		return &search.Snapshot{Corpus: corpus, BM25: bm25}, nil
	}

	vectors, err := store.NewHNSWStore(store.DefaultVectorStoreConfig(dims))
	if err != nil {
		return nil, fmt.Errorf("create vector store: %w", err)
	}
	vectorPath := filepath.Join(dataDir, VectorIndexFile)
	if err := vectors.Load(vectorPath); err != nil {
		// A missing vector index degrades to lexical-only search.
		slog.Warn("vector_index_unavailable", "path", vectorPath, "error", err)
		_ = vectors.Close()
		return &search.Snapshot{Corpus: corpus, BM25: bm25}, nil
	}

	return &search.Snapshot{Corpus: corpus, BM25: bm25, Vectors: vectors}, nil
}

func storedDimensions(ctx context.Context, docs *store.DocumentStore) (int, error) {
	raw, err := docs.GetState(ctx, store.StateKeyIndexDimension)
	if err != nil {
		return 0, fmt.Errorf("read index dimension: %w", err)
	}
	if raw == "" {
		return 0, nil
	}
	dims, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse index dimension %q: %w", raw, err)
	}
	return dims, nil
}
