// Package store provides the two retrieval indexes (in-process BM25 and an
// HNSW vector store) plus SQLite persistence for document records.
package store

import (
	"context"
	"fmt"

	"github.com/rangerlabs/geocat/internal/catalog"
)

// State keys for the document store's key-value table. Used to detect an
// embedder change between index build and query time.
const (
	// StateKeyIndexDimension stores the embedding dimension used for the index.
	StateKeyIndexDimension = "index_embedding_dimension"
	// StateKeyIndexModel stores the embedding model name used for the index.
	StateKeyIndexModel = "index_embedding_model"
)

// VectorResult is a single vector search hit. Distance is the raw backend
// distance: lower is better, ascending order is best-first. This is the
// opposite ordering convention from BM25 scores, and the fusion engine is
// the only component allowed to reconcile the two.
type VectorResult struct {
	ID       catalog.DocumentID
	Distance float32
}

// VectorStore abstracts the embedding-similarity backend behind one
// contract: ranked (id, distance) pairs, ascending by distance. Backend
// identities are mapped to DocumentIDs inside the adapter; callers never
// see backend-native keys.
type VectorStore interface {
	// Add inserts vectors with their IDs. An existing ID is replaced.
	Add(ctx context.Context, ids []catalog.DocumentID, vectors [][]float32) error

	// Search finds the k nearest neighbors to the query vector.
	// An empty store returns an empty slice, not an error.
	Search(ctx context.Context, query []float32, k int) ([]VectorResult, error)

	// Count returns the number of vectors in the store.
	Count() int

	// Persistence.
	Save(path string) error
	Load(path string) error
	Close() error
}

// VectorStoreConfig configures the HNSW vector store.
type VectorStoreConfig struct {
	// Dimensions is the vector dimension (384 for MiniLM, 768 for Gemma-class
	// models, 256 for the static fallback embedder).
	Dimensions int

	// Metric is the distance metric: "cos" (cosine) or "l2" (euclidean).
	Metric string

	// M is the HNSW max connections per layer.
	M int

	// EfSearch is the HNSW query-time search width.
	EfSearch int
}

// DefaultVectorStoreConfig returns sensible defaults for the vector store.
func DefaultVectorStoreConfig(dimensions int) VectorStoreConfig {
	return VectorStoreConfig{
		Dimensions: dimensions,
		Metric:     "cos",
		M:          16,
		EfSearch:   64,
	}
}

// BM25Config configures the lexical index.
type BM25Config struct {
	// K1 is the term frequency saturation parameter.
	K1 float64

	// B is the document length normalization parameter.
	B float64

	// MinTokenLength is the minimum token length to index.
	MinTokenLength int
}

// DefaultBM25Config returns the standard Okapi parameters.
func DefaultBM25Config() BM25Config {
	return BM25Config{
		K1:             1.2,
		B:              0.75,
		MinTokenLength: 2,
	}
}

// ErrDimensionMismatch indicates a vector whose dimension does not match the
// store's configured dimension, typically because the embedder changed
// between index build and query.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d (run 'geocat index' to rebuild)", e.Expected, e.Got)
}
