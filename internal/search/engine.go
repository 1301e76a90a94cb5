package search

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/rangerlabs/geocat/internal/catalog"
	"github.com/rangerlabs/geocat/internal/embed"
	"github.com/rangerlabs/geocat/internal/store"
)

// Snapshot bundles the state a query reads: one corpus and the two indexes
// built from it. A rebuild produces a fresh Snapshot and swaps it in
// atomically, so in-flight queries keep a consistent view.
type Snapshot struct {
	Corpus  *catalog.Corpus
	BM25    *store.BM25Index
	Vectors store.VectorStore
}

// DocumentResolver resolves result IDs back to full document records.
// *store.DocumentStore satisfies it.
type DocumentResolver interface {
	GetBatch(ctx context.Context, ids []catalog.DocumentID) ([]catalog.Document, error)
}

// Engine is the hybrid search facade. It runs the lexical and vector
// rankers concurrently, fuses their rankings with RRF, and resolves the
// winners to documents.
//
// Partial-source failure is not an error: a dead or slow vector backend
// degrades the query to lexical-only, and an uninitialized lexical index
// degrades to vector-only ranking. Search only returns an error for caller
// mistakes or a failing document store.
type Engine struct {
	snapshot atomic.Pointer[Snapshot]
	embedder embed.Embedder
	docs     DocumentResolver
	config   EngineConfig
}

// NewEngine creates a search engine. The embedder may be nil, in which
// case every query is lexical-only. The resolver may be nil, in which case
// documents are served from the corpus snapshot.
func NewEngine(embedder embed.Embedder, docs DocumentResolver, cfg EngineConfig) *Engine {
	def := DefaultEngineConfig()
	if cfg.Alpha < 0 || cfg.Alpha > 1 {
		cfg.Alpha = def.Alpha
	}
	if cfg.RRFConstant <= 0 {
		cfg.RRFConstant = def.RRFConstant
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = def.DefaultLimit
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = def.MaxLimit
	}
	if cfg.VectorTimeout <= 0 {
		cfg.VectorTimeout = def.VectorTimeout
	}
	return &Engine{
		embedder: embedder,
		docs:     docs,
		config:   cfg,
	}
}

// SetSnapshot atomically swaps the corpus and indexes queries run against.
func (e *Engine) SetSnapshot(s *Snapshot) {
	e.snapshot.Store(s)
}

// Snapshot returns the current snapshot, or nil before the first index load.
func (e *Engine) Snapshot() *Snapshot {
	return e.snapshot.Load()
}

// Search runs a hybrid query and returns at most opts.Limit results in
// fused rank order. An empty or whitespace query is not an error; it
// produces all-zero lexical scores and whatever the vector side returns.
func (e *Engine) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	snap := e.snapshot.Load()
	if snap == nil {
		return []Result{}, nil
	}

	lexReady := snap.BM25 != nil && snap.Corpus != nil && snap.Corpus.Len() > 0
	vecReady := !opts.LexicalOnly && e.embedder != nil && snap.Vectors != nil
	if !lexReady && !vecReady {
		return []Result{}, nil
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = e.config.DefaultLimit
	}
	if limit > e.config.MaxLimit {
		limit = e.config.MaxLimit
	}

	alpha := opts.Alpha
	if alpha < 0 || alpha > 1 {
		alpha = e.config.Alpha
	}

	var (
		lexScores  []float64
		vecResults []store.VectorResult
	)

	g, gctx := errgroup.WithContext(ctx)

	if lexReady {
		g.Go(func() error {
			tokens := store.Tokenize(query, store.DefaultBM25Config().MinTokenLength)
			lexScores = snap.BM25.GetScores(tokens)
			return nil
		})
	}

	if vecReady {
		g.Go(func() error {
			// Oversample so fusion has candidates beyond the final cut.
			vecResults = e.vectorSearch(gctx, snap, query, 2*limit)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fuser := NewFuser(alpha, e.config.RRFConstant)
	fused, dropped := fuser.Fuse(vecResults, lexScores, snap.Corpus, limit)
	if dropped > 0 {
		slog.Warn("vector_results_dropped",
			"count", dropped,
			"reason", "id not in corpus")
	}

	return e.resolve(ctx, snap, fused)
}

// vectorSearch embeds the query and searches the vector index, bounded by
// the configured timeout. Any failure is logged and swallowed; the query
// degrades to lexical-only.
func (e *Engine) vectorSearch(ctx context.Context, snap *Snapshot, query string, k int) []store.VectorResult {
	vctx, cancel := context.WithTimeout(ctx, e.config.VectorTimeout)
	defer cancel()

	qvec, err := e.embedder.Embed(vctx, query)
	if err != nil {
		slog.Warn("query_embedding_failed", "error", err)
		return nil
	}

	results, err := snap.Vectors.Search(vctx, qvec, k)
	if err != nil {
		slog.Warn("vector_search_failed", "error", err)
		return nil
	}
	return results
}

// resolve turns fused IDs into full results, via the document store when
// present, otherwise from the corpus. IDs that resolve to nothing are
// dropped.
func (e *Engine) resolve(ctx context.Context, snap *Snapshot, fused []FusedResult) ([]Result, error) {
	if len(fused) == 0 {
		return []Result{}, nil
	}

	byID := make(map[catalog.DocumentID]catalog.Document, len(fused))
	if e.docs != nil {
		ids := make([]catalog.DocumentID, len(fused))
		for i, f := range fused {
			ids[i] = f.ID
		}
		docs, err := e.docs.GetBatch(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("resolve documents: %w", err)
		}
		for _, d := range docs {
			byID[d.ID] = d
		}
	} else if snap.Corpus != nil {
		for _, f := range fused {
			if pos, ok := snap.Corpus.PositionOf(f.ID); ok {
				if doc, ok := snap.Corpus.DocumentAt(pos); ok {
					byID[f.ID] = doc
				}
			}
		}
	}

	results := make([]Result, 0, len(fused))
	for _, f := range fused {
		doc, ok := byID[f.ID]
		if !ok {
			slog.Warn("result_document_missing", "doc_id", string(f.ID))
			continue
		}
		results = append(results, Result{
			Document: doc,
			Score:    f.Score,
			VecRank:  f.VecRank,
			LexRank:  f.LexRank,
			InBoth:   f.InBoth,
		})
	}
	return results, nil
}
