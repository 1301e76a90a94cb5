// Package search provides hybrid retrieval combining BM25 and vector
// similarity, fused with Reciprocal Rank Fusion (RRF).
package search

import (
	"time"

	"github.com/rangerlabs/geocat/internal/catalog"
)

// DefaultRRFConstant is the standard RRF smoothing parameter.
// k=60 is empirically validated across domains (used by Azure AI Search,
// OpenSearch, etc.).
const DefaultRRFConstant = 60

// DefaultAlpha balances the vector and lexical signals equally.
const DefaultAlpha = 0.5

// DefaultLimit is the result count when the caller does not specify one.
const DefaultLimit = 10

// MaxLimit caps the result count a caller may request.
const MaxLimit = 100

// DefaultVectorTimeout bounds the vector side of a hybrid query. Past it
// the engine degrades to lexical-only rather than blocking the caller.
const DefaultVectorTimeout = 5 * time.Second

// Options control a single search call.
type Options struct {
	// Limit is the maximum number of results (default DefaultLimit, capped
	// at MaxLimit).
	Limit int

	// Alpha is the blend weight in [0,1] favoring the vector signal.
	// 0 is lexical-only ranking, 1 is vector-only ranking.
	Alpha float64

	// LexicalOnly skips the vector side entirely.
	LexicalOnly bool
}

// Result is one hybrid search hit with its provenance.
type Result struct {
	Document catalog.Document `json:"document"`
	Score    float64          `json:"score"`
	VecRank  int              `json:"vec_rank,omitempty"` // 1-indexed, 0 if absent
	LexRank  int              `json:"lex_rank,omitempty"` // 1-indexed, 0 if absent
	InBoth   bool             `json:"in_both"`
}

// EngineConfig carries the engine's tunables.
type EngineConfig struct {
	Alpha         float64
	RRFConstant   int
	DefaultLimit  int
	MaxLimit      int
	VectorTimeout time.Duration
}

// DefaultEngineConfig returns the standard engine settings.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Alpha:         DefaultAlpha,
		RRFConstant:   DefaultRRFConstant,
		DefaultLimit:  DefaultLimit,
		MaxLimit:      MaxLimit,
		VectorTimeout: DefaultVectorTimeout,
	}
}
