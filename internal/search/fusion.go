package search

import (
	"sort"

	"github.com/rangerlabs/geocat/internal/catalog"
	"github.com/rangerlabs/geocat/internal/store"
)

// FusedResult is a single document after RRF fusion of the vector and
// lexical rankings.
type FusedResult struct {
	ID      catalog.DocumentID
	Score   float64 // combined RRF score
	VecRank int     // position in the vector list (1-indexed, 0 if absent)
	LexRank int     // position in the lexical list (1-indexed, 0 if absent)
	InBoth  bool    // document appeared in both rankings
}

// Fuser combines vector and BM25 rankings with weighted Reciprocal Rank
// Fusion:
//
//	score(d) = alpha/(K + vecRank) + (1-alpha)/(K + lexRank)
//
// A document absent from one ranking receives no contribution from it.
// That keeps a BM25-only match from being padded with phantom vector
// credit, and vice versa. Documents whose accumulated score is zero are
// excluded entirely, so at the alpha boundaries the output is exactly the
// surviving ranker's ordering.
type Fuser struct {
	Alpha float64 // blend weight in [0,1] favoring the vector signal
	K     int     // RRF smoothing constant
}

// NewFuser creates a Fuser, applying defaults for out-of-range values.
func NewFuser(alpha float64, k int) *Fuser {
	if alpha < 0 || alpha > 1 {
		alpha = DefaultAlpha
	}
	if k <= 0 {
		k = DefaultRRFConstant
	}
	return &Fuser{Alpha: alpha, K: k}
}

// Fuse merges a vector result list and a dense positional BM25 score
// vector into a single ranking of at most k documents.
//
// vec must already be sorted ascending by distance (nearest first), as the
// vector store returns it. lexical holds one BM25 score per corpus
// position; positions scoring exactly zero are excluded from the lexical
// ranking so that matching nothing earns nothing.
//
// Vector IDs with no corpus position are dropped; the count of drops is
// returned so callers can log index/corpus drift. An empty or nil corpus
// means the lexical side is uninitialized: the vector ranking passes
// through without position checks rather than being dropped wholesale.
func (f *Fuser) Fuse(
	vec []store.VectorResult,
	lexical []float64,
	corpus *catalog.Corpus,
	k int,
) (results []FusedResult, dropped int) {
	if k <= 0 {
		return []FusedResult{}, 0
	}
	hasCorpus := corpus != nil && corpus.Len() > 0

	fused := make(map[catalog.DocumentID]*FusedResult, len(vec)+k)

	// Vector contribution: rank order is the input order.
	for r, v := range vec {
		if hasCorpus {
			if _, ok := corpus.PositionOf(v.ID); !ok {
				dropped++
				continue
			}
		}
		entry, ok := fused[v.ID]
		if !ok {
			entry = &FusedResult{ID: v.ID}
			fused[v.ID] = entry
		}
		entry.VecRank = r + 1
		entry.Score += f.Alpha / float64(f.K+r+1)
	}

	// Lexical contribution: rank corpus positions by score descending,
	// excluding exact zeros. Ties break by position for determinism.
	if hasCorpus {
		type posScore struct {
			pos   int
			score float64
		}
		ranked := make([]posScore, 0, len(lexical))
		for pos, score := range lexical {
			if score > 0 {
				ranked = append(ranked, posScore{pos, score})
			}
		}
		sort.Slice(ranked, func(i, j int) bool {
			if ranked[i].score != ranked[j].score {
				return ranked[i].score > ranked[j].score
			}
			return ranked[i].pos < ranked[j].pos
		})

		for r, ps := range ranked {
			id, ok := corpus.IDAt(ps.pos)
			if !ok {
				dropped++
				continue
			}
			entry, ok := fused[id]
			if !ok {
				entry = &FusedResult{ID: id}
				fused[id] = entry
			}
			entry.LexRank = r + 1
			entry.Score += (1 - f.Alpha) / float64(f.K+r+1)
			if entry.VecRank > 0 {
				entry.InBoth = true
			}
		}
	}

	// A zero accumulated score means every contribution was weighted away;
	// such documents never rank.
	results = make([]FusedResult, 0, len(fused))
	for _, entry := range fused {
		if entry.Score <= 0 {
			continue
		}
		results = append(results, *entry)
	}

	// Deterministic order: score, then both-lists membership, then ID.
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.InBoth != b.InBoth {
			return a.InBoth
		}
		return a.ID < b.ID
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, dropped
}
