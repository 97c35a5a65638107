package search

import (
	"cmp"
	"slices"

	"github.com/kailas-cloud/imgdex/internal/domain/index"
	"github.com/kailas-cloud/imgdex/internal/domain/search/result"
)

// rank keeps scores at or above threshold, orders them by score descending
// (ties keep index order) and returns at most topK results.
// NaN scores never pass the threshold.
func rank(idx *index.Index, scores []float64, threshold float64, topK int) []result.Result {
	type hit struct {
		pos   int
		score float64
	}

	hits := make([]hit, 0, len(scores))
	for i, s := range scores {
		if s >= threshold {
			hits = append(hits, hit{pos: i, score: s})
		}
	}

	slices.SortStableFunc(hits, func(a, b hit) int {
		return cmp.Compare(b.score, a.score)
	})

	if len(hits) > topK {
		hits = hits[:topK]
	}

	results := make([]result.Result, 0, len(hits))
	for _, h := range hits {
		rec := idx.At(h.pos)
		results = append(results, result.New(rec.ID(), rec.SourcePath(), rec.Filename(), h.score))
	}
	return results
}

// CountAtLeast returns how many scores pass threshold. It is the result count
// of a search with unbounded top-k.
func CountAtLeast(scores []float64, threshold float64) int {
	n := 0
	for _, s := range scores {
		if s >= threshold {
			n++
		}
	}
	return n
}
