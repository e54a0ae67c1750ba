// Package similarity implements the question-routing similarity engine:
// cosine scoring of a query embedding against a reference corpus, with a
// deterministic best-match selection.
package similarity

import (
	"math"

	"github.com/eduquery-ai/eduquery/internal/domain"
)

// Result describes the best corpus match for a query embedding.
type Result struct {
	// BestIndex is the index of the winning corpus entry. Ties on similarity
	// are broken by the lowest index.
	BestIndex int
	// Similarity is the cosine similarity of the winning entry, in [-1, 1].
	Similarity float64
	// Dissimilarity is 1 - Similarity.
	Dissimilarity float64
	// Degenerate is true when the winning pair involved a zero-magnitude
	// vector, in which case Similarity is 0 by definition.
	Degenerate bool
}

// Score computes the cosine similarity between query and every corpus vector
// and selects the entry with the maximum similarity. It is a pure function:
// identical inputs always produce identical results.
//
// Returns domain.ErrEmptyCorpus for a zero-length corpus and
// domain.ErrDimensionMismatch when any vector length differs from the query's.
func Score(query []float32, corpus [][]float32) (*Result, error) {
	if len(corpus) == 0 {
		return nil, domain.ErrEmptyCorpus
	}

	for _, entry := range corpus {
		if len(entry) != len(query) {
			return nil, domain.ErrDimensionMismatch
		}
	}

	best := &Result{BestIndex: -1}
	for i, entry := range corpus {
		sim, degenerate := cosine(query, entry)
		if best.BestIndex == -1 || sim > best.Similarity {
			best.BestIndex = i
			best.Similarity = sim
			best.Degenerate = degenerate
		}
	}

	best.Dissimilarity = 1 - best.Similarity
	return best, nil
}

// ScoreSharded partitions the corpus into shards, scores each independently,
// and reduces by max-of-maxes. The per-shard results carry global indexes, so
// the lowest-index tie-break is preserved and the output is identical to
// Score. Shard counts below 1 or above the corpus size are clamped.
func ScoreSharded(query []float32, corpus [][]float32, shards int) (*Result, error) {
	if len(corpus) == 0 {
		return nil, domain.ErrEmptyCorpus
	}

	for _, entry := range corpus {
		if len(entry) != len(query) {
			return nil, domain.ErrDimensionMismatch
		}
	}

	if shards < 1 {
		shards = 1
	}
	if shards > len(corpus) {
		shards = len(corpus)
	}

	results := make([]*Result, shards)
	done := make(chan struct{})

	per := (len(corpus) + shards - 1) / shards
	for s := 0; s < shards; s++ {
		go func(s int) {
			defer func() { done <- struct{}{} }()

			lo := s * per
			hi := lo + per
			if hi > len(corpus) {
				hi = len(corpus)
			}
			if lo >= hi {
				return
			}

			local := &Result{BestIndex: -1}
			for i := lo; i < hi; i++ {
				sim, degenerate := cosine(query, corpus[i])
				if local.BestIndex == -1 || sim > local.Similarity {
					local.BestIndex = i
					local.Similarity = sim
					local.Degenerate = degenerate
				}
			}
			results[s] = local
		}(s)
	}

	for s := 0; s < shards; s++ {
		<-done
	}

	var best *Result
	for _, r := range results {
		if r == nil || r.BestIndex == -1 {
			continue
		}
		// Strict > keeps the lowest global index on equal similarity because
		// shards are ordered by index range.
		if best == nil || r.Similarity > best.Similarity {
			best = r
		}
	}

	best.Dissimilarity = 1 - best.Similarity
	return best, nil
}

// Confidence maps a cosine similarity onto the single [0, 1] confidence scale
// used by the routing policy: higher means the reference corpus already
// covers the query. Negative similarities clamp to 0.
func Confidence(similarity float64) float64 {
	if similarity < 0 {
		return 0
	}
	if similarity > 1 {
		return 1
	}
	return similarity
}

// cosine returns the cosine similarity of two equal-length vectors. A
// zero-magnitude vector on either side makes the angle undefined; that case
// reports similarity 0 and degenerate=true.
func cosine(a, b []float32) (float64, bool) {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, true
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))

	// Guard against float drift outside [-1, 1].
	if sim > 1 {
		sim = 1
	}
	if sim < -1 {
		sim = -1
	}

	return sim, false
}
