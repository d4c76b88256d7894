package rerank

import (
	"sort"
	"strings"
	"unicode"

	"github.com/neuradynamics/neurarag/internal/models"
)

// Rerank reorders retrieved chunks by the number of distinct query terms that
// appear in each chunk's text. It is a cheap lexical signal on top of the
// embedding similarity: exact term matches float up, ties keep the original
// similarity order, and the set of chunks is never changed, only the order.
func Rerank(query string, results []models.ScoredChunk) []models.ScoredChunk {
	queryTerms := termSet(query)
	if len(queryTerms) == 0 {
		return results
	}

	reordered := make([]models.ScoredChunk, len(results))
	copy(reordered, results)

	overlaps := make([]int, len(reordered))
	for i, r := range reordered {
		overlaps[i] = overlap(queryTerms, r.Chunk.Text)
	}

	order := make([]int, len(reordered))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return overlaps[order[i]] > overlaps[order[j]]
	})

	out := make([]models.ScoredChunk, len(reordered))
	for i, idx := range order {
		out[i] = reordered[idx]
	}
	return out
}

// overlap counts distinct query terms present in the chunk's token set.
func overlap(queryTerms map[string]struct{}, text string) int {
	count := 0
	for term := range termSet(text) {
		if _, ok := queryTerms[term]; ok {
			count++
		}
	}
	return count
}

// termSet tokenizes on non-alphanumeric boundaries, case-insensitive.
func termSet(s string) map[string]struct{} {
	tokens := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}
