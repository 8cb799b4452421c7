package retrieval

import (
	"sort"

	"github.com/momentohub/MomentoBot/internal/models"
)

// MergeRank combines result lists from multiple sources into one ranking by
// descending similarity. The merged list retains every result whose rank
// index is at most topK, so the output holds up to topK+1 entries. Ties keep
// their pre-sort relative order.
func MergeRank(topK int, lists ...[]models.VectorResult) []models.VectorResult {
	var merged []models.VectorResult
	for _, list := range lists {
		merged = append(merged, list...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})

	if topK < 0 {
		topK = 0
	}
	if len(merged) > topK+1 {
		merged = merged[:topK+1]
	}
	return merged
}
