package retriever

import (
	"math"

	"kwsearch/internal/domain"
)

// Relevance metrics used by cmd/benchmark to judge a ranking against a set
// of known-relevant document ids.

func PrecisionAtK(retrieved, relevant []int) float64 {
	if len(retrieved) == 0 {
		return 0
	}
	relevantSet := make(map[int]bool)
	for _, r := range relevant {
		relevantSet[r] = true
	}
	hits := 0
	for _, r := range retrieved {
		if relevantSet[r] {
			hits++
		}
	}
	return float64(hits) / float64(len(retrieved))
}

func RecallAtK(retrieved, relevant []int) float64 {
	if len(relevant) == 0 {
		return 0
	}
	relevantSet := make(map[int]bool)
	for _, r := range relevant {
		relevantSet[r] = true
	}
	hits := 0
	for _, r := range retrieved {
		if relevantSet[r] {
			hits++
		}
	}
	return float64(hits) / float64(len(relevant))
}

// ReciprocalRank is 1/rank of the first relevant id, 0 if none appears.
func ReciprocalRank(retrieved, relevant []int) float64 {
	relevantSet := make(map[int]bool)
	for _, r := range relevant {
		relevantSet[r] = true
	}
	for i, r := range retrieved {
		if relevantSet[r] {
			return 1.0 / float64(i+1)
		}
	}
	return 0
}

func NDCG(scores, ideal []float64) float64 {
	dcg := calculateDCG(scores)
	idcg := calculateDCG(ideal)
	if idcg == 0 {
		return 0
	}
	return dcg / idcg
}

func calculateDCG(scores []float64) float64 {
	dcg := 0.0
	for i, score := range scores {
		dcg += score / math.Log2(float64(i+2))
	}
	return dcg
}

// IDs extracts document ids in ranking order.
func IDs(results []domain.ScoredDocument) []int {
	ids := make([]int, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	return ids
}
