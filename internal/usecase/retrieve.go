package usecase

import (
	"kwsearch/internal/domain"
	"kwsearch/internal/port"
)

// RetrieveUseCase runs a retriever and drops weak matches.
type RetrieveUseCase struct {
	retriever         port.Retriever
	minScoreThreshold float64 // Filter results below this score (0 = disabled)
}

func NewRetrieveUseCase(retriever port.Retriever, minScoreThreshold float64) *RetrieveUseCase {
	return &RetrieveUseCase{
		retriever:         retriever,
		minScoreThreshold: minScoreThreshold,
	}
}

// Retrieve returns at most topK documents scoring at least the threshold.
func (u *RetrieveUseCase) Retrieve(query string, topK int) ([]domain.ScoredDocument, error) {
	results, err := u.retriever.Search(query, topK)
	if err != nil {
		return nil, err
	}

	if u.minScoreThreshold > 0 {
		results = u.filterByThreshold(results)
	}
	return results, nil
}

// filterByThreshold removes results below the minimum score threshold.
func (u *RetrieveUseCase) filterByThreshold(results []domain.ScoredDocument) []domain.ScoredDocument {
	filtered := make([]domain.ScoredDocument, 0, len(results))
	for _, r := range results {
		if r.Score >= u.minScoreThreshold {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
