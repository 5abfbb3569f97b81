package port

import "kwsearch/internal/domain"

// Retriever defines the interface for searching indexed content.
type Retriever interface {
	// Search returns at most limit documents ordered by descending score,
	// ties broken by ascending document id.
	Search(query string, limit int) ([]domain.ScoredDocument, error)
}
