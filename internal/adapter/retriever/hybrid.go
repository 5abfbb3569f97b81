package retriever

import (
	"kwsearch/internal/domain"
	"kwsearch/internal/port"
)

// HybridRetriever combines BM25 lexical search with vector similarity search.
type HybridRetriever struct {
	bm25       port.Retriever
	semantic   port.Retriever
	rrfK       int     // RRF constant (typically 60)
	bm25Weight float64 // Weight for BM25 results (0-1)
}

func NewHybridRetriever(bm25, semantic port.Retriever, rrfK int, bm25Weight float64) *HybridRetriever {
	if rrfK <= 0 {
		rrfK = 60
	}
	if bm25Weight < 0 || bm25Weight > 1 {
		bm25Weight = 0.5
	}

	return &HybridRetriever{
		bm25:       bm25,
		semantic:   semantic,
		rrfK:       rrfK,
		bm25Weight: bm25Weight,
	}
}

// Search performs hybrid search combining BM25 and vector similarity.
// When one side fails the other side's ranking is returned alone.
func (r *HybridRetriever) Search(query string, k int) ([]domain.ScoredDocument, error) {
	if k <= 0 {
		return nil, nil
	}
	if r.semantic == nil {
		return r.bm25.Search(query, k)
	}

	candidateK := k * 3
	if candidateK < 20 {
		candidateK = 20
	}

	bm25Results, err := r.bm25.Search(query, candidateK)
	if err != nil {
		return r.semantic.Search(query, k)
	}

	vectorResults, err := r.semantic.Search(query, candidateK)
	if err != nil {
		return bm25Results[:min(k, len(bm25Results))], nil
	}

	fused := r.rrfFuse(bm25Results, vectorResults)
	if len(fused) > k {
		fused = fused[:k]
	}
	return fused, nil
}

// rrfFuse combines results using Reciprocal Rank Fusion.
// RRF score = Σ w/(k + rank + 1) over the lists a document appears in.
func (r *HybridRetriever) rrfFuse(bm25Results, vectorResults []domain.ScoredDocument) []domain.ScoredDocument {
	rrfScores := make(map[int]float64)
	docMap := make(map[int]domain.Document)

	for rank, result := range bm25Results {
		rrfScores[result.ID] += r.bm25Weight / float64(r.rrfK+rank+1)
		docMap[result.ID] = result.Document
	}

	vectorWeight := 1.0 - r.bm25Weight
	for rank, result := range vectorResults {
		rrfScores[result.ID] += vectorWeight / float64(r.rrfK+rank+1)
		if _, exists := docMap[result.ID]; !exists {
			docMap[result.ID] = result.Document
		}
	}

	fused := make([]domain.ScoredDocument, 0, len(rrfScores))
	for id, score := range rrfScores {
		fused = append(fused, domain.ScoredDocument{
			Document: docMap[id],
			Score:    score,
		})
	}

	SortResults(fused)
	return fused
}
