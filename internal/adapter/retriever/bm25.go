package retriever

import (
	"sort"

	"kwsearch/internal/adapter/index"
	"kwsearch/internal/domain"
	"kwsearch/internal/port"
)

type BM25Retriever struct {
	scorer    *Scorer
	idx       *index.Index
	tokenizer port.Tokenizer
	params    Params
}

func NewBM25Retriever(idx *index.Index, tokenizer port.Tokenizer, params Params) *BM25Retriever {
	return &BM25Retriever{
		scorer:    NewScorer(idx, tokenizer),
		idx:       idx,
		tokenizer: tokenizer,
		params:    params,
	}
}

// Search scores every document sharing at least one query term. A term
// repeated in the query contributes once per occurrence.
func (r *BM25Retriever) Search(query string, k int) ([]domain.ScoredDocument, error) {
	if k <= 0 {
		return nil, nil
	}
	queryTokens := r.tokenizer.Tokenize(query)
	if len(queryTokens) == 0 {
		return nil, nil
	}

	scores := make(map[int]float64)
	for _, term := range queryTokens {
		for _, id := range r.idx.Postings(term) {
			scores[id] += r.scorer.bm25(id, term, r.params)
		}
	}

	results := make([]domain.ScoredDocument, 0, len(scores))
	for id, score := range scores {
		doc, ok := r.idx.Document(id)
		if !ok {
			continue
		}
		results = append(results, domain.ScoredDocument{Document: doc, Score: score})
	}

	SortResults(results)

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// SortResults orders by descending score, then ascending document id.
func SortResults(results []domain.ScoredDocument) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
}
