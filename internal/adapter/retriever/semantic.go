package retriever

import (
	"context"
	"fmt"
	"strings"

	"kwsearch/internal/domain"
	"kwsearch/internal/port"
)

// DocumentSource resolves document ids to their records. *index.Index
// satisfies it.
type DocumentSource interface {
	Document(id int) (domain.Document, bool)
}

type SemanticRetriever struct {
	vectorStore port.VectorStore
	embedder    port.Embedder
	docs        DocumentSource
}

func NewSemanticRetriever(
	vectorStore port.VectorStore,
	embedder port.Embedder,
	docs DocumentSource,
) *SemanticRetriever {
	return &SemanticRetriever{
		vectorStore: vectorStore,
		embedder:    embedder,
		docs:        docs,
	}
}

func (r *SemanticRetriever) Search(query string, k int) ([]domain.ScoredDocument, error) {
	return r.SearchContext(context.Background(), query, k)
}

// SearchContext ranks documents by cosine similarity between the query
// embedding and each stored document vector.
func (r *SemanticRetriever) SearchContext(ctx context.Context, query string, k int) ([]domain.ScoredDocument, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query cannot be empty", domain.ErrInvalidArgument)
	}
	if r.vectorStore == nil || r.embedder == nil {
		return nil, fmt.Errorf("%w: embeddings not configured", domain.ErrEmbeddingsUnavailable)
	}
	if k <= 0 {
		return nil, nil
	}

	embeddings, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("embedding returned empty result")
	}

	results, err := r.vectorStore.Search(embeddings[0], k)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	docs := make([]domain.ScoredDocument, 0, len(results))
	for _, result := range results {
		doc, ok := r.docs.Document(result.ID)
		if !ok {
			continue
		}
		docs = append(docs, domain.ScoredDocument{
			Document: doc,
			Score:    result.Score,
		})
	}

	return docs, nil
}
