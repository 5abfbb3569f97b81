package port

import "context"

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates embeddings for the given texts.
	// Returns a slice of vectors, one per input text.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// VectorStore stores and searches embedding vectors keyed by document id.
type VectorStore interface {
	// Replace swaps the whole stored set for items in one step.
	Replace(model string, items []VectorItem) error

	// Search finds the k nearest vectors to the query.
	Search(query []float32, k int) ([]VectorResult, error)

	// Count returns the number of vectors in the store.
	Count() (int, error)

	// Model returns the model name the stored vectors were produced by.
	Model() (string, error)
}

// VectorItem represents a vector to be stored.
type VectorItem struct {
	ID     int       // Document ID
	Vector []float32 // Embedding vector
}

// VectorResult represents a search result.
type VectorResult struct {
	ID    int     // Document ID
	Score float64 // Cosine similarity (higher is better)
}
