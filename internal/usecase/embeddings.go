package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"kwsearch/internal/domain"
	"kwsearch/internal/logging"
	"kwsearch/internal/port"
)

const DefaultEmbedBatchSize = 100

// EmbeddingsUseCase keeps the stored document vectors in step with the
// corpus.
type EmbeddingsUseCase struct {
	embedder  port.Embedder
	store     port.VectorStore
	batchSize int
	log       *slog.Logger
}

func NewEmbeddingsUseCase(embedder port.Embedder, vectorStore port.VectorStore, batchSize int) *EmbeddingsUseCase {
	if batchSize <= 0 {
		batchSize = DefaultEmbedBatchSize
	}
	return &EmbeddingsUseCase{
		embedder:  embedder,
		store:     vectorStore,
		batchSize: batchSize,
		log:       logging.WithComponent("embeddings"),
	}
}

// EmbedResult describes the vector set after LoadOrCreate.
type EmbedResult struct {
	Model     string
	Dimension int
	Count     int
	Reused    bool
}

// LoadOrCreate reuses the stored vectors when they come from the same
// model and cover as many documents as the corpus has. Otherwise the
// corpus is embedded again and the stored set replaced in one step.
func (u *EmbeddingsUseCase) LoadOrCreate(ctx context.Context, docs []domain.Document, progress func(done, total int)) (*EmbedResult, error) {
	model := u.embedder.ModelName()

	storedModel, err := u.store.Model()
	if err != nil {
		return nil, fmt.Errorf("failed to read vector metadata: %w", err)
	}
	count, err := u.store.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to count vectors: %w", err)
	}
	if storedModel == model && count == len(docs) && count > 0 {
		u.log.Debug("reusing stored embeddings", "model", model, "count", count)
		return &EmbedResult{Model: model, Dimension: u.embedder.Dimension(), Count: count, Reused: true}, nil
	}

	items, err := u.embedAll(ctx, docs, progress)
	if err != nil {
		return nil, err
	}
	if err := u.store.Replace(model, items); err != nil {
		return nil, fmt.Errorf("failed to store vectors: %w", err)
	}

	dimension := u.embedder.Dimension()
	if len(items) > 0 {
		dimension = len(items[0].Vector)
	}
	u.log.Info("embeddings stored", "model", model, "count", len(items), "dimension", dimension)
	return &EmbedResult{Model: model, Dimension: dimension, Count: len(items)}, nil
}

func (u *EmbeddingsUseCase) embedAll(ctx context.Context, docs []domain.Document, progress func(done, total int)) ([]port.VectorItem, error) {
	items := make([]port.VectorItem, 0, len(docs))
	for i := 0; i < len(docs); i += u.batchSize {
		end := i + u.batchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[i:end]

		texts := make([]string, len(batch))
		for j, doc := range batch {
			texts[j] = doc.Text()
		}

		vectors, err := u.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embedding batch failed: %w", err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(batch))
		}
		for j, doc := range batch {
			items = append(items, port.VectorItem{ID: doc.ID, Vector: vectors[j]})
		}

		if progress != nil {
			progress(end, len(docs))
		}
	}
	return items, nil
}

// EmbedText embeds a single non-blank text.
func (u *EmbeddingsUseCase) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return EmbedText(ctx, u.embedder, text)
}

// EmbedText embeds a single non-blank text with embedder.
func EmbedText(ctx context.Context, embedder port.Embedder, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: input text cannot be empty", domain.ErrInvalidArgument)
	}
	vectors, err := embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for 1 text", len(vectors))
	}
	return vectors[0], nil
}
