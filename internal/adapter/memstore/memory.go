// Package memstore keeps embedding vectors in process memory. It backs
// semantic search when embeddings are not persisted and in tests.
package memstore

import (
	"fmt"
	"sync"

	"kwsearch/internal/adapter/store"
	"kwsearch/internal/port"
)

type MemoryVectorStore struct {
	mu        sync.RWMutex
	model     string
	dimension int
	vectors   map[int][]float32
}

var _ port.VectorStore = (*MemoryVectorStore)(nil)

func NewMemoryVectorStore() *MemoryVectorStore {
	return &MemoryVectorStore{
		vectors: make(map[int][]float32),
	}
}

func (s *MemoryVectorStore) Replace(model string, items []port.VectorItem) error {
	vectors := make(map[int][]float32, len(items))
	dimension := 0
	for i, item := range items {
		if i == 0 {
			dimension = len(item.Vector)
		} else if len(item.Vector) != dimension {
			return fmt.Errorf("vector dimension mismatch: expected %d, got %d for document %d", dimension, len(item.Vector), item.ID)
		}
		if _, dup := vectors[item.ID]; dup {
			return fmt.Errorf("duplicate vector for document %d", item.ID)
		}
		vec := make([]float32, len(item.Vector))
		copy(vec, item.Vector)
		vectors[item.ID] = vec
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.model = model
	s.dimension = dimension
	s.vectors = vectors
	return nil
}

func (s *MemoryVectorStore) Search(query []float32, k int) ([]port.VectorResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.vectors) > 0 && len(query) != s.dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", s.dimension, len(query))
	}
	return store.TopK(query, s.vectors, k), nil
}

func (s *MemoryVectorStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors), nil
}

func (s *MemoryVectorStore) Model() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model, nil
}

func (s *MemoryVectorStore) Close() error {
	return nil
}
