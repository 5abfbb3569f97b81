package store

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"go.etcd.io/bbolt"
	"kwsearch/internal/adapter/codec"
	"kwsearch/internal/port"
)

var (
	bucketVectors    = []byte("vectors")
	bucketVectorMeta = []byte("vector_meta")
	keyModel         = []byte("model")
	keyDimension     = []byte("dimension")
)

// BoltVectorStore implements VectorStore using BoltDB for persistence.
// Uses brute-force search; every vector is kept in memory.
type BoltVectorStore struct {
	db *bbolt.DB

	mu        sync.RWMutex
	model     string
	dimension int
	vectors   map[int][]float32
}

var _ port.VectorStore = (*BoltVectorStore)(nil)

// OpenBoltVectorStore opens (or creates) the embeddings database at path.
func OpenBoltVectorStore(path string) (*BoltVectorStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketVectors, bucketVectorMeta} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &BoltVectorStore{
		db:      db,
		vectors: make(map[int][]float32),
	}
	if err := s.loadVectors(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load vectors: %w", err)
	}
	return s, nil
}

func (s *BoltVectorStore) loadVectors() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketVectorMeta)
		if data := meta.Get(keyModel); data != nil {
			if err := codec.Unmarshal(data, &s.model); err != nil {
				return fmt.Errorf("model: %w", err)
			}
		}
		if data := meta.Get(keyDimension); data != nil {
			if err := codec.Unmarshal(data, &s.dimension); err != nil {
				return fmt.Errorf("dimension: %w", err)
			}
		}

		return tx.Bucket(bucketVectors).ForEach(func(k, v []byte) error {
			id, err := parseIDKey(k)
			if err != nil {
				return err
			}
			var vec []float32
			if err := codec.Unmarshal(v, &vec); err != nil {
				return fmt.Errorf("vector %d: %w", id, err)
			}
			s.vectors[id] = vec
			return nil
		})
	})
}

// Replace swaps every stored vector for items in one transaction.
func (s *BoltVectorStore) Replace(model string, items []port.VectorItem) error {
	dimension, err := checkDimensions(items)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketVectors); err != nil {
			return err
		}
		b, err := tx.CreateBucket(bucketVectors)
		if err != nil {
			return err
		}
		for _, item := range items {
			if err := putCBOR(b, idKey(item.ID), item.Vector); err != nil {
				return err
			}
		}

		meta := tx.Bucket(bucketVectorMeta)
		if err := putCBOR(meta, keyModel, model); err != nil {
			return err
		}
		return putCBOR(meta, keyDimension, dimension)
	})
	if err != nil {
		return fmt.Errorf("failed to replace vectors: %w", err)
	}

	s.model = model
	s.dimension = dimension
	s.vectors = make(map[int][]float32, len(items))
	for _, item := range items {
		s.vectors[item.ID] = item.Vector
	}
	return nil
}

// Search finds the k nearest vectors to the query using cosine similarity.
func (s *BoltVectorStore) Search(query []float32, k int) ([]port.VectorResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.vectors) > 0 && len(query) != s.dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", s.dimension, len(query))
	}
	return TopK(query, s.vectors, k), nil
}

// Count returns the number of vectors in the store.
func (s *BoltVectorStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors), nil
}

// Model returns the embedding model the stored vectors came from.
func (s *BoltVectorStore) Model() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model, nil
}

func (s *BoltVectorStore) Close() error {
	return s.db.Close()
}

func checkDimensions(items []port.VectorItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	dimension := len(items[0].Vector)
	seen := make(map[int]struct{}, len(items))
	for _, item := range items {
		if len(item.Vector) != dimension {
			return 0, fmt.Errorf("vector dimension mismatch: expected %d, got %d for document %d",
				dimension, len(item.Vector), item.ID)
		}
		if _, dup := seen[item.ID]; dup {
			return 0, fmt.Errorf("duplicate vector for document %d", item.ID)
		}
		seen[item.ID] = struct{}{}
	}
	return dimension, nil
}

// TopK ranks vectors by cosine similarity to query, highest first, ties by
// ascending id.
func TopK(query []float32, vectors map[int][]float32, k int) []port.VectorResult {
	if k <= 0 || len(vectors) == 0 {
		return nil
	}

	results := make([]port.VectorResult, 0, len(vectors))
	for id, vec := range vectors {
		results = append(results, port.VectorResult{
			ID:    id,
			Score: CosineSimilarity(query, vec),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k]
}

// CosineSimilarity returns 0 when the lengths differ or either norm is 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
