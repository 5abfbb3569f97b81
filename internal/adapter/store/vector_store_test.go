package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kwsearch/internal/port"
)

func TestBoltVectorStore_ReplaceAndSearch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.db")
	s, err := OpenBoltVectorStore(path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Replace("mock", []port.VectorItem{
		{ID: 3, Vector: []float32{1, 0}},
		{ID: 1, Vector: []float32{0, 1}},
		{ID: 2, Vector: []float32{1, 0}},
		{ID: 4, Vector: []float32{1, 1}},
	}))

	results, err := s.Search([]float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, 2, results[0].ID)
	assert.Equal(t, 3, results[1].ID)
	assert.Equal(t, 4, results[2].ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)

	count, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	model, err := s.Model()
	require.NoError(t, err)
	assert.Equal(t, "mock", model)
}

func TestBoltVectorStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.db")
	s, err := OpenBoltVectorStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Replace("mock", []port.VectorItem{
		{ID: 1, Vector: []float32{0.5, 0.25}},
		{ID: 2, Vector: []float32{0, 1}},
	}))
	require.NoError(t, s.Close())

	reopened, err := OpenBoltVectorStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	count, _ := reopened.Count()
	assert.Equal(t, 2, count)
	model, _ := reopened.Model()
	assert.Equal(t, "mock", model)

	results, err := reopened.Search([]float32{0.5, 0.25}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].ID)
}

func TestBoltVectorStore_ReplaceDropsOldVectors(t *testing.T) {
	s, err := OpenBoltVectorStore(filepath.Join(t.TempDir(), "embeddings.db"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Replace("a", []port.VectorItem{{ID: 1, Vector: []float32{1}}, {ID: 2, Vector: []float32{1}}}))
	require.NoError(t, s.Replace("b", []port.VectorItem{{ID: 5, Vector: []float32{1, 2, 3}}}))

	count, _ := s.Count()
	assert.Equal(t, 1, count)

	_, err = s.Search([]float32{1}, 1)
	assert.Error(t, err)
}

func TestBoltVectorStore_RejectsMixedDimensions(t *testing.T) {
	s, err := OpenBoltVectorStore(filepath.Join(t.TempDir(), "embeddings.db"))
	require.NoError(t, err)
	defer s.Close()

	err = s.Replace("mock", []port.VectorItem{{ID: 1, Vector: []float32{1, 0}}, {ID: 2, Vector: []float32{1}}})
	assert.Error(t, err)

	count, _ := s.Count()
	assert.Zero(t, count)
}

func TestTopK(t *testing.T) {
	vectors := map[int][]float32{1: {1, 0}, 2: {0, 1}}

	assert.Nil(t, TopK([]float32{1, 0}, vectors, 0))
	assert.Nil(t, TopK([]float32{1, 0}, nil, 3))

	results := TopK([]float32{1, 0}, vectors, 10)
	require.Len(t, results, 2)
	assert.Equal(t, 1, results[0].ID)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
	assert.Zero(t, CosineSimilarity([]float32{1}, []float32{1, 1}))
}
