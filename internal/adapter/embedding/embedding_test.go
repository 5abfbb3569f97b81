package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kwsearch/internal/adapter/store"
)

func embeddingServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		resp := embeddingResponse{}
		// Answer in reverse order; the client must place vectors by index.
		for i := len(req.Input) - 1; i >= 0; i-- {
			resp.Data = append(resp.Data, embeddingData{
				Index:     i,
				Embedding: []float32{float32(len(req.Input[i])), 1},
			})
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestOpenAICompatibleEmbedder_Embed(t *testing.T) {
	var calls atomic.Int32
	srv := embeddingServer(t, &calls)
	defer srv.Close()
	t.Setenv("KWSEARCH_TEST_KEY", "secret")

	emb, err := NewOpenAICompatibleEmbedder("KWSEARCH_TEST_KEY", "text-embedding-3-small", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 1536, emb.Dimension())

	vecs, err := emb.Embed(context.Background(), []string{"a", "bbb"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 1}, {3, 1}}, vecs)
}

func TestOpenAICompatibleEmbedder_Batches(t *testing.T) {
	var calls atomic.Int32
	srv := embeddingServer(t, &calls)
	defer srv.Close()
	t.Setenv("KWSEARCH_TEST_KEY", "secret")

	emb, err := NewOpenAICompatibleEmbedder("KWSEARCH_TEST_KEY", "m", srv.URL)
	require.NoError(t, err)

	texts := make([]string, MaxBatch+5)
	for i := range texts {
		texts[i] = "x"
	}
	vecs, err := emb.Embed(context.Background(), texts)
	require.NoError(t, err)
	assert.Len(t, vecs, len(texts))
	assert.Equal(t, int32(2), calls.Load())
}

func TestOpenAICompatibleEmbedder_Errors(t *testing.T) {
	t.Setenv("KWSEARCH_MISSING_KEY", "")
	_, err := NewOpenAICompatibleEmbedder("KWSEARCH_MISSING_KEY", "m", "http://unused")
	assert.Error(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	t.Setenv("KWSEARCH_TEST_KEY", "secret")

	emb, err := NewOpenAICompatibleEmbedder("KWSEARCH_TEST_KEY", "m", srv.URL)
	require.NoError(t, err)
	_, err = emb.Embed(context.Background(), []string{"hello"})
	assert.ErrorContains(t, err, "503")
}

func TestOpenAICompatibleEmbedder_MissingVector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"index":0,"embedding":[1,2]}]}`))
	}))
	defer srv.Close()
	t.Setenv("KWSEARCH_TEST_KEY", "secret")

	emb, err := NewOpenAICompatibleEmbedder("KWSEARCH_TEST_KEY", "m", srv.URL)
	require.NoError(t, err)
	_, err = emb.Embed(context.Background(), []string{"one", "two"})
	assert.Error(t, err)
}

func TestOllamaEmbedder_Defaults(t *testing.T) {
	emb, err := NewOllamaEmbedder("", "")
	require.NoError(t, err)
	assert.Equal(t, "all-minilm", emb.ModelName())
	assert.Equal(t, 384, emb.Dimension())
}

func TestMockEmbedder(t *testing.T) {
	emb := NewMockEmbedder(32)
	ctx := context.Background()

	vecs, err := emb.Embed(ctx, []string{"a bear in the woods", "A Bear in the woods!", "race cars", ""})
	require.NoError(t, err)
	require.Len(t, vecs, 4)
	for _, v := range vecs {
		assert.Len(t, v, 32)
	}

	assert.Equal(t, vecs[0], vecs[1], "case and punctuation must not matter")
	assert.InDelta(t, 1.0, store.CosineSimilarity(vecs[0], vecs[1]), 1e-6)
	assert.Zero(t, store.CosineSimilarity(vecs[3], vecs[0]), "empty text has a zero vector")

	again, _ := emb.Embed(ctx, []string{"race cars"})
	assert.Equal(t, vecs[2], again[0])
}

type countingEmbedder struct {
	inner *MockEmbedder
	texts []string
}

func (c *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	c.texts = append(c.texts, texts...)
	return c.inner.Embed(ctx, texts)
}
func (c *countingEmbedder) Dimension() int    { return c.inner.Dimension() }
func (c *countingEmbedder) ModelName() string { return c.inner.ModelName() }

func TestCachedEmbedder(t *testing.T) {
	inner := &countingEmbedder{inner: NewMockEmbedder(8)}
	emb := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	first, err := emb.Embed(ctx, []string{"bear", "cars"})
	require.NoError(t, err)
	second, err := emb.Embed(ctx, []string{"cars", "woods", "bear"})
	require.NoError(t, err)

	assert.Equal(t, []string{"bear", "cars", "woods"}, inner.texts)
	assert.Equal(t, first[0], second[2])
	assert.Equal(t, first[1], second[0])
	assert.Equal(t, "mock", emb.ModelName())
	assert.Equal(t, 8, emb.Dimension())
}

func TestNew(t *testing.T) {
	emb, err := New(Options{Provider: "mock", Dimension: 16})
	require.NoError(t, err)
	assert.Equal(t, 16, emb.Dimension())
	_, cached := emb.(*CachedEmbedder)
	assert.True(t, cached)

	emb, err = New(Options{Provider: "mock", CacheSize: -1})
	require.NoError(t, err)
	_, isMock := emb.(*MockEmbedder)
	assert.True(t, isMock)

	emb, err = New(Options{Provider: "ollama"})
	require.NoError(t, err)
	assert.Equal(t, "all-minilm", emb.ModelName())

	_, err = New(Options{Provider: "word2vec"})
	assert.Error(t, err)
}
