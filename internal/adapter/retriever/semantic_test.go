package retriever

import (
	"context"
	"errors"
	"testing"

	"kwsearch/internal/adapter/memstore"
	"kwsearch/internal/domain"
	"kwsearch/internal/port"
)

// vectorEmbedder returns a fixed vector per known text and fails otherwise.
type vectorEmbedder struct {
	vectors map[string][]float32
}

func (e *vectorEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, ok := e.vectors[text]
		if !ok {
			return nil, errors.New("unknown text")
		}
		out[i] = vec
	}
	return out, nil
}

func (e *vectorEmbedder) Dimension() int    { return 2 }
func (e *vectorEmbedder) ModelName() string { return "fixed" }

func semanticFixture(t *testing.T) (*SemanticRetriever, *BM25Retriever) {
	t.Helper()
	idx := buildIndex(t, bearCorpus())

	vs := memstore.NewMemoryVectorStore()
	err := vs.Replace("fixed", []port.VectorItem{
		{ID: 1, Vector: []float32{1, 0}},
		{ID: 2, Vector: []float32{0.8, 0.6}},
		{ID: 3, Vector: []float32{0, 1}},
		{ID: 99, Vector: []float32{1, 0}},
	})
	if err != nil {
		t.Fatal(err)
	}

	emb := &vectorEmbedder{vectors: map[string][]float32{
		"wild animals": {1, 0},
		"bear":         {0, 1},
		"engines":      {0, 1},
	}}
	return NewSemanticRetriever(vs, emb, idx), NewBM25Retriever(idx, newTokenizer(), DefaultParams())
}

func TestSemanticSearch(t *testing.T) {
	sem, _ := semanticFixture(t)

	results, err := sem.Search("wild animals", 3)
	if err != nil {
		t.Fatal(err)
	}
	// 99 has a vector but no document and is skipped.
	if got := ids(results); !equalInts(got, []int{1, 2}) {
		t.Fatalf("expected [1 2], got %v", got)
	}
	if results[0].Score < results[1].Score {
		t.Errorf("scores not descending: %v", results)
	}
}

func TestSemanticSearch_BlankQuery(t *testing.T) {
	sem, _ := semanticFixture(t)

	for _, q := range []string{"", "  \t"} {
		_, err := sem.Search(q, 5)
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("Search(%q): expected ErrInvalidArgument, got %v", q, err)
		}
	}
}

func TestSemanticSearch_NotConfigured(t *testing.T) {
	sem := NewSemanticRetriever(nil, nil, buildIndex(t, bearCorpus()))

	_, err := sem.Search("bear", 5)
	if !errors.Is(err, domain.ErrEmbeddingsUnavailable) {
		t.Errorf("expected ErrEmbeddingsUnavailable, got %v", err)
	}
}

func TestHybridSearch_FusesBothRankings(t *testing.T) {
	sem, bm25 := semanticFixture(t)
	h := NewHybridRetriever(bm25, sem, 60, 0.5)

	results, err := h.Search("bear", 5)
	if err != nil {
		t.Fatal(err)
	}

	// BM25 ranks [1 2]; vectors rank [3 2 1]. Documents found by both
	// outrank the vector-only match.
	got := ids(results)
	if len(got) != 3 {
		t.Fatalf("expected 3 fused results, got %v", got)
	}
	if got[2] != 3 {
		t.Errorf("expected document 3 last, got %v", got)
	}
	for i := 1; i < len(results); i++ {
		if results[i-1].Score < results[i].Score {
			t.Errorf("fused scores not descending: %v", got)
		}
	}
}

func TestHybridSearch_FallsBackToBM25(t *testing.T) {
	sem, bm25 := semanticFixture(t)
	h := NewHybridRetriever(bm25, sem, 60, 0.5)

	// The embedder does not know this text, so only BM25 answers.
	results, err := h.Search("girl", 5)
	if err != nil {
		t.Fatal(err)
	}
	if got := ids(results); !equalInts(got, []int{1}) {
		t.Errorf("expected [1], got %v", got)
	}
}

func TestHybridSearch_WithoutSemantic(t *testing.T) {
	_, bm25 := semanticFixture(t)
	h := NewHybridRetriever(bm25, nil, 0, 2)

	results, err := h.Search("bear", 5)
	if err != nil {
		t.Fatal(err)
	}
	if got := ids(results); !equalInts(got, []int{1, 2}) {
		t.Errorf("expected [1 2], got %v", got)
	}
}
