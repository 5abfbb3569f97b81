package retriever

import (
	"math"
	"testing"

	"kwsearch/internal/adapter/analyzer"
	"kwsearch/internal/adapter/index"
	"kwsearch/internal/domain"
)

var movieStopwords = []string{"a", "who", "in", "the", "about"}

func newTokenizer() *analyzer.Tokenizer {
	return analyzer.NewTokenizer(analyzer.NewPorterStemmer(), movieStopwords)
}

func buildIndex(t *testing.T, docs []domain.Document) *index.Index {
	t.Helper()
	idx, err := index.NewBuilder(newTokenizer()).Build(docs)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	return idx
}

// Two documents mention a bear, one does not.
func bearCorpus() []domain.Document {
	return []domain.Document{
		{ID: 1, Title: "Brave", Description: "A girl who meets a bear"},
		{ID: 2, Title: "Bears", Description: "A story about a family in the woods"},
		{ID: 3, Title: "Cars", Description: "Race cars compete"},
	}
}

func ids(results []domain.ScoredDocument) []int {
	out := make([]int, len(results))
	for i, r := range results {
		out[i] = r.ID
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestBM25Search_StemMatch(t *testing.T) {
	idx := buildIndex(t, bearCorpus())
	r := NewBM25Retriever(idx, newTokenizer(), DefaultParams())

	results, err := r.Search("bear", 5)
	if err != nil {
		t.Fatal(err)
	}

	if got := ids(results); !equalInts(got, []int{1, 2}) {
		t.Fatalf("expected documents [1 2], got %v", got)
	}

	// Equal tf and length give equal scores; the tie goes to the lower id.
	want := math.Log(1.6)
	for _, res := range results {
		if math.Abs(res.Score-want) > 1e-12 {
			t.Errorf("document %d: score = %f, want %f", res.ID, res.Score, want)
		}
	}

	s := NewScorer(idx, newTokenizer())
	if tf, _ := s.TF(2, "bear"); tf != 1 {
		t.Errorf("tf(2, bear) = %d, want 1", tf)
	}
	if idf, _ := s.IDF("bear"); math.Abs(idf-math.Log(4.0/3.0)) > 1e-12 {
		t.Errorf("idf(bear) = %f, want ln(4/3)", idf)
	}
}

func TestBM25Search_LiteralCorpus(t *testing.T) {
	// Here only "Bears" mentions a bear, twice.
	idx := buildIndex(t, []domain.Document{
		{ID: 1, Title: "Brave", Description: "A girl who defies a custom"},
		{ID: 2, Title: "Bears", Description: "A story about bears in the woods"},
		{ID: 3, Title: "Cars", Description: "Race cars compete"},
	})
	r := NewBM25Retriever(idx, newTokenizer(), DefaultParams())

	results, err := r.Search("bear", 5)
	if err != nil {
		t.Fatal(err)
	}
	if got := ids(results); !equalInts(got, []int{2}) {
		t.Fatalf("expected documents [2], got %v", got)
	}

	s := NewScorer(idx, newTokenizer())
	if tf, _ := s.TF(2, "bear"); tf != 2 {
		t.Errorf("tf(2, bear) = %d, want 2", tf)
	}
	if idf, _ := s.IDF("bear"); math.Abs(idf-math.Log(2)) > 1e-12 {
		t.Errorf("idf(bear) = %f, want ln(2)", idf)
	}
}

func TestBM25Search_Ordering(t *testing.T) {
	idx := buildIndex(t, []domain.Document{
		{ID: 10, Title: "Storm", Description: "storm storm storm at sea"},
		{ID: 4, Title: "Calm", Description: "a quiet sea"},
		{ID: 7, Title: "Harbor", Description: "boats wait out the storm"},
		{ID: 1, Title: "Desert", Description: "sand and sun"},
	})
	r := NewBM25Retriever(idx, newTokenizer(), DefaultParams())

	results, err := r.Search("storm sea", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %v", ids(results))
	}
	if results[0].ID != 10 {
		t.Errorf("expected document 10 first, got %v", ids(results))
	}
	for i := 1; i < len(results); i++ {
		prev, cur := results[i-1], results[i]
		if prev.Score < cur.Score || (prev.Score == cur.Score && prev.ID > cur.ID) {
			t.Errorf("results out of order at %d: %v", i, ids(results))
		}
	}
}

func TestBM25Search_Limit(t *testing.T) {
	idx := buildIndex(t, bearCorpus())
	r := NewBM25Retriever(idx, newTokenizer(), DefaultParams())

	for _, limit := range []int{0, 1, 2, 5} {
		results, err := r.Search("bear car", limit)
		if err != nil {
			t.Fatal(err)
		}
		if len(results) > limit {
			t.Errorf("limit %d: got %d results", limit, len(results))
		}
	}

	results, _ := r.Search("bear", -1)
	if len(results) != 0 {
		t.Errorf("expected no results for negative limit, got %d", len(results))
	}
}

func TestBM25Search_RepeatedQueryTermCountsTwice(t *testing.T) {
	idx := buildIndex(t, bearCorpus())
	r := NewBM25Retriever(idx, newTokenizer(), DefaultParams())

	once, _ := r.Search("bear", 5)
	twice, _ := r.Search("bear bears", 5)
	if len(once) == 0 || len(twice) != len(once) {
		t.Fatalf("unexpected result sizes: %d vs %d", len(once), len(twice))
	}
	if math.Abs(twice[0].Score-2*once[0].Score) > 1e-12 {
		t.Errorf("expected doubled score, got %f vs %f", twice[0].Score, once[0].Score)
	}
}

func TestBM25EmptyQuery(t *testing.T) {
	idx := buildIndex(t, bearCorpus())
	r := NewBM25Retriever(idx, newTokenizer(), DefaultParams())

	for _, q := range []string{"", "   ", "the a who", "!!!"} {
		results, err := r.Search(q, 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(results) != 0 {
			t.Errorf("expected no results for %q, got %d", q, len(results))
		}
	}
}

func TestBM25NoMatches(t *testing.T) {
	idx := buildIndex(t, bearCorpus())
	r := NewBM25Retriever(idx, newTokenizer(), DefaultParams())

	results, err := r.Search("zzzznonexistent", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results for non-matching query, got %d", len(results))
	}
}

func TestBM25EmptyIndex(t *testing.T) {
	r := NewBM25Retriever(index.Empty(), newTokenizer(), DefaultParams())

	results, err := r.Search("bear", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results on empty index, got %d", len(results))
	}
}

func TestBM25Search_DoesNotMutateIndex(t *testing.T) {
	idx := buildIndex(t, bearCorpus())
	before := idx.Parts()
	r := NewBM25Retriever(idx, newTokenizer(), DefaultParams())

	r.Search("bear unicorn dragon", 5)

	after := idx.Parts()
	if len(after.Postings) != len(before.Postings) {
		t.Errorf("postings grew from %d to %d terms", len(before.Postings), len(after.Postings))
	}
}
