package retriever

import (
	"testing"

	"kwsearch/internal/adapter/index"
	"kwsearch/internal/domain"
)

func TestPrecisionAtK(t *testing.T) {
	cases := []struct {
		name      string
		retrieved []int
		relevant  []int
		wantP     float64
	}{
		{"perfect", []int{1, 2, 3}, []int{1, 2, 3}, 1.0},
		{"partial", []int{1, 2, 9}, []int{1, 2, 3}, 0.666},
		{"none", []int{7, 8, 9}, []int{1, 2, 3}, 0.0},
		{"empty_retrieved", []int{}, []int{1, 2}, 0.0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := PrecisionAtK(tc.retrieved, tc.relevant)
			if diff := p - tc.wantP; diff > 0.01 || diff < -0.01 {
				t.Errorf("precision = %.3f, want %.3f", p, tc.wantP)
			}
		})
	}
}

func TestRecallAtK(t *testing.T) {
	cases := []struct {
		name      string
		retrieved []int
		relevant  []int
		wantR     float64
	}{
		{"perfect", []int{1, 2, 3}, []int{1, 2, 3}, 1.0},
		{"partial", []int{1, 2, 9}, []int{1, 2, 3}, 0.666},
		{"none", []int{7, 8, 9}, []int{1, 2, 3}, 0.0},
		{"empty_relevant", []int{1, 2}, []int{}, 0.0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := RecallAtK(tc.retrieved, tc.relevant)
			if diff := r - tc.wantR; diff > 0.01 || diff < -0.01 {
				t.Errorf("recall = %.3f, want %.3f", r, tc.wantR)
			}
		})
	}
}

func TestMRR(t *testing.T) {
	cases := []struct {
		name      string
		retrieved []int
		relevant  []int
		wantMRR   float64
	}{
		{"first", []int{1, 2, 3}, []int{1}, 1.0},
		{"second", []int{9, 1, 3}, []int{1}, 0.5},
		{"third", []int{8, 9, 1}, []int{1}, 0.333},
		{"missing", []int{7, 8, 9}, []int{1}, 0.0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mrr := ReciprocalRank(tc.retrieved, tc.relevant)
			if diff := mrr - tc.wantMRR; diff > 0.01 || diff < -0.01 {
				t.Errorf("MRR = %.3f, want %.3f", mrr, tc.wantMRR)
			}
		})
	}
}

func TestNDCG(t *testing.T) {
	cases := []struct {
		name     string
		scores   []float64
		ideal    []float64
		wantNDCG float64
	}{
		{"perfect", []float64{3, 2, 1}, []float64{3, 2, 1}, 1.0},
		{"reversed", []float64{1, 2, 3}, []float64{3, 2, 1}, 0.790},
		{"zeros", []float64{0, 0, 0}, []float64{3, 2, 1}, 0.0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ndcg := NDCG(tc.scores, tc.ideal)
			if diff := ndcg - tc.wantNDCG; diff > 0.01 || diff < -0.01 {
				t.Errorf("NDCG = %.3f, want %.3f", ndcg, tc.wantNDCG)
			}
		})
	}
}

func BenchmarkBM25Search(b *testing.B) {
	words := []string{"storm", "harbor", "family", "bear", "race", "desert", "girl", "custom", "woods", "sea"}
	docs := make([]domain.Document, 0, 2000)
	for i := 0; i < 2000; i++ {
		docs = append(docs, domain.Document{
			ID:          i,
			Title:       words[i%len(words)],
			Description: words[(i*7)%len(words)] + " " + words[(i*3)%len(words)] + " " + words[(i*5)%len(words)],
		})
	}
	tok := newTokenizer()
	idx, err := index.NewBuilder(tok).Build(docs)
	if err != nil {
		b.Fatal(err)
	}
	r := NewBM25Retriever(idx, tok, DefaultParams())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := r.Search("bear in the stormy woods", 10); err != nil {
			b.Fatal(err)
		}
	}
}
