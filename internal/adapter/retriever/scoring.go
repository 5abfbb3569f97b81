package retriever

import (
	"fmt"
	"math"

	"kwsearch/internal/adapter/index"
	"kwsearch/internal/domain"
	"kwsearch/internal/port"
)

// Params are the BM25 free parameters.
type Params struct {
	K1 float64 `yaml:"k1" json:"k1"`
	B  float64 `yaml:"b" json:"b"`
}

func DefaultParams() Params {
	return Params{K1: 1.2, B: 0.75}
}

// IDF is the smoothed inverse document frequency ln((n+1)/(df+1)).
func IDF(n, df int) float64 {
	return math.Log(float64(n+1) / float64(df+1))
}

// BM25IDF is ln((n-df+0.5)/(df+0.5) + 1).
func BM25IDF(n, df int) float64 {
	N := float64(n)
	d := float64(df)
	return math.Log((N-d+0.5)/(d+0.5) + 1)
}

// BM25Saturation is the length-normalized term frequency component of BM25.
// It is 0 for an absent term and when avgDocLen is 0, which only happens
// for an index whose documents are all empty.
func BM25Saturation(tf, docLen int, avgDocLen, k1, b float64) float64 {
	if tf <= 0 || avgDocLen == 0 {
		return 0
	}
	t := float64(tf)
	norm := 1 - b + b*float64(docLen)/avgDocLen
	denom := t + k1*norm
	if denom <= 0 {
		return 0
	}
	return t * (k1 + 1) / denom
}

// Scorer answers per-term statistics against one index snapshot.
//
// Every term argument is run through the tokenizer first and must produce
// exactly one token; anything else is ErrInvalidArgument.
type Scorer struct {
	idx       *index.Index
	tokenizer port.Tokenizer
}

func NewScorer(idx *index.Index, tokenizer port.Tokenizer) *Scorer {
	return &Scorer{idx: idx, tokenizer: tokenizer}
}

func (s *Scorer) term(raw string) (string, error) {
	tokens := s.tokenizer.Tokenize(raw)
	if len(tokens) != 1 {
		return "", fmt.Errorf("%w: %q must normalize to exactly one token, got %d", domain.ErrInvalidArgument, raw, len(tokens))
	}
	return tokens[0], nil
}

// TF returns the count of term in document docID. Unknown documents and
// terms yield 0.
func (s *Scorer) TF(docID int, term string) (int, error) {
	t, err := s.term(term)
	if err != nil {
		return 0, err
	}
	return s.idx.TermFrequency(docID, t), nil
}

func (s *Scorer) IDF(term string) (float64, error) {
	t, err := s.term(term)
	if err != nil {
		return 0, err
	}
	return IDF(s.idx.DocCount(), s.idx.DocFrequency(t)), nil
}

func (s *Scorer) BM25IDF(term string) (float64, error) {
	t, err := s.term(term)
	if err != nil {
		return 0, err
	}
	return BM25IDF(s.idx.DocCount(), s.idx.DocFrequency(t)), nil
}

func (s *Scorer) BM25TF(docID int, term string, p Params) (float64, error) {
	t, err := s.term(term)
	if err != nil {
		return 0, err
	}
	return s.bm25tf(docID, t, p), nil
}

// BM25 is BM25TF times BM25IDF for a single term.
func (s *Scorer) BM25(docID int, term string, p Params) (float64, error) {
	t, err := s.term(term)
	if err != nil {
		return 0, err
	}
	return s.bm25(docID, t, p), nil
}

func (s *Scorer) TFIDF(docID int, term string) (float64, error) {
	t, err := s.term(term)
	if err != nil {
		return 0, err
	}
	tf := s.idx.TermFrequency(docID, t)
	return float64(tf) * IDF(s.idx.DocCount(), s.idx.DocFrequency(t)), nil
}

// bm25tf and bm25 take an already normalized term.
func (s *Scorer) bm25tf(docID int, term string, p Params) float64 {
	return BM25Saturation(s.idx.TermFrequency(docID, term), s.idx.DocLength(docID), s.idx.AvgDocLength(), p.K1, p.B)
}

func (s *Scorer) bm25(docID int, term string, p Params) float64 {
	return s.bm25tf(docID, term, p) * BM25IDF(s.idx.DocCount(), s.idx.DocFrequency(term))
}
