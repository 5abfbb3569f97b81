package analyzer

import (
	"fmt"

	porterstemmer "github.com/blevesearch/go-porterstemmer"
	"github.com/kljensen/snowball/english"
)

const (
	StemmerPorter   = "porter"
	StemmerSnowball = "snowball"
	StemmerNone     = "none"
)

// Stemmer reduces a lower-cased word to its root form.
type Stemmer interface {
	Stem(word string) string
	Name() string
}

// NewStemmer returns the stemmer registered under name.
func NewStemmer(name string) (Stemmer, error) {
	switch name {
	case StemmerPorter, "":
		return NewPorterStemmer(), nil
	case StemmerSnowball:
		return SnowballStemmer{}, nil
	case StemmerNone:
		return NoopStemmer{}, nil
	default:
		return nil, fmt.Errorf("unknown stemmer: %q", name)
	}
}

// PorterStemmer implements the Porter stemming algorithm.
type PorterStemmer struct{}

// NewPorterStemmer creates a new Porter stemmer.
func NewPorterStemmer() *PorterStemmer {
	return &PorterStemmer{}
}

func (p *PorterStemmer) Stem(word string) string {
	if word == "" {
		return word
	}
	return porterstemmer.StemString(word)
}

func (p *PorterStemmer) Name() string { return StemmerPorter }

// SnowballStemmer applies the English Snowball (Porter2) rules.
type SnowballStemmer struct{}

func (SnowballStemmer) Stem(word string) string {
	// Stopword removal already happened upstream, so stem everything.
	return english.Stem(word, true)
}

func (SnowballStemmer) Name() string { return StemmerSnowball }

type NoopStemmer struct{}

func (NoopStemmer) Stem(word string) string { return word }

func (NoopStemmer) Name() string { return StemmerNone }
