package analyzer

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// asciiPunctuation is every printable ASCII character that is neither a
// letter, a digit nor a space.
const asciiPunctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// Tokenizer normalizes text into index terms: lower-case, strip ASCII
// punctuation, split on whitespace, drop stopwords, stem. The same
// Tokenizer must be used to build and to query an index.
type Tokenizer struct {
	stemmer   Stemmer
	stopwords map[string]struct{}
}

// NewTokenizer creates a Tokenizer. A nil stemmer leaves tokens unstemmed.
func NewTokenizer(stemmer Stemmer, stopwords []string) *Tokenizer {
	if stemmer == nil {
		stemmer = NoopStemmer{}
	}
	stops := make(map[string]struct{}, len(stopwords))
	for _, s := range stopwords {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		stops[s] = struct{}{}
	}
	return &Tokenizer{
		stemmer:   stemmer,
		stopwords: stops,
	}
}

// Tokenize splits text into terms. Duplicates are kept in input order.
func (t *Tokenizer) Tokenize(text string) []string {
	text = stripPunctuation(strings.ToLower(text))
	words := strings.Fields(text)
	tokens := make([]string, 0, len(words))

	for _, word := range words {
		if _, isStop := t.stopwords[word]; isStop {
			continue
		}
		tokens = append(tokens, t.stemmer.Stem(word))
	}

	return tokens
}


// Fingerprint hashes the stemmer name and the sorted stopword set.
func (t *Tokenizer) Fingerprint() string {
	stops := make([]string, 0, len(t.stopwords))
	for s := range t.stopwords {
		stops = append(stops, s)
	}
	sort.Strings(stops)

	h := sha256.New()
	h.Write([]byte(t.stemmer.Name()))
	h.Write([]byte{0})
	for _, s := range stops {
		h.Write([]byte(s))
		h.Write([]byte{'\n'})
	}
	return t.stemmer.Name() + ":" + hex.EncodeToString(h.Sum(nil)[:8])
}

func stripPunctuation(text string) string {
	return strings.Map(func(r rune) rune {
		if r < 128 && strings.ContainsRune(asciiPunctuation, r) {
			return -1
		}
		return r
	}, text)
}
